package provider

import (
	"context"
	"errors"
	"strings"
	"sync"

	"mcr/internal/types"
)

var errNoScriptedResponse = errors.New("no scripted response matches prompt")

// Mock is a scripted provider for tests and offline demos. Responses are
// matched against the prompts by substring; the first matching rule wins.
type Mock struct {
	mu    sync.Mutex
	rules []MockRule
	calls []MockCall

	// Fallback is returned when no rule matches. Empty means a provider
	// error, which is useful for asserting fail-fast behavior.
	Fallback string

	// Err, when set, is returned from every call wrapped in a
	// ProviderError.
	Err error
}

// MockRule maps a prompt substring to a canned response.
type MockRule struct {
	// Contains is matched against system + user prompt.
	Contains string
	Response string
}

// MockCall records one Generate invocation for assertions.
type MockCall struct {
	System string
	User   string
}

// NewMock builds a scripted provider.
func NewMock(rules ...MockRule) *Mock {
	return &Mock{rules: rules}
}

// Name implements the capability interface.
func (m *Mock) Name() string { return "mock" }

// Generate implements the capability interface.
func (m *Mock) Generate(ctx context.Context, systemPrompt, userPrompt string, opts types.GenerateOptions) (*types.GenerateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &types.ProviderError{Provider: m.Name(), Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{System: systemPrompt, User: userPrompt})

	if m.Err != nil {
		return nil, &types.ProviderError{Provider: m.Name(), Err: m.Err}
	}

	haystack := systemPrompt + "\n" + userPrompt
	for _, rule := range m.rules {
		if strings.Contains(haystack, rule.Contains) {
			return &types.GenerateResult{Text: rule.Response}, nil
		}
	}
	if m.Fallback != "" {
		return &types.GenerateResult{Text: m.Fallback}, nil
	}
	return nil, &types.ProviderError{Provider: m.Name(), Err: errNoScriptedResponse}
}

// Calls returns a copy of the recorded invocations.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times Generate ran.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
