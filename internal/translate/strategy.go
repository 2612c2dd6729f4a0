// Package translate turns natural language into validated logic clauses and
// queries. A Strategy produces candidate clause text from one model call;
// the refinement loop validates candidates and re-prompts with a critique on
// failure, bounded by a retry budget.
package translate

import (
	"context"
	"fmt"

	"mcr/internal/types"
)

// LLMClient is the language-model capability the strategies consume. Network
// and auth failures are reported as *types.ProviderError and are never
// retried by the refinement loop.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts types.GenerateOptions) (*types.GenerateResult, error)
	Name() string
}

// Strategy names. Adding a strategy means adding a variant here and a case
// in ForName; there is no other dispatch point.
const (
	StrategyDirect = "direct"
	StrategySIR    = "sir"
)

// Strategy converts natural language into candidate clause texts (assert) or
// a single query string (ask). Candidates are unvalidated; the refinement
// loop owns validation.
type Strategy interface {
	// TranslateAssert returns candidate clause texts, one per clause.
	TranslateAssert(ctx context.Context, llm LLMClient, req Request) ([]string, error)

	// TranslateQuery returns one clause-shaped query string.
	TranslateQuery(ctx context.Context, llm LLMClient, req Request) (string, error)

	Name() string
}

// ForName dispatches exhaustively over the known strategy variants.
func ForName(name string) (Strategy, error) {
	switch name {
	case StrategyDirect:
		return &Direct{}, nil
	case StrategySIR:
		return &SIR{}, nil
	default:
		return nil, fmt.Errorf("unknown translation strategy %q (want %s or %s)", name, StrategyDirect, StrategySIR)
	}
}
