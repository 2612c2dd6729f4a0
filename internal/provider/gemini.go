// Package provider implements the language-model capability consumed by the
// translation and answer packages: generate(system, user, options) ->
// {text, cost}. Failures are reported as *types.ProviderError and are never
// retried by the refinement loop.
package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"mcr/internal/types"
)

// Gemini calls the Google Gemini API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGemini creates a Gemini provider. timeout bounds each generation call;
// zero falls back to 30s.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration, logger *zap.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Gemini{client: client, model: model, timeout: timeout, logger: logger}, nil
}

// Name implements the capability interface.
func (g *Gemini) Name() string { return fmt.Sprintf("gemini:%s", g.model) }

// Generate implements the capability interface. Every call carries a bounded
// timeout so no translation attempt can hang the session.
func (g *Gemini) Generate(ctx context.Context, systemPrompt, userPrompt string, opts types.GenerateOptions) (*types.GenerateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(opts.Temperature),
	}
	if opts.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = opts.MaxOutputTokens
	}

	start := time.Now()
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt), cfg)
	if err != nil {
		return nil, &types.ProviderError{Provider: g.Name(), Err: err}
	}

	text := result.Text()
	if text == "" {
		return nil, &types.ProviderError{Provider: g.Name(), Err: fmt.Errorf("empty response")}
	}

	out := &types.GenerateResult{Text: text}
	if result.UsageMetadata != nil {
		out.Cost = &types.CostData{
			InputTokens:  result.UsageMetadata.PromptTokenCount,
			OutputTokens: result.UsageMetadata.CandidatesTokenCount,
		}
	}

	g.logger.Debug("generation complete",
		zap.String("model", g.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("response_len", len(text)))
	return out, nil
}
