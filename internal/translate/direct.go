package translate

import (
	"context"
	"fmt"
	"strings"

	"mcr/internal/types"
)

// Direct is the fastest translation path: one model call produces free-text
// clauses which a line-oriented post-processor cleans up. Malformed
// predicate syntax is only caught by the validator (or, at worst, the
// engine), which is the price of skipping the intermediate representation.
type Direct struct{}

// Name implements Strategy.
func (d *Direct) Name() string { return StrategyDirect }

// TranslateAssert implements Strategy.
func (d *Direct) TranslateAssert(ctx context.Context, llm LLMClient, req Request) ([]string, error) {
	result, err := llm.Generate(ctx, directAssertSystem, req.userPrompt(), types.GenerateOptions{})
	if err != nil {
		return nil, err
	}

	if isCannotConvert(result.Text) {
		return nil, fmt.Errorf("%w: %q", types.ErrCannotConvert, req.Input)
	}

	clauses := ExtractClauses(result.Text)
	if len(clauses) == 0 {
		return nil, &types.ValidationError{
			Kind:    types.KindSyntax,
			Message: fmt.Sprintf("model produced no usable clause lines from %q", result.Text),
		}
	}
	return clauses, nil
}

// TranslateQuery implements Strategy.
func (d *Direct) TranslateQuery(ctx context.Context, llm LLMClient, req Request) (string, error) {
	return translateQueryCall(ctx, llm, req)
}

// ExtractClauses is the line-oriented post-processor: blank lines and
// %-comment lines are stripped, a missing terminating period is appended,
// and lines of length <= 1 are discarded.
func ExtractClauses(raw string) []string {
	var clauses []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "```prolog")
		line = strings.TrimPrefix(line, "```")
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		if !strings.HasSuffix(line, ".") {
			line += "."
		}
		if len(line) <= 1 {
			continue
		}
		clauses = append(clauses, line)
	}
	return clauses
}

// translateQueryCall is shared by both strategies: queries have no
// intermediate representation, so SIR and Direct use the same single-goal
// prompt.
func translateQueryCall(ctx context.Context, llm LLMClient, req Request) (string, error) {
	result, err := llm.Generate(ctx, querySystem, req.userPrompt(), types.GenerateOptions{})
	if err != nil {
		return "", err
	}

	if isCannotConvert(result.Text) {
		return "", fmt.Errorf("%w: %q", types.ErrCannotConvert, req.Input)
	}

	lines := ExtractClauses(result.Text)
	if len(lines) != 1 {
		return "", &types.ValidationError{
			Kind:    types.KindSyntax,
			Message: fmt.Sprintf("expected exactly one query goal, got %d lines from %q", len(lines), result.Text),
		}
	}
	return lines[0], nil
}

func isCannotConvert(text string) bool {
	return strings.Contains(strings.ToUpper(text), cannotConvertMarker)
}
