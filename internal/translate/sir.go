package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mcr/internal/types"
)

// SIR is the structured translation path: one model call produces a JSON
// statement which the clause compiler renders deterministically. Error
// detection shifts from engine-parse time to schema-validation time, at the
// cost of one extra compilation step.
type SIR struct{}

// Name implements Strategy.
func (s *SIR) Name() string { return StrategySIR }

// TranslateAssert implements Strategy.
func (s *SIR) TranslateAssert(ctx context.Context, llm LLMClient, req Request) ([]string, error) {
	result, err := llm.Generate(ctx, sirAssertSystem, req.userPrompt(), types.GenerateOptions{})
	if err != nil {
		return nil, err
	}

	st, err := ParseStatement(result.Text)
	if err != nil {
		return nil, &types.ValidationError{
			Kind:    types.KindSchema,
			Message: err.Error(),
		}
	}

	// An error field is authoritative failure even when fact or rule data
	// is co-present. A refusal of a genuinely non-assertable input is
	// terminal, not retryable.
	if st.Error != "" {
		return nil, fmt.Errorf("%w: %s", types.ErrCannotConvert, st.Error)
	}

	clause, err := Compile(st)
	if err != nil {
		return nil, err
	}
	return []string{clause.Text}, nil
}

// TranslateQuery implements Strategy.
func (s *SIR) TranslateQuery(ctx context.Context, llm LLMClient, req Request) (string, error) {
	return translateQueryCall(ctx, llm, req)
}

// ParseStatement extracts the first JSON object from a model response.
// Models wrap JSON in prose or markdown fences often enough that scanning
// for the first '{' and decoding from there is the robust path.
func ParseStatement(raw string) (*types.Statement, error) {
	start := strings.Index(raw, "{")
	if start == -1 {
		return nil, fmt.Errorf("no JSON object found in response %q", raw)
	}

	decoder := json.NewDecoder(strings.NewReader(raw[start:]))
	var st types.Statement
	if err := decoder.Decode(&st); err != nil {
		return nil, fmt.Errorf("failed to parse SIR JSON: %v", err)
	}
	return &st, nil
}
