package translate

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"mcr/internal/types"
	"mcr/internal/validate"
)

// State is the refinement loop's position in its cycle. Terminal states are
// Succeeded and ExhaustedRetries.
type State int

const (
	StateAttempting State = iota
	StateValidating
	StateSucceeded
	StateExhaustedRetries
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateValidating:
		return "validating"
	case StateSucceeded:
		return "succeeded"
	case StateExhaustedRetries:
		return "exhausted_retries"
	default:
		return "unknown"
	}
}

// ExampleSource retrieves prior successful translations similar to an input.
// An external collaborator; the loop tolerates a nil source.
type ExampleSource interface {
	Similar(input string, n int) []types.TranslationExample
}

// Loop drives a strategy through bounded validate-and-retry. Only a
// validation failure consumes an attempt: provider failures fail fast and a
// cancelled context abandons pending retries without touching any knowledge
// base. A Loop is stateless between calls and safe to share across sessions.
type Loop struct {
	Strategy     Strategy
	Validator    *validate.Validator
	LLM          LLMClient
	MaxAttempts  int
	ExampleCount int
	Examples     ExampleSource

	logger *zap.Logger
}

// NewLoop builds a refinement loop. maxAttempts must be positive; a
// non-positive value falls back to 3.
func NewLoop(strategy Strategy, validator *validate.Validator, llm LLMClient, maxAttempts int, logger *zap.Logger) *Loop {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		Strategy:     strategy,
		Validator:    validator,
		LLM:          llm,
		MaxAttempts:  maxAttempts,
		ExampleCount: 3,
		logger:       logger,
	}
}

// Assert translates input into validated clauses, retrying with a critique
// on each validation failure. On exhaustion the last validation message is
// surfaced as a TranslationError, never as a silent empty result.
func (l *Loop) Assert(ctx context.Context, input string, lex *types.Lexicon) ([]types.Clause, error) {
	var schema []string
	if lex != nil {
		schema = lex.Summary()
	}

	var lastMessage, critique string

	for attempt := 1; attempt <= l.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l.transition(StateAttempting, attempt)

		texts, err := l.Strategy.TranslateAssert(ctx, l.LLM, Request{Input: input, Schema: schema, Critique: critique})
		if err != nil {
			retry, msg := l.classify(err)
			if !retry {
				return nil, err
			}
			l.transition(StateValidating, attempt)
			lastMessage = msg
			critique = buildCritique(input, "", msg, attempt, l.similar(input))
			continue
		}

		l.transition(StateValidating, attempt)
		clauses, res := l.checkAll(texts, lex)
		if !res.Valid {
			lastMessage = res.Message
			critique = buildCritique(input, strings.Join(texts, "\n"), res.Message, attempt, l.similar(input))
			continue
		}

		l.transition(StateSucceeded, attempt)
		return clauses, nil
	}

	l.transition(StateExhaustedRetries, l.MaxAttempts)
	return nil, &types.TranslationError{
		Strategy:    l.Strategy.Name(),
		Attempts:    l.MaxAttempts,
		LastMessage: lastMessage,
	}
}

// Query translates input into one validated query string under the same
// retry discipline as Assert.
func (l *Loop) Query(ctx context.Context, input string, lex *types.Lexicon) (string, error) {
	var schema []string
	if lex != nil {
		schema = lex.Summary()
	}

	var lastMessage, critique string

	for attempt := 1; attempt <= l.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		l.transition(StateAttempting, attempt)

		candidate, err := l.Strategy.TranslateQuery(ctx, l.LLM, Request{Input: input, Schema: schema, Critique: critique})
		if err != nil {
			retry, msg := l.classify(err)
			if !retry {
				return "", err
			}
			l.transition(StateValidating, attempt)
			lastMessage = msg
			critique = buildCritique(input, "", msg, attempt, l.similar(input))
			continue
		}

		l.transition(StateValidating, attempt)
		normalized, res := l.Validator.CheckQuery(candidate)
		if !res.Valid {
			lastMessage = res.Message
			critique = buildCritique(input, candidate, res.Message, attempt, l.similar(input))
			continue
		}

		l.transition(StateSucceeded, attempt)
		return normalized, nil
	}

	l.transition(StateExhaustedRetries, l.MaxAttempts)
	return "", &types.TranslationError{
		Strategy:    l.Strategy.Name(),
		Attempts:    l.MaxAttempts,
		LastMessage: lastMessage,
	}
}

// classify decides whether a strategy error consumes a retry. Provider
// failures and cannot-convert refusals are terminal; validation-shaped
// failures (bad JSON, no clause lines, schema violations) are retryable.
func (l *Loop) classify(err error) (retry bool, message string) {
	var pe *types.ProviderError
	if errors.As(err, &pe) {
		return false, ""
	}
	if errors.Is(err, types.ErrCannotConvert) {
		return false, ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, ""
	}
	var ve *types.ValidationError
	if errors.As(err, &ve) {
		return true, ve.Message
	}
	return false, ""
}

// checkAll validates every candidate; the first failing clause fails the
// whole batch. Warning-level results (arity overloads) pass with a log line.
func (l *Loop) checkAll(texts []string, lex *types.Lexicon) ([]types.Clause, types.ValidationResult) {
	clauses := make([]types.Clause, 0, len(texts))
	for _, text := range texts {
		clause, res := l.Validator.CheckClause(text, lex)
		if !res.Valid {
			return nil, res
		}
		if res.Warning {
			l.logger.Warn("clause accepted with warning",
				zap.String("clause", clause.Text),
				zap.String("kind", string(res.Kind)),
				zap.String("message", res.Message))
		}
		clauses = append(clauses, clause)
	}
	return clauses, types.OK()
}

func (l *Loop) similar(input string) []types.TranslationExample {
	if l.Examples == nil {
		return nil
	}
	n := l.ExampleCount
	if n <= 0 {
		n = 3
	}
	return l.Examples.Similar(input, n)
}

func (l *Loop) transition(state State, attempt int) {
	l.logger.Debug("refinement transition",
		zap.Stringer("state", state),
		zap.Int("attempt", attempt),
		zap.String("strategy", l.Strategy.Name()))
}
