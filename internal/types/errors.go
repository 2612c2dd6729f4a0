package types

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================
// Validation failures are recovered locally by the refinement loop; engine
// and provider failures propagate to the caller. Callers distinguish the
// categories with errors.As.

// ValidationError is a schema, casing or arity violation detected before any
// clause text reaches the engine. It is consumed internally by the
// refinement loop and only surfaces, wrapped in a TranslationError, once the
// retry budget is exhausted.
type ValidationError struct {
	Kind    ErrorKind
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Kind, e.Message)
}

// FromResult converts a failing ValidationResult into a ValidationError.
func FromResult(r ValidationResult) *ValidationError {
	return &ValidationError{Kind: r.Kind, Message: r.Message}
}

// TranslationError means the model output stayed unusable after the full
// retry budget. LastMessage carries the final validation failure.
type TranslationError struct {
	Strategy    string
	Attempts    int
	LastMessage string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation failed after %d attempt(s) with strategy %s: %s",
		e.Attempts, e.Strategy, e.LastMessage)
}

// EngineError means the inference engine rejected clause text or a query.
// An assert that triggers one is rolled back atomically; a query that
// triggers one is surfaced distinctly from an empty result.
type EngineError struct {
	Op      string // "consult", "query"
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %s failed: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("engine %s failed: %s", e.Op, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Err }

// ProviderError is a model call network/auth failure. It fails the current
// operation immediately and never consumes a refinement attempt.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s call failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// SessionNotFoundError reports an operation on an unknown or deleted session.
type SessionNotFoundError struct {
	ID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.ID)
}

// ErrCannotConvert marks natural-language input that is not an assertable
// statement or answerable question. Strategies return it wrapped so callers
// can detect it with errors.Is.
var ErrCannotConvert = errors.New("input cannot be converted to a logic statement")
