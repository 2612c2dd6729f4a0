// Package types holds the data model shared across the MCR packages.
// It exists so that kb, validate and translate can exchange clauses and
// structured statements without import cycles.
package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// CLAUSES
// =============================================================================

// Clause is a single logic statement of the form `head.` or `head :- body.`.
// Clauses are immutable once created; a knowledge base only appends or
// removes them, never edits one in place.
type Clause struct {
	Text      string `json:"text"`
	Predicate string `json:"predicate"`
	Arity     int    `json:"arity"`
	IsRule    bool   `json:"is_rule"`
}

// Functor returns the name/arity form used in lexicon summaries and prompts.
func (c Clause) Functor() string {
	return fmt.Sprintf("%s/%d", c.Predicate, c.Arity)
}

// =============================================================================
// STRUCTURED INTERMEDIATE REPRESENTATION (SIR)
// =============================================================================

// Statement is the tagged variant produced by the SIR translation strategy.
// Exactly one of Fact or Rule is populated according to StatementType; a
// non-empty Error is authoritative failure even when fact or rule data is
// co-present.
type Statement struct {
	StatementType    string     `json:"statementType"` // "fact" or "rule"
	Fact             *FactShape `json:"fact,omitempty"`
	Rule             *RuleShape `json:"rule,omitempty"`
	Error            string     `json:"error,omitempty"`
	TranslationNotes string     `json:"translationNotes,omitempty"`
}

// FactShape is a predicate applied to an ordered argument list. Constant
// arguments are lowercase_snake_case, variables are Uppercase.
type FactShape struct {
	Predicate  string     `json:"predicate"`
	Arguments  []Argument `json:"arguments"`
	IsNegative bool       `json:"isNegative,omitempty"`
}

// RuleShape is a head fact implied by a conjunction of body facts.
type RuleShape struct {
	Head FactShape   `json:"head"`
	Body []FactShape `json:"body"`
}

// Argument is either a single term or a list of terms. The SIR JSON schema
// allows `string | string[]` per argument position, so unmarshalling accepts
// both shapes.
type Argument struct {
	Value  string
	List   []string
	IsList bool
}

// Arg builds a single-term argument.
func Arg(v string) Argument { return Argument{Value: v} }

// ListArg builds a list-term argument.
func ListArg(vs ...string) Argument { return Argument{List: vs, IsList: true} }

// UnmarshalJSON accepts either a JSON string or a JSON array of strings.
func (a *Argument) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		a.List = list
		a.IsList = true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("argument must be string or string list: %w", err)
	}
	a.Value = s
	return nil
}

// MarshalJSON emits the compact form the schema describes.
func (a Argument) MarshalJSON() ([]byte, error) {
	if a.IsList {
		return json.Marshal(a.List)
	}
	return json.Marshal(a.Value)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindSyntax     ErrorKind = "syntax"
	KindSchema     ErrorKind = "schema"
	KindCasing     ErrorKind = "casing"
	KindArityDrift ErrorKind = "arity_drift"
)

// ValidationResult is the outcome of one validation pass. A fresh result is
// produced per check; results are never mutated.
type ValidationResult struct {
	Valid   bool      `json:"valid"`
	Kind    ErrorKind `json:"errorKind,omitempty"`
	Message string    `json:"message,omitempty"`
	Warning bool      `json:"warning,omitempty"`
}

// OK is the canonical passing result.
func OK() ValidationResult { return ValidationResult{Valid: true} }

// Fail builds a failing result of the given kind.
func Fail(kind ErrorKind, format string, args ...interface{}) ValidationResult {
	return ValidationResult{Valid: false, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Warn builds a passing result that still carries a message, used for
// tolerated inconsistencies such as predicate arity overloads.
func Warn(kind ErrorKind, format string, args ...interface{}) ValidationResult {
	return ValidationResult{Valid: true, Kind: kind, Message: fmt.Sprintf(format, args...), Warning: true}
}

// =============================================================================
// QUERY RESULTS
// =============================================================================

// QueryResult carries the solutions of one engine query. An empty Bindings
// slice means "no solutions"; a malformed query never produces a QueryResult,
// it produces an EngineError.
type QueryResult struct {
	Bindings []map[string]string `json:"bindings"`
	Duration time.Duration       `json:"duration"`
}

// =============================================================================
// LEXICON
// =============================================================================

// Lexicon records predicate name/arity usage for one knowledge base. It is
// used to detect accidental arity drift in translated clauses. Not
// concurrency-safe on its own; the owning knowledge base serializes access.
type Lexicon struct {
	counts map[string]map[int]int
}

// NewLexicon returns an empty lexicon.
func NewLexicon() *Lexicon {
	return &Lexicon{counts: make(map[string]map[int]int)}
}

// Observe records one use of predicate/arity.
func (l *Lexicon) Observe(predicate string, arity int) {
	if l.counts[predicate] == nil {
		l.counts[predicate] = make(map[int]int)
	}
	l.counts[predicate][arity]++
}

// Forget removes one use, dropping the entry when its count reaches zero.
func (l *Lexicon) Forget(predicate string, arity int) {
	arities, ok := l.counts[predicate]
	if !ok {
		return
	}
	arities[arity]--
	if arities[arity] <= 0 {
		delete(arities, arity)
	}
	if len(arities) == 0 {
		delete(l.counts, predicate)
	}
}

// Arities returns the recorded arities for a predicate, ascending.
func (l *Lexicon) Arities(predicate string) []int {
	arities, ok := l.counts[predicate]
	if !ok {
		return nil
	}
	out := make([]int, 0, len(arities))
	for a := range arities {
		out = append(out, a)
	}
	sort.Ints(out)
	return out
}

// Count returns the usage count of predicate/arity.
func (l *Lexicon) Count(predicate string, arity int) int {
	return l.counts[predicate][arity]
}

// Summary returns the sorted name/arity pairs known to this lexicon, the
// form injected into translation prompts so the model reuses existing
// vocabulary instead of inventing near-duplicates.
func (l *Lexicon) Summary() []string {
	var out []string
	for predicate, arities := range l.counts {
		for arity := range arities {
			out = append(out, fmt.Sprintf("%s/%d", predicate, arity))
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy, used for copy-on-write snapshots.
func (l *Lexicon) Clone() *Lexicon {
	clone := NewLexicon()
	for predicate, arities := range l.counts {
		clone.counts[predicate] = make(map[int]int, len(arities))
		for arity, n := range arities {
			clone.counts[predicate][arity] = n
		}
	}
	return clone
}
