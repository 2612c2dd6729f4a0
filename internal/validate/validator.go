// Package validate rejects candidate translations before they can touch a
// knowledge base. Checks run in a fixed order: syntactic well-formedness,
// SIR schema conformance, lexicon consistency. The first failing check wins;
// conflicting failures are never reconciled.
package validate

import (
	"fmt"
	"strings"
	"unicode"

	"mcr/internal/types"
)

// Validator applies the pre-engine checks. Stateless; a single instance is
// shared across sessions.
type Validator struct{}

// New returns a Validator.
func New() *Validator { return &Validator{} }

// CheckClause validates candidate clause text against syntax rules and the
// session lexicon. On success the parsed clause is returned alongside the
// result; an arity conflict with previously fixed usage passes with a
// warning, since legitimate overloading exists.
func (v *Validator) CheckClause(text string, lex *types.Lexicon) (types.Clause, types.ValidationResult) {
	clause, err := ParseClause(text)
	if err != nil {
		return types.Clause{}, types.Fail(types.KindSyntax, "%v", err)
	}
	return clause, v.checkLexicon(clause, lex)
}

// CheckQuery validates a translated query string: exactly one clause-shaped
// goal ending with a period.
func (v *Validator) CheckQuery(text string) (string, types.ValidationResult) {
	normalized, err := ParseQuery(text)
	if err != nil {
		return "", types.Fail(types.KindSyntax, "%v", err)
	}
	return normalized, types.OK()
}

// CheckStatement validates a SIR statement for schema conformance: required
// fields for the declared statementType, and argument casing rules
// (constants lowercase_snake_case, variables Uppercase).
func (v *Validator) CheckStatement(st *types.Statement) types.ValidationResult {
	if st == nil {
		return types.Fail(types.KindSchema, "no statement present")
	}
	if st.Error != "" {
		// An error field is authoritative failure even when fact or rule
		// data is co-present.
		return types.Fail(types.KindSchema, "model reported: %s", st.Error)
	}

	switch st.StatementType {
	case "fact":
		if st.Fact == nil {
			return types.Fail(types.KindSchema, "statementType is fact but no fact object present")
		}
		return v.checkFactShape(st.Fact, "fact")
	case "rule":
		if st.Rule == nil {
			return types.Fail(types.KindSchema, "statementType is rule but no rule object present")
		}
		if r := v.checkFactShape(&st.Rule.Head, "rule head"); !r.Valid {
			return r
		}
		if len(st.Rule.Body) == 0 {
			return types.Fail(types.KindSchema, "rule has an empty body")
		}
		for i := range st.Rule.Body {
			if r := v.checkFactShape(&st.Rule.Body[i], fmt.Sprintf("rule body goal %d", i+1)); !r.Valid {
				return r
			}
		}
		return types.OK()
	case "":
		return types.Fail(types.KindSchema, "missing statementType")
	default:
		return types.Fail(types.KindSchema, "unknown statementType %q", st.StatementType)
	}
}

func (v *Validator) checkFactShape(f *types.FactShape, where string) types.ValidationResult {
	if !isPredicateName(f.Predicate) {
		return types.Fail(types.KindSchema, "%s: invalid predicate name %q: must match [a-z][a-zA-Z0-9_]*", where, f.Predicate)
	}
	for i, arg := range f.Arguments {
		if arg.IsList {
			if len(arg.List) == 0 {
				return types.Fail(types.KindSchema, "%s: argument %d is an empty list", where, i+1)
			}
			for _, item := range arg.List {
				if r := checkTermCasing(item, where, i+1); !r.Valid {
					return r
				}
			}
			continue
		}
		if r := checkTermCasing(arg.Value, where, i+1); !r.Valid {
			return r
		}
	}
	return types.OK()
}

// checkTermCasing enforces the casing invariant on one term: anything
// starting with an uppercase letter or underscore is a variable and must be
// a well-formed variable name; anything else must be a lowercase_snake_case
// constant or a number.
func checkTermCasing(term, where string, pos int) types.ValidationResult {
	if term == "" {
		return types.Fail(types.KindSchema, "%s: argument %d is empty", where, pos)
	}

	first := []rune(term)[0]
	if unicode.IsUpper(first) || first == '_' {
		if !isVariableName(term) {
			return types.Fail(types.KindCasing, "%s: argument %d: %q is not a valid variable (expected Uppercase identifier)", where, pos, term)
		}
		return types.OK()
	}
	if isNumber(term) {
		return types.OK()
	}
	if !isConstantName(term) {
		return types.Fail(types.KindCasing, "%s: argument %d: %q is not a valid constant (expected lowercase_snake_case)", where, pos, term)
	}
	return types.OK()
}

// checkLexicon flags arity drift: a predicate that was previously fixed at a
// different arity yields a warning-level inconsistency, not a hard failure.
func (v *Validator) checkLexicon(clause types.Clause, lex *types.Lexicon) types.ValidationResult {
	if lex == nil {
		return types.OK()
	}
	known := lex.Arities(clause.Predicate)
	if len(known) == 0 {
		return types.OK()
	}
	for _, arity := range known {
		if arity == clause.Arity {
			return types.OK()
		}
	}
	return types.Warn(types.KindArityDrift,
		"predicate %s used with arity %d but previously seen with arity %v (overload recorded)",
		clause.Predicate, clause.Arity, known)
}

func isVariableName(s string) bool {
	for i, r := range s {
		if i == 0 {
			if !unicode.IsUpper(r) && r != '_' {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return s != ""
}

func isConstantName(s string) bool {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}
	return true
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	dot := false
	for i, r := range s {
		if r == '-' && i == 0 && len(s) > 1 {
			continue
		}
		if r == '.' {
			if dot || i == 0 || i == len(s)-1 {
				return false
			}
			dot = true
			continue
		}
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Summary renders a lexicon for prompt injection, one name/arity per line.
func Summary(lex *types.Lexicon) string {
	if lex == nil {
		return ""
	}
	return strings.Join(lex.Summary(), "\n")
}
