package translate

import (
	"fmt"
	"strings"

	"mcr/internal/types"
	"mcr/internal/validate"
)

// Clause compiler: deterministic rendering of a SIR statement into clause
// text. Pure, no I/O. The casing and arity invariants are enforced here,
// before the text can ever reach the engine, so schema problems surface as
// structured validation failures instead of opaque engine parse errors.

// Compile renders a SIR statement to a single clause.
func Compile(st *types.Statement) (types.Clause, error) {
	if res := validate.New().CheckStatement(st); !res.Valid {
		return types.Clause{}, types.FromResult(res)
	}

	var text string
	switch st.StatementType {
	case "fact":
		text = renderFactHead(st.Fact) + "."
	case "rule":
		goals := make([]string, len(st.Rule.Body))
		for i := range st.Rule.Body {
			goals[i] = renderGoal(&st.Rule.Body[i])
		}
		text = fmt.Sprintf("%s :- %s.", renderFactHead(&st.Rule.Head), strings.Join(goals, ", "))
	}

	clause, err := validate.ParseClause(text)
	if err != nil {
		// CheckStatement passed, so this indicates a rendering bug.
		return types.Clause{}, fmt.Errorf("compiled clause %q failed to parse: %w", text, err)
	}
	return clause, nil
}

// renderFactHead renders a fact in head position. Negative facts are wrapped
// in an explicit neg(...) marker; negation is never encoded by omission.
func renderFactHead(f *types.FactShape) string {
	atom := renderAtom(f)
	if f.IsNegative {
		return fmt.Sprintf("neg(%s)", atom)
	}
	return atom
}

// renderGoal renders a fact in body position, where negation is the
// engine-level negation-as-failure goal.
func renderGoal(f *types.FactShape) string {
	atom := renderAtom(f)
	if f.IsNegative {
		return fmt.Sprintf("\\+ %s", atom)
	}
	return atom
}

func renderAtom(f *types.FactShape) string {
	if len(f.Arguments) == 0 {
		return f.Predicate
	}
	terms := make([]string, len(f.Arguments))
	for i, arg := range f.Arguments {
		terms[i] = renderTerm(arg)
	}
	return fmt.Sprintf("%s(%s)", f.Predicate, strings.Join(terms, ", "))
}

func renderTerm(arg types.Argument) string {
	if arg.IsList {
		return "[" + strings.Join(arg.List, ", ") + "]"
	}
	return arg.Value
}
