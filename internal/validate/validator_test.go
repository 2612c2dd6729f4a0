package validate

import (
	"testing"

	"mcr/internal/types"
)

func TestCheckStatementFact(t *testing.T) {
	v := New()

	st := &types.Statement{
		StatementType: "fact",
		Fact: &types.FactShape{
			Predicate: "father",
			Arguments: []types.Argument{types.Arg("john"), types.Arg("mary")},
		},
	}
	if res := v.CheckStatement(st); !res.Valid {
		t.Fatalf("CheckStatement(valid fact) = %+v, want valid", res)
	}
}

func TestCheckStatementCasing(t *testing.T) {
	v := New()

	tests := []struct {
		name string
		arg  string
		kind types.ErrorKind
	}{
		{"constant with uppercase tail", "johnSmith", types.KindCasing},
		{"bad variable", "X-ray", types.KindCasing},
		{"empty", "", types.KindSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &types.Statement{
				StatementType: "fact",
				Fact: &types.FactShape{
					Predicate: "p",
					Arguments: []types.Argument{types.Arg(tt.arg)},
				},
			}
			res := v.CheckStatement(st)
			if res.Valid {
				t.Fatalf("CheckStatement(arg %q) valid, want failure", tt.arg)
			}
			if res.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", res.Kind, tt.kind)
			}
		})
	}

	// Variables, numbers and snake_case constants pass.
	for _, good := range []string{"X", "Who", "_", "john_smith", "42", "-3.5"} {
		st := &types.Statement{
			StatementType: "fact",
			Fact: &types.FactShape{
				Predicate: "p",
				Arguments: []types.Argument{types.Arg(good)},
			},
		}
		if res := v.CheckStatement(st); !res.Valid {
			t.Errorf("CheckStatement(arg %q) = %+v, want valid", good, res)
		}
	}
}

func TestCheckStatementErrorFieldIsAuthoritative(t *testing.T) {
	v := New()

	// Even with a fully-formed fact present, an error field means failure.
	st := &types.Statement{
		StatementType: "fact",
		Error:         "input is a question, not a statement",
		Fact: &types.FactShape{
			Predicate: "father",
			Arguments: []types.Argument{types.Arg("john"), types.Arg("mary")},
		},
	}
	if res := v.CheckStatement(st); res.Valid {
		t.Fatal("CheckStatement with error field = valid, want failure")
	}
}

func TestCheckStatementRule(t *testing.T) {
	v := New()

	st := &types.Statement{
		StatementType: "rule",
		Rule: &types.RuleShape{
			Head: types.FactShape{
				Predicate: "parent",
				Arguments: []types.Argument{types.Arg("X"), types.Arg("Y")},
			},
			Body: []types.FactShape{{
				Predicate: "father",
				Arguments: []types.Argument{types.Arg("X"), types.Arg("Y")},
			}},
		},
	}
	if res := v.CheckStatement(st); !res.Valid {
		t.Fatalf("CheckStatement(valid rule) = %+v, want valid", res)
	}

	st.Rule.Body = nil
	if res := v.CheckStatement(st); res.Valid {
		t.Fatal("CheckStatement(rule with empty body) = valid, want failure")
	}
}

func TestCheckStatementMissingVariants(t *testing.T) {
	v := New()

	for _, st := range []*types.Statement{
		nil,
		{},
		{StatementType: "fact"},
		{StatementType: "rule"},
		{StatementType: "opinion"},
	} {
		if res := v.CheckStatement(st); res.Valid {
			t.Errorf("CheckStatement(%+v) = valid, want failure", st)
		}
	}
}

func TestCheckClauseLexiconDrift(t *testing.T) {
	v := New()
	lex := types.NewLexicon()
	lex.Observe("father", 2)

	// Same arity: clean pass.
	if _, res := v.CheckClause("father(bob, alice).", lex); !res.Valid || res.Warning {
		t.Fatalf("CheckClause(same arity) = %+v, want clean pass", res)
	}

	// Different arity: warning-level, still valid (overloads are legal).
	_, res := v.CheckClause("father(bob).", lex)
	if !res.Valid {
		t.Fatalf("CheckClause(arity drift) = %+v, want valid with warning", res)
	}
	if !res.Warning || res.Kind != types.KindArityDrift {
		t.Errorf("CheckClause(arity drift) = %+v, want arity_drift warning", res)
	}

	// Unknown predicate: clean pass.
	if _, res := v.CheckClause("mother(ann, bob).", lex); !res.Valid || res.Warning {
		t.Fatalf("CheckClause(new predicate) = %+v, want clean pass", res)
	}
}

func TestCheckClauseSyntaxFirst(t *testing.T) {
	v := New()
	_, res := v.CheckClause("father(john", types.NewLexicon())
	if res.Valid {
		t.Fatal("CheckClause(malformed) = valid, want failure")
	}
	if res.Kind != types.KindSyntax {
		t.Errorf("kind = %s, want %s", res.Kind, types.KindSyntax)
	}
}
