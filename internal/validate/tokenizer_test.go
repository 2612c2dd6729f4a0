package validate

import (
	"testing"
)

func TestParseClauseFacts(t *testing.T) {
	tests := []struct {
		text      string
		predicate string
		arity     int
		isRule    bool
	}{
		{"father(john, mary).", "father", 2, false},
		{"human(socrates).", "human", 1, false},
		{"raining.", "raining", 0, false},
		{"likes(mary, [apples, pears]).", "likes", 2, false},
		{"neg(flies(penguin)).", "flies", 1, false},
		{"parent(X, Y) :- father(X, Y).", "parent", 2, true},
		{"grandparent(X, Z) :- parent(X, Y), parent(Y, Z).", "grandparent", 2, true},
		{"temperature(room, 21.5).", "temperature", 2, false},
	}

	for _, tt := range tests {
		clause, err := ParseClause(tt.text)
		if err != nil {
			t.Fatalf("ParseClause(%q) error = %v", tt.text, err)
		}
		if clause.Predicate != tt.predicate {
			t.Errorf("ParseClause(%q) predicate = %q, want %q", tt.text, clause.Predicate, tt.predicate)
		}
		if clause.Arity != tt.arity {
			t.Errorf("ParseClause(%q) arity = %d, want %d", tt.text, clause.Arity, tt.arity)
		}
		if clause.IsRule != tt.isRule {
			t.Errorf("ParseClause(%q) isRule = %v, want %v", tt.text, clause.IsRule, tt.isRule)
		}
	}
}

func TestParseClauseRejectsMalformed(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"father(john, mary)",          // no period
		"father(john, mary.",          // unbalanced
		"father john, mary).",         // unbalanced
		"father(john,).",              // empty argument
		"father().",                   // empty argument list
		"Father(john, mary).",         // uppercase predicate
		"a. b.",                       // interior period
		"parent(X, Y) :- .",           // empty rule body
		":- father(X, Y).",            // empty rule head
		"father('unterminated, maryial.", // unterminated quote is rejected
	}

	for _, text := range tests {
		if _, err := ParseClause(text); err == nil {
			t.Errorf("ParseClause(%q) = nil error, want failure", text)
		}
	}
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"parent(john, Y).", "parent(john, Y)."},
		{"parent(john, Y)", "parent(john, Y)."},
		{"?- parent(john, Y).", "parent(john, Y)."},
		{"  grandparent(X, george).  ", "grandparent(X, george)."},
	}
	for _, tt := range tests {
		got, err := ParseQuery(tt.in)
		if err != nil {
			t.Fatalf("ParseQuery(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	bad := []string{
		"",
		".",
		"Parent(X).",
		"foo(X). bar(Y).",
		"father(X), mother(X).", // conjunction is not one clause-shaped goal
		"father(X), raining.",
	}
	for _, text := range bad {
		if _, err := ParseQuery(text); err == nil {
			t.Errorf("ParseQuery(%q) = nil error, want failure", text)
		}
	}
}
