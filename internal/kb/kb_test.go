package kb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"mcr/internal/engine"
	"mcr/internal/types"
	"mcr/internal/validate"
)

func newKB(t *testing.T) *KnowledgeBase {
	t.Helper()
	return New(engine.DefaultConfig(), nil)
}

func mustClause(t *testing.T, text string) types.Clause {
	t.Helper()
	clause, err := validate.ParseClause(text)
	if err != nil {
		t.Fatalf("ParseClause(%q) error = %v", text, err)
	}
	return clause
}

func TestAssertThenRetractRestoresCount(t *testing.T) {
	k := newKB(t)
	if err := k.Consult("father(john, mary)."); err != nil {
		t.Fatalf("Consult() error = %v", err)
	}
	before := k.ClauseCount()

	count, err := k.Assert(context.Background(), mustClause(t, "father(bob, alice)."))
	if err != nil {
		t.Fatalf("Assert() error = %v", err)
	}
	if count != before+1 {
		t.Fatalf("Assert() count = %d, want %d", count, before+1)
	}

	removed, err := k.Retract("father(bob, alice)")
	if err != nil {
		t.Fatalf("Retract() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("Retract() removed = %d, want 1", removed)
	}
	if got := k.ClauseCount(); got != before {
		t.Errorf("ClauseCount() = %d, want %d", got, before)
	}
}

func TestRetractNoMatchLeavesTextByteIdentical(t *testing.T) {
	k := newKB(t)
	if err := k.Consult("father(john, mary).\nmother(ann, mary)."); err != nil {
		t.Fatalf("Consult() error = %v", err)
	}
	before := k.Text()

	removed, err := k.Retract("father(bob, alice)")
	if err != nil {
		t.Fatalf("Retract() error = %v", err)
	}
	if removed != 0 {
		t.Fatalf("Retract() removed = %d, want 0", removed)
	}
	if after := k.Text(); after != before {
		t.Errorf("Text() changed on no-match retract:\nbefore: %q\nafter:  %q", before, after)
	}
}

func TestRetractRemovesFirstMatchOnly(t *testing.T) {
	k := newKB(t)
	if err := k.Consult("n(one).\nn(two).\nn(one)."); err != nil {
		t.Fatalf("Consult() error = %v", err)
	}

	removed, err := k.Retract("n(one).")
	if err != nil {
		t.Fatalf("Retract() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("Retract() removed = %d, want 1", removed)
	}
	if got, want := k.Text(), "n(two).\nn(one)."; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestQueryDerivedRule(t *testing.T) {
	k := newKB(t)
	if err := k.Consult("father(john, mary).\nparent(X, Y) :- father(X, Y)."); err != nil {
		t.Fatalf("Consult() error = %v", err)
	}

	result, err := k.Query(context.Background(), "parent(john, Y).")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(result.Bindings) != 1 {
		t.Fatalf("Query() bindings = %v, want one solution", result.Bindings)
	}
	if got := result.Bindings[0]["Y"]; got != "mary" {
		t.Errorf("Y = %q, want %q", got, "mary")
	}
}

func TestQueryEmptyKnowledgeBase(t *testing.T) {
	k := newKB(t)

	result, err := k.Query(context.Background(), "parent(john, Y).")
	if err != nil {
		t.Fatalf("Query() error = %v, want empty result", err)
	}
	if len(result.Bindings) != 0 {
		t.Errorf("Query() bindings = %v, want none", result.Bindings)
	}
}

func TestAssertEngineRejectionRollsBack(t *testing.T) {
	k := newKB(t)
	if err := k.Consult("father(john, mary)."); err != nil {
		t.Fatalf("Consult() error = %v", err)
	}
	before := k.Text()

	// Validated upstream in production, malformed here on purpose: the
	// engine is the last line of defense and the append must roll back.
	_, err := k.Assert(context.Background(), types.Clause{Text: "broken(clause"})
	if err == nil {
		t.Fatal("Assert(malformed) = nil error, want EngineError")
	}
	var ee *types.EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("error type = %T, want *types.EngineError", err)
	}
	if after := k.Text(); after != before {
		t.Errorf("Text() changed after rolled-back assert:\nbefore: %q\nafter:  %q", before, after)
	}
}

func TestAssertAllRejectionCommitsNothing(t *testing.T) {
	k := newKB(t)
	if err := k.Consult("father(john, mary)."); err != nil {
		t.Fatalf("Consult() error = %v", err)
	}
	before := k.Text()

	// The first clause is fine on its own; the malformed second one must
	// take the whole batch down with it.
	_, err := k.AssertAll(context.Background(), []types.Clause{
		mustClause(t, "mother(ann, mary)."),
		{Text: "broken(clause"},
	})
	if err == nil {
		t.Fatal("AssertAll(partially malformed) = nil error, want EngineError")
	}
	var ee *types.EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("error type = %T, want *types.EngineError", err)
	}
	if after := k.Text(); after != before {
		t.Errorf("Text() changed after rejected batch:\nbefore: %q\nafter:  %q", before, after)
	}
	if got := k.Lexicon().Count("mother", 2); got != 0 {
		t.Errorf("lexicon count mother/2 = %d, want 0 after rollback", got)
	}

	count, err := k.AssertAll(context.Background(), []types.Clause{
		mustClause(t, "mother(ann, mary)."),
		mustClause(t, "parent(X, Y) :- mother(X, Y)."),
	})
	if err != nil {
		t.Fatalf("AssertAll(valid batch) error = %v", err)
	}
	if count != 3 {
		t.Errorf("AssertAll() count = %d, want 3", count)
	}
}

func TestConsultPopulatesLexicon(t *testing.T) {
	k := newKB(t)
	if err := k.Consult("father(john, mary).\nfather(bob, alice).\nparent(X, Y) :- father(X, Y)."); err != nil {
		t.Fatalf("Consult() error = %v", err)
	}

	lex := k.Lexicon()
	if got := lex.Count("father", 2); got != 2 {
		t.Errorf("lexicon count father/2 = %d, want 2", got)
	}
	want := []string{"father/2", "parent/2"}
	if diff := cmp.Diff(want, lex.Summary()); diff != "" {
		t.Errorf("Summary() mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceValidatesBeforeCommit(t *testing.T) {
	k := newKB(t)
	if err := k.Consult("father(john, mary)."); err != nil {
		t.Fatalf("Consult() error = %v", err)
	}
	before := k.Text()

	if err := k.Replace("broken(clause"); err == nil {
		t.Fatal("Replace(malformed) = nil error, want EngineError")
	}
	if after := k.Text(); after != before {
		t.Errorf("Text() changed after rejected replace")
	}

	if err := k.Replace("mother(ann, mary)."); err != nil {
		t.Fatalf("Replace(valid) error = %v", err)
	}
	if got := k.ClauseCount(); got != 1 {
		t.Errorf("ClauseCount() = %d, want 1", got)
	}
}

// TestConcurrentAssertAndQueryConsistency checks that a query never observes
// a knowledge base mid-rebuild: every result must be consistent with either
// the pre- or post-assert clause text, never a mix.
func TestConcurrentAssertAndQueryConsistency(t *testing.T) {
	defer goleak.VerifyNone(t)

	k := newKB(t)
	if err := k.Consult("counts(base)."); err != nil {
		t.Fatalf("Consult() error = %v", err)
	}

	const writers = 4
	const factsPerWriter = 5

	var g errgroup.Group
	for w := 0; w < writers; w++ {
		g.Go(func() error {
			for i := 0; i < factsPerWriter; i++ {
				text := fmt.Sprintf("fact_w%d(item%d).", w, i)
				clause, err := validate.ParseClause(text)
				if err != nil {
					return err
				}
				if _, err := k.Assert(context.Background(), clause); err != nil {
					return err
				}
			}
			return nil
		})
	}
	for r := 0; r < 4; r++ {
		g.Go(func() error {
			for i := 0; i < 20; i++ {
				// The base fact predates all writers, so it must hold in
				// every consistent snapshot.
				result, err := k.Query(context.Background(), "counts(base).")
				if err != nil {
					return err
				}
				if len(result.Bindings) != 1 {
					return fmt.Errorf("query observed inconsistent state: %v", result.Bindings)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got, want := k.ClauseCount(), 1+writers*factsPerWriter; got != want {
		t.Errorf("ClauseCount() = %d, want %d", got, want)
	}
}
