// Package kb owns the authoritative clause text for one session. The text
// of record is the ordered clause list; the live inference engine is always
// derived from that text, never mutated incrementally. Rebuilding from text
// on every mutation is a deliberate correctness-over-efficiency tradeoff:
// knowledge bases are session-scoped and small, and a fresh engine per
// mutation guarantees the text and the engine can never diverge.
package kb

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"mcr/internal/engine"
	"mcr/internal/types"
	"mcr/internal/validate"
)

// KnowledgeBase is the exclusively-owned mutable state of one session. The
// mutex serializes assert, retract and query so a query can never observe a
// knowledge base mid-rebuild.
type KnowledgeBase struct {
	cfg    engine.Config
	logger *zap.Logger

	mu      sync.Mutex
	clauses []types.Clause
	lexicon *types.Lexicon
	engine  *engine.Engine
}

// New creates an empty knowledge base.
func New(cfg engine.Config, logger *zap.Logger) *KnowledgeBase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeBase{
		cfg:     cfg,
		logger:  logger,
		lexicon: types.NewLexicon(),
		engine:  engine.New(cfg, logger),
	}
}

// Consult loads initial clause text. This is the only operation allowed to
// populate a fresh knowledge base from arbitrary unvalidated text (trusted
// startup data such as a base ontology); the engine is the sole judge of
// its validity.
func (k *KnowledgeBase) Consult(text string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	combined := joinText(k.textLocked(), text)
	rebuilt, err := engine.FromText(k.cfg, k.logger, combined)
	if err != nil {
		return err
	}

	for _, line := range splitClauseLines(text) {
		clause, parseErr := validate.ParseClause(line)
		if parseErr != nil {
			// The engine accepted the text, so the line is valid Prolog the
			// tokenizer does not model (operators, directives). Keep it in
			// the text of record without lexicon tracking.
			clause = types.Clause{Text: line}
		} else {
			k.lexicon.Observe(clause.Predicate, clause.Arity)
		}
		k.clauses = append(k.clauses, clause)
	}

	k.engine = rebuilt
	return nil
}

// Assert appends one already-validated clause and re-consults the full text
// into a fresh engine. If the engine rejects the text the append is rolled
// back and the text of record is unchanged. Returns the updated clause
// count.
func (k *KnowledgeBase) Assert(ctx context.Context, clause types.Clause) (int, error) {
	return k.AssertAll(ctx, []types.Clause{clause})
}

// AssertAll appends a batch of already-validated clauses as one unit: the
// combined text is consulted into a fresh engine once, and an engine
// rejection commits nothing from the batch. A caller translating one input
// into several clauses must never end up with a partially applied statement.
// Returns the updated clause count.
func (k *KnowledgeBase) AssertAll(ctx context.Context, clauses []types.Clause) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if len(clauses) == 0 {
		return len(k.clauses), nil
	}

	candidate := k.textLocked()
	for _, clause := range clauses {
		candidate = joinText(candidate, clause.Text)
	}
	rebuilt, err := engine.FromText(k.cfg, k.logger, candidate)
	if err != nil {
		k.logger.Warn("assert rejected by engine, rolling back batch",
			zap.Int("batch_size", len(clauses)),
			zap.Error(err))
		return len(k.clauses), err
	}

	for _, clause := range clauses {
		k.clauses = append(k.clauses, clause)
		if clause.Predicate != "" {
			k.lexicon.Observe(clause.Predicate, clause.Arity)
		}
	}
	k.engine = rebuilt

	k.logger.Debug("clauses asserted",
		zap.Int("batch_size", len(clauses)),
		zap.Int("clause_count", len(k.clauses)))
	return len(k.clauses), nil
}

// Retract removes the first stored clause whose text matches pattern
// followed immediately by its terminating period, then re-derives a fresh
// engine from the rebuilt text. Returns the number of clauses removed, 0 or
// 1; on no match the text of record is untouched.
func (k *KnowledgeBase) Retract(pattern string) (int, error) {
	target := strings.TrimSpace(pattern)
	if !strings.HasSuffix(target, ".") {
		target += "."
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	idx := -1
	for i, clause := range k.clauses {
		if clause.Text == target {
			idx = i
			break
		}
	}
	if idx == -1 {
		return 0, nil
	}

	removed := k.clauses[idx]
	remaining := make([]types.Clause, 0, len(k.clauses)-1)
	remaining = append(remaining, k.clauses[:idx]...)
	remaining = append(remaining, k.clauses[idx+1:]...)

	rebuilt, err := engine.FromText(k.cfg, k.logger, joinClauses(remaining))
	if err != nil {
		return 0, err
	}

	k.clauses = remaining
	if removed.Predicate != "" {
		k.lexicon.Forget(removed.Predicate, removed.Arity)
	}
	k.engine = rebuilt

	k.logger.Debug("clause retracted",
		zap.String("clause", removed.Text),
		zap.Int("clause_count", len(k.clauses)))
	return 1, nil
}

// Query runs a query against the live engine. An empty binding sequence
// means no solutions; a malformed query is an EngineError. Callers must
// never conflate the two.
func (k *KnowledgeBase) Query(ctx context.Context, query string) (*types.QueryResult, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.engine.Query(ctx, query)
}

// Replace swaps the entire text of record wholesale after validating it
// against a scratch engine. Used by the session-level update operation.
func (k *KnowledgeBase) Replace(text string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	rebuilt, err := engine.FromText(k.cfg, k.logger, text)
	if err != nil {
		return err
	}

	k.clauses = nil
	k.lexicon = types.NewLexicon()
	for _, line := range splitClauseLines(text) {
		clause, parseErr := validate.ParseClause(line)
		if parseErr != nil {
			clause = types.Clause{Text: line}
		} else {
			k.lexicon.Observe(clause.Predicate, clause.Arity)
		}
		k.clauses = append(k.clauses, clause)
	}
	k.engine = rebuilt
	return nil
}

// Text returns the authoritative clause text, one clause per line.
func (k *KnowledgeBase) Text() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.textLocked()
}

// ClauseCount returns the number of stored clauses.
func (k *KnowledgeBase) ClauseCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.clauses)
}

// Lexicon returns a snapshot copy of the session lexicon, safe to read
// while other operations proceed.
func (k *KnowledgeBase) Lexicon() *types.Lexicon {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.lexicon.Clone()
}

func (k *KnowledgeBase) textLocked() string {
	return joinClauses(k.clauses)
}

func joinClauses(clauses []types.Clause) string {
	lines := make([]string, len(clauses))
	for i, clause := range clauses {
		lines[i] = clause.Text
	}
	return strings.Join(lines, "\n")
}

func joinText(existing, extra string) string {
	existing = strings.TrimSpace(existing)
	extra = strings.TrimSpace(extra)
	switch {
	case existing == "":
		return extra
	case extra == "":
		return existing
	default:
		return existing + "\n" + extra
	}
}

// splitClauseLines splits trusted consult text into clause lines, dropping
// blanks and %-comments.
func splitClauseLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
