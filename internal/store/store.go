// Package store persists sessions and successful translations in SQLite.
// Sessions are hydrated at manager start; translation examples feed the
// refinement loop's critique prompts through a read-mostly in-memory cache.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"mcr/internal/types"
)

// SessionRecord is one persisted session row.
type SessionRecord struct {
	ID         string
	KBText     string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Store wraps the SQLite database. Writers go through database/sql; the
// example cache is swapped copy-on-write so Similar never takes the write
// path's locks.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger

	examples atomic.Pointer[[]types.TranslationExample]
}

// Open opens (or creates) the database at path and loads the example cache.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	s := &Store{db: db, path: path, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.reloadExamples(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id          TEXT PRIMARY KEY,
		kb_text     TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL,
		modified_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS translation_examples (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		input      TEXT NOT NULL,
		output     TEXT NOT NULL,
		strategy   TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// SaveSession upserts one session's text of record.
func (s *Store) SaveSession(ctx context.Context, rec SessionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, kb_text, created_at, modified_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kb_text = excluded.kb_text,
			modified_at = excluded.modified_at`,
		rec.ID, rec.KBText, rec.CreatedAt, rec.ModifiedAt)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", rec.ID, err)
	}
	return nil
}

// LoadSessions returns all persisted sessions.
func (s *Store) LoadSessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kb_text, created_at, modified_at FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.ID, &rec.KBText, &rec.CreatedAt, &rec.ModifiedAt); err != nil {
			s.logger.Warn("skipping unreadable session row", zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteSession removes one session row.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// AddExample records a successful translation and refreshes the cache.
func (s *Store) AddExample(ctx context.Context, ex types.TranslationExample) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO translation_examples (input, output, strategy, created_at)
		VALUES (?, ?, ?, ?)`,
		ex.Input, ex.Output, ex.Strategy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record translation example: %w", err)
	}
	return s.reloadExamples(ctx)
}

// reloadExamples rebuilds the cache snapshot from the database and swaps it
// in atomically.
func (s *Store) reloadExamples(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT input, output, strategy FROM translation_examples ORDER BY id DESC LIMIT 500`)
	if err != nil {
		return fmt.Errorf("failed to load translation examples: %w", err)
	}
	defer rows.Close()

	var examples []types.TranslationExample
	for rows.Next() {
		var ex types.TranslationExample
		if err := rows.Scan(&ex.Input, &ex.Output, &ex.Strategy); err != nil {
			s.logger.Warn("skipping unreadable example row", zap.Error(err))
			continue
		}
		examples = append(examples, ex)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.examples.Store(&examples)
	return nil
}

// Similar returns up to n prior successful translations ranked by token
// overlap with the input. Reads only the immutable cache snapshot, so it is
// safe under any number of concurrent sessions.
func (s *Store) Similar(input string, n int) []types.TranslationExample {
	snapshot := s.examples.Load()
	if snapshot == nil || len(*snapshot) == 0 || n <= 0 {
		return nil
	}

	inputTokens := tokenSet(input)
	type scored struct {
		ex    types.TranslationExample
		score float64
	}

	var candidates []scored
	for _, ex := range *snapshot {
		score := overlap(inputTokens, tokenSet(ex.Input))
		if score > 0 {
			candidates = append(candidates, scored{ex: ex, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]types.TranslationExample, len(candidates))
	for i, c := range candidates {
		out[i] = c.ex
	}
	return out
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func tokenSet(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?\"'")
		if len(tok) > 2 {
			tokens[tok] = true
		}
	}
	return tokens
}

func overlap(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for tok := range a {
		if b[tok] {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}
