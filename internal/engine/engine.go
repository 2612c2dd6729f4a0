// Package engine wraps the ichiban/prolog interpreter behind the small
// consult/query surface the knowledge base needs. The interpreter is treated
// as a black box: clause text goes in via Consult, solutions come out via
// Query. Engines are cheap to construct; the knowledge base rebuilds one
// from its text of record instead of mutating a live interpreter.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ichiban/prolog"
	"go.uber.org/zap"

	"mcr/internal/types"
)

// Config holds inference engine settings.
type Config struct {
	// QueryTimeout bounds a single query when the caller's context carries
	// no deadline of its own.
	QueryTimeout time.Duration

	// SolutionLimit caps the number of solutions collected per query so a
	// runaway generator cannot exhaust memory.
	SolutionLimit int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		QueryTimeout:  5 * time.Second,
		SolutionLimit: 256,
	}
}

// Engine is a single consulted Prolog interpreter. All access is serialized
// on the internal mutex; the owning knowledge base additionally serializes
// assert/retract/query per session.
type Engine struct {
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	interp *prolog.Interpreter
}

// New creates an empty engine.
func New(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	interp := prolog.New(nil, nil)
	// Unknown predicates fail instead of raising existence errors, so a
	// query against an empty knowledge base reports "no solutions" rather
	// than an engine error.
	if err := interp.Exec(":- set_prolog_flag(unknown, fail)."); err != nil {
		logger.Warn("failed to set unknown-predicate flag", zap.Error(err))
	}
	return &Engine{
		cfg:    cfg,
		logger: logger,
		interp: interp,
	}
}

// FromText creates an engine and consults the given clause text into it.
// This is the rebuild path used after every retract.
func FromText(cfg Config, logger *zap.Logger, text string) (*Engine, error) {
	e := New(cfg, logger)
	if err := e.Consult(text); err != nil {
		return nil, err
	}
	return e, nil
}

// Consult loads clause text into the interpreter. A rejection is reported as
// an EngineError carrying the interpreter's parse message.
func (e *Engine) Consult(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.interp.Exec(trimmed); err != nil {
		return &types.EngineError{Op: "consult", Message: "interpreter rejected clause text", Err: err}
	}
	return nil
}

// Query runs a single clause-shaped query and collects its solutions.
// An empty binding slice means the query succeeded with no solutions; a
// malformed query returns an EngineError instead. The evaluation runs in a
// goroutine raced against the context so a diverging query cannot block the
// session forever.
func (e *Engine) Query(ctx context.Context, query string) (*types.QueryResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, &types.EngineError{Op: "query", Message: "empty query"}
	}
	if !strings.HasSuffix(q, ".") {
		q += "."
	}

	if _, ok := ctx.Deadline(); !ok {
		timeout := e.cfg.QueryTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resultChan := make(chan []map[string]string, 1)
	errChan := make(chan error, 1)

	go func() {
		bindings, err := e.collect(ctx, q)
		if err != nil {
			errChan <- err
			return
		}
		resultChan <- bindings
	}()

	select {
	case bindings := <-resultChan:
		return &types.QueryResult{Bindings: bindings, Duration: time.Since(start)}, nil
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, &types.EngineError{
			Op:      "query",
			Message: fmt.Sprintf("timed out after %v", time.Since(start).Round(time.Millisecond)),
			Err:     ctx.Err(),
		}
	}
}

// collect iterates the solution set under the engine mutex.
func (e *Engine) collect(ctx context.Context, q string) ([]map[string]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// QueryContext propagates cancellation into the interpreter, so a
	// diverging goal aborts at the deadline instead of spinning forever
	// while holding the mutex.
	sols, err := e.interp.QueryContext(ctx, q)
	if err != nil {
		return nil, &types.EngineError{Op: "query", Message: fmt.Sprintf("malformed query %q", q), Err: err}
	}
	defer sols.Close()

	bindings := []map[string]string{}
	for sols.Next() {
		select {
		case <-ctx.Done():
			return nil, &types.EngineError{Op: "query", Message: "cancelled mid-iteration", Err: ctx.Err()}
		default:
		}

		row := map[string]prolog.TermString{}
		if err := sols.Scan(row); err != nil {
			return nil, &types.EngineError{Op: "query", Message: "failed to scan solution", Err: err}
		}

		converted := make(map[string]string, len(row))
		for name, term := range row {
			converted[name] = string(term)
		}
		bindings = append(bindings, converted)

		if e.cfg.SolutionLimit > 0 && len(bindings) >= e.cfg.SolutionLimit {
			e.logger.Warn("solution limit reached, truncating result set",
				zap.Int("limit", e.cfg.SolutionLimit))
			break
		}
	}
	if err := sols.Err(); err != nil {
		return nil, &types.EngineError{Op: "query", Message: "solution iteration failed", Err: err}
	}
	return bindings, nil
}
