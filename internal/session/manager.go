// Package session owns the per-session knowledge bases and wires the
// translation pipeline around them: strategy -> validator -> refinement ->
// knowledge base -> answer formatter. Sessions are fully independent;
// operations on one session are serialized by its knowledge base.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mcr/internal/answer"
	"mcr/internal/engine"
	"mcr/internal/kb"
	"mcr/internal/store"
	"mcr/internal/translate"
	"mcr/internal/types"
	"mcr/internal/validate"
)

// Options configures a Manager.
type Options struct {
	EngineConfig engine.Config
	Strategy     string
	MaxAttempts  int
	ExampleCount int

	LLM translate.LLMClient

	// Store is optional; without it sessions are memory-only and no
	// translation examples are retrieved.
	Store *store.Store

	// OntologyPath is an optional clause file pre-consulted into every new
	// session, hot-reloaded on change for sessions created afterwards.
	OntologyPath string

	// PlainAnswers skips the model-phrased prose pass and returns the
	// deterministic canonical rendering.
	PlainAnswers bool

	Logger *zap.Logger
}

// Session pairs a knowledge base with its metadata.
type Session struct {
	ID        string
	KB        *kb.KnowledgeBase
	CreatedAt time.Time

	mu         sync.Mutex
	modifiedAt time.Time
}

func (s *Session) touch() {
	s.mu.Lock()
	s.modifiedAt = time.Now().UTC()
	s.mu.Unlock()
}

// ModifiedAt returns the last mutation time.
func (s *Session) ModifiedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modifiedAt
}

// Info is the metadata returned by Get.
type Info struct {
	ID          string    `json:"sessionId"`
	CreatedAt   time.Time `json:"createdAt"`
	ModifiedAt  time.Time `json:"modifiedAt"`
	ClauseCount int       `json:"clauseCount"`
	KBText      string    `json:"knowledgeBase"`
}

// AssertResult reports a successful assert.
type AssertResult struct {
	AddedClauses []string `json:"addedClauses"`
	ClauseCount  int      `json:"clauseCount"`
	Strategy     string   `json:"strategy"`
}

// QueryResponse reports a query answer with its canonical form and debug
// information for the API layer.
type QueryResponse struct {
	Answer    string                 `json:"answer"`
	Canonical answer.Canonical       `json:"canonical"`
	DebugInfo map[string]interface{} `json:"debugInfo,omitempty"`
}

// Manager owns all sessions of one process.
type Manager struct {
	opts      Options
	logger    *zap.Logger
	validator *validate.Validator
	loop      *translate.Loop
	formatter *answer.Formatter
	ontology  *ontology

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager builds a manager, hydrating persisted sessions when a store is
// configured.
func NewManager(ctx context.Context, opts Options) (*Manager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	strategy, err := translate.ForName(opts.Strategy)
	if err != nil {
		return nil, err
	}

	validator := validate.New()
	loop := translate.NewLoop(strategy, validator, opts.LLM, opts.MaxAttempts, logger)
	if opts.ExampleCount > 0 {
		loop.ExampleCount = opts.ExampleCount
	}
	if opts.Store != nil {
		loop.Examples = opts.Store
	}

	var phraser answer.Generator
	if !opts.PlainAnswers {
		phraser = opts.LLM
	}
	m := &Manager{
		opts:      opts,
		logger:    logger,
		validator: validator,
		loop:      loop,
		formatter: answer.NewFormatter(phraser, logger),
		sessions:  make(map[string]*Session),
	}

	if opts.OntologyPath != "" {
		ont, err := newOntology(opts.OntologyPath, logger)
		if err != nil {
			return nil, err
		}
		m.ontology = ont
	}

	if opts.Store != nil {
		if err := m.hydrate(ctx); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) hydrate(ctx context.Context) error {
	records, err := m.opts.Store.LoadSessions(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		sess := &Session{
			ID:         rec.ID,
			KB:         kb.New(m.opts.EngineConfig, m.sessionLogger(rec.ID)),
			CreatedAt:  rec.CreatedAt,
			modifiedAt: rec.ModifiedAt,
		}
		if err := sess.KB.Consult(rec.KBText); err != nil {
			m.logger.Warn("skipping session with unloadable knowledge base",
				zap.String("session_id", rec.ID),
				zap.Error(err))
			continue
		}
		m.sessions[rec.ID] = sess
	}
	m.logger.Info("sessions hydrated", zap.Int("count", len(m.sessions)))
	return nil
}

// Create makes a new session, optionally pre-consulted with trusted initial
// clause text, and returns its id.
func (m *Manager) Create(ctx context.Context, initialText string) (string, error) {
	id := uuid.NewString()
	sess := &Session{
		ID:         id,
		KB:         kb.New(m.opts.EngineConfig, m.sessionLogger(id)),
		CreatedAt:  time.Now().UTC(),
		modifiedAt: time.Now().UTC(),
	}

	if m.ontology != nil {
		if text := m.ontology.Text(); text != "" {
			if err := sess.KB.Consult(text); err != nil {
				return "", err
			}
		}
	}
	if initialText != "" {
		if err := sess.KB.Consult(initialText); err != nil {
			return "", err
		}
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	m.persist(ctx, sess)
	m.logger.Info("session created", zap.String("session_id", id))
	return id, nil
}

// Assert translates natural language into clauses and appends them to the
// session's knowledge base. The translated batch commits atomically: an
// engine rejection leaves the knowledge base without any clause from it.
func (m *Manager) Assert(ctx context.Context, sessionID, text string) (*AssertResult, error) {
	sess, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}

	clauses, err := m.loop.Assert(ctx, text, sess.KB.Lexicon())
	if err != nil {
		return nil, err
	}

	count, err := sess.KB.AssertAll(ctx, clauses)
	if err != nil {
		return nil, err
	}
	added := make([]string, 0, len(clauses))
	for _, clause := range clauses {
		added = append(added, clause.Text)
	}

	sess.touch()
	m.persist(ctx, sess)
	m.recordExamples(ctx, text, added)

	return &AssertResult{
		AddedClauses: added,
		ClauseCount:  count,
		Strategy:     m.loop.Strategy.Name(),
	}, nil
}

// Query translates a question, runs it against the session's engine and
// formats the canonical answer. Engine errors are surfaced distinctly from
// empty results; no information always answers the literal "unknown".
func (m *Manager) Query(ctx context.Context, sessionID, text, style string) (*QueryResponse, error) {
	sess, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}

	query, err := m.loop.Query(ctx, text, sess.KB.Lexicon())
	if err != nil {
		return nil, err
	}

	result, err := sess.KB.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	canonical := answer.Canonicalize(result)
	formatted, err := m.formatter.Format(ctx, text, canonical, style)
	if err != nil {
		return nil, err
	}

	m.recordExamples(ctx, text, []string{query})

	return &QueryResponse{
		Answer:    formatted,
		Canonical: canonical,
		DebugInfo: map[string]interface{}{
			"query":     query,
			"strategy":  m.loop.Strategy.Name(),
			"duration":  result.Duration.String(),
			"solutions": len(result.Bindings),
		},
	}, nil
}

// Retract removes the first clause matching pattern from the session.
func (m *Manager) Retract(ctx context.Context, sessionID, pattern string) (int, error) {
	sess, err := m.get(sessionID)
	if err != nil {
		return 0, err
	}

	removed, err := sess.KB.Retract(pattern)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		sess.touch()
		m.persist(ctx, sess)
	}
	return removed, nil
}

// ReplaceKB swaps a session's entire clause text after engine validation.
func (m *Manager) ReplaceKB(ctx context.Context, sessionID, text string) error {
	sess, err := m.get(sessionID)
	if err != nil {
		return err
	}
	if err := sess.KB.Replace(text); err != nil {
		return err
	}
	sess.touch()
	m.persist(ctx, sess)
	return nil
}

// Get returns a session's metadata and knowledge-base text.
func (m *Manager) Get(sessionID string) (*Info, error) {
	sess, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}
	return &Info{
		ID:          sess.ID,
		CreatedAt:   sess.CreatedAt,
		ModifiedAt:  sess.ModifiedAt(),
		ClauseCount: sess.KB.ClauseCount(),
		KBText:      sess.KB.Text(),
	}, nil
}

// List returns all session ids, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Delete destroys a session and its persisted state.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	_, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		return &types.SessionNotFoundError{ID: sessionID}
	}
	if m.opts.Store != nil {
		if err := m.opts.Store.DeleteSession(ctx, sessionID); err != nil {
			return err
		}
	}
	m.logger.Info("session deleted", zap.String("session_id", sessionID))
	return nil
}

// Close flushes every session to the store and stops the ontology watcher.
func (m *Manager) Close(ctx context.Context) error {
	if m.ontology != nil {
		m.ontology.Close()
	}
	if m.opts.Store == nil {
		return nil
	}

	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, sess := range sessions {
		g.Go(func() error {
			return m.opts.Store.SaveSession(ctx, store.SessionRecord{
				ID:         sess.ID,
				KBText:     sess.KB.Text(),
				CreatedAt:  sess.CreatedAt,
				ModifiedAt: sess.ModifiedAt(),
			})
		})
	}
	return g.Wait()
}

func (m *Manager) get(sessionID string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, &types.SessionNotFoundError{ID: sessionID}
	}
	return sess, nil
}

func (m *Manager) sessionLogger(id string) *zap.Logger {
	return m.logger.With(zap.String("session_id", id))
}

// persist saves a session best-effort; a storage hiccup must not fail the
// knowledge-base operation that already succeeded.
func (m *Manager) persist(ctx context.Context, sess *Session) {
	if m.opts.Store == nil {
		return
	}
	err := m.opts.Store.SaveSession(ctx, store.SessionRecord{
		ID:         sess.ID,
		KBText:     sess.KB.Text(),
		CreatedAt:  sess.CreatedAt,
		ModifiedAt: sess.ModifiedAt(),
	})
	if err != nil {
		m.logger.Warn("failed to persist session",
			zap.String("session_id", sess.ID),
			zap.Error(err))
	}
}

// recordExamples stores successful translations for critique retrieval.
func (m *Manager) recordExamples(ctx context.Context, input string, outputs []string) {
	if m.opts.Store == nil {
		return
	}
	for _, output := range outputs {
		err := m.opts.Store.AddExample(ctx, types.TranslationExample{
			Input:    input,
			Output:   output,
			Strategy: m.loop.Strategy.Name(),
		})
		if err != nil {
			m.logger.Warn("failed to record translation example", zap.Error(err))
			return
		}
	}
}
