// Package answer canonicalizes raw query results and optionally phrases
// them in natural language. Canonicalization is deterministic and precedes
// any model involvement: the prose pass receives only the canonical result
// and may not alter its truth value.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"mcr/internal/types"
)

// Truth is the canonical outcome of a query.
type Truth string

const (
	// TruthTrue means the query was affirmed with no variables to bind.
	TruthTrue Truth = "true"

	// TruthUnknown means no information was found. Downstream phrasing is
	// contractually forbidden from speculating beyond this marker.
	TruthUnknown Truth = "unknown"

	// TruthBindings means the query produced one or more solutions with
	// variable bindings.
	TruthBindings Truth = "bindings"
)

// Canonical is the deterministic answer before any natural-language
// phrasing.
type Canonical struct {
	Truth    Truth               `json:"truth"`
	Bindings []map[string]string `json:"bindings,omitempty"`
}

// Canonicalize maps a raw query result to its canonical form. An empty
// binding sequence canonicalizes to unknown, never to true or a guessed
// value.
func Canonicalize(result *types.QueryResult) Canonical {
	if result == nil || len(result.Bindings) == 0 {
		return Canonical{Truth: TruthUnknown}
	}

	empty := true
	for _, row := range result.Bindings {
		if len(row) > 0 {
			empty = false
			break
		}
	}
	if empty {
		return Canonical{Truth: TruthTrue}
	}
	return Canonical{Truth: TruthBindings, Bindings: result.Bindings}
}

// Plain renders the canonical answer without a model: the literal marker for
// true/unknown, or one line per solution for bindings.
func (c Canonical) Plain() string {
	switch c.Truth {
	case TruthTrue:
		return "true"
	case TruthBindings:
		lines := make([]string, len(c.Bindings))
		for i, row := range c.Bindings {
			names := make([]string, 0, len(row))
			for name := range row {
				names = append(names, name)
			}
			sort.Strings(names)
			pairs := make([]string, len(names))
			for j, name := range names {
				pairs[j] = fmt.Sprintf("%s = %s", name, row[name])
			}
			lines[i] = strings.Join(pairs, ", ")
		}
		return strings.Join(lines, "\n")
	default:
		return "unknown"
	}
}

// Generator is the optional model capability used for prose phrasing.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts types.GenerateOptions) (*types.GenerateResult, error)
	Name() string
}

const phraseSystem = `You phrase a logic query result as a short natural language answer.

Rules:
- You are given the question and a canonical result object. The result is the complete truth.
- truth "true" means the question is affirmed. Say so plainly.
- truth "unknown" means the knowledge base has no information. Say that nothing is known; NEVER invent an answer, NEVER guess, NEVER say yes.
- truth "bindings" lists the solutions. Present them faithfully and completely.
- Honor the requested style. Style never changes the truth of the answer.`

// Formatter turns canonical answers into user-facing text. With a nil
// generator it degrades to the deterministic plain rendering.
type Formatter struct {
	llm    Generator
	logger *zap.Logger
}

// NewFormatter builds a formatter. llm may be nil.
func NewFormatter(llm Generator, logger *zap.Logger) *Formatter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Formatter{llm: llm, logger: logger}
}

// Format produces the user-visible answer for a canonical result. The model
// receives the canonical result only, never raw engine internals, plus the
// requested output style. Provider failures propagate.
func (f *Formatter) Format(ctx context.Context, question string, c Canonical, style string) (string, error) {
	if f.llm == nil {
		return c.Plain(), nil
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode canonical answer: %w", err)
	}

	user := fmt.Sprintf("Question: %q\nCanonical result: %s\nStyle: %s", question, payload, styleOrDefault(style))
	result, err := f.llm.Generate(ctx, phraseSystem, user, types.GenerateOptions{})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		f.logger.Warn("empty phrasing response, falling back to plain rendering")
		return c.Plain(), nil
	}
	return text, nil
}

func styleOrDefault(style string) string {
	if style == "" {
		return "concise"
	}
	return style
}
