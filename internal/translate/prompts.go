package translate

import (
	"fmt"
	"strings"

	"mcr/internal/types"
)

// Prompt templates for the translation strategies. The knowledge-base schema
// summary (known name/arity pairs) is injected into every prompt so the
// model reuses the session's existing vocabulary instead of inventing
// near-duplicate predicates.

// cannotConvertMarker is the literal the model is told to emit for input
// that is not an assertable statement or answerable question.
const cannotConvertMarker = "CANNOT_CONVERT"

const directAssertSystem = `You translate natural language statements into Prolog clauses.

Rules:
- Output ONLY Prolog clauses, one per line, each terminated by a period.
- Facts look like: father(john, mary).
- Rules look like: parent(X, Y) :- father(X, Y).
- Constants are lowercase_snake_case. Variables are Uppercase.
- Represent a negated fact as neg(fact(...)). Never encode negation by omission.
- No comments, no explanations, no markdown fences.
- If the input is not a statement that can be asserted, output exactly: ` + cannotConvertMarker

const sirAssertSystem = `You translate natural language statements into a JSON object describing a logic statement.

Respond with ONLY a JSON object, no markdown fences, matching this schema:
{
  "statementType": "fact" | "rule",
  "fact":  {"predicate": string, "arguments": [string | [string, ...], ...], "isNegative": bool},
  "rule":  {"head": <fact shape>, "body": [<fact shape>, ...]},
  "error": string,
  "translationNotes": string
}

Rules:
- A plain statement becomes statementType "fact" with the fact object set.
- A conditional or general statement becomes statementType "rule".
- Predicates and constant arguments are lowercase_snake_case. Variables are Uppercase.
- If the input cannot be represented, set ONLY the error field explaining why.`

const querySystem = `You translate a natural language question into a single Prolog query.

Rules:
- Output exactly ONE query goal terminated by a period, for example: parent(john, Y).
- Constants are lowercase_snake_case. Variables are Uppercase; use variables for the unknowns the question asks about.
- No comments, no explanations, no markdown fences.
- If the input is not an answerable question, output exactly: ` + cannotConvertMarker

// Request carries one translation attempt's input to a strategy.
type Request struct {
	// Input is the original natural-language text.
	Input string

	// Schema is the session lexicon summary (sorted name/arity pairs).
	Schema []string

	// Critique is non-empty on refinement retries and describes the prior
	// failed attempt.
	Critique string
}

// userPrompt renders the request body shared by all strategies.
func (r Request) userPrompt() string {
	var b strings.Builder
	if len(r.Schema) > 0 {
		b.WriteString("Existing predicates in this knowledge base (name/arity):\n")
		b.WriteString(strings.Join(r.Schema, "\n"))
		b.WriteString("\nPrefer these over inventing new predicates for the same concept.\n\n")
	}
	fmt.Fprintf(&b, "Input: %q", r.Input)
	if r.Critique != "" {
		b.WriteString("\n\n")
		b.WriteString(r.Critique)
	}
	return b.String()
}

// buildCritique assembles the retry prompt section from the prior failure.
// It carries the original input, the previous candidate, the validation
// message, the iteration count and any similar prior successes.
func buildCritique(input, previous, failure string, attempt int, examples []types.TranslationExample) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PREVIOUS ATTEMPT %d FAILED.\n", attempt)
	fmt.Fprintf(&b, "Original input: %q\n", input)
	if previous != "" {
		fmt.Fprintf(&b, "Your previous output:\n%s\n", previous)
	}
	fmt.Fprintf(&b, "Validation error: %s\n", failure)
	if len(examples) > 0 {
		b.WriteString("\nExamples of similar inputs translated successfully before:\n")
		for _, ex := range examples {
			fmt.Fprintf(&b, "  input: %q -> %s\n", ex.Input, ex.Output)
		}
	}
	b.WriteString("\nCorrect the output and try again.")
	return b.String()
}
