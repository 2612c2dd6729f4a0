package validate

import (
	"fmt"
	"strings"
	"unicode"

	"mcr/internal/types"
)

// Tokenizer for clause text. Replaces ad hoc regex splitting: a clause is
// scanned character by character, quote- and depth-aware, so malformed text
// is rejected here with a structured message instead of surfacing later as
// an opaque engine parse error.

// ParseClause checks the syntactic shape of one clause and extracts its head
// predicate and arity. Accepted shapes are `head.` and `head :- body.`.
func ParseClause(text string) (types.Clause, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return types.Clause{}, fmt.Errorf("empty clause")
	}
	if !strings.HasSuffix(trimmed, ".") {
		return types.Clause{}, fmt.Errorf("clause must end with a period: %q", trimmed)
	}

	body := strings.TrimSpace(strings.TrimSuffix(trimmed, "."))
	if body == "" {
		return types.Clause{}, fmt.Errorf("clause has no content before the period")
	}

	if err := scanStructure(body); err != nil {
		return types.Clause{}, err
	}

	head := body
	isRule := false
	if idx := indexTopLevel(body, ":-"); idx >= 0 {
		head = strings.TrimSpace(body[:idx])
		rest := strings.TrimSpace(body[idx+2:])
		if head == "" {
			return types.Clause{}, fmt.Errorf("rule has no head: %q", trimmed)
		}
		if rest == "" {
			return types.Clause{}, fmt.Errorf("rule has no body: %q", trimmed)
		}
		isRule = true
	}

	predicate, arity, err := parseAtomShape(head)
	if err != nil {
		return types.Clause{}, err
	}

	return types.Clause{
		Text:      trimmed,
		Predicate: predicate,
		Arity:     arity,
		IsRule:    isRule,
	}, nil
}

// ParseQuery checks that a query string is exactly one clause-shaped goal
// terminated by a period and returns its normalized form.
func ParseQuery(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "?-")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return "", fmt.Errorf("empty query")
	}
	if !strings.HasSuffix(trimmed, ".") {
		trimmed += "."
	}

	goal := strings.TrimSpace(strings.TrimSuffix(trimmed, "."))
	if goal == "" {
		return "", fmt.Errorf("query has no goal before the period")
	}
	if err := scanStructure(goal); err != nil {
		return "", err
	}
	if _, _, err := parseAtomShape(goal); err != nil {
		return "", err
	}
	return trimmed, nil
}

// scanStructure walks the text outside the terminating period and rejects
// unbalanced parentheses, unterminated quotes and interior clause
// terminators. A period between digits is a float literal, not a terminator.
func scanStructure(body string) error {
	depth := 0
	inQuote := rune(0)
	runes := []rune(body)

	for i, r := range runes {
		if inQuote != 0 {
			if r == inQuote && (i == 0 || runes[i-1] != '\\') {
				inQuote = 0
			}
			continue
		}
		switch r {
		case '\'', '"':
			inQuote = r
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced closing bracket at position %d", i)
			}
		case '.':
			if depth == 0 && !digitAdjacent(runes, i) {
				return fmt.Errorf("unexpected interior period at position %d: a clause has exactly one terminating period", i)
			}
		}
	}

	if inQuote != 0 {
		return fmt.Errorf("unterminated quote")
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced parentheses (depth %d at end)", depth)
	}
	return nil
}

func digitAdjacent(runes []rune, i int) bool {
	return i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1])
}

// indexTopLevel finds the first occurrence of sep outside quotes and
// brackets, or -1.
func indexTopLevel(s, sep string) int {
	depth := 0
	inQuote := rune(0)
	runes := []rune(s)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if inQuote != 0 {
			if r == inQuote && runes[i-1] != '\\' {
				inQuote = 0
			}
			continue
		}
		switch r {
		case '\'', '"':
			inQuote = r
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		}
		if depth == 0 && inQuote == 0 && strings.HasPrefix(string(runes[i:]), sep) {
			return len(string(runes[:i]))
		}
	}
	return -1
}

// parseAtomShape extracts predicate and arity from an atom such as
// `father(john, mary)` or a zero-arity atom such as `raining`. Negated
// heads wrapped in neg(...) report the inner atom's shape.
func parseAtomShape(atom string) (string, int, error) {
	atom = strings.TrimSpace(atom)

	open := strings.IndexRune(atom, '(')
	if open == -1 {
		if !isPredicateName(atom) {
			return "", 0, fmt.Errorf("invalid predicate name %q: must match [a-z][a-zA-Z0-9_]*", atom)
		}
		return atom, 0, nil
	}
	if !strings.HasSuffix(atom, ")") {
		return "", 0, fmt.Errorf("atom %q has an opening parenthesis but does not end with one", atom)
	}

	name := strings.TrimSpace(atom[:open])
	if !isPredicateName(name) {
		return "", 0, fmt.Errorf("invalid predicate name %q: must match [a-z][a-zA-Z0-9_]*", name)
	}

	args, err := splitArgs(atom[open+1 : len(atom)-1])
	if err != nil {
		return "", 0, fmt.Errorf("atom %q: %w", atom, err)
	}

	if name == "neg" && len(args) == 1 {
		if inner, innerArity, innerErr := parseAtomShape(args[0]); innerErr == nil {
			return inner, innerArity, nil
		}
	}
	return name, len(args), nil
}

// splitArgs splits an argument list on top-level commas, respecting quotes
// and nested brackets.
func splitArgs(argText string) ([]string, error) {
	trimmed := strings.TrimSpace(argText)
	if trimmed == "" {
		return nil, fmt.Errorf("empty argument list")
	}

	var args []string
	var current strings.Builder
	depth := 0
	inQuote := rune(0)
	runes := []rune(trimmed)

	for i, r := range runes {
		if inQuote != 0 {
			current.WriteRune(r)
			if r == inQuote && runes[i-1] != '\\' {
				inQuote = 0
			}
			continue
		}
		switch r {
		case '\'', '"':
			inQuote = r
			current.WriteRune(r)
		case '(', '[':
			depth++
			current.WriteRune(r)
		case ')', ']':
			depth--
			if depth < 0 {
				// A conjunction like `a(X), b(X)` reaches here as the
				// argument text `X), b(X`; it is not a single atom.
				return nil, fmt.Errorf("unbalanced closing bracket in argument list")
			}
			current.WriteRune(r)
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(current.String()))
				current.Reset()
			} else {
				current.WriteRune(r)
			}
		default:
			current.WriteRune(r)
		}
	}
	args = append(args, strings.TrimSpace(current.String()))

	for i, arg := range args {
		if arg == "" {
			return nil, fmt.Errorf("argument %d is empty", i+1)
		}
	}
	return args, nil
}

// isPredicateName reports whether s matches [a-z][a-zA-Z0-9_]*.
func isPredicateName(s string) bool {
	if s == "" {
		return false
	}
	if s[0] < 'a' || s[0] > 'z' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}
	return true
}
