package answer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcr/internal/provider"
	"mcr/internal/types"
)

func TestCanonicalizeEmptyResultIsUnknown(t *testing.T) {
	for _, result := range []*types.QueryResult{
		nil,
		{},
		{Bindings: []map[string]string{}},
	} {
		c := Canonicalize(result)
		assert.Equal(t, TruthUnknown, c.Truth)
		assert.Equal(t, "unknown", c.Plain(), "no information must never become true or a guess")
	}
}

func TestCanonicalizeAffirmed(t *testing.T) {
	c := Canonicalize(&types.QueryResult{Bindings: []map[string]string{{}}})
	assert.Equal(t, TruthTrue, c.Truth)
	assert.Equal(t, "true", c.Plain())
}

func TestCanonicalizeBindings(t *testing.T) {
	c := Canonicalize(&types.QueryResult{Bindings: []map[string]string{
		{"Y": "mary", "X": "john"},
		{"Y": "ann", "X": "bob"},
	}})
	require.Equal(t, TruthBindings, c.Truth)
	assert.Equal(t, "X = john, Y = mary\nX = bob, Y = ann", c.Plain())
}

func TestFormatWithoutModelFallsBackToPlain(t *testing.T) {
	f := NewFormatter(nil, nil)

	got, err := f.Format(context.Background(), "Is john the father of mary?", Canonical{Truth: TruthTrue}, "")
	require.NoError(t, err)
	assert.Equal(t, "true", got)
}

func TestFormatPassesCanonicalResultToModel(t *testing.T) {
	llm := provider.NewMock(provider.MockRule{
		Contains: `"truth":"bindings"`,
		Response: "Mary is John's child.",
	})
	f := NewFormatter(llm, nil)

	c := Canonical{Truth: TruthBindings, Bindings: []map[string]string{{"Y": "mary"}}}
	got, err := f.Format(context.Background(), "Who is John's child?", c, "concise")
	require.NoError(t, err)
	assert.Equal(t, "Mary is John's child.", got)

	calls := llm.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].User, `"truth":"bindings"`)
	assert.Contains(t, calls[0].User, "Style: concise")
}

func TestFormatProviderFailurePropagates(t *testing.T) {
	llm := provider.NewMock() // no rules, no fallback: provider error
	f := NewFormatter(llm, nil)

	_, err := f.Format(context.Background(), "anything", Canonical{Truth: TruthUnknown}, "")
	var pe *types.ProviderError
	require.ErrorAs(t, err, &pe)
}
