package translate

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcr/internal/provider"
	"mcr/internal/types"
)

func TestForNameExhaustive(t *testing.T) {
	for _, name := range []string{StrategyDirect, StrategySIR} {
		s, err := ForName(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}

	_, err := ForName("clever")
	assert.Error(t, err)
}

func TestDirectAssertSocrates(t *testing.T) {
	llm := provider.NewMock(provider.MockRule{
		Contains: "Socrates is a human.",
		Response: "human(socrates).",
	})

	d := &Direct{}
	texts, err := d.TranslateAssert(context.Background(), llm, Request{Input: "Socrates is a human."})
	require.NoError(t, err)
	require.Len(t, texts, 1)

	// A unary predicate application terminated by a period.
	assert.Regexp(t, regexp.MustCompile(`\w+\(\s*\w+\s*\)\.`), texts[0])
}

func TestDirectAssertPostProcessing(t *testing.T) {
	llm := provider.NewMock(provider.MockRule{
		Contains: "weather",
		Response: "% translated clauses\n\nsunny(today)\n.\nwarm(today).\n",
	})

	d := &Direct{}
	texts, err := d.TranslateAssert(context.Background(), llm, Request{Input: "weather report"})
	require.NoError(t, err)

	// Comment and blank lines stripped, missing period appended, the bare
	// "." line (length <= 1) discarded.
	assert.Equal(t, []string{"sunny(today).", "warm(today)."}, texts)
}

func TestDirectAssertCannotConvert(t *testing.T) {
	llm := provider.NewMock(provider.MockRule{
		Contains: "How are you",
		Response: "CANNOT_CONVERT",
	})

	d := &Direct{}
	_, err := d.TranslateAssert(context.Background(), llm, Request{Input: "How are you today?"})
	assert.ErrorIs(t, err, types.ErrCannotConvert)
}

func TestDirectQuerySingleGoal(t *testing.T) {
	llm := provider.NewMock(provider.MockRule{
		Contains: "Who is the parent of mary",
		Response: "parent(X, mary)",
	})

	d := &Direct{}
	q, err := d.TranslateQuery(context.Background(), llm, Request{Input: "Who is the parent of mary?"})
	require.NoError(t, err)
	assert.Equal(t, "parent(X, mary).", q)
}

func TestDirectQueryRejectsMultipleGoals(t *testing.T) {
	llm := provider.NewMock(provider.MockRule{
		Contains: "everything",
		Response: "a(X).\nb(X).",
	})

	d := &Direct{}
	_, err := d.TranslateQuery(context.Background(), llm, Request{Input: "tell me everything"})

	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestSIRAssertCompilesStatement(t *testing.T) {
	llm := provider.NewMock(provider.MockRule{
		Contains: "Socrates",
		Response: `Here you go:
{"statementType": "fact", "fact": {"predicate": "human", "arguments": ["socrates"]}}`,
	})

	s := &SIR{}
	texts, err := s.TranslateAssert(context.Background(), llm, Request{Input: "Socrates is a human."})
	require.NoError(t, err)
	assert.Equal(t, []string{"human(socrates)."}, texts)
}

func TestSIRAssertErrorFieldAuthoritative(t *testing.T) {
	// A fact co-present with an error field is still a refusal.
	llm := provider.NewMock(provider.MockRule{
		Contains: "weather",
		Response: `{"statementType": "fact", "error": "this is a question", "fact": {"predicate": "weather", "arguments": ["nice"]}}`,
	})

	s := &SIR{}
	_, err := s.TranslateAssert(context.Background(), llm, Request{Input: "what is the weather?"})
	assert.ErrorIs(t, err, types.ErrCannotConvert)
}

func TestSIRAssertBadJSONIsRetryable(t *testing.T) {
	llm := provider.NewMock(provider.MockRule{
		Contains: "garbled",
		Response: "no json here at all",
	})

	s := &SIR{}
	_, err := s.TranslateAssert(context.Background(), llm, Request{Input: "garbled input"})

	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, types.KindSchema, ve.Kind)
}

func TestProviderErrorPassesThrough(t *testing.T) {
	llm := provider.NewMock()
	llm.Err = errors.New("connection refused")

	d := &Direct{}
	_, err := d.TranslateAssert(context.Background(), llm, Request{Input: "anything"})

	var pe *types.ProviderError
	require.ErrorAs(t, err, &pe)
}

func TestParseStatementExtractsEmbeddedJSON(t *testing.T) {
	st, err := ParseStatement("```json\n{\"statementType\": \"fact\", \"fact\": {\"predicate\": \"p\", \"arguments\": [\"a\", [\"b\", \"c\"]]}}\n```")
	require.NoError(t, err)
	require.NotNil(t, st.Fact)
	require.Len(t, st.Fact.Arguments, 2)
	assert.Equal(t, "a", st.Fact.Arguments[0].Value)
	assert.Equal(t, []string{"b", "c"}, st.Fact.Arguments[1].List)
}
