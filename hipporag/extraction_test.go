package hipporag

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLM replays canned responses and records the prompts it saw.
type fakeLLM struct {
	responses []string
	err       error
	prompts   []string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	i := len(f.prompts) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func quietLogger() *logrus.Logger {
	return NewJSONLogger(io.Discard, logrus.PanicLevel)
}

func TestParseTriples(t *testing.T) {
	out := parseTriples(`Here are the facts:
(Erik Hort, birthplace, Montebello, New York)
(water, boils at, 100 C)
not a triple
(, missing, subject)
`)
	require.Len(t, out, 2)
	assert.Equal(t, [3]string{"Erik Hort", "birthplace", "Montebello, New York"}, out[0])
	assert.Equal(t, [3]string{"water", "boils at", "100 C"}, out[1])
}

func TestExtractFacts(t *testing.T) {
	llm := &fakeLLM{responses: []string{"(Paris, capital of, France)\n(Paris, population, 2.1 million)"}}
	m := New(WithLLM(llm), WithLogger(quietLogger()))

	facts, err := m.ExtractFacts(context.Background(), "Paris is the capital of France.")
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, "Paris", facts[0].Subject)
	assert.Equal(t, "capital of", facts[0].Predicate)
	assert.Equal(t, "France", facts[0].Object)
	assert.Equal(t, 1.0, facts[0].Activation)
	assert.Len(t, llm.prompts, 1)
}

func TestExtractFactsRetriesWithStrictPrompt(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		"I could not find any structured facts in that text.",
		"(sky, color, blue)",
	}}
	m := New(WithLLM(llm), WithLogger(quietLogger()))

	facts, err := m.ExtractFacts(context.Background(), "The sky is blue.")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "blue", facts[0].Object)
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[1], "ONLY lines of the exact form")
}

func TestExtractFactsParseFailure(t *testing.T) {
	llm := &fakeLLM{responses: []string{"no triples here", "still nothing"}}
	m := New(WithLLM(llm), WithLogger(quietLogger()))

	_, err := m.ExtractFacts(context.Background(), "gibberish")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
	assert.Len(t, llm.prompts, 2)
}

func TestExtractFactsServiceError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("boom")}
	m := New(WithLLM(llm), WithLogger(quietLogger()))

	_, err := m.ExtractFacts(context.Background(), "anything")
	require.Error(t, err)
}

func TestGenerateWithoutClient(t *testing.T) {
	m := New(WithLogger(quietLogger()))
	m.LLM = nil

	_, err := m.Generate(context.Background(), "hello", 10)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestAnswerQuestionWithoutMemory(t *testing.T) {
	llm := &fakeLLM{responses: []string{"42"}}
	m := New(WithLLM(llm), WithLogger(quietLogger()))

	out, err := m.AnswerQuestion(context.Background(), "What is the answer?")
	require.NoError(t, err)
	assert.Equal(t, "42", out)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "What is the answer?")
	assert.NotContains(t, llm.prompts[0], "Known facts")
}
