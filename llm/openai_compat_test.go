package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAICompatGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req ChatCompletionsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "local-model", req.Model)
		assert.Equal(t, 64, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" pong "}}]}`))
	}))
	t.Cleanup(srv.Close)

	c := NewOpenAICompatClient(OpenAICompatOptions{
		BaseURL: srv.URL,
		APIKey:  "sk-test",
		Model:   "local-model",
	})

	out, err := c.Generate(context.Background(), "ping", 64)
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
}

func TestOpenAICompatGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	t.Cleanup(srv.Close)

	c := NewOpenAICompatClient(OpenAICompatOptions{BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), "ping", 0)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestOpenAICompatGenerateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewOpenAICompatClient(OpenAICompatOptions{BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), "ping", 0)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestOpenAICompatGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n\n"))
		w.Write([]byte(": keep-alive comment\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	t.Cleanup(srv.Close)

	c := NewOpenAICompatClient(OpenAICompatOptions{BaseURL: srv.URL})
	chunks, errs := c.GenerateStream(context.Background(), "say hello", 0)

	var got string
	for chunk := range chunks {
		got += chunk
	}
	assert.Equal(t, "hello", got)
	assert.NoError(t, <-errs)
}
