package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeOllama(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *OllamaClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOllamaClient(OllamaOptions{
		Model:   "test-model",
		BaseURL: srv.URL,
	})
	require.NoError(t, err)
	return srv, c
}

func TestOllamaGenerate(t *testing.T) {
	_, c := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/generate", r.URL.Path)
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(`{"model":"test-model","response":"  hello world  ","done":true}` + "\n"))
	})

	out, err := c.Generate(context.Background(), "say hello", 50)
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestOllamaGenerateServiceUnavailable(t *testing.T) {
	srv, c := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := c.Generate(context.Background(), "anything", 0)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestOllamaGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	c, err := NewOllamaClient(OllamaOptions{
		Model:      "test-model",
		BaseURL:    srv.URL,
		HTTPClient: &http.Client{Timeout: 50 * time.Millisecond},
	})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "slow", 0)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestOllamaGenerateDeadlineExceeded(t *testing.T) {
	_, c := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Generate(ctx, "slow", 0)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestOllamaPing(t *testing.T) {
	_, c := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[]}`))
	})
	assert.NoError(t, c.Ping(context.Background()))
}

func TestOllamaGenerateStream(t *testing.T) {
	_, c := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(`{"response":"hel","done":false}` + "\n"))
		w.Write([]byte(`{"response":"lo","done":true}` + "\n"))
	})

	chunks, errs := c.GenerateStream(context.Background(), "say hello", 0)

	var got string
	for chunk := range chunks {
		got += chunk
	}
	assert.Equal(t, "hello", got)
	assert.NoError(t, <-errs)
}
