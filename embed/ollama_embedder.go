package embed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaEmbedder produces embeddings from a local Ollama service.
type OllamaEmbedder struct {
	client    *api.Client
	model     string
	dimension int
}

func NewOllamaEmbedder(config Config) *OllamaEmbedder {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	model := config.Model
	if model == "" {
		model = "nomic-embed-text"
	}

	// nomic-embed-text has 768 dimensions
	dimension := config.Dimension
	if dimension == 0 {
		dimension = 768
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		parsed, _ = url.Parse("http://localhost:11434")
	}

	hc := &http.Client{Timeout: 30 * time.Second}

	return &OllamaEmbedder{
		client:    api.NewClient(parsed, hc),
		model:     model,
		dimension: dimension,
	}
}

func (e *OllamaEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return make([]float32, e.dimension), nil
	}

	resp, err := e.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingServiceUnavailable, err)
	}

	if len(resp.Embedding) != e.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrEmbeddingDimensionMismatch, len(resp.Embedding), e.dimension)
	}

	out := make([]float32, len(resp.Embedding))
	for i, f := range resp.Embedding {
		out[i] = float32(f)
	}
	return out, nil
}

func (e *OllamaEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		result[i] = v
	}
	return result, nil
}

func (e *OllamaEmbedder) Dimension() int {
	return e.dimension
}

func (e *OllamaEmbedder) Provider() string {
	return "ollama"
}
