package embed

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
)

var (
	ErrEmbeddingServiceUnavailable = errors.New("embedding service unavailable")
	ErrEmbeddingDimensionMismatch  = errors.New("embedding dimension mismatch")
)

// Embedder converts text into fixed-size vectors used for activation
// scoring and fact recall.
type Embedder interface {
	// EmbedText converts a single text into a vector embedding.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts converts a batch of texts into vector embeddings.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector size.
	Dimension() int

	// Provider returns the provider name.
	Provider() string
}

// Config selects and parameterizes an embedding provider.
type Config struct {
	Provider  string // "ollama", "openai", "hash" (fallback)
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
}

// NewEmbedder builds an embedder from config.
func NewEmbedder(config Config) Embedder {
	switch config.Provider {
	case "ollama":
		return NewOllamaEmbedder(config)
	case "openai":
		return NewOpenAIEmbedder(config)
	case "hash":
		fallthrough
	default:
		// fallback to simple hash embedding for offline/demo use
		return NewHashEmbedder()
	}
}

// CosineSimilarity computes the cosine similarity of two vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}

	if na == 0 || nb == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// EncodeVector serializes []float32 into []byte (little-endian).
func EncodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

// DecodeVector converts little-endian []byte back to []float32.
func DecodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := 0; i < len(out); i++ {
		u := binary.LittleEndian.Uint32(b[i*4:])
		out[i] = math.Float32frombits(u)
	}
	return out
}
