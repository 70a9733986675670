package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaOptions configures a client for a local Ollama service.
type OllamaOptions struct {
	Model       string
	BaseURL     string // defaults to http://localhost:11434
	Temperature float64
	HTTPClient  *http.Client
}

// OllamaClient talks to a local Ollama service through its native API.
type OllamaClient struct {
	client      *api.Client
	model       string
	temperature float64
}

func NewOllamaClient(opts OllamaOptions) (*OllamaClient, error) {
	base := opts.BaseURL
	if base == "" {
		base = "http://localhost:11434"
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 120 * time.Second}
	}

	return &OllamaClient{
		client:      api.NewClient(parsed, hc),
		model:       opts.Model,
		temperature: opts.Temperature,
	}, nil
}

// Ping checks that the service is reachable and the model list responds.
func (c *OllamaClient) Ping(ctx context.Context) error {
	if _, err := c.client.List(ctx); err != nil {
		return wrapTransportErr(err)
	}
	return nil
}

func (c *OllamaClient) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: c.options(maxTokens),
	}

	var out strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", wrapTransportErr(err)
	}
	return strings.TrimSpace(out.String()), nil
}

// GenerateStream yields response fragments as the model produces them.
// The channels are closed when generation ends or the context is done.
func (c *OllamaClient) GenerateStream(ctx context.Context, prompt string, maxTokens int) (<-chan string, <-chan error) {
	chunks := make(chan string, 128)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		stream := true
		req := &api.GenerateRequest{
			Model:   c.model,
			Prompt:  prompt,
			Stream:  &stream,
			Options: c.options(maxTokens),
		}

		err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
			if resp.Response != "" {
				select {
				case chunks <- resp.Response:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
		if err != nil {
			errs <- wrapTransportErr(err)
		}
	}()

	return chunks, errs
}

func (c *OllamaClient) options(maxTokens int) map[string]any {
	opts := map[string]any{
		"temperature": c.temperature,
	}
	if maxTokens > 0 {
		opts["num_predict"] = maxTokens
	}
	return opts
}
