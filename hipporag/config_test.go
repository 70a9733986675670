package hipporag

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	c := newConfig()
	require.NoError(t, c.Validate())

	assert.Equal(t, "qwen3:1.7b", c.Model)
	assert.Equal(t, "http://localhost:11434", c.BaseURL)
	assert.Equal(t, 0.7, c.Temperature)
	assert.Equal(t, 200, c.MaxTokens)
	assert.Equal(t, 10, c.ContextWindowSize)
	assert.Equal(t, 0.3, c.RelevanceThreshold)
	assert.Equal(t, 0.01, c.DecayRate)
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }},
		{"negative threshold", func(c *Config) { c.RelevanceThreshold = -0.1 }},
		{"decay rate above one", func(c *Config) { c.DecayRate = 1.5 }},
		{"negative weight", func(c *Config) { c.RecencyWeight = -1 }},
		{"zero weights", func(c *Config) {
			c.RecencyWeight, c.FrequencyWeight, c.RelevanceWeight = 0, 0, 0
		}},
		{"zero window", func(c *Config) { c.ContextWindowSize = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newConfig()
			tc.mutate(c)
			assert.ErrorIs(t, c.Validate(), ErrConfiguration)
		})
	}
}

func TestNormalizedWeights(t *testing.T) {
	c := newConfig()
	c.RelevanceWeight, c.RecencyWeight, c.FrequencyWeight = 1, 1, 2

	rel, rec, freq := c.normalizedWeights()
	assert.InDelta(t, 0.25, rel, 1e-9)
	assert.InDelta(t, 0.25, rec, 1e-9)
	assert.InDelta(t, 0.5, freq, 1e-9)
	assert.InDelta(t, 1.0, rel+rec+freq, 1e-9)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
model: llama3
temperature: 0.2
timeout: 30s
namespace: team-a
recency_weight: 0.4
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "llama3", c.Model)
	assert.Equal(t, 0.2, c.Temperature)
	assert.Equal(t, Duration(30*time.Second), c.Timeout)
	assert.Equal(t, "team-a", c.Namespace)
	assert.Equal(t, 0.4, c.RecencyWeight)
	// untouched keys keep their defaults
	assert.Equal(t, 200, c.MaxTokens)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("temperature: 9"), 0o600))

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrConfiguration)
}
