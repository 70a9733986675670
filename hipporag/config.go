package hipporag

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" as well as plain nanosecond integers.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

// Config holds the model/service parameters and the activation policy
// knobs. It is read-only after New; per-call parameters (retention ratio,
// activation threshold, strategy, dry-run flags) are explicit arguments on
// the operations themselves.
type Config struct {
	// Generation service
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     Duration      `yaml:"timeout"`

	// Memory
	Namespace   string `yaml:"namespace"`
	RecallLimit int    `yaml:"recall_limit"`

	// Activation function
	ContextWindowSize  int     `yaml:"context_window_size"`
	RecencyWeight      float64 `yaml:"recency_weight"`
	FrequencyWeight    float64 `yaml:"frequency_weight"`
	RelevanceWeight    float64 `yaml:"relevance_weight"`
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
	DecayRate          float64 `yaml:"decay_rate"`
}

func newConfig() *Config {
	return &Config{
		Model:              "qwen3:1.7b",
		BaseURL:            "http://localhost:11434",
		Temperature:        0.7,
		MaxTokens:          200,
		Timeout:            Duration(60 * time.Second),
		Namespace:          "default",
		RecallLimit:        5,
		ContextWindowSize:  10,
		RecencyWeight:      0.3,
		FrequencyWeight:    0.2,
		RelevanceWeight:    0.5,
		RelevanceThreshold: 0.3,
		DecayRate:          0.01,
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	c := newConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature %v outside [0,2]", ErrConfiguration, c.Temperature)
	}
	if c.RelevanceThreshold < 0 || c.RelevanceThreshold > 1 {
		return fmt.Errorf("%w: relevance_threshold %v outside [0,1]", ErrConfiguration, c.RelevanceThreshold)
	}
	if c.DecayRate < 0 || c.DecayRate > 1 {
		return fmt.Errorf("%w: decay_rate %v outside [0,1]", ErrConfiguration, c.DecayRate)
	}
	if c.RecencyWeight < 0 || c.FrequencyWeight < 0 || c.RelevanceWeight < 0 {
		return fmt.Errorf("%w: activation weights must be non-negative", ErrConfiguration)
	}
	if c.RecencyWeight+c.FrequencyWeight+c.RelevanceWeight == 0 {
		return fmt.Errorf("%w: activation weights sum to zero", ErrConfiguration)
	}
	if c.ContextWindowSize <= 0 {
		return fmt.Errorf("%w: context_window_size must be positive", ErrConfiguration)
	}
	return nil
}

// normalizedWeights returns the activation weights scaled to sum to 1.
func (c *Config) normalizedWeights() (relevance, recency, frequency float64) {
	total := c.RelevanceWeight + c.RecencyWeight + c.FrequencyWeight
	if total == 0 {
		return 0, 0, 0
	}
	return c.RelevanceWeight / total, c.RecencyWeight / total, c.FrequencyWeight / total
}
