package hipporag

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ctrl-Creeper/HippoRAG/embed"
	"github.com/Ctrl-Creeper/HippoRAG/llm"
	"github.com/Ctrl-Creeper/HippoRAG/storage"
)

// Manager owns a fact store, a generation client and an embedder, and
// applies the retention/decay and conflict-resolution policies over the
// store. Policy operations mutate a single namespace; concurrent mutators
// of the same namespace must be serialized by the caller.
type Manager struct {
	Config *Config

	Storage  *storage.Manager
	LLM      llm.Client
	Embedder embed.Embedder

	log logrus.FieldLogger

	mu           sync.Mutex
	queryHistory []queryContext
}

// queryContext is one entry of the recent-query window feeding the
// context-aware activation function.
type queryContext struct {
	query     string
	embedding []float32
	at        time.Time
}

type Option func(*Manager)

func New(opts ...Option) *Manager {
	m := &Manager{
		Config: newConfig(),
		log:    logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(m)
	}

	// Defaults
	if m.Storage == nil {
		m.Storage = storage.NewManager()
	}
	if m.Embedder == nil {
		m.Embedder = embed.NewHashEmbedder()
	}
	if m.LLM == nil {
		if c, err := llm.NewOllamaClient(llm.OllamaOptions{
			Model:       m.Config.Model,
			BaseURL:     m.Config.BaseURL,
			Temperature: m.Config.Temperature,
		}); err == nil {
			m.LLM = c
		}
	}

	if err := m.Storage.Build(); err != nil {
		m.log.WithError(err).Warn("storage migration failed")
	}

	return m
}

func WithConfig(c *Config) Option {
	return func(m *Manager) {
		if c != nil {
			m.Config = c
		}
	}
}

func WithStorageConn(conn any) Option {
	return func(m *Manager) {
		m.Storage = storage.NewManager()
		_ = m.Storage.Start(conn)
	}
}

func WithLLM(c llm.Client) Option {
	return func(m *Manager) { m.LLM = c }
}

func WithEmbedder(e embed.Embedder) Option {
	return func(m *Manager) { m.Embedder = e }
}

// WithLogger injects the logging handle. Build the logger once at process
// entry and pass it in; the manager never touches global logger state.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

func (m *Manager) repos() (storage.Repos, bool) {
	if m.Storage == nil || m.Storage.Driver() == nil {
		return nil, false
	}
	r, ok := m.Storage.Driver().(storage.Repos)
	return r, ok
}

// AddQueryContext appends a query to the recent-query window (FIFO,
// bounded by ContextWindowSize).
func (m *Manager) AddQueryContext(query string, embedding []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryHistory = append(m.queryHistory, queryContext{
		query:     query,
		embedding: embedding,
		at:        time.Now(),
	})
	if n := len(m.queryHistory) - m.Config.ContextWindowSize; n > 0 {
		m.queryHistory = m.queryHistory[n:]
	}
}

// QueryWindow returns the queries currently in the context window,
// oldest first.
func (m *Manager) QueryWindow() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.queryHistory))
	for i, qc := range m.queryHistory {
		out[i] = qc.query
	}
	return out
}
