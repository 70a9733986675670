package storage

import (
	"strings"
	"time"
)

func decodeAnyTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		return parseTimeString(x)
	case []byte:
		return parseTimeString(string(x))
	default:
		return time.Time{}, false
	}
}

func parseTimeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	// Common layouts:
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05", // SQLite datetime('now')
		"2006-01-02 15:04:05.999999999",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Repos interface for driver operations
type Repos interface {
	Fact() FactRepo
	Access() AccessRepo
	Audit() AuditRepo
}

// FactRecord is a stored subject-predicate-object triple with its
// activation metadata.
type FactRecord struct {
	ID          int64
	UUID        string
	Namespace   string
	Subject     string
	Predicate   string
	Object      string
	Uncertain   bool
	Embedding   []byte
	Activation  float64
	AccessCount int64
	LastAccess  time.Time
	CreatedAt   time.Time
}

// FactUpsert carries the writable fields of a fact. Uniq is the dedup key
// within a namespace; upserting an existing (namespace, uniq) pair
// reinforces the stored fact instead of inserting a duplicate.
type FactUpsert struct {
	Subject    string
	Predicate  string
	Object     string
	Uncertain  bool
	Embedding  []byte
	Activation float64
	Uniq       string
}

type FactSearchResult struct {
	Fact  FactRecord
	Score float64
}

type FactRepo interface {
	Upsert(namespace string, f FactUpsert) (int64, error)
	List(namespace string) ([]FactRecord, error)
	Delete(ids []int64) (int64, error)
	UpdateObject(id int64, object string, uncertain bool, uniq string) error
	UpdateActivation(id int64, activation float64) error
	RecordAccess(id int64) error
	SearchByEmbedding(namespace string, queryEmbedding []float32, limit, scanLimit int) ([]FactSearchResult, error)
}

type AccessRepo interface {
	Append(factID int64, query string, similarity float64) error
	CountRelevant(factID int64, minSimilarity float64) (int64, error)
	DeleteForFacts(ids []int64) error
}

// AuditRecord is one resolved conflict, kept for review.
type AuditRecord struct {
	UUID           string
	Namespace      string
	Subject        string
	Predicate      string
	OldObject      string
	NewObject      string
	OldAccessCount int64
	NewAccessCount int64
	Strategy       string
	Result         string
	Notes          string
	CreatedAt      time.Time
}

type AuditRepo interface {
	Append(rec AuditRecord) error
	List(namespace string) ([]AuditRecord, error)
	CountByStrategy(namespace string) (map[string]int64, error)
}
