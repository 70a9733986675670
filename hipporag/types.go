package hipporag

import (
	"fmt"
	"time"

	"github.com/Ctrl-Creeper/HippoRAG/storage"
)

// Fact is an extracted subject-predicate-object triple with activation
// metadata. Uncertain marks facts produced by a merge resolution.
type Fact struct {
	ID          int64
	Subject     string
	Predicate   string
	Object      string
	Uncertain   bool
	Activation  float64
	AccessCount int64
	LastAccess  time.Time
	CreatedAt   time.Time

	// Score is the similarity to the query that recalled this fact;
	// zero outside recall results.
	Score float64
}

func factFromRecord(rec storage.FactRecord) Fact {
	return Fact{
		ID:          rec.ID,
		Subject:     rec.Subject,
		Predicate:   rec.Predicate,
		Object:      rec.Object,
		Uncertain:   rec.Uncertain,
		Activation:  rec.Activation,
		AccessCount: rec.AccessCount,
		LastAccess:  rec.LastAccess,
		CreatedAt:   rec.CreatedAt,
	}
}

// Strategy selects how a fact conflict is resolved.
type Strategy string

const (
	// StrategyKeepNew replaces the old fact with the new one.
	StrategyKeepNew Strategy = "keep_new"
	// StrategyKeepOld retains the old fact and discards the new one.
	StrategyKeepOld Strategy = "keep_old"
	// StrategyMerge folds both objects into one uncertain fact.
	StrategyMerge Strategy = "merge"
	// StrategyKeepFrequent keeps whichever fact was accessed more often
	// (tie goes to the new fact).
	StrategyKeepFrequent Strategy = "keep_frequent"
)

func (s Strategy) valid() bool {
	switch s {
	case StrategyKeepNew, StrategyKeepOld, StrategyMerge, StrategyKeepFrequent:
		return true
	}
	return false
}

// ParseStrategy maps a strategy name onto a Strategy value.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(name)
	if !s.valid() {
		return "", fmt.Errorf("%w: unknown resolution strategy %q", ErrConfiguration, name)
	}
	return s, nil
}

// Conflict is a pair of facts sharing subject+predicate with differing
// objects. Old is the earlier-created fact.
type Conflict struct {
	Old Fact
	New Fact
}

// ConflictRecord is one resolved conflict.
type ConflictRecord struct {
	Conflict
	Strategy  Strategy
	Result    string // the object the store ends up with
	Notes     string
	Timestamp time.Time
}

// DecayReport describes one decay pass. Forgotten lists the candidates
// below the retention cut; AutoForgot is how many were actually deleted.
type DecayReport struct {
	Total        int
	RetainTarget int
	Retained     []Fact
	Forgotten    []Fact
	AutoForgot   int
}

// CleanupReport lists the facts selected below the activation threshold.
// With DryRun set nothing was mutated; otherwise Deleted confirms the
// removal count.
type CleanupReport struct {
	Threshold float64
	Selected  []Fact
	DryRun    bool
	Deleted   int
}

// ConflictReport carries the staged (or applied) conflict resolutions.
type ConflictReport struct {
	Strategy          Strategy
	ConflictsDetected int
	Records           []ConflictRecord
	ToDelete          []Fact
	ToUpdate          []Fact // staged post-merge states
	Applied           bool
}

// ActivationBuckets summarizes activation scores for one scope.
type ActivationBuckets struct {
	High     int // > 0.7
	Medium   int // 0.3 - 0.7
	Low      int // 0.05 - 0.3
	Inactive int // <= 0.05
	Average  float64
}

// FactActivation pairs a fact with its computed activation.
type FactActivation struct {
	Fact       Fact
	Activation float64
}

// ActivationSummary reports how active the store is for a query.
type ActivationSummary struct {
	Query             string
	ContextWindowSize int
	Total             int
	Buckets           ActivationBuckets
	Top               []FactActivation // highest five
}

// ConflictSummary aggregates the persisted conflict audit log.
type ConflictSummary struct {
	TotalConflicts int64
	StrategiesUsed map[string]int64
	LatestConflict time.Time
}
