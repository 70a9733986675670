package hipporag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Ctrl-Creeper/HippoRAG/embed"
	"github.com/Ctrl-Creeper/HippoRAG/storage"
)

// relevantContextCap saturates the frequency term: five relevant accesses
// count as fully frequent.
const relevantContextCap = 5

// scoreActivation computes the context-aware activation of a fact:
// weighted sum of semantic relevance to the recent-query window,
// exponential recency decay since last access, and saturating access
// frequency. Weights are normalized to sum to 1, so the score stays in
// [0, 1] when the relevance term does.
func (m *Manager) scoreActivation(rec storage.FactRecord, window [][]float32, relevantContexts int64, now time.Time) float64 {
	relW, recW, freqW := m.Config.normalizedWeights()

	relevance := 0.0
	if len(window) > 0 && len(rec.Embedding) > 0 {
		fv := embed.DecodeVector(rec.Embedding)
		for _, qv := range window {
			if s := embed.CosineSimilarity(fv, qv); s > relevance {
				relevance = s
			}
		}
	}

	days := now.Sub(rec.LastAccess).Hours() / 24
	if days < 0 {
		days = 0
	}
	recency := math.Exp(-m.Config.DecayRate * days)

	frequency := math.Min(1, float64(relevantContexts)/relevantContextCap)

	return relW*relevance + recW*recency + freqW*frequency
}

// windowEmbeddings snapshots the query-window vectors under the lock.
func (m *Manager) windowEmbeddings() [][]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]float32, 0, len(m.queryHistory))
	for _, qc := range m.queryHistory {
		if qc.embedding != nil {
			out = append(out, qc.embedding)
		}
	}
	return out
}

// recomputeActivations scores every fact in the namespace against the
// current query window. With persist set, the new scores are written back.
func (m *Manager) recomputeActivations(repos storage.Repos, persist bool) ([]Fact, error) {
	recs, err := repos.Fact().List(m.Config.Namespace)
	if err != nil {
		return nil, err
	}

	window := m.windowEmbeddings()
	now := time.Now()

	facts := make([]Fact, 0, len(recs))
	for _, rec := range recs {
		relevant, err := repos.Access().CountRelevant(rec.ID, m.Config.RelevanceThreshold)
		if err != nil {
			m.log.WithError(err).WithField("fact_id", rec.ID).Warn("failed to count relevant accesses")
		}
		score := m.scoreActivation(rec, window, relevant, now)
		if persist {
			if err := repos.Fact().UpdateActivation(rec.ID, score); err != nil {
				m.log.WithError(err).WithField("fact_id", rec.ID).Warn("failed to persist activation")
			}
		}
		f := factFromRecord(rec)
		f.Activation = score
		facts = append(facts, f)
	}
	return facts, nil
}

// RefreshActivation recomputes and persists activation scores for every
// fact, with the given query added to the context window first.
func (m *Manager) RefreshActivation(ctx context.Context, query string) error {
	if query != "" {
		qv, err := m.Embedder.EmbedText(ctx, query)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		m.AddQueryContext(query, qv)
	}

	repos, ok := m.repos()
	if !ok {
		return nil
	}
	_, err := m.recomputeActivations(repos, true)
	return err
}

// ActivationStatus reports how active the store is for a query without
// mutating anything: bucketed activation counts and the top five facts.
func (m *Manager) ActivationStatus(ctx context.Context, query string) (*ActivationSummary, error) {
	summary := &ActivationSummary{
		Query:             query,
		ContextWindowSize: m.Config.ContextWindowSize,
	}

	repos, ok := m.repos()
	if !ok {
		return summary, nil
	}

	recs, err := repos.Fact().List(m.Config.Namespace)
	if err != nil {
		return nil, err
	}

	window := m.windowEmbeddings()
	if query != "" {
		if qv, err := m.Embedder.EmbedText(ctx, query); err == nil {
			window = append(window, qv)
		}
	}
	now := time.Now()

	scored := make([]FactActivation, 0, len(recs))
	var sum float64
	for _, rec := range recs {
		relevant, err := repos.Access().CountRelevant(rec.ID, m.Config.RelevanceThreshold)
		if err != nil {
			m.log.WithError(err).WithField("fact_id", rec.ID).Warn("failed to count relevant accesses")
		}
		score := m.scoreActivation(rec, window, relevant, now)
		sum += score

		switch {
		case score > 0.7:
			summary.Buckets.High++
		case score >= 0.3:
			summary.Buckets.Medium++
		case score >= 0.05:
			summary.Buckets.Low++
		default:
			summary.Buckets.Inactive++
		}
		scored = append(scored, FactActivation{Fact: factFromRecord(rec), Activation: score})
	}

	summary.Total = len(scored)
	if summary.Total > 0 {
		summary.Buckets.Average = sum / float64(summary.Total)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Activation != scored[j].Activation {
			return scored[i].Activation > scored[j].Activation
		}
		return scored[i].Fact.ID < scored[j].Fact.ID
	})
	if len(scored) > 5 {
		scored = scored[:5]
	}
	summary.Top = scored
	return summary, nil
}

// ApplyContextAwareMemoryDecay recomputes activations against the current
// query window, ranks facts by activation and keeps the top
// round(retentionRatio * total). The rest are reported as forgotten and,
// with autoForget set, deleted together with their access events.
func (m *Manager) ApplyContextAwareMemoryDecay(ctx context.Context, retentionRatio float64, autoForget bool) (*DecayReport, error) {
	if retentionRatio < 0 || retentionRatio > 1 {
		return nil, fmt.Errorf("%w: retention ratio %v outside [0,1]", ErrConfiguration, retentionRatio)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &DecayReport{}
	repos, ok := m.repos()
	if !ok {
		return report, nil
	}

	facts, err := m.recomputeActivations(repos, true)
	if err != nil {
		return nil, err
	}
	report.Total = len(facts)
	report.RetainTarget = int(math.Round(retentionRatio * float64(len(facts))))

	sort.Slice(facts, func(i, j int) bool {
		if facts[i].Activation != facts[j].Activation {
			return facts[i].Activation > facts[j].Activation
		}
		if !facts[i].LastAccess.Equal(facts[j].LastAccess) {
			return facts[i].LastAccess.After(facts[j].LastAccess)
		}
		return facts[i].ID < facts[j].ID
	})

	report.Retained = facts[:min(report.RetainTarget, len(facts))]
	report.Forgotten = facts[len(report.Retained):]

	if autoForget && len(report.Forgotten) > 0 {
		ids := make([]int64, len(report.Forgotten))
		for i, f := range report.Forgotten {
			ids[i] = f.ID
		}
		n, err := repos.Fact().Delete(ids)
		if err != nil {
			return nil, fmt.Errorf("forget facts: %w", err)
		}
		if err := repos.Access().DeleteForFacts(ids); err != nil {
			m.log.WithError(err).Warn("failed to delete access events of forgotten facts")
		}
		report.AutoForgot = int(n)
	}

	m.log.WithFields(map[string]any{
		"total":       report.Total,
		"retained":    len(report.Retained),
		"forgotten":   len(report.Forgotten),
		"auto_forgot": report.AutoForgot,
	}).Info("memory decay applied")
	return report, nil
}

// ManualCleanupLowActivationMemories selects facts whose stored activation
// is strictly below threshold. With dryRun set nothing is mutated, so the
// call can preview exactly what a real run would delete.
func (m *Manager) ManualCleanupLowActivationMemories(ctx context.Context, threshold float64, dryRun bool) (*CleanupReport, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: activation threshold %v outside [0,1]", ErrConfiguration, threshold)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &CleanupReport{Threshold: threshold, DryRun: dryRun}
	repos, ok := m.repos()
	if !ok {
		return report, nil
	}

	recs, err := repos.Fact().List(m.Config.Namespace)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.Activation < threshold {
			report.Selected = append(report.Selected, factFromRecord(rec))
		}
	}

	if dryRun || len(report.Selected) == 0 {
		return report, nil
	}

	ids := make([]int64, len(report.Selected))
	for i, f := range report.Selected {
		ids[i] = f.ID
	}
	n, err := repos.Fact().Delete(ids)
	if err != nil {
		return nil, fmt.Errorf("cleanup facts: %w", err)
	}
	if err := repos.Access().DeleteForFacts(ids); err != nil {
		m.log.WithError(err).Warn("failed to delete access events of cleaned facts")
	}
	report.Deleted = int(n)

	m.log.WithFields(map[string]any{
		"threshold": threshold,
		"deleted":   report.Deleted,
	}).Info("low-activation cleanup applied")
	return report, nil
}
