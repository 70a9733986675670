package hipporag

import (
	"context"
	"fmt"
)

// Recall returns up to limit facts ranked by similarity to the query.
// Each hit counts as an access: its access counter and last-access time
// advance, and an access event with the computed similarity is recorded.
// The query also enters the recent-query window.
func (m *Manager) Recall(ctx context.Context, query string, limit int) ([]Fact, error) {
	if limit <= 0 {
		limit = m.Config.RecallLimit
	}

	qv, err := m.Embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	m.AddQueryContext(query, qv)

	repos, ok := m.repos()
	if !ok {
		return nil, nil
	}

	hits, err := repos.Fact().SearchByEmbedding(m.Config.Namespace, qv, limit, limit*10)
	if err != nil {
		return nil, err
	}

	facts := make([]Fact, 0, len(hits))
	for _, h := range hits {
		if err := repos.Fact().RecordAccess(h.Fact.ID); err != nil {
			m.log.WithError(err).WithField("fact_id", h.Fact.ID).Warn("failed to record fact access")
		}
		if err := repos.Access().Append(h.Fact.ID, query, h.Score); err != nil {
			m.log.WithError(err).WithField("fact_id", h.Fact.ID).Warn("failed to append access event")
		}
		f := factFromRecord(h.Fact)
		f.Score = h.Score
		facts = append(facts, f)
	}
	return facts, nil
}
