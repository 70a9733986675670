package hipporag

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Ctrl-Creeper/HippoRAG/storage"
)

// resolution is one staged outcome of a conflicting fact pair.
type resolution struct {
	record ConflictRecord
	delete *Fact
	update *Fact // post-merge state of the surviving row
}

// DetectAndResolveFactConflicts scans the namespace for facts sharing a
// subject and predicate (case-insensitive) with differing objects, and
// resolves each pair under the given strategy. Without autoApply the
// resolutions are only staged in the report; with it, the store is
// mutated and every resolution lands in the audit log.
func (m *Manager) DetectAndResolveFactConflicts(ctx context.Context, strategy Strategy, autoApply bool) (*ConflictReport, error) {
	if !strategy.valid() {
		return nil, fmt.Errorf("%w: unknown resolution strategy %q", ErrConfiguration, strategy)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &ConflictReport{Strategy: strategy}
	repos, ok := m.repos()
	if !ok {
		return report, nil
	}

	recs, err := repos.Fact().List(m.Config.Namespace)
	if err != nil {
		return nil, err
	}

	groups := map[string][]Fact{}
	var order []string
	for _, rec := range recs {
		key := normalizeTerm(rec.Subject) + "\x00" + normalizeTerm(rec.Predicate)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], factFromRecord(rec))
	}

	var resolutions []resolution
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if !group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].CreatedAt.Before(group[j].CreatedAt)
			}
			return group[i].ID < group[j].ID
		})

		// Fold the group oldest-first: the survivor of each pair faces
		// the next fact.
		winner := group[0]
		for _, next := range group[1:] {
			if normalizeTerm(winner.Object) == normalizeTerm(next.Object) {
				// Same statement, not a conflict.
				continue
			}
			res := m.resolvePair(winner, next, strategy)
			resolutions = append(resolutions, res)
			if res.update != nil {
				winner = *res.update
			} else if res.delete != nil && res.delete.ID == winner.ID {
				winner = next
			}
		}
	}

	for _, res := range resolutions {
		if res.record.Strategy != "" {
			report.Records = append(report.Records, res.record)
		}
		if res.delete != nil {
			report.ToDelete = append(report.ToDelete, *res.delete)
		}
		if res.update != nil {
			report.ToUpdate = append(report.ToUpdate, *res.update)
		}
	}
	report.ConflictsDetected = len(report.Records)

	if !autoApply {
		return report, nil
	}

	for _, f := range report.ToUpdate {
		uniq := factUniq(f.Subject, f.Predicate, f.Object)
		if err := repos.Fact().UpdateObject(f.ID, f.Object, f.Uncertain, uniq); err != nil {
			return report, fmt.Errorf("apply merge on fact %d: %w", f.ID, err)
		}
	}
	if len(report.ToDelete) > 0 {
		ids := make([]int64, len(report.ToDelete))
		for i, f := range report.ToDelete {
			ids[i] = f.ID
		}
		if _, err := repos.Fact().Delete(ids); err != nil {
			return report, fmt.Errorf("apply deletions: %w", err)
		}
		if err := repos.Access().DeleteForFacts(ids); err != nil {
			m.log.WithError(err).Warn("failed to delete access events of resolved facts")
		}
	}
	for _, rec := range report.Records {
		audit := storage.AuditRecord{
			UUID:           uuid.New().String(),
			Namespace:      m.Config.Namespace,
			Subject:        rec.Old.Subject,
			Predicate:      rec.Old.Predicate,
			OldObject:      rec.Old.Object,
			NewObject:      rec.New.Object,
			OldAccessCount: rec.Old.AccessCount,
			NewAccessCount: rec.New.AccessCount,
			Strategy:       string(rec.Strategy),
			Result:         rec.Result,
			Notes:          rec.Notes,
			CreatedAt:      rec.Timestamp,
		}
		if err := repos.Audit().Append(audit); err != nil {
			m.log.WithError(err).Warn("failed to append conflict audit record")
		}
	}
	report.Applied = true

	m.log.WithFields(map[string]any{
		"strategy":  strategy,
		"conflicts": report.ConflictsDetected,
		"deleted":   len(report.ToDelete),
		"merged":    len(report.ToUpdate),
	}).Info("fact conflicts resolved")
	return report, nil
}

// resolvePair stages the outcome of one old/new conflict under a strategy.
func (m *Manager) resolvePair(old, new Fact, strategy Strategy) resolution {
	rec := ConflictRecord{
		Conflict:  Conflict{Old: old, New: new},
		Strategy:  strategy,
		Timestamp: time.Now(),
	}

	switch strategy {
	case StrategyKeepNew:
		rec.Result = new.Object
		rec.Notes = "new fact replaces old fact (recent information is prioritized)"
		return resolution{record: rec, delete: ptr(old)}

	case StrategyKeepOld:
		rec.Result = old.Object
		rec.Notes = "old fact retained (established information is prioritized)"
		return resolution{record: rec, delete: ptr(new)}

	case StrategyMerge:
		merged := old
		merged.Object = fmt.Sprintf("(%s or %s)", old.Object, new.Object)
		merged.Uncertain = true
		rec.Result = merged.Object
		rec.Notes = "objects merged into an uncertain fact"
		return resolution{record: rec, delete: ptr(new), update: &merged}

	case StrategyKeepFrequent:
		if old.AccessCount > new.AccessCount {
			rec.Result = old.Object
			rec.Notes = fmt.Sprintf("kept fact accessed %d times over fact accessed %d times", old.AccessCount, new.AccessCount)
			return resolution{record: rec, delete: ptr(new)}
		}
		// Tie goes to the newer fact.
		rec.Result = new.Object
		rec.Notes = fmt.Sprintf("kept fact accessed %d times over fact accessed %d times", new.AccessCount, old.AccessCount)
		return resolution{record: rec, delete: ptr(old)}
	}

	return resolution{}
}

// ConflictSummary aggregates the persisted conflict audit log for the
// namespace.
func (m *Manager) ConflictSummary(ctx context.Context) (*ConflictSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &ConflictSummary{StrategiesUsed: map[string]int64{}}
	repos, ok := m.repos()
	if !ok {
		return summary, nil
	}

	counts, err := repos.Audit().CountByStrategy(m.Config.Namespace)
	if err != nil {
		return nil, err
	}
	for strategy, n := range counts {
		summary.StrategiesUsed[strategy] = n
		summary.TotalConflicts += n
	}

	audits, err := repos.Audit().List(m.Config.Namespace)
	if err != nil {
		return nil, err
	}
	for _, a := range audits {
		if a.CreatedAt.After(summary.LatestConflict) {
			summary.LatestConflict = a.CreatedAt
		}
	}
	return summary, nil
}

func ptr(f Fact) *Fact { return &f }
