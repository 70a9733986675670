package hipporag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecayRejectsBadRatio(t *testing.T) {
	m := New(WithLogger(quietLogger()))
	for _, ratio := range []float64{-0.1, 1.1} {
		_, err := m.ApplyContextAwareMemoryDecay(context.Background(), ratio, false)
		assert.ErrorIs(t, err, ErrConfiguration)
	}
}

func TestDecayRetentionRounding(t *testing.T) {
	m := newStoreManager(t, "decayround")
	ctx := context.Background()

	seedFact(t, m, "a", "is", "1")
	seedFact(t, m, "b", "is", "2")
	seedFact(t, m, "c", "is", "3")
	seedFact(t, m, "d", "is", "4")
	seedFact(t, m, "e", "is", "5")

	// round(0.5 * 5) = 3
	report, err := m.ApplyContextAwareMemoryDecay(ctx, 0.5, false)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 3, report.RetainTarget)
	assert.Len(t, report.Retained, 3)
	assert.Len(t, report.Forgotten, 2)
	assert.Zero(t, report.AutoForgot)

	// Without autoForget nothing is deleted.
	assert.Len(t, listFacts(t, m), 5)
}

func TestDecayAutoForgetDeletesLowActivation(t *testing.T) {
	m := newStoreManager(t, "decayforget")
	ctx := context.Background()

	keep := seedFact(t, m, "cat", "eats", "fish")
	seedFact(t, m, "old rumor", "claims", "something")
	seedFact(t, m, "older rumor", "claims", "something else")

	// Make one fact clearly relevant to the active context.
	require.NoError(t, m.RefreshActivation(ctx, "cat eats fish"))

	report, err := m.ApplyContextAwareMemoryDecay(ctx, 1.0/3.0, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RetainTarget)
	assert.Equal(t, 2, report.AutoForgot)

	facts := listFacts(t, m)
	require.Len(t, facts, 1)
	assert.Equal(t, keep, facts[0].ID)
}

func TestDecayRetentionBoundaries(t *testing.T) {
	m := newStoreManager(t, "decaybounds")
	ctx := context.Background()

	seedFact(t, m, "a", "is", "1")
	seedFact(t, m, "b", "is", "2")

	report, err := m.ApplyContextAwareMemoryDecay(ctx, 1.0, true)
	require.NoError(t, err)
	assert.Equal(t, 2, report.RetainTarget)
	assert.Zero(t, report.AutoForgot)
	assert.Len(t, listFacts(t, m), 2)

	report, err = m.ApplyContextAwareMemoryDecay(ctx, 0, true)
	require.NoError(t, err)
	assert.Zero(t, report.RetainTarget)
	assert.Equal(t, 2, report.AutoForgot)
	assert.Empty(t, listFacts(t, m))
}

func TestDecayWithoutStore(t *testing.T) {
	m := New(WithLogger(quietLogger()))
	report, err := m.ApplyContextAwareMemoryDecay(context.Background(), 0.5, true)
	require.NoError(t, err)
	assert.Zero(t, report.Total)
}

func TestManualCleanup(t *testing.T) {
	m := newStoreManager(t, "cleanup")
	ctx := context.Background()

	ids := []int64{
		seedFact(t, m, "a", "is", "1"),
		seedFact(t, m, "b", "is", "2"),
		seedFact(t, m, "c", "is", "3"),
		seedFact(t, m, "d", "is", "4"),
	}
	repos, _ := m.repos()
	for i, act := range []float64{0.9, 0.5, 0.2, 0.05} {
		require.NoError(t, repos.Fact().UpdateActivation(ids[i], act))
	}

	// Dry run selects without mutating.
	report, err := m.ManualCleanupLowActivationMemories(ctx, 0.3, true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Len(t, report.Selected, 2)
	assert.Zero(t, report.Deleted)
	assert.Len(t, listFacts(t, m), 4)

	// Real run deletes the same selection.
	report, err = m.ManualCleanupLowActivationMemories(ctx, 0.3, false)
	require.NoError(t, err)
	assert.Len(t, report.Selected, 2)
	assert.Equal(t, 2, report.Deleted)
	assert.Len(t, listFacts(t, m), 2)

	// A second run finds nothing left below the threshold.
	report, err = m.ManualCleanupLowActivationMemories(ctx, 0.3, false)
	require.NoError(t, err)
	assert.Empty(t, report.Selected)
	assert.Zero(t, report.Deleted)
}

func TestManualCleanupThresholdIsExclusive(t *testing.T) {
	m := newStoreManager(t, "cleanupedge")
	ctx := context.Background()

	id := seedFact(t, m, "a", "is", "1")
	repos, _ := m.repos()
	require.NoError(t, repos.Fact().UpdateActivation(id, 0.3))

	// activation == threshold survives
	report, err := m.ManualCleanupLowActivationMemories(ctx, 0.3, false)
	require.NoError(t, err)
	assert.Empty(t, report.Selected)
	assert.Len(t, listFacts(t, m), 1)
}

func TestManualCleanupRejectsBadThreshold(t *testing.T) {
	m := New(WithLogger(quietLogger()))
	_, err := m.ManualCleanupLowActivationMemories(context.Background(), 1.5, false)
	assert.ErrorIs(t, err, ErrConfiguration)
}
