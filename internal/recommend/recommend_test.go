package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mariusgiger/feesim-stream/internal/kinematics"
)

func TestFeeDiffRetainsOnlyNonIncreasingEntries(t *testing.T) {
	now := time.Unix(0, 0)
	estimates := []kinematics.Estimate{
		{TargetBlock: 1, FeeRate: 40, Timestamp: now},
		{TargetBlock: 2, FeeRate: 30, Timestamp: now}, // diff = -10, retained
		{TargetBlock: 3, FeeRate: 35, Timestamp: now}, // diff = +5, dropped
		{TargetBlock: 4, FeeRate: 20, Timestamp: now}, // diff = (20-35)/1 = -15 vs target 3, retained; see note below
	}

	entries := FeeDiff(estimates)

	// target 1 always kept as the series seed with diff 0.
	assert.Equal(t, 1, entries[0].TargetBlock)
	assert.Equal(t, 0.0, entries[0].Diff)

	// target 2 kept: diff = (30-40)/1 = -10.
	assert.Equal(t, 2, entries[1].TargetBlock)
	assert.InDelta(t, -10.0, entries[1].Diff, 1e-9)

	// target 3 dropped (diff positive), target 4 compared against
	// target 3 (the "previous by index", per spec's sequential slope
	// definition) regardless of whether 3 survived filtering.
	for _, e := range entries {
		assert.NotEqual(t, 3, e.TargetBlock)
	}
}

func TestFeeDiffEmptyInput(t *testing.T) {
	assert.Nil(t, FeeDiff(nil))
}

func TestRecommendationsRanksValidEntriesByCost(t *testing.T) {
	now := time.Unix(0, 0)
	series := []DiffEntry{
		{TargetBlock: 1, FeeRate: 40, Timestamp: now, Diff: 0},
		{TargetBlock: 2, FeeRate: 30, Timestamp: now, Diff: -10},
		{TargetBlock: 4, FeeRate: 10, Timestamp: now, Diff: -20},
	}

	recs := Recommendations(series, 0.05)

	for _, r := range recs {
		assert.True(t, r.Valid)
		assert.NotEqual(t, 1, r.TargetBlock, "target 1's diff=0 is a definitional base case, not a real zero-cost signal")
	}
	// Ranked ascending by cost; the head is the best (lowest-cost) pick.
	if len(recs) > 1 {
		assert.LessOrEqual(t, cost(recs[0]), cost(recs[1]))
	}
}

func TestRecommendationsZeroDiffAlwaysValid(t *testing.T) {
	now := time.Unix(0, 0)
	series := []DiffEntry{
		{TargetBlock: 1, FeeRate: 40, Timestamp: now, Diff: 0},
		{TargetBlock: 2, FeeRate: 40, Timestamp: now, Diff: 0},
	}
	recs := Recommendations(series, 1.0) // impossibly high threshold
	assert.Len(t, recs, 1, "only the non-seed zero-diff entry is valid")
	assert.Equal(t, 2, recs[0].TargetBlock)
	assert.True(t, recs[0].Valid)
}

// TestRecommendationsFirstEntryNeverAutoValid pins spec §8 scenario 5
// (feeRates=[100,95,94,94], minSavingsRate=0.02): only targets 2 and 4 are
// valid, even though target 1's diff is 0 by construction.
func TestRecommendationsFirstEntryNeverAutoValid(t *testing.T) {
	now := time.Unix(0, 0)
	series := []DiffEntry{
		{TargetBlock: 1, FeeRate: 100, Timestamp: now, Diff: 0},
		{TargetBlock: 2, FeeRate: 95, Timestamp: now, Diff: -5},
		{TargetBlock: 3, FeeRate: 94, Timestamp: now, Diff: -1},
		{TargetBlock: 4, FeeRate: 94, Timestamp: now, Diff: 0},
	}

	recs := Recommendations(series, 0.02)

	got := make(map[int]bool)
	for _, r := range recs {
		got[r.TargetBlock] = true
	}
	assert.Equal(t, map[int]bool{2: true, 4: true}, got)
}
