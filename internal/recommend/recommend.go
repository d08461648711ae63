// Package recommend derives the published fee-rate recommendation curve
// from the latest FeeEstimate of each tracked target block (spec §4.7).
package recommend

import (
	"math"
	"sort"
	"time"

	"github.com/mariusgiger/feesim-stream/internal/kinematics"
)

// Targets is the fixed target-block range the recommendation curve is
// computed over (spec §4.7).
var Targets = []int{1, 2, 3, 4}

// DiffEntry is one point of the published FeeDiff curve
// (com.fee.feediff, spec §6).
type DiffEntry struct {
	TargetBlock int       `json:"targetBlock"`
	FeeRate     float64   `json:"feeRate"`
	Timestamp   time.Time `json:"timestamp"`
	Diff        float64   `json:"diff"`
}

// RecommendationEntry is one ranked point of the published minDiff list
// (com.fee.mindiff, spec §6).
type RecommendationEntry struct {
	TargetBlock int       `json:"targetBlock"`
	FeeRate     float64   `json:"feeRate"`
	Timestamp   time.Time `json:"timestamp"`
	Diff        float64   `json:"diff"`
	CumDiff     float64   `json:"cumDiff"`
	Valid       bool      `json:"valid"`
}

// FeeDiff combines the latest FeeEstimate of each target in Targets into
// the marginal-slope series, retaining only entries with diff <= 0
// (spec §4.7).
func FeeDiff(estimates []kinematics.Estimate) []DiffEntry {
	if len(estimates) == 0 {
		return nil
	}

	sorted := make([]kinematics.Estimate, len(estimates))
	copy(sorted, estimates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TargetBlock < sorted[j].TargetBlock })

	entries := make([]DiffEntry, 0, len(sorted))
	var prev kinematics.Estimate
	for i, e := range sorted {
		var d float64
		if i > 0 {
			denom := float64(e.TargetBlock - prev.TargetBlock)
			if denom != 0 {
				d = (e.FeeRate - prev.FeeRate) / denom
			}
		}
		if i == 0 || d <= 0 {
			entries = append(entries, DiffEntry{
				TargetBlock: e.TargetBlock,
				FeeRate:     e.FeeRate,
				Timestamp:   e.Timestamp,
				Diff:        d,
			})
		}
		prev = e
	}
	return entries
}

// Recommendations ranks the valid entries of a FeeDiff series ascending
// by cost, per spec §4.7. minSavingsRate is the configured relative
// discount threshold (constants.minSavingsRate).
func Recommendations(series []DiffEntry, minSavingsRate float64) []RecommendationEntry {
	entries := make([]RecommendationEntry, 0, len(series))

	var cumDiff float64
	var prevFeeRate float64
	for i, d := range series {
		cumDiff += d.Diff

		// diff is <= 0 by construction (FeeDiff only retains non-increasing
		// entries); -diff/prevFeeRate is the fractional savings from
		// waiting one more step, compared against the configured floor.
		// The first entry's diff is 0 by definition (there is no earlier
		// series entry to compare against), not a real zero-marginal-cost
		// signal, so it is never auto-valid on that basis alone.
		var valid bool
		if i > 0 && prevFeeRate != 0 {
			valid = d.Diff == 0 || -d.Diff/prevFeeRate >= minSavingsRate
		}

		entries = append(entries, RecommendationEntry{
			TargetBlock: d.TargetBlock,
			FeeRate:     d.FeeRate,
			Timestamp:   d.Timestamp,
			Diff:        d.Diff,
			CumDiff:     cumDiff,
			Valid:       valid,
		})
		prevFeeRate = d.FeeRate
	}

	valid := entries[:0:0]
	for _, e := range entries {
		if e.Valid {
			valid = append(valid, e)
		}
	}

	sort.Slice(valid, func(i, j int) bool { return cost(valid[i]) < cost(valid[j]) })
	return valid
}

// cost is the recommendation ranking function: sqrt(diff*cumDiff)/targetBlock
// (spec §4.7). diff*cumDiff is expected non-negative for valid entries
// (both are <= 0 on a healthy decreasing curve); Abs guards against
// floating-point sign noise at the boundary.
func cost(e RecommendationEntry) float64 {
	if e.TargetBlock == 0 {
		return math.Inf(1)
	}
	return math.Sqrt(math.Abs(e.Diff*e.CumDiff)) / float64(e.TargetBlock)
}
