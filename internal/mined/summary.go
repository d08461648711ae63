// Package mined computes the MinedSummary published whenever a diff
// result is classified as a mined block event (spec §4.4).
package mined

import (
	"sort"
	"strconv"
	"time"

	"github.com/mariusgiger/feesim-stream/internal/mempool"
)

// Quantiles are the fixed tail slices the spec requires (§4.4). For each q,
// Compute reports the mean feeRate of the lowest-feeRate tail as selected
// by quantileTailMean: the last ceil(|txs|*q)-1 entries when sorted
// descending by feeRate, or the single lowest entry when that count is 0
// (see quantileTailMean for the preserved boundary rule).
var Quantiles = []float64{0.4, 0.2, 0.1, 0.05, 0.01, 0.005, 0.001}

// Summary is the MinedSummary payload for com.fee.minedtxssummary
// (spec §3, §4.4, §6).
type Summary struct {
	Timestamp time.Time          `json:"timestamp"`
	Txs       int                `json:"txs"`
	BlockSize float64            `json:"blockSize"` // megabytes
	IBI       float64            `json:"ibi"`       // minutes
	MinFeeTx  mempool.Tx         `json:"minFeeTx"`
	Fee       map[string]float64 `json:"fee"` // quantile (as string key, e.g. "0.4") -> mean feeRate
}

// Compute builds a Summary from the removed transaction set of a mined
// event and the most recent inter-block interval (spec §4.4).
func Compute(removed []mempool.Tx, ibi time.Duration, at time.Time) Summary {
	sorted := make([]mempool.Tx, len(removed))
	copy(sorted, removed)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FeeRate > sorted[j].FeeRate })

	var totalSize float64
	for _, tx := range sorted {
		totalSize += tx.Size
	}

	fee := make(map[string]float64, len(Quantiles))
	for _, q := range Quantiles {
		fee[quantileKey(q)] = quantileTailMean(sorted, q)
	}

	var minFeeTx mempool.Tx
	if len(sorted) > 0 {
		minFeeTx = sorted[len(sorted)-1]
	}

	return Summary{
		Timestamp: at,
		Txs:       len(sorted),
		BlockSize: totalSize / 1000000,
		IBI:       ibi.Minutes(),
		MinFeeTx:  minFeeTx,
		Fee:       fee,
	}
}

// quantileTailMean computes the arithmetic mean of feeRate over the tail
// of sorted (descending feeRate) entries selected by q.
//
// DESIGN.md Open Question #1: the source selects the tail with
// `i > len(xs)*(1-quantile)` rather than `i >= len(xs)*(1-quantile)`,
// which shifts the boundary by one element whenever len(xs)*(1-quantile)
// is an exact integer. This implementation preserves that off-by-one for
// behavioral parity rather than "fixing" it to `>=`, since spec.md flags
// it as an open question rather than a defect to correct.
func quantileTailMean(sortedDesc []mempool.Tx, quantile float64) float64 {
	n := len(sortedDesc)
	if n == 0 {
		return 0
	}

	threshold := float64(n) * (1 - quantile)
	var sum float64
	var count int
	for i, tx := range sortedDesc {
		if float64(i) > threshold {
			sum += tx.FeeRate
			count++
		}
	}
	if count == 0 {
		// Degenerate: quantile so fine no index clears the threshold.
		// Fall back to the single lowest-feeRate tx so small mined
		// events still produce a usable estimate.
		return sortedDesc[n-1].FeeRate
	}
	return sum / float64(count)
}

// quantileKey renders a quantile as the literal decimal string the spec
// uses for its Fee map keys (e.g. "0.4", "0.001"). The fixed Quantiles
// set above contains no value that needs more than 3 decimal digits of
// precision, so strconv's shortest round-trip representation is exact.
func quantileKey(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
