package mined

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mariusgiger/feesim-stream/internal/mempool"
)

func txsWithFeeRates(rates ...float64) []mempool.Tx {
	txs := make([]mempool.Tx, len(rates))
	for i, r := range rates {
		txs[i] = mempool.Tx{TxID: string(rune('a' + i)), Size: 250, FeeRate: r}
	}
	return txs
}

func TestComputeBasicShape(t *testing.T) {
	txs := txsWithFeeRates(10, 8, 6, 4, 2)
	summary := Compute(txs, 9*time.Minute, time.Unix(0, 0))

	assert.Equal(t, 5, summary.Txs)
	assert.InDelta(t, 5*250.0/1000000, summary.BlockSize, 1e-9)
	assert.Equal(t, 9.0, summary.IBI)
	assert.Equal(t, 2.0, summary.MinFeeTx.FeeRate, "min fee tx is the lowest feeRate entry")
	assert.Len(t, summary.Fee, len(Quantiles))
}

func TestComputeEmptyRemovedSet(t *testing.T) {
	summary := Compute(nil, 0, time.Unix(0, 0))
	assert.Equal(t, 0, summary.Txs)
	assert.Equal(t, mempool.Tx{}, summary.MinFeeTx)
	for _, q := range Quantiles {
		assert.Equal(t, 0.0, summary.Fee[quantileKey(q)])
	}
}

// TestQuantileTailMeanOffByOneBoundary pins the preserved off-by-one
// behavior: with exactly 10 entries and quantile 0.4, the strict ">"
// comparison against threshold=6 selects indices 7,8,9 (3 entries), not
// the 4 a ">=" comparison would select.
func TestQuantileTailMeanOffByOneBoundary(t *testing.T) {
	descByFeeRate := []mempool.Tx{
		{FeeRate: 10}, {FeeRate: 9}, {FeeRate: 8}, {FeeRate: 7}, {FeeRate: 6},
		{FeeRate: 5}, {FeeRate: 4}, {FeeRate: 3}, {FeeRate: 2}, {FeeRate: 1},
	}

	got := quantileTailMean(descByFeeRate, 0.4)
	want := (3.0 + 2.0 + 1.0) / 3.0
	assert.InDelta(t, want, got, 1e-9, "strict '>' boundary selects the last 3 entries, not 4")
}

func TestQuantileTailMeanSingleEntryFallback(t *testing.T) {
	got := quantileTailMean([]mempool.Tx{{FeeRate: 42}}, 0.001)
	assert.Equal(t, 42.0, got, "degenerate selection falls back to the single lowest feeRate entry")
}

func TestQuantileKeyMatchesLiteralSpecKeys(t *testing.T) {
	for _, tc := range []struct {
		q    float64
		want string
	}{
		{0.4, "0.4"},
		{0.2, "0.2"},
		{0.1, "0.1"},
		{0.05, "0.05"},
		{0.01, "0.01"},
		{0.005, "0.005"},
		{0.001, "0.001"},
	} {
		assert.Equal(t, tc.want, quantileKey(tc.q))
	}
}
