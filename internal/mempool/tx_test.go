package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mariusgiger/feesim-stream/internal/ports"
)

func TestFromRawEntryComputesFeeRate(t *testing.T) {
	tx, ok := FromRawEntry("abc", ports.RawMempoolEntry{Size: 500, Fee: 200, DescendantSize: 1000, DescendantFees: 500})
	assert.True(t, ok)
	assert.Equal(t, 0.5, tx.FeeRate)
}

func TestFromRawEntryRejectsZeroDescendantSize(t *testing.T) {
	_, ok := FromRawEntry("abc", ports.RawMempoolEntry{DescendantSize: 0, DescendantFees: 100})
	assert.False(t, ok)
}

func TestPackBoundary(t *testing.T) {
	// spec §8 scenario 3: blockEffectiveSize = 1,000,000; three txs of
	// sizes 600,000, 500,000, 100,000 with descending feeRate.
	txs := []Tx{
		{TxID: "a", Size: 600000, DescendantSize: 600000, DescendantFees: 600000 * 30, FeeRate: 30},
		{TxID: "b", Size: 500000, DescendantSize: 500000, DescendantFees: 500000 * 20, FeeRate: 20},
		{TxID: "c", Size: 100000, DescendantSize: 100000, DescendantFees: 100000 * 10, FeeRate: 10},
	}

	packed := Pack(txs, 1000000)
	assert.Equal(t, []int{1, 2, 2}, targetBlocks(packed))
	assert.Equal(t, []float64{600000, 1100000, 1200000}, cumSizes(packed))
}

func TestPackSingleTxLargerThanBlock(t *testing.T) {
	txs := []Tx{{TxID: "a", Size: 2000000, FeeRate: 5}}
	packed := Pack(txs, 1000000)
	assert.Equal(t, 1, packed[0].TargetBlock)
}

func TestPackInvariants(t *testing.T) {
	txs := []Tx{
		{TxID: "z", Size: 100, FeeRate: 5},
		{TxID: "a", Size: 200, FeeRate: 5}, // tie on feeRate, broken by txid
		{TxID: "b", Size: 300, FeeRate: 50},
	}
	packed := Pack(txs, 250)

	for i := 1; i < len(packed); i++ {
		assert.GreaterOrEqual(t, packed[i].CumSize, packed[i-1].CumSize)
		assert.LessOrEqual(t, packed[i].FeeRate, packed[i-1].FeeRate)
		assert.Contains(t, []int{0, 1}, packed[i].TargetBlock-packed[i-1].TargetBlock)
	}
	// highest fee rate tx ("b") sorts first.
	assert.Equal(t, "b", packed[0].TxID)
	// tie between "z" and "a" at feeRate 5 breaks lexicographically.
	assert.Equal(t, "a", packed[1].TxID)
	assert.Equal(t, "z", packed[2].TxID)
}

func targetBlocks(txs []Tx) []int {
	out := make([]int, len(txs))
	for i, tx := range txs {
		out[i] = tx.TargetBlock
	}
	return out
}

func cumSizes(txs []Tx) []float64 {
	out := make([]float64, len(txs))
	for i, tx := range txs {
		out[i] = tx.CumSize
	}
	return out
}
