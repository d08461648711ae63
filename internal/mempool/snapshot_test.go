package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietTxs() []Tx {
	return []Tx{
		{TxID: "1", Size: 1000, DescendantSize: 1000, DescendantFees: 500, FeeRate: 0.5},
		{TxID: "2", Size: 1000, DescendantSize: 1000, DescendantFees: 500, FeeRate: 0.5},
		{TxID: "3", Size: 1000, DescendantSize: 1000, DescendantFees: 500, FeeRate: 0.5},
	}
}

func TestSnapshotHashIsStableAcrossIdenticalInputs(t *testing.T) {
	s1 := NewSnapshot(quietTxs(), 1000000)
	s2 := NewSnapshot(quietTxs(), 1000000)
	assert.Equal(t, s1.Hash, s2.Hash)
}

func TestSnapshotHashChangesOnContentChange(t *testing.T) {
	s1 := NewSnapshot(quietTxs(), 1000000)
	txs := quietTxs()
	txs[0].DescendantFees = 999
	s2 := NewSnapshot(txs, 1000000)
	assert.NotEqual(t, s1.Hash, s2.Hash)
}

func TestFinalPositionFindsBoundary(t *testing.T) {
	txs := []Tx{
		{TxID: "a", Size: 600000, FeeRate: 30},
		{TxID: "b", Size: 500000, FeeRate: 20},
		{TxID: "c", Size: 100000, FeeRate: 10},
	}
	snap := NewSnapshot(txs, 1000000)

	pos, ok := snap.FinalPosition(1)
	require.True(t, ok)
	assert.Equal(t, 1100000.0, pos)
}

func TestFinalPositionAbsentSuppressesEmission(t *testing.T) {
	snap := NewSnapshot(nil, 1000000)
	_, ok := snap.FinalPosition(1)
	assert.False(t, ok)
}

func TestNearestTxTieBreaksOnFeeRateThenTxID(t *testing.T) {
	// cumSizes end up at 100 and 300: x0=200 is equidistant from both.
	txs := []Tx{
		{TxID: "high", Size: 100, FeeRate: 50},
		{TxID: "low", Size: 200, FeeRate: 5},
	}
	snap := NewSnapshot(txs, 1000000)
	nearest, ok := snap.NearestTx(200)
	require.True(t, ok)
	assert.Equal(t, "high", nearest.TxID, "tie should favor the higher fee rate tx")
}
