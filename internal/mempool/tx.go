// Package mempool models the mempool as a fee-ordered, size-packed queue
// (spec §3, §4.1) and polls the node RPC to keep a live SortedMempoolSnapshot
// up to date. The packing and sort-ordering here generalize the teacher's
// coin-selection ByAmount sort idiom (pkg/coinselection/strategy.go) from
// sorting UTXOs by value to sorting transactions by package fee rate.
package mempool

import (
	"math"
	"sort"

	"github.com/mariusgiger/feesim-stream/internal/ports"
)

// Tx is a single mempool transaction, projected from the node's raw entry
// plus the fields derived during packing (spec §3).
type Tx struct {
	TxID string

	Size           float64
	Fee            float64
	DescendantSize float64
	DescendantFees float64

	// FeeRate is the package fee rate used for ordering:
	// DescendantFees / DescendantSize.
	FeeRate float64

	// CumSize is the cumulative size of all transactions up to and
	// including this one, in descending FeeRate order. Only valid once
	// the tx has been packed into a Snapshot.
	CumSize float64

	// TargetBlock is the hypothetical block this tx lands in given the
	// configured effective block capacity. Only valid once packed.
	TargetBlock int
}

// FromRawEntry projects a raw mempool RPC entry into a Tx, computing
// FeeRate. Returns false if the entry is degenerate (non-finite fee rate),
// per spec §4.1's "malformed entry" handling.
func FromRawEntry(txid string, e ports.RawMempoolEntry) (Tx, bool) {
	if e.DescendantSize <= 0 {
		return Tx{}, false
	}
	feeRate := e.DescendantFees / e.DescendantSize
	if math.IsNaN(feeRate) || math.IsInf(feeRate, 0) {
		return Tx{}, false
	}
	return Tx{
		TxID:           txid,
		Size:           e.Size,
		Fee:            e.Fee,
		DescendantSize: e.DescendantSize,
		DescendantFees: e.DescendantFees,
		FeeRate:        feeRate,
	}, true
}

// byFeeRateDesc sorts transactions by descending FeeRate, ties broken by
// ascending lexicographic TxID so packing is reproducible (spec §4.1 step 2).
type byFeeRateDesc []Tx

func (a byFeeRateDesc) Len() int      { return len(a) }
func (a byFeeRateDesc) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a byFeeRateDesc) Less(i, j int) bool {
	if a[i].FeeRate != a[j].FeeRate {
		return a[i].FeeRate > a[j].FeeRate
	}
	return a[i].TxID < a[j].TxID
}

// Pack sorts txs by descending fee rate and assigns CumSize/TargetBlock
// per spec §4.1 steps 2-3: walk the sorted list accumulating CumSize,
// incrementing TargetBlock each time CumSize crosses a multiple of
// blockEffectiveSize. The first tx always lands in block 1, even when its
// size alone exceeds blockEffectiveSize.
func Pack(txs []Tx, blockEffectiveSize float64) []Tx {
	packed := make([]Tx, len(txs))
	copy(packed, txs)
	sort.Sort(byFeeRateDesc(packed))

	targetBlock := 1
	n := 1
	cum := 0.0
	for i := range packed {
		cum += packed[i].Size
		for i > 0 && blockEffectiveSize > 0 && cum > float64(n)*blockEffectiveSize {
			targetBlock++
			n++
		}
		packed[i].CumSize = cum
		packed[i].TargetBlock = targetBlock
	}
	return packed
}
