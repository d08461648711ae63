package mempool

import (
	"fmt"
	"hash/fnv"
	"sort"
)

// Snapshot is a packed, ordered view of the mempool at a point in time
// (spec §3's SortedMempoolSnapshot), indexed by TxID for O(1) diffing.
type Snapshot struct {
	Txs   []Tx
	ByTx  map[string]Tx
	Hash  uint64
}

// NewSnapshot packs txs and builds the lookup index and content hash.
func NewSnapshot(txs []Tx, blockEffectiveSize float64) Snapshot {
	packed := Pack(txs, blockEffectiveSize)
	byTx := make(map[string]Tx, len(packed))
	for _, tx := range packed {
		byTx[tx.TxID] = tx
	}
	return Snapshot{
		Txs:  packed,
		ByTx: byTx,
		Hash: contentHash(packed),
	}
}

// contentHash computes an FNV-1a hash over the sorted (txid, size,
// descendantFees) triples, the cheaper structural-equality check spec §9
// suggests in place of the source's deep-equality comparison on every poll.
func contentHash(txs []Tx) uint64 {
	byID := make(map[string]Tx, len(txs))
	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		byID[tx.TxID] = tx
		ids = append(ids, tx.TxID)
	}
	sort.Strings(ids)

	h := fnv.New64a()
	for _, id := range ids {
		tx := byID[id]
		fmt.Fprintf(h, "%s|%.8f|%.8f;", id, tx.Size, tx.DescendantFees)
	}
	return h.Sum64()
}

// FinalPosition returns the CumSize of the first tx assigned to
// target+1 -- the boundary between target and the next hypothetical block
// (spec §4.6). ok is false if no such tx exists yet.
func (s Snapshot) FinalPosition(target int) (value float64, ok bool) {
	for _, tx := range s.Txs {
		if tx.TargetBlock == target+1 {
			return tx.CumSize, true
		}
	}
	return 0, false
}

// NearestTx returns the tx whose CumSize is closest to x0, ties broken by
// higher FeeRate then lexicographic TxID (spec §4.6 FeeEstimateTx).
func (s Snapshot) NearestTx(x0 float64) (Tx, bool) {
	if len(s.Txs) == 0 {
		return Tx{}, false
	}

	best := s.Txs[0]
	bestDist := absf(best.CumSize - x0)
	for _, tx := range s.Txs[1:] {
		dist := absf(tx.CumSize - x0)
		switch {
		case dist < bestDist:
			best, bestDist = tx, dist
		case dist == bestDist:
			if tx.FeeRate > best.FeeRate ||
				(tx.FeeRate == best.FeeRate && tx.TxID < best.TxID) {
				best = tx
			}
		}
	}
	return best, true
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
