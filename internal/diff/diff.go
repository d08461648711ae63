// Package diff buffers the last two mempool snapshots and derives the
// Added/Removed transaction sets between them, classifying large removals
// as mined-block events (spec §4.2).
package diff

import (
	"github.com/mariusgiger/feesim-stream/internal/mempool"
)

// MinedThreshold is the number of removed transactions above which a
// snapshot-to-snapshot removal is classified as a mined block event
// (spec §4.2): |Removed| > 500 is mined, == 500 is not.
const MinedThreshold = 500

// Result is the outcome of diffing two consecutive snapshots.
type Result struct {
	Added   []mempool.Tx
	Removed []mempool.Tx
	Mined   bool

	// BlockHash is the block-hash notification that most recently
	// triggered a poll. mined.Sink logs it with each mined event; the
	// inter-block interval is taken from internal/interval, not from this
	// hash (DESIGN.md Open Question #2).
	BlockHash string
}

// Pair computes Added/Removed by TxID set difference between prev and
// next, and classifies the removal as mined if it exceeds MinedThreshold
// (spec §4.2).
func Pair(prev, next mempool.Snapshot, blockHash string) Result {
	var added, removed []mempool.Tx

	for txid, tx := range next.ByTx {
		if _, ok := prev.ByTx[txid]; !ok {
			added = append(added, tx)
		}
	}
	for txid, tx := range prev.ByTx {
		if _, ok := next.ByTx[txid]; !ok {
			removed = append(removed, tx)
		}
	}

	return Result{
		Added:     added,
		Removed:   removed,
		Mined:     len(removed) > MinedThreshold,
		BlockHash: blockHash,
	}
}
