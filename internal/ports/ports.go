// Package ports declares the narrow interfaces the estimation core uses to
// talk to external collaborators (spec.md §6): the node RPC, the ZMQ
// block-hash feed, and the pub/sub publisher. The core pipeline only
// imports this package, never the concrete transports in internal/rpc,
// internal/blockfeed, or internal/pubsub.
package ports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RawMempoolEntry is a single entry of the node's raw mempool response, as
// projected from whichever of the "descendantsize"/"descendantfees" or
// "descendentsize"/"descendentfees" spellings the node emits (spec §6, §9).
type RawMempoolEntry struct {
	Size           float64
	Fee            float64
	DescendantSize float64
	DescendantFees float64
}

// UnmarshalJSON accepts both the modern "descendant*" and the feesim
// source's "descendent*" key spellings, falling back to vsize/fees
// aliases some node versions use. It is equivalent to DecodeRawMempoolEntry
// with both spellings accepted ("auto"); internal/rpc calls
// DecodeRawMempoolEntry directly so it can honor the configured
// DescendantFieldStyle per entry.
func (e *RawMempoolEntry) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeRawMempoolEntry(data, true, true)
	if err != nil {
		return err
	}
	*e = decoded
	return nil
}

// DecodeRawMempoolEntry decodes a single raw mempool entry, honoring which
// descendant-field spelling the caller accepts (spec §6/§9: the node may
// emit "descendantsize"/"descendantfees" or the source's
// "descendentsize"/"descendentfees", and a deployment may want to pin one
// spelling rather than silently tolerate either).
func DecodeRawMempoolEntry(data []byte, acceptDescendant, acceptDescendent bool) (RawMempoolEntry, error) {
	var raw struct {
		Size  *float64 `json:"size"`
		VSize *float64 `json:"vsize"`
		Fee   *float64 `json:"fee"`
		Fees  *struct {
			Base float64 `json:"base"`
		} `json:"fees"`
		DescendantSize *float64 `json:"descendantsize"`
		DescendantFees *float64 `json:"descendantfees"`
		DescendentSize *float64 `json:"descendentsize"`
		DescendentFees *float64 `json:"descendentfees"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return RawMempoolEntry{}, err
	}

	var e RawMempoolEntry
	switch {
	case raw.Size != nil:
		e.Size = *raw.Size
	case raw.VSize != nil:
		e.Size = *raw.VSize
	default:
		return RawMempoolEntry{}, fmt.Errorf("mempool entry missing size/vsize")
	}

	switch {
	case raw.Fee != nil:
		e.Fee = *raw.Fee
	case raw.Fees != nil:
		e.Fee = raw.Fees.Base
	}

	switch {
	case acceptDescendant && raw.DescendantSize != nil:
		e.DescendantSize = *raw.DescendantSize
	case acceptDescendent && raw.DescendentSize != nil:
		e.DescendantSize = *raw.DescendentSize
	default:
		return RawMempoolEntry{}, fmt.Errorf("mempool entry missing an accepted descendantsize/descendentsize spelling")
	}

	switch {
	case acceptDescendant && raw.DescendantFees != nil:
		e.DescendantFees = *raw.DescendantFees
	case acceptDescendent && raw.DescendentFees != nil:
		e.DescendantFees = *raw.DescendentFees
	default:
		return RawMempoolEntry{}, fmt.Errorf("mempool entry missing an accepted descendantfees/descendentfees spelling")
	}

	return e, nil
}

// MempoolRPC is the pull-based mempool port (spec §6).
type MempoolRPC interface {
	// GetRawMempool returns the current raw mempool, keyed by txid.
	GetRawMempool(ctx context.Context) (map[string]RawMempoolEntry, error)
}

// BlockHashEvent is a single new-block notification.
type BlockHashEvent struct {
	Hash string
	At   time.Time
}

// BlockHashFeed is the ZMQ-style block-hash subscription port (spec §6).
type BlockHashFeed interface {
	// Subscribe returns a channel of block-hash events. It reconnects on
	// transient failure; after exhausting its retry budget it closes the
	// channel and the caller observes this via the channel closing. The
	// first successful connection is signaled by sending a BlockHashEvent
	// with an empty Hash ("open" per spec §6) before any real events.
	Subscribe(ctx context.Context) (<-chan BlockHashEvent, error)
}

// Publisher is the pub/sub egress port (spec §6).
type Publisher interface {
	// Publish marshals payload and sends it on topic. Implementations
	// must be safe to call concurrently.
	Publish(topic string, payload interface{}) error
}

// Pub/sub topic names (spec §6).
const (
	TopicMinedSummary    = "com.fee.minedtxssummary"
	TopicFeeDiff         = "com.fee.feediff"
	TopicMinDiff         = "com.fee.mindiff"
)
