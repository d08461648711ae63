// Package blockfeed subscribes to a Bitcoin node's ZMQ "hashblock"
// publisher, implementing ports.BlockHashFeed. The reconnect-with-backoff
// loop is modeled on the teacher's janitor goroutine
// (pkg/utils/cachedClient.go's runJanitor/janitor.Run: a ticker-driven
// background goroutine with a stop channel), generalized here from
// periodic cache eviction to bounded reconnection attempts.
package blockfeed

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	zmq "github.com/pebbe/zmq4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mariusgiger/feesim-stream/internal/ports"
	"github.com/mariusgiger/feesim-stream/internal/telemetry"
)

const hashblockTopic = "hashblock"

// maxReconnectAttempts bounds the reconnect loop before Subscribe gives up
// and closes its event channel (spec §6: "surface a terminal error after a
// bounded number of reconnection attempts").
const maxReconnectAttempts = 10

// Feed is the concrete ports.BlockHashFeed implementation.
type Feed struct {
	url     string
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// New creates a Feed bound to a ZMQ publisher endpoint (zmq_socket.url).
func New(url string, logger *zap.Logger, metrics *telemetry.Metrics) *Feed {
	return &Feed{url: url, logger: logger, metrics: metrics}
}

// Subscribe connects to the ZMQ endpoint and streams block-hash events
// until ctx is cancelled or the reconnect budget is exhausted.
func (f *Feed) Subscribe(ctx context.Context) (<-chan ports.BlockHashEvent, error) {
	sock, err := f.connect()
	if err != nil {
		return nil, err
	}

	out := make(chan ports.BlockHashEvent, 16)
	out <- ports.BlockHashEvent{Hash: "", At: time.Now()} // "open" signal per spec §6

	go f.run(ctx, sock, out)
	return out, nil
}

func (f *Feed) connect() (*zmq.Socket, error) {
	sock, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create zmq socket")
	}
	if err := sock.Connect(f.url); err != nil {
		return nil, errors.Wrap(err, "failed to connect to zmq endpoint")
	}
	if err := sock.SetSubscribe(hashblockTopic); err != nil {
		return nil, errors.Wrap(err, "failed to subscribe to hashblock topic")
	}
	return sock, nil
}

func (f *Feed) run(ctx context.Context, sock *zmq.Socket, out chan<- ports.BlockHashEvent) {
	defer close(out)
	// sock is reassigned on reconnect below; closing via closure (not a
	// value-captured defer) ensures the socket actually open at return
	// time is the one that gets closed.
	defer func() { sock.Close() }()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		parts, err := sock.RecvMessageBytes(0)
		if err != nil {
			attempts++
			if f.metrics != nil {
				f.metrics.ZMQReconnects.Inc()
			}
			if f.logger != nil {
				f.logger.Warn("zmq recv failed, reconnecting", zap.Error(err), zap.Int("attempt", attempts))
			}
			if attempts > maxReconnectAttempts {
				if f.logger != nil {
					f.logger.Error("zmq reconnect budget exhausted, closing block-hash feed")
				}
				return
			}

			sock.Close()
			time.Sleep(backoff(attempts))
			next, connErr := f.connect()
			if connErr != nil {
				continue
			}
			sock = next
			continue
		}

		attempts = 0
		if len(parts) < 2 || string(parts[0]) != hashblockTopic {
			continue
		}

		hash, err := chainhash.NewHash(parts[1])
		if err != nil {
			if f.logger != nil {
				f.logger.Warn("discarding malformed hashblock payload", zap.Error(err))
			}
			continue
		}

		event := ports.BlockHashEvent{Hash: hash.String(), At: time.Now()}
		select {
		case out <- event:
		case <-ctx.Done():
			return
		}
	}
}

func backoff(attempt int) time.Duration {
	d := time.Duration(attempt) * 500 * time.Millisecond
	if d > 10*time.Second {
		return 10 * time.Second
	}
	return d
}
