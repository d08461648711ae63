// Package pubsub implements ports.Publisher over WAMP, using
// github.com/gammazero/nexus/v3/client. Named, not grounded (DESIGN.md):
// no WAMP precedent exists in the retrieval pack. The narrow
// Publish(topic, payload) port shape mirrors how the teacher's
// pkg/blockchain/electrumx.go hides its JSON-RPC transport behind the
// narrow jsonrpc.RPCClient interface, so the estimation core never
// imports the WAMP client directly.
package pubsub

import (
	"context"
	"encoding/json"

	"github.com/gammazero/nexus/v3/client"
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mariusgiger/feesim-stream/internal/config"
)

// Publisher is the concrete ports.Publisher implementation.
type Publisher struct {
	conn   *client.Client
	logger *zap.Logger
}

// New connects to a WAMP router at cfg.URL and joins cfg.Realm.
func New(ctx context.Context, cfg config.WAMPConfig, logger *zap.Logger) (*Publisher, error) {
	cfgWAMP := client.Config{Realm: cfg.Realm}
	c, err := client.ConnectNet(ctx, cfg.URL, cfgWAMP)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to wamp router")
	}
	return &Publisher{conn: c, logger: logger}, nil
}

// Publish marshals payload to JSON and publishes it as a single "payload"
// argument on topic.
func (p *Publisher) Publish(topic string, payload interface{}) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to encode payload")
	}

	err = p.conn.Publish(topic, nil, wamp.List{string(encoded)}, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to publish to %s", topic)
	}
	return nil
}

// Close leaves the WAMP session.
func (p *Publisher) Close() error {
	return p.conn.Close()
}
