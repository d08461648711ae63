// Package rpc implements the ports.MempoolRPC port against a Bitcoin node,
// grounded on the teacher's CachedRPCClient (pkg/utils/cachedClient.go):
// the same pairing of btcsuite/btcd/rpcclient for the typed calls and
// github.com/ybbus/jsonrpc for the raw "getrawmempool true" call whose
// descendant-field spelling varies by node build.
package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/pkg/errors"
	"github.com/ybbus/jsonrpc/v3"
	"go.uber.org/zap"

	"github.com/mariusgiger/feesim-stream/internal/config"
	"github.com/mariusgiger/feesim-stream/internal/ports"
	"github.com/mariusgiger/feesim-stream/internal/telemetry"
)

// Client is the concrete ports.MempoolRPC implementation.
type Client struct {
	rpcClient  *rpcclient.Client
	jsonClient jsonrpc.RPCClient
	logger     *zap.Logger
	metrics    *telemetry.Metrics
	cfg        config.RPCConfig
}

// New dials a Bitcoin node's JSON-RPC endpoint, following the teacher's
// NewCachedRPCClient connection setup (HTTP POST mode, TLS disabled --
// bitcoind's RPC server does not offer TLS by default).
func New(cfg config.RPCConfig, logger *zap.Logger, metrics *telemetry.Metrics) (*Client, error) {
	addr := cfg.Host + ":" + cfg.Port

	connCfg := &rpcclient.ConnConfig{
		Host:         addr,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}
	rc, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to construct rpcclient")
	}

	headers := make(map[string]string)
	if cfg.User != "" || cfg.Pass != "" {
		headers["Authorization"] = "Basic " + basicAuth(cfg.User, cfg.Pass)
	}
	jsonClient := jsonrpc.NewClientWithOpts("http://"+addr, &jsonrpc.RPCClientOpts{
		CustomHeaders: headers,
		HTTPClient:    &http.Client{Transport: &http.Transport{}},
	})

	return &Client{rpcClient: rc, jsonClient: jsonClient, logger: logger, metrics: metrics, cfg: cfg}, nil
}

func basicAuth(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

// GetRawMempool calls "getrawmempool true" and decodes each entry through
// ports.DecodeRawMempoolEntry, honoring the configured
// DescendantFieldStyle (spec §6/§9). A single malformed entry is skipped
// and counted rather than failing the whole poll (spec §4.1/§7: "a
// malformed entry is skipped and counted", not a transport error).
func (c *Client) GetRawMempool(ctx context.Context) (map[string]ports.RawMempoolEntry, error) {
	var raw map[string]json.RawMessage
	if err := c.jsonClient.CallFor(ctx, &raw, "getrawmempool", true); err != nil {
		return nil, errors.Wrap(err, "getrawmempool rpc call failed")
	}

	acceptDescendant := c.cfg.AcceptsDescendant()
	acceptDescendent := c.cfg.AcceptsDescendent()

	entries := make(map[string]ports.RawMempoolEntry, len(raw))
	for txid, data := range raw {
		entry, err := ports.DecodeRawMempoolEntry(data, acceptDescendant, acceptDescendent)
		if err != nil {
			if c.metrics != nil {
				c.metrics.ParseErrors.Inc()
			}
			if c.logger != nil {
				c.logger.Warn("discarding malformed mempool entry", zap.String("txid", txid), zap.Error(err))
			}
			continue
		}
		entries[txid] = entry
	}
	return entries, nil
}

// GetBlockHash resolves a block height to its hash, mirroring the teacher's
// CachedRPCClient.GetBlockHash for operational/diagnostic use outside the
// streaming pipeline (which learns block hashes from internal/blockfeed).
func (c *Client) GetBlockHash(height int64) (string, error) {
	hash, err := c.rpcClient.GetBlockHash(height)
	if err != nil {
		return "", errors.Wrap(err, "getblockhash rpc call failed")
	}
	return hash.String(), nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.rpcClient.Shutdown()
}
