// Package directory fetches the service-node directory from a static
// list of seed JSON-RPC endpoints, retrying across seeds and, failing
// that, across backoff rounds.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oxen-lsrpc/onion-client/internal/logging"
	"github.com/oxen-lsrpc/onion-client/internal/metrics"
	"github.com/oxen-lsrpc/onion-client/pkg/types"
)

// requestFields names the ServiceNode attributes requested from
// get_n_service_nodes.
type requestFields struct {
	PublicIP       bool `json:"public_ip"`
	StoragePort    bool `json:"storage_port"`
	PubkeyX25519   bool `json:"pubkey_x25519"`
	PubkeyEd25519  bool `json:"pubkey_ed25519"`
	StorageLMQPort bool `json:"storage_lmq_port"`
	SwarmID        bool `json:"swarm_id"`
}

type rpcParams struct {
	Limit  int           `json:"limit"`
	Fields requestFields `json:"fields"`
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcResponse struct {
	Result struct {
		ServiceNodeStates []types.ServiceNode `json:"service_node_states"`
	} `json:"result"`
}

// Client fetches service-node lists from a static ordered list of
// seed JSON-RPC endpoints.
type Client struct {
	seedNodes   []string
	httpClient  *http.Client
	maxAttempts int
	backoff     time.Duration

	log     *logging.Logger
	metrics *metrics.Metrics
}

// NewClient creates a directory client. seedNodes is consulted in
// order on every round; maxAttempts bounds the number of rounds
// (default semantics: 5); backoff is the pause between rounds. log
// and m may be nil.
func NewClient(seedNodes []string, timeout time.Duration, maxAttempts int, backoff time.Duration, log *logging.Logger, m *metrics.Metrics) *Client {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Client{
		seedNodes:   seedNodes,
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		backoff:     backoff,
		log:         log,
		metrics:     m,
	}
}

// Fetch queries seed nodes in order for up to limit service nodes,
// returning on the first endpoint that answers successfully. It
// fails with Error{Code: ErrExhausted} only after every seed has
// failed on every round.
func (c *Client) Fetch(ctx context.Context, limit int) ([]types.ServiceNode, error) {
	var lastErr error

	for round := 0; round < c.maxAttempts; round++ {
		for _, seed := range c.seedNodes {
			nodes, err := c.fetchOne(ctx, seed, limit)
			if err == nil {
				c.recordOutcome("ok")
				if c.metrics != nil {
					c.metrics.DirectoryNodesFetched.Set(float64(len(nodes)))
				}
				return nodes, nil
			}
			lastErr = err
			if c.log != nil {
				c.log.WithComponent("directoryclient").Warn().Err(err).Str("seed", seed).Msg("seed fetch failed")
			}
		}

		if round < c.maxAttempts-1 {
			select {
			case <-ctx.Done():
				c.recordOutcome("cancelled")
				return nil, newErr(ErrTimeout, "context cancelled during backoff", ctx.Err())
			case <-time.After(c.backoff):
			}
		}
	}

	c.recordOutcome("exhausted")
	return nil, newErr(ErrExhausted, "all seed nodes exhausted", lastErr)
}

// FetchSnapshot wraps Fetch in a NodeSnapshot stamped with the fetch
// time, giving callers like OnionBuilder a single immutable value to
// hand off instead of racing a bare slice against the wall clock.
func (c *Client) FetchSnapshot(ctx context.Context, limit int) (types.NodeSnapshot, error) {
	nodes, err := c.Fetch(ctx, limit)
	if err != nil {
		return types.NodeSnapshot{}, err
	}
	return types.NewNodeSnapshot(nodes, time.Now()), nil
}

func (c *Client) fetchOne(ctx context.Context, seed string, limit int) ([]types.ServiceNode, error) {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      0,
		Method:  "get_n_service_nodes",
		Params: rpcParams{
			Limit: limit,
			Fields: requestFields{
				PublicIP:       true,
				StoragePort:    true,
				PubkeyX25519:   true,
				PubkeyEd25519:  true,
				StorageLMQPort: true,
				SwarmID:        true,
			},
		},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, newErr(ErrParse, "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, seed, bytes.NewReader(data))
	if err != nil {
		return nil, newErr(ErrParse, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, newErr(ErrTimeout, "request timed out", err)
		}
		return nil, newErr(ErrTimeout, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, newErr(ErrHTTPStatus, fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var parsed rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, newErr(ErrParse, "decode json-rpc response", err)
	}

	return parsed.Result.ServiceNodeStates, nil
}

func (c *Client) recordOutcome(outcome string) {
	if c.metrics != nil {
		c.metrics.DirectoryFetchesTotal.WithLabelValues(outcome).Inc()
		if outcome != "ok" {
			c.metrics.RecordError("directory", outcome)
		}
	}
}
