// Package solana is a minimal Solana JSON-RPC client covering the calls the
// deposit poller and webhook verifier need.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hatchlabs/devbox-middleware/pkg/config"
)

// ErrUnavailable marks failures to reach the RPC node.
var ErrUnavailable = errors.New("solana rpc unavailable")

// Client talks to a Solana JSON-RPC node.
type Client struct {
	rpcURL     string
	commitment string
	httpClient *http.Client
	logger     *zap.Logger
	nextID     atomic.Int64
}

// NewClient creates a Solana RPC client from the application config.
func NewClient(cfg *config.SolanaConfig, logger *zap.Logger) *Client {
	return &Client{
		rpcURL:     cfg.RPCURL,
		commitment: cfg.Commitment,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
	}
}

// GetBalance returns the lamport balance of an address.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	var result contextValue[uint64]
	err := c.call(ctx, "getBalance", []any{address, map[string]string{"commitment": c.commitment}}, &result)
	if err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetSignaturesForAddress returns the most recent transaction signatures
// involving an address, newest first.
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	params := []any{address, map[string]any{
		"limit":      limit,
		"commitment": c.commitment,
	}}
	var sigs []SignatureInfo
	if err := c.call(ctx, "getSignaturesForAddress", params, &sigs); err != nil {
		return nil, err
	}
	return sigs, nil
}

// GetTransaction fetches a confirmed transaction in jsonParsed encoding.
// Returns nil without error when the node does not know the signature.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []any{signature, map[string]any{
		"encoding":                       "jsonParsed",
		"commitment":                     c.commitment,
		"maxSupportedTransactionVersion": 0,
	}}
	var tx *Transaction
	if err := c.call(ctx, "getTransaction", params, &tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("encode rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: node returned status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("node returned status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc %s failed: %w", method, rpcResp.Error)
	}
	if out == nil || len(rpcResp.Result) == 0 || bytes.Equal(rpcResp.Result, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}
