package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hatchlabs/devbox-middleware/pkg/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.SolanaConfig{
		RPCURL:         srv.URL,
		Commitment:     "confirmed",
		RequestTimeout: 5 * time.Second,
	}, zap.NewNop())
}

func rpcResult(t *testing.T, w http.ResponseWriter, r *http.Request, result string) {
	t.Helper()
	var req rpcRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	assert.Equal(t, "2.0", req.JSONRPC)
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
}

func TestGetBalance(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rpcResult(t, w, r, `{"context":{"slot":100},"value":2500000000}`)
	}))

	balance, err := client.GetBalance(context.Background(), "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	require.NoError(t, err)
	assert.Equal(t, uint64(2500000000), balance)
}

func TestGetSignaturesForAddress(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rpcResult(t, w, r, `[
			{"signature":"sig2","slot":201,"err":null},
			{"signature":"sig1","slot":200,"err":{"InstructionError":[0,"Custom"]}}
		]`)
	}))

	sigs, err := client.GetSignaturesForAddress(context.Background(), "addr", 20)
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	assert.Equal(t, "sig2", sigs[0].Signature)
	assert.False(t, sigs[0].Failed())
	assert.True(t, sigs[1].Failed())
}

func TestGetTransactionUnknownSignature(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rpcResult(t, w, r, `null`)
	}))

	tx, err := client.GetTransaction(context.Background(), "missing-sig")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestRPCErrorIsSurfaced(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid param"}}`))
	}))

	_, err := client.GetBalance(context.Background(), "bad")
	require.Error(t, err)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)
}

func TestServerErrorIsUnavailable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.GetBalance(context.Background(), "addr")
	assert.ErrorIs(t, err, ErrUnavailable)
}
