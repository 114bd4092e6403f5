package sandbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatchlabs/devbox-middleware/pkg/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(&config.SandboxConfig{
		APIURL:         srv.URL,
		RequestTimeout: 5 * time.Second,
	}, "test-key")
	require.NoError(t, err)
	return client
}

func TestClientCreate(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sandboxes", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req CreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "my-project", req.Name)

		json.NewEncoder(w).Encode(Sandbox{ID: "sb-1", Name: req.Name, State: StateCreating})
	}))

	sb, err := client.Create(context.Background(), CreateRequest{Name: "my-project", Image: "node:20"})
	require.NoError(t, err)
	assert.Equal(t, "sb-1", sb.ID)
	assert.Equal(t, StateCreating, sb.State)
}

func TestClientExec(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sandboxes/sb-1/exec", r.URL.Path)

		var req ExecRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ls /workspace", req.Command)

		json.NewEncoder(w).Encode(ExecResult{ExitCode: 0, Stdout: "app\n"})
	}))

	result, err := client.Exec(context.Background(), "sb-1", ExecRequest{Command: "ls /workspace"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "app\n", result.Stdout)
}

func TestClientNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientServerErrorIsUnavailable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.List(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClientConnectionErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client, err := NewClient(&config.SandboxConfig{
		APIURL:         srv.URL,
		RequestTimeout: time.Second,
	}, "test-key")
	require.NoError(t, err)

	err = client.Start(context.Background(), "sb-1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClientLifecycleCalls(t *testing.T) {
	var calls []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))

	ctx := context.Background()
	require.NoError(t, client.Start(ctx, "sb-1"))
	require.NoError(t, client.Stop(ctx, "sb-1"))
	require.NoError(t, client.Delete(ctx, "sb-1"))

	assert.Equal(t, []string{
		"POST /sandboxes/sb-1/start",
		"POST /sandboxes/sb-1/stop",
		"DELETE /sandboxes/sb-1",
	}, calls)
}
