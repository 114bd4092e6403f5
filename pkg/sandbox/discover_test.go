package sandbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatchlabs/devbox-middleware/pkg/config"
)

// execServer returns a client whose Exec calls are answered by respond,
// keyed on a substring of the incoming command.
func execServer(t *testing.T, respond func(command string) ExecResult) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ExecRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(respond(req.Command))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(&config.SandboxConfig{
		APIURL:         srv.URL,
		RequestTimeout: 5 * time.Second,
	}, "test-key")
	require.NoError(t, err)
	return client
}

func TestFindProjectPath(t *testing.T) {
	client := execServer(t, func(string) ExecResult {
		return ExecResult{Stdout: strings.Join([]string{
			"/workspace/my-app/packages/ui/package.json",
			"/workspace/my-app/package.json",
		}, "\n") + "\n"}
	})

	p, err := client.FindProjectPath(context.Background(), "sb-1")
	require.NoError(t, err)
	assert.Equal(t, "/workspace/my-app", p)
}

func TestFindProjectPathNoProject(t *testing.T) {
	client := execServer(t, func(string) ExecResult {
		return ExecResult{Stdout: ""}
	})

	_, err := client.FindProjectPath(context.Background(), "sb-1")
	assert.Error(t, err)
}

func TestFileTree(t *testing.T) {
	client := execServer(t, func(string) ExecResult {
		return ExecResult{Stdout: strings.Join([]string{
			"d ",
			"d app",
			"f app/page.tsx",
			"f package.json",
			"d src",
		}, "\n")}
	})

	entries, err := client.FileTree(context.Background(), "sb-1", "/workspace/my-app")
	require.NoError(t, err)
	assert.Equal(t, []TreeEntry{
		{Path: "app", IsDir: true},
		{Path: "app/page.tsx"},
		{Path: "package.json"},
		{Path: "src", IsDir: true},
	}, entries)
}

func TestFileTreeExecFailure(t *testing.T) {
	client := execServer(t, func(string) ExecResult {
		return ExecResult{ExitCode: 1, Stderr: "find: /gone: No such file or directory"}
	})

	_, err := client.FileTree(context.Background(), "sb-1", "/gone")
	assert.Error(t, err)
}

func TestDiscoverRoutes(t *testing.T) {
	client := execServer(t, func(string) ExecResult {
		return ExecResult{Stdout: strings.Join([]string{
			"f app/page.tsx",
			"f app/layout.tsx",
			"f app/(marketing)/pricing/page.tsx",
			"f app/blog/[slug]/page.tsx",
			"f app/api/health/route.ts",
			"f src/lib/util.ts",
		}, "\n")}
	})

	routes, err := client.DiscoverRoutes(context.Background(), "sb-1", "/workspace/my-app")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/",
		"/api/health",
		"/blog/[slug]",
		"/pricing",
	}, routes)
}

func TestDiscoverRoutesSrcApp(t *testing.T) {
	client := execServer(t, func(string) ExecResult {
		return ExecResult{Stdout: "f src/app/dashboard/page.tsx"}
	})

	routes, err := client.DiscoverRoutes(context.Background(), "sb-1", "/workspace/my-app")
	require.NoError(t, err)
	assert.Equal(t, []string{"/dashboard"}, routes)
}
