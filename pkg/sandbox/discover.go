package sandbox

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
)

// projectRoots are the directories searched for a project checkout, in order.
var projectRoots = []string{"/workspace", "/home/user", "/root", "/app"}

// routeGroupRe matches app-router route group segments like "(marketing)",
// which do not contribute to the URL path.
var routeGroupRe = regexp.MustCompile(`^\(.+\)$`)

// FindProjectPath locates the project directory inside a sandbox by looking
// for a package.json under the conventional roots. It returns the directory
// containing the shallowest match.
func (c *Client) FindProjectPath(ctx context.Context, sandboxID string) (string, error) {
	cmd := fmt.Sprintf(
		"find %s -maxdepth 3 -name package.json -not -path '*/node_modules/*' 2>/dev/null",
		strings.Join(projectRoots, " "),
	)
	result, err := c.Exec(ctx, sandboxID, ExecRequest{Command: cmd})
	if err != nil {
		return "", err
	}

	var candidates []string
	for _, line := range strings.Split(result.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		candidates = append(candidates, path.Dir(line))
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no project found in sandbox %s", sandboxID)
	}

	sort.Slice(candidates, func(i, j int) bool {
		di, dj := strings.Count(candidates[i], "/"), strings.Count(candidates[j], "/")
		if di != dj {
			return di < dj
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0], nil
}

// FileTree lists the files and directories under root inside the sandbox,
// skipping dependency and VCS directories. Paths are relative to root.
func (c *Client) FileTree(ctx context.Context, sandboxID, root string) ([]TreeEntry, error) {
	cmd := fmt.Sprintf(
		"find %s -not -path '*/node_modules/*' -not -path '*/.git/*' -not -path '*/.next/*' -printf '%%y %%P\\n'",
		shellQuote(root),
	)
	result, err := c.Exec(ctx, sandboxID, ExecRequest{Command: cmd})
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("file listing failed in sandbox %s: %s", sandboxID, strings.TrimSpace(result.Stderr))
	}

	var entries []TreeEntry
	for _, line := range strings.Split(result.Stdout, "\n") {
		if len(line) < 3 {
			continue
		}
		kind, rel := line[0], strings.TrimSpace(line[2:])
		if rel == "" {
			continue
		}
		switch kind {
		case 'd':
			entries = append(entries, TreeEntry{Path: rel, IsDir: true})
		case 'f':
			entries = append(entries, TreeEntry{Path: rel})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// DiscoverRoutes maps app-router page and route files under projectPath to
// the URL paths they serve. Route group segments are stripped and dynamic
// segments are kept as written ("[id]").
func (c *Client) DiscoverRoutes(ctx context.Context, sandboxID, projectPath string) ([]string, error) {
	entries, err := c.FileTree(ctx, sandboxID, projectPath)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var routes []string
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		rel, ok := appRelativePath(e.Path)
		if !ok {
			continue
		}
		base := path.Base(rel)
		if !isRouteFile(base) {
			continue
		}

		route := routeFromSegments(strings.Split(path.Dir(rel), "/"))
		if _, dup := seen[route]; dup {
			continue
		}
		seen[route] = struct{}{}
		routes = append(routes, route)
	}
	sort.Strings(routes)
	return routes, nil
}

// appRelativePath strips the leading "app" or "src/app" directory from a
// project-relative path, reporting whether the path lives under either.
func appRelativePath(p string) (string, bool) {
	for _, prefix := range []string{"app/", "src/app/"} {
		if strings.HasPrefix(p, prefix) {
			return strings.TrimPrefix(p, prefix), true
		}
	}
	return "", false
}

func isRouteFile(base string) bool {
	for _, stem := range []string{"page", "route"} {
		for _, ext := range []string{".tsx", ".ts", ".jsx", ".js"} {
			if base == stem+ext {
				return true
			}
		}
	}
	return false
}

func routeFromSegments(segments []string) string {
	var kept []string
	for _, seg := range segments {
		if seg == "." || seg == "" || routeGroupRe.MatchString(seg) {
			continue
		}
		kept = append(kept, seg)
	}
	return "/" + strings.Join(kept, "/")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
