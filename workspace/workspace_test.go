package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files (relative path -> content) under root. A trailing
// slash creates a directory.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if rel[len(rel)-1] == '/' {
			require.NoError(t, os.MkdirAll(path, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// boundedLocator keeps the ascent inside the temp directory so that markers on
// the host filesystem cannot leak into the result.
func boundedLocator(depth int) *Locator {
	l := DefaultLocator()
	l.MaxDepth = depth
	return l
}

func TestLocateLockfileInStartDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package-lock.json": "{}",
		".git/":             "",
	})

	d, err := boundedLocator(1).Locate(root)
	require.NoError(t, err)
	assert.Equal(t, root, d.Root)
	assert.Equal(t, MethodLockfile, d.Method)
}

func TestLockfileBeatsNearerIndicator(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"yarn.lock":           "",
		"apps/web/.git/":      "",
		"apps/web/turbo.json": "{}",
	})
	start := filepath.Join(root, "apps", "web")

	d, err := boundedLocator(3).Locate(start)
	require.NoError(t, err)
	assert.Equal(t, root, d.Root)
	assert.Equal(t, MethodLockfile, d.Method)
}

func TestNearestLockfileWins(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pnpm-lock.yaml":      "",
		"pkg/Cargo.lock":      "",
		"pkg/src/placeholder": "",
	})
	start := filepath.Join(root, "pkg", "src")

	d, err := boundedLocator(3).Locate(start)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "pkg"), d.Root)
}

func TestLockfileMustBeRegularFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"yarn.lock/": "",
		".git/":      "",
	})

	d, err := boundedLocator(1).Locate(root)
	require.NoError(t, err)
	assert.Equal(t, MethodIndicator, d.Method)
}

func TestNearestIndicatorWins(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".git/":          "",
		"a/nx.json":      "{}",
		"a/b/c/file.txt": "",
	})
	start := filepath.Join(root, "a", "b", "c")

	d, err := boundedLocator(4).Locate(start)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a"), d.Root)
	assert.Equal(t, MethodIndicator, d.Method)
}

func TestContentValidatedIndicators(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		body  string
		match bool
	}{
		{"pnpm workspace", "pnpm-workspace.yaml", "packages:\n  - 'packages/*'\n", true},
		{"pnpm workspace malformed", "pnpm-workspace.yaml", "packages: [unterminated\n", false},
		{"pnpm workspace scalar", "pnpm-workspace.yaml", "just a string\n", false},
		{"pnpm workspace empty", "pnpm-workspace.yaml", "", false},
		{"pnpm workspace blank line", "pnpm-workspace.yaml", "\n", false},
		{"pnpm workspace null", "pnpm-workspace.yaml", "~\n", false},
		{"pnpm workspace comment only", "pnpm-workspace.yaml", "# only a comment\n", false},
		{"pnpm workspace empty mapping", "pnpm-workspace.yaml", "{}\n", true},
		{"cargo workspace", "Cargo.toml", "[workspace]\nmembers = [\"a\"]\n", true},
		{"cargo package only", "Cargo.toml", "[package]\nname = \"a\"\n", false},
		{"cargo malformed", "Cargo.toml", "[workspace\nmembers = ", false},
		{"deno workspace", "deno.json", `{"workspace": ["./a"]}`, true},
		{"deno workspaces", "deno.json", `{"workspaces": ["./a"]}`, true},
		{"deno without workspace", "deno.json", `{"tasks": {}}`, false},
		{"deno malformed", "deno.json", `{"workspace": [`, false},
		{"code workspace", "team.code-workspace", `{"folders": [{"path": "."}]}`, true},
		{"code workspace empty", "team.code-workspace", `{"folders": []}`, false},
		{"code workspace malformed", "team.code-workspace", `{"folders": [}`, false},
		{"package workspaces array", "package.json", `{"workspaces": ["packages/*"]}`, true},
		{"package workspaces object", "package.json", `{"workspaces": {"packages": ["a"]}}`, true},
		{"package workspaces null", "package.json", `{"workspaces": null}`, false},
		{"package plain", "package.json", `{"name": "x"}`, false},
		{"package malformed", "package.json", `{"workspaces": [`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeTree(t, root, map[string]string{tt.file: tt.body})

			d, err := boundedLocator(1).LocateIndicator(root)
			if tt.match {
				require.NoError(t, err)
				assert.Equal(t, root, d.Root)
			} else {
				assert.ErrorIs(t, err, ErrNotFound)
			}
		})
	}
}

func TestMalformedIndicatorContinuesAscent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".git/":                   "",
		"pkg/pnpm-workspace.yaml": "packages: [\n",
	})

	d, err := boundedLocator(2).Locate(filepath.Join(root, "pkg"))
	require.NoError(t, err)
	assert.Equal(t, root, d.Root)
}

func TestPackageJSONComposesWithSiblings(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json": `{"name": "plain"}`,
		"lerna.json":   "{}",
	})

	var calls int
	l := boundedLocator(1)
	var rest []Indicator
	var pkg Indicator
	for _, ind := range l.Indicators {
		if ind.Name == "package.json" {
			pkg = ind
			continue
		}
		rest = append(rest, ind)
	}
	require.NotNil(t, pkg.Check)
	check := pkg.Check
	pkg.Check = func(p Probe) bool {
		calls++
		return check(p)
	}
	// package.json goes first so its sibling lookup decides the match
	l.Indicators = append([]Indicator{pkg}, rest...)

	d, err := l.LocateIndicator(root)
	require.NoError(t, err)
	assert.Equal(t, root, d.Root)
	assert.Equal(t, 1, calls)
}

func TestProbeNamesWithoutListing(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"yarn.lock":           "",
		".git/":               "",
		"team.code-workspace": `{"folders": [{"path": "."}]}`,
		"README":              "",
	})

	names := DefaultLocator().probeNames(root)
	assert.Equal(t, []string{".git", "yarn.lock"}, names)
}

func TestLocateInUnlistableDirectory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pnpm-lock.yaml": "",
		"src/.keep":      "",
	})
	require.NoError(t, os.Chmod(root, 0o311))
	t.Cleanup(func() { os.Chmod(root, 0o755) })
	if _, err := os.ReadDir(root); err == nil {
		t.Skip("directory is still listable (running as root?)")
	}

	d, err := boundedLocator(2).Locate(filepath.Join(root, "src"))
	require.NoError(t, err)
	assert.Equal(t, root, d.Root)
	assert.Equal(t, MethodLockfile, d.Method)
}

func TestLocateNotFound(t *testing.T) {
	root := t.TempDir()
	start := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(start, 0o755))

	_, err := boundedLocator(3).Locate(start)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnvFilesSideCollection(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package-lock.json": "{}",
		".env":              "A=1",
		"pkg/.env.local":    "B=2",
		"pkg/.env.test":     "C=3",
		"pkg/.envrc":        "",
		"pkg/.env.d/":       "",
		"pkg/not-env.txt":   "",
	})
	start := filepath.Join(root, "pkg")

	d, err := boundedLocator(2).Locate(start)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, ".env")}, d.EnvFiles[root])
	assert.Equal(t, []string{
		filepath.Join(start, ".env.local"),
		filepath.Join(start, ".env.test"),
	}, d.EnvFiles[start])
}

func TestLocateRelativeStart(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"bun.lock": "", "sub/x": ""})
	t.Chdir(filepath.Join(root, "sub"))

	d, err := boundedLocator(2).Locate(".")
	require.NoError(t, err)
	assert.Equal(t, root, d.Root)
}
