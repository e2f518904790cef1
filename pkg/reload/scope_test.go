package reload

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeList(t *testing.T) {
	if got := NormalizeList(nil); len(got) != 0 {
		t.Errorf("nil input should normalize to empty, got %v", got)
	}
	got := NormalizeList([]string{" *.go ", "", "app"})
	if len(got) != 2 || got[0] != "*.go" || got[1] != "app" {
		t.Errorf("unexpected normalization: %v", got)
	}
}

func TestResolvePatternsSeparatesDirsFromPatterns(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "src")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	patterns, dirs := ResolvePatterns([]string{sub, "*.go", "missing-dir"}, []string{dir})
	if len(dirs) != 2 {
		t.Fatalf("expected 2 dirs, got %v", dirs)
	}
	if len(patterns) != 2 || patterns[0] != "*.go" || patterns[1] != "missing-dir" {
		t.Errorf("non-directories must stay patterns: %v", patterns)
	}
}

func TestResolvePatternsDeduplicates(t *testing.T) {
	dir := t.TempDir()
	_, dirs := ResolvePatterns([]string{dir}, []string{dir, dir})
	if len(dirs) != 1 {
		t.Errorf("expected a single deduplicated dir, got %v", dirs)
	}
}

func TestTreeContainmentExclusion(t *testing.T) {
	root := t.TempDir()
	app := filepath.Join(root, "app")
	nested := filepath.Join(app, "deep", "nested")
	other := filepath.Join(root, "other")
	for _, d := range []string{nested, other} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	// Excluding the ancestor must remove the exact match and every
	// descendant, not just the exact match.
	scope := BuildScope(Input{
		Dirs:     []string{app, nested, other},
		Excludes: []string{app},
	})

	if len(scope.WatchDirs) != 1 || scope.WatchDirs[0] != other {
		t.Errorf("expected only %s to survive, got %v", other, scope.WatchDirs)
	}
}

func TestPatternExactMatchExclusion(t *testing.T) {
	dir := t.TempDir()
	scope := BuildScope(Input{
		Dirs:     []string{dir},
		Includes: []string{"*.go", "*.tmpl"},
		Excludes: []string{"*.go"},
	})

	for _, p := range scope.Includes {
		if p == "*.go" {
			t.Error("pattern present in both includes and excludes must not survive")
		}
	}
	if len(scope.Includes) != 1 || scope.Includes[0] != "*.tmpl" {
		t.Errorf("unexpected includes: %v", scope.Includes)
	}
	// Exclusion of patterns is exact-match only: a broader exclude glob
	// does not swallow a narrower include.
	scope = BuildScope(Input{
		Dirs:     []string{dir},
		Includes: []string{"src/*.go"},
		Excludes: []string{"*.go"},
	})
	if len(scope.Includes) != 1 {
		t.Errorf("glob-vs-glob containment must not be applied: %v", scope.Includes)
	}
}

func TestEmptyScopeFallsBackToCwd(t *testing.T) {
	scope := BuildScope(Input{Dirs: []string{"/definitely/not/a/real/dir"}})

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if len(scope.WatchDirs) != 1 || scope.WatchDirs[0] != cwd {
		t.Errorf("expected fallback to cwd %s, got %v", cwd, scope.WatchDirs)
	}
}

func TestMatches(t *testing.T) {
	root := t.TempDir()
	skip := filepath.Join(root, "vendor")
	if err := os.Mkdir(skip, 0o755); err != nil {
		t.Fatal(err)
	}

	scope := BuildScope(Input{
		Dirs:     []string{root},
		Includes: []string{"*.go"},
		Excludes: []string{"*_test.go", skip},
	})

	cases := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "main.go"), true},
		{filepath.Join(root, "main_test.go"), false},
		{filepath.Join(root, "README.md"), false},
		{filepath.Join(skip, "dep.go"), false},
		{"/outside/of/scope.go", false},
	}
	for _, tc := range cases {
		if got := scope.Matches(tc.path); got != tc.want {
			t.Errorf("Matches(%s) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
