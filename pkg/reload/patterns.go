// Package reload resolves which parts of the file system a hot-reload
// supervisor should watch, and provides the fsnotify-backed change detector
// that consumes the resolved scope.
//
// Resolution happens once at startup: raw user input (bare filenames, glob
// patterns, directory paths) is split into watch directories and match
// patterns, exclusions are applied, and the result is frozen into a Scope.
package reload

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// NormalizeList trims entries and drops empties so nil input, a single
// entry, and a full list all normalize to the same shape.
func NormalizeList(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// ResolvePatterns separates raw entries into glob patterns and existing
// directories. An entry naming a directory that exists on disk becomes a
// watch directory; everything else stays a pattern. Explicit directories in
// dirs are merged in. Directories come back absolute, deduplicated, and
// sorted; resolution never fails.
func ResolvePatterns(entries, dirs []string) (patterns []string, outDirs []string) {
	seen := map[string]bool{}
	add := func(dir string) {
		if abs, err := filepath.Abs(dir); err == nil && !seen[abs] {
			seen[abs] = true
			outDirs = append(outDirs, abs)
		}
	}

	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			add(dir)
		}
	}
	for _, entry := range entries {
		if info, err := os.Stat(entry); err == nil && info.IsDir() {
			add(entry)
		} else {
			patterns = append(patterns, entry)
		}
	}

	sort.Strings(outDirs)
	return patterns, outDirs
}

// containsDir reports whether child equals dir or lives anywhere under it.
func containsDir(dir, child string) bool {
	rel, err := filepath.Rel(dir, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
