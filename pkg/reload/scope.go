package reload

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/shashiranjanraj/vayu/pkg/logger"
)

// Input is the raw, already-normalized user input for scope resolution.
type Input struct {
	// Dirs are explicitly requested watch directories.
	Dirs []string
	// Includes mixes glob patterns and directory paths to watch.
	Includes []string
	// Excludes mixes glob patterns and directory paths to ignore.
	Excludes []string
}

// Scope is the resolved watch scope. Built once at configuration time and
// never mutated afterward.
type Scope struct {
	// Includes are the glob patterns a changed path must match.
	Includes []string
	// Excludes are the glob patterns that veto a changed path.
	Excludes []string
	// WatchDirs are the absolute directories handed to the watcher.
	WatchDirs []string
	// ExcludeDirs are absolute directories whose subtrees are ignored.
	ExcludeDirs []string
}

// BuildScope resolves raw input into the final watch scope.
//
// Directory exclusion is tree-containment: an excluded directory removes
// every watch directory equal to or nested under it. Pattern exclusion is
// exact string match only; patterns are not paths, so no glob-vs-glob
// containment is attempted. When everything resolves away, the current
// working directory is watched as a fallback.
func BuildScope(in Input) *Scope {
	s := &Scope{}
	s.Includes, s.WatchDirs = ResolvePatterns(in.Includes, in.Dirs)
	s.Excludes, s.ExcludeDirs = ResolvePatterns(in.Excludes, nil)

	kept := s.WatchDirs[:0]
	for _, dir := range s.WatchDirs {
		excluded := false
		for _, ex := range s.ExcludeDirs {
			if containsDir(ex, dir) {
				excluded = true
				break
			}
		}
		if !excluded {
			kept = append(kept, dir)
		}
	}
	s.WatchDirs = kept

	included := s.Includes[:0]
	for _, pattern := range s.Includes {
		if !containsString(s.Excludes, pattern) {
			included = append(included, pattern)
		}
	}
	s.Includes = included

	if len(s.WatchDirs) == 0 {
		if len(in.Dirs) > 0 {
			logger.Warn("provided reload directories did not contain valid directories, watching current working directory",
				"dirs", in.Dirs)
		}
		if cwd, err := os.Getwd(); err == nil {
			s.WatchDirs = []string{cwd}
		}
	}

	sort.Strings(s.WatchDirs)
	return s
}

// Matches reports whether a changed path is inside the scope: under a watch
// directory, not under an excluded one, matching the include patterns (when
// any are set) and none of the exclude patterns.
func (s *Scope) Matches(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	inWatch := false
	for _, dir := range s.WatchDirs {
		if containsDir(dir, abs) {
			inWatch = true
			break
		}
	}
	if !inWatch {
		return false
	}
	for _, dir := range s.ExcludeDirs {
		if containsDir(dir, abs) {
			return false
		}
	}

	base := filepath.Base(abs)
	for _, pattern := range s.Excludes {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return false
		}
		if ok, _ := doublestar.Match(pattern, abs); ok {
			return false
		}
	}
	if len(s.Includes) == 0 {
		return true
	}
	for _, pattern := range s.Includes {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, abs); ok {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
