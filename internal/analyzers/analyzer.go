// Package analyzers holds the analyzer contract plus the built-in set of
// pattern classifiers. Each analyzer is a pure function of the changeset:
// no shared mutable state, no ordering dependencies between analyzers.
package analyzers

import (
	"context"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/diffscope/internal/finding"
	"github.com/standardbeagle/diffscope/internal/types"
)

// CacheScope declares how an analyzer's cached results may be reused.
type CacheScope string

const (
	// ScopeFiles: cached findings stay valid while none of the analyzer's
	// previously processed files reappear in the changeset.
	ScopeFiles CacheScope = "files"
	// ScopeGlobal: cached findings stay valid while the changeset's
	// relevant file set is unchanged.
	ScopeGlobal CacheScope = "global"
)

// Analyzer is the runner's only view of domain logic.
type Analyzer interface {
	// Name uniquely identifies the analyzer in cache keys and logs.
	Name() string
	// Version is a behavior signature: bump it whenever the analyzer's
	// logic changes so stale cache entries stop matching.
	Version() string
	CacheScope() CacheScope
	// FilePatterns narrows which changed files the analyzer cares about;
	// nil means all files.
	FilePatterns() []string
	Analyze(ctx context.Context, cs *types.ChangeSet) ([]finding.Finding, error)
}

// MatchPattern is a pure string predicate over repo-relative paths; no
// filesystem access. Supported forms: exact match, "**/" prefix (match
// anywhere, including basename-only), "*.ext" suffix, "dir/*" (one level)
// and "dir/**" (recursive).
func MatchPattern(pattern, path string) bool {
	if pattern == path {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(path, pattern[1:])
	}
	ok, err := doublestar.Match(pattern, path)
	return err == nil && ok
}

// MatchAny reports whether any pattern matches path. An empty pattern list
// matches everything.
func MatchAny(patterns []string, path string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if MatchPattern(p, path) {
			return true
		}
	}
	return false
}

// RelevantFiles returns the sorted subset of changed paths the analyzer
// declares relevance to.
func RelevantFiles(a Analyzer, cs *types.ChangeSet) []string {
	patterns := a.FilePatterns()
	var out []string
	for _, fc := range cs.Files {
		if MatchAny(patterns, fc.Path) {
			out = append(out, fc.Path)
		}
	}
	sort.Strings(out)
	return out
}

// DefaultSet returns the built-in analyzers in registration order. The
// runner imposes no cross-analyzer ordering; final order comes from the
// sorting layer.
func DefaultSet() []Analyzer {
	return []Analyzer{
		NewEnvVarAnalyzer(),
		NewDependencyAnalyzer(),
		NewDockerAnalyzer(),
		NewMigrationAnalyzer(),
		NewRouteAnalyzer(),
		NewSecuritySurfaceAnalyzer(),
		NewFeatureFlagAnalyzer(),
		NewHousekeepingAnalyzer(),
		NewLargeDiffAnalyzer(),
	}
}

// eachHunk walks every (fileDiff, hunk) pair in the changeset.
func eachHunk(cs *types.ChangeSet, fn func(path string, h types.Hunk)) {
	for _, fd := range cs.Diffs {
		for _, h := range fd.Hunks() {
			fn(fd.Path(), h)
		}
	}
}

// lineNumberAt resolves the exact line number recorded for the i-th
// addition or deletion, falling back to the hunk start offset for hunks
// built without the parallel number slice.
func lineNumberAt(nos []int, start, i int) int {
	if i < len(nos) {
		return nos[i]
	}
	return start + i
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
