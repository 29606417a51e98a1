package analyzers

import (
	"context"
	"fmt"

	"github.com/standardbeagle/diffscope/internal/finding"
	"github.com/standardbeagle/diffscope/internal/types"
)

// LargeDiffAnalyzer emits at most one finding when the changeset exceeds
// the size thresholds. Strictly greater-than: a 30-file changeset is not
// large, a 31-file one is.
type LargeDiffAnalyzer struct{}

func NewLargeDiffAnalyzer() *LargeDiffAnalyzer { return &LargeDiffAnalyzer{} }

func (a *LargeDiffAnalyzer) Name() string           { return "large-diff" }
func (a *LargeDiffAnalyzer) Version() string        { return "1" }
func (a *LargeDiffAnalyzer) CacheScope() CacheScope { return ScopeGlobal }
func (a *LargeDiffAnalyzer) FilePatterns() []string { return nil }

func (a *LargeDiffAnalyzer) Analyze(_ context.Context, cs *types.ChangeSet) ([]finding.Finding, error) {
	filesChanged := len(cs.Files)
	linesChanged := 0
	for _, fd := range cs.Diffs {
		for _, h := range fd.Hunks() {
			linesChanged += len(h.Additions) + len(h.Deletions)
		}
	}

	if filesChanged <= types.LargeDiffFileThreshold && linesChanged <= types.LargeDiffLineThreshold {
		return nil, nil
	}

	return []finding.Finding{{
		Type:         finding.TypeLargeDiff,
		Kind:         "large",
		Category:     finding.CategorySize,
		Confidence:   1,
		Summary:      fmt.Sprintf("Large changeset: %d files, %d lines", filesChanged, linesChanged),
		FilesChanged: filesChanged,
		LinesChanged: linesChanged,
	}}, nil
}
