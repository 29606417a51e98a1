package analyzers

import (
	"context"
	"regexp"
	"strings"

	"github.com/standardbeagle/diffscope/internal/finding"
	"github.com/standardbeagle/diffscope/internal/types"
)

var flagPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)feature.?flag[s]?[.(\[]\s*["']?([a-zA-Z0-9_.-]+)`),
	regexp.MustCompile(`(?i)\bflags?\.isEnabled\(\s*["']([a-zA-Z0-9_.-]+)`),
	regexp.MustCompile(`(?i)\bunleash\.isEnabled\(\s*["']([a-zA-Z0-9_.-]+)`),
	regexp.MustCompile(`(?i)\blaunchdarkly|ld(?:Client)?\.variation\(\s*["']([a-zA-Z0-9_.-]+)`),
}

// FeatureFlagAnalyzer reports feature flags introduced or retired by the
// changeset.
type FeatureFlagAnalyzer struct{}

func NewFeatureFlagAnalyzer() *FeatureFlagAnalyzer { return &FeatureFlagAnalyzer{} }

func (a *FeatureFlagAnalyzer) Name() string           { return "feature-flag" }
func (a *FeatureFlagAnalyzer) Version() string        { return "1" }
func (a *FeatureFlagAnalyzer) CacheScope() CacheScope { return ScopeFiles }
func (a *FeatureFlagAnalyzer) FilePatterns() []string { return nil }

func (a *FeatureFlagAnalyzer) Analyze(_ context.Context, cs *types.ChangeSet) ([]finding.Finding, error) {
	type key struct{ name, kind string }
	seen := map[key]struct{}{}
	var out []finding.Finding

	scan := func(path string, lines []string, nos []int, start int, kind string) {
		for i, line := range lines {
			for _, re := range flagPatterns {
				m := re.FindStringSubmatch(line)
				if m == nil || m[len(m)-1] == "" {
					continue
				}
				name := m[len(m)-1]
				k := key{name, kind}
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				out = append(out, finding.Finding{
					Type:       finding.TypeFeatureFlag,
					Kind:       kind,
					Category:   finding.CategoryConfig,
					Confidence: 0.6,
					Summary:    "Feature flag " + name + " " + kind,
					Name:       name,
					File:       path,
					Evidence:   []finding.Evidence{{File: path, Line: lineNumberAt(nos, start, i), Excerpt: truncate(strings.TrimSpace(line), 120)}},
				})
			}
		}
	}

	eachHunk(cs, func(path string, h types.Hunk) {
		scan(path, h.Additions, h.AdditionLines, h.NewStart, "added")
		scan(path, h.Deletions, h.DeletionLines, h.OldStart, "removed")
	})

	return out, nil
}
