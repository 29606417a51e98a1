package analyzers

import (
	"context"
	"regexp"
	"strings"

	"github.com/standardbeagle/diffscope/internal/finding"
	"github.com/standardbeagle/diffscope/internal/types"
)

// Route registration shapes across common HTTP frameworks.
var routePatterns = []struct {
	re        *regexp.Regexp
	routeType string
}{
	{regexp.MustCompile(`(?i)(?:router|app|mux|r|e|g)\.(get|post|put|patch|delete|head|options)\(\s*["']([^"']+)["']`), "rest"},
	{regexp.MustCompile(`http\.HandleFunc\(\s*"([^"]+)"`), "rest"},
	{regexp.MustCompile(`@(?:Get|Post|Put|Patch|Delete)\(\s*["']([^"']+)["']`), "rest"},
	{regexp.MustCompile(`(?i)\.(query|mutation|subscription)\(\s*["']([^"']+)["']`), "graphql"},
}

// RouteAnalyzer reports HTTP/GraphQL endpoints added or removed by the
// changeset.
type RouteAnalyzer struct{}

func NewRouteAnalyzer() *RouteAnalyzer { return &RouteAnalyzer{} }

func (a *RouteAnalyzer) Name() string           { return "route-change" }
func (a *RouteAnalyzer) Version() string        { return "1" }
func (a *RouteAnalyzer) CacheScope() CacheScope { return ScopeFiles }
func (a *RouteAnalyzer) FilePatterns() []string { return nil }

func (a *RouteAnalyzer) Analyze(_ context.Context, cs *types.ChangeSet) ([]finding.Finding, error) {
	type key struct{ routeID, change string }
	seen := map[key]struct{}{}
	var out []finding.Finding

	scan := func(path string, lines []string, nos []int, start int, change string) {
		for i, line := range lines {
			for _, rp := range routePatterns {
				m := rp.re.FindStringSubmatch(line)
				if m == nil {
					continue
				}
				var routeID string
				if len(m) == 3 {
					routeID = strings.ToUpper(m[1]) + " " + m[2]
				} else {
					routeID = "ANY " + m[1]
				}
				k := key{routeID, change}
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				out = append(out, finding.Finding{
					Type:       finding.TypeRouteChange,
					Kind:       change,
					Category:   finding.CategoryAPI,
					Confidence: 0.7,
					Summary:    "Route " + routeID + " " + change,
					RouteID:    routeID,
					Change:     change,
					RouteType:  rp.routeType,
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
