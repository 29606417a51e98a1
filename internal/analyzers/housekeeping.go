package analyzers

import (
	"context"
	"strings"

	"github.com/standardbeagle/diffscope/internal/finding"
	"github.com/standardbeagle/diffscope/internal/types"
)

var ciPatterns = []string{
	".github/workflows/*", ".gitlab-ci.yml", "Jenkinsfile", ".circleci/*",
	"azure-pipelines.yml", ".travis.yml",
}

var configFiles = map[string]struct{}{
	"tsconfig.json":      {},
	"babel.config.js":    {},
	"webpack.config.js":  {},
	"vite.config.ts":     {},
	"jest.config.js":     {},
	".eslintrc.json":     {},
	".eslintrc.js":       {},
	"next.config.js":     {},
	"tailwind.config.js": {},
	"makefile":           {},
}

// HousekeepingAnalyzer covers the path-driven classifications: CI
// pipelines, build/tool configuration and binary artifacts.
type HousekeepingAnalyzer struct{}

func NewHousekeepingAnalyzer() *HousekeepingAnalyzer { return &HousekeepingAnalyzer{} }

func (a *HousekeepingAnalyzer) Name() string           { return "housekeeping" }
func (a *HousekeepingAnalyzer) Version() string        { return "1" }
func (a *HousekeepingAnalyzer) CacheScope() CacheScope { return ScopeFiles }
func (a *HousekeepingAnalyzer) FilePatterns() []string { return nil }

func (a *HousekeepingAnalyzer) Analyze(_ context.Context, cs *types.ChangeSet) ([]finding.Finding, error) {
	var out []finding.Finding

	for _, fc := range cs.Files {
		base := strings.ToLower(fc.Path)
		if i := strings.LastIndexByte(base, '/'); i >= 0 {
			base = base[i+1:]
		}

		switch {
		case MatchAny(ciPatterns, fc.Path):
			out = append(out, finding.Finding{
				Type:       finding.TypeCIChange,
				Kind:       fc.Status.String(),
				Category:   finding.CategoryCI,
				Confidence: 1,
				Summary:    "CI pipeline " + fc.Path + " " + fc.Status.String(),
				File:       fc.Path,
				Evidence:   []finding.Evidence{{File: fc.Path}},
			})
		case fc.Binary:
			out = append(out, finding.Finding{
				Type:       finding.TypeBinaryChange,
				Kind:       fc.Status.String(),
				Category:   finding.CategoryConfig,
				Confidence: 1,
				Summary:    "Binary file " + fc.Path + " " + fc.Status.String(),
				File:       fc.Path,
				Evidence:   []finding.Evidence{{File: fc.Path}},
			})
		default:
			if _, ok := configFiles[base]; ok {
				out = append(out, finding.Finding{
					Type:       finding.TypeConfigChange,
					Kind:       fc.Status.String(),
					Category:   finding.CategoryConfig,
					Confidence: 1,
					Summary:    "Tool config " + fc.Path + " " + fc.Status.String(),
					File:       fc.Path,
					Evidence:   []finding.Evidence{{File: fc.Path}},
				})
			}
		}
	}

	return out, nil
}
