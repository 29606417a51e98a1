package analyzers

import (
	"context"
	"regexp"
	"strings"

	"github.com/standardbeagle/diffscope/internal/finding"
	"github.com/standardbeagle/diffscope/internal/types"
)

// Environment variable access across the ecosystems we classify.
var envVarPatterns = []*regexp.Regexp{
	regexp.MustCompile(`process\.env\.([A-Z][A-Z0-9_]*)`),
	regexp.MustCompile(`process\.env\[["']([A-Z][A-Z0-9_]*)["']\]`),
	regexp.MustCompile(`os\.Getenv\("([A-Z][A-Z0-9_]*)"\)`),
	regexp.MustCompile(`os\.environ(?:\.get)?\[?\(?["']([A-Z][A-Z0-9_]*)["']`),
	regexp.MustCompile(`ENV\[["']([A-Z][A-Z0-9_]*)["']\]`),
}

// EnvVarAnalyzer reports environment variables whose usage was added or
// removed by the changeset.
type EnvVarAnalyzer struct{}

func NewEnvVarAnalyzer() *EnvVarAnalyzer { return &EnvVarAnalyzer{} }

func (a *EnvVarAnalyzer) Name() string           { return "env-var" }
func (a *EnvVarAnalyzer) Version() string        { return "1" }
func (a *EnvVarAnalyzer) CacheScope() CacheScope { return ScopeFiles }
func (a *EnvVarAnalyzer) FilePatterns() []string { return nil }

func (a *EnvVarAnalyzer) Analyze(_ context.Context, cs *types.ChangeSet) ([]finding.Finding, error) {
	type key struct {
		variable, kind, file string
	}
	seen := map[key]int{} // -> finding index
	var out []finding.Finding

	record := func(variable, kind, file, excerpt string, line int) {
		k := key{variable, kind, file}
		if idx, ok := seen[k]; ok {
			out[idx].Evidence = append(out[idx].Evidence, finding.Evidence{File: file, Line: line, Excerpt: truncate(excerpt, 120)})
			return
		}
		seen[k] = len(out)
		out = append(out, finding.Finding{
			Type:       finding.TypeEnvVar,
			Kind:       kind,
			Category:   finding.CategoryEnv,
			Confidence: 0.8,
			Summary:    "Env var " + variable + " " + kind,
			Variable:   variable,
			File:       file,
			Evidence:   []finding.Evidence{{File: file, Line: line, Excerpt: truncate(excerpt, 120)}},
		})
	}

	scan := func(path string, lines []string, nos []int, start int, kind string) {
		for i, line := range lines {
			for _, re := range envVarPatterns {
				for _, m := range re.FindAllStringSubmatch(line, -1) {
					record(m[1], kind, path, strings.TrimSpace(line), lineNumberAt(nos, start, i))
				}
			}
		}
	}

	eachHunk(cs, func(path string, h types.Hunk) {
		scan(path, h.Additions, h.AdditionLines, h.NewStart, "added")
		scan(path, h.Deletions, h.DeletionLines, h.OldStart, "removed")
	})

	return out, nil
}
