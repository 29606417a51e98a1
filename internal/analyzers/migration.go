package analyzers

import (
	"context"
	"regexp"
	"strings"

	"github.com/standardbeagle/diffscope/internal/finding"
	"github.com/standardbeagle/diffscope/internal/types"
)

var ddlPattern = regexp.MustCompile(`(?i)\b(CREATE|ALTER|DROP)\s+(TABLE|INDEX|COLUMN|VIEW|TYPE|SEQUENCE)\b`)

// MigrationAnalyzer reports database migration files and the DDL they add.
type MigrationAnalyzer struct{}

func NewMigrationAnalyzer() *MigrationAnalyzer { return &MigrationAnalyzer{} }

func (a *MigrationAnalyzer) Name() string           { return "db-migration" }
func (a *MigrationAnalyzer) Version() string        { return "1" }
func (a *MigrationAnalyzer) CacheScope() CacheScope { return ScopeFiles }
func (a *MigrationAnalyzer) FilePatterns() []string {
	return []string{"**/migrations/**", "**/migrate/**", "*.sql", "**/schema.prisma"}
}

func (a *MigrationAnalyzer) Analyze(_ context.Context, cs *types.ChangeSet) ([]finding.Finding, error) {
	var out []finding.Finding

	for _, fd := range cs.Diffs {
		path := fd.Path()
		if !MatchAny(a.FilePatterns(), path) {
			continue
		}

		var evidence []finding.Evidence
		for _, h := range fd.Hunks() {
			for i, l := range h.Additions {
				if ddlPattern.MatchString(l) {
					evidence = append(evidence, finding.Evidence{
						File: path, Line: lineNumberAt(h.AdditionLines, h.NewStart, i), Excerpt: truncate(strings.TrimSpace(l), 120),
					})
				}
			}
		}

		out = append(out, finding.Finding{
			Type:       finding.TypeDBMigration,
			Kind:       fd.Status().String(),
			Category:   finding.CategoryDatabase,
			Confidence: 0.9,
			Summary:    "Migration " + path + " " + fd.Status().String(),
			File:       path,
			Evidence:   evidence,
		})
	}

	return out, nil
}
