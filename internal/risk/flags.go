// Package risk derives scored judgments from the finding set: discrete
// risk flags per rule, and one aggregate score with an explainable factor
// list. Both passes are deterministic over any input ordering.
package risk

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/diffscope/internal/finding"
)

// Flag levels and their score contributions.
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"

	scoreHigh   = 40
	scoreMedium = 20
	scoreLow    = 5
)

func levelScore(level string) int {
	switch level {
	case LevelHigh:
		return scoreHigh
	case LevelMedium:
		return scoreMedium
	default:
		return scoreLow
	}
}

// BuildFlags synthesizes risk flags from findings. Each rule groups the
// findings it recognizes, assigns a level, and links back to the finding
// IDs it was derived from. Major dependency bumps and large diffs are
// scored directly by the aggregator, not flagged here, so their weight is
// never counted twice.
func BuildFlags(findings []finding.Finding) []finding.RiskFlag {
	var flags []finding.RiskFlag

	add := func(ruleKey string, cat finding.Category, level string, confidence float64, title, summary string, checks []string, related []finding.Finding) {
		ids := make([]string, 0, len(related))
		var evidence []finding.Evidence
		for _, f := range related {
			ids = append(ids, f.ID)
			evidence = append(evidence, f.Evidence...)
		}
		score := levelScore(level)
		flags = append(flags, finding.RiskFlag{
			ID:                finding.BuildFlagID(ruleKey, ids),
			RuleKey:           ruleKey,
			Category:          cat,
			Level:             level,
			Score:             score,
			Confidence:        confidence,
			Title:             title,
			Summary:           summary,
			Evidence:          evidence,
			SuggestedChecks:   checks,
			EffectiveScore:    int(float64(score)*confidence + 0.5),
			RelatedFindingIDs: ids,
		})
	}

	byType := map[finding.Type][]finding.Finding{}
	for _, f := range findings {
		byType[f.Type] = append(byType[f.Type], f)
	}

	for _, f := range byType[finding.TypeDockerChange] {
		if !f.IsBreaking {
			continue
		}
		add("docker-breaking", finding.CategoryInfra, LevelHigh, 0.9,
			"Breaking container change",
			fmt.Sprintf("%s: %s", f.File, strings.Join(f.BreakingReasons, "; ")),
			[]string{"Rebuild the image and run the container smoke tests", "Check downstream deploy manifests for the old port/user"},
			[]finding.Finding{f})
	}

	if ms := byType[finding.TypeDBMigration]; len(ms) > 0 {
		add("db-migration", finding.CategoryDatabase, LevelHigh, 0.85,
			"Database migration",
			fmt.Sprintf("%d migration file(s) changed", len(ms)),
			[]string{"Verify the migration is reversible", "Run it against a staging copy before deploy"},
			ms)
	}

	if ss := byType[finding.TypeSecuritySurface]; len(ss) > 0 {
		add("security-surface", finding.CategorySecurity, LevelMedium, 0.6,
			"Security-sensitive code touched",
			fmt.Sprintf("%d security-sensitive change(s)", len(ss)),
			[]string{"Request a security-focused review", "Check for credential or secret handling changes"},
			ss)
	}

	var removedEnv, addedEnv []finding.Finding
	for _, f := range byType[finding.TypeEnvVar] {
		if f.Kind == "removed" {
			removedEnv = append(removedEnv, f)
		} else {
			addedEnv = append(addedEnv, f)
		}
	}
	if len(removedEnv) > 0 {
		add("env-var-removed", finding.CategoryEnv, LevelMedium, 0.8,
			"Environment variable removed",
			fmt.Sprintf("%d env var reference(s) removed", len(removedEnv)),
			[]string{"Confirm no deployment still sets or reads the removed variable"},
			removedEnv)
	}
	if len(addedEnv) > 0 {
		add("env-var-added", finding.CategoryEnv, LevelLow, 0.8,
			"New environment variable",
			fmt.Sprintf("%d new env var reference(s)", len(addedEnv)),
			[]string{"Add the new variable to every deployment environment"},
			addedEnv)
	}

	var removedRoutes []finding.Finding
	for _, f := range byType[finding.TypeRouteChange] {
		if f.Change == "removed" {
			removedRoutes = append(removedRoutes, f)
		}
	}
	if len(removedRoutes) > 0 {
		add("route-removed", finding.CategoryAPI, LevelMedium, 0.7,
			"API route removed",
			fmt.Sprintf("%d route(s) removed", len(removedRoutes)),
			[]string{"Check for clients still calling the removed route"},
			removedRoutes)
	}

	if ci := byType[finding.TypeCIChange]; len(ci) > 0 {
		add("ci-pipeline", finding.CategoryCI, LevelLow, 0.9,
			"CI pipeline changed",
			fmt.Sprintf("%d pipeline file(s) changed", len(ci)),
			[]string{"Watch the first pipeline run after merge"},
			ci)
	}

	if ff := byType[finding.TypeFeatureFlag]; len(ff) > 0 {
		add("feature-flag", finding.CategoryConfig, LevelLow, 0.6,
			"Feature flag changed",
			fmt.Sprintf("%d flag reference(s) changed", len(ff)),
			[]string{"Confirm the flag's default state in every environment"},
			ff)
	}

	finding.SortFlags(flags)
	return flags
}
