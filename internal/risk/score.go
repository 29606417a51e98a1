package risk

import (
	"fmt"
	"sort"

	"github.com/standardbeagle/diffscope/internal/finding"
	"github.com/standardbeagle/diffscope/internal/types"
)

// Factor is one recorded score contribution. The final score is always
// re-derivable by summing the factor weights and clamping; no hidden
// adjustments.
type Factor struct {
	Kind        string `json:"kind"`
	Weight      int    `json:"weight"`
	Explanation string `json:"explanation"`
}

// Score is the aggregate risk judgment for one changeset.
type Score struct {
	Score   int      `json:"score"`
	Level   string   `json:"level"`
	Factors []Factor `json:"factors,omitempty"`
}

// Low-risk damping and direct finding weights.
const (
	lowRiskDamping     = -30
	majorBumpWeight    = 15
	runtimeSurcharge   = 5
	largeDiffWeight    = 10
	hugeDiffWeight     = 20
	hugeDiffLineCutoff = 2000
)

// Aggregate folds flags, findings and the file list into one clamped
// score. Flags contribute by level; major dependency bumps and large
// diffs contribute directly from their findings; an all-low-risk file set
// damps the total before clamping. Total over any input, including empty
// (score 0, level low, no factors).
func Aggregate(flags []finding.RiskFlag, findings []finding.Finding, files []types.FileChange) Score {
	var factors []Factor

	if len(files) > 0 && types.LowRiskOnly(files) {
		factors = append(factors, Factor{
			Kind:        "low-risk-profile",
			Weight:      lowRiskDamping,
			Explanation: "Only docs, tests and tool config changed",
		})
	}

	for _, fl := range flags {
		factors = append(factors, Factor{
			Kind:        "flag:" + fl.RuleKey,
			Weight:      levelScore(fl.Level),
			Explanation: fl.Title,
		})
	}

	for _, f := range findings {
		switch f.Type {
		case finding.TypeDependencyChange:
			if !f.MajorBump {
				continue
			}
			w := majorBumpWeight
			expl := fmt.Sprintf("Major version bump: %s %s -> %s", f.Name, f.From, f.To)
			if f.Runtime {
				w += runtimeSurcharge
				expl += " (runtime dependency)"
			}
			factors = append(factors, Factor{Kind: "major-dependency-bump", Weight: w, Explanation: expl})
		case finding.TypeLargeDiff:
			w := largeDiffWeight
			if f.LinesChanged > hugeDiffLineCutoff {
				w = hugeDiffWeight
			}
			factors = append(factors, Factor{
				Kind:        "large-diff",
				Weight:      w,
				Explanation: fmt.Sprintf("Large changeset: %d files, %d lines", f.FilesChanged, f.LinesChanged),
			})
		}
	}

	sort.Slice(factors, func(i, j int) bool {
		if factors[i].Kind != factors[j].Kind {
			return factors[i].Kind < factors[j].Kind
		}
		if factors[i].Weight != factors[j].Weight {
			return factors[i].Weight > factors[j].Weight
		}
		return factors[i].Explanation < factors[j].Explanation
	})

	total := 0
	for _, f := range factors {
		total += f.Weight
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	return Score{Score: total, Level: LevelFor(total), Factors: factors}
}

// LevelFor maps a clamped score to its discrete level.
func LevelFor(score int) string {
	switch {
	case score >= types.RiskHighThreshold:
		return LevelHigh
	case score >= types.RiskMediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}
