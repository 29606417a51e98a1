package finding

import (
	"sort"
)

// typeRank fixes the within-category order of finding types.
var typeRank = func() map[Type]int {
	m := make(map[Type]int, len(AllTypes))
	for i, t := range AllTypes {
		m[t] = i
	}
	return m
}()

// Sort establishes the one global total order over findings: category,
// then type, then a content-derived tiebreaker (the fingerprint). It also
// orders each finding's evidence by file then line. This sort is the single
// source of output determinism; nothing downstream may rely on insertion
// order.
//
// Sorting happens in place on the slice header but replaces evidence
// slices rather than mutating shared ones.
func Sort(findings []Finding) {
	for i := range findings {
		findings[i].Evidence = sortedEvidence(findings[i].Evidence)
	}
	sort.SliceStable(findings, func(a, b int) bool {
		fa, fb := &findings[a], &findings[b]
		if fa.Category != fb.Category {
			return fa.Category < fb.Category
		}
		if fa.Type != fb.Type {
			return typeRank[fa.Type] < typeRank[fb.Type]
		}
		return fingerprint(*fa) < fingerprint(*fb)
	})
}

// SortFlags orders flags by category, rule key, then ID.
func SortFlags(flags []RiskFlag) {
	for i := range flags {
		flags[i].Evidence = sortedEvidence(flags[i].Evidence)
	}
	sort.SliceStable(flags, func(a, b int) bool {
		fa, fb := &flags[a], &flags[b]
		if fa.Category != fb.Category {
			return fa.Category < fb.Category
		}
		if fa.RuleKey != fb.RuleKey {
			return fa.RuleKey < fb.RuleKey
		}
		return fa.ID < fb.ID
	})
}

func sortedEvidence(ev []Evidence) []Evidence {
	if len(ev) < 2 {
		return ev
	}
	out := make([]Evidence, len(ev))
	copy(out, ev)
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].File != out[b].File {
			return normPath(out[a].File) < normPath(out[b].File)
		}
		return out[a].Line < out[b].Line
	})
	return out
}
