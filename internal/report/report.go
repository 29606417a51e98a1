// Package report assembles the pipeline's outputs into one immutable
// report value and renders it as JSON or terminal text. Builders sort and
// assign IDs; renderers are read-only.
package report

import (
	"time"

	"github.com/standardbeagle/diffscope/internal/finding"
	"github.com/standardbeagle/diffscope/internal/risk"
	"github.com/standardbeagle/diffscope/internal/types"
)

// Report is the complete result of one analysis run. Findings and flags
// arrive already deterministically sorted with IDs assigned; GeneratedAt
// is the only field that varies between identical runs.
type Report struct {
	Base        string             `json:"base"`
	Head        string             `json:"head"`
	Mode        types.DiffMode     `json:"mode"`
	GeneratedAt time.Time          `json:"generatedAt"`
	Files       []types.FileChange `json:"files"`
	Findings    []finding.Finding  `json:"findings"`
	Flags       []finding.RiskFlag `json:"flags"`
	Risk        risk.Score         `json:"risk"`
}

// Build finalizes raw analyzer output into a report: sort findings,
// assign IDs, derive flags, aggregate risk.
func Build(cs *types.ChangeSet, findings []finding.Finding) *Report {
	finding.Sort(findings)
	withIDs := finding.AssignIDs(findings)
	flags := risk.BuildFlags(withIDs)
	score := risk.Aggregate(flags, withIDs, cs.Files)

	return &Report{
		Base:        cs.Base,
		Head:        cs.Head,
		Mode:        cs.Mode,
		GeneratedAt: time.Now().UTC(),
		Files:       cs.Files,
		Findings:    withIDs,
		Flags:       flags,
		Risk:        score,
	}
}

// FindingByID resolves a stable finding ID against the report.
func (r *Report) FindingByID(id string) (finding.Finding, bool) {
	for _, f := range r.Findings {
		if f.ID == id {
			return f, true
		}
	}
	return finding.Finding{}, false
}

// FlagByID resolves a stable flag ID against the report.
func (r *Report) FlagByID(id string) (finding.RiskFlag, bool) {
	for _, fl := range r.Flags {
		if fl.ID == id {
			return fl, true
		}
	}
	return finding.RiskFlag{}, false
}
