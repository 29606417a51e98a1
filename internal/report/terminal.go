package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/standardbeagle/diffscope/internal/finding"
	"github.com/standardbeagle/diffscope/internal/risk"
)

var (
	headerColor = color.New(color.Bold)
	highColor   = color.New(color.FgRed, color.Bold)
	mediumColor = color.New(color.FgYellow)
	lowColor    = color.New(color.FgGreen)
	dimColor    = color.New(color.Faint)
)

func levelColor(level string) *color.Color {
	switch level {
	case risk.LevelHigh:
		return highColor
	case risk.LevelMedium:
		return mediumColor
	default:
		return lowColor
	}
}

// WriteTerminal renders a human-readable summary. Ordering mirrors the
// report's own: flags first (already sorted), then findings by category.
func WriteTerminal(w io.Writer, r *Report) error {
	headerColor.Fprintf(w, "diffscope %s..%s (%s)\n", r.Base, r.Head, r.Mode)
	fmt.Fprintf(w, "%d files changed, %d findings\n\n", len(r.Files), len(r.Findings))

	levelColor(r.Risk.Level).Fprintf(w, "risk: %d/100 (%s)\n", r.Risk.Score, r.Risk.Level)
	for _, f := range r.Risk.Factors {
		fmt.Fprintf(w, "  %+d  %s\n", f.Weight, f.Explanation)
	}
	fmt.Fprintln(w)

	if len(r.Flags) > 0 {
		headerColor.Fprintln(w, "flags")
		for _, fl := range r.Flags {
			levelColor(fl.Level).Fprintf(w, "  [%s] ", fl.Level)
			fmt.Fprintf(w, "%s — %s\n", fl.Title, fl.Summary)
			dimColor.Fprintf(w, "        %s\n", fl.ID)
		}
		fmt.Fprintln(w)
	}

	if len(r.Findings) > 0 {
		headerColor.Fprintln(w, "findings")
		var lastCat finding.Category
		for _, f := range r.Findings {
			if f.Category != lastCat {
				dimColor.Fprintf(w, "  %s\n", f.Category)
				lastCat = f.Category
			}
			fmt.Fprintf(w, "    %-18s %s\n", f.Type, f.Summary)
		}
	}
	return nil
}

// WriteZoom renders one finding or flag with full evidence, looked up by
// its stable ID.
func WriteZoom(w io.Writer, r *Report, id string) error {
	if f, ok := r.FindingByID(id); ok {
		headerColor.Fprintf(w, "%s\n", f.ID)
		fmt.Fprintf(w, "type: %s  kind: %s  category: %s  confidence: %.2f\n", f.Type, f.Kind, f.Category, f.Confidence)
		fmt.Fprintf(w, "%s\n", f.Summary)
		writeEvidence(w, f.Evidence)
		return nil
	}
	if fl, ok := r.FlagByID(id); ok {
		headerColor.Fprintf(w, "%s\n", fl.ID)
		levelColor(fl.Level).Fprintf(w, "[%s] ", fl.Level)
		fmt.Fprintf(w, "%s — %s\n", fl.Title, fl.Summary)
		writeEvidence(w, fl.Evidence)
		if len(fl.SuggestedChecks) > 0 {
			fmt.Fprintln(w, "suggested checks:")
			for _, c := range fl.SuggestedChecks {
				fmt.Fprintf(w, "  - %s\n", c)
			}
		}
		if len(fl.RelatedFindingIDs) > 0 {
			dimColor.Fprintf(w, "related: %v\n", fl.RelatedFindingIDs)
		}
		return nil
	}
	return fmt.Errorf("no finding or flag with id %q", id)
}

func writeEvidence(w io.Writer, evs []finding.Evidence) {
	for _, ev := range evs {
		if ev.Line > 0 {
			fmt.Fprintf(w, "  %s:%d", ev.File, ev.Line)
		} else {
			fmt.Fprintf(w, "  %s", ev.File)
		}
		if ev.Excerpt != "" {
			dimColor.Fprintf(w, "  %s", ev.Excerpt)
		}
		fmt.Fprintln(w)
	}
}
