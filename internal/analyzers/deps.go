package analyzers

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/standardbeagle/diffscope/internal/finding"
	"github.com/standardbeagle/diffscope/internal/types"
)

var lockfileNames = map[string]struct{}{
	"package-lock.json": {},
	"yarn.lock":         {},
	"pnpm-lock.yaml":    {},
	"go.sum":            {},
	"cargo.lock":        {},
	"poetry.lock":       {},
	"gemfile.lock":      {},
}

// DependencyAnalyzer diffs the base/head manifest snapshots and reports
// added, removed and version-changed dependencies, flagging major bumps.
type DependencyAnalyzer struct{}

func NewDependencyAnalyzer() *DependencyAnalyzer { return &DependencyAnalyzer{} }

func (a *DependencyAnalyzer) Name() string           { return "dependency-change" }
func (a *DependencyAnalyzer) Version() string        { return "1" }
func (a *DependencyAnalyzer) CacheScope() CacheScope { return ScopeFiles }
func (a *DependencyAnalyzer) FilePatterns() []string {
	return []string{"**/package.json", "**/go.mod", "**/Cargo.toml", "**/pyproject.toml",
		"**/package-lock.json", "**/yarn.lock", "**/pnpm-lock.yaml", "**/go.sum",
		"**/Cargo.lock", "**/poetry.lock"}
}

func (a *DependencyAnalyzer) Analyze(_ context.Context, cs *types.ChangeSet) ([]finding.Finding, error) {
	var out []finding.Finding

	// Manifest snapshot diffing: the authoritative source for named
	// version transitions.
	paths := make(map[string]struct{})
	for p := range cs.BaseManifests {
		paths[p] = struct{}{}
	}
	for p := range cs.HeadManifests {
		paths[p] = struct{}{}
	}
	sortedManifestPaths := make([]string, 0, len(paths))
	for p := range paths {
		sortedManifestPaths = append(sortedManifestPaths, p)
	}
	sort.Strings(sortedManifestPaths)

	for _, path := range sortedManifestPaths {
		base := cs.BaseManifests[path]
		head := cs.HeadManifests[path]
		out = append(out, diffManifestSection(path, "dependencies", deps(base, false), deps(head, false))...)
		out = append(out, diffManifestSection(path, "devDependencies", deps(base, true), deps(head, true))...)
	}

	// Lockfile churn is reported separately; the named transitions above
	// already cover the manifests.
	for _, fc := range cs.Files {
		base := strings.ToLower(fc.Path)
		if i := strings.LastIndexByte(base, '/'); i >= 0 {
			base = base[i+1:]
		}
		if _, ok := lockfileNames[base]; ok {
			out = append(out, finding.Finding{
				Type:       finding.TypeLockfileChange,
				Kind:       fc.Status.String(),
				Category:   finding.CategoryDeps,
				Confidence: 1,
				Summary:    "Lockfile " + fc.Path + " " + fc.Status.String(),
				File:       fc.Path,
				Evidence:   []finding.Evidence{{File: fc.Path}},
			})
		}
	}

	return out, nil
}

func deps(m *types.Manifest, dev bool) map[string]string {
	if m == nil {
		return nil
	}
	if dev {
		return m.DevDependencies
	}
	return m.Dependencies
}

func diffManifestSection(path, section string, base, head map[string]string) []finding.Finding {
	names := make([]string, 0, len(base)+len(head))
	seen := map[string]struct{}{}
	for n := range base {
		names = append(names, n)
		seen[n] = struct{}{}
	}
	for n := range head {
		if _, ok := seen[n]; !ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	var out []finding.Finding
	for _, name := range names {
		from, inBase := base[name]
		to, inHead := head[name]
		if inBase && inHead && from == to {
			continue
		}

		kind := "changed"
		switch {
		case !inBase:
			kind = "added"
		case !inHead:
			kind = "removed"
		}

		f := finding.Finding{
			Type:       finding.TypeDependencyChange,
			Kind:       kind,
			Category:   finding.CategoryDeps,
			Confidence: 1,
			Name:       name,
			From:       from,
			To:         to,
			Section:    section,
			Runtime:    section == "dependencies",
			MajorBump:  inBase && inHead && majorOf(from) != majorOf(to),
			File:       path,
			Evidence:   []finding.Evidence{{File: path, Excerpt: name + ": " + from + " -> " + to}},
		}
		f.Summary = "Dependency " + name + " " + kind
		out = append(out, f)
	}
	return out
}

// majorOf extracts the leading major version from a constraint like
// "^17.0.2" or "v1.2.3"; -1 when unparseable.
func majorOf(v string) int {
	v = strings.TrimLeft(v, "^~=<>v ")
	end := 0
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	if end == 0 {
		return -1
	}
	n, err := strconv.Atoi(v[:end])
	if err != nil {
		return -1
	}
	return n
}
