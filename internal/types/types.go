package types

import (
	"fmt"
	"strings"
)

// Common system-wide constants
const (
	// Parser capacity heuristics, derived from measuring real-world diffs.
	// A unified diff averages ~40 bytes per line, ~20 lines per hunk and
	// ~3 hunks per file; the floors keep tiny diffs from thrashing growth.
	BytesPerLineEstimate = 40
	LinesPerHunkEstimate = 20
	HunksPerFileEstimate = 3

	MinLineCapacity = 256
	MinHunkCapacity = 32
	MinFileCapacity = 16

	// Large-diff thresholds. A changeset touching more than 30 files or
	// more than 800 changed lines is flagged regardless of content.
	LargeDiffFileThreshold = 30
	LargeDiffLineThreshold = 800

	// Risk level cut points over the clamped 0-100 score.
	RiskHighThreshold   = 50
	RiskMediumThreshold = 20
)

// FileStatus describes what happened to a file in a changeset.
type FileStatus uint8

const (
	StatusModified FileStatus = iota
	StatusAdded
	StatusDeleted
	StatusRenamed
)

func (s FileStatus) String() string {
	switch s {
	case StatusAdded:
		return "added"
	case StatusDeleted:
		return "deleted"
	case StatusRenamed:
		return "renamed"
	default:
		return "modified"
	}
}

// ParseFileStatus converts a git name-status letter to a FileStatus.
// Rename entries carry a similarity score suffix (e.g. "R100").
func ParseFileStatus(s string) (FileStatus, error) {
	if s == "" {
		return StatusModified, fmt.Errorf("empty status")
	}
	switch s[0] {
	case 'A':
		return StatusAdded, nil
	case 'D':
		return StatusDeleted, nil
	case 'R':
		return StatusRenamed, nil
	case 'M', 'T':
		return StatusModified, nil
	}
	return StatusModified, fmt.Errorf("unknown git status %q", s)
}

// FileChange is the light per-file view used for categorization and
// summaries; no hunk content is attached.
type FileChange struct {
	Path    string     `json:"path"`
	OldPath string     `json:"oldPath,omitempty"`
	Status  FileStatus `json:"status"`
	Binary  bool       `json:"binary,omitempty"`
}

// Hunk is one contiguous change region within a file diff.
// AdditionLines and DeletionLines run parallel to Additions and
// Deletions, carrying each line's exact new-side (resp. old-side) line
// number; additions interleaved with context do not share the hunk
// start offset.
type Hunk struct {
	OldStart      int      `json:"oldStart"`
	OldLines      int      `json:"oldLines"`
	NewStart      int      `json:"newStart"`
	NewLines      int      `json:"newLines"`
	Content       string   `json:"content"`
	Additions     []string `json:"additions"`
	Deletions     []string `json:"deletions"`
	AdditionLines []int    `json:"additionLines,omitempty"`
	DeletionLines []int    `json:"deletionLines,omitempty"`
}

// FileDiff is the conventional object model over one file's diff.
// Both the eager and the lazy adapter implementations satisfy it; callers
// must not assume which one they hold.
type FileDiff interface {
	Path() string
	OldPath() string
	Status() FileStatus
	Hunks() []Hunk
}

// ChangeStats summarizes a parsed diff without materializing content.
type ChangeStats struct {
	FilesChanged int `json:"filesChanged"`
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
}

// DiffMode selects which working-tree state the changeset covers.
type DiffMode string

const (
	ModeBranch   DiffMode = "branch"
	ModeStaged   DiffMode = "staged"
	ModeUnstaged DiffMode = "unstaged"
	ModeAll      DiffMode = "all"
)

// Manifest is a dependency manifest snapshot taken at a ref
// (package.json, Cargo.toml, pyproject.toml).
type Manifest struct {
	Path            string            `json:"path"`
	Ecosystem       string            `json:"ecosystem"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
}

// ChangeSet is the unit of work for one analysis run. It is built once by
// the git collector and treated as deeply immutable afterwards: every
// analyzer receives the same value and must not mutate anything reachable
// from it.
type ChangeSet struct {
	Base string
	Head string
	Mode DiffMode

	Files []FileChange
	Diffs []FileDiff

	// Manifest snapshots at base and head, keyed by repo-relative path.
	BaseManifests map[string]*Manifest
	HeadManifests map[string]*Manifest
}

// ChangedPaths returns the set of changed file paths (new path for
// renames) for cache-relevance checks.
func (cs *ChangeSet) ChangedPaths() map[string]struct{} {
	paths := make(map[string]struct{}, len(cs.Files))
	for _, f := range cs.Files {
		paths[f.Path] = struct{}{}
		if f.OldPath != "" {
			paths[f.OldPath] = struct{}{}
		}
	}
	return paths
}

// ChangeCategory buckets a changed file for risk damping and summaries.
type ChangeCategory string

const (
	CategoryProduct    ChangeCategory = "product"
	CategoryDocs       ChangeCategory = "docs"
	CategoryTest       ChangeCategory = "test"
	CategoryConfig     ChangeCategory = "config"
	CategoryInfra      ChangeCategory = "infra"
	CategoryCI         ChangeCategory = "ci"
	CategoryDependency ChangeCategory = "dependency"
)

var dependencyManifests = map[string]struct{}{
	"package.json":      {},
	"package-lock.json": {},
	"yarn.lock":         {},
	"pnpm-lock.yaml":    {},
	"go.mod":            {},
	"go.sum":            {},
	"cargo.toml":        {},
	"cargo.lock":        {},
	"requirements.txt":  {},
	"pyproject.toml":    {},
	"poetry.lock":       {},
	"gemfile":           {},
	"gemfile.lock":      {},
}

// CategorizeFile assigns a changed path to exactly one category. The order
// of checks matters: dependency and CI files would otherwise fall into the
// config bucket.
func CategorizeFile(path string) ChangeCategory {
	p := strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
	base := p
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		base = p[i+1:]
	}

	if _, ok := dependencyManifests[base]; ok {
		return CategoryDependency
	}
	if strings.HasPrefix(p, ".github/workflows/") || strings.HasPrefix(p, ".gitlab-ci") ||
		base == ".gitlab-ci.yml" || base == "jenkinsfile" || strings.HasPrefix(p, ".circleci/") {
		return CategoryCI
	}
	if base == "dockerfile" || strings.HasPrefix(base, "dockerfile.") ||
		strings.HasSuffix(base, ".tf") || strings.HasPrefix(p, "terraform/") ||
		strings.HasPrefix(p, "helm/") || strings.HasPrefix(p, "k8s/") ||
		base == "docker-compose.yml" || base == "docker-compose.yaml" {
		return CategoryInfra
	}
	if strings.HasSuffix(base, ".md") || strings.HasSuffix(base, ".rst") ||
		strings.HasSuffix(base, ".txt") || strings.HasPrefix(p, "docs/") ||
		base == "license" || base == "authors" || base == "changelog" {
		return CategoryDocs
	}
	if strings.Contains(base, "_test.") || strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.") || strings.HasPrefix(p, "test/") ||
		strings.HasPrefix(p, "tests/") || strings.Contains(p, "/__tests__/") ||
		strings.Contains(p, "/testdata/") {
		return CategoryTest
	}
	if strings.HasSuffix(base, ".json") || strings.HasSuffix(base, ".yml") ||
		strings.HasSuffix(base, ".yaml") || strings.HasSuffix(base, ".toml") ||
		strings.HasSuffix(base, ".ini") || strings.HasSuffix(base, ".kdl") ||
		strings.HasPrefix(base, ".") {
		return CategoryConfig
	}
	return CategoryProduct
}

// LowRiskOnly reports whether every changed file falls into an inherently
// low-risk category, with nothing product/infra/ci/dependency touched.
func LowRiskOnly(files []FileChange) bool {
	if len(files) == 0 {
		return false
	}
	for _, f := range files {
		switch CategorizeFile(f.Path) {
		case CategoryDocs, CategoryTest, CategoryConfig:
		default:
			return false
		}
	}
	return true
}
