// Package gitcollect builds a ChangeSet by shelling out to git. It is the
// only package that touches the repository; everything downstream sees an
// in-memory ChangeSet.
package gitcollect

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/standardbeagle/diffscope/internal/diffparse"
	derrors "github.com/standardbeagle/diffscope/internal/errors"
	"github.com/standardbeagle/diffscope/internal/types"
)

// Collector runs git in one repository. The zero value is unusable; use
// New.
type Collector struct {
	dir string
	// run is swappable for tests.
	run func(ctx context.Context, args ...string) ([]byte, error)
}

func New(dir string) *Collector {
	c := &Collector{dir: dir}
	c.run = c.execGit
	return c
}

func (c *Collector) execGit(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, derrors.NewGitError(args, strings.TrimSpace(stderr.String()), err)
	}
	return stdout.Bytes(), nil
}

// diffArgs maps a mode to the git diff invocation that produces it.
func diffArgs(mode types.DiffMode, base, head string) []string {
	switch mode {
	case types.ModeStaged:
		return []string{"diff", "--cached"}
	case types.ModeUnstaged:
		return []string{"diff"}
	case types.ModeAll:
		return []string{"diff", "HEAD"}
	default:
		return []string{"diff", base + "..." + head}
	}
}

// Collect produces the full ChangeSet for one run: raw diff text parsed
// through the arena, file metadata from go-gitdiff, and manifest snapshots
// for dependency analysis.
func (c *Collector) Collect(ctx context.Context, base, head string, mode types.DiffMode) (*types.ChangeSet, error) {
	raw, err := c.run(ctx, diffArgs(mode, base, head)...)
	if err != nil {
		return nil, err
	}

	files, err := fileChanges(raw)
	if err != nil {
		return nil, err
	}

	pr := diffparse.Parse(raw)
	cs := &types.ChangeSet{
		Base:  base,
		Head:  head,
		Mode:  mode,
		Files: files,
		Diffs: diffparse.ToFileDiffs(pr, diffparse.AdaptOptions{Lazy: true}),
	}

	if err := c.attachManifests(ctx, cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// fileChanges extracts per-file metadata (status, rename, binary) that the
// unified diff body alone does not carry reliably.
func fileChanges(raw []byte) ([]types.FileChange, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	parsed, _, err := gitdiff.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, derrors.NewGitError([]string{"diff"}, "unparseable diff output", err)
	}

	out := make([]types.FileChange, 0, len(parsed))
	for _, f := range parsed {
		fc := types.FileChange{Binary: f.IsBinary}
		switch {
		case f.IsNew:
			fc.Status = types.StatusAdded
			fc.Path = f.NewName
		case f.IsDelete:
			fc.Status = types.StatusDeleted
			fc.Path = f.OldName
		case f.IsRename:
			fc.Status = types.StatusRenamed
			fc.Path = f.NewName
			fc.OldPath = f.OldName
		default:
			fc.Status = types.StatusModified
			fc.Path = f.NewName
			if fc.Path == "" {
				fc.Path = f.OldName
			}
		}
		out = append(out, fc)
	}
	return out, nil
}

// attachManifests snapshots both sides of every changed manifest so the
// dependency analyzer can diff them structurally.
func (c *Collector) attachManifests(ctx context.Context, cs *types.ChangeSet) error {
	for _, fc := range cs.Files {
		if !IsManifest(fc.Path) {
			continue
		}

		if fc.Status != types.StatusAdded {
			if data, err := c.showFile(ctx, cs.Base, fc.Path); err == nil {
				if m, perr := ParseManifest(fc.Path, data); perr == nil {
					if cs.BaseManifests == nil {
						cs.BaseManifests = map[string]*types.Manifest{}
					}
					cs.BaseManifests[fc.Path] = m
				}
			}
		}

		if fc.Status != types.StatusDeleted {
			data, err := c.headFile(ctx, cs, fc.Path)
			if err != nil {
				continue
			}
			if m, perr := ParseManifest(fc.Path, data); perr == nil {
				if cs.HeadManifests == nil {
					cs.HeadManifests = map[string]*types.Manifest{}
				}
				cs.HeadManifests[fc.Path] = m
			}
		}
	}
	return nil
}

func (c *Collector) showFile(ctx context.Context, ref, path string) ([]byte, error) {
	return c.run(ctx, "show", ref+":"+path)
}

// headFile reads the head side of a manifest: the committed blob in branch
// mode, the working tree otherwise.
func (c *Collector) headFile(ctx context.Context, cs *types.ChangeSet, path string) ([]byte, error) {
	if cs.Mode == types.ModeBranch {
		return c.showFile(ctx, cs.Head, path)
	}
	return os.ReadFile(filepath.Join(c.dir, path))
}
