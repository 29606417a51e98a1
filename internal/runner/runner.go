// Package runner executes the analyzer set against one changeset, either
// as a plain parallel fan-out or incrementally against an injected cache
// store. The runner is a pure function of (analyzers, changeset, store):
// it holds no ambient state and never prints.
package runner

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/diffscope/internal/analyzers"
	derrors "github.com/standardbeagle/diffscope/internal/errors"
	"github.com/standardbeagle/diffscope/internal/finding"
	"github.com/standardbeagle/diffscope/internal/types"
)

// Options configure one run.
type Options struct {
	// Profile tags cache keys with the active analysis profile.
	Profile string
	// Store receives and serves cached analyzer results. Nil means
	// cache disabled; the runner substitutes a NopStore.
	Store Store
	// Logf, when set, receives debug-level progress lines.
	Logf func(format string, args ...any)
}

func (o *Options) logf(format string, args ...any) {
	if o.Logf != nil {
		o.Logf(format, args...)
	}
}

func (o *Options) store() Store {
	if o.Store == nil {
		return NopStore{}
	}
	return o.Store
}

// RunParallel invokes every analyzer concurrently and flattens the results
// in registration order. A single analyzer error aborts the whole run;
// there is no partial-results contract. The error is an *AnalyzerError
// naming the analyzer that failed.
func RunParallel(ctx context.Context, set []analyzers.Analyzer, cs *types.ChangeSet) ([]finding.Finding, error) {
	results := make([][]finding.Finding, len(set))

	g, ctx := errgroup.WithContext(ctx)
	for i, a := range set {
		g.Go(func() error {
			out, err := a.Analyze(ctx, cs)
			if err != nil {
				return derrors.NewAnalyzerError(a.Name(), err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []finding.Finding
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

// RunIncremental is RunParallel with per-analyzer cache reuse. Reuse rules:
//
//   - files scope: a key hit is reused only when none of the files the
//     analyzer previously processed appear as *newly* changed files, i.e.
//     files in the current changed set that were not part of the changeset
//     the entry was stored against;
//   - global scope: a key hit alone suffices, since the key already pins
//     the relevant file set.
//
// Misses execute the analyzer and store its findings tagged with the files
// it touched.
func RunIncremental(ctx context.Context, set []analyzers.Analyzer, cs *types.ChangeSet, opts Options) ([]finding.Finding, error) {
	store := opts.store()
	changed := cs.ChangedPaths()
	results := make([][]finding.Finding, len(set))

	g, ctx := errgroup.WithContext(ctx)
	for i, a := range set {
		g.Go(func() error {
			relevant := analyzers.RelevantFiles(a, cs)
			key := CacheKey(a, opts.Profile, cs, relevant)

			if e, ok := store.Get(key); ok && reusable(a, e, changed) {
				opts.logf("cache hit: %s", a.Name())
				results[i] = e.Findings
				return nil
			}

			out, err := a.Analyze(ctx, cs)
			if err != nil {
				return derrors.NewAnalyzerError(a.Name(), err)
			}
			results[i] = out
			store.Put(key, &Entry{
				SchemaVersion:  EntrySchemaVersion,
				Findings:       out,
				ProcessedFiles: touchedFiles(out, relevant),
				ChangedFiles:   sortedPaths(changed),
				StoredAt:       time.Now(),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []finding.Finding
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

func reusable(a analyzers.Analyzer, e *Entry, changed map[string]struct{}) bool {
	if a.CacheScope() == analyzers.ScopeGlobal {
		return true
	}
	known := make(map[string]struct{}, len(e.ChangedFiles))
	for _, p := range e.ChangedFiles {
		known[p] = struct{}{}
	}
	for _, p := range e.ProcessedFiles {
		if _, ok := changed[p]; !ok {
			continue
		}
		if _, ok := known[p]; !ok {
			return false
		}
	}
	return true
}

func sortedPaths(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// touchedFiles derives the files an analyzer run depended on: evidence
// paths and file fields on its findings, unioned with the pattern-matched
// relevant set.
func touchedFiles(out []finding.Finding, relevant []string) []string {
	set := make(map[string]struct{}, len(relevant))
	for _, p := range relevant {
		set[p] = struct{}{}
	}
	for _, f := range out {
		if f.File != "" {
			set[f.File] = struct{}{}
		}
		for _, p := range f.Files {
			set[p] = struct{}{}
		}
		for _, ev := range f.Evidence {
			if ev.File != "" {
				set[ev.File] = struct{}{}
			}
		}
	}
	files := make([]string, 0, len(set))
	for p := range set {
		files = append(files, p)
	}
	sort.Strings(files)
	return files
}
