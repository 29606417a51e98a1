package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/diffscope/internal/analyzers"
	derrors "github.com/standardbeagle/diffscope/internal/errors"
	"github.com/standardbeagle/diffscope/internal/finding"
	"github.com/standardbeagle/diffscope/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// badger retires its watermark goroutines asynchronously on Close.
		goleak.IgnoreTopFunction("github.com/dgraph-io/badger/v4/y.(*WaterMark).process"),
	)
}

// spyAnalyzer counts invocations so cache reuse is observable.
type spyAnalyzer struct {
	name     string
	version  string
	scope    analyzers.CacheScope
	patterns []string
	calls    atomic.Int32
	fn       func(cs *types.ChangeSet) ([]finding.Finding, error)
}

func (s *spyAnalyzer) Name() string                     { return s.name }
func (s *spyAnalyzer) Version() string                  { return s.version }
func (s *spyAnalyzer) CacheScope() analyzers.CacheScope { return s.scope }
func (s *spyAnalyzer) FilePatterns() []string           { return s.patterns }

func (s *spyAnalyzer) Analyze(_ context.Context, cs *types.ChangeSet) ([]finding.Finding, error) {
	s.calls.Add(1)
	if s.fn != nil {
		return s.fn(cs)
	}
	return nil, nil
}

func changeSet(paths ...string) *types.ChangeSet {
	cs := &types.ChangeSet{Base: "main", Head: "HEAD", Mode: types.ModeBranch}
	for _, p := range paths {
		cs.Files = append(cs.Files, types.FileChange{Path: p, Status: types.StatusModified})
	}
	return cs
}

func envFinding(file string) finding.Finding {
	return finding.Finding{
		Type:     finding.TypeEnvVar,
		Kind:     "added",
		Category: finding.CategoryEnv,
		Variable: "API_KEY",
		File:     file,
		Evidence: []finding.Evidence{{File: file, Line: 3}},
	}
}

func TestRunParallel_FlattensResults(t *testing.T) {
	a := &spyAnalyzer{name: "a", version: "1", scope: analyzers.ScopeFiles,
		fn: func(*types.ChangeSet) ([]finding.Finding, error) {
			return []finding.Finding{envFinding("a.ts")}, nil
		}}
	b := &spyAnalyzer{name: "b", version: "1", scope: analyzers.ScopeFiles,
		fn: func(*types.ChangeSet) ([]finding.Finding, error) {
			return []finding.Finding{envFinding("b.ts"), envFinding("c.ts")}, nil
		}}

	out, err := RunParallel(context.Background(), []analyzers.Analyzer{a, b}, changeSet("a.ts"))
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestRunParallel_ErrorAbortsRun(t *testing.T) {
	boom := errors.New("analyzer exploded")
	a := &spyAnalyzer{name: "a", version: "1", scope: analyzers.ScopeFiles,
		fn: func(*types.ChangeSet) ([]finding.Finding, error) { return nil, boom }}
	b := &spyAnalyzer{name: "b", version: "1", scope: analyzers.ScopeFiles}

	out, err := RunParallel(context.Background(), []analyzers.Analyzer{a, b}, changeSet("a.ts"))
	require.ErrorIs(t, err, boom)
	assert.Nil(t, out)

	// The failure names the analyzer, so the CLI can attribute it.
	var ae *derrors.AnalyzerError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "a", ae.Analyzer)
}

func TestRunIncremental_ErrorNamesAnalyzer(t *testing.T) {
	boom := errors.New("analyzer exploded")
	spy := &spyAnalyzer{name: "routes", version: "1", scope: analyzers.ScopeFiles,
		fn: func(*types.ChangeSet) ([]finding.Finding, error) { return nil, boom }}
	store := NewMemoryStore()

	_, err := RunIncremental(context.Background(), []analyzers.Analyzer{spy}, changeSet("a.ts"), Options{Store: store})
	require.ErrorIs(t, err, boom)

	var ae *derrors.AnalyzerError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "routes", ae.Analyzer)
	// A failed run stores nothing.
	assert.Equal(t, 0, store.Len())
}

// An unchanged changeset must serve the second run from cache without
// re-invoking a files-scoped analyzer.
func TestRunIncremental_ReusesUnchangedChangeset(t *testing.T) {
	spy := &spyAnalyzer{name: "env-var", version: "1", scope: analyzers.ScopeFiles,
		fn: func(*types.ChangeSet) ([]finding.Finding, error) {
			return []finding.Finding{envFinding("src/db.ts")}, nil
		}}
	store := NewMemoryStore()
	opts := Options{Profile: "node", Store: store}
	cs := changeSet("src/db.ts")

	first, err := RunIncremental(context.Background(), []analyzers.Analyzer{spy}, cs, opts)
	require.NoError(t, err)
	second, err := RunIncremental(context.Background(), []analyzers.Analyzer{spy}, cs, opts)
	require.NoError(t, err)

	assert.Equal(t, int32(1), spy.calls.Load())
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.Len())
}

// A previously processed file newly appearing in the changed set must
// re-invoke the analyzer even when the pattern-relevant set (and thus the
// key) is unchanged.
func TestRunIncremental_InvalidatesOnNewlyChangedProcessedFile(t *testing.T) {
	spy := &spyAnalyzer{name: "deps", version: "1", scope: analyzers.ScopeFiles,
		patterns: []string{"package.json"},
		fn: func(*types.ChangeSet) ([]finding.Finding, error) {
			f := envFinding("package.json")
			f.Files = []string{"package-lock.json"}
			return []finding.Finding{f}, nil
		}}
	store := NewMemoryStore()
	opts := Options{Store: store}

	_, err := RunIncremental(context.Background(), []analyzers.Analyzer{spy}, changeSet("package.json"), opts)
	require.NoError(t, err)
	require.Equal(t, int32(1), spy.calls.Load())

	// Lockfile joins the changeset; relevant set is still {package.json}.
	_, err = RunIncremental(context.Background(), []analyzers.Analyzer{spy}, changeSet("package.json", "package-lock.json"), opts)
	require.NoError(t, err)
	assert.Equal(t, int32(2), spy.calls.Load())
}

func TestRunIncremental_GlobalScopeReusesOnKeyMatch(t *testing.T) {
	spy := &spyAnalyzer{name: "large-diff", version: "1", scope: analyzers.ScopeGlobal}
	store := NewMemoryStore()
	opts := Options{Store: store}
	cs := changeSet("a.go", "b.go")

	for i := 0; i < 3; i++ {
		_, err := RunIncremental(context.Background(), []analyzers.Analyzer{spy}, cs, opts)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), spy.calls.Load())
}

func TestRunIncremental_RelevantSetChangeMisses(t *testing.T) {
	spy := &spyAnalyzer{name: "env-var", version: "1", scope: analyzers.ScopeGlobal}
	store := NewMemoryStore()
	opts := Options{Store: store}

	_, err := RunIncremental(context.Background(), []analyzers.Analyzer{spy}, changeSet("a.go"), opts)
	require.NoError(t, err)
	_, err = RunIncremental(context.Background(), []analyzers.Analyzer{spy}, changeSet("a.go", "b.go"), opts)
	require.NoError(t, err)

	assert.Equal(t, int32(2), spy.calls.Load())
}

func TestRunIncremental_VersionBumpInvalidates(t *testing.T) {
	store := NewMemoryStore()
	opts := Options{Store: store}
	cs := changeSet("src/db.ts")

	v1 := &spyAnalyzer{name: "env-var", version: "1", scope: analyzers.ScopeFiles}
	_, err := RunIncremental(context.Background(), []analyzers.Analyzer{v1}, cs, opts)
	require.NoError(t, err)

	v2 := &spyAnalyzer{name: "env-var", version: "2", scope: analyzers.ScopeFiles}
	_, err = RunIncremental(context.Background(), []analyzers.Analyzer{v2}, cs, opts)
	require.NoError(t, err)

	assert.Equal(t, int32(1), v2.calls.Load())
	assert.Equal(t, 2, store.Len())
}

func TestRunIncremental_NilStoreDisablesCache(t *testing.T) {
	spy := &spyAnalyzer{name: "env-var", version: "1", scope: analyzers.ScopeFiles}
	cs := changeSet("src/db.ts")

	for i := 0; i < 2; i++ {
		_, err := RunIncremental(context.Background(), []analyzers.Analyzer{spy}, cs, Options{})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), spy.calls.Load())
}

func TestCacheKey_StableAndSensitive(t *testing.T) {
	a := &spyAnalyzer{name: "env-var", version: "1", scope: analyzers.ScopeFiles}
	cs := changeSet("src/db.ts", "src/app.ts")

	k1 := CacheKey(a, "node", cs, analyzers.RelevantFiles(a, cs))
	k2 := CacheKey(a, "node", cs, analyzers.RelevantFiles(a, cs))
	assert.Equal(t, k1, k2)

	other := changeSet("src/db.ts")
	k3 := CacheKey(a, "node", other, analyzers.RelevantFiles(a, other))
	assert.NotEqual(t, k1, k3)

	cs2 := changeSet("src/db.ts", "src/app.ts")
	cs2.Mode = types.ModeStaged
	k4 := CacheKey(a, "node", cs2, analyzers.RelevantFiles(a, cs2))
	assert.NotEqual(t, k1, k4)
}

func TestDiskStore_RoundTripAndClear(t *testing.T) {
	store, err := OpenDiskStore(t.TempDir())
	require.NoError(t, err)
	defer func() { require.NoError(t, store.Close()) }()

	e := &Entry{
		SchemaVersion:  EntrySchemaVersion,
		Findings:       []finding.Finding{envFinding("src/db.ts")},
		ProcessedFiles: []string{"src/db.ts"},
		ChangedFiles:   []string{"src/db.ts"},
	}
	store.Put("k", e)

	got, ok := store.Get("k")
	require.True(t, ok)
	assert.Equal(t, e.Findings, got.Findings)
	assert.Equal(t, e.ProcessedFiles, got.ProcessedFiles)

	_, ok = store.Get("missing")
	assert.False(t, ok)

	entries, _ := store.Stats()
	assert.Equal(t, 1, entries)

	require.NoError(t, store.Clear())
	_, ok = store.Get("k")
	assert.False(t, ok)
}
