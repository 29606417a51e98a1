package analyzers

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/diffscope/internal/diffparse"
	"github.com/standardbeagle/diffscope/internal/finding"
	"github.com/standardbeagle/diffscope/internal/types"
)

// changeSetFromDiff builds a ChangeSet the way the collector does, using
// the arena parser end to end.
func changeSetFromDiff(t *testing.T, diff string) *types.ChangeSet {
	t.Helper()
	pr := diffparse.Parse([]byte(diff))
	return &types.ChangeSet{
		Base:  "main",
		Head:  "HEAD",
		Mode:  types.ModeBranch,
		Files: diffparse.ToFileChanges(pr),
		Diffs: diffparse.ToFileDiffs(pr, diffparse.AdaptOptions{Lazy: true}),
	}
}

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern, path string
		want          bool
	}{
		{"package.json", "package.json", true},
		{"package.json", "pkg/package.json", false},
		{"**/package.json", "pkg/package.json", true},
		{"**/package.json", "package.json", true},
		{"*.sql", "db/001.sql", true},
		{"*.sql", "db/001.sqlx", false},
		{"src/*", "src/a.go", true},
		{"src/*", "src/sub/a.go", false},
		{"src/**", "src/sub/a.go", true},
		{"**/Dockerfile", "deploy/Dockerfile", true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, MatchPattern(c.pattern, c.path), "%s vs %s", c.pattern, c.path)
	}
}

func TestEnvVarAnalyzer(t *testing.T) {
	diff := "diff --git a/src/db.ts b/src/db.ts\n" +
		"--- a/src/db.ts\n" +
		"+++ b/src/db.ts\n" +
		"@@ -1,3 +1,3 @@\n" +
		" const client = connect()\n" +
		"-const url = process.env.DATABASE_URL\n" +
		"+const url = process.env.POSTGRES_URL\n"

	cs := changeSetFromDiff(t, diff)
	out, err := NewEnvVarAnalyzer().Analyze(context.Background(), cs)
	require.NoError(t, err)
	require.Len(t, out, 2)

	byKind := map[string]finding.Finding{}
	for _, f := range out {
		byKind[f.Kind] = f
	}
	assert.Equal(t, "POSTGRES_URL", byKind["added"].Variable)
	assert.Equal(t, "DATABASE_URL", byKind["removed"].Variable)
	assert.Equal(t, "src/db.ts", byKind["added"].File)
}

// Evidence must carry the real new-side (or old-side) line number even
// when the matched line follows context and deleted lines inside the
// hunk.
func TestEnvVarAnalyzer_EvidenceLineAfterContext(t *testing.T) {
	diff := "diff --git a/src/cfg.ts b/src/cfg.ts\n" +
		"--- a/src/cfg.ts\n" +
		"+++ b/src/cfg.ts\n" +
		"@@ -5,4 +5,5 @@\n" +
		" import fs from \"fs\"\n" +
		" import path from \"path\"\n" +
		"-const root = process.env.OLD_ROOT\n" +
		"+const root = process.env.NEW_ROOT\n" +
		"+const depth = process.env.MAX_DEPTH\n" +
		" export default root\n"

	cs := changeSetFromDiff(t, diff)
	out, err := NewEnvVarAnalyzer().Analyze(context.Background(), cs)
	require.NoError(t, err)
	require.Len(t, out, 3)

	lines := map[string]int{}
	for _, f := range out {
		require.Len(t, f.Evidence, 1)
		lines[f.Variable+"/"+f.Kind] = f.Evidence[0].Line
	}
	assert.Equal(t, 7, lines["NEW_ROOT/added"])
	assert.Equal(t, 8, lines["MAX_DEPTH/added"])
	assert.Equal(t, 7, lines["OLD_ROOT/removed"])
}

// A Dockerfile base image downgrade must produce exactly one breaking
// docker-change finding.
func TestDockerAnalyzer_BaseImageChange(t *testing.T) {
	diff := "diff --git a/Dockerfile b/Dockerfile\n" +
		"--- a/Dockerfile\n" +
		"+++ b/Dockerfile\n" +
		"@@ -1,3 +1,3 @@\n" +
		"-FROM node:18\n" +
		"+FROM node:16\n" +
		" WORKDIR /app\n"

	cs := changeSetFromDiff(t, diff)
	out, err := NewDockerAnalyzer().Analyze(context.Background(), cs)
	require.NoError(t, err)
	require.Len(t, out, 1)

	f := out[0]
	assert.Equal(t, finding.TypeDockerChange, f.Type)
	assert.True(t, f.IsBreaking)
	assert.Contains(t, f.BreakingReasons, "Base image changed")
}

func TestDockerAnalyzer_NonBreakingChange(t *testing.T) {
	diff := "diff --git a/Dockerfile b/Dockerfile\n" +
		"--- a/Dockerfile\n" +
		"+++ b/Dockerfile\n" +
		"@@ -5,2 +5,3 @@\n" +
		" RUN npm ci\n" +
		"+RUN npm run build\n"

	cs := changeSetFromDiff(t, diff)
	out, err := NewDockerAnalyzer().Analyze(context.Background(), cs)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.False(t, out[0].IsBreaking)
	assert.Empty(t, out[0].BreakingReasons)
}

// Threshold is strictly greater-than 30 files.
func TestLargeDiffAnalyzer_FileThreshold(t *testing.T) {
	build := func(n int) *types.ChangeSet {
		cs := &types.ChangeSet{}
		for i := 0; i < n; i++ {
			cs.Files = append(cs.Files, types.FileChange{Path: fmt.Sprintf("f%02d.go", i)})
		}
		return cs
	}

	out, err := NewLargeDiffAnalyzer().Analyze(context.Background(), build(35))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 35, out[0].FilesChanged)
	assert.Equal(t, 0, out[0].LinesChanged)

	out, err = NewLargeDiffAnalyzer().Analyze(context.Background(), build(30))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDependencyAnalyzer_ManifestDiff(t *testing.T) {
	cs := &types.ChangeSet{
		Files: []types.FileChange{{Path: "package.json"}, {Path: "package-lock.json"}},
		BaseManifests: map[string]*types.Manifest{
			"package.json": {
				Path: "package.json", Ecosystem: "npm",
				Dependencies:    map[string]string{"react": "^17.0.2", "left-pad": "1.3.0"},
				DevDependencies: map[string]string{"jest": "^29.0.0"},
			},
		},
		HeadManifests: map[string]*types.Manifest{
			"package.json": {
				Path: "package.json", Ecosystem: "npm",
				Dependencies:    map[string]string{"react": "^18.2.0", "axios": "1.6.0"},
				DevDependencies: map[string]string{"jest": "^29.0.0"},
			},
		},
	}

	out, err := NewDependencyAnalyzer().Analyze(context.Background(), cs)
	require.NoError(t, err)

	byName := map[string]finding.Finding{}
	for _, f := range out {
		if f.Type == finding.TypeDependencyChange {
			byName[f.Name] = f
		}
	}

	require.Len(t, byName, 3)
	assert.Equal(t, "changed", byName["react"].Kind)
	assert.True(t, byName["react"].MajorBump)
	assert.True(t, byName["react"].Runtime)
	assert.Equal(t, "added", byName["axios"].Kind)
	assert.Equal(t, "removed", byName["left-pad"].Kind)

	var lockfiles []finding.Finding
	for _, f := range out {
		if f.Type == finding.TypeLockfileChange {
			lockfiles = append(lockfiles, f)
		}
	}
	require.Len(t, lockfiles, 1)
	assert.Equal(t, "package-lock.json", lockfiles[0].File)
}

func TestMajorOf(t *testing.T) {
	assert.Equal(t, 17, majorOf("^17.0.2"))
	assert.Equal(t, 1, majorOf("v1.2.3"))
	assert.Equal(t, 2, majorOf("2"))
	assert.Equal(t, -1, majorOf("latest"))
}

func TestRouteAnalyzer(t *testing.T) {
	diff := "diff --git a/src/api.ts b/src/api.ts\n" +
		"--- a/src/api.ts\n" +
		"+++ b/src/api.ts\n" +
		"@@ -10,2 +10,3 @@\n" +
		" app.get('/health', health)\n" +
		"+app.post('/users', createUser)\n" +
		"-app.delete('/users/:id', removeUser)\n"

	cs := changeSetFromDiff(t, diff)
	out, err := NewRouteAnalyzer().Analyze(context.Background(), cs)
	require.NoError(t, err)
	require.Len(t, out, 2)

	byChange := map[string]finding.Finding{}
	for _, f := range out {
		byChange[f.Change] = f
	}
	assert.Equal(t, "POST /users", byChange["added"].RouteID)
	assert.Equal(t, "DELETE /users/:id", byChange["removed"].RouteID)
}

func TestHousekeepingAnalyzer(t *testing.T) {
	cs := &types.ChangeSet{Files: []types.FileChange{
		{Path: ".github/workflows/ci.yml", Status: types.StatusModified},
		{Path: "assets/logo.png", Status: types.StatusAdded, Binary: true},
		{Path: "tsconfig.json", Status: types.StatusModified},
		{Path: "src/main.go", Status: types.StatusModified},
	}}

	out, err := NewHousekeepingAnalyzer().Analyze(context.Background(), cs)
	require.NoError(t, err)
	require.Len(t, out, 3)

	kinds := map[finding.Type]string{}
	for _, f := range out {
		kinds[f.Type] = f.File
	}
	assert.Equal(t, ".github/workflows/ci.yml", kinds[finding.TypeCIChange])
	assert.Equal(t, "assets/logo.png", kinds[finding.TypeBinaryChange])
	assert.Equal(t, "tsconfig.json", kinds[finding.TypeConfigChange])
}

func TestDefaultSet_UniqueNames(t *testing.T) {
	seen := map[string]struct{}{}
	for _, a := range DefaultSet() {
		_, dup := seen[a.Name()]
		require.False(t, dup, "duplicate analyzer name %s", a.Name())
		seen[a.Name()] = struct{}{}
	}
}
