package diffparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/diffscope/internal/arena"
	"github.com/standardbeagle/diffscope/internal/types"
)

const simpleDiff = `diff --git a/src/app.go b/src/app.go
index 1234567..89abcde 100644
--- a/src/app.go
+++ b/src/app.go
@@ -10,7 +10,8 @@ func main() {
 	ctx := context.Background()
-	run(ctx)
+	if err := run(ctx); err != nil {
+		log.Fatal(err)
+	}
 	cleanup()
@@ -40,3 +41,4 @@ func cleanup() {
 	flush()
+	close()
 }
`

const multiFileDiff = `diff --git a/README.md b/README.md
index aaa..bbb 100644
--- a/README.md
+++ b/README.md
@@ -1,2 +1,2 @@
-# old title
+# new title
 body
diff --git a/new.txt b/new.txt
new file mode 100644
index 0000000..e69de29
--- /dev/null
+++ b/new.txt
@@ -0,0 +1,1 @@
+hello
diff --git a/gone.txt b/gone.txt
deleted file mode 100644
index e69de29..0000000
--- a/gone.txt
+++ /dev/null
@@ -1,1 +0,0 @@
-goodbye
`

const renameDiff = `diff --git a/old.ts b/new.ts
similarity index 100%
rename from old.ts
rename to new.ts
`

func TestParse_SingleFile(t *testing.T) {
	pr := Parse([]byte(simpleDiff))
	a := pr.Arena

	require.Equal(t, 1, a.FileCount())
	require.Equal(t, 2, a.HunkCount())

	assert.Equal(t, "src/app.go", a.DecodeFilePath(pr.Pool, 0))
	assert.Equal(t, types.StatusModified, a.FileStatusAt(0))

	first, count := a.FileHunks(0)
	assert.Equal(t, 0, first)
	assert.Equal(t, 2, count)

	oldStart, oldLines, newStart, newLines := a.HunkRange(0)
	assert.Equal(t, int32(10), oldStart)
	assert.Equal(t, int32(7), oldLines)
	assert.Equal(t, int32(10), newStart)
	assert.Equal(t, int32(8), newLines)

	assert.Equal(t, "@@ -10,7 +10,8 @@ func main() {", a.DecodeHunkHeader(pr.Pool, 0))

	stats := Stats(pr)
	assert.Equal(t, types.ChangeStats{FilesChanged: 1, Additions: 4, Deletions: 1}, stats)
}

func TestParse_MultiFileStatuses(t *testing.T) {
	pr := Parse([]byte(multiFileDiff))
	a := pr.Arena

	require.Equal(t, 3, a.FileCount())
	assert.Equal(t, "README.md", a.DecodeFilePath(pr.Pool, 0))
	assert.Equal(t, types.StatusModified, a.FileStatusAt(0))
	assert.Equal(t, "new.txt", a.DecodeFilePath(pr.Pool, 1))
	assert.Equal(t, types.StatusAdded, a.FileStatusAt(1))
	assert.Equal(t, "gone.txt", a.DecodeFilePath(pr.Pool, 2))
	assert.Equal(t, types.StatusDeleted, a.FileStatusAt(2))
}

// Scenario: a pure rename with no content change.
func TestParse_RenameWithoutContent(t *testing.T) {
	pr := Parse([]byte(renameDiff))
	a := pr.Arena

	require.Equal(t, 1, a.FileCount())
	assert.Equal(t, types.StatusRenamed, a.FileStatusAt(0))
	assert.Equal(t, "new.ts", a.DecodeFilePath(pr.Pool, 0))
	assert.Equal(t, "old.ts", a.DecodeFileOldPath(pr.Pool, 0))
	assert.Zero(t, a.HunkCount())
}

// Round-trip: every recorded range must decode to a byte-identical
// substring of the input.
func TestParse_RoundTripContent(t *testing.T) {
	src := []byte(simpleDiff)
	pr := Parse(src)
	a := pr.Arena

	wantLines := []string{}
	for _, raw := range strings.Split(simpleDiff, "\n") {
		if len(raw) > 0 && (raw[0] == '+' || raw[0] == '-' || raw[0] == ' ') &&
			!strings.HasPrefix(raw, "+++") && !strings.HasPrefix(raw, "---") {
			wantLines = append(wantLines, raw[1:])
		}
	}

	require.Equal(t, len(wantLines), a.LineCount())
	for i, want := range wantLines {
		assert.Equal(t, want, a.DecodeLineContent(pr.Pool, i), "line %d", i)
	}
}

func TestParse_LineNumbersTrack(t *testing.T) {
	pr := Parse([]byte(simpleDiff))
	a := pr.Arena

	// First hunk starts at old 10 / new 10 with a context line.
	oldNo, newNo := a.LineNumbers(0)
	assert.Equal(t, int32(10), oldNo)
	assert.Equal(t, int32(10), newNo)

	// Second line is the deletion of old line 11.
	oldNo, newNo = a.LineNumbers(1)
	assert.Equal(t, int32(11), oldNo)
	assert.Equal(t, int32(-1), newNo)

	// Third line is the first addition at new line 11.
	oldNo, newNo = a.LineNumbers(2)
	assert.Equal(t, int32(-1), oldNo)
	assert.Equal(t, int32(11), newNo)
}

// A deleted line whose content begins with "-- " must not be mistaken for
// a file header.
func TestParse_DeletionResemblingHeader(t *testing.T) {
	diff := "diff --git a/q.sql b/q.sql\n" +
		"--- a/q.sql\n" +
		"+++ b/q.sql\n" +
		"@@ -1,2 +1,1 @@\n" +
		"--- comment line\n" +
		" SELECT 1;\n"

	pr := Parse([]byte(diff))
	a := pr.Arena
	require.Equal(t, 1, a.FileCount())
	require.Equal(t, 2, a.LineCount())
	assert.Equal(t, arena.LineDelete, a.LineKindAt(0))
	assert.Equal(t, "-- comment line", a.DecodeLineContent(pr.Pool, 0))
}

// Malformed hunk headers are skipped without aborting the parse.
func TestParse_MalformedHunkHeader(t *testing.T) {
	diff := "diff --git a/a.go b/a.go\n" +
		"@@ -x,1 +1,1 @@\n" +
		"+orphan\n" +
		"diff --git a/b.go b/b.go\n" +
		"@@ -1,1 +1,1 @@\n" +
		"-x\n" +
		"+y\n"

	pr := Parse([]byte(diff))
	a := pr.Arena
	require.Equal(t, 2, a.FileCount())
	require.Equal(t, 1, a.HunkCount())
	assert.Equal(t, 2, a.LineCount())
	assert.Equal(t, 1, a.LineFile(0))
}

func TestParse_NoNewlineMarker(t *testing.T) {
	diff := "diff --git a/a.txt b/a.txt\n" +
		"--- a/a.txt\n" +
		"+++ b/a.txt\n" +
		"@@ -1,1 +1,1 @@\n" +
		"-old\n" +
		"+new\n" +
		"\\ No newline at end of file\n"

	pr := Parse([]byte(diff))
	assert.Equal(t, 2, pr.Arena.LineCount())
}

func TestParseInto_Reuse(t *testing.T) {
	pr := Parse([]byte(simpleDiff))
	a, pool := pr.Arena, pr.Pool
	firstCount := a.LineCount()
	require.Positive(t, firstCount)

	pr2 := ParseInto(a, pool, []byte(multiFileDiff))
	assert.Same(t, a, pr2.Arena)
	assert.Equal(t, 3, pr2.Arena.FileCount())
	assert.Equal(t, "README.md", pr2.Arena.DecodeFilePath(pr2.Pool, 0))
}

func TestParse_HunkWithoutCounts(t *testing.T) {
	diff := "diff --git a/a b/a\n" +
		"@@ -1 +1 @@\n" +
		"-x\n" +
		"+y\n"

	pr := Parse([]byte(diff))
	require.Equal(t, 1, pr.Arena.HunkCount())
	_, oldLines, _, newLines := pr.Arena.HunkRange(0)
	assert.Equal(t, int32(1), oldLines)
	assert.Equal(t, int32(1), newLines)
}
