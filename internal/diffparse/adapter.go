package diffparse

import (
	"iter"
	"strings"
	"sync"

	"github.com/standardbeagle/diffscope/internal/arena"
	"github.com/standardbeagle/diffscope/internal/types"
)

// AdaptOptions controls materialization behavior.
type AdaptOptions struct {
	// Lazy returns proxy FileDiffs that decode on first access. Eager
	// materialization decodes everything up front.
	Lazy bool
}

// ToFileDiffs converts a ParseResult into the conventional object model.
// Lazy and eager paths produce byte-identical content; laziness is purely a
// performance profile.
func ToFileDiffs(pr *ParseResult, opts AdaptOptions) []types.FileDiff {
	out := make([]types.FileDiff, pr.Arena.FileCount())
	for i := range out {
		if opts.Lazy {
			out[i] = &LazyFileDiff{pr: pr, file: i}
		} else {
			out[i] = materializeFile(pr, i)
		}
	}
	return out
}

// EagerFileDiff is the fully decoded FileDiff.
type EagerFileDiff struct {
	FilePath    string
	FileOldPath string
	FileStatus  types.FileStatus
	FileHunks   []types.Hunk
}

func (e *EagerFileDiff) Path() string             { return e.FilePath }
func (e *EagerFileDiff) OldPath() string          { return e.FileOldPath }
func (e *EagerFileDiff) Status() types.FileStatus { return e.FileStatus }
func (e *EagerFileDiff) Hunks() []types.Hunk      { return e.FileHunks }

// LazyFileDiff defers decoding until a field is first read, then memoizes.
// The original object model is single-threaded; here analyzers share diffs
// across goroutines, so memoization is guarded by a mutex.
type LazyFileDiff struct {
	pr   *ParseResult
	file int

	mu         sync.Mutex
	path       string
	oldPath    string
	status     types.FileStatus
	hunks      []types.Hunk
	pathDone   bool
	oldDone    bool
	statusDone bool
	hunksDone  bool
}

func (l *LazyFileDiff) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.pathDone {
		l.path = l.pr.Arena.DecodeFilePath(l.pr.Pool, l.file)
		l.pathDone = true
	}
	return l.path
}

func (l *LazyFileDiff) OldPath() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.oldDone {
		l.oldPath = l.pr.Arena.DecodeFileOldPath(l.pr.Pool, l.file)
		l.oldDone = true
	}
	return l.oldPath
}

func (l *LazyFileDiff) Status() types.FileStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.statusDone {
		l.status = l.pr.Arena.FileStatusAt(l.file)
		l.statusDone = true
	}
	return l.status
}

func (l *LazyFileDiff) Hunks() []types.Hunk {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.hunksDone {
		l.hunks = materializeHunks(l.pr, l.file)
		l.hunksDone = true
	}
	return l.hunks
}

func materializeFile(pr *ParseResult, file int) *EagerFileDiff {
	return &EagerFileDiff{
		FilePath:    pr.Arena.DecodeFilePath(pr.Pool, file),
		FileOldPath: pr.Arena.DecodeFileOldPath(pr.Pool, file),
		FileStatus:  pr.Arena.FileStatusAt(file),
		FileHunks:   materializeHunks(pr, file),
	}
}

// materializeHunks collects each hunk's lines in arena scan order, so
// original line order is preserved within additions and deletions.
func materializeHunks(pr *ParseResult, file int) []types.Hunk {
	a := pr.Arena
	first, count := a.FileHunks(file)
	hunks := make([]types.Hunk, count)

	for h := 0; h < count; h++ {
		hunkIdx := first + h
		oldStart, oldLines, newStart, newLines := a.HunkRange(hunkIdx)
		hunk := types.Hunk{
			OldStart: int(oldStart),
			OldLines: int(oldLines),
			NewStart: int(newStart),
			NewLines: int(newLines),
		}

		var content strings.Builder
		for i := 0; i < a.LineCount(); i++ {
			if a.LineHunk(i) != hunkIdx || a.LineFile(i) != file {
				continue
			}
			text := a.DecodeLineContent(pr.Pool, i)
			oldNo, newNo := a.LineNumbers(i)
			switch a.LineKindAt(i) {
			case arena.LineAdd:
				hunk.Additions = append(hunk.Additions, text)
				hunk.AdditionLines = append(hunk.AdditionLines, int(newNo))
				content.WriteByte('+')
			case arena.LineDelete:
				hunk.Deletions = append(hunk.Deletions, text)
				hunk.DeletionLines = append(hunk.DeletionLines, int(oldNo))
				content.WriteByte('-')
			default:
				content.WriteByte(' ')
			}
			content.WriteString(text)
			content.WriteByte('\n')
		}
		hunk.Content = content.String()
		hunks[h] = hunk
	}
	return hunks
}

// ToFileChanges produces the light per-file view without any hunk decoding.
func ToFileChanges(pr *ParseResult) []types.FileChange {
	a := pr.Arena
	out := make([]types.FileChange, a.FileCount())
	for i := range out {
		out[i] = types.FileChange{
			Path:    a.DecodeFilePath(pr.Pool, i),
			OldPath: a.DecodeFileOldPath(pr.Pool, i),
			Status:  a.FileStatusAt(i),
		}
	}
	return out
}

// ExtractFilePaths decodes only the file paths.
func ExtractFilePaths(pr *ParseResult) []string {
	out := make([]string, pr.Arena.FileCount())
	for i := range out {
		out[i] = pr.Arena.DecodeFilePath(pr.Pool, i)
	}
	return out
}

// HasFileMatching reports whether any file path satisfies pred, decoding
// paths one at a time.
func HasFileMatching(pr *ParseResult, pred func(path string) bool) bool {
	for i := 0; i < pr.Arena.FileCount(); i++ {
		if pred(pr.Arena.DecodeFilePath(pr.Pool, i)) {
			return true
		}
	}
	return false
}

// IterateAdditions yields every added line's (path, content) without
// materializing FileDiff objects. Cheap analyzers should prefer this over
// ToFileDiffs.
func IterateAdditions(pr *ParseResult) iter.Seq2[string, string] {
	return iterateKind(pr, arena.LineAdd)
}

// IterateDeletions yields every deleted line's (path, content).
func IterateDeletions(pr *ParseResult) iter.Seq2[string, string] {
	return iterateKind(pr, arena.LineDelete)
}

func iterateKind(pr *ParseResult, kind arena.LineKind) iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		a := pr.Arena
		for i := 0; i < a.LineCount(); i++ {
			if a.LineKindAt(i) != kind {
				continue
			}
			path := a.DecodeFilePath(pr.Pool, a.LineFile(i))
			if !yield(path, a.DecodeLineContent(pr.Pool, i)) {
				return
			}
		}
	}
}

// Stats counts files and changed lines without decoding any content.
func Stats(pr *ParseResult) types.ChangeStats {
	a := pr.Arena
	s := types.ChangeStats{FilesChanged: a.FileCount()}
	for i := 0; i < a.LineCount(); i++ {
		switch a.LineKindAt(i) {
		case arena.LineAdd:
			s.Additions++
		case arena.LineDelete:
			s.Deletions++
		}
	}
	return s
}
