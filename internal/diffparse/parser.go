// Package diffparse turns raw unified-diff text into the arena
// representation in a single scan pass, then adapts it back to the
// conventional FileDiff object model on demand.
package diffparse

import (
	"bytes"

	"github.com/standardbeagle/diffscope/internal/arena"
	"github.com/standardbeagle/diffscope/internal/types"
)

// ParseResult bundles a populated arena with the intern pool used for its
// lazy decoding. Immutable once produced for a given diff buffer.
type ParseResult struct {
	Arena *arena.DiffArena
	Pool  *arena.InternPool
}

// Parse scans src once and returns a populated arena. No per-line strings
// are allocated during the scan; all content stays as (offset, length)
// ranges into src.
func Parse(src []byte) *ParseResult {
	a := arena.New(arena.HintFromByteLength(len(src)))
	return ParseInto(a, arena.NewInternPool(), src)
}

// ParseInto reuses an existing arena and pool for another parse. The arena
// is reset first; its backing arrays are retained.
func ParseInto(a *arena.DiffArena, pool *arena.InternPool, src []byte) *ParseResult {
	a.Reset()
	pool.Reset()
	a.SetSource(src)

	p := parser{arena: a, src: src, curFile: -1, curHunk: -1}
	p.run()

	return &ParseResult{Arena: a, Pool: pool}
}

type parser struct {
	arena *arena.DiffArena
	src   []byte

	curFile int
	curHunk int

	// running line numbers within the current hunk
	oldNo int32
	newNo int32

	// lines still expected per the hunk header; once both reach zero the
	// hunk is closed and header parsing resumes
	remainOld int32
	remainNew int32
}

func isHunkBody(line []byte) bool {
	if len(line) == 0 {
		return true
	}
	switch line[0] {
	case '+', '-', ' ', '\\':
		return true
	}
	return false
}

func (p *parser) hunkActive() bool {
	return p.curHunk >= 0 && (p.remainOld > 0 || p.remainNew > 0)
}

var (
	prefixDiffGit     = []byte("diff --git ")
	prefixNewFile     = []byte("new file mode")
	prefixDeletedFile = []byte("deleted file mode")
	prefixRenameFrom  = []byte("rename from ")
	prefixRenameTo    = []byte("rename to ")
	prefixCopyFrom    = []byte("copy from ")
	prefixCopyTo      = []byte("copy to ")
	prefixOldPath     = []byte("--- ")
	prefixNewPath     = []byte("+++ ")
	prefixHunk        = []byte("@@ -")
	devNull           = []byte("/dev/null")
)

func (p *parser) run() {
	off := 0
	for off < len(p.src) {
		end := bytes.IndexByte(p.src[off:], '\n')
		var next int
		if end < 0 {
			end = len(p.src)
			next = end
		} else {
			end += off
			next = end + 1
		}
		p.line(uint32(off), uint32(end))
		off = next
	}
}

// line handles one raw line [start, end) of the source buffer.
func (p *parser) line(start, end uint32) {
	line := p.src[start:end]

	switch {
	case bytes.HasPrefix(line, prefixDiffGit):
		p.startFile(start, line)
	case p.hunkActive() && isHunkBody(line):
		// A deletion line whose content starts with "-- " renders as
		// "--- ...", so hunk bodies must win over header prefixes here.
		// Non-body lines fall through to header handling even when the
		// header promised more lines than the hunk delivered.
		p.hunkLine(start, line)
	case bytes.HasPrefix(line, prefixHunk):
		p.startHunk(start, end, line)
	case p.curFile < 0:
		// Preamble noise before the first file header; skip.
	case bytes.HasPrefix(line, prefixNewFile):
		p.arena.SetFileStatus(p.curFile, types.StatusAdded)
	case bytes.HasPrefix(line, prefixDeletedFile):
		p.arena.SetFileStatus(p.curFile, types.StatusDeleted)
	case bytes.HasPrefix(line, prefixRenameFrom):
		p.arena.SetFileStatus(p.curFile, types.StatusRenamed)
		p.arena.SetFileOldPath(p.curFile, start+uint32(len(prefixRenameFrom)), uint32(len(line)-len(prefixRenameFrom)))
	case bytes.HasPrefix(line, prefixRenameTo):
		p.arena.SetFilePath(p.curFile, start+uint32(len(prefixRenameTo)), uint32(len(line)-len(prefixRenameTo)))
	case bytes.HasPrefix(line, prefixCopyFrom):
		p.arena.SetFileStatus(p.curFile, types.StatusAdded)
		p.arena.SetFileOldPath(p.curFile, start+uint32(len(prefixCopyFrom)), uint32(len(line)-len(prefixCopyFrom)))
	case bytes.HasPrefix(line, prefixCopyTo):
		p.arena.SetFilePath(p.curFile, start+uint32(len(prefixCopyTo)), uint32(len(line)-len(prefixCopyTo)))
	case bytes.HasPrefix(line, prefixOldPath):
		rest := line[len(prefixOldPath):]
		if bytes.Equal(rest, devNull) {
			p.arena.SetFileStatus(p.curFile, types.StatusAdded)
		}
	case bytes.HasPrefix(line, prefixNewPath):
		rest := line[len(prefixNewPath):]
		if bytes.Equal(rest, devNull) {
			p.arena.SetFileStatus(p.curFile, types.StatusDeleted)
		} else if len(rest) > 2 && rest[0] == 'b' && rest[1] == '/' {
			p.arena.SetFilePath(p.curFile, start+uint32(len(prefixNewPath))+2, uint32(len(rest)-2))
		}
	}
}

// startFile parses "diff --git a/<old> b/<new>" and appends a file record.
// Quoted or space-containing paths are handled best-effort: the " b/"
// separator is located from the right.
func (p *parser) startFile(start uint32, line []byte) {
	p.curHunk = -1
	p.remainOld = 0
	p.remainNew = 0

	rest := line[len(prefixDiffGit):]
	restOff := start + uint32(len(prefixDiffGit))

	sep := bytes.LastIndex(rest, []byte(" b/"))
	pathOff, pathLen := restOff, uint32(len(rest))
	if sep >= 0 {
		pathOff = restOff + uint32(sep+3)
		pathLen = uint32(len(rest) - sep - 3)
	}
	p.curFile = p.arena.AddFile(types.StatusModified, pathOff, pathLen)
}

// startHunk parses "@@ -oldStart[,oldLines] +newStart[,newLines] @@ ...".
// A malformed header does not abort the parse; the hunk and its lines are
// skipped.
func (p *parser) startHunk(start, end uint32, line []byte) {
	if p.curFile < 0 {
		return
	}

	i := len(prefixHunk)
	oldStart, i, ok := parseInt32(line, i)
	if !ok {
		p.curHunk = -1
		return
	}
	oldLines := int32(1)
	if i < len(line) && line[i] == ',' {
		oldLines, i, ok = parseInt32(line, i+1)
		if !ok {
			p.curHunk = -1
			return
		}
	}
	if i+1 >= len(line) || line[i] != ' ' || line[i+1] != '+' {
		p.curHunk = -1
		return
	}
	newStart, i, ok := parseInt32(line, i+2)
	if !ok {
		p.curHunk = -1
		return
	}
	newLines := int32(1)
	if i < len(line) && line[i] == ',' {
		newLines, _, ok = parseInt32(line, i+1)
		if !ok {
			p.curHunk = -1
			return
		}
	}

	p.curHunk = p.arena.AddHunk(p.curFile, oldStart, oldLines, newStart, newLines, start, end-start)
	p.oldNo = oldStart
	p.newNo = newStart
	p.remainOld = oldLines
	p.remainNew = newLines
}

// hunkLine records one +/-/context line of the current hunk.
func (p *parser) hunkLine(start uint32, line []byte) {
	if len(line) == 0 {
		// Some tools emit bare empty lines for empty context.
		p.arena.AddLine(arena.LineContext, p.curFile, p.curHunk, start, 0, p.oldNo, p.newNo)
		p.oldNo++
		p.newNo++
		p.remainOld--
		p.remainNew--
		return
	}

	contentOff := start + 1
	contentLen := uint32(len(line) - 1)

	switch line[0] {
	case '+':
		p.arena.AddLine(arena.LineAdd, p.curFile, p.curHunk, contentOff, contentLen, -1, p.newNo)
		p.newNo++
		p.remainNew--
	case '-':
		p.arena.AddLine(arena.LineDelete, p.curFile, p.curHunk, contentOff, contentLen, p.oldNo, -1)
		p.oldNo++
		p.remainOld--
	case ' ':
		p.arena.AddLine(arena.LineContext, p.curFile, p.curHunk, contentOff, contentLen, p.oldNo, p.newNo)
		p.oldNo++
		p.newNo++
		p.remainOld--
		p.remainNew--
	case '\\':
		// "\ No newline at end of file"
	default:
		// Unrecognized content inside a hunk; stop attributing lines to it.
		p.curHunk = -1
		p.remainOld = 0
		p.remainNew = 0
	}
}

// parseInt32 reads a decimal run starting at i, returning the value and the
// index of the first non-digit byte.
func parseInt32(b []byte, i int) (int32, int, bool) {
	var v int32
	startIdx := i
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		v = v*10 + int32(b[i]-'0')
		i++
	}
	if i == startIdx {
		return 0, i, false
	}
	return v, i, true
}
