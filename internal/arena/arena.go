// Package arena holds parsed diff records in a struct-of-arrays layout:
// every field lives in its own contiguous typed slice, indexed in parallel,
// with offsets and lengths pointing into the original diff buffer instead
// of per-record string allocations. Decoding is deferred until a consumer
// actually asks for text.
package arena

import (
	"fmt"

	"github.com/standardbeagle/diffscope/internal/types"
)

// LineKind classifies one diff line.
type LineKind uint8

const (
	LineContext LineKind = iota
	LineAdd
	LineDelete
)

// DiffArena is the struct-of-arrays store for one parsed diff.
//
// Insertion order is strict: a file record first, then each of its hunks,
// then each hunk's lines. Every line's file/hunk index therefore always
// references an already-inserted record. The arena never interprets diff
// syntax; the parser owns that.
type DiffArena struct {
	src []byte // retained for lazy decoding; nil after Reset

	// line records
	lineOff   []uint32
	lineLen   []uint32
	lineKind  []uint8
	lineFile  []uint32
	lineHunk  []uint32
	lineOldNo []int32 // -1 for added lines
	lineNewNo []int32 // -1 for deleted lines
	lineCount int

	// hunk records
	hunkOldStart []int32
	hunkOldLines []int32
	hunkNewStart []int32
	hunkNewLines []int32
	hunkFile     []uint32
	hunkHdrOff   []uint32
	hunkHdrLen   []uint32
	hunkCount    int

	// file records
	fileStatus    []uint8
	filePathOff   []uint32
	filePathLen   []uint32
	fileOldOff    []uint32
	fileOldLen    []uint32
	fileFirstHunk []uint32
	fileHunkCount []uint32
	fileCount     int
}

// CapacityHint sizes the arena's backing arrays up front from the input
// byte length, avoiding growth churn on the common case.
type CapacityHint struct {
	Lines int
	Hunks int
	Files int
}

// HintFromByteLength derives a CapacityHint from raw diff size using the
// measured per-line/per-hunk/per-file averages in types.
func HintFromByteLength(n int) CapacityHint {
	lines := n / types.BytesPerLineEstimate
	if lines < types.MinLineCapacity {
		lines = types.MinLineCapacity
	}
	hunks := lines / types.LinesPerHunkEstimate
	if hunks < types.MinHunkCapacity {
		hunks = types.MinHunkCapacity
	}
	files := hunks / types.HunksPerFileEstimate
	if files < types.MinFileCapacity {
		files = types.MinFileCapacity
	}
	return CapacityHint{Lines: lines, Hunks: hunks, Files: files}
}

// New allocates an arena with the given capacities.
func New(hint CapacityHint) *DiffArena {
	if hint.Lines <= 0 {
		hint.Lines = types.MinLineCapacity
	}
	if hint.Hunks <= 0 {
		hint.Hunks = types.MinHunkCapacity
	}
	if hint.Files <= 0 {
		hint.Files = types.MinFileCapacity
	}
	a := &DiffArena{}
	a.growLines(hint.Lines)
	a.growHunks(hint.Hunks)
	a.growFiles(hint.Files)
	return a
}

// SetSource attaches the raw diff buffer. The arena keeps the reference for
// the lifetime of lazy decoding; Reset drops it.
func (a *DiffArena) SetSource(src []byte) { a.src = src }

// HasSource reports whether a source buffer is attached.
func (a *DiffArena) HasSource() bool { return a.src != nil }

func grow[T uint8 | uint32 | int32](s []T, newCap int) []T {
	n := make([]T, newCap)
	copy(n, s)
	return n
}

func (a *DiffArena) growLines(newCap int) {
	a.lineOff = grow(a.lineOff, newCap)
	a.lineLen = grow(a.lineLen, newCap)
	a.lineKind = grow(a.lineKind, newCap)
	a.lineFile = grow(a.lineFile, newCap)
	a.lineHunk = grow(a.lineHunk, newCap)
	a.lineOldNo = grow(a.lineOldNo, newCap)
	a.lineNewNo = grow(a.lineNewNo, newCap)
}

func (a *DiffArena) growHunks(newCap int) {
	a.hunkOldStart = grow(a.hunkOldStart, newCap)
	a.hunkOldLines = grow(a.hunkOldLines, newCap)
	a.hunkNewStart = grow(a.hunkNewStart, newCap)
	a.hunkNewLines = grow(a.hunkNewLines, newCap)
	a.hunkFile = grow(a.hunkFile, newCap)
	a.hunkHdrOff = grow(a.hunkHdrOff, newCap)
	a.hunkHdrLen = grow(a.hunkHdrLen, newCap)
}

func (a *DiffArena) growFiles(newCap int) {
	a.fileStatus = grow(a.fileStatus, newCap)
	a.filePathOff = grow(a.filePathOff, newCap)
	a.filePathLen = grow(a.filePathLen, newCap)
	a.fileOldOff = grow(a.fileOldOff, newCap)
	a.fileOldLen = grow(a.fileOldLen, newCap)
	a.fileFirstHunk = grow(a.fileFirstHunk, newCap)
	a.fileHunkCount = grow(a.fileHunkCount, newCap)
}

// AddFile appends a file record and returns its index. Path offsets may be
// patched later by the parser as more header lines arrive.
func (a *DiffArena) AddFile(status types.FileStatus, pathOff, pathLen uint32) int {
	if a.fileCount == len(a.fileStatus) {
		a.growFiles(a.fileCount * 2)
	}
	i := a.fileCount
	a.fileStatus[i] = uint8(status)
	a.filePathOff[i] = pathOff
	a.filePathLen[i] = pathLen
	a.fileOldOff[i] = 0
	a.fileOldLen[i] = 0
	a.fileFirstHunk[i] = uint32(a.hunkCount)
	a.fileHunkCount[i] = 0
	a.fileCount++
	return i
}

// SetFilePath updates the path range of an existing file record.
func (a *DiffArena) SetFilePath(file int, off, length uint32) {
	a.filePathOff[file] = off
	a.filePathLen[file] = length
}

// SetFileOldPath updates the old-path range (renames).
func (a *DiffArena) SetFileOldPath(file int, off, length uint32) {
	a.fileOldOff[file] = off
	a.fileOldLen[file] = length
}

// SetFileStatus updates a file record's status.
func (a *DiffArena) SetFileStatus(file int, status types.FileStatus) {
	a.fileStatus[file] = uint8(status)
}

// AddHunk appends a hunk record owned by file and returns its index.
func (a *DiffArena) AddHunk(file int, oldStart, oldLines, newStart, newLines int32, hdrOff, hdrLen uint32) int {
	if a.hunkCount == len(a.hunkOldStart) {
		a.growHunks(a.hunkCount * 2)
	}
	i := a.hunkCount
	a.hunkOldStart[i] = oldStart
	a.hunkOldLines[i] = oldLines
	a.hunkNewStart[i] = newStart
	a.hunkNewLines[i] = newLines
	a.hunkFile[i] = uint32(file)
	a.hunkHdrOff[i] = hdrOff
	a.hunkHdrLen[i] = hdrLen
	a.hunkCount++
	a.fileHunkCount[file]++
	return i
}

// AddLine appends a line record owned by (file, hunk) and returns its index.
func (a *DiffArena) AddLine(kind LineKind, file, hunk int, off, length uint32, oldNo, newNo int32) int {
	if a.lineCount == len(a.lineOff) {
		a.growLines(a.lineCount * 2)
	}
	i := a.lineCount
	a.lineOff[i] = off
	a.lineLen[i] = length
	a.lineKind[i] = uint8(kind)
	a.lineFile[i] = uint32(file)
	a.lineHunk[i] = uint32(hunk)
	a.lineOldNo[i] = oldNo
	a.lineNewNo[i] = newNo
	a.lineCount++
	return i
}

// LineCount returns the number of inserted line records.
func (a *DiffArena) LineCount() int { return a.lineCount }

// HunkCount returns the number of inserted hunk records.
func (a *DiffArena) HunkCount() int { return a.hunkCount }

// FileCount returns the number of inserted file records.
func (a *DiffArena) FileCount() int { return a.fileCount }

// LineKindAt returns the kind of line i.
func (a *DiffArena) LineKindAt(i int) LineKind { return LineKind(a.lineKind[i]) }

// LineFile returns the owning file index of line i.
func (a *DiffArena) LineFile(i int) int { return int(a.lineFile[i]) }

// LineHunk returns the owning hunk index of line i.
func (a *DiffArena) LineHunk(i int) int { return int(a.lineHunk[i]) }

// LineNumbers returns the old/new line numbers of line i (-1 where absent).
func (a *DiffArena) LineNumbers(i int) (oldNo, newNo int32) {
	return a.lineOldNo[i], a.lineNewNo[i]
}

// HunkFile returns the owning file index of hunk i.
func (a *DiffArena) HunkFile(i int) int { return int(a.hunkFile[i]) }

// HunkRange returns the old/new start and line counts of hunk i.
func (a *DiffArena) HunkRange(i int) (oldStart, oldLines, newStart, newLines int32) {
	return a.hunkOldStart[i], a.hunkOldLines[i], a.hunkNewStart[i], a.hunkNewLines[i]
}

// FileStatusAt returns the status of file i.
func (a *DiffArena) FileStatusAt(i int) types.FileStatus {
	return types.FileStatus(a.fileStatus[i])
}

// FileHunks returns the index of file i's first hunk and its hunk count,
// so consumers can iterate exactly that file's hunks.
func (a *DiffArena) FileHunks(i int) (first, count int) {
	return int(a.fileFirstHunk[i]), int(a.fileHunkCount[i])
}

// HasOldPath reports whether file i carries an old-path range.
func (a *DiffArena) HasOldPath(i int) bool { return a.fileOldLen[i] > 0 }

func (a *DiffArena) mustSource() []byte {
	if a.src == nil {
		panic("arena: decode without source buffer (arena was reset or never parsed)")
	}
	return a.src
}

func (a *DiffArena) decode(pool *InternPool, off, length uint32) string {
	src := a.mustSource()
	b := src[off : off+length]
	if pool != nil {
		return pool.Intern(b)
	}
	return string(b)
}

// DecodeLineContent returns the text of line i, without the +/-/space prefix.
func (a *DiffArena) DecodeLineContent(pool *InternPool, i int) string {
	return a.decode(pool, a.lineOff[i], a.lineLen[i])
}

// DecodeFilePath returns the (new) path of file i.
func (a *DiffArena) DecodeFilePath(pool *InternPool, i int) string {
	return a.decode(pool, a.filePathOff[i], a.filePathLen[i])
}

// DecodeFileOldPath returns the old path of file i, or "" if none.
func (a *DiffArena) DecodeFileOldPath(pool *InternPool, i int) string {
	if a.fileOldLen[i] == 0 {
		return ""
	}
	return a.decode(pool, a.fileOldOff[i], a.fileOldLen[i])
}

// DecodeHunkHeader returns the raw @@ header line of hunk i.
func (a *DiffArena) DecodeHunkHeader(pool *InternPool, i int) string {
	return a.decode(pool, a.hunkHdrOff[i], a.hunkHdrLen[i])
}

// Reset zeroes all cursors and drops the source buffer so the arena can be
// reused for another parse. Backing array capacity is retained.
func (a *DiffArena) Reset() {
	a.lineCount = 0
	a.hunkCount = 0
	a.fileCount = 0
	a.src = nil
}

// MemoryStats reports used vs. allocated bytes per record category; an
// observability aid for diagnosing over-allocation, not needed for
// correctness.
type MemoryStats struct {
	LineBytesUsed      int64
	LineBytesAllocated int64
	HunkBytesUsed      int64
	HunkBytesAllocated int64
	FileBytesUsed      int64
	FileBytesAllocated int64
	SourceBytes        int64
}

const (
	lineRecordBytes = 4 + 4 + 1 + 4 + 4 + 4 + 4
	hunkRecordBytes = 4 * 7
	fileRecordBytes = 1 + 4*6
)

// GetMemoryStats computes the current memory footprint.
func (a *DiffArena) GetMemoryStats() MemoryStats {
	return MemoryStats{
		LineBytesUsed:      int64(a.lineCount) * lineRecordBytes,
		LineBytesAllocated: int64(len(a.lineOff)) * lineRecordBytes,
		HunkBytesUsed:      int64(a.hunkCount) * hunkRecordBytes,
		HunkBytesAllocated: int64(len(a.hunkOldStart)) * hunkRecordBytes,
		FileBytesUsed:      int64(a.fileCount) * fileRecordBytes,
		FileBytesAllocated: int64(len(a.fileStatus)) * fileRecordBytes,
		SourceBytes:        int64(len(a.src)),
	}
}

func (s MemoryStats) String() string {
	return fmt.Sprintf("lines %d/%d hunks %d/%d files %d/%d source %d",
		s.LineBytesUsed, s.LineBytesAllocated,
		s.HunkBytesUsed, s.HunkBytesAllocated,
		s.FileBytesUsed, s.FileBytesAllocated,
		s.SourceBytes)
}
