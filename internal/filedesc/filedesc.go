package filedesc

import (
	"errors"
	"fmt"
	"sort"
)

// ErrEmpty is returned by New when given no byte-runs.
var ErrEmpty = errors.New("filedesc: no byte-runs given")

// PreGapError means the first byte-run (by file offset) doesn't start at 0.
type PreGapError struct{ Run ByteRun }

func (e *PreGapError) Error() string {
	return fmt.Sprintf("filedesc: gap between beginning and %s", e.Run)
}

// GapError means two consecutive byte-runs leave a hole in file-offset space.
type GapError struct{ Prev, Next ByteRun }

func (e *GapError) Error() string {
	return fmt.Sprintf("filedesc: gap between %s and %s", e.Prev, e.Next)
}

// OverlapError means two consecutive byte-runs cover the same file offset.
type OverlapError struct{ Prev, Next ByteRun }

func (e *OverlapError) Error() string {
	return fmt.Sprintf("filedesc: %s and %s are overlapping", e.Prev, e.Next)
}

// TrailingError means a byte-run begins at or past the file's declared size.
type TrailingError struct {
	Run  ByteRun
	Size uint64
}

func (e *TrailingError) Error() string {
	return fmt.Sprintf("filedesc: %s is already past given size %d", e.Run, e.Size)
}

// MissingError means the byte-runs don't cover the whole declared size.
type MissingError struct{ Size, Covered uint64 }

func (e *MissingError) Error() string {
	return fmt.Sprintf("filedesc: should be of size %d, but only size %d is covered", e.Size, e.Covered)
}

// FileDescription is the validated, sorted, gap-free cover of a logical
// file of Size() bytes by disk byte-runs. Once constructed it is immutable.
type FileDescription struct {
	runs []ByteRun
	size uint64
}

// New sorts runs by their total order, validates that they form a
// contiguous, non-overlapping cover of [0, size), trims the last run to
// fit exactly, and returns the resulting FileDescription.
func New(size uint64, runs []ByteRun) (*FileDescription, error) {
	if len(runs) == 0 {
		return nil, ErrEmpty
	}
	sorted := make([]ByteRun, len(runs))
	copy(sorted, runs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	br := sorted[0]
	if br.FileOffset != 0 {
		return nil, &PreGapError{Run: br}
	}
	off := br.Len
	for i := 1; i < len(sorted); i++ {
		br2 := sorted[i]
		if off >= size {
			return nil, &TrailingError{Run: br2, Size: size}
		}
		switch {
		case br2.FileOffset > off:
			return nil, &GapError{Prev: br, Next: br2}
		case br2.FileOffset < off:
			return nil, &OverlapError{Prev: br, Next: br2}
		}
		br = br2
		off += br.Len
	}

	if size > off {
		return nil, &MissingError{Size: size, Covered: off}
	}
	sorted[len(sorted)-1].Len -= off - size

	return &FileDescription{runs: sorted, size: size}, nil
}

// Size returns the logical size of the described file.
func (fd *FileDescription) Size() uint64 { return fd.size }

// Runs returns a read-only view of the file's byte-runs, sorted by file
// offset.
func (fd *FileDescription) Runs() []ByteRun { return fd.runs }

// At returns a cursor positioned at the given file offset. Offsets beyond
// Size() are legal and position the cursor at EOF.
func (fd *FileDescription) At(pos uint64) *PositionedReader {
	if pos > fd.size {
		return &PositionedReader{desc: fd, pos: pos, curRun: len(fd.runs), offsetInRun: 0}
	}
	curRun := sort.Search(len(fd.runs), func(i int) bool { return fd.runs[i].FileOffset > pos }) - 1
	return &PositionedReader{
		desc:        fd,
		pos:         pos,
		curRun:      curRun,
		offsetInRun: pos - fd.runs[curRun].FileOffset,
	}
}
