package filedesc

import (
	"errors"
	"io"
)

// ErrBadSeek is returned when a relative seek would move the cursor before
// position 0 or past the range representable in a uint64 file offset.
var ErrBadSeek = errors.New("filedesc: bad seek position")

// PositionedReader is a cursor over a FileDescription. It tracks the
// current file offset together with the byte-run it falls within, so that
// Describe/Advance can be called repeatedly without re-searching the
// byte-run table.
type PositionedReader struct {
	desc        *FileDescription
	pos         uint64
	curRun      int
	offsetInRun uint64
}

// Describe reports, without advancing the cursor, the byte-run from the
// current position to the end of the current run. At EOF it returns a
// zero-length run at the current position.
func (pr *PositionedReader) Describe() ByteRun {
	if pr.curRun != len(pr.desc.runs) {
		run := pr.desc.runs[pr.curRun]
		return ByteRun{
			FileOffset: pr.pos,
			DiskPos:    run.DiskPos + pr.offsetInRun,
			Len:        run.Len - pr.offsetInRun,
		}
	}
	return ByteRun{FileOffset: pr.pos, DiskPos: 0, Len: 0}
}

// Advance moves the cursor forward by n bytes, where n must be at most the
// length reported by the most recent Describe call. Advancing past the end
// of the current run is a caller contract violation and panics.
func (pr *PositionedReader) Advance(n uint64) {
	rem := pr.desc.runs[pr.curRun].Len - pr.offsetInRun
	switch {
	case n < rem:
		pr.pos += n
		pr.offsetInRun += n
	case n == rem:
		pr.pos += rem
		pr.curRun++
		pr.offsetInRun = 0
	default:
		panic("filedesc: advanced past end of byte-run")
	}
}

// Seek relocates the cursor to an arbitrary file offset, following
// io.Seeker semantics. Offsets beyond Size() are legal and move to EOF.
func (pr *PositionedReader) Seek(offset int64, whence int) (int64, error) {
	var base uint64
	switch whence {
	case io.SeekStart:
		if offset < 0 {
			return 0, ErrBadSeek
		}
		*pr = *pr.desc.At(uint64(offset))
		return offset, nil
	case io.SeekCurrent:
		base = pr.pos
	case io.SeekEnd:
		base = pr.desc.size
	default:
		return 0, ErrBadSeek
	}

	var newPos uint64
	if offset >= 0 {
		u := uint64(offset)
		if base+u < base {
			return 0, ErrBadSeek
		}
		newPos = base + u
	} else {
		// Computed this way so it doesn't overflow when offset is the
		// most negative representable int64.
		u := uint64(-(offset+1)) + 1
		if u > base {
			return 0, ErrBadSeek
		}
		newPos = base - u
	}

	*pr = *pr.desc.At(newPos)
	return int64(newPos), nil
}

// Pos reports the cursor's current file offset.
func (pr *PositionedReader) Pos() uint64 { return pr.pos }
