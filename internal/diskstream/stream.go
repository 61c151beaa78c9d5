// Package diskstream adapts a filedesc.PositionedReader plus a
// random-access disk source into sequential and random-access byte
// streams, tolerating short reads from the underlying source the way any
// real disk image reader must.
package diskstream

import (
	"io"

	"github.com/gaby/carvemerge/internal/filedesc"
)

// Reader turns a positioned reader over a FileDescription, plus a disk
// source, into a sequential io.Reader + io.Seeker.
type Reader struct {
	pr  *filedesc.PositionedReader
	src io.ReaderAt
}

// New returns a Reader that reads the file described by pr's
// FileDescription out of src.
func New(src io.ReaderAt, pr *filedesc.PositionedReader) *Reader {
	return &Reader{pr: pr, src: src}
}

// Read implements io.Reader. Each call reads from at most the current
// byte-run; short reads from the underlying source are propagated as
// short reads here too, with the cursor advanced by exactly what was read.
func (r *Reader) Read(buf []byte) (int, error) {
	desc := r.pr.Describe()
	if desc.Len == 0 {
		return 0, io.EOF
	}
	maxLen := len(buf)
	if uint64(maxLen) > desc.Len {
		maxLen = int(desc.Len)
	}
	n, err := r.src.ReadAt(buf[:maxLen], int64(desc.DiskPos))
	if n > 0 {
		r.pr.Advance(uint64(n))
	}
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// Seek implements io.Seeker by delegating to the positioned reader.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	return r.pr.Seek(offset, whence)
}

// ReaderAt adapts a FileDescription plus a disk source into a stateless
// io.ReaderAt over the logical file: each call starts its own cursor and
// walks forward across as many byte-runs as needed to fill buf.
type ReaderAt struct {
	desc *filedesc.FileDescription
	src  io.ReaderAt
}

// NewReaderAt returns a ReaderAt serving desc's logical file out of src.
func NewReaderAt(src io.ReaderAt, desc *filedesc.FileDescription) *ReaderAt {
	return &ReaderAt{desc: desc, src: src}
}

// ReadAt implements io.ReaderAt.
func (r *ReaderAt) ReadAt(buf []byte, off int64) (int, error) {
	pr := r.desc.At(uint64(off))
	read := 0
	for read < len(buf) {
		desc := pr.Describe()
		if desc.Len == 0 {
			break
		}
		remaining := len(buf) - read
		n := remaining
		if uint64(n) > desc.Len {
			n = int(desc.Len)
		}
		got, err := r.src.ReadAt(buf[read:read+n], int64(desc.DiskPos))
		if got > 0 {
			pr.Advance(uint64(got))
			read += got
		}
		if err != nil {
			if err == io.EOF {
				return read, nil
			}
			return read, err
		}
		if got == 0 {
			break
		}
	}
	return read, nil
}
