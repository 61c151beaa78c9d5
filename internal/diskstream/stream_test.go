package diskstream

import (
	"bytes"
	"io"
	"testing"

	"github.com/gaby/carvemerge/internal/filedesc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDesc(t *testing.T) *filedesc.FileDescription {
	t.Helper()
	fd, err := filedesc.New(18, []filedesc.ByteRun{
		{FileOffset: 0, DiskPos: 0, Len: 6},
		{FileOffset: 6, DiskPos: 10, Len: 6},
		{FileOffset: 12, DiskPos: 20, Len: 6},
	})
	require.NoError(t, err)
	return fd
}

func diskBytes() []byte {
	b := make([]byte, 26)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

// capReaderAt caps every read to at most 3 bytes, to exercise short-read
// tolerance the way the original's LameCursor does.
type capReaderAt struct{ r *bytes.Reader }

func (c capReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if len(p) > 3 {
		p = p[:3]
	}
	return c.r.ReadAt(p, off)
}

func TestReaderEasy(t *testing.T) {
	fd := sampleDesc(t)
	src := bytes.NewReader(diskBytes())
	r := New(src, fd.At(0))
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 10, 11, 12, 13, 14, 15, 20, 21, 22, 23, 24, 25}, out)
}

func TestReaderSmallRead(t *testing.T) {
	fd := sampleDesc(t)
	src := bytes.NewReader(diskBytes())
	r := New(src, fd.At(0))

	buf := make([]byte, 3)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{0, 1, 2}, buf)

	pos, err := r.Seek(11, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(11), pos)

	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, byte(15), buf[0])
}

func TestReaderHard(t *testing.T) {
	fd := sampleDesc(t)
	src := capReaderAt{r: bytes.NewReader(diskBytes())}
	r := New(src, fd.At(0))
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 10, 11, 12, 13, 14, 15, 20, 21, 22, 23, 24, 25}, out)
}

func TestReaderAtShort(t *testing.T) {
	fd := sampleDesc(t)
	src := bytes.NewReader(diskBytes())
	ra := NewReaderAt(src, fd)

	out := make([]byte, 4)
	n, err := ra.ReadAt(out, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{0, 1, 2, 3}, out)

	n, err = ra.ReadAt(out, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, out[:n])

	n, err = ra.ReadAt(out, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 4, 5, 10}, out[:n])
}

func TestReaderAtLong(t *testing.T) {
	fd := sampleDesc(t)
	src := bytes.NewReader(diskBytes())
	ra := NewReaderAt(src, fd)

	out := make([]byte, 10)
	n, err := ra.ReadAt(out, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, []byte{4, 5, 10, 11, 12, 13, 14, 15, 20, 21}, out)
}

func TestReaderAtEOF(t *testing.T) {
	fd := sampleDesc(t)
	src := bytes.NewReader(diskBytes())
	ra := NewReaderAt(src, fd)

	out := make([]byte, 5)
	n, err := ra.ReadAt(out, 15)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{23, 24, 25}, out[:3])
}
