package filedesc

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSortsAndTrims(t *testing.T) {
	fd, err := New(123, []ByteRun{
		{FileOffset: 50, DiskPos: 8000, Len: 50},
		{FileOffset: 100, DiskPos: 2000, Len: 50},
		{FileOffset: 0, DiskPos: 16000, Len: 50},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(123), fd.Size())
	assert.Equal(t, ByteRun{FileOffset: 0, DiskPos: 16000, Len: 50}, fd.Runs()[0])
	assert.Equal(t, ByteRun{FileOffset: 50, DiskPos: 8000, Len: 50}, fd.Runs()[1])
	assert.Equal(t, ByteRun{FileOffset: 100, DiskPos: 2000, Len: 23}, fd.Runs()[2])
}

func TestNewIntegrity(t *testing.T) {
	_, err := New(123, nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = New(123, []ByteRun{
		{FileOffset: 100, DiskPos: 2000, Len: 50},
		{FileOffset: 50, DiskPos: 8000, Len: 50},
	})
	var preGap *PreGapError
	require.ErrorAs(t, err, &preGap)
	assert.Equal(t, ByteRun{FileOffset: 50, DiskPos: 8000, Len: 50}, preGap.Run)

	_, err = New(123, []ByteRun{
		{FileOffset: 100, DiskPos: 2000, Len: 50},
		{FileOffset: 0, DiskPos: 16000, Len: 50},
	})
	var gap *GapError
	require.ErrorAs(t, err, &gap)
	assert.Equal(t, ByteRun{FileOffset: 0, DiskPos: 16000, Len: 50}, gap.Prev)
	assert.Equal(t, ByteRun{FileOffset: 100, DiskPos: 2000, Len: 50}, gap.Next)

	_, err = New(123, []ByteRun{
		{FileOffset: 50, DiskPos: 8000, Len: 50},
		{FileOffset: 100, DiskPos: 2000, Len: 50},
		{FileOffset: 0, DiskPos: 16000, Len: 60},
	})
	var overlap *OverlapError
	require.ErrorAs(t, err, &overlap)
	assert.Equal(t, ByteRun{FileOffset: 0, DiskPos: 16000, Len: 60}, overlap.Prev)
	assert.Equal(t, ByteRun{FileOffset: 50, DiskPos: 8000, Len: 50}, overlap.Next)

	_, err = New(1000, []ByteRun{{FileOffset: 0, DiskPos: 0, Len: 10}})
	var missing *MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, uint64(1000), missing.Size)
	assert.Equal(t, uint64(10), missing.Covered)

	_, err = New(5, []ByteRun{
		{FileOffset: 0, DiskPos: 0, Len: 10},
		{FileOffset: 10, DiskPos: 20, Len: 10},
	})
	var trailing *TrailingError
	require.ErrorAs(t, err, &trailing)
}

func TestAtPos(t *testing.T) {
	fd, err := New(123, []ByteRun{
		{FileOffset: 50, DiskPos: 8000, Len: 50},
		{FileOffset: 100, DiskPos: 2000, Len: 50},
		{FileOffset: 0, DiskPos: 16000, Len: 50},
	})
	require.NoError(t, err)

	pr := fd.At(0)
	assert.Equal(t, uint64(0), pr.pos)
	assert.Equal(t, 0, pr.curRun)
	assert.Equal(t, uint64(0), pr.offsetInRun)

	pr = fd.At(70)
	assert.Equal(t, uint64(70), pr.pos)
	assert.Equal(t, 1, pr.curRun)
	assert.Equal(t, uint64(20), pr.offsetInRun)

	pr = fd.At(170)
	assert.Equal(t, uint64(170), pr.pos)
	assert.Equal(t, 3, pr.curRun)
	assert.Equal(t, uint64(0), pr.offsetInRun)
}

func TestSeek(t *testing.T) {
	fd, err := New(123, []ByteRun{
		{FileOffset: 50, DiskPos: 8000, Len: 50},
		{FileOffset: 100, DiskPos: 2000, Len: 50},
		{FileOffset: 0, DiskPos: 16000, Len: 50},
	})
	require.NoError(t, err)
	pr := fd.At(0)

	pos, err := pr.Seek(3, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos)

	pos, err = pr.Seek(6, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)

	pos, err = pr.Seek(0x7ffffffffffffff0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(0x7ffffffffffffff6), pos)

	pos, err = pr.Seek(0x10, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x8000000000000006), uint64(pos))

	_, err = pr.Seek(0x7ffffffffffffffd, io.SeekCurrent)
	assert.ErrorIs(t, err, ErrBadSeek)

	pos, err = pr.Seek(-0x7fffffffffffffff-1, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)

	pos, err = pr.Seek(10, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(133), pos)

	pos, err = pr.Seek(-10, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(113), pos)

	_, err = pr.Seek(-1000, io.SeekEnd)
	assert.ErrorIs(t, err, ErrBadSeek)
}

func TestAdvancePanicsPastRun(t *testing.T) {
	fd, err := New(10, []ByteRun{{FileOffset: 0, DiskPos: 0, Len: 10}})
	require.NoError(t, err)
	pr := fd.At(0)
	assert.Panics(t, func() { pr.Advance(11) })
}
