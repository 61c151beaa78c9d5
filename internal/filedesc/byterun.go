// Package filedesc models a recovered file as a validated, gap-free cover
// of disk byte-runs, and provides cursors for translating file offsets into
// disk reads.
package filedesc

import "fmt"

// ByteRun is a single contiguous mapping from a range of file offsets to a
// same-length range of disk positions.
type ByteRun struct {
	FileOffset uint64
	DiskPos    uint64
	Len        uint64
}

func (br ByteRun) String() string {
	return fmt.Sprintf("(file_offset: %d, disk_pos: %d, len: %d)", br.FileOffset, br.DiskPos, br.Len)
}

// Less gives ByteRun a total order by (FileOffset, DiskPos, Len), matching
// the derived Ord on the original ByteRun.
func (br ByteRun) Less(other ByteRun) bool {
	if br.FileOffset != other.FileOffset {
		return br.FileOffset < other.FileOffset
	}
	if br.DiskPos != other.DiskPos {
		return br.DiskPos < other.DiskPos
	}
	return br.Len < other.Len
}

// DiskEnd returns the exclusive end of the disk range this run occupies.
func (br ByteRun) DiskEnd() uint64 { return br.DiskPos + br.Len }
