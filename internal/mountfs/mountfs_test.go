package mountfs

import (
	"bytes"
	"context"
	"testing"

	"bazil.org/fuse"
	"github.com/gaby/carvemerge/internal/filedesc"
	"github.com/gaby/carvemerge/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func desc(t *testing.T, size uint64, diskPos uint64) *filedesc.FileDescription {
	t.Helper()
	fd, err := filedesc.New(size, []filedesc.ByteRun{{FileOffset: 0, DiskPos: diskPos, Len: size}})
	require.NoError(t, err)
	return fd
}

func TestTreeBuildsDirectoriesFromPaths(t *testing.T) {
	src := bytes.NewReader(make([]byte, 1024))
	fsys := New(src, []report.Entry{
		{Name: "a/b/one.jpg", Desc: desc(t, 4, 0)},
		{Name: "a/two.jpg", Desc: desc(t, 4, 4)},
		{Name: "three.jpg", Desc: desc(t, 4, 8)},
	})

	root, err := fsys.Root()
	require.NoError(t, err)
	rootNode := root.(*node)

	ents, err := rootNode.ReadDirAll(context.Background())
	require.NoError(t, err)
	names := map[string]fuse.DirentType{}
	for _, e := range ents {
		names[e.Name] = e.Type
	}
	assert.Equal(t, fuse.DT_Dir, names["a"])
	assert.Equal(t, fuse.DT_File, names["three.jpg"])

	aNode, err := rootNode.Lookup(context.Background(), "a")
	require.NoError(t, err)
	bEntry, err := aNode.(*node).Lookup(context.Background(), "b")
	require.NoError(t, err)
	oneEntry, err := bEntry.(*node).Lookup(context.Background(), "one.jpg")
	require.NoError(t, err)
	assert.Equal(t, kindFile, oneEntry.(*node).v.kind)
}

func TestFileNodeReadsThroughDiskStream(t *testing.T) {
	data := []byte("hello, recovered world")
	src := bytes.NewReader(data)
	fsys := New(src, []report.Entry{
		{Name: "hello.txt", Desc: desc(t, uint64(len(data)), 0)},
	})

	root, err := fsys.Root()
	require.NoError(t, err)
	n, err := root.(*node).Lookup(context.Background(), "hello.txt")
	require.NoError(t, err)

	req := &fuse.ReadRequest{Offset: 0, Size: len(data)}
	resp := &fuse.ReadResponse{}
	require.NoError(t, n.(*node).Read(context.Background(), req, resp))
	assert.Equal(t, data, resp.Data)
}

func TestCollidingFileAndDirectoryNamesDontClobber(t *testing.T) {
	src := bytes.NewReader(make([]byte, 1024))
	fsys := New(src, []report.Entry{
		{Name: "a", Desc: desc(t, 4, 0)},
		{Name: "a/b.jpg", Desc: desc(t, 4, 4)},
	})

	root, err := fsys.Root()
	require.NoError(t, err)
	ents, err := root.(*node).ReadDirAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, ents, 2)
}
