// Package mountfs exposes recovered files from one or more parsed carve
// reports as a read-only bazil.org/fuse filesystem, splitting each
// recovered file's reported name into a directory tree exactly the way the
// original carve tool's own mount command did.
package mountfs

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path"
	"strings"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"golang.org/x/sync/singleflight"
	"golang.org/x/sys/unix"

	"github.com/gaby/carvemerge/internal/diskstream"
	"github.com/gaby/carvemerge/internal/report"
)

// nodeKind distinguishes the two VFS node shapes, mirroring the original
// PhotorecFS's MyFileType/NodeType split.
type nodeKind int

const (
	kindDir nodeKind = iota
	kindFile
)

type vnode struct {
	kind     nodeKind
	children map[string]*vnode // kindDir only
	entry    report.Entry      // kindFile only
}

// FS is a read-only fuse.FS exposing every recovered file from Entries,
// reading their bytes out of Volume on demand.
type FS struct {
	Volume io.ReaderAt
	root   *vnode

	// reads dedupes concurrent FUSE read callbacks landing on the same
	// file at the same offset — the kernel can issue overlapping
	// readahead requests for one handle from several threads — the same
	// role singleflight plays for the teacher's chunk cache, generalized
	// here to per-path-and-offset instead of per-segment.
	reads singleflight.Group
}

// New builds the path-split VFS tree for entries. Entries whose name is
// empty, or splits into no path components, are skipped — the original
// tool treated that case as a fatal bug, but a merged report spanning
// several carve runs is better served by skipping the stray entry than by
// refusing to mount anything.
func New(volume io.ReaderAt, entries []report.Entry) *FS {
	root := &vnode{kind: kindDir, children: map[string]*vnode{}}
	for _, e := range entries {
		insert(root, e)
	}
	return &FS{Volume: volume, root: root}
}

func insert(root *vnode, e report.Entry) {
	clean := strings.Trim(path.Clean("/"+filepathToSlash(e.Name)), "/")
	if clean == "" || clean == "." {
		return
	}
	parts := strings.Split(clean, "/")

	dir := root
	for _, part := range parts[:len(parts)-1] {
		next, ok := dir.children[part]
		if !ok {
			next = &vnode{kind: kindDir, children: map[string]*vnode{}}
			dir.children[part] = next
		} else if next.kind != kindDir {
			// A file already claims this path segment; give the
			// directory entry a name that can't collide instead of
			// dropping data silently.
			alt, ok := dir.children[part+"~dir"]
			if !ok {
				alt = &vnode{kind: kindDir, children: map[string]*vnode{}}
				dir.children[part+"~dir"] = alt
			}
			next = alt
		}
		dir = next
	}
	name := parts[len(parts)-1]
	if existing, ok := dir.children[name]; ok && existing.kind == kindDir {
		dir.children[name+"~file"] = &vnode{kind: kindFile, entry: e}
		return
	}
	dir.children[name] = &vnode{kind: kindFile, entry: e}
}

func filepathToSlash(name string) string {
	return strings.ReplaceAll(name, "\\", "/")
}

// Root implements fs.FS.
func (f *FS) Root() (fs.Node, error) {
	return &node{fs: f, v: f.root}, nil
}

// Conn is a live FUSE mount, returned by Mount. Close unmounts it.
type Conn struct {
	c *fuse.Conn
}

// Close unmounts the filesystem and closes the underlying connection.
func (m *Conn) Close() error {
	if m.c == nil {
		return nil
	}
	return m.c.Close()
}

// MountOptions configures Mount.
type MountOptions struct {
	Mountpoint string
	AllowOther bool
}

// Mount mounts filesystem at mountpoint, read-only, and serves requests in
// a background goroutine until ctx is cancelled or the returned Conn is
// closed — grounded on the teacher's own fuse.Mount/fs.Serve wiring.
func Mount(ctx context.Context, mountpoint string, filesystem fs.FS) (*Conn, error) {
	return MountWithOptions(ctx, MountOptions{Mountpoint: mountpoint}, filesystem)
}

// MountWithOptions is Mount with AllowOther control.
func MountWithOptions(ctx context.Context, opts MountOptions, filesystem fs.FS) (*Conn, error) {
	if opts.Mountpoint == "" {
		return nil, fmt.Errorf("mountfs: mountpoint required")
	}
	detachStaleMount(opts.Mountpoint)
	if err := os.MkdirAll(opts.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("mountfs: create mountpoint: %w", err)
	}
	mountOpts := []fuse.MountOption{
		fuse.ReadOnly(),
		fuse.FSName("carvemerge"),
		fuse.Subtype("carvemerge"),
	}
	if opts.AllowOther {
		mountOpts = append(mountOpts, fuse.AllowOther())
	}
	c, err := fuse.Mount(opts.Mountpoint, mountOpts...)
	if err != nil {
		return nil, fmt.Errorf("mountfs: mount %s: %w", opts.Mountpoint, err)
	}

	mnt := &Conn{c: c}
	go func() {
		if err := fs.Serve(c, filesystem); err != nil {
			log.Printf("mountfs: serve %s: %v", opts.Mountpoint, err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()
	return mnt, nil
}

// detachStaleMount best-effort unmounts a leftover FUSE mount at mp from a
// previous run that didn't exit cleanly, so Mount doesn't fail with
// "transport endpoint is not connected" — grounded on the teacher's own
// detachStaleMount in internal/fusefs/fusefs.go.
func detachStaleMount(mp string) {
	if strings.TrimSpace(mp) == "" {
		return
	}
	_ = unix.Unmount(mp, unix.MNT_DETACH)
	_, _ = exec.Command("fusermount3", "-uz", mp).CombinedOutput()
	_, _ = exec.Command("umount", "-l", mp).CombinedOutput()
}

// node implements fs.Node plus fs.HandleReadDirAller/fs.NodeStringLookuper/
// fs.HandleReader over one vnode.
type node struct {
	fs *FS
	v  *vnode
}

var (
	_ fs.Node               = (*node)(nil)
	_ fs.HandleReadDirAller = (*node)(nil)
	_ fs.NodeStringLookuper = (*node)(nil)
	_ fs.HandleReader       = (*node)(nil)
)

func (n *node) Attr(ctx context.Context, a *fuse.Attr) error {
	if n.v.kind == kindDir {
		a.Mode = os.ModeDir | 0o555
		return nil
	}
	a.Mode = 0o444
	a.Size = n.v.entry.Desc.Size()
	a.Mtime = time.Time{}
	return nil
}

func (n *node) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	if n.v.kind != kindDir {
		return nil, fuse.Errno(fuse.ENOTDIR)
	}
	out := make([]fuse.Dirent, 0, len(n.v.children))
	for name, child := range n.v.children {
		typ := fuse.DT_File
		if child.kind == kindDir {
			typ = fuse.DT_Dir
		}
		out = append(out, fuse.Dirent{Name: name, Type: typ})
	}
	return out, nil
}

func (n *node) Lookup(ctx context.Context, name string) (fs.Node, error) {
	if n.v.kind != kindDir {
		return nil, fuse.Errno(fuse.ENOTDIR)
	}
	child, ok := n.v.children[name]
	if !ok {
		return nil, fuse.ENOENT
	}
	return &node{fs: n.fs, v: child}, nil
}

// Read implements fs.HandleReader for file nodes. Directories never reach
// here since they are opened only for ReadDirAll.
func (n *node) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	if n.v.kind != kindFile {
		return fuse.Errno(fuse.EISDIR)
	}
	if req.Offset < 0 {
		return fuse.Errno(fuse.EIO)
	}

	key := fmt.Sprintf("%p:%d:%d", n.v, req.Offset, req.Size)
	data, err, _ := n.fs.reads.Do(key, func() (any, error) {
		ra := diskstream.NewReaderAt(n.fs.Volume, n.v.entry.Desc)
		buf := make([]byte, req.Size)
		got, err := ra.ReadAt(buf, req.Offset)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("mountfs: read %s: %w", n.v.entry.Name, err)
		}
		return buf[:got], nil
	})
	if err != nil {
		return err
	}
	resp.Data = data.([]byte)
	return nil
}
