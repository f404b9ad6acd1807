package fuse

import (
	"context"
	"errors"
	"hash/fnv"
	"syscall"

	"github.com/GnosisFoundation/git-ts/internal/dag"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// BytesFile is a read-only file whose content is produced on demand.
type BytesFile struct {
	fs.Inode
	path    string
	content func() ([]byte, error)
}

var _ = (fs.NodeGetattrer)((*BytesFile)(nil))
var _ = (fs.NodeReader)((*BytesFile)(nil))
var _ = (fs.NodeOpener)((*BytesFile)(nil))

func staticFile(path string, data []byte) *BytesFile {
	return &BytesFile{path: path, content: func() ([]byte, error) { return data, nil }}
}

func (f *BytesFile) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	data, err := f.content()
	if err != nil {
		return toErrno(err)
	}
	out.Mode = 0444
	out.Size = uint64(len(data))
	out.Ino = stableIno(f.path)
	return fs.OK
}

func (f *BytesFile) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_TRUNC) != 0 {
		return nil, 0, syscall.EROFS
	}
	return nil, fuse.FOPEN_KEEP_CACHE, fs.OK
}

func (f *BytesFile) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := f.content()
	if err != nil {
		return nil, toErrno(err)
	}
	return fuse.ReadResultData(readAt(data, dest, off)), fs.OK
}

// readAt returns the slice of data a read of len(dest) bytes at off sees.
func readAt(data, dest []byte, off int64) []byte {
	if off >= int64(len(data)) {
		return nil
	}
	end := off + int64(len(dest))
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[off:end]
}

// toErrno maps repository errors to errno values.
func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return fs.OK
	case errors.Is(err, dag.ErrObjectNotFound), errors.Is(err, dag.ErrInvalidReference):
		return syscall.ENOENT
	default:
		return syscall.EIO
	}
}

func dirAttr(out *fuse.AttrOut, path string) syscall.Errno {
	out.Mode = 0555
	out.Ino = stableIno(path)
	return fs.OK
}

// stableIno derives an inode number from a mount-relative path so that the
// same path keeps its inode across lookups.
func stableIno(path string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	return h.Sum64()
}
