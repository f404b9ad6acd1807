package fuse

import (
	"context"
	"strings"
	"syscall"

	"github.com/GnosisFoundation/git-ts/internal/dag"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	jsoniter "github.com/json-iterator/go"
)

const tensorsDir = "tensors"

// commitFileNames lists the files of a commit directory in display order.
var commitFileNames = []string{"message", "timestamp", "parent", "metadata.json", "cid"}

func newCommitInode(ctx context.Context, parent *fs.Inode, repo *dag.Repository, digest dag.Digest, path string) (*fs.Inode, syscall.Errno) {
	commit, err := repo.GetCommit(digest)
	if err != nil {
		return nil, toErrno(err)
	}
	dir := &CommitDir{repo: repo, commit: commit, path: path}
	return parent.NewInode(ctx, dir, fs.StableAttr{
		Mode: syscall.S_IFDIR,
		Ino:  stableIno(path),
	}), fs.OK
}

// CommitDir represents one commit (e.g. heads/main/).
// Contains: message, timestamp, parent, metadata.json, cid, tensors/
type CommitDir struct {
	fs.Inode
	repo   *dag.Repository
	commit *dag.Commit
	path   string
}

var _ = (fs.NodeLookuper)((*CommitDir)(nil))
var _ = (fs.NodeReaddirer)((*CommitDir)(nil))
var _ = (fs.NodeGetattrer)((*CommitDir)(nil))

func (d *CommitDir) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	if errno := dirAttr(out, d.path); errno != fs.OK {
		return errno
	}
	t := d.commit.Timestamp
	out.SetTimes(&t.Time, &t.Time, &t.Time)
	return fs.OK
}

func (d *CommitDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries := make([]fuse.DirEntry, 0, len(commitFileNames)+1)
	for _, name := range commitFileNames {
		entries = append(entries, fuse.DirEntry{
			Name: name,
			Mode: syscall.S_IFREG,
			Ino:  stableIno(d.path + "/" + name),
		})
	}
	entries = append(entries, fuse.DirEntry{
		Name: tensorsDir,
		Mode: syscall.S_IFDIR,
		Ino:  stableIno(d.path + "/" + tensorsDir),
	})
	return fs.NewListDirStream(entries), fs.OK
}

func (d *CommitDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	path := d.path + "/" + name
	if name == tensorsDir {
		dir := &TensorsDir{repo: d.repo, digest: d.commit.Hash, path: path}
		return d.NewInode(ctx, dir, fs.StableAttr{
			Mode: syscall.S_IFDIR,
			Ino:  stableIno(path),
		}), fs.OK
	}

	data, ok := commitFile(d.commit, name)
	if !ok {
		return nil, syscall.ENOENT
	}
	return d.NewInode(ctx, staticFile(path, data), fs.StableAttr{
		Mode: syscall.S_IFREG,
		Ino:  stableIno(path),
	}), fs.OK
}

// commitFile renders one field of a commit record.
func commitFile(c *dag.Commit, name string) ([]byte, bool) {
	switch name {
	case "message":
		return []byte(c.Message + "\n"), true
	case "timestamp":
		return []byte(c.Timestamp.String() + "\n"), true
	case "parent":
		if p, ok := c.Parent(); ok {
			return []byte(p.String() + "\n"), true
		}
		return []byte{}, true
	case "metadata.json":
		data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(c.Metadata, "", "  ")
		if err != nil {
			return nil, false
		}
		return append(data, '\n'), true
	case "cid":
		return []byte(c.Hash.CIDString() + "\n"), true
	default:
		return nil, false
	}
}

// TensorsDir exposes the raw element bytes of each tensor as a file.
type TensorsDir struct {
	fs.Inode
	repo   *dag.Repository
	digest dag.Digest
	path   string
}

var _ = (fs.NodeLookuper)((*TensorsDir)(nil))
var _ = (fs.NodeReaddirer)((*TensorsDir)(nil))
var _ = (fs.NodeGetattrer)((*TensorsDir)(nil))

func (d *TensorsDir) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	return dirAttr(out, d.path)
}

func (d *TensorsDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	c, err := d.repo.GetObject(d.digest)
	if err != nil {
		return nil, toErrno(err)
	}
	var entries []fuse.DirEntry
	for _, name := range c.Names() {
		// not representable as a single path component
		if strings.ContainsRune(name, '/') || name == "." || name == ".." {
			continue
		}
		entries = append(entries, fuse.DirEntry{
			Name: name,
			Mode: syscall.S_IFREG,
			Ino:  stableIno(d.path + "/" + name),
		})
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (d *TensorsDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	c, err := d.repo.GetObject(d.digest)
	if err != nil {
		return nil, toErrno(err)
	}
	t, ok := c[name]
	if !ok {
		return nil, syscall.ENOENT
	}
	path := d.path + "/" + name
	return d.NewInode(ctx, staticFile(path, t.Bytes()), fs.StableAttr{
		Mode: syscall.S_IFREG,
		Ino:  stableIno(path),
	}), fs.OK
}
