package fuse

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/GnosisFoundation/git-ts/internal/dag"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// RootNode is the mountpoint directory. Contains "HEAD", "heads/", "tags/" and "commits/".
type RootNode struct {
	fs.Inode
	repo *dag.Repository
}

var _ = (fs.NodeOnAdder)((*RootNode)(nil))
var _ = (fs.NodeGetattrer)((*RootNode)(nil))

func (r *RootNode) OnAdd(ctx context.Context) {
	head := &BytesFile{path: "HEAD", content: func() ([]byte, error) { return headBytes(r.repo) }}
	r.AddChild("HEAD", r.NewPersistentInode(ctx, head, fs.StableAttr{
		Mode: syscall.S_IFREG,
		Ino:  stableIno("HEAD"),
	}), true)

	for _, ns := range []dag.Namespace{dag.Heads, dag.Tags} {
		dir := &RefsDir{repo: r.repo, ns: ns}
		r.AddChild(string(ns), r.NewPersistentInode(ctx, dir, fs.StableAttr{
			Mode: syscall.S_IFDIR,
			Ino:  stableIno(string(ns)),
		}), true)
	}

	commits := &CommitsDir{repo: r.repo}
	r.AddChild("commits", r.NewPersistentInode(ctx, commits, fs.StableAttr{
		Mode: syscall.S_IFDIR,
		Ino:  stableIno("commits"),
	}), true)
}

func (r *RootNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	return dirAttr(out, "/")
}

// headBytes renders the current branch and, once it has commits, its digest.
func headBytes(repo *dag.Repository) ([]byte, error) {
	branch, err := repo.Head()
	if err != nil {
		return nil, err
	}
	d, err := repo.ResolveHead()
	if errors.Is(err, dag.ErrInvalidReference) {
		return []byte(fmt.Sprintf("%s\n", dag.RefPath(dag.Heads, branch))), nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("%s\n%s\n", dag.RefPath(dag.Heads, branch), d)), nil
}

// CommitsDir lists every commit record by hex digest.
type CommitsDir struct {
	fs.Inode
	repo *dag.Repository
}

var _ = (fs.NodeLookuper)((*CommitsDir)(nil))
var _ = (fs.NodeReaddirer)((*CommitsDir)(nil))
var _ = (fs.NodeGetattrer)((*CommitsDir)(nil))

func (d *CommitsDir) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	return dirAttr(out, "commits")
}

func (d *CommitsDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	digests, err := d.repo.Commits.List()
	if err != nil {
		return nil, toErrno(err)
	}
	entries := make([]fuse.DirEntry, len(digests))
	for i, digest := range digests {
		name := digest.String()
		entries[i] = fuse.DirEntry{
			Name: name,
			Mode: syscall.S_IFDIR,
			Ino:  stableIno("commits/" + name),
		}
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (d *CommitsDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	digest, err := dag.ParseDigest(name)
	if err != nil {
		return nil, syscall.ENOENT
	}
	return newCommitInode(ctx, &d.Inode, d.repo, digest, "commits/"+name)
}
