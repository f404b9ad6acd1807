package fuse

import (
	"context"
	"sort"
	"strings"
	"syscall"

	"github.com/GnosisFoundation/git-ts/internal/dag"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// RefsDir lists the references of one namespace. Each reference is a commit
// directory; nested names like "feature/x" become subdirectories.
type RefsDir struct {
	fs.Inode
	repo   *dag.Repository
	ns     dag.Namespace
	prefix string // "" or "<dir>/"
}

var _ = (fs.NodeLookuper)((*RefsDir)(nil))
var _ = (fs.NodeReaddirer)((*RefsDir)(nil))
var _ = (fs.NodeGetattrer)((*RefsDir)(nil))

func (d *RefsDir) path(name string) string {
	return string(d.ns) + "/" + d.prefix + name
}

func (d *RefsDir) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	return dirAttr(out, strings.TrimSuffix(d.path(""), "/"))
}

func (d *RefsDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := d.repo.Refs.List(d.ns)
	if err != nil {
		return nil, toErrno(err)
	}
	children := refChildren(names, d.prefix)
	entries := make([]fuse.DirEntry, len(children))
	for i, name := range children {
		entries[i] = fuse.DirEntry{
			Name: name,
			Mode: syscall.S_IFDIR,
			Ino:  stableIno(d.path(name)),
		}
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (d *RefsDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	full := d.prefix + name
	if d.repo.Refs.Has(d.ns, full) {
		digest, err := d.repo.Refs.Get(d.ns, full)
		if err != nil {
			return nil, toErrno(err)
		}
		return newCommitInode(ctx, &d.Inode, d.repo, digest, d.path(name))
	}

	names, err := d.repo.Refs.List(d.ns)
	if err != nil {
		return nil, toErrno(err)
	}
	for _, child := range refChildren(names, d.prefix) {
		if child == name {
			sub := &RefsDir{repo: d.repo, ns: d.ns, prefix: full + "/"}
			return d.NewInode(ctx, sub, fs.StableAttr{
				Mode: syscall.S_IFDIR,
				Ino:  stableIno(d.path(name)),
			}), fs.OK
		}
	}
	return nil, syscall.ENOENT
}

// refChildren returns the distinct first path components of the names under
// prefix, sorted.
func refChildren(names []string, prefix string) []string {
	seen := make(map[string]struct{})
	for _, name := range names {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok || rest == "" {
			continue
		}
		first, _, _ := strings.Cut(rest, "/")
		seen[first] = struct{}{}
	}
	children := make([]string, 0, len(seen))
	for name := range seen {
		children = append(children, name)
	}
	sort.Strings(children)
	return children
}
