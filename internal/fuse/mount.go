package fuse

import (
	"github.com/GnosisFoundation/git-ts/internal/dag"
	"github.com/hanwen/go-fuse/v2/fs"
	gofuse "github.com/hanwen/go-fuse/v2/fuse"
)

// MountFS mounts a read-only view of repo at mountpoint.
// Returns the server (call server.Wait() to block, server.Unmount() to stop).
func MountFS(mountpoint string, repo *dag.Repository, debug bool) (*gofuse.Server, error) {
	root := &RootNode{repo: repo}

	opts := &fs.Options{
		MountOptions: gofuse.MountOptions{
			FsName:        "wts",
			Name:          "wts",
			DisableXAttrs: true,
			Debug:         debug,
			Options:       []string{"ro"},
		},
	}

	server, err := fs.Mount(mountpoint, root, opts)
	if err != nil {
		return nil, err
	}
	return server, nil
}
