package dag

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Namespace partitions references.
type Namespace string

const (
	Heads Namespace = "heads"
	Tags  Namespace = "tags"
)

const (
	refsPrefix       = "refs/"
	legacyRefsPrefix = "ref/"
)

// RefStore manages name -> digest pointers as files.
// Each ref is a file at refs/<namespace>/<name> whose content is the hex digest.
type RefStore struct {
	fs  afero.Fs
	dir string
}

// NewRefStore creates a RefStore at the given refs/ directory.
func NewRefStore(fs afero.Fs, dir string) (*RefStore, error) {
	for _, ns := range []Namespace{Heads, Tags} {
		if err := fs.MkdirAll(filepath.Join(dir, string(ns)), 0755); err != nil {
			return nil, newError(KindIO, dir, fmt.Errorf("create refs dir: %w", err))
		}
	}
	return &RefStore{fs: fs, dir: dir}, nil
}

// RefPath returns the repository-relative path of a reference, e.g. "refs/heads/main".
func RefPath(ns Namespace, name string) string {
	return refsPrefix + string(ns) + "/" + name
}

// ParseRefPath splits "refs/<namespace>/<name>". The "ref/" prefix written
// by early versions of the tool is accepted as well.
func ParseRefPath(p string) (Namespace, string, error) {
	rest, ok := strings.CutPrefix(p, refsPrefix)
	if !ok {
		rest, ok = strings.CutPrefix(p, legacyRefsPrefix)
	}
	if !ok {
		return "", "", newError(KindInvalidReference, p, fmt.Errorf("expected %s<namespace>/<name>", refsPrefix))
	}
	ns, name, _ := strings.Cut(rest, "/")
	switch Namespace(ns) {
	case Heads, Tags:
	default:
		return "", "", newError(KindInvalidReference, p, fmt.Errorf("unknown namespace %q", ns))
	}
	if err := ValidateRefName(name); err != nil {
		return "", "", newError(KindInvalidReference, p, err)
	}
	return Namespace(ns), name, nil
}

// ValidateRefName rejects names that would escape the namespace directory
// or collide with temp files.
func ValidateRefName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("reference name is empty")
	case strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/"):
		return fmt.Errorf("reference name %q cannot start or end with /", name)
	case strings.ContainsRune(name, 0) || strings.Contains(name, "\\"):
		return fmt.Errorf("reference name %q contains a forbidden character", name)
	case strings.HasSuffix(name, ".lock"):
		return fmt.Errorf("reference name %q cannot end with .lock", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." || strings.HasPrefix(part, tempPrefix) {
			return fmt.Errorf("reference name %q has an invalid component %q", name, part)
		}
	}
	return nil
}

func (r *RefStore) path(ns Namespace, name string) (string, error) {
	if ns != Heads && ns != Tags {
		return "", newError(KindInvalidReference, RefPath(ns, name), fmt.Errorf("unknown namespace %q", ns))
	}
	if err := ValidateRefName(name); err != nil {
		return "", newError(KindInvalidReference, RefPath(ns, name), err)
	}
	return filepath.Join(r.dir, string(ns), filepath.FromSlash(name)), nil
}

// Set points ns/name at d, creating or overwriting the ref. The commit is
// not required to exist.
func (r *RefStore) Set(ns Namespace, name string, d Digest) error {
	path, err := r.path(ns, name)
	if err != nil {
		return err
	}
	if err := r.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return newError(KindIO, RefPath(ns, name), err)
	}
	if err := SafeWrite(r.fs, path, []byte(d.String()), 0644); err != nil {
		return newError(KindIO, RefPath(ns, name), err)
	}
	return nil
}

// Get resolves ns/name to a digest.
func (r *RefStore) Get(ns Namespace, name string) (Digest, error) {
	path, err := r.path(ns, name)
	if err != nil {
		return Digest{}, err
	}
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return Digest{}, newError(KindInvalidReference, RefPath(ns, name), err)
	}
	d, err := ParseDigest(strings.TrimSpace(string(data)))
	if err != nil {
		return Digest{}, newError(KindInvalidReference, RefPath(ns, name), err)
	}
	return d, nil
}

// Has checks if a ref exists.
func (r *RefStore) Has(ns Namespace, name string) bool {
	path, err := r.path(ns, name)
	if err != nil {
		return false
	}
	fi, err := r.fs.Stat(path)
	return err == nil && !fi.IsDir()
}

// Delete removes a ref.
func (r *RefStore) Delete(ns Namespace, name string) error {
	path, err := r.path(ns, name)
	if err != nil {
		return err
	}
	if err := r.fs.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return newError(KindInvalidReference, RefPath(ns, name), err)
		}
		return newError(KindIO, RefPath(ns, name), err)
	}
	return nil
}

// List returns all ref names in ns, sorted. Nested names use "/".
func (r *RefStore) List(ns Namespace) ([]string, error) {
	root := filepath.Join(r.dir, string(ns))
	var names []string
	err := afero.Walk(r.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || isTempFile(path) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, newError(KindIO, refsPrefix+string(ns), fmt.Errorf("list refs: %w", err))
	}
	sort.Strings(names)
	return names, nil
}
