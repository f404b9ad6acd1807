package dag

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GnosisFoundation/git-ts/internal/tensor"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// ControlDir is the name of the directory holding repository data.
	ControlDir = ".wts"

	// DefaultBranch is the branch HEAD points to after Init.
	DefaultBranch = "main"

	headFile   = "HEAD"
	objectsDir = "objects"
	commitsDir = "commits"
	refsDir    = "refs"

	symrefPrefix = "ref: "
)

// Repository is the top-level facade over the object, commit and ref stores.
type Repository struct {
	root          string
	fs            afero.Fs
	log           *zap.Logger
	defaultBranch string
	now           func() time.Time

	Objects *ObjectStore
	Commits *CommitStore
	Refs    *RefStore
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.log = l
		}
	}
}

// WithDefaultBranch sets the branch Init points HEAD to.
func WithDefaultBranch(name string) Option {
	return func(r *Repository) {
		if name != "" {
			r.defaultBranch = name
		}
	}
}

// WithClock overrides the commit timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

func newRepository(fs afero.Fs, root string, opts []Option) *Repository {
	r := &Repository{
		root:          root,
		fs:            fs,
		log:           zap.NewNop(),
		defaultBranch: DefaultBranch,
		now:           time.Now,
	}
	for _, apply := range opts {
		apply(r)
	}
	return r
}

// Init creates the control directory layout under root and points HEAD at
// the default branch. Existing data, including HEAD, is left untouched.
func Init(fs afero.Fs, root string, opts ...Option) (*Repository, error) {
	r := newRepository(fs, root, opts)
	if err := ValidateRefName(r.defaultBranch); err != nil {
		return nil, newError(KindInvalidReference, r.defaultBranch, err)
	}

	ctl := r.ControlDir()
	for _, dir := range []string{
		ctl,
		filepath.Join(ctl, objectsDir),
		filepath.Join(ctl, commitsDir),
		filepath.Join(ctl, refsDir, string(Heads)),
		filepath.Join(ctl, refsDir, string(Tags)),
	} {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return nil, newError(KindIO, dir, fmt.Errorf("create dir: %w", err))
		}
	}

	headPath := filepath.Join(ctl, headFile)
	exists, err := afero.Exists(fs, headPath)
	if err != nil {
		return nil, newError(KindIO, headPath, err)
	}
	if !exists {
		if err := r.writeHead(r.defaultBranch); err != nil {
			return nil, err
		}
		r.log.Info("initialized repository", zap.String("root", root), zap.String("branch", r.defaultBranch))
	}

	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Open opens the repository rooted at root. It fails with ErrEmptyRepository
// when root has no control directory. Missing objects/, commits/ or refs/
// subdirectories under an existing control directory are recreated empty.
func Open(fs afero.Fs, root string, opts ...Option) (*Repository, error) {
	r := newRepository(fs, root, opts)
	ok, err := afero.DirExists(fs, r.ControlDir())
	if err != nil {
		return nil, newError(KindIO, root, err)
	}
	if !ok {
		return nil, newError(KindEmptyRepository, root, nil)
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Discover opens the nearest repository at start or one of its parents.
func Discover(fs afero.Fs, start string, opts ...Option) (*Repository, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, newError(KindIO, start, err)
	}
	for {
		ok, err := afero.DirExists(fs, filepath.Join(dir, ControlDir))
		if err != nil {
			return nil, newError(KindIO, dir, err)
		}
		if ok {
			return Open(fs, dir, opts...)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, newError(KindEmptyRepository, start, nil)
		}
		dir = parent
	}
}

func (r *Repository) load() error {
	ctl := r.ControlDir()

	objects, err := NewObjectStore(r.fs, filepath.Join(ctl, objectsDir))
	if err != nil {
		return err
	}
	commits, err := NewCommitStore(r.fs, filepath.Join(ctl, commitsDir), r.log)
	if err != nil {
		return err
	}
	refs, err := NewRefStore(r.fs, filepath.Join(ctl, refsDir))
	if err != nil {
		return err
	}

	r.Objects = objects
	r.Commits = commits
	r.Refs = refs
	return nil
}

// Root returns the working directory the repository lives in.
func (r *Repository) Root() string {
	return r.root
}

// ControlDir returns the path to the .wts/ data directory.
func (r *Repository) ControlDir() string {
	return filepath.Join(r.root, ControlDir)
}

// CreateCommit stores c and a commit record for it, returning the content
// digest. parent is recorded as given; it is never inferred from HEAD.
func (r *Repository) CreateCommit(c tensor.Collection, message string, metadata interface{}, parent *Digest) (Digest, error) {
	d, err := HashCollection(c)
	if err != nil {
		return Digest{}, err
	}
	if parent != nil {
		if err := r.checkAncestry(d, *parent); err != nil {
			return Digest{}, err
		}
	}

	if err := r.Objects.Put(d, c); err != nil {
		return Digest{}, err
	}

	commit := &Commit{
		Hash:      d,
		Timestamp: NewTimestamp(r.now()),
		Message:   message,
		Metadata:  metadata,
	}
	if parent != nil {
		p := *parent
		commit.ParentHash = &p
	}
	if err := r.Commits.Put(commit); err != nil {
		return Digest{}, err
	}

	r.log.Debug("created commit",
		zap.String("hash", d.String()),
		zap.Bool("root", parent == nil),
		zap.Int("tensors", len(c)),
	)
	return d, nil
}

// checkAncestry refuses a commit whose digest already occurs in the history
// of parent. Records are keyed by content, so writing it would replace the
// earlier record with one that points back into its own descendants.
func (r *Repository) checkAncestry(d, parent Digest) error {
	if parent == d {
		return newError(KindCyclicHistory, d.String(), fmt.Errorf("commit cannot be its own parent"))
	}
	for commit, err := range r.History(parent).All() {
		if errors.Is(err, ErrObjectNotFound) {
			// dangling parent: nothing further to check
			return nil
		}
		if err != nil {
			return err
		}
		if commit.Hash == d {
			return newError(KindCyclicHistory, d.String(), fmt.Errorf("tensors match ancestor of %s", parent.Short()))
		}
	}
	return nil
}

// CreateBranch points refs/heads/name at d.
func (r *Repository) CreateBranch(name string, d Digest) error {
	return r.setRef(Heads, name, d)
}

// CreateTag points refs/tags/name at d.
func (r *Repository) CreateTag(name string, d Digest) error {
	return r.setRef(Tags, name, d)
}

func (r *Repository) setRef(ns Namespace, name string, d Digest) error {
	if err := r.Refs.Set(ns, name, d); err != nil {
		return err
	}
	r.log.Debug("updated reference", zap.String("ref", RefPath(ns, name)), zap.String("hash", d.String()))
	return nil
}

// DeleteBranch removes refs/heads/name. The branch HEAD points to cannot be deleted.
func (r *Repository) DeleteBranch(name string) error {
	if current, err := r.Head(); err == nil && current == name {
		return newError(KindInvalidReference, RefPath(Heads, name), fmt.Errorf("cannot delete the current branch"))
	}
	return r.Refs.Delete(Heads, name)
}

// DeleteTag removes refs/tags/name.
func (r *Repository) DeleteTag(name string) error {
	return r.Refs.Delete(Tags, name)
}

// Branches lists branch names.
func (r *Repository) Branches() ([]string, error) {
	return r.Refs.List(Heads)
}

// Tags lists tag names.
func (r *Repository) Tags() ([]string, error) {
	return r.Refs.List(Tags)
}

// GetCommit reads the commit record for d.
func (r *Repository) GetCommit(d Digest) (*Commit, error) {
	return r.Commits.Get(d)
}

// GetObject reads the tensor collection for d.
func (r *Repository) GetObject(d Digest) (tensor.Collection, error) {
	return r.Objects.Get(d)
}

// ResolveReference resolves a path such as "refs/heads/main" or "HEAD".
func (r *Repository) ResolveReference(path string) (Digest, error) {
	if path == headFile {
		return r.ResolveHead()
	}
	ns, name, err := ParseRefPath(path)
	if err != nil {
		return Digest{}, err
	}
	return r.Refs.Get(ns, name)
}

// Head returns the name of the branch HEAD points to.
func (r *Repository) Head() (string, error) {
	data, err := afero.ReadFile(r.fs, filepath.Join(r.ControlDir(), headFile))
	if err != nil {
		return "", newError(KindInvalidReference, headFile, err)
	}
	target, ok := strings.CutPrefix(strings.TrimSpace(string(data)), symrefPrefix)
	if !ok {
		return "", newError(KindInvalidReference, headFile, fmt.Errorf("expected %q prefix", symrefPrefix))
	}
	ns, name, err := ParseRefPath(strings.TrimSpace(target))
	if err != nil {
		return "", newError(KindInvalidReference, headFile, err)
	}
	if ns != Heads {
		return "", newError(KindInvalidReference, headFile, fmt.Errorf("HEAD must point to a branch, not %s", target))
	}
	return name, nil
}

// SetHead points HEAD at a branch. The branch does not need to exist yet.
func (r *Repository) SetHead(branch string) error {
	if err := ValidateRefName(branch); err != nil {
		return newError(KindInvalidReference, branch, err)
	}
	return r.writeHead(branch)
}

func (r *Repository) writeHead(branch string) error {
	path := filepath.Join(r.ControlDir(), headFile)
	if err := SafeWrite(r.fs, path, []byte(symrefPrefix+RefPath(Heads, branch)), 0644); err != nil {
		return newError(KindIO, headFile, err)
	}
	return nil
}

// ResolveHead returns the commit the current branch points to.
func (r *Repository) ResolveHead() (Digest, error) {
	branch, err := r.Head()
	if err != nil {
		return Digest{}, err
	}
	return r.Refs.Get(Heads, branch)
}

// Resolve accepts, in this order: "HEAD", a refs/ path, a full hex digest,
// a branch name or a tag name.
func (r *Repository) Resolve(rev string) (Digest, error) {
	switch {
	case rev == headFile:
		return r.ResolveHead()
	case strings.HasPrefix(rev, refsPrefix), strings.HasPrefix(rev, legacyRefsPrefix):
		return r.ResolveReference(rev)
	}
	if d, err := ParseDigest(rev); err == nil {
		return d, nil
	}
	for _, ns := range []Namespace{Heads, Tags} {
		if r.Refs.Has(ns, rev) {
			return r.Refs.Get(ns, rev)
		}
	}
	return Digest{}, newError(KindInvalidReference, rev, os.ErrNotExist)
}

// History iterates commits from start following parent links.
func (r *Repository) History(start Digest) *History {
	return NewHistory(r.Commits, start)
}
