package dag

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/GnosisFoundation/git-ts/internal/tensor"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// ObjectStore manages digest-addressed tensor collections on disk.
// Each object is a safetensors container named by its hex digest.
type ObjectStore struct {
	fs  afero.Fs
	dir string // path to objects/ directory
}

// NewObjectStore creates an ObjectStore at the given directory.
func NewObjectStore(fs afero.Fs, dir string) (*ObjectStore, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, newError(KindIO, dir, fmt.Errorf("create objects dir: %w", err))
	}
	return &ObjectStore{fs: fs, dir: dir}, nil
}

func (s *ObjectStore) path(d Digest) string {
	return filepath.Join(s.dir, d.String())
}

// Put writes c under d. If the object already exists, this is a no-op.
func (s *ObjectStore) Put(d Digest, c tensor.Collection) error {
	path := s.path(d)
	if s.Has(d) {
		return nil // already exists
	}
	err := SafeWriteFunc(s.fs, path, 0644, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		if err := tensor.Encode(bw, c); err != nil {
			return err
		}
		return bw.Flush()
	})
	if err != nil {
		if errors.Is(err, tensor.ErrInvalidTensor) {
			return newError(KindCodec, d.String(), err)
		}
		return newError(KindIO, d.String(), fmt.Errorf("write object: %w", err))
	}
	return nil
}

// Get reads the collection stored under d.
func (s *ObjectStore) Get(d Digest) (c tensor.Collection, err error) {
	f, err := s.fs.Open(s.path(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newError(KindObjectNotFound, d.String(), nil)
		}
		return nil, newError(KindIO, d.String(), fmt.Errorf("read object: %w", err))
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	c, err = tensor.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, newError(KindCodec, d.String(), err)
	}
	return c, nil
}

// Has checks if an object exists.
func (s *ObjectStore) Has(d Digest) bool {
	fi, err := s.fs.Stat(s.path(d))
	return err == nil && !fi.IsDir()
}

// Size returns the size in bytes of the stored container.
func (s *ObjectStore) Size(d Digest) (int64, error) {
	fi, err := s.fs.Stat(s.path(d))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, newError(KindObjectNotFound, d.String(), nil)
		}
		return 0, newError(KindIO, d.String(), err)
	}
	return fi.Size(), nil
}

// List returns the digests of all stored objects, sorted.
func (s *ObjectStore) List() ([]Digest, error) {
	return listDigests(s.fs, s.dir, "")
}

// listDigests reads dir for files named "<hex><ext>", skipping temp files
// and anything that does not parse as a digest.
func listDigests(fs afero.Fs, dir, ext string) ([]Digest, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, newError(KindIO, dir, err)
	}
	digests := make([]Digest, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || isTempFile(name) || filepath.Ext(name) != ext {
			continue
		}
		d, err := ParseDigest(name[:len(name)-len(ext)])
		if err != nil {
			continue
		}
		digests = append(digests, d)
	}
	sort.Slice(digests, func(i, j int) bool {
		return digests[i].String() < digests[j].String()
	})
	return digests, nil
}
