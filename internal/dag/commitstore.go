package dag

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const commitExt = ".json"

// CommitStore persists commit records as commits/<hex>.json.
type CommitStore struct {
	fs  afero.Fs
	dir string
	log *zap.Logger
}

// NewCommitStore creates a CommitStore at the given directory.
func NewCommitStore(fs afero.Fs, dir string, logger *zap.Logger) (*CommitStore, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, newError(KindIO, dir, fmt.Errorf("create commits dir: %w", err))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommitStore{fs: fs, dir: dir, log: logger}, nil
}

func (s *CommitStore) path(d Digest) string {
	return filepath.Join(s.dir, d.String()+commitExt)
}

// Put writes the record keyed by c.Hash, replacing any record already
// stored for the same tensor content.
func (s *CommitStore) Put(c *Commit) error {
	key := c.Hash.String()
	data, err := CanonicalJSON(c)
	if err != nil {
		return newError(KindCodec, key, fmt.Errorf("serialize commit: %w", err))
	}

	path := s.path(c.Hash)
	if exists, _ := afero.Exists(s.fs, path); exists {
		s.log.Warn("replacing commit record with identical tensor content",
			zap.String("hash", key),
			zap.String("message", c.Message),
		)
	}
	if err := SafeWrite(s.fs, path, data, 0644); err != nil {
		return newError(KindIO, key, err)
	}
	return nil
}

// Get reads and decodes the record for d.
func (s *CommitStore) Get(d Digest) (*Commit, error) {
	key := d.String()
	data, err := afero.ReadFile(s.fs, s.path(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newError(KindObjectNotFound, key, nil)
		}
		return nil, newError(KindIO, key, fmt.Errorf("read commit: %w", err))
	}

	var commit Commit
	if err := records.Unmarshal(data, &commit); err != nil {
		return nil, newError(KindCodec, key, fmt.Errorf("unmarshal commit: %w", err))
	}
	if commit.Hash != d {
		return nil, newError(KindCodec, key, fmt.Errorf("record hash %s does not match its key", commit.Hash.Short()))
	}
	return &commit, nil
}

// Has checks if a commit record exists for d.
func (s *CommitStore) Has(d Digest) bool {
	exists, err := afero.Exists(s.fs, s.path(d))
	return err == nil && exists
}

// List returns the digests of all commit records, sorted.
func (s *CommitStore) List() ([]Digest, error) {
	return listDigests(s.fs, s.dir, commitExt)
}
