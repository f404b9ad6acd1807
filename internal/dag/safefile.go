package dag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

const tempPrefix = ".tmp-"

// SafeWrite writes data to path atomically: tempfile -> fsync -> rename.
// The tempfile is created in the same directory as path to ensure the rename
// is atomic (same filesystem).
func SafeWrite(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	return SafeWriteFunc(fs, path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// SafeWriteFunc is SafeWrite for content produced by a writer callback.
func SafeWriteFunc(fs afero.Fs, path string, perm os.FileMode, write func(io.Writer) error) (err error) {
	f, err := afero.TempFile(fs, filepath.Dir(path), tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()

	// Clean up on any error
	defer func() {
		if err != nil {
			_ = fs.Remove(tmp)
		}
	}()

	if err = write(f); err != nil {
		return multierr.Append(fmt.Errorf("write temp file: %w", err), f.Close())
	}
	if err = f.Sync(); err != nil {
		return multierr.Append(fmt.Errorf("fsync temp file: %w", err), f.Close())
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = fs.Chmod(tmp, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp to target: %w", err)
	}
	return nil
}

func isTempFile(name string) bool {
	return strings.HasPrefix(filepath.Base(name), tempPrefix)
}
