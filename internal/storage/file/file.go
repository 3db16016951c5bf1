// Package file implements storage.Store as one file per key inside a
// directory on the local device.
package file

import (
	"context"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/spice-storefront/internal/storage"
)

const valueExt = ".value"

var _ storage.Store = (*Store)(nil)

// Options configures a file Store.
type Options struct {
	// MaxBytes caps the summed size of all values in the directory. Zero
	// means unlimited.
	MaxBytes int64
}

// Store persists each key in its own file. Writes go through a temporary
// file and a rename, so a failed write never truncates the previous value.
type Store struct {
	dir      string
	maxBytes int64
}

// New creates dir if needed and returns a Store rooted there.
func New(dir string, opts Options) (*Store, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create storage dir %s", dir)
	}
	return &Store{dir: dir, maxBytes: opts.MaxBytes}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+valueExt)
}

// Get reads the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", storage.ErrNotFound
		}
		return "", errors.Wrapf(err, "read %q", key)
	}
	return string(data), nil
}

// Set atomically replaces the value stored under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.maxBytes > 0 {
		used, err := s.usage(key)
		if err != nil {
			return err
		}
		if used+int64(len(value)) > s.maxBytes {
			return errors.Wrapf(storage.ErrQuotaExceeded, "set %q", key)
		}
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "create temp file for %q", key)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "write %q", key)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "sync %q", key)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %q", key)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return errors.Wrapf(err, "replace %q", key)
	}
	return nil
}

// Delete removes the file for key. A missing file is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "delete %q", key)
	}
	return nil
}

// usage sums the sizes of all stored values except the one for key.
func (s *Store) usage(key string) (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, errors.Wrap(err, "read storage dir")
	}
	skip := filepath.Base(s.path(key))

	var total int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == skip || !strings.HasSuffix(name, valueExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return 0, errors.Wrapf(err, "stat %s", name)
		}
		total += info.Size()
	}
	return total, nil
}
