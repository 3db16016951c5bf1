// Package memory implements storage.Store in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/spice-storefront/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Options configures a memory Store.
type Options struct {
	// MaxBytes caps the summed size of keys and values. Zero means unlimited.
	MaxBytes int
}

// Store keeps values in a map guarded by a mutex.
type Store struct {
	mu       sync.Mutex
	values   map[string]string
	size     int
	maxBytes int
}

// New returns an empty Store.
func New(opts Options) *Store {
	return &Store{
		values:   make(map[string]string),
		maxBytes: opts.MaxBytes,
	}
}

// Get returns the value stored under key.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

// Set stores value under key, failing with storage.ErrQuotaExceeded when the
// new total would exceed MaxBytes.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.size
	if old, ok := s.values[key]; ok {
		size -= len(key) + len(old)
	}
	size += len(key) + len(value)
	if s.maxBytes > 0 && size > s.maxBytes {
		return errors.Wrapf(storage.ErrQuotaExceeded, "set %q", key)
	}

	s.values[key] = value
	s.size = size
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.values[key]; ok {
		s.size -= len(key) + len(old)
		delete(s.values, key)
	}
	return nil
}
