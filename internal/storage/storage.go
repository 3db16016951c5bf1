// Package storage defines the key-value contract behind the device and
// session stores. Values are opaque strings; callers own the encoding.
package storage

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned by Set when the write would exceed the
	// byte budget of the backend. The previous value is left untouched.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Store is a string key-value store. Every Set replaces the whole value.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
