package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/spice-storefront/internal/storage"
)

const (
	getValueSQL = `SELECT value FROM device_storage WHERE profile = $1 AND key = $2`

	setValueSQL = `INSERT INTO device_storage (profile, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	deleteValueSQL = `DELETE FROM device_storage WHERE profile = $1 AND key = $2`
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store on the device_storage table. The profile
// plays the role of a browser profile: stores with different profiles never
// see each other's keys.
type Store struct {
	pool    *pgxpool.Pool
	profile string
}

// NewStore returns a Store bound to profile.
func NewStore(pool *pgxpool.Pool, profile string) *Store {
	return &Store{pool: pool, profile: profile}
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, getValueSQL, s.profile, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", errors.Wrapf(err, "get %q", key)
	}
	return value, nil
}

// Set upserts the value stored under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if _, err := s.pool.Exec(ctx, setValueSQL, s.profile, key, value); err != nil {
		return errors.Wrapf(err, "set %q", key)
	}
	return nil
}

// Delete removes key from the profile.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, deleteValueSQL, s.profile, key); err != nil {
		return errors.Wrapf(err, "delete %q", key)
	}
	return nil
}
