// Package redis implements storage.Store on Redis for session-scoped data.
// Every write refreshes the key's TTL, so values vanish once the session
// has been idle for longer than the TTL.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/spice-storefront/internal/storage"
)

const keyNamespace = "storefront:session"

var _ storage.Store = (*Store)(nil)

type cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Options configures the Redis connection.
type Options struct {
	URL          string
	Address      string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Connect opens a client and verifies connectivity.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	ro, err := clientOptions(opts)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(ro)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

func clientOptions(opts Options) (*redis.Options, error) {
	if opts.URL == "" && opts.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var ro *redis.Options
	if opts.URL != "" {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis url")
		}
		ro = parsed
	} else {
		ro = &redis.Options{
			Addr:     opts.Address,
			Password: opts.Password,
			DB:       opts.DB,
		}
	}
	if ro.DialTimeout == 0 {
		ro.DialTimeout = opts.DialTimeout
	}
	if ro.ReadTimeout == 0 {
		ro.ReadTimeout = opts.ReadTimeout
	}
	if ro.WriteTimeout == 0 {
		ro.WriteTimeout = opts.WriteTimeout
	}
	return ro, nil
}

// Store scopes keys to one session id.
type Store struct {
	client  cmdable
	session string
	ttl     time.Duration
}

// NewStore returns a Store whose keys live under the given session id and
// expire after ttl. A zero ttl keeps values until deleted.
func NewStore(client *redis.Client, session string, ttl time.Duration) *Store {
	return &Store{client: client, session: session, ttl: ttl}
}

func (s *Store) key(key string) string {
	return keyNamespace + ":" + s.session + ":" + key
}

// Get returns the value for key in this session.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrNotFound
		}
		return "", errors.Wrapf(err, "get %q", key)
	}
	return v, nil
}

// Set stores value and resets the session TTL on the key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set %q", key)
	}
	return nil
}

// Delete removes key from this session.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return errors.Wrapf(err, "delete %q", key)
	}
	return nil
}
