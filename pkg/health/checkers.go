package health

import (
	"context"
	"os"

	"github.com/go-faster/errors"
)

// Pinger is implemented by connection pools such as pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck returns a CheckFunc that pings p.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// KeyValue is the subset of a key-value store exercised by RoundTripCheck.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// RoundTripCheck returns a CheckFunc that writes, reads back and deletes
// key in kv.
func RoundTripCheck(kv KeyValue, key string) CheckFunc {
	return func(ctx context.Context) error {
		const probe = "ok"
		if err := kv.Set(ctx, key, probe); err != nil {
			return errors.Wrap(err, "write probe")
		}
		got, err := kv.Get(ctx, key)
		if err != nil {
			return errors.Wrap(err, "read probe")
		}
		if got != probe {
			return errors.Errorf("read back %q, want %q", got, probe)
		}
		if err := kv.Delete(ctx, key); err != nil {
			return errors.Wrap(err, "delete probe")
		}
		return nil
	}
}

// DirWritableCheck returns a CheckFunc that reports unhealthy when dir is
// missing or a file cannot be created in it.
func DirWritableCheck(dir string) CheckFunc {
	return func(_ context.Context) error {
		info, err := os.Stat(dir)
		if err != nil {
			return errors.Wrap(err, "stat")
		}
		if !info.IsDir() {
			return errors.Errorf("%s is not a directory", dir)
		}
		f, err := os.CreateTemp(dir, ".health-*")
		if err != nil {
			return errors.Wrap(err, "create probe file")
		}
		name := f.Name()
		_ = f.Close()
		if err := os.Remove(name); err != nil {
			return errors.Wrap(err, "remove probe file")
		}
		return nil
	}
}

