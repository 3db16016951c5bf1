package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/spice-storefront/internal/storage"
)

type mockCmdable struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	if m.getErr != nil {
		cmd.SetErr(m.getErr)
		return cmd
	}
	v, ok := m.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = value.(string)
	m.ttls[key] = expiration
	cmd := redis.NewStatusCmd(ctx, "set", key, value)
	cmd.SetVal("OK")
	return cmd
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	cmd := redis.NewIntCmd(ctx, "del")
	cmd.SetVal(n)
	return cmd
}

func TestStore_SessionScopedKeys(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	s := &Store{client: mock, session: "tab-1", ttl: 30 * time.Minute}

	_, err := s.Get(ctx, "skh_traders_csrf")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "skh_traders_csrf", "abc"))
	assert.Equal(t, "abc", mock.data["storefront:session:tab-1:skh_traders_csrf"])
	assert.Equal(t, 30*time.Minute, mock.ttls["storefront:session:tab-1:skh_traders_csrf"])

	v, err := s.Get(ctx, "skh_traders_csrf")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	other := &Store{client: mock, session: "tab-2"}
	_, err = other.Get(ctx, "skh_traders_csrf")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "skh_traders_csrf"))
	_, err = s.Get(ctx, "skh_traders_csrf")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_GetError(t *testing.T) {
	mock := newMockCmdable()
	mock.getErr = errors.New("connection reset")
	s := &Store{client: mock, session: "tab-1"}

	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestClientOptions(t *testing.T) {
	_, err := clientOptions(Options{})
	require.Error(t, err)

	ro, err := clientOptions(Options{Address: "localhost:6379", DB: 2, ReadTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", ro.Addr)
	assert.Equal(t, 2, ro.DB)
	assert.Equal(t, time.Second, ro.ReadTimeout)

	ro, err = clientOptions(Options{URL: "redis://:secret@cache:6380/3"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", ro.Addr)
	assert.Equal(t, "secret", ro.Password)
	assert.Equal(t, 3, ro.DB)
}
