package repository

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/spice-storefront/internal/domain/cart"
	"github.com/xenking/spice-storefront/internal/domain/order"
	"github.com/xenking/spice-storefront/internal/storage"
	"github.com/xenking/spice-storefront/internal/storage/memory"
)

type failingStore struct {
	storage.Store
	getErr error
	setErr error
}

func (f *failingStore) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f *failingStore) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, key, value)
}

func TestCartRepository(t *testing.T) {
	ctx := context.Background()
	store := memory.New(memory.Options{})
	repo := NewCartRepository(store)

	items, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []cart.Item{}, items)

	require.NoError(t, repo.Save(ctx, testItems()))
	items, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, testItems(), items)

	raw, err := store.Get(ctx, CartKey)
	require.NoError(t, err)
	assert.Contains(t, raw, `"id":"coriander-seeds"`)

	require.NoError(t, repo.Save(ctx, []cart.Item{}))
	items, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, repo.Delete(ctx))
	_, err = store.Get(ctx, CartKey)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCartRepository_Malformed(t *testing.T) {
	ctx := context.Background()
	for _, raw := range []string{"{broken", `[{"id":"a","quantity":1}]]`, "[]{"} {
		store := memory.New(memory.Options{})
		require.NoError(t, store.Set(ctx, CartKey, raw))

		_, err := NewCartRepository(store).Load(ctx)
		require.Error(t, err, "record %q", raw)
	}
}

func TestCartRepository_Quota(t *testing.T) {
	ctx := context.Background()
	store := memory.New(memory.Options{MaxBytes: 64})
	repo := NewCartRepository(store)

	require.NoError(t, repo.Save(ctx, []cart.Item{}))
	err := repo.Save(ctx, testItems())
	require.ErrorIs(t, err, storage.ErrQuotaExceeded)

	items, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestTokenRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTokenRepository(memory.New(memory.Options{}))

	tok, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, repo.Set(ctx, "abc123"))
	tok, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok)

	broken := NewTokenRepository(&failingStore{Store: memory.New(memory.Options{}), getErr: errors.New("io")})
	_, err = broken.Get(ctx)
	require.Error(t, err)
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(memory.New(memory.Options{}))

	orders, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []order.Order{}, orders)

	first, second := testOrder("ORD-1"), testOrder("ORD-2")
	require.NoError(t, repo.Append(ctx, &first))
	require.NoError(t, repo.Append(ctx, &second))

	orders, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []order.Order{first, second}, orders)
}

func TestOrderRepository_MalformedList(t *testing.T) {
	ctx := context.Background()
	store := memory.New(memory.Options{})
	require.NoError(t, store.Set(ctx, OrdersKey, "garbage"))
	repo := NewOrderRepository(store)

	_, err := repo.List(ctx)
	require.Error(t, err)

	o := testOrder("ORD-1")
	require.NoError(t, repo.Append(ctx, &o))

	orders, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []order.Order{o}, orders)
}

func TestOrderRepository_WriteFailure(t *testing.T) {
	ctx := context.Background()
	full := errors.New("disk full")
	repo := NewOrderRepository(&failingStore{Store: memory.New(memory.Options{}), setErr: full})

	o := testOrder("ORD-1")
	require.ErrorIs(t, repo.Append(ctx, &o), full)
}

func TestRepositories_ShareStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New(memory.Options{})
	carts := NewCartRepository(store)
	orders := NewOrderRepository(store)

	require.NoError(t, carts.Save(ctx, testItems()))
	o := testOrder("ORD-1")
	require.NoError(t, orders.Append(ctx, &o))
	require.NoError(t, carts.Delete(ctx))

	list, err := orders.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
