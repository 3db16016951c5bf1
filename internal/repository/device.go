// Package repository persists carts, orders and session tokens.
package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/spice-storefront/internal/domain/cart"
	"github.com/xenking/spice-storefront/internal/domain/order"
	"github.com/xenking/spice-storefront/internal/storage"
)

// Storage keys. They match the ones used by the web storefront, so a device
// store exported from a browser profile can be read as is.
const (
	CartKey   = "skh_traders_cart"
	OrdersKey = "skh_traders_orders"
	TokenKey  = "skh_traders_csrf"
)

var (
	_ cart.Repository      = (*CartRepository)(nil)
	_ cart.TokenRepository = (*TokenRepository)(nil)
	_ order.Repository     = (*OrderRepository)(nil)
)

// CartRepository keeps the cart as one JSON array in a device store.
type CartRepository struct {
	store storage.Store
}

// NewCartRepository returns a CartRepository over store.
func NewCartRepository(store storage.Store) *CartRepository {
	return &CartRepository{store: store}
}

// Load returns the stored cart, or an empty one when nothing is stored.
func (r *CartRepository) Load(ctx context.Context) ([]cart.Item, error) {
	raw, err := r.store.Get(ctx, CartKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []cart.Item{}, nil
		}
		return nil, errors.Wrap(err, "get cart")
	}
	if raw == "" {
		return []cart.Item{}, nil
	}
	return DecodeItems([]byte(raw))
}

// Save replaces the stored cart with items.
func (r *CartRepository) Save(ctx context.Context, items []cart.Item) error {
	if err := r.store.Set(ctx, CartKey, string(EncodeItems(items))); err != nil {
		return errors.Wrap(err, "set cart")
	}
	return nil
}

// Delete removes the stored cart.
func (r *CartRepository) Delete(ctx context.Context) error {
	if err := r.store.Delete(ctx, CartKey); err != nil {
		return errors.Wrap(err, "delete cart")
	}
	return nil
}

// TokenRepository keeps the anti-forgery token in a session store.
type TokenRepository struct {
	store storage.Store
}

// NewTokenRepository returns a TokenRepository over a session store.
func NewTokenRepository(store storage.Store) *TokenRepository {
	return &TokenRepository{store: store}
}

// Get returns the session token, or "" when the session has none.
func (r *TokenRepository) Get(ctx context.Context) (string, error) {
	tok, err := r.store.Get(ctx, TokenKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", errors.Wrap(err, "get token")
	}
	return tok, nil
}

// Set stores the session token.
func (r *TokenRepository) Set(ctx context.Context, token string) error {
	if err := r.store.Set(ctx, TokenKey, token); err != nil {
		return errors.Wrap(err, "set token")
	}
	return nil
}

// OrderRepository keeps every placed order as one JSON array in a device
// store.
type OrderRepository struct {
	store storage.Store
}

// NewOrderRepository returns an OrderRepository over store.
func NewOrderRepository(store storage.Store) *OrderRepository {
	return &OrderRepository{store: store}
}

// List returns the stored orders in placement order.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	raw, err := r.store.Get(ctx, OrdersKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []order.Order{}, nil
		}
		return nil, errors.Wrap(err, "get orders")
	}
	if raw == "" {
		return []order.Order{}, nil
	}
	return DecodeOrders([]byte(raw))
}

// Append adds o to the end of the stored list. An unreadable list is
// logged and replaced by one holding only o.
func (r *OrderRepository) Append(ctx context.Context, o *order.Order) error {
	orders, err := r.List(ctx)
	if err != nil {
		zctx.From(ctx).Error("Read orders, starting a new list", zap.Error(err))
		orders = []order.Order{}
	}
	orders = append(orders, *o)

	if err := r.store.Set(ctx, OrdersKey, string(EncodeOrders(orders))); err != nil {
		return errors.Wrapf(err, "append order %q", o.ID)
	}
	return nil
}
