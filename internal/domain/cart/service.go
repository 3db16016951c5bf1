package cart

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const tokenBytes = 32

// Option configures a Service.
type Option func(*Service)

// WithMeterProvider sets the provider for cart metrics. The global provider
// is used by default.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithRandom replaces crypto/rand as the token entropy source.
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.random = r }
}

// Service is the cart of one device and the anti-forgery token of one
// session. All state lives in the repositories: every call re-reads it.
type Service struct {
	items  Repository
	tokens TokenRepository
	events Publisher

	meterProvider metric.MeterProvider
	random        io.Reader
	mutations     metric.Int64Counter
}

// NewService creates a cart Service over the given repositories. Successful
// mutations are announced on events as EventUpdated.
func NewService(items Repository, tokens TokenRepository, events Publisher, opts ...Option) (*Service, error) {
	s := &Service{
		items:         items,
		tokens:        tokens,
		events:        events,
		meterProvider: otel.GetMeterProvider(),
		random:        rand.Reader,
	}
	for _, o := range opts {
		o(s)
	}

	var err error
	meter := s.meterProvider.Meter("github.com/xenking/spice-storefront/internal/domain/cart")
	s.mutations, err = meter.Int64Counter("storefront.cart.mutations",
		metric.WithDescription("Successful cart mutations"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create mutations counter")
	}
	return s, nil
}

// Items returns the current cart. Unreadable or malformed records are logged
// and reported as an empty cart.
func (s *Service) Items(ctx context.Context) []Item {
	items, err := s.items.Load(ctx)
	if err != nil {
		zctx.From(ctx).Error("Read cart", zap.Error(err))
		return []Item{}
	}
	if items == nil {
		return []Item{}
	}
	return items
}

// Add puts quantity units of p into the cart, merging with an existing line
// for the same product. Only the incoming quantity is bounds-checked: the
// merged quantity may exceed MaxQuantity.
func (s *Service) Add(ctx context.Context, p Product, quantity int) error {
	switch {
	case quantity < MinQuantity:
		return ErrQuantityTooLow
	case quantity > MaxQuantity:
		return ErrQuantityTooHigh
	}

	items := s.Items(ctx)
	merged := false
	for i := range items {
		if items[i].ID == p.ProductID() {
			items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, Item{
			ID:       p.ProductID(),
			Name:     p.ProductName(),
			Price:    p.UnitPrice(),
			Quantity: quantity,
			Image:    p.ImageRef(),
		})
	}

	return s.save(ctx, "add", items)
}

// Remove drops the line for id. A missing id still rewrites the cart and
// publishes EventUpdated.
func (s *Service) Remove(ctx context.Context, id string) error {
	items := s.Items(ctx)
	kept := make([]Item, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	return s.save(ctx, "remove", kept)
}

// SetQuantity assigns quantity to the line for id. Negative quantities
// remove the line unconditionally, zero removes it when present, and
// anything above MaxQuantity is rejected with the cart untouched. Unknown
// ids are ignored.
func (s *Service) SetQuantity(ctx context.Context, id string, quantity int) error {
	if quantity < 0 {
		return s.Remove(ctx, id)
	}
	if quantity > MaxQuantity {
		return ErrQuantityTooHigh
	}

	items := s.Items(ctx)
	for i := range items {
		if items[i].ID != id {
			continue
		}
		if quantity == 0 {
			return s.Remove(ctx, id)
		}
		items[i].Quantity = quantity
		return s.save(ctx, "set_quantity", items)
	}
	return nil
}

// Total returns the sum of price times quantity over the cart.
func (s *Service) Total(ctx context.Context) decimal.Decimal {
	return Total(s.Items(ctx))
}

// Count returns the number of units in the cart.
func (s *Service) Count(ctx context.Context) int {
	var n int
	for _, it := range s.Items(ctx) {
		n += it.Quantity
	}
	return n
}

// Clear deletes the stored cart.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.items.Delete(ctx); err != nil {
		zctx.From(ctx).Error("Clear cart", zap.Error(err))
		return &StorageError{Op: "clear", Err: err}
	}
	s.updated(ctx, "clear")
	return nil
}

// CurrentToken returns the session token, or "" when none exists yet.
func (s *Service) CurrentToken(ctx context.Context) (string, error) {
	tok, err := s.tokens.Get(ctx)
	if err != nil {
		return "", errors.Wrap(err, "get token")
	}
	return tok, nil
}

// EnsureToken returns the session token, generating and storing a new one
// when the session has none.
func (s *Service) EnsureToken(ctx context.Context) (string, error) {
	tok, err := s.CurrentToken(ctx)
	if err != nil {
		return "", err
	}
	if tok != "" {
		return tok, nil
	}

	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", errors.Wrap(err, "generate token")
	}
	tok = hex.EncodeToString(buf)
	if err := s.tokens.Set(ctx, tok); err != nil {
		return "", errors.Wrap(err, "store token")
	}
	return tok, nil
}

// Total sums price times quantity over items.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (s *Service) save(ctx context.Context, op string, items []Item) error {
	if err := s.items.Save(ctx, items); err != nil {
		zctx.From(ctx).Error("Save cart", zap.String("op", op), zap.Error(err))
		return &StorageError{Op: op, Err: err}
	}
	s.updated(ctx, op)
	return nil
}

func (s *Service) updated(ctx context.Context, op string) {
	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	s.events.Publish(ctx, EventUpdated)
}
