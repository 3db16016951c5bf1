package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Notifier delivers a confirmation for a placed order.
type Notifier interface {
	SendConfirmation(ctx context.Context, o *Order) error
}

// CartClearer empties the shopper's cart.
type CartClearer interface {
	Clear(ctx context.Context) error
}

// Receipt is the outcome of a successful checkout.
type Receipt struct {
	Order        *Order
	WhatsAppLink string
	EmailLink    string
}

// Checkout places orders: it builds, stores, confirms and then empties the
// cart.
type Checkout struct {
	builder  *Builder
	orders   Repository
	cart     CartClearer
	renderer *Renderer
	notifier Notifier
}

// NewCheckout creates a Checkout. notifier may be nil.
func NewCheckout(
	builder *Builder,
	orders Repository,
	cart CartClearer,
	renderer *Renderer,
	notifier Notifier,
) *Checkout {
	return &Checkout{
		builder:  builder,
		orders:   orders,
		cart:     cart,
		renderer: renderer,
		notifier: notifier,
	}
}

// Place validates f, stores the order and clears the cart. Validation
// failures are returned as *ValidationError. A failed confirmation mail or
// cart clear is logged and does not fail the checkout.
func (c *Checkout) Place(ctx context.Context, f Form) (*Receipt, error) {
	o, err := c.builder.Build(ctx, f)
	if err != nil {
		return nil, err
	}

	lg := zctx.From(ctx).With(zap.String("order_id", o.ID))
	if err := c.orders.Append(ctx, o); err != nil {
		lg.Error("Save order", zap.Error(err))
		return nil, errors.Wrap(err, "save order")
	}

	if c.notifier != nil {
		if err := c.notifier.SendConfirmation(ctx, o); err != nil {
			lg.Warn("Send confirmation", zap.Error(err))
		}
	}
	if err := c.cart.Clear(ctx); err != nil {
		lg.Warn("Clear cart after checkout", zap.Error(err))
	}

	emailLink, err := c.renderer.EmailLink(o)
	if err != nil {
		return nil, errors.Wrap(err, "email link")
	}
	lg.Info("Order placed",
		zap.Int("items", len(o.Items)),
		zap.String("total", o.Total.StringFixed(2)),
	)

	return &Receipt{
		Order:        o,
		WhatsAppLink: c.renderer.WhatsAppLink(o),
		EmailLink:    emailLink,
	}, nil
}

// Orders returns the placed orders. A list that cannot be read is logged and
// reported as empty.
func (c *Checkout) Orders(ctx context.Context) []Order {
	list, err := c.orders.List(ctx)
	if err != nil {
		zctx.From(ctx).Error("Read orders", zap.Error(err))
		return []Order{}
	}
	if list == nil {
		return []Order{}
	}
	return list
}
