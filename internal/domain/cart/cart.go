package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// EventUpdated is published after every successful cart mutation.
const EventUpdated = "cartUpdated"

// Quantity bounds enforced on a single Add or SetQuantity call.
const (
	MinQuantity = 1
	MaxQuantity = 1000
)

// SaveFailedMessage is shown to the shopper when the cart cannot be written.
const SaveFailedMessage = "Failed to save cart. Your storage might be full."

// Input errors returned by Add and SetQuantity.
var (
	ErrQuantityTooLow  = errors.New("quantity must be at least 1")
	ErrQuantityTooHigh = errors.New("quantity cannot exceed 1000")
)

// Item is one cart line. Name, Price and Image are copied from the catalog
// when the product is first added and are not re-synced afterwards.
type Item struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int
	Image    string
}

// Subtotal returns Price * Quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Product is anything that can be put in the cart.
type Product interface {
	ProductID() string
	ProductName() string
	UnitPrice() decimal.Decimal
	ImageRef() string
}

// Repository persists the cart as a whole. Load returns an empty slice and
// no error when nothing has been stored yet.
type Repository interface {
	Load(ctx context.Context) ([]Item, error)
	Save(ctx context.Context, items []Item) error
	Delete(ctx context.Context) error
}

// TokenRepository persists the session anti-forgery token. Get returns ""
// and no error when no token exists.
type TokenRepository interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
}

// Publisher broadcasts payload-less signals.
type Publisher interface {
	Publish(ctx context.Context, name string)
}

// StorageError reports a cart write that did not reach the store. The cart
// operation is considered failed and no update event is published.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return SaveFailedMessage
}

// Unwrap returns the underlying storage failure.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Detail describes the failed operation and its cause, for logs.
func (e *StorageError) Detail() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}
