package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/spice-storefront/internal/domain/cart"
)

// Status is the lifecycle state of an order. Only the initial state is
// ever assigned here.
type Status string

// StatusPending is the state of every newly built order.
const StatusPending Status = "pending"

// DefaultCountry is used when the form leaves the country empty.
const DefaultCountry = "Pakistan"

// Order is an immutable snapshot of a validated checkout.
type Order struct {
	ID        string
	Timestamp time.Time // UTC, millisecond precision
	Customer  Customer
	Items     []cart.Item
	Total     decimal.Decimal
	Status    Status
}

// Customer holds the sanitized contact details of an order.
type Customer struct {
	FullName   string
	Email      string
	Phone      string
	Address    string
	City       string
	PostalCode string
	Country    string
}

// Form is the raw checkout form as submitted by the shopper.
type Form struct {
	Token      string
	FullName   string
	Email      string
	Phone      string
	Address    string
	City       string
	PostalCode string
	Country    string
}

// Repository persists placed orders. List returns orders in placement order.
type Repository interface {
	Append(ctx context.Context, o *Order) error
	List(ctx context.Context) ([]Order, error)
}
