package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID       string
	Name     string
	Category string
	// Price is the unit price per kilogram.
	Price decimal.Decimal
	// BulkPrices maps a minimum order weight in kilograms to the unit price
	// that applies from that weight upwards.
	BulkPrices    map[int]decimal.Decimal
	Image         string
	Description   string
	Specs         []Spec
	Benefits      []string
	Applications  []string
	Certification []string
	InStock       bool
	MinOrder      string
}

// Spec is one named attribute of a product, kept in catalog order.
type Spec struct {
	Name  string
	Value string
}

// ProductID returns the catalog identifier.
func (p Product) ProductID() string { return p.ID }

// ProductName returns the display name.
func (p Product) ProductName() string { return p.Name }

// UnitPrice returns the base unit price.
func (p Product) UnitPrice() decimal.Decimal { return p.Price }

// ImageRef returns the product image reference.
func (p Product) ImageRef() string { return p.Image }

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
