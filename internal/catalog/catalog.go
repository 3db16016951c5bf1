// Package catalog serves the read-only product list bundled with the
// storefront.
package catalog

import (
	"context"
	_ "embed"
	"sort"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/spice-storefront/internal/domain/product"
)

// AllCategories selects every product in FilterByCategory.
const AllCategories = "all"

//go:embed products.json
var productsJSON []byte

var _ product.Repository = (*Catalog)(nil)

// Catalog is an immutable, in-memory product list.
type Catalog struct {
	products []product.Product
	byID     map[string]int
}

// Default parses the embedded product list.
func Default() (*Catalog, error) {
	return Parse(productsJSON)
}

// Parse builds a Catalog from a JSON array of product records.
func Parse(data []byte) (*Catalog, error) {
	var products []product.Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return err
		}
		products = append(products, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}

	c := &Catalog{
		products: products,
		byID:     make(map[string]int, len(products)),
	}
	for i, p := range products {
		if p.ID == "" {
			return nil, errors.Errorf("product #%d has no id", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, errors.Errorf("duplicate product id %q", p.ID)
		}
		c.byID[p.ID] = i
	}
	return c, nil
}

// List returns all products in catalog order.
func (c *Catalog) List(_ context.Context) ([]product.Product, error) {
	return c.All(), nil
}

// GetByID returns a single product by its identifier.
func (c *Catalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := c.lookup(id)
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// GetByIDs returns the products matching ids, in the order requested.
// Unknown ids are skipped.
func (c *Catalog) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.lookup(id); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// All returns a copy of every product in catalog order.
func (c *Catalog) All() []product.Product {
	out := make([]product.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) lookup(id string) (product.Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return product.Product{}, false
	}
	return c.products[i], true
}

// Search returns products whose name, description, category or specs
// contain query, ignoring case.
func (c *Catalog) Search(query string) []product.Product {
	term := strings.ToLower(query)
	var out []product.Product
	for _, p := range c.products {
		if matches(p, term) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p product.Product, term string) bool {
	if strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Description), term) ||
		strings.Contains(strings.ToLower(p.Category), term) {
		return true
	}
	for _, s := range p.Specs {
		if strings.Contains(strings.ToLower(s.Name), term) ||
			strings.Contains(strings.ToLower(s.Value), term) {
			return true
		}
	}
	return false
}

// FilterByCategory returns products in category. AllCategories returns the
// whole catalog.
func (c *Catalog) FilterByCategory(category string) []product.Product {
	if category == AllCategories {
		return c.All()
	}
	var out []product.Product
	for _, p := range c.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Categories returns the distinct categories in first-seen order.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range c.products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// BulkPrice returns the unit price for buying quantity kilograms of the
// product: the price of the largest bulk tier not above quantity, or the
// base price when no tier applies.
func (c *Catalog) BulkPrice(id string, quantity int) (decimal.Decimal, error) {
	p, ok := c.lookup(id)
	if !ok {
		return decimal.Zero, product.ErrNotFound
	}

	tiers := make([]int, 0, len(p.BulkPrices))
	for weight := range p.BulkPrices {
		tiers = append(tiers, weight)
	}
	sort.Ints(tiers)

	price := p.Price
	for _, weight := range tiers {
		if quantity >= weight {
			price = p.BulkPrices[weight]
		}
	}
	return price, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
		case "bulkPrices":
			p.BulkPrices, err = decodeBulkPrices(d)
		case "image":
			p.Image, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "specs":
			p.Specs, err = decodeSpecs(d)
		case "benefits":
			p.Benefits, err = decodeStrings(d)
		case "applications":
			p.Applications, err = decodeStrings(d)
		case "certification":
			p.Certification, err = decodeStrings(d)
		case "inStock":
			p.InStock, err = d.Bool()
		case "minOrder":
			p.MinOrder, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	return p, err
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(n.String())
}

// decodeBulkPrices reads tiers keyed like "500kg".
func decodeBulkPrices(d *jx.Decoder) (map[int]decimal.Decimal, error) {
	tiers := make(map[int]decimal.Decimal)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		weight, err := strconv.Atoi(strings.TrimSuffix(key, "kg"))
		if err != nil {
			return errors.Wrapf(err, "bulk tier %q", key)
		}
		price, err := decodeDecimal(d)
		if err != nil {
			return errors.Wrapf(err, "bulk tier %q", key)
		}
		tiers[weight] = price
		return nil
	})
	return tiers, err
}

func decodeSpecs(d *jx.Decoder) ([]product.Spec, error) {
	var specs []product.Spec
	err := d.Obj(func(d *jx.Decoder, key string) error {
		v, err := d.Str()
		if err != nil {
			return err
		}
		specs = append(specs, product.Spec{Name: key, Value: v})
		return nil
	})
	return specs, err
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}
