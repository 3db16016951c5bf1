package repository

import (
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/spice-storefront/internal/domain/cart"
	"github.com/xenking/spice-storefront/internal/domain/order"
)

// timestampLayout matches the ISO form browsers produce for Date values.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// EncodeItems renders cart items as a JSON array.
func EncodeItems(items []cart.Item) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	encodeItems(e, items)
	return append([]byte(nil), e.Bytes()...)
}

// DecodeItems parses a JSON array of cart items. A JSON null is an empty
// cart.
func DecodeItems(data []byte) ([]cart.Item, error) {
	d := jx.DecodeBytes(data)
	items, err := decodeItems(d)
	if err == nil {
		err = expectEnd(d)
	}
	if err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return items, nil
}

// EncodeOrders renders orders as a JSON array.
func EncodeOrders(orders []order.Order) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ArrStart()
	for i := range orders {
		encodeOrder(e, &orders[i])
	}
	e.ArrEnd()
	return append([]byte(nil), e.Bytes()...)
}

// DecodeOrders parses a JSON array of orders. A JSON null is an empty list.
func DecodeOrders(data []byte) ([]order.Order, error) {
	orders := []order.Order{}
	d := jx.DecodeBytes(data)
	var err error
	if d.Next() == jx.Null {
		err = d.Null()
	} else {
		err = d.Arr(func(d *jx.Decoder) error {
			o, err := decodeOrder(d)
			if err != nil {
				return err
			}
			orders = append(orders, o)
			return nil
		})
	}
	if err == nil {
		err = expectEnd(d)
	}
	if err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	return orders, nil
}

// EncodeOrder renders a single order as a JSON object.
func EncodeOrder(o *order.Order) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	encodeOrder(e, o)
	return append([]byte(nil), e.Bytes()...)
}

// DecodeOrder parses a single JSON order object.
func DecodeOrder(data []byte) (order.Order, error) {
	d := jx.DecodeBytes(data)
	o, err := decodeOrder(d)
	if err == nil {
		err = expectEnd(d)
	}
	if err != nil {
		return order.Order{}, errors.Wrap(err, "decode order")
	}
	return o, nil
}

func encodeItems(e *jx.Encoder, items []cart.Item) {
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(it.ID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("price")
		encodeDecimal(e, it.Price)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("image")
		e.Str(it.Image)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func decodeItems(d *jx.Decoder) ([]cart.Item, error) {
	items := []cart.Item{}
	if d.Next() == jx.Null {
		return items, d.Null()
	}
	err := d.Arr(func(d *jx.Decoder) error {
		var it cart.Item
		err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				it.ID, err = d.Str()
			case "name":
				it.Name, err = d.Str()
			case "price":
				it.Price, err = decodeDecimal(d)
			case "quantity":
				it.Quantity, err = d.Int()
			case "image":
				it.Image, err = d.Str()
			default:
				err = d.Skip()
			}
			if err != nil {
				return errors.Wrapf(err, "field %q", key)
			}
			return nil
		})
		if err != nil {
			return err
		}
		items = append(items, it)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func encodeCustomer(e *jx.Encoder, c order.Customer) {
	e.ObjStart()
	e.FieldStart("fullName")
	e.Str(c.FullName)
	e.FieldStart("email")
	e.Str(c.Email)
	e.FieldStart("phone")
	e.Str(c.Phone)
	e.FieldStart("address")
	e.Str(c.Address)
	e.FieldStart("city")
	e.Str(c.City)
	e.FieldStart("postalCode")
	e.Str(c.PostalCode)
	e.FieldStart("country")
	e.Str(c.Country)
	e.ObjEnd()
}

func decodeCustomer(d *jx.Decoder) (order.Customer, error) {
	var c order.Customer
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "fullName":
			c.FullName, err = d.Str()
		case "email":
			c.Email, err = d.Str()
		case "phone":
			c.Phone, err = d.Str()
		case "address":
			c.Address, err = d.Str()
		case "city":
			c.City, err = d.Str()
		case "postalCode":
			c.PostalCode, err = d.Str()
		case "country":
			c.Country, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	return c, err
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("timestamp")
	e.Str(o.Timestamp.UTC().Format(timestampLayout))
	e.FieldStart("customer")
	encodeCustomer(e, o.Customer)
	e.FieldStart("items")
	encodeItems(e, o.Items)
	e.FieldStart("total")
	encodeDecimal(e, o.Total)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.ObjEnd()
}

func decodeOrder(d *jx.Decoder) (order.Order, error) {
	var o order.Order
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Str()
		case "timestamp":
			o.Timestamp, err = decodeTimestamp(d)
		case "customer":
			o.Customer, err = decodeCustomer(d)
		case "items":
			o.Items, err = decodeItems(d)
		case "total":
			o.Total, err = decodeDecimal(d)
		case "status":
			var s string
			s, err = d.Str()
			o.Status = order.Status(s)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	return o, err
}

func decodeTimestamp(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

// encodeDecimal writes d as a JSON number, keeping trailing zeros of the
// fractional part.
func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	s := d.String()
	if d.Exponent() < 0 {
		s = d.StringFixed(-d.Exponent())
	}
	e.Num(jx.Num(s))
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(n.String())
}

func encodeCustomerJSON(c order.Customer) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	encodeCustomer(e, c)
	return append([]byte(nil), e.Bytes()...)
}

func decodeCustomerJSON(data []byte) (order.Customer, error) {
	d := jx.DecodeBytes(data)
	c, err := decodeCustomer(d)
	if err == nil {
		err = expectEnd(d)
	}
	if err != nil {
		return order.Customer{}, errors.Wrap(err, "decode customer")
	}
	return c, nil
}

// expectEnd fails unless only whitespace follows the decoded value.
func expectEnd(d *jx.Decoder) error {
	if err := d.Skip(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after record")
	}
	return nil
}
