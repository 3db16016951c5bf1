package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/spice-storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, profile, placed_at, customer, items, total, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	listOrdersSQL = `SELECT id, placed_at, customer, items, total, status
		FROM orders WHERE profile = $1 ORDER BY seq`
)

var _ order.Repository = (*PostgresOrderRepository)(nil)

// PostgresOrderRepository implements order.Repository backed by PostgreSQL.
// Orders of different device profiles are kept apart.
type PostgresOrderRepository struct {
	pool    *pgxpool.Pool
	profile string
}

// NewPostgresOrderRepository returns a PostgresOrderRepository that uses the
// given pool.
func NewPostgresOrderRepository(pool *pgxpool.Pool, profile string) *PostgresOrderRepository {
	return &PostgresOrderRepository{pool: pool, profile: profile}
}

// Append persists a new order. Customer and items are stored as JSONB in
// the same shape as the device-store record.
func (r *PostgresOrderRepository) Append(ctx context.Context, o *order.Order) error {
	_, err := r.pool.Exec(ctx, createOrderSQL,
		o.ID,
		r.profile,
		o.Timestamp,
		encodeCustomerJSON(o.Customer),
		EncodeItems(o.Items),
		o.Total,
		string(o.Status),
	)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}

// List returns the profile's orders in placement order.
func (r *PostgresOrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, r.profile)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if orders == nil {
		orders = []order.Order{}
	}
	return orders, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o        order.Order
		customer []byte
		items    []byte
		total    decimal.Decimal
		status   string
	)
	if err := row.Scan(&o.ID, &o.Timestamp, &customer, &items, &total, &status); err != nil {
		return order.Order{}, errors.Wrap(err, "scan order")
	}

	var err error
	if o.Customer, err = decodeCustomerJSON(customer); err != nil {
		return order.Order{}, errors.Wrapf(err, "order %q", o.ID)
	}
	if o.Items, err = DecodeItems(items); err != nil {
		return order.Order{}, errors.Wrapf(err, "order %q", o.ID)
	}
	o.Timestamp = o.Timestamp.UTC()
	o.Total = total
	o.Status = order.Status(status)
	return o, nil
}
