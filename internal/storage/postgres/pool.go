// Package postgres backs the device store with a PostgreSQL database
// running on the same machine.
package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/spice-storefront/db"
)

// A single shopper never needs more than a handful of connections.
const maxConns = 4

// migrationLock serialises schema setup between storefront processes
// sharing one database.
const migrationLock int64 = 0x736b6874

// NewPool connects to databaseURL with shopspring/decimal registered for
// NUMERIC columns and verifies the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}
	if cfg.MaxConns > maxConns {
		cfg.MaxConns = maxConns
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrapf(err, "connect to %s", cfg.ConnConfig.Host)
	}
	return pool, nil
}

// RunMigrations applies the embedded schema in one transaction, holding an
// advisory lock so concurrent processes do not race on DDL.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLock); err != nil {
			return errors.Wrap(err, "acquire migration lock")
		}
		if _, err := tx.Exec(ctx, db.Schema); err != nil {
			return errors.Wrap(err, "apply schema")
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "run migrations")
	}
	zctx.From(ctx).Debug("Schema ready")
	return nil
}
