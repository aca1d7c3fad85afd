// Package db defines the pgx-compatible pool surface shared by the
// directory store and the peer-database clients.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool is the subset of pgxpool.Pool the stores depend on. pgxmock's
// PgxPoolIface also satisfies it, which keeps store logic unit-testable
// without a running server.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// TxPool widens Pool with transactions for the bulk helpers.
type TxPool interface {
	Pool
	Begin(ctx context.Context) (pgx.Tx, error)
}
