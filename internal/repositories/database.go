package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the query surface shared by a pool and an open transaction.
// Repository methods that must run inside a caller-owned transaction accept
// one explicitly.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Database is the connection handle repositories and services are built on.
// *pgxpool.Pool satisfies it in production; pgxmock stands in for tests.
type Database interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}
