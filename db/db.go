package db

import (
	"context"

	"market-telegram/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var Pool *pgxpool.Pool

// Querier is the subset of *pgxpool.Pool the stores use. pgx.Tx satisfies it
// too, so store code runs unchanged inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

func Init(ctx context.Context, cfg config.DBConfig) error {
	var err error
	Pool, err = pgxpool.New(ctx, cfg.ConnString())
	if err != nil {
		return err
	}
	return Pool.Ping(ctx)
}

func Close() {
	if Pool != nil {
		Pool.Close()
	}
}
