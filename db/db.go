package db

import (
	"context"
	"errors"
	"fmt"

	"terracafe/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var Pool *pgxpool.Pool

func Init(ctx context.Context, cfg config.DBConfig) error {
	return Connect(ctx, cfg.ConnString())
}

// Connect opens the package pool from a connection URL and pings it.
func Connect(ctx context.Context, connStr string) error {
	p, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return err
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return fmt.Errorf("ping: %w", err)
	}
	Pool = p
	return nil
}

func Close() {
	if Pool != nil {
		Pool.Close()
	}
}

// WithTx runs fn inside a transaction on Pool. The transaction is committed
// when fn returns nil and rolled back otherwise.
func WithTx[T any](ctx context.Context, fn func(tx pgx.Tx) (T, error)) (_ T, txErr error) {
	var zero T

	tx, err := Pool.Begin(ctx)
	if err != nil {
		return zero, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if txErr != nil {
			rollbackErr := tx.Rollback(ctx)
			if rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				txErr = errors.Join(txErr, fmt.Errorf("tx.Rollback: %w", rollbackErr))
			}
		}
	}()

	result, err := fn(tx)
	if err != nil {
		return zero, err
	}
	if err := tx.Commit(ctx); err != nil {
		return zero, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}
