// Package dbtest starts a throwaway PostgreSQL with the schema applied and
// points db.Pool at it.
package dbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"

	"terracafe/db"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func migrationScripts() ([]string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("locate dbtest source")
	}
	scripts, err := filepath.Glob(filepath.Join(filepath.Dir(file), "..", "..", "migrations", "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(scripts)
	return scripts, nil
}

// Start runs postgres with every migration as an init script and connects db.Pool.
// The returned stop func closes the pool and removes the container.
func Start(ctx context.Context) (stop func(), err error) {
	scripts, err := migrationScripts()
	if err != nil {
		return nil, err
	}
	pc, err := postgres.Run(ctx, "postgres:17.6-alpine3.22",
		postgres.BasicWaitStrategies(),
		postgres.WithInitScripts(scripts...),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := pc.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = testcontainers.TerminateContainer(pc)
		return nil, fmt.Errorf("pc.ConnectionString: %w", err)
	}
	if err := db.Connect(ctx, connStr); err != nil {
		_ = testcontainers.TerminateContainer(pc)
		return nil, fmt.Errorf("db.Connect: %w", err)
	}

	return func() {
		db.Close()
		db.Pool = nil
		_ = testcontainers.TerminateContainer(pc)
	}, nil
}

// Reset removes accounts, carts and orders but keeps the seeded menu.
func Reset(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		TRUNCATE order_message_pointers, order_items, orders, carts, login_throttle, users RESTART IDENTITY CASCADE`)
	return err
}
