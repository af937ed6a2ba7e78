package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"terracafe/db"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// applyMigrations runs every embedded migration not yet recorded in
// schema_migrations, in file name order, each in its own transaction.
func applyMigrations(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	pending := 0
	for _, name := range names {
		version := path.Base(name)
		if applied[version] {
			continue
		}
		script, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", version, err)
		}
		_, err = db.WithTx(ctx, func(tx pgx.Tx) (struct{}, error) {
			if _, err := tx.Exec(ctx, string(script)); err != nil {
				return struct{}{}, err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
			return struct{}{}, err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		pending++
		log.Info().Str("migration", version).Msg("migration applied")
	}
	log.Info().Int("applied", pending).Int("total", len(names)).Msg("schema up to date")
	return nil
}
