package store

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/terrain-cli/internal/db"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationLockID = 7340211

// Migrate applies pending SQL migrations in lexicographic order. It creates
// the geo schema and its schema_migrations tracking table if needed.
//
// Everything runs in one transaction holding pg_advisory_xact_lock, so the
// lock lives on the same connection as the work and is released on commit or
// rollback.
func Migrate(ctx context.Context, pool db.Pool) error {
	log := zap.L().With(zap.String("component", "store.migrate"))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin migration tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Overlapping deploys must not apply the same file twice.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockID); err != nil {
		return eris.Wrap(err, "postgres: acquire migration advisory lock")
	}

	if _, err := tx.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS geo;
		CREATE TABLE IF NOT EXISTS geo.schema_migrations (
			id         SERIAL PRIMARY KEY,
			filename   TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`); err != nil {
		return eris.Wrap(err, "postgres: ensure migration table")
	}

	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return eris.Wrap(err, "postgres: read migration dir")
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	applied, err := appliedMigrations(ctx, tx)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if applied[name] {
			continue
		}

		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return eris.Wrapf(err, "postgres: read migration %s", name)
		}

		log.Info("applying migration", zap.String("file", name))
		if _, err := tx.Exec(ctx, string(data)); err != nil {
			return eris.Wrapf(err, "postgres: apply migration %s", name)
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO geo.schema_migrations (filename, applied_at) VALUES ($1, now())",
			name,
		); err != nil {
			return eris.Wrapf(err, "postgres: record migration %s", name)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit migrations")
}

func appliedMigrations(ctx context.Context, tx pgx.Tx) (map[string]bool, error) {
	rows, err := tx.Query(ctx, "SELECT filename FROM geo.schema_migrations")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan migration row")
		}
		applied[name] = true
	}
	return applied, rows.Err()
}
