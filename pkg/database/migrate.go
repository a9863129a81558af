package database

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

const migrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version     TEXT PRIMARY KEY,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Migrate applies every *.sql file of dir in fsys that is not yet recorded
// in schema_migrations, in file name order, one transaction per file. It
// returns the versions it applied.
func Migrate(ctx context.Context, db *sqlx.DB, fsys fs.FS, dir string) ([]string, error) {
	if _, err := db.ExecContext(ctx, migrationsTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied []string
	if err := db.SelectContext(ctx, &applied, `SELECT version FROM schema_migrations`); err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	done := make(map[string]struct{}, len(applied))
	for _, version := range applied {
		done[version] = struct{}{}
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var pending []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		if _, ok := done[strings.TrimSuffix(name, ".sql")]; !ok {
			pending = append(pending, name)
		}
	}
	sort.Strings(pending)

	var versions []string
	for _, name := range pending {
		body, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return versions, fmt.Errorf("read migration %s: %w", name, err)
		}
		version := strings.TrimSuffix(name, ".sql")
		err = WithTx(ctx, db, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, string(body)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
			return err
		})
		if err != nil {
			return versions, fmt.Errorf("apply migration %s: %w", version, err)
		}
		versions = append(versions, version)
	}
	return versions, nil
}
