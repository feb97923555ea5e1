package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Migrator applies .sql files from a directory of an fs.FS in lexicographic
// order, recording each one in <schema>.schema_migrations.
type Migrator struct {
	FS     fs.FS
	Dir    string
	Schema string
	// LockID is the pg_advisory_lock key that serializes concurrent runs.
	LockID int64
}

// Migrate runs all pending migrations. It creates the schema and tracking
// table if needed, then applies any files not yet recorded.
func (m Migrator) Migrate(ctx context.Context, pool Pool) error {
	log := zap.L().With(zap.String("component", "db.migrate"), zap.String("schema", m.Schema))

	// Advisory lock prevents concurrent migration runs.
	if _, err := pool.Exec(ctx, "SELECT pg_advisory_lock($1)", m.LockID); err != nil {
		return eris.Wrap(err, "db: acquire migration advisory lock")
	}
	defer func() {
		if _, err := pool.Exec(ctx, "SELECT pg_advisory_unlock($1)", m.LockID); err != nil {
			log.Warn("db: failed to release migration advisory lock", zap.Error(err))
		}
	}()

	if err := m.ensureMigrationTable(ctx, pool); err != nil {
		return err
	}

	names, err := m.files()
	if err != nil {
		return err
	}

	applied, err := m.applied(ctx, pool)
	if err != nil {
		return err
	}

	for _, name := range names {
		if applied[name] {
			continue
		}

		data, err := fs.ReadFile(m.FS, m.Dir+"/"+name)
		if err != nil {
			return eris.Wrapf(err, "db: read migration %s", name)
		}

		log.Info("applying migration", zap.String("file", name))

		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return eris.Wrapf(err, "db: apply migration %s", name)
		}

		if _, err := pool.Exec(ctx,
			fmt.Sprintf("INSERT INTO %s.schema_migrations (filename, applied_at) VALUES ($1, now())", m.Schema),
			name,
		); err != nil {
			return eris.Wrapf(err, "db: record migration %s", name)
		}
	}

	return nil
}

// Files returns the migration file names in application order.
func (m Migrator) files() ([]string, error) {
	entries, err := fs.ReadDir(m.FS, m.Dir)
	if err != nil {
		return nil, eris.Wrap(err, "db: read migration dir")
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	// Lexicographic = numeric order with zero-padded names.
	sort.Strings(names)
	return names, nil
}

func (m Migrator) ensureMigrationTable(ctx context.Context, pool Pool) error {
	sql := fmt.Sprintf(`
		CREATE SCHEMA IF NOT EXISTS %[1]s;
		CREATE TABLE IF NOT EXISTS %[1]s.schema_migrations (
			id         SERIAL PRIMARY KEY,
			filename   TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`, m.Schema)
	if _, err := pool.Exec(ctx, sql); err != nil {
		return eris.Wrap(err, "db: ensure migration table")
	}
	return nil
}

func (m Migrator) applied(ctx context.Context, pool Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, fmt.Sprintf("SELECT filename FROM %s.schema_migrations", m.Schema))
	if err != nil {
		return nil, eris.Wrap(err, "db: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "db: scan migration row")
		}
		applied[name] = true
	}
	return applied, rows.Err()
}
