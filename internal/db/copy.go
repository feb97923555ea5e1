// Package db provides shared Postgres helpers for bulk upsert, copy and
// schema migrations.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts rows into a table using PostgreSQL COPY protocol.
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	copySource := pgx.CopyFromRows(rows)
	n, err := pool.CopyFrom(ctx, pgx.Identifier{table}, columns, copySource)
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}

	return n, nil
}

// CopyFromSchema bulk-inserts rows into a schema-qualified table using PostgreSQL COPY protocol.
func CopyFromSchema(ctx context.Context, pool Pool, schema, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	copySource := pgx.CopyFromRows(rows)
	n, err := pool.CopyFrom(ctx, pgx.Identifier{schema, table}, columns, copySource)
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s.%s", schema, table)
	}

	return n, nil
}

// ReplaceConfig defines a delete-then-copy replacement of a partition of a table.
type ReplaceConfig struct {
	Schema  string
	Table   string
	Columns []string
	// KeyColumn selects the rows to replace; every row whose KeyColumn is in
	// Keys is deleted before the new rows are copied in.
	KeyColumn string
	Keys      []int
}

// Replace deletes the rows matching cfg.Keys and copies rows in their place
// inside one transaction. Rows without a natural key, such as species counts,
// are loaded this way so re-running a year does not duplicate them.
func Replace(ctx context.Context, pool Pool, cfg ReplaceConfig, rows [][]any) (int64, error) {
	if len(cfg.Keys) == 0 {
		return 0, nil
	}
	if cfg.KeyColumn == "" {
		return 0, eris.New("db: replace: no key column specified")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: replace: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE %s = ANY($1)",
		pgx.Identifier{cfg.Schema, cfg.Table}.Sanitize(),
		pgx.Identifier{cfg.KeyColumn}.Sanitize(),
	)
	if _, err := tx.Exec(ctx, deleteSQL, cfg.Keys); err != nil {
		return 0, eris.Wrapf(err, "db: replace: delete from %s.%s", cfg.Schema, cfg.Table)
	}

	n, err := CopyFromSchema(ctx, tx, cfg.Schema, cfg.Table, cfg.Columns, rows)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: replace: commit tx")
	}

	return n, nil
}
