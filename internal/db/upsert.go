package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig names the target of BulkUpsert. Table may be schema
// qualified. UpdateCols nil means every column outside ConflictKeys;
// an empty non-nil slice keeps existing rows untouched.
type UpsertConfig struct {
	Table        string
	Columns      []string
	ConflictKeys []string
	UpdateCols   []string
}

func (c UpsertConfig) validate() error {
	if len(c.Columns) == 0 {
		return eris.Errorf("db: upsert %s: no columns specified", c.Table)
	}
	if len(c.ConflictKeys) == 0 {
		return eris.Errorf("db: upsert %s: no conflict keys specified", c.Table)
	}
	return nil
}

func (c UpsertConfig) updateColumns() []string {
	if c.UpdateCols != nil {
		return c.UpdateCols
	}
	keys := make(map[string]bool, len(c.ConflictKeys))
	for _, k := range c.ConflictKeys {
		keys[k] = true
	}
	var cols []string
	for _, col := range c.Columns {
		if !keys[col] {
			cols = append(cols, col)
		}
	}
	return cols
}

// stageTable is the per-call staging table. It lives only for the
// transaction, so the bare table name is enough to keep it apart from the
// other targets of one save.
func (c UpsertConfig) stageTable() string {
	name := c.Table
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name + "_stage"
}

func (c UpsertConfig) mergeSQL(stage string) string {
	cols := quoteAndJoin(c.Columns)
	conflict := "DO NOTHING"
	if update := c.updateColumns(); len(update) > 0 {
		set := make([]string, len(update))
		for i, col := range update {
			id := pgx.Identifier{col}.Sanitize()
			set[i] = id + " = EXCLUDED." + id
		}
		conflict = "DO UPDATE SET " + strings.Join(set, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		sanitizeTable(c.Table), cols, cols,
		pgx.Identifier{stage}.Sanitize(), quoteAndJoin(c.ConflictKeys), conflict)
}

// BulkUpsert copies rows into a staging table shaped like cfg.Table and
// merges them into it by cfg.ConflictKeys. It returns the number of target
// rows inserted or updated. A pgx.Tx pool nests the work in a savepoint.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := cfg.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: begin", cfg.Table)
	}
	defer tx.Rollback(ctx)

	stage := cfg.stageTable()
	if _, err := tx.Exec(ctx, fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{stage}.Sanitize(), sanitizeTable(cfg.Table),
	)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: create stage", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: copy %d rows to stage", cfg.Table, len(rows))
	}

	tag, err := tx.Exec(ctx, cfg.mergeSQL(stage))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: merge", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: commit", cfg.Table)
	}
	return tag.RowsAffected(), nil
}

// sanitizeTable quotes "schema.table" as two identifiers.
func sanitizeTable(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
