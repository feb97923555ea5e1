package store

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bbc-census/internal/db"
	"github.com/sells-group/bbc-census/internal/model"
	"github.com/sells-group/bbc-census/internal/resilience"
	"github.com/sells-group/bbc-census/internal/spatial"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Schema is the Postgres schema holding the census tables.
const Schema = "bbc"

// migrationLockID serializes concurrent migrate runs.
const migrationLockID int64 = 8675310

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := resilience.Do(ctx, resilience.DefaultRetryConfig(), "postgres.ping", pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Migrate applies the embedded SQL migrations under an advisory lock,
// recording each in bbc.schema_migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	m := db.Migrator{FS: migrationFS, Dir: "migrations", Schema: Schema, LockID: migrationLockID}
	return eris.Wrap(m.Migrate(ctx, s.pool), "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) StartRun(ctx context.Context, years []int) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO bbc.extract_runs (id, years, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, years, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Years:     years,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, run *model.Run) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE bbc.extract_runs SET status = $1, sites = $2, census = $3, counts = $4, failures = $5, completed_at = $6 WHERE id = $7`,
		string(model.RunStatusComplete), run.Sites, run.Census, run.Counts, run.Failures, now, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run not found: %s", run.ID)
	}
	run.Status = model.RunStatusComplete
	run.CompletedAt = &now
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE bbc.extract_runs SET status = $1, error = $2, completed_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var (
		r      model.Run
		status string
		errMsg *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, years, status, sites, census, counts, failures, error, started_at, completed_at FROM bbc.extract_runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Years, &status, &r.Sites, &r.Census, &r.Counts, &r.Failures, &errMsg, &r.StartedAt, &r.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: get run: not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}
	r.Status = model.RunStatus(status)
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}

// SaveTables writes the tables of years in one transaction. Sites and census
// rows are upserted on site_id and rows of those years that are no longer
// extracted are removed; counts have no natural key and are replaced per year.
func (s *PostgresStore) SaveTables(ctx context.Context, years []int, tables model.Tables) error {
	if len(years) == 0 {
		return nil
	}
	if err := checkUniqueSites(tables); err != nil {
		return err
	}
	log := zap.L().With(zap.String("component", "store.postgres"), zap.Ints("years", years))

	siteRows := make([][]any, 0, len(tables.Sites))
	ids := make([]int, 0, len(tables.Sites))
	for _, r := range tables.Sites {
		geom, err := spatial.EncodePoint(r.Latitude, r.Longitude)
		if err != nil {
			return eris.Wrapf(err, "postgres: site %d geometry", r.SiteID)
		}
		siteRows = append(siteRows, append(siteValues(r), geom))
		ids = append(ids, r.SiteID)
	}

	censusRows := make([][]any, 0, len(tables.Census))
	for _, r := range tables.Census {
		censusRows = append(censusRows, censusValues(r))
	}

	countRows := make([][]any, 0, len(tables.Counts))
	for _, r := range tables.Counts {
		countRows = append(countRows, countValues(r))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, table := range []string{"sites", "census"} {
		tag, err := tx.Exec(ctx,
			`DELETE FROM bbc.`+table+` WHERE year = ANY($1) AND NOT (site_id = ANY($2))`,
			years, ids,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: prune %s", table)
		}
		if n := tag.RowsAffected(); n > 0 {
			log.Info("pruned stale rows", zap.String("table", table), zap.Int64("rows", n))
		}
	}

	n, err := db.BulkUpsert(ctx, tx, db.UpsertConfig{
		Table:        Schema + ".sites",
		Columns:      append(append([]string{}, siteColumns...), "geom"),
		ConflictKeys: []string{"site_id"},
	}, siteRows)
	if err != nil {
		return eris.Wrap(err, "postgres: upsert sites")
	}
	log.Debug("sites upserted", zap.Int64("rows", n))

	n, err = db.BulkUpsert(ctx, tx, db.UpsertConfig{
		Table:        Schema + ".census",
		Columns:      censusColumns,
		ConflictKeys: []string{"site_id"},
	}, censusRows)
	if err != nil {
		return eris.Wrap(err, "postgres: upsert census")
	}
	log.Debug("census upserted", zap.Int64("rows", n))

	n, err = db.Replace(ctx, tx, db.ReplaceConfig{
		Schema:    Schema,
		Table:     "counts",
		Columns:   countColumns,
		KeyColumn: "year",
		Keys:      years,
	}, countRows)
	if err != nil {
		return eris.Wrap(err, "postgres: replace counts")
	}
	log.Debug("counts replaced", zap.Int64("rows", n))

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit tables")
	}
	return nil
}

func (s *PostgresStore) SaveFailures(ctx context.Context, runID string, failures []model.Failure) error {
	rows := make([][]any, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, append([]any{runID}, failureValues(f)...))
	}
	_, err := db.CopyFromSchema(ctx, s.pool, Schema, "parse_failures", failureColumns, rows)
	return eris.Wrap(err, "postgres: save failures")
}
