package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bbc-census/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sites (
	site_id     INTEGER PRIMARY KEY,
	site_num    INTEGER NOT NULL,
	year        INTEGER NOT NULL,
	site_name   TEXT NOT NULL,
	latitude    REAL NOT NULL,
	longitude   REAL NOT NULL,
	location    TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	edge        TEXT NOT NULL DEFAULT '',
	topography  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS census (
	site_id     INTEGER PRIMARY KEY,
	site_name   TEXT NOT NULL,
	site_num    INTEGER NOT NULL,
	year        INTEGER NOT NULL,
	established INTEGER NOT NULL,
	ts_length   INTEGER NOT NULL,
	cov_hours   REAL,
	cov_visits  INTEGER,
	cov_times   TEXT,
	cov_notes   TEXT,
	richness    INTEGER NOT NULL,
	territories REAL NOT NULL,
	terr_notes  TEXT NOT NULL DEFAULT '',
	weather     TEXT,
	size_ha     REAL NOT NULL,
	remarks     TEXT
);

CREATE TABLE IF NOT EXISTS counts (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	site_id INTEGER NOT NULL,
	year    INTEGER NOT NULL,
	species TEXT NOT NULL,
	count   TEXT,
	status  TEXT NOT NULL CHECK (status IN ('resident', 'visitor'))
);

CREATE TABLE IF NOT EXISTS extract_runs (
	id           TEXT PRIMARY KEY,
	years        TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	sites        INTEGER NOT NULL DEFAULT 0,
	census       INTEGER NOT NULL DEFAULT 0,
	counts       INTEGER NOT NULL DEFAULT 0,
	failures     INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS parse_failures (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id    TEXT NOT NULL REFERENCES extract_runs(id),
	kind      TEXT NOT NULL,
	year      INTEGER NOT NULL,
	site_num  INTEGER NOT NULL,
	site_name TEXT NOT NULL,
	field     TEXT NOT NULL DEFAULT '',
	raw       TEXT NOT NULL DEFAULT '',
	message   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sites_year ON sites(year);
CREATE INDEX IF NOT EXISTS idx_census_year ON census(year);
CREATE INDEX IF NOT EXISTS idx_counts_year ON counts(year);
CREATE INDEX IF NOT EXISTS idx_counts_site_id ON counts(site_id);
CREATE INDEX IF NOT EXISTS idx_parse_failures_run_id ON parse_failures(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) StartRun(ctx context.Context, years []int) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	yearsJSON, err := json.Marshal(years)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal years")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO extract_runs (id, years, status, started_at) VALUES (?, ?, ?, ?)`,
		id, string(yearsJSON), string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Years:     years,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, run *model.Run) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE extract_runs SET status = ?, sites = ?, census = ?, counts = ?, failures = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), run.Sites, run.Census, run.Counts, run.Failures, now, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", run.ID)
	}
	if err := checkRowsAffected(res, "run", run.ID); err != nil {
		return err
	}
	run.Status = model.RunStatusComplete
	run.CompletedAt = &now
	return nil
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE extract_runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, years, status, sites, census, counts, failures, error, started_at, completed_at
		 FROM extract_runs WHERE id = ?`,
		runID,
	)

	var (
		r         model.Run
		yearsJSON string
		errMsg    sql.NullString
		completed sql.NullTime
	)
	err := row.Scan(&r.ID, &yearsJSON, &r.Status, &r.Sites, &r.Census, &r.Counts, &r.Failures, &errMsg, &r.StartedAt, &completed)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}
	if err := json.Unmarshal([]byte(yearsJSON), &r.Years); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal years")
	}
	r.Error = errMsg.String
	if completed.Valid {
		r.CompletedAt = &completed.Time
	}
	return &r, nil
}

func (s *SQLiteStore) SaveTables(ctx context.Context, years []int, tables model.Tables) error {
	if len(years) == 0 {
		return nil
	}
	if err := checkUniqueSites(tables); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	in, args := inClause(years)
	for _, table := range []string{"sites", "census", "counts"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE year IN (`+in+`)`, args...); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", table)
		}
	}

	if err := insertRows(ctx, tx, "sites",
		`INSERT INTO sites (site_id, site_num, year, site_name, latitude, longitude, location, description, edge, topography)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(tables.Sites), func(i int) []any {
			return siteValues(tables.Sites[i])
		},
	); err != nil {
		return err
	}

	if err := insertRows(ctx, tx, "census",
		`INSERT INTO census (site_id, site_name, site_num, year, established, ts_length, cov_hours, cov_visits,
		 cov_times, cov_notes, richness, territories, terr_notes, weather, size_ha, remarks)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(tables.Census), func(i int) []any {
			return censusValues(tables.Census[i])
		},
	); err != nil {
		return err
	}

	if err := insertRows(ctx, tx, "counts",
		`INSERT INTO counts (site_id, year, species, count, status) VALUES (?, ?, ?, ?, ?)`,
		len(tables.Counts), func(i int) []any {
			return countValues(tables.Counts[i])
		},
	); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit tables")
}

func (s *SQLiteStore) SaveFailures(ctx context.Context, runID string, failures []model.Failure) error {
	if len(failures) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertRows(ctx, tx, "parse_failures",
		`INSERT INTO parse_failures (run_id, kind, year, site_num, site_name, field, raw, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		len(failures), func(i int) []any {
			return append([]any{runID}, failureValues(failures[i])...)
		},
	); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit failures")
}

// helpers

func insertRows(ctx context.Context, tx *sql.Tx, table, query string, n int, values func(int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert %s", table)
	}
	defer stmt.Close() //nolint:errcheck

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, values(i)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert %s row %d", table, i)
		}
	}
	return nil
}

func inClause(years []int) (string, []any) {
	args := make([]any, len(years))
	for i, y := range years {
		args[i] = y
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(years)), ", "), args
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
