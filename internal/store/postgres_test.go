package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bbc-census/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_StartRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO bbc.extract_runs`).
		WithArgs(pgxmock.AnyArg(), []int{1990, 1991}, "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.StartRun(context.Background(), []int{1990, 1991})
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	run := &model.Run{ID: "run-1", Sites: 3, Census: 3, Counts: 4, Failures: 1}
	mock.ExpectExec(`UPDATE bbc.extract_runs SET status = \$1, sites`).
		WithArgs("complete", 3, 3, 4, 1, pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.CompleteRun(context.Background(), run))
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.NotNil(t, run.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FailRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE bbc.extract_runs SET status = \$1, error`).
		WithArgs("failed", "boom", pgxmock.AnyArg(), "run-9").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FailRun(context.Background(), "run-9", errors.New("boom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found: run-9")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id::text, years, status.* FROM bbc.extract_runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveTables(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	tables := testTables()
	tables.Sites = tables.Sites[:2]
	tables.Census = tables.Census[:2]
	tables.Counts = tables.Counts[:3]

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM bbc.sites WHERE year = ANY`).
		WithArgs([]int{1990}, []int{11990, 21990}).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM bbc.census WHERE year = ANY`).
		WithArgs([]int{1990}, []int{11990, 21990}).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	// sites upsert
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "sites_stage"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"sites_stage"}, append(append([]string{}, siteColumns...), "geom")).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "bbc"."sites" .* ON CONFLICT \("site_id"\)`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	// census upsert
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "census_stage"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"census_stage"}, censusColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "bbc"."census"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	// counts replace
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "bbc"."counts" WHERE "year" = ANY`).
		WithArgs([]int{1990}).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectCopyFrom(pgx.Identifier{"bbc", "counts"}, countColumns).WillReturnResult(3)
	mock.ExpectCommit()

	mock.ExpectCommit()

	require.NoError(t, s.SaveTables(context.Background(), []int{1990}, tables))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveTables_UpsertError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	tables := testTables()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM bbc.sites`).WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM bbc.census`).WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnError(errors.New("relation \"bbc.sites\" does not exist"))
	mock.ExpectRollback()
	mock.ExpectRollback()

	err := s.SaveTables(context.Background(), []int{1990, 1991}, tables)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: upsert sites")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveTables_NoYears(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	require.NoError(t, s.SaveTables(context.Background(), nil, testTables()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveFailures(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"bbc", "parse_failures"}, failureColumns).WillReturnResult(1)

	err := s.SaveFailures(context.Background(), "run-1", []model.Failure{
		{Kind: model.FailureMalformedBlock, Year: 1992, SiteNum: 1, SiteName: "DUPLICATE LABELS"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	names := []string{"001_create_bbc.sql", "002_extract_runs.sql"}

	mock.ExpectExec(`SELECT pg_advisory_lock`).WithArgs(migrationLockID).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS bbc`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(`SELECT filename FROM bbc.schema_migrations`).
		WillReturnRows(pgxmock.NewRows([]string{"filename"}))
	for _, name := range names {
		mock.ExpectExec(`.*`).WillReturnResult(pgxmock.NewResult("EXEC", 0))
		mock.ExpectExec(`INSERT INTO bbc.schema_migrations`).WithArgs(name).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectExec(`SELECT pg_advisory_unlock`).WithArgs(migrationLockID).WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	closed := false
	s := &PostgresStore{closeFn: func() { closed = true }}
	require.NoError(t, s.Close())
	assert.True(t, closed)

	require.NoError(t, (&PostgresStore{}).Close())
}
