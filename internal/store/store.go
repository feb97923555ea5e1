// Package store persists extracted census tables and the extraction run log.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bbc-census/internal/config"
	"github.com/sells-group/bbc-census/internal/model"
)

// Store defines the persistence interface for extraction runs.
type Store interface {
	// Runs
	StartRun(ctx context.Context, years []int) (*model.Run, error)
	CompleteRun(ctx context.Context, run *model.Run) error
	FailRun(ctx context.Context, runID string, runErr error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)

	// Tables. SaveTables replaces every stored row of the given years, so a
	// year that is re-extracted never leaves stale or duplicate rows.
	SaveTables(ctx context.Context, years []int, tables model.Tables) error
	SaveFailures(ctx context.Context, runID string, failures []model.Failure) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store selected by cfg.Driver. Driver "none" returns a nil
// Store and no error.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// checkUniqueSites rejects tables that hold two site or census rows with
// the same ID. Count rows carry only the site ID, so once two sites share
// one their counts can no longer be told apart.
func checkUniqueSites(t model.Tables) error {
	seen := make(map[int]string, len(t.Sites))
	for _, s := range t.Sites {
		if first, ok := seen[s.SiteID]; ok {
			return eris.Errorf("store: duplicate site id %d (%q and %q)", s.SiteID, first, s.SiteName)
		}
		seen[s.SiteID] = s.SiteName
	}

	census := make(map[int]bool, len(t.Census))
	for _, c := range t.Census {
		if census[c.SiteID] {
			return eris.Errorf("store: duplicate census row for site id %d", c.SiteID)
		}
		census[c.SiteID] = true
	}
	return nil
}

// Totals fills the row and failure counts of run from an extraction result.
func Totals(run *model.Run, t model.Tables, failures []model.Failure) {
	run.Sites = len(t.Sites)
	run.Census = len(t.Census)
	run.Counts = len(t.Counts)
	run.Failures = len(failures)
}
