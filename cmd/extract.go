package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bbc-census/internal/export"
	"github.com/sells-group/bbc-census/internal/extract"
	"github.com/sells-group/bbc-census/internal/model"
	"github.com/sells-group/bbc-census/internal/normalize"
	"github.com/sells-group/bbc-census/internal/store"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract census tables from combined volume text",
	Long: `Reads bbc_combined_{year}.txt for each year, parses every site account and
writes the sites, census and counts tables plus a failure report.

Sites that cannot be parsed are skipped and listed in failures.csv.
Use --store to also persist the tables and a run record.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		stringFlag(cmd, "input", &cfg.Census.InputDir)
		stringFlag(cmd, "out", &cfg.Export.Dir)
		stringFlag(cmd, "store", &cfg.Store.Driver)
		stringFlag(cmd, "rules", &cfg.Census.RulesPath)
		if cmd.Flags().Changed("format") {
			cfg.Export.Formats, _ = cmd.Flags().GetStringSlice("format")
		}
		if err := cfg.Validate("extract"); err != nil {
			return err
		}

		years, err := yearsFlag(cmd)
		if err != nil {
			return err
		}
		formats, err := export.ParseFormats(cfg.Export.Formats)
		if err != nil {
			return err
		}
		rules, err := normalize.Resolve(cfg.Census.RulesPath)
		if err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return err
			}
		}

		runner := extract.NewRunner(rules,
			extract.DirSource{Dir: cfg.Census.InputDir, Pattern: cfg.Census.CombinedPattern},
			extract.WithConcurrency(cfg.Census.Concurrency),
		)
		exp := export.Exporter{Dir: cfg.Export.Dir, Formats: formats}

		res, err := runExtract(ctx, runner, exp, st, years)
		if err != nil {
			return err
		}

		formatYearSummaries(os.Stdout, res.Years)
		return nil
	},
}

func init() {
	extractCmd.Flags().String("years", "", "years to extract, e.g. 1990 or 1988-1995 (default census.start_year-census.end_year)")
	extractCmd.Flags().String("input", "", "directory holding the combined volume text")
	extractCmd.Flags().String("out", "", "export directory")
	extractCmd.Flags().StringSlice("format", nil, "export formats: csv, xlsx, shp")
	extractCmd.Flags().String("store", "", "persist to store: none, sqlite, postgres")
	extractCmd.Flags().String("rules", "", "normalization rule file (default compiled-in rules)")
	rootCmd.AddCommand(extractCmd)
}

// runExtract runs the pipeline over years, exports the result and, when st
// is non-nil, records the run and saves the tables.
func runExtract(ctx context.Context, runner *extract.Runner, exp export.Exporter, st store.Store, years []int) (*extract.Result, error) {
	log := zap.L().With(zap.String("command", "extract"), zap.Ints("years", years))

	var run *model.Run
	if st != nil {
		r, err := st.StartRun(ctx, years)
		if err != nil {
			return nil, eris.Wrap(err, "extract: start run")
		}
		run = r
		log = log.With(zap.String("run_id", run.ID))
	}

	fail := func(err error) (*extract.Result, error) {
		if run != nil {
			if ferr := st.FailRun(ctx, run.ID, err); ferr != nil {
				log.Warn("extract: failed to record run failure", zap.Error(ferr))
			}
		}
		return nil, err
	}

	log.Info("starting extract", zap.Int("concurrency", cfg.Census.Concurrency))

	res, err := runner.Run(ctx, years)
	if err != nil {
		return fail(eris.Wrap(err, "extract"))
	}

	paths, err := exp.Write(res.Tables, res.Failures)
	if err != nil {
		return fail(err)
	}

	if run != nil {
		if err := st.SaveTables(ctx, years, res.Tables); err != nil {
			return fail(err)
		}
		if err := st.SaveFailures(ctx, run.ID, res.Failures); err != nil {
			return fail(err)
		}
		store.Totals(run, res.Tables, res.Failures)
		if err := st.CompleteRun(ctx, run); err != nil {
			return nil, eris.Wrap(err, "extract: complete run")
		}
	}

	log.Info("extract complete",
		zap.Int("sites", len(res.Tables.Sites)),
		zap.Int("census", len(res.Tables.Census)),
		zap.Int("counts", len(res.Tables.Counts)),
		zap.Int("failures", len(res.Failures)),
		zap.Strings("files", paths),
	)
	return res, nil
}

// formatYearSummaries writes one line per processed year to w.
func formatYearSummaries(out io.Writer, years []model.YearSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "YEAR\tSITES\tPARSED\tFAILED\tCOUNTS\tRULES")
	var total model.YearSummary
	for _, y := range years {
		_, _ = fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\n", y.Year, y.Sites, y.Parsed, y.Failed, y.Counts, y.RulesHit)
		total.Sites += y.Sites
		total.Parsed += y.Parsed
		total.Failed += y.Failed
		total.Counts += y.Counts
		total.RulesHit += y.RulesHit
	}
	_, _ = fmt.Fprintf(w, "TOTAL\t%d\t%d\t%d\t%d\t%d\n", total.Sites, total.Parsed, total.Failed, total.Counts, total.RulesHit)
	_ = w.Flush()
}
