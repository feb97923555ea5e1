package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bbc-census/internal/export"
	"github.com/sells-group/bbc-census/internal/extract"
	"github.com/sells-group/bbc-census/internal/normalize"
	"github.com/sells-group/bbc-census/internal/resolve"
)

const (
	linksCSV       = "links.csv"
	ambiguitiesCSV = "link_ambiguities.csv"
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Report candidate links of sites across years",
	Long: `Groups the extracted site rows of all years by normalized name and exact
coordinates and assigns each group a candidate link ID (links.csv).

Names are compared after upper-casing, dropping punctuation and turning
dashes into spaces, so OCR variants such as "Old Field." and "OLD FIELD" or
"OAK—HICKORY" and "Oak-Hickory" at the same coordinates share one link.
The site_name column keeps each row's printed name.

The grouping is lossy: a site that was renamed or re-surveyed at slightly
different coordinates gets a new ID, and distinct sites printed with the same
name and coordinates are merged. Coordinates shared by several names and
names seen at several coordinates are listed in link_ambiguities.csv.
Site IDs in the extracted tables are never rewritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "link"))

		stringFlag(cmd, "input", &cfg.Census.InputDir)
		stringFlag(cmd, "out", &cfg.Export.Dir)
		if err := cfg.Validate("link"); err != nil {
			return err
		}
		years, err := yearsFlag(cmd)
		if err != nil {
			return err
		}
		rules, err := normalize.Resolve(cfg.Census.RulesPath)
		if err != nil {
			return err
		}

		runner := extract.NewRunner(rules,
			extract.DirSource{Dir: cfg.Census.InputDir, Pattern: cfg.Census.CombinedPattern},
			extract.WithConcurrency(cfg.Census.Concurrency),
		)
		res, err := runner.Run(ctx, years)
		if err != nil {
			return eris.Wrap(err, "link")
		}

		report := resolve.LinkSites(res.Tables.Sites)
		if err := writeLinkReport(cfg.Export.Dir, report); err != nil {
			return err
		}

		log.Info("link report written",
			zap.Int("sites", len(report.Links)),
			zap.Int("groups", report.Groups),
			zap.Int("ambiguities", len(report.Ambiguities)),
		)
		fmt.Printf("%d site rows, %d candidate sites, %d ambiguities\n",
			len(report.Links), report.Groups, len(report.Ambiguities))
		return nil
	},
}

func init() {
	linkCmd.Flags().String("years", "", "years to link, e.g. 1988-1995")
	linkCmd.Flags().String("input", "", "directory holding the combined volume text")
	linkCmd.Flags().String("out", "", "output directory")
	rootCmd.AddCommand(linkCmd)
}

func writeLinkReport(dir string, report resolve.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "link: create dir %s", dir)
	}
	if err := export.WriteCSV(filepath.Join(dir, linksCSV), report.Links); err != nil {
		return err
	}
	return export.WriteCSV(filepath.Join(dir, ambiguitiesCSV), report.Ambiguities)
}
