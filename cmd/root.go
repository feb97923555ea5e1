package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bbc-census/internal/config"
)

// cfg is loaded once per invocation, before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bbc-census",
	Short: "Turn Breeding Bird Census OCR text into site, census and count tables",
	Long: `bbc-census reads the OCR text of the yearly Breeding Bird Census volumes
and writes one row per site, one census row per site and one row per
species count. Settings come from config.yaml in the working directory and
BBC_* environment variables; --log-level overrides log.level for one run.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "override log.level (debug, info, warn, error)")
}

func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "bbc-census: load config")
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		c.Log.Level = lvl
	}
	if err := config.InitLogger(c.Log); err != nil {
		return eris.Wrap(err, "bbc-census: init logger")
	}
	cfg = c
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
