package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/bbc-census/internal/normalize"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect OCR normalization rules",
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a normalization rule file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		stringFlag(cmd, "rules", &cfg.Census.RulesPath)
		rs, err := normalize.Resolve(cfg.Census.RulesPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d rules OK\n", rs.Len())
		return nil
	},
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List normalization rules in application order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		stringFlag(cmd, "rules", &cfg.Census.RulesPath)
		rs, err := normalize.Resolve(cfg.Census.RulesPath)
		if err != nil {
			return err
		}
		formatRules(cmd.OutOrStdout(), rs.Rules())
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{rulesCheckCmd, rulesListCmd} {
		c.Flags().String("rules", "", "rule file (default compiled-in rules)")
		rulesCmd.AddCommand(c)
	}
	rootCmd.AddCommand(rulesCmd)
}

// formatRules writes a table of rules to out. Match and replacement are
// quoted so whitespace and stray punctuation stay visible.
func formatRules(out io.Writer, rules []normalize.Rule) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tMATCH\tREPLACE\tNOTE")
	for i, r := range rules {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, strconv.Quote(r.Match), strconv.Quote(r.Replace), r.Note)
	}
	_ = w.Flush()
}
