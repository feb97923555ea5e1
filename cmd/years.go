package main

import (
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bbc-census/internal/config"
)

// parseYears parses a year list such as "1990", "1988-1995" or
// "1988,1990-1992" into ascending, distinct years. Years must fall within
// config.MinYear and config.MaxYear.
func parseYears(s string) ([]int, error) {
	var years []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, eris.Errorf("years: invalid year %q", part)
		}
		to := from
		if isRange {
			to, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, eris.Errorf("years: invalid year %q", part)
			}
		}
		if outsideWindow(from) || outsideWindow(to) {
			return nil, eris.Errorf("years: %q is outside %d-%d", part, config.MinYear, config.MaxYear)
		}
		if to < from {
			return nil, eris.Errorf("years: range %q ends before it starts", part)
		}
		for y := from; y <= to; y++ {
			years = append(years, y)
		}
	}
	if len(years) == 0 {
		return nil, eris.New("years: no years given")
	}
	slices.Sort(years)
	return slices.Compact(years), nil
}

func outsideWindow(y int) bool {
	return y < config.MinYear || y > config.MaxYear
}

// yearsFlag returns the --years flag when set, else the configured range.
func yearsFlag(cmd *cobra.Command) ([]int, error) {
	if f := cmd.Flags().Lookup("years"); f != nil && f.Changed {
		return parseYears(f.Value.String())
	}
	years := cfg.Census.Years()
	if len(years) == 0 {
		return nil, eris.Errorf("years: empty range %d-%d", cfg.Census.StartYear, cfg.Census.EndYear)
	}
	return years, nil
}

// stringFlag copies a changed string flag into dst.
func stringFlag(cmd *cobra.Command, name string, dst *string) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		*dst = f.Value.String()
	}
}
