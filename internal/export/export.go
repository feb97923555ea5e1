// Package export writes the extracted tables to files: one CSV per table, a
// single XLSX workbook, and a point shapefile of site locations.
package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bbc-census/internal/model"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatSHP  Format = "shp"
)

// Output file names.
const (
	SitesCSV    = "sites.csv"
	CensusCSV   = "census.csv"
	CountsCSV   = "counts.csv"
	FailuresCSV = "failures.csv"
	Workbook    = "bbc_census.xlsx"
	SitesSHP    = "sites.shp"
)

// ParseFormats validates format names. Names are case-insensitive and
// duplicates are dropped.
func ParseFormats(names []string) ([]Format, error) {
	seen := make(map[Format]bool, len(names))
	var out []Format
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		switch f {
		case FormatCSV, FormatXLSX, FormatSHP:
		default:
			return nil, eris.Errorf("export: unknown format %q", n)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Exporter writes tables into Dir in each of Formats.
type Exporter struct {
	Dir     string
	Formats []Format
}

// Write exports tables and failures and returns the paths written.
func (e Exporter) Write(tables model.Tables, failures []model.Failure) ([]string, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create %s", e.Dir)
	}
	log := zap.L().With(zap.String("component", "export"), zap.String("dir", e.Dir))

	var paths []string
	for _, f := range e.Formats {
		var (
			written []string
			err     error
		)
		switch f {
		case FormatCSV:
			written, err = e.writeCSV(tables, failures)
		case FormatXLSX:
			p := filepath.Join(e.Dir, Workbook)
			written, err = []string{p}, WriteWorkbook(p, tables, failures)
		case FormatSHP:
			p := filepath.Join(e.Dir, SitesSHP)
			written, err = []string{p}, WriteSites(p, tables.Sites)
		default:
			err = eris.Errorf("export: unknown format %q", f)
		}
		if err != nil {
			return paths, err
		}
		for _, p := range written {
			log.Info("wrote export", zap.String("format", string(f)), zap.String("path", p))
		}
		paths = append(paths, written...)
	}
	return paths, nil
}

func (e Exporter) writeCSV(tables model.Tables, failures []model.Failure) ([]string, error) {
	paths := []string{
		filepath.Join(e.Dir, SitesCSV),
		filepath.Join(e.Dir, CensusCSV),
		filepath.Join(e.Dir, CountsCSV),
		filepath.Join(e.Dir, FailuresCSV),
	}
	if err := WriteCSV(paths[0], tables.Sites); err != nil {
		return nil, err
	}
	if err := WriteCSV(paths[1], tables.Census); err != nil {
		return nil, err
	}
	if err := WriteCSV(paths[2], tables.Counts); err != nil {
		return nil, err
	}
	if err := WriteCSV(paths[3], failures); err != nil {
		return nil, err
	}
	return paths, nil
}
