package export

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bbc-census/internal/model"
)

// Sheet names of the workbook, in order.
const (
	SheetSites    = "sites"
	SheetCensus   = "census"
	SheetCounts   = "counts"
	SheetFailures = "failures"
)

// numericColumns are written as number cells; everything else is text.
// Counts stay text so the printed decimal is kept.
var numericColumns = map[string]bool{
	"site_id":     true,
	"site_num":    true,
	"year":        true,
	"latitude":    true,
	"longitude":   true,
	"established": true,
	"ts_length":   true,
	"cov_hours":   true,
	"cov_visits":  true,
	"richness":    true,
	"territories": true,
	"size_ha":     true,
}

// WriteWorkbook writes one sheet per table plus the failure report.
func WriteWorkbook(path string, tables model.Tables, failures []model.Failure) error {
	f := xlsx.NewFile()

	sheets := []struct {
		name    string
		records func() ([][]string, error)
	}{
		{SheetSites, func() ([][]string, error) { return Records(tables.Sites) }},
		{SheetCensus, func() ([][]string, error) { return Records(tables.Census) }},
		{SheetCounts, func() ([][]string, error) { return Records(tables.Counts) }},
		{SheetFailures, func() ([][]string, error) { return Records(failures) }},
	}

	for _, s := range sheets {
		records, err := s.records()
		if err != nil {
			return err
		}
		if err := addSheet(f, s.name, records); err != nil {
			return err
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	return nil
}

func addSheet(f *xlsx.File, name string, records [][]string) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}
	if len(records) == 0 {
		return nil
	}

	header := records[0]
	for i, rec := range records {
		row := sheet.AddRow()
		for j, v := range rec {
			cell := row.AddCell()
			if i == 0 || !numericColumns[header[j]] {
				cell.SetString(v)
				continue
			}
			setNumber(cell, v)
		}
	}
	return nil
}

func setNumber(cell *xlsx.Cell, v string) {
	if n, err := strconv.Atoi(v); err == nil {
		cell.SetInt(n)
		return
	}
	if x, err := strconv.ParseFloat(v, 64); err == nil {
		cell.SetFloat(x)
		return
	}
	cell.SetString(v)
}
