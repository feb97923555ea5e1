package export

import (
	"encoding/csv"
	"os"
	"slices"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// WriteCSV writes rows to path with a header taken from the csv struct tags
// of T. The header is written even when rows is empty. Nil pointer fields
// are written as empty cells.
func WriteCSV[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := encode(w, rows); err != nil {
		return eris.Wrapf(err, "export: encode %s", path)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "export: flush %s", path)
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

// Records returns rows as string records, header first.
func Records[T any](rows []T) ([][]string, error) {
	var b recordBuffer
	if err := encode(&b, rows); err != nil {
		return nil, eris.Wrap(err, "export: encode records")
	}
	return b.records, nil
}

func encode[T any](w csvutil.Writer, rows []T) error {
	enc := csvutil.NewEncoder(w)
	var zero T
	if err := enc.EncodeHeader(zero); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return enc.Encode(rows)
}

type recordBuffer struct {
	records [][]string
}

func (b *recordBuffer) Write(record []string) error {
	b.records = append(b.records, slices.Clone(record))
	return nil
}
