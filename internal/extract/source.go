package extract

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Source opens the combined OCR text of a census year.
type Source interface {
	Open(year int) (io.ReadCloser, error)
}

// DirSource reads per-year files from a directory. Pattern names the file
// with a {year} placeholder, e.g. "bbc_combined_{year}.txt".
type DirSource struct {
	Dir     string
	Pattern string
}

// Path returns the file path for a year.
func (s DirSource) Path(year int) string {
	return filepath.Join(s.Dir, strings.ReplaceAll(s.Pattern, "{year}", strconv.Itoa(year)))
}

// Open implements Source.
func (s DirSource) Open(year int) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(year))
	if err != nil {
		return nil, eris.Wrapf(err, "extract: open %d volume", year)
	}
	return f, nil
}

// MapSource serves years from in-memory text.
type MapSource map[int]string

// Open implements Source.
func (s MapSource) Open(year int) (io.ReadCloser, error) {
	text, ok := s[year]
	if !ok {
		return nil, eris.Errorf("extract: no text for %d", year)
	}
	return io.NopCloser(strings.NewReader(text)), nil
}
