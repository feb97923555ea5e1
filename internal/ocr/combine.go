package ocr

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// page is one per-page file of a volume, e.g. BBC1990-12.txt.
type page struct {
	path string
	page int
}

// pageFiles lists the files in dir named prefix-N.ext (or prefix.ext for a
// single-page volume) in numeric page order, so page 10 follows page 9.
func pageFiles(dir, prefix, ext string) ([]page, error) {
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `(?:-(\d+))?` + regexp.QuoteMeta(ext) + `$`)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "ocr: read dir %s", dir)
	}

	var pages []page
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n := 0
		if m[1] != "" {
			n, _ = strconv.Atoi(m[1])
		}
		pages = append(pages, page{path: filepath.Join(dir, e.Name()), page: n})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].page < pages[j].page })
	return pages, nil
}

// VolumePrefix is the file-name stem of a year's scanned volume.
func VolumePrefix(year int) string {
	return "BBC" + strconv.Itoa(year)
}

// CombineYear concatenates the per-page text files of year found in dir
// into outPath. Pages are numbered from zero, so every page before
// pageStart-1 (the front matter ahead of the first census account) is left
// out. Source pages are never modified. Returns the number of pages written.
func CombineYear(dir, outPath string, year, pageStart int) (int, error) {
	pages, err := pageFiles(dir, VolumePrefix(year), ".txt")
	if err != nil {
		return 0, err
	}

	first := pageStart - 1
	kept := pages[:0]
	for _, p := range pages {
		if p.page >= first {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return 0, eris.Errorf("ocr: no pages for %d in %s", year, dir)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return 0, eris.Wrapf(err, "ocr: create %s", outPath)
	}
	w := bufio.NewWriter(out)

	for _, p := range kept {
		data, err := os.ReadFile(p.path)
		if err != nil {
			out.Close() //nolint:errcheck
			return 0, eris.Wrapf(err, "ocr: read page %s", p.path)
		}
		if _, err := w.Write(data); err != nil {
			out.Close() //nolint:errcheck
			return 0, eris.Wrapf(err, "ocr: write %s", outPath)
		}
	}
	if err := w.Flush(); err != nil {
		out.Close() //nolint:errcheck
		return 0, eris.Wrapf(err, "ocr: flush %s", outPath)
	}
	if err := out.Close(); err != nil {
		return 0, eris.Wrapf(err, "ocr: close %s", outPath)
	}

	zap.L().Info("combined volume",
		zap.String("component", "ocr"),
		zap.Int("year", year),
		zap.Int("pages", len(kept)),
		zap.Int("skipped", len(pages)-len(kept)),
		zap.String("path", outPath),
	)
	return len(kept), nil
}

// Preparer turns the scanned volumes in Dir into combined per-year text.
type Preparer struct {
	Dir string
	// Combined is the output file-name pattern; "{year}" is replaced.
	Combined string
	// Extractor runs OCR on BBC{year}.pdf first when set; otherwise the
	// per-page text files must already exist.
	Extractor Extractor
	PageStart func(year int) int
}

// Prepare produces the combined text file for year and returns its path.
func (p Preparer) Prepare(ctx context.Context, year int) (string, error) {
	if p.Extractor != nil {
		pdf := filepath.Join(p.Dir, VolumePrefix(year)+".pdf")
		if _, err := p.Extractor.ExtractPages(ctx, pdf); err != nil {
			return "", err
		}
	}

	start := 1
	if p.PageStart != nil {
		start = p.PageStart(year)
	}
	out := filepath.Join(p.Dir, strings.ReplaceAll(p.Combined, "{year}", strconv.Itoa(year)))
	if _, err := CombineYear(p.Dir, out, year, start); err != nil {
		return "", err
	}
	return out, nil
}
