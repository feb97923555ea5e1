// Package ocr turns scanned census volumes into the combined per-year text
// files the extractor reads.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bbc-census/internal/config"
)

// Extractor recognizes the text of a scanned PDF volume.
type Extractor interface {
	// ExtractPages writes one text file per page next to the PDF and returns
	// their paths in page order.
	ExtractPages(ctx context.Context, pdfPath string) ([]string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "tesseract", "":
		return NewTesseract(cfg), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
