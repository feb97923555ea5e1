package ocr

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bbc-census/internal/config"
)

// runFunc runs an external command.
type runFunc func(ctx context.Context, name string, args ...string) error

// Tesseract rasterizes PDFs with ImageMagick convert and recognizes each
// page image with the tesseract CLI.
type Tesseract struct {
	convertPath   string
	tesseractPath string
	density       int
	crop          string
	run           runFunc
}

// NewTesseract creates a Tesseract extractor. Empty binary paths fall back
// to "convert" and "tesseract" on PATH.
func NewTesseract(cfg config.OCRConfig) *Tesseract {
	t := &Tesseract{
		convertPath:   cfg.ConvertPath,
		tesseractPath: cfg.TesseractPath,
		density:       cfg.Density,
		crop:          cfg.Crop,
		run:           runCommand,
	}
	if t.convertPath == "" {
		t.convertPath = "convert"
	}
	if t.tesseractPath == "" {
		t.tesseractPath = "tesseract"
	}
	if t.density <= 0 {
		t.density = 350
	}
	return t
}

// ExtractPages converts pdfPath to page images (BBC1990.pdf gives
// BBC1990-0.png, BBC1990-1.png, ...) and OCRs each into a .txt beside it.
func (t *Tesseract) ExtractPages(ctx context.Context, pdfPath string) ([]string, error) {
	log := zap.L().With(zap.String("component", "ocr"), zap.String("pdf", pdfPath))
	base := strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath))

	args := []string{"-density", strconv.Itoa(t.density)}
	if t.crop != "" {
		args = append(args, "-crop", t.crop)
	}
	args = append(args, pdfPath, base+".png")
	if err := t.run(ctx, t.convertPath, args...); err != nil {
		return nil, eris.Wrapf(err, "ocr: convert %s", pdfPath)
	}

	images, err := pageFiles(filepath.Dir(base), filepath.Base(base), ".png")
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, eris.Errorf("ocr: convert produced no images for %s", pdfPath)
	}

	texts := make([]string, 0, len(images))
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return texts, eris.Wrap(err, "ocr: cancelled")
		}
		out := strings.TrimSuffix(img.path, ".png")
		// tesseract appends .txt to the output base itself.
		if err := t.run(ctx, t.tesseractPath, img.path, out); err != nil {
			return texts, eris.Wrapf(err, "ocr: tesseract %s", img.path)
		}
		texts = append(texts, out+".txt")
		log.Debug("page recognized", zap.Int("page", img.page))
	}

	log.Info("volume recognized", zap.Int("pages", len(texts)))
	return texts, nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return eris.Wrapf(err, "%s: %s", name, strings.TrimSpace(stderr.String()))
	}
	return nil
}
