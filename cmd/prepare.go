package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bbc-census/internal/ocr"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Build combined per-year text from scanned volume pages",
	Long: `Concatenates the per-page OCR text BBC{year}-{page}.txt of each year into
bbc_combined_{year}.txt, leaving out the front matter before the year's first
census page (census.page_starts). Page files are never modified.

With --ocr, BBC{year}.pdf is first rasterized with ImageMagick and each page
recognized with tesseract.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "prepare"))

		stringFlag(cmd, "input", &cfg.Census.InputDir)
		if err := cfg.Validate("prepare"); err != nil {
			return err
		}
		years, err := yearsFlag(cmd)
		if err != nil {
			return err
		}

		p := ocr.Preparer{
			Dir:       cfg.Census.InputDir,
			Combined:  cfg.Census.CombinedPattern,
			PageStart: cfg.Census.PageStart,
		}
		if runOCR, _ := cmd.Flags().GetBool("ocr"); runOCR {
			ext, err := ocr.NewExtractor(cfg.OCR)
			if err != nil {
				return err
			}
			p.Extractor = ext
		}

		for _, year := range years {
			path, err := p.Prepare(ctx, year)
			if err != nil {
				return eris.Wrapf(err, "prepare %d", year)
			}
			log.Info("prepared volume", zap.Int("year", year), zap.String("path", path))
			fmt.Println(path)
		}
		return nil
	},
}

func init() {
	prepareCmd.Flags().String("years", "", "years to prepare, e.g. 1990 or 1988-1995")
	prepareCmd.Flags().String("input", "", "directory holding the scanned volumes and page text")
	prepareCmd.Flags().Bool("ocr", false, "run OCR on BBC{year}.pdf before combining")
	rootCmd.AddCommand(prepareCmd)
}
