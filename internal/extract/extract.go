// Package extract runs the census text pipeline: segment each year's text
// into site blocks, then normalize, tokenize, parse and assemble every site.
// A site that fails is recorded and skipped; it never stops its year.
package extract

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bbc-census/internal/assemble"
	"github.com/sells-group/bbc-census/internal/fields"
	"github.com/sells-group/bbc-census/internal/model"
	"github.com/sells-group/bbc-census/internal/normalize"
	"github.com/sells-group/bbc-census/internal/parse"
	"github.com/sells-group/bbc-census/internal/segment"
)

// Runner extracts census tables from a Source.
type Runner struct {
	rules       *normalize.RuleSet
	source      Source
	concurrency int
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency sets how many years are processed at once. Results are
// merged in ascending year order regardless.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(rules *normalize.RuleSet, source Source, opts ...Option) *Runner {
	r := &Runner{rules: rules, source: source, concurrency: 1}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Result is the outcome of a run.
type Result struct {
	Tables   model.Tables
	Failures []model.Failure
	Years    []model.YearSummary
}

// YearResult is the outcome of one census year.
type YearResult struct {
	Tables   model.Tables
	Failures []model.Failure
	Summary  model.YearSummary
}

// Run processes years in ascending order. Duplicate years are processed once.
func (r *Runner) Run(ctx context.Context, years []int) (*Result, error) {
	years = slices.Clone(years)
	slices.Sort(years)
	years = slices.Compact(years)

	results := make([]YearResult, len(years))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, year := range years {
		g.Go(func() error {
			rc, err := r.source.Open(year)
			if err != nil {
				return err
			}
			defer rc.Close() //nolint:errcheck

			blocks, err := segment.Scan(gctx, rc, year)
			if err != nil {
				return eris.Wrapf(err, "extract: segment %d", year)
			}

			res, err := r.ProcessYear(gctx, year, blocks)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		b   assemble.Builder
		out Result
	)
	for _, res := range results {
		b.Merge(res.Tables)
		out.Failures = append(out.Failures, res.Failures...)
		out.Years = append(out.Years, res.Summary)
	}
	out.Tables = b.Tables()

	return &out, nil
}

// ProcessYear turns one year's site blocks into rows. Sites are handled in
// document order.
func (r *Runner) ProcessYear(ctx context.Context, year int, blocks []segment.RawBlock) (YearResult, error) {
	log := zap.L().With(zap.String("component", "extract"), zap.Int("year", year))

	var (
		b   assemble.Builder
		res YearResult
	)
	res.Summary = model.YearSummary{Year: year, Sites: len(blocks)}

	// Site numbers already parsed this year. A reused number would give two
	// sites one ID, so the later block is failed whole.
	parsed := make(map[int]string)

	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return YearResult{}, eris.Wrapf(err, "extract: year %d cancelled", year)
		}

		rows, fired, err := r.processSite(log, year, block)
		res.Summary.RulesHit += fired
		if err == nil {
			if first, ok := parsed[block.SiteNum]; ok {
				err = &fields.MalformedBlockError{
					Reason: fmt.Sprintf("site number %d already used by %q", block.SiteNum, first),
					Text:   block.Text,
				}
			}
		}
		if err != nil {
			f := newFailure(year, block, err)
			log.Warn("site parse failed",
				zap.Int("site_num", f.SiteNum),
				zap.String("site_name", f.SiteName),
				zap.String("kind", string(f.Kind)),
				zap.String("field", f.Field),
				zap.String("raw", f.Raw),
				zap.Error(err),
			)
			res.Failures = append(res.Failures, f)
			res.Summary.Failed++
			continue
		}

		parsed[block.SiteNum] = rows.Site.SiteName
		b.Add(rows)
		res.Summary.Parsed++
		res.Summary.Counts += len(rows.Counts)
	}

	res.Tables = b.Tables()
	log.Info("year extracted",
		zap.Int("sites", res.Summary.Sites),
		zap.Int("parsed", res.Summary.Parsed),
		zap.Int("failed", res.Summary.Failed),
		zap.Int("counts", res.Summary.Counts),
	)

	return res, nil
}

func (r *Runner) processSite(log *zap.Logger, year int, block segment.RawBlock) (assemble.SiteRows, int, error) {
	norm := r.rules.Apply(block.Text)
	for _, f := range norm.Fired {
		log.Info("normalization rule fired",
			zap.Int("site_num", block.SiteNum),
			zap.String("match", f.Rule.Match),
			zap.String("replace", f.Rule.Replace),
			zap.Int("count", f.Count),
		)
	}
	if !norm.Converged {
		log.Warn("normalization did not converge", zap.Int("site_num", block.SiteNum))
	}
	block.Text = norm.Text

	fm, err := fields.Tokenize(block, year)
	if err != nil {
		return assemble.SiteRows{}, len(norm.Fired), err
	}
	rec, err := parse.Site(fm)
	if err != nil {
		return assemble.SiteRows{}, len(norm.Fired), err
	}
	rows, err := assemble.Site(rec, fm)
	if err != nil {
		return assemble.SiteRows{}, len(norm.Fired), err
	}

	return rows, len(norm.Fired), nil
}

func newFailure(year int, block segment.RawBlock, err error) model.Failure {
	f := model.Failure{
		Year:     year,
		SiteNum:  block.SiteNum,
		SiteName: parse.CleanString(block.SiteName),
		Message:  err.Error(),
	}

	var (
		mb *fields.MalformedBlockError
		fe *parse.FieldError
		mf *parse.MissingFieldError
	)
	switch {
	case errors.As(err, &mb):
		f.Kind = model.FailureMalformedBlock
		f.Raw = mb.Text
	case errors.As(err, &fe):
		f.Kind = model.FailureFieldParse
		f.Field = fe.Field
		f.Raw = fe.Raw
	case errors.As(err, &mf):
		f.Kind = model.FailureMissingField
		f.Field = mf.Field
		f.Raw = block.Text
	}

	return f
}
