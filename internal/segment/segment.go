// Package segment splits a year's combined census text into per-site blocks.
package segment

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// headerRe matches a site header such as "12. MIXED UPLAND HARDWOODS".
var headerRe = regexp.MustCompile(`^([0-9]{1,2})\. ([A-Z —\-]{2,})`)

// blockStarts are the line prefixes that open a site's data block.
var blockStarts = []string{"Location: ", "Site Number: "}

// RawBlock is the unparsed text of one site.
type RawBlock struct {
	SiteNum  int
	SiteName string
	// Text runs from the last block-start line after the header to the next
	// header or end of input. Blank lines are dropped; other lines keep their
	// terminators. Text is empty when the site never reached a block start.
	Text string
	// Line is the 1-based line number of the site header.
	Line int
}

type state int

const (
	seekingSite state = iota
	seekingBlock
	recording
)

type site struct {
	num  int
	name string
	line int
}

// Segmenter is a line-driven state machine that yields one RawBlock per site header.
type Segmenter struct {
	year   int
	log    *zap.Logger
	state  state
	cur    *site
	buf    strings.Builder
	blocks []RawBlock
}

// NewSegmenter creates a segmenter for one census year.
func NewSegmenter(year int) *Segmenter {
	return &Segmenter{
		year: year,
		log:  zap.L().With(zap.String("component", "segment"), zap.Int("year", year)),
	}
}

// Feed consumes one line, including its terminator if it has one.
func (s *Segmenter) Feed(lineNo int, line string) {
	if m := headerRe.FindStringSubmatch(line); m != nil {
		s.flush()
		num, _ := strconv.Atoi(m[1])
		s.cur = &site{num: num, name: m[2], line: lineNo}
		s.state = seekingBlock
		s.log.Info("site header",
			zap.Int("site_num", num),
			zap.String("site_name", strings.TrimSpace(m[2])),
			zap.Int("line", lineNo),
		)
		return
	}

	if s.state == seekingSite {
		return
	}

	// A repeated block start inside the same site restarts accumulation.
	if isBlockStart(line) {
		s.buf.Reset()
		s.buf.WriteString(line)
		s.state = recording
		return
	}

	if s.state == recording && strings.TrimSpace(line) != "" {
		s.buf.WriteString(line)
	}
}

// Close finalizes the site in progress and returns every block in document order.
func (s *Segmenter) Close() []RawBlock {
	s.flush()
	blocks := s.blocks
	s.blocks = nil
	s.state = seekingSite
	return blocks
}

func (s *Segmenter) flush() {
	if s.cur == nil {
		return
	}
	text := ""
	if s.state == recording {
		text = s.buf.String()
	}
	s.blocks = append(s.blocks, RawBlock{
		SiteNum:  s.cur.num,
		SiteName: s.cur.name,
		Text:     text,
		Line:     s.cur.line,
	})
	s.cur = nil
	s.buf.Reset()
}

func isBlockStart(line string) bool {
	for _, p := range blockStarts {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// Scan reads r to the end and returns its site blocks.
func Scan(ctx context.Context, r io.Reader, year int) ([]RawBlock, error) {
	seg := NewSegmenter(year)
	br := bufio.NewReader(r)

	for lineNo := 1; ; lineNo++ {
		if lineNo%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "segment: scan cancelled")
			}
		}

		line, err := br.ReadString('\n')
		if line != "" {
			seg.Feed(lineNo, line)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "segment: read line %d", lineNo)
		}
	}

	return seg.Close(), nil
}
