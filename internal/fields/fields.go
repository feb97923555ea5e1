// Package fields splits a site block into labeled raw values using the
// census's fixed label vocabulary.
package fields

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bbc-census/internal/model"
	"github.com/sells-group/bbc-census/internal/segment"
)

// Labels used in site reports.
const (
	SiteNumber      = "Site Number"
	Location        = "Location"
	Continuity      = "Continuity"
	Size            = "Size"
	Description     = "Description of Plot"
	Edge            = "Edge"
	Topography      = "Topography and Elevation"
	Weather         = "Weather"
	Coverage        = "Coverage"
	Census          = "Census"
	Total           = "Total"
	Visitors        = "Visitors"
	NestsFound      = "Nests Found"
	Remarks         = "Remarks"
	OtherObservers  = "Other Observers"
	Acknowledgments = "Acknowledgments"
)

// Vocabulary is the closed set of labels the tokenizer splits on.
var Vocabulary = []string{
	SiteNumber, Location, Continuity, Size, Description, Edge, Topography,
	Weather, Coverage, Census, Total, Visitors, NestsFound, Remarks,
	OtherObservers, Acknowledgments,
}

var labelRe = buildLabelRe(Vocabulary)

func buildLabelRe(labels []string) *regexp.Regexp {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = regexp.QuoteMeta(l)
	}
	return regexp.MustCompile(`(` + strings.Join(quoted, "|") + `):`)
}

// FieldMap is the sparse label to raw value mapping of one site.
type FieldMap struct {
	SiteNum  int
	SiteName string
	SiteID   int
	Year     int
	Values   map[string]string
	// Order lists labels in the order they appeared.
	Order []string
}

// Get returns the raw value for a label.
func (fm FieldMap) Get(label string) (string, bool) {
	v, ok := fm.Values[label]
	return v, ok
}

// Has reports whether a label was present.
func (fm FieldMap) Has(label string) bool {
	_, ok := fm.Values[label]
	return ok
}

// MalformedBlockError means a block could not be split into label/value pairs.
type MalformedBlockError struct {
	Reason string
	Text   string
}

func (e *MalformedBlockError) Error() string {
	return fmt.Sprintf("fields: malformed block: %s", e.Reason)
}

// Tokenize splits a block into its labeled values. Text before the first
// label is discarded. Values are raw; cleanup is left to the field parsers.
func Tokenize(block segment.RawBlock, year int) (FieldMap, error) {
	fm := FieldMap{
		SiteNum:  block.SiteNum,
		SiteName: block.SiteName,
		SiteID:   model.SiteID(block.SiteNum, year),
		Year:     year,
		Values:   make(map[string]string),
	}

	pairs, err := pairSegments(split(block.Text))
	if err != nil {
		return fm, &MalformedBlockError{Reason: err.Error(), Text: block.Text}
	}

	for _, p := range pairs {
		if _, dup := fm.Values[p.label]; dup {
			return fm, &MalformedBlockError{
				Reason: fmt.Sprintf("label %q appears more than once", p.label),
				Text:   block.Text,
			}
		}
		fm.Values[p.label] = p.value
		fm.Order = append(fm.Order, p.label)
	}

	return fm, nil
}

type pair struct {
	label string
	value string
}

// pairSegments groups alternating label/value segments.
func pairSegments(segs []string) ([]pair, error) {
	if len(segs)%2 != 0 {
		return nil, eris.Errorf("odd segment count %d", len(segs))
	}
	pairs := make([]pair, 0, len(segs)/2)
	for i := 0; i < len(segs); i += 2 {
		pairs = append(pairs, pair{label: segs[i], value: segs[i+1]})
	}
	return pairs, nil
}

// split returns alternating label and value segments, dropping the text
// before the first label.
func split(text string) []string {
	locs := labelRe.FindAllStringSubmatchIndex(text, -1)
	segs := make([]string, 0, 2*len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		segs = append(segs, text[loc[2]:loc[3]], text[loc[1]:end])
	}
	return segs
}
