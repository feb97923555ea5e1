// Package parse turns the raw labeled values of a site into typed fields.
// Each parser tolerates the OCR artifacts seen for its field and reports a
// FieldError when the text cannot be recovered.
package parse

import (
	"fmt"
	"strings"

	"github.com/sells-group/bbc-census/internal/fields"
	"github.com/sells-group/bbc-census/internal/model"
)

// FieldError means a field was present but its text did not parse.
type FieldError struct {
	Field  string
	Raw    string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("parse: %s: %s: %q", e.Field, e.Reason, e.Raw)
}

// MissingFieldError means a required label was absent from the block.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("parse: missing required field %q", e.Field)
}

func fieldErr(field, raw, reason string) *FieldError {
	return &FieldError{Field: field, Raw: raw, Reason: reason}
}

// CleanString joins hyphenated line breaks, flattens newlines and repairs
// the ".?)" misreading of ".3".
func CleanString(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "-\n", "")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "—\n", "")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, ".?)", ".3")
	return strings.TrimSpace(s)
}

// CleanSpecies flattens a species name, keeping hyphens that fall at a line break.
func CleanSpecies(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "-\n", "-")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// Site parses every field of a tokenized block into a SiteRecord.
// Location, Size, Continuity and Total are required.
func Site(fm fields.FieldMap) (model.SiteRecord, error) {
	rec := model.SiteRecord{
		SiteID:  fm.SiteID,
		SiteNum: fm.SiteNum,
		Year:    fm.Year,
		Name:    CleanString(fm.SiteName),
	}

	loc, err := required(fm, fields.Location)
	if err != nil {
		return rec, err
	}
	if rec.Latitude, rec.Longitude, err = Location(loc); err != nil {
		return rec, err
	}
	rec.Location = CleanString(loc)

	size, err := required(fm, fields.Size)
	if err != nil {
		return rec, err
	}
	if rec.SizeHa, err = Size(size); err != nil {
		return rec, err
	}

	cont, err := required(fm, fields.Continuity)
	if err != nil {
		return rec, err
	}
	if rec.Continuity, err = Continuity(cont, fm.Year); err != nil {
		return rec, err
	}

	total, err := required(fm, fields.Total)
	if err != nil {
		return rec, err
	}
	if rec.Total, err = Total(total); err != nil {
		return rec, err
	}

	if cov, ok := fm.Get(fields.Coverage); ok {
		if rec.Coverage, err = Coverage(cov, fm.Year); err != nil {
			return rec, err
		}
	}

	rec.Description = optional(fm, fields.Description)
	rec.Edge = optional(fm, fields.Edge)
	rec.Topography = optional(fm, fields.Topography)
	rec.Weather = optional(fm, fields.Weather)
	rec.Remarks = optional(fm, fields.Remarks)

	return rec, nil
}

func required(fm fields.FieldMap, label string) (string, error) {
	v, ok := fm.Get(label)
	if !ok {
		return "", &MissingFieldError{Field: label}
	}
	return v, nil
}

func optional(fm fields.FieldMap, label string) string {
	v, _ := fm.Get(label)
	return CleanString(v)
}
