package model

import "time"

// RunStatus represents the current state of an extraction run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// FailureKind classifies why a site was skipped.
type FailureKind string

const (
	FailureMalformedBlock FailureKind = "malformed_block"
	FailureFieldParse     FailureKind = "field_parse_failure"
	FailureMissingField   FailureKind = "missing_required_field"
)

// Failure is one skipped site. Failures are the raw material for new
// normalization rules, so the offending text is kept verbatim.
type Failure struct {
	Kind     FailureKind `csv:"kind" json:"kind"`
	Year     int         `csv:"year" json:"year"`
	SiteNum  int         `csv:"site_num" json:"site_num"`
	SiteName string      `csv:"site_name" json:"site_name"`
	Field    string      `csv:"field" json:"field"`
	Raw      string      `csv:"raw" json:"raw"`
	Message  string      `csv:"message" json:"message"`
}

// YearSummary counts what happened to one census year.
type YearSummary struct {
	Year     int `json:"year"`
	Sites    int `json:"sites"`
	Parsed   int `json:"parsed"`
	Failed   int `json:"failed"`
	Counts   int `json:"counts"`
	RulesHit int `json:"rules_hit"`
}

// Run is one extraction run as recorded by a store.
type Run struct {
	ID          string     `json:"id"`
	Years       []int      `json:"years"`
	Status      RunStatus  `json:"status"`
	Sites       int        `json:"sites"`
	Census      int        `json:"census"`
	Counts      int        `json:"counts"`
	Failures    int        `json:"failures"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
