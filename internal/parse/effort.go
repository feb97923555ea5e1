package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/bbc-census/internal/fields"
	"github.com/sells-group/bbc-census/internal/model"
)

// LastStudyHoursYear is the last volume that reported effort as
// "N visits; H study-hours" rather than "H h; N visits".
const LastStudyHoursYear = 1988

var (
	coverageRe        = regexp.MustCompile(`([0-9]{1,3}\.{0,1}[0-9]{0,2}) h; ([0-9]{1,2}) [V|v]isits(.*)`)
	coverageHoursRe   = regexp.MustCompile(`([0-9]{1,3}\.{0,1}[0-9]{0,2}) h`)
	studyHoursRe      = regexp.MustCompile(`([0-9]{1,3}) [V|v]isits; ([0-9]{1,3}(?:\.[0-9]{1,2})?) study[-|—]hours;?(.*)`)
	studyHoursOnlyRe  = regexp.MustCompile(`([0-9]{1,3}(?:\.[0-9]{1,2})?) study[-|—]hours`)
	sizeArtifacts     = strings.NewReplacer(".]", "1", ".?)", "3")
	continuityDropper = strings.NewReplacer("yr.", "", "consecutive", "", "intermittent", "")
)

// Size returns the plot area in hectares from text like "8.1 ha (20 acres)."
func Size(raw string) (float64, error) {
	s := raw
	if i := strings.Index(s, "ha"); i >= 0 {
		s = s[:i]
	}
	s = sizeArtifacts.Replace(s)
	s = strings.Trim(s, " .\n")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fieldErr(fields.Size, raw, "not a number of hectares")
	}
	return v, nil
}

// Coverage parses survey effort. The grammar depends on the volume year:
// through LastStudyHoursYear visits come first and hours are "study-hours".
func Coverage(raw string, year int) (model.Coverage, error) {
	s := CleanString(raw)

	var hours, visits, notes string
	if year <= LastStudyHoursYear {
		if m := studyHoursRe.FindStringSubmatch(s); m != nil {
			visits, hours, notes = m[1], m[2], m[3]
		} else if m := studyHoursOnlyRe.FindStringSubmatch(s); m != nil {
			hours = m[1]
		}
	} else {
		if m := coverageRe.FindStringSubmatch(s); m != nil {
			hours, visits, notes = m[1], m[2], m[3]
		} else if m := coverageHoursRe.FindStringSubmatch(s); m != nil {
			hours = m[1]
		}
	}

	if hours == "" {
		return model.Coverage{}, fieldErr(fields.Coverage, raw, "no hours or visits")
	}

	var cov model.Coverage
	h, err := strconv.ParseFloat(strings.TrimSuffix(hours, "."), 64)
	if err != nil {
		return model.Coverage{}, fieldErr(fields.Coverage, raw, "bad hours")
	}
	cov.Hours = &h

	if visits != "" {
		v, err := strconv.Atoi(visits)
		if err != nil {
			return model.Coverage{}, fieldErr(fields.Coverage, raw, "bad visit count")
		}
		cov.Visits = &v
	}

	if n := strings.TrimSpace(notes); n != "" {
		cov.Notes = &n
		if times := visitTimes(n); times != "" {
			cov.Times = &times
		}
	}

	return cov, nil
}

// visitTimes returns the text after the first semicolon outside parentheses,
// which is where the visit dates are listed.
func visitTimes(notes string) string {
	depth := 0
	for i, r := range notes {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				return strings.TrimSpace(notes[i+1:])
			}
		}
	}
	return ""
}

// Continuity parses how long the plot has been surveyed. "New" plots were
// established in the volume's year and have a one-year series.
func Continuity(raw string, year int) (model.Continuity, error) {
	s := CleanString(raw)
	if strings.Contains(s, "New") {
		return model.Continuity{Established: year, Length: 1}, nil
	}

	var parts []string
	switch {
	case strings.Contains(s, ";"):
		parts = strings.Split(s, ";")
	case strings.Contains(s, ","):
		parts = strings.Split(s, ",")
	default:
		parts = strings.Split(s, " ")
	}
	if len(parts) != 2 {
		return model.Continuity{}, fieldErr(fields.Continuity, raw, "expected established year and length")
	}

	est := strings.TrimSpace(strings.ReplaceAll(parts[0], "Established", ""))
	length := strings.TrimSpace(continuityDropper.Replace(parts[1]))

	e, err := strconv.Atoi(est)
	if err != nil {
		return model.Continuity{}, fieldErr(fields.Continuity, raw, "bad established year")
	}
	l, err := strconv.Atoi(length)
	if err != nil {
		return model.Continuity{}, fieldErr(fields.Continuity, raw, "bad series length")
	}

	return model.Continuity{Established: e, Length: l}, nil
}
