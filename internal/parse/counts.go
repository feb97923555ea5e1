package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/bbc-census/internal/fields"
	"github.com/sells-group/bbc-census/internal/model"
)

var (
	totalRe         = regexp.MustCompile(`([0-9]{1,3}) species; ([0-9]{1,4}\.{0,1}[0-9]{0,1}) (territories|territorial males) \(([^)]+)\).`)
	parentheticalRe = regexp.MustCompile(`\([^)]+\)`)
	// commaDecimalRe catches a decimal point misread as a comma: "Veery, 12,5".
	commaDecimalRe = regexp.MustCompile(`, ([0-9]{1,2}),([0-9])`)
)

// Total parses "22 species; 85.5 territories (348.9 territories/km²)."
func Total(raw string) (model.Total, error) {
	s := CleanString(raw)
	m := totalRe.FindStringSubmatch(s)
	if m == nil {
		return model.Total{}, fieldErr(fields.Total, raw, "no species and territory totals")
	}

	species, err := strconv.Atoi(m[1])
	if err != nil {
		return model.Total{}, fieldErr(fields.Total, raw, "bad species count")
	}
	terr, err := strconv.ParseFloat(strings.TrimSuffix(m[2], "."), 64)
	if err != nil {
		return model.Total{}, fieldErr(fields.Total, raw, "bad territory count")
	}

	return model.Total{Species: species, Territories: terr, Notes: m[4]}, nil
}

// Census parses the resident species list, "Species, count; Species, count."
// Parenthetical notes and the word "territories" are ignored. Counts are kept
// as the printed decimal text.
func Census(raw string) ([]model.SpeciesCount, error) {
	s := parentheticalRe.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, "territories", "")

	var out []model.SpeciesCount
	for _, record := range strings.Split(s, ";") {
		if strings.TrimSpace(record) == "" {
			continue
		}

		var species, count string
		commas := strings.Count(record, ",")
		switch {
		case commas == 2:
			m := commaDecimalRe.FindStringSubmatch(record)
			if m == nil {
				return nil, fieldErr(fields.Census, record, "two commas without a split decimal")
			}
			species, _, _ = strings.Cut(record, ",")
			count = m[1] + "." + m[2]
		case commas == 0 && strings.Count(record, ".") == 2:
			species, count, _ = strings.Cut(record, ".")
		case commas == 1:
			species, count, _ = strings.Cut(record, ",")
		default:
			return nil, fieldErr(fields.Census, record, "cannot split species and count")
		}

		count = strings.Trim(count, " .\n")
		out = append(out, model.SpeciesCount{Species: CleanSpecies(species), Count: &count})
	}

	return out, nil
}

// Visitors parses the comma-separated list of species seen but not holding
// territory. Visitors have no count.
func Visitors(raw string) []model.SpeciesCount {
	var out []model.SpeciesCount
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSuffix(CleanSpecies(name), ".")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, model.SpeciesCount{Species: name})
	}
	return out
}
