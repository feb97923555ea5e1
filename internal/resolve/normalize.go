package resolve

import (
	"regexp"
	"strings"
)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// nameReplacer drops punctuation and turns dashes into spaces, so
// "OAK—HICKORY", "OAK-HICKORY" and "OAK HICKORY" agree.
var nameReplacer = strings.NewReplacer(
	",", "",
	".", "",
	"'", "",
	"’", "",
	"\"", "",
	"&", "AND",
	"-", " ",
	"—", " ",
	"–", " ",
)

// NormalizeName standardizes a site name for matching by:
//  1. Trimming whitespace
//  2. Converting to uppercase
//  3. Stripping punctuation and splitting on dashes
//  4. Collapsing multiple spaces into single spaces
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	name = strings.ToUpper(name)
	name = nameReplacer.Replace(name)
	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
