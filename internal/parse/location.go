package parse

import (
	"regexp"
	"strconv"

	"github.com/sells-group/bbc-census/internal/fields"
)

// coordRe matches "41°4'N, 76°7’W" and its common misreadings: the degree
// sign read as 0, 5 or C, curly or straight minute marks, optional seconds,
// and W read as V, ; or a period. The longitude degrees are matched lazily so
// "76050'" splits as 76, misread sign, 50 while "121°46'" still takes three
// digits.
var coordRe = regexp.MustCompile(`([0-9]{1,2})[ ]*[°05C]([0-9]{1,2})[ ]*[’|'|‘][0-9]{0,2}["|”]{0,1}N,[ |\n]([0-9]{2,3}?)[ ]*[°05C]([0-9]{1,2})[ ]*[’|'|‘][0-9]{0,2}["|”]{0,1}[W|V|;|.]`)

// Location extracts decimal latitude and longitude. Longitude is returned
// as printed, a positive number of degrees west.
func Location(raw string) (lat, lon float64, err error) {
	m := coordRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, fieldErr(fields.Location, raw, "no coordinate pair")
	}

	latDeg, _ := strconv.Atoi(m[1])
	latMin, _ := strconv.Atoi(m[2])
	lonDeg, _ := strconv.Atoi(m[3])
	lonMin, _ := strconv.Atoi(m[4])

	if latMin >= 60 || lonMin >= 60 {
		return 0, 0, fieldErr(fields.Location, raw, "minutes out of range")
	}

	lat = float64(latDeg) + float64(latMin)/60
	lon = float64(lonDeg) + float64(lonMin)/60
	if lat > 90 || lon > 180 {
		return 0, 0, fieldErr(fields.Location, raw, "coordinate out of range")
	}

	return lat, lon, nil
}
