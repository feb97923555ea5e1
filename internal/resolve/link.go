// Package resolve proposes links between sites censused in different years.
//
// Sites are grouped by an exact key of normalized name and printed
// coordinates. The grouping is lossy: distinct plots printed with the same
// name and coordinates are merged, and one plot whose name or coordinates
// changed between volumes is split. Ambiguities are reported so the links
// can be reviewed; the synthetic site IDs of the extracted tables are never
// rewritten.
package resolve

import (
	"slices"
	"strconv"
	"strings"

	"github.com/sells-group/bbc-census/internal/model"
)

// Ambiguity kinds.
const (
	// SharedLocation is a coordinate pair printed under more than one name.
	SharedLocation = "shared_location"
	// MovedName is a name printed at more than one coordinate pair.
	MovedName = "moved_name"
)

// Link assigns one extracted site to a candidate link ID.
type Link struct {
	SiteID    int     `csv:"site_id" json:"site_id"`
	Year      int     `csv:"year" json:"year"`
	SiteName  string  `csv:"site_name" json:"site_name"`
	Latitude  float64 `csv:"latitude" json:"latitude"`
	Longitude float64 `csv:"longitude" json:"longitude"`
	LinkID    int     `csv:"link_id" json:"link_id"`
	LinkKey   string  `csv:"link_key" json:"link_key"`
}

// Ambiguity flags a coordinate pair or name that spans several link IDs.
type Ambiguity struct {
	Kind    string `csv:"kind" json:"kind"`
	Key     string `csv:"key" json:"key"`
	LinkIDs string `csv:"link_ids" json:"link_ids"`
	Names   string `csv:"names" json:"names"`
	Years   string `csv:"years" json:"years"`
}

// Report is the result of linking.
type Report struct {
	Links       []Link
	Ambiguities []Ambiguity
	// Groups is the number of distinct link IDs.
	Groups int
}

type group struct {
	key   string
	ids   []int
	names []string
	years []int
}

func (g *group) add(id int, name string, year int) {
	if !slices.Contains(g.ids, id) {
		g.ids = append(g.ids, id)
	}
	if !slices.Contains(g.names, name) {
		g.names = append(g.names, name)
	}
	if !slices.Contains(g.years, year) {
		g.years = append(g.years, year)
	}
}

// LinkSites groups sites by exact (normalized name, latitude, longitude).
// Link IDs start at 1 and are assigned in first-seen order, so input in
// year order gives stable IDs.
func LinkSites(sites []model.SiteRow) Report {
	var (
		rep      Report
		linkIDs  = make(map[string]int)
		byCoord  = make(map[string]*group)
		byName   = make(map[string]*group)
		coordSeq []*group
		nameSeq  []*group
	)

	for _, s := range sites {
		name := NormalizeName(s.SiteName)
		coord := CoordKey(s.Latitude, s.Longitude)
		key := name + "|" + coord

		id, ok := linkIDs[key]
		if !ok {
			rep.Groups++
			id = rep.Groups
			linkIDs[key] = id
		}

		rep.Links = append(rep.Links, Link{
			SiteID:    s.SiteID,
			Year:      s.Year,
			SiteName:  s.SiteName,
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			LinkID:    id,
			LinkKey:   key,
		})

		cg, ok := byCoord[coord]
		if !ok {
			cg = &group{key: coord}
			byCoord[coord] = cg
			coordSeq = append(coordSeq, cg)
		}
		cg.add(id, name, s.Year)

		ng, ok := byName[name]
		if !ok {
			ng = &group{key: name}
			byName[name] = ng
			nameSeq = append(nameSeq, ng)
		}
		ng.add(id, name, s.Year)
	}

	for _, g := range coordSeq {
		if len(g.ids) > 1 {
			rep.Ambiguities = append(rep.Ambiguities, g.ambiguity(SharedLocation))
		}
	}
	for _, g := range nameSeq {
		if len(g.ids) > 1 {
			rep.Ambiguities = append(rep.Ambiguities, g.ambiguity(MovedName))
		}
	}

	return rep
}

func (g *group) ambiguity(kind string) Ambiguity {
	return Ambiguity{
		Kind:    kind,
		Key:     g.key,
		LinkIDs: joinInts(g.ids),
		Names:   strings.Join(g.names, "; "),
		Years:   joinInts(g.years),
	}
}

// CoordKey formats a coordinate pair to six decimals, enough to keep any two
// distinct degree-minute values apart.
func CoordKey(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', 6, 64) + "," + strconv.FormatFloat(lon, 'f', 6, 64)
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ";")
}
