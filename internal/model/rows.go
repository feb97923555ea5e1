package model

// Status records whether a species held territory on the plot.
type Status string

const (
	StatusResident Status = "resident"
	StatusVisitor  Status = "visitor"
)

// SiteRow is one row of the sites table.
type SiteRow struct {
	SiteID      int     `csv:"site_id" json:"site_id"`
	SiteNum     int     `csv:"site_num" json:"site_num"`
	Year        int     `csv:"year" json:"year"`
	SiteName    string  `csv:"site_name" json:"site_name"`
	Latitude    float64 `csv:"latitude" json:"latitude"`
	Longitude   float64 `csv:"longitude" json:"longitude"`
	Location    string  `csv:"location" json:"location"`
	Description string  `csv:"description" json:"description"`
	Edge        string  `csv:"edge" json:"edge"`
	Topography  string  `csv:"topography" json:"topography"`
}

// CensusRow is one row of the per-site-per-year census table.
type CensusRow struct {
	SiteID      int      `csv:"site_id" json:"site_id"`
	SiteName    string   `csv:"site_name" json:"site_name"`
	SiteNum     int      `csv:"site_num" json:"site_num"`
	Year        int      `csv:"year" json:"year"`
	Established int      `csv:"established" json:"established"`
	TSLength    int      `csv:"ts_length" json:"ts_length"`
	CovHours    *float64 `csv:"cov_hours" json:"cov_hours"`
	CovVisits   *int     `csv:"cov_visits" json:"cov_visits"`
	CovTimes    *string  `csv:"cov_times" json:"cov_times"`
	CovNotes    *string  `csv:"cov_notes" json:"cov_notes"`
	Richness    int      `csv:"richness" json:"richness"`
	Territories float64  `csv:"territories" json:"territories"`
	TerrNotes   string   `csv:"terr_notes" json:"terr_notes"`
	Weather     *string  `csv:"weather" json:"weather"`
	SizeHa      float64  `csv:"size_ha" json:"size_ha"`
	Remarks     *string  `csv:"remarks" json:"remarks"`
}

// CountRow is one species entry of the counts table. Count is kept as the
// printed decimal string and is nil for visitors.
type CountRow struct {
	SiteID  int     `csv:"site_id" json:"site_id"`
	Year    int     `csv:"year" json:"year"`
	Species string  `csv:"species" json:"species"`
	Count   *string `csv:"count" json:"count"`
	Status  Status  `csv:"status" json:"status"`
}

// Tables holds the three output tables.
type Tables struct {
	Sites  []SiteRow
	Census []CensusRow
	Counts []CountRow
}

// Years returns the distinct years present in the census table, in first-seen order.
func (t Tables) Years() []int {
	seen := make(map[int]bool)
	var years []int
	for _, r := range t.Census {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	return years
}
