// Package model holds the records produced by census extraction.
package model

// SiteIDFactor separates the site number from the year in a synthetic census site ID.
const SiteIDFactor = 10000

// SiteID returns the synthetic census site ID for a site number in a year.
// Site 12 in 1990 becomes 121990.
func SiteID(siteNum, year int) int {
	return siteNum*SiteIDFactor + year
}

// SplitSiteID reverses SiteID.
func SplitSiteID(id int) (siteNum, year int) {
	return id / SiteIDFactor, id % SiteIDFactor
}

// Coverage is the survey effort reported for a site.
type Coverage struct {
	Hours  *float64
	Visits *int
	Notes  *string
	// Times holds the visit dates when the notes list them after a semicolon.
	Times *string
}

// Continuity describes how long a plot has been surveyed.
type Continuity struct {
	Established int
	Length      int
}

// Total summarizes species richness and territory density.
type Total struct {
	Species     int
	Territories float64
	Notes       string
}

// SiteRecord is one fully parsed site report for a year.
type SiteRecord struct {
	SiteID     int
	SiteNum    int
	Year       int
	Name       string
	Latitude   float64
	Longitude  float64
	SizeHa     float64
	Coverage   Coverage
	Continuity Continuity
	Total      Total

	Location    string
	Description string
	Edge        string
	Topography  string
	Weather     string
	Remarks     string
}

// SpeciesCount is one entry of a census or visitor list.
type SpeciesCount struct {
	Species string
	Count   *string
}
