package store

import "github.com/sells-group/bbc-census/internal/model"

var (
	siteColumns = []string{
		"site_id", "site_num", "year", "site_name", "latitude", "longitude",
		"location", "description", "edge", "topography",
	}
	censusColumns = []string{
		"site_id", "site_name", "site_num", "year", "established", "ts_length",
		"cov_hours", "cov_visits", "cov_times", "cov_notes", "richness",
		"territories", "terr_notes", "weather", "size_ha", "remarks",
	}
	countColumns   = []string{"site_id", "year", "species", "count", "status"}
	failureColumns = []string{"run_id", "kind", "year", "site_num", "site_name", "field", "raw", "message"}
)

func siteValues(r model.SiteRow) []any {
	return []any{r.SiteID, r.SiteNum, r.Year, r.SiteName, r.Latitude, r.Longitude, r.Location, r.Description, r.Edge, r.Topography}
}

func censusValues(r model.CensusRow) []any {
	return []any{
		r.SiteID, r.SiteName, r.SiteNum, r.Year, r.Established, r.TSLength,
		r.CovHours, r.CovVisits, r.CovTimes, r.CovNotes, r.Richness,
		r.Territories, r.TerrNotes, r.Weather, r.SizeHa, r.Remarks,
	}
}

func countValues(r model.CountRow) []any {
	return []any{r.SiteID, r.Year, r.Species, r.Count, string(r.Status)}
}

// failureValues omits run_id, the first of failureColumns.
func failureValues(f model.Failure) []any {
	return []any{string(f.Kind), f.Year, f.SiteNum, f.SiteName, f.Field, f.Raw, f.Message}
}
