// Package assemble flattens parsed site records into the sites, census and
// counts tables.
package assemble

import (
	"github.com/sells-group/bbc-census/internal/fields"
	"github.com/sells-group/bbc-census/internal/model"
	"github.com/sells-group/bbc-census/internal/parse"
)

// SiteRows are the rows contributed by one site.
type SiteRows struct {
	Site   model.SiteRow
	Census model.CensusRow
	Counts []model.CountRow
}

// Site builds the rows for one parsed record. The census list is required;
// the visitor list is optional.
func Site(rec model.SiteRecord, fm fields.FieldMap) (SiteRows, error) {
	rawCensus, ok := fm.Get(fields.Census)
	if !ok {
		return SiteRows{}, &parse.MissingFieldError{Field: fields.Census}
	}
	residents, err := parse.Census(rawCensus)
	if err != nil {
		return SiteRows{}, err
	}

	var visitors []model.SpeciesCount
	if rawVisitors, ok := fm.Get(fields.Visitors); ok {
		visitors = parse.Visitors(rawVisitors)
	}

	rows := SiteRows{
		Site:   siteRow(rec),
		Census: censusRow(rec),
		Counts: make([]model.CountRow, 0, len(residents)+len(visitors)),
	}
	for _, c := range residents {
		rows.Counts = append(rows.Counts, countRow(rec, c, model.StatusResident))
	}
	for _, c := range visitors {
		rows.Counts = append(rows.Counts, countRow(rec, c, model.StatusVisitor))
	}

	return rows, nil
}

func siteRow(rec model.SiteRecord) model.SiteRow {
	return model.SiteRow{
		SiteID:      rec.SiteID,
		SiteNum:     rec.SiteNum,
		Year:        rec.Year,
		SiteName:    rec.Name,
		Latitude:    rec.Latitude,
		Longitude:   rec.Longitude,
		Location:    rec.Location,
		Description: rec.Description,
		Edge:        rec.Edge,
		Topography:  rec.Topography,
	}
}

func censusRow(rec model.SiteRecord) model.CensusRow {
	return model.CensusRow{
		SiteID:      rec.SiteID,
		SiteName:    rec.Name,
		SiteNum:     rec.SiteNum,
		Year:        rec.Year,
		Established: rec.Continuity.Established,
		TSLength:    rec.Continuity.Length,
		CovHours:    rec.Coverage.Hours,
		CovVisits:   rec.Coverage.Visits,
		CovTimes:    rec.Coverage.Times,
		CovNotes:    rec.Coverage.Notes,
		Richness:    rec.Total.Species,
		Territories: rec.Total.Territories,
		TerrNotes:   rec.Total.Notes,
		Weather:     nonEmpty(rec.Weather),
		SizeHa:      rec.SizeHa,
		Remarks:     nonEmpty(rec.Remarks),
	}
}

func countRow(rec model.SiteRecord, c model.SpeciesCount, status model.Status) model.CountRow {
	return model.CountRow{
		SiteID:  rec.SiteID,
		Year:    rec.Year,
		Species: c.Species,
		Count:   c.Count,
		Status:  status,
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Builder accumulates rows for the three tables in document order.
type Builder struct {
	tables model.Tables
}

// Add appends one site's rows.
func (b *Builder) Add(rows SiteRows) {
	b.tables.Sites = append(b.tables.Sites, rows.Site)
	b.tables.Census = append(b.tables.Census, rows.Census)
	b.tables.Counts = append(b.tables.Counts, rows.Counts...)
}

// Merge appends another set of tables after the rows already added.
func (b *Builder) Merge(t model.Tables) {
	b.tables.Sites = append(b.tables.Sites, t.Sites...)
	b.tables.Census = append(b.tables.Census, t.Census...)
	b.tables.Counts = append(b.tables.Counts, t.Counts...)
}

// Tables returns the accumulated tables and resets the builder.
func (b *Builder) Tables() model.Tables {
	t := b.tables
	b.tables = model.Tables{}
	return t
}
