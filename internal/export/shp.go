package export

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bbc-census/internal/model"
	"github.com/sells-group/bbc-census/internal/spatial"
)

// wgs84 is the .prj for EPSG:4326.
const wgs84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

const nameSize = 254

// Attribute fields of the sites shapefile. DBF names are limited to 10 bytes.
var siteFields = []shp.Field{
	shp.NumberField("SITE_ID", 10),
	shp.NumberField("SITE_NUM", 4),
	shp.NumberField("YEAR", 4),
	shp.StringField("NAME", nameSize),
	shp.FloatField("LAT", 12, 6),
	shp.FloatField("LON", 12, 6),
}

// WriteSites writes a point shapefile (.shp, .shx, .dbf, .prj) with one
// point per site. Longitudes are written west-negative.
func WriteSites(path string, sites []model.SiteRow) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}

	if err := w.SetFields(siteFields); err != nil {
		w.Close()
		return eris.Wrap(err, "export: set shapefile fields")
	}

	for _, s := range sites {
		x, y := spatial.XY(s.Latitude, s.Longitude)
		row := int(w.Write(&shp.Point{X: x, Y: y}))
		for field, value := range []any{s.SiteID, s.SiteNum, s.Year, truncate(s.SiteName, nameSize), y, x} {
			if err := w.WriteAttribute(row, field, value); err != nil {
				w.Close()
				return eris.Wrapf(err, "export: write attribute %d of site %d", field, s.SiteID)
			}
		}
	}
	w.Close()

	prj := strings.TrimSuffix(path, ".shp") + ".prj"
	if err := os.WriteFile(prj, []byte(wgs84), 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", prj)
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
