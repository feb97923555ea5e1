// Package spatial converts census coordinates to geometries.
//
// Census coordinates are printed as unsigned degrees north and west; every
// study plot lies in the western hemisphere, so longitude is negated on the
// way to any geometry.
package spatial

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID is WGS 84.
const SRID = 4326

// XY returns the signed planar coordinates of a census location.
func XY(lat, lon float64) (x, y float64) {
	return -lon, lat
}

// Point returns the location as a geom.Point with SRID 4326.
func Point(lat, lon float64) *geom.Point {
	x, y := XY(lat, lon)
	return geom.NewPointFlat(geom.XY, []float64{x, y}).SetSRID(SRID)
}

// EncodePoint returns the location as little-endian EWKB, ready to COPY into
// a PostGIS geometry column.
func EncodePoint(lat, lon float64) ([]byte, error) {
	data, err := ewkb.Marshal(Point(lat, lon), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "spatial: encode EWKB")
	}
	return data, nil
}
