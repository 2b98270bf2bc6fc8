// Package geo converts between latitude/longitude pairs and the WKB point
// stored in the shops table and projected into index geopoints.
package geo

import (
	"encoding/binary"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"marketapi/internal/apperr"
)

// Geometry is a WKB-encoded point with X=longitude, Y=latitude.
type Geometry []byte

// Point is a decoded coordinate pair.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Validate checks that lat and lon are within the WGS84 range.
func Validate(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return apperr.Validation("geo.encode", fmt.Sprintf("latitude %v out of range [-90, 90]", lat))
	}
	if lon < -180 || lon > 180 {
		return apperr.Validation("geo.encode", fmt.Sprintf("longitude %v out of range [-180, 180]", lon))
	}
	return nil
}

// Encode validates the pair and returns its WKB geometry.
// NaN fails both range checks and is rejected.
func Encode(lat, lon float64) (Geometry, error) {
	if !(lat >= -90 && lat <= 90) || !(lon >= -180 && lon <= 180) {
		if err := Validate(lat, lon); err != nil {
			return nil, err
		}
		return nil, apperr.Validation("geo.encode", "coordinates must be numbers")
	}
	p := geom.NewPointFlat(geom.XY, []float64{lon, lat})
	b, err := wkb.Marshal(p, binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("marshal point: %w", err)
	}
	return b, nil
}

// Decode returns the point held by g, or nil when g is empty.
func Decode(g Geometry) (*Point, error) {
	if len(g) == 0 {
		return nil, nil
	}
	t, err := wkb.Unmarshal(g)
	if err != nil {
		return nil, fmt.Errorf("unmarshal point: %w", err)
	}
	p, ok := t.(*geom.Point)
	if !ok {
		return nil, fmt.Errorf("unexpected geometry %T", t)
	}
	if p.Empty() {
		return nil, nil
	}
	return &Point{Lat: p.Y(), Lon: p.X()}, nil
}

// Pair returns the point as [lat, lon], the order the search index expects.
func (p Point) Pair() []float64 { return []float64{p.Lat, p.Lon} }
