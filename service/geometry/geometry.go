package geometry

import (
	"fmt"
	"math"

	"github.com/go-spatial/geom"
	geomwkt "github.com/go-spatial/geom/encoding/wkt"
	"github.com/paulsmith/gogeos/geos"
)

// BBox is an axis-aligned bounding box in geographic coordinates
type BBox struct {
	XMin, XMax, YMin, YMax float64
}

// Validate returns an error if the bbox is empty, inverted or not finite
func (b BBox) Validate() error {
	for _, v := range []float64{b.XMin, b.XMax, b.YMin, b.YMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid bbox %v: coordinates must be finite", b)
		}
	}
	if b.XMin >= b.XMax {
		return fmt.Errorf("invalid bbox %v: xmin must be lower than xmax", b)
	}
	if b.YMin >= b.YMax {
		return fmt.Errorf("invalid bbox %v: ymin must be lower than ymax", b)
	}
	return nil
}

// Ring returns the closed exterior ring of the bbox (5 points, counter-clockwise)
func (b BBox) Ring() [][2]float64 {
	return [][2]float64{
		{b.XMin, b.YMin},
		{b.XMax, b.YMin},
		{b.XMax, b.YMax},
		{b.XMin, b.YMax},
		{b.XMin, b.YMin},
	}
}

// Polygon returns the bbox as a polygon
func (b BBox) Polygon() geom.Polygon {
	return geom.Polygon{b.Ring()}
}

// WKT returns the polygon of the bbox as Well-Known Text
func (b BBox) WKT() (string, error) {
	wkt, err := geomwkt.EncodeString(b.Polygon())
	if err != nil {
		return "", fmt.Errorf("BBox.WKT: %w", err)
	}
	return wkt, nil
}

// Geos validates the bbox and returns its polygon as a geos.Geometry
func (b BBox) Geos() (*geos.Geometry, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	wkt, err := b.WKT()
	if err != nil {
		return nil, err
	}
	g, err := geos.FromWKT(wkt)
	if err != nil {
		return nil, fmt.Errorf("BBox.Geos.FromWKT: %w", err)
	}
	return g, nil
}

// Generates a geom.Geometry from a geos.Geometry
func GeosToGeom(g *geos.Geometry) (geom.Geometry, error) {
	wkt, err := g.ToWKT()
	if err != nil {
		return nil, fmt.Errorf("GeosToGeom.ToWKT: %w", err)
	}
	geometry, err := geomwkt.DecodeString(wkt)
	if err != nil {
		return nil, fmt.Errorf("GeosToGeom.DecodeString: %w", err)
	}

	return geometry, nil
}

// Intersects returns true if the footprint (WKT) intersects the aoi
func Intersects(aoi *geos.Geometry, footprintWKT string) (bool, error) {
	footprint, err := geos.FromWKT(footprintWKT)
	if err != nil {
		return false, fmt.Errorf("Intersects.FromWKT: %w", err)
	}
	ok, err := aoi.Intersects(footprint)
	if err != nil {
		return false, fmt.Errorf("Intersects: %w", err)
	}
	return ok, nil
}
