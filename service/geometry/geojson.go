package geometry

import (
	"fmt"
	"math"
	"os"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"
)

// UnmarshalGeometry, merging featureCollections and geometryCollections into a multipolygon
func UnmarshalGeometry(data []byte) (geom.Geometry, error) {
	var g geojson.Geometry
	if err := g.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("UnmarshalGeometry: %w", err)
	}
	switch geo := g.Geometry.(type) {
	case geojson.FeatureCollection:
		var mp geom.MultiPolygon
		for _, f := range geo.Features {
			mergeMultiPolygons(f.Geometry.Geometry, &mp)
		}
		return mp, nil
	case geojson.Feature:
		return geo.Geometry.Geometry, nil
	default:
		return g.Geometry, nil
	}
}

func mergeMultiPolygons(g geom.Geometry, mp *geom.MultiPolygon) {
	switch g := g.(type) {
	case geom.MultiPolygon:
		*mp = append(*mp, g.Polygons()...)
	case geom.Polygon:
		*mp = append(*mp, g.LinearRings())
	case geom.Collection:
		for _, g := range g.Geometries() {
			mergeMultiPolygons(g, mp)
		}
	}
}

// BBoxFromGeoJSON returns the envelope of the (multi)polygons of a GeoJSON geometry, feature or feature collection
func BBoxFromGeoJSON(data []byte) (BBox, error) {
	g, err := UnmarshalGeometry(data)
	if err != nil {
		return BBox{}, err
	}
	var mp geom.MultiPolygon
	mergeMultiPolygons(g, &mp)

	b := BBox{XMin: math.Inf(1), XMax: math.Inf(-1), YMin: math.Inf(1), YMax: math.Inf(-1)}
	for _, polygon := range mp {
		for _, ring := range polygon {
			for _, p := range ring {
				b.XMin, b.XMax = math.Min(b.XMin, p[0]), math.Max(b.XMax, p[0])
				b.YMin, b.YMax = math.Min(b.YMin, p[1]), math.Max(b.YMax, p[1])
			}
		}
	}
	if err := b.Validate(); err != nil {
		return BBox{}, fmt.Errorf("BBoxFromGeoJSON: no polygon or empty area: %w", err)
	}
	return b, nil
}

// BBoxFromGeoJSONFile reads a GeoJSON file and returns its envelope (see BBoxFromGeoJSON)
func BBoxFromGeoJSONFile(path string) (BBox, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BBox{}, fmt.Errorf("BBoxFromGeoJSONFile: %w", err)
	}
	return BBoxFromGeoJSON(data)
}
