package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/airbusgeo/force-prep/common"
	"github.com/airbusgeo/force-prep/service/geometry"
	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"
	"github.com/go-spatial/geom/encoding/wkt"
)

// Scene is a product found in the catalog
type Scene struct {
	SourceID    string            `json:"source_id"`
	Date        time.Time         `json:"date"`
	CloudCover  float64           `json:"cloud_cover"`
	Tags        map[string]string `json:"tags,omitempty"`
	GeometryWKT string            `json:"wkt,omitempty"`
}

// Scenes is a list of scenes, exported as a GeoJSON FeatureCollection
type Scenes []*Scene

// SceneQuery is the input of the catalog
type SceneQuery struct {
	AOI       geometry.BBox `json:"bbox"`
	StartDate time.Time     `json:"start_date"`
	EndDate   time.Time     `json:"end_date"`
	Sensors   []string      `json:"sensors"`
	Tiers     []common.Tier `json:"tiers"`
	MaxCloud  float64       `json:"max_cloud"`
}

// Date returns the calendar date year-month-day (UTC).
// Out-of-range values are rejected instead of being normalized.
func Date(year, month, day int) (time.Time, error) {
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02d", year, month, day)
	}
	return d, nil
}

// Validate checks the bbox, the date range and the filters of the query
func (q *SceneQuery) Validate() error {
	if err := q.AOI.Validate(); err != nil {
		return err
	}
	if q.StartDate.IsZero() || q.EndDate.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if q.EndDate.Before(q.StartDate) {
		return fmt.Errorf("end date %s is before start date %s", q.EndDate.Format("2006-01-02"), q.StartDate.Format("2006-01-02"))
	}
	if len(q.Sensors) == 0 {
		return fmt.Errorf("at least one sensor is required")
	}
	for _, s := range q.Sensors {
		if _, err := common.SensorPlatform(s); err != nil {
			return err
		}
	}
	for _, t := range q.Tiers {
		if !t.IsATier() {
			return fmt.Errorf("invalid tier %v", t)
		}
	}
	if q.MaxCloud < 0 {
		return fmt.Errorf("max cloud cover must be positive: %f", q.MaxCloud)
	}
	return nil
}

// IDs returns the identifiers of the scenes in the same order
func (s Scenes) IDs() []string {
	ids := make([]string, len(s))
	for i, scene := range s {
		ids[i] = scene.SourceID
	}
	return ids
}

// MarshalJSON exports the scenes as a GeoJSON FeatureCollection
func (s Scenes) MarshalJSON() ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]geojson.Feature, 0, len(s))}
	for i, scene := range s {
		id := uint64(i)
		f := geojson.Feature{
			ID: &id,
			Properties: map[string]interface{}{
				"source_id":   scene.SourceID,
				"date":        scene.Date,
				"cloud_cover": scene.CloudCover,
				"tags":        scene.Tags,
			},
		}
		f.Geometry = geojson.Geometry{Geometry: geom.Collection{}}
		if scene.GeometryWKT != "" {
			g, err := wkt.DecodeString(scene.GeometryWKT)
			if err != nil {
				return nil, fmt.Errorf("Scenes.MarshalJSON[%s]: %w", scene.SourceID, err)
			}
			f.Geometry = geojson.Geometry{Geometry: g}
		}
		fc.Features = append(fc.Features, f)
	}
	return json.Marshal(fc)
}
