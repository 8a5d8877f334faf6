package catalog

import (
	"context"

	"github.com/airbusgeo/force-prep/catalog/entities"
	"github.com/paulsmith/gogeos/geos"
)

// ScenesProvider searches a catalog for the scenes matching the query and intersecting the aoi.
// Scenes are returned in catalog order.
type ScenesProvider interface {
	SearchScenes(ctx context.Context, query *entities.SceneQuery, aoi geos.Geometry) (entities.Scenes, error)
}
