package landsataws

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"
	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/paulsmith/gogeos/geos"

	"github.com/airbusgeo/force-prep/catalog/entities"
	"github.com/airbusgeo/force-prep/common"
	"github.com/airbusgeo/force-prep/service"
	"github.com/airbusgeo/force-prep/service/geometry"
	"github.com/airbusgeo/force-prep/service/log"
)

const (
	LandsatAwsURL         = "https://landsatlook.usgs.gov/stac-server/search"
	LandsatCollectionC2L1 = "landsat-c2l1"
	LandsatCatalogLimit   = 1000
	// maximum number of pages followed
	maxPages = 1000
)

type AWSSearchData struct {
	Features       []LandsatFeature `json:"features"`
	Links          []Link           `json:"links"`
	NumberMatched  int              `json:"numberMatched"`
	NumberReturned int              `json:"numberReturned"`
}

type Link struct {
	Body   map[string]interface{} `json:"body"`
	Href   string                 `json:"href"`
	Method string                 `json:"method"`
	Rel    string                 `json:"rel"`
}

type LandsatFeature struct {
	Id         string                 `json:"id"`
	Properties map[string]interface{} `json:"properties"`
	Geometry   *geojson.Geometry      `json:"geometry"`
}

type awsSearch struct {
	Intersects  geojson.Geometry       `json:"intersects"`
	Query       map[string]interface{} `json:"query,omitempty"`
	Datetime    string                 `json:"datetime"`
	Collections []string               `json:"collections"`
	Limit       int                    `json:"limit,omitempty"`
}

// Provider searches the USGS LandsatLook STAC server
type Provider struct {
	// URL of the STAC search endpoint (default: LandsatAwsURL)
	URL string
	// Limit is the number of features per page (default: LandsatCatalogLimit)
	Limit int
}

// SearchScenes implements catalog.ScenesProvider
func (s *Provider) SearchScenes(ctx context.Context, query *entities.SceneQuery, aoi geos.Geometry) (entities.Scenes, error) {
	if err := query.Validate(); err != nil {
		return nil, service.MakeFatal(fmt.Errorf("SearchScenes(LandsatAws): %w", err))
	}
	url, limit := s.URL, s.Limit
	if url == "" {
		url = LandsatAwsURL
	}
	if limit == 0 {
		limit = LandsatCatalogLimit
	}
	aoiGeom, err := geometry.GeosToGeom(&aoi)
	if err != nil {
		return nil, fmt.Errorf("SearchScenes(LandsatAws).%w", err)
	}

	req, err := newSearch(query, aoiGeom)
	if err != nil {
		return nil, fmt.Errorf("SearchScenes(LandsatAws).%w", err)
	}
	req.Limit = limit

	landsatFeatures, err := queryLandsatAws(ctx, url, req)
	if err != nil {
		return nil, fmt.Errorf("SearchScenes(LandsatAws).%w", err)
	}

	scenes := make(entities.Scenes, 0, len(landsatFeatures))
	for _, landsatFeature := range landsatFeatures {
		if !hasSensorPrefix(landsatFeature.Id, query.Sensors) {
			continue
		}
		scene, err := newScene(landsatFeature)
		if err != nil {
			return nil, fmt.Errorf("SearchScenes(LandsatAws).%w", err)
		}
		if scene.GeometryWKT != "" {
			ok, err := geometry.Intersects(&aoi, scene.GeometryWKT)
			if err != nil {
				return nil, fmt.Errorf("SearchScenes(LandsatAws)[%s].%w", scene.SourceID, err)
			}
			if !ok {
				log.Logger(ctx).Sugar().Debugf("%s does not intersect the area", scene.SourceID)
				continue
			}
		}
		scenes = append(scenes, scene)
	}
	log.Logger(ctx).Sugar().Debugf("LandsatAws: %d scenes found (%d features)", len(scenes), len(landsatFeatures))
	return scenes, nil
}

// newSearch converts the query into a STAC search request
func newSearch(query *entities.SceneQuery, aoi geom.Geometry) (awsSearch, error) {
	req := awsSearch{
		Intersects:  geojson.Geometry{Geometry: aoi},
		Query:       map[string]interface{}{},
		Datetime:    query.StartDate.Format("2006-01-02") + "T00:00:00.000Z/" + query.EndDate.Format("2006-01-02") + "T23:59:59.999Z",
		Collections: []string{LandsatCollectionC2L1},
	}

	platforms := service.StringSet{}
	var platformList []string
	for _, sensor := range query.Sensors {
		platform, err := common.SensorPlatform(sensor)
		if err != nil {
			return req, service.MakeFatal(err)
		}
		if !platforms.Exists(platform) {
			platforms.Push(platform)
			platformList = append(platformList, platform)
		}
	}
	req.Query["platform"] = map[string][]string{"in": platformList}

	if len(query.Tiers) > 0 {
		tiers := make([]string, len(query.Tiers))
		for i, t := range query.Tiers {
			tiers[i] = t.String()
		}
		req.Query["landsat:collection_category"] = map[string][]string{"in": tiers}
	}
	req.Query["eo:cloud_cover"] = map[string]float64{"lte": query.MaxCloud}
	return req, nil
}

func newScene(f LandsatFeature) (*entities.Scene, error) {
	properties := f.Properties
	if properties == nil {
		properties = map[string]interface{}{}
	}
	datetime, _ := properties["datetime"].(string)
	date, err := time.Parse(time.RFC3339Nano, datetime)
	if err != nil {
		if date, err = common.GetDateFromProductId(f.Id); err != nil {
			return nil, fmt.Errorf("parse datetime property of %s: %w", f.Id, err)
		}
	}
	cloudCover, _ := properties["eo:cloud_cover"].(float64)

	scene := &entities.Scene{
		SourceID:   f.Id,
		Date:       date,
		CloudCover: cloudCover,
		Tags: map[string]string{
			common.TagSourceID:                 f.Id,
			common.TagAcquisitionDate:          date.Format(time.RFC3339),
			common.TagCloudCoverPercentage:     fmt.Sprintf("%v", cloudCover),
			common.TagLandCloudCoverPercentage: formatProperty(properties["landsat:cloud_cover_land"]),
			common.TagPlatform:                 formatProperty(properties["platform"]),
			common.TagTier:                     formatProperty(properties["landsat:collection_category"]),
			common.TagSunAzimuth:               formatProperty(properties["view:sun_azimuth"]),
			common.TagSunElevation:             formatProperty(properties["view:sun_elevation"]),
			common.TagWRSPath:                  formatProperty(properties["landsat:wrs_path"]),
			common.TagWRSRow:                   formatProperty(properties["landsat:wrs_row"]),
		},
	}
	if len(f.Id) >= 2 {
		scene.Tags[common.TagProductType] = fmt.Sprintf("%s_C%s_%s", f.Id[0:2], formatProperty(properties["landsat:collection_number"]), formatProperty(properties["landsat:correction"]))
	}
	if f.Geometry != nil && f.Geometry.Geometry != nil {
		if scene.GeometryWKT, err = wkt.EncodeString(f.Geometry.Geometry); err != nil {
			return nil, fmt.Errorf("encode geometry of %s: %w", f.Id, err)
		}
	}
	return scene, nil
}

func formatProperty(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func hasSensorPrefix(id string, sensors []string) bool {
	for _, sensor := range sensors {
		if strings.HasPrefix(strings.ToUpper(id), strings.ToUpper(sensor)) {
			return true
		}
	}
	return false
}

// queryLandsatAws posts the search and follows the "next" links until exhausted
func queryLandsatAws(ctx context.Context, url string, searchReq awsSearch) ([]LandsatFeature, error) {
	reqBody, err := json.Marshal(searchReq)
	if err != nil {
		return nil, fmt.Errorf("queryLandsatAws.json.encode: %w", err)
	}
	httpMethod := http.MethodPost

	landsatFeatures := []LandsatFeature{}
	for page := 0; page < maxPages; page++ {
		req, err := newRequest(ctx, httpMethod, url, reqBody)
		if err != nil {
			return nil, fmt.Errorf("queryLandsatAws.%w", err)
		}

		respBody, err := service.GetBodyRetryReq(req, 4)
		if err != nil {
			return nil, fmt.Errorf("queryLandsatAws.GetBodyRetryReq[%s]: %w", url, err)
		}

		search := &AWSSearchData{}
		if err = json.Unmarshal(respBody, search); err != nil {
			return nil, fmt.Errorf("queryLandsatAws.search parse body (%s): %w", url, err)
		}
		landsatFeatures = append(landsatFeatures, search.Features...)

		next := nextLink(search.Links)
		if next == nil || len(search.Features) == 0 {
			return landsatFeatures, nil
		}
		url, httpMethod, reqBody = next.Href, http.MethodGet, nil
		if next.Method != "" {
			httpMethod = strings.ToUpper(next.Method)
		}
		if next.Body != nil {
			if reqBody, err = json.Marshal(next.Body); err != nil {
				return nil, fmt.Errorf("queryLandsatAws.json.encode(next): %w", err)
			}
		}
	}
	return nil, fmt.Errorf("queryLandsatAws: more than %d pages", maxPages)
}

func newRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	if body == nil {
		return http.NewRequestWithContext(ctx, method, url, nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")
	return req, nil
}

func nextLink(links []Link) *Link {
	for i := range links {
		if links[i].Rel == "next" {
			return &links[i]
		}
	}
	return nil
}
