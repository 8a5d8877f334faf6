package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/airbusgeo/force-prep/catalog/entities"
	"github.com/airbusgeo/force-prep/common"
	"github.com/airbusgeo/force-prep/downloader"
	icatalog "github.com/airbusgeo/force-prep/interface/catalog"
	"github.com/airbusgeo/force-prep/interface/catalog/landsataws"
	"github.com/airbusgeo/force-prep/interface/provider"
	"github.com/airbusgeo/force-prep/service/geometry"
	"github.com/airbusgeo/force-prep/service/log"
	"github.com/araddon/dateparse"
	"github.com/paulsmith/gogeos/geos"
	"go.uber.org/zap"
)

type config struct {
	Request     downloader.Request
	GeojsonPath string

	CatalogURL   string
	CatalogLimit int

	Providers downloader.ProvidersConfig
}

func newAppConfig() (*config, error) {
	config := config{}
	// Queue, outputs
	flag.StringVar(&config.Request.QueueDir, "queue-dir", "", "directory of the FORCE queue file")
	flag.StringVar(&config.Request.QueueFile, "queue-file", "", "name of the FORCE queue file, listing the products already downloaded")
	flag.StringVar(&config.Request.StagingDir, "staging-dir", "", "directory where the products are downloaded")
	flag.StringVar(&config.Request.LogPath, "log", "", "file where the download failures are appended")
	flag.StringVar(&config.GeojsonPath, "geojson", "", "export the scenes found in the catalog to this GeoJSON file (optional)")

	// Query
	ext := flag.String("ext", "", "extent of the area of interest: xmin,xmax,ymin,ymax (WGS84)")
	aoi := flag.String("aoi", "", "GeoJSON file of the area of interest, whose envelope is used instead of -ext")
	startDate := flag.String("start", "", "start date (e.g. 2020-05-01)")
	endDate := flag.String("end", "", "end date, included (e.g. 2020-05-31)")
	sensors := flag.String("sensors", "LC08,LE07", "comma-separated list of sensors (LC08, LC09, LE07, LT05...)")
	tiers := flag.String("tiers", "T1", "comma-separated list of tiers (T1, T2, RT)")
	flag.Float64Var(&config.Request.MaxCloud, "max-cloud", 100, "maximum cloud cover of the scenes (percent)")

	// Catalog
	flag.StringVar(&config.CatalogURL, "catalog-url", landsataws.LandsatAwsURL, "STAC search endpoint")
	flag.IntVar(&config.CatalogLimit, "catalog-limit", landsataws.LandsatCatalogLimit, "number of scenes per page of the catalog")

	// Providers
	gsProviderBuckets := flag.String("gs-provider-buckets", "", `Google Storage buckets. List of buckets comma-separated (optional). `+provider.GSLandsatCollection1Bucket+` only holds Collection 1 products.
	bucket can contain several {IDENTIFIER} than will be replaced according to the sceneName.
	IDENTIFIER must be one of SCENE, SENSOR, SATELLITE, MISSION_ID, PROCESSING_LEVEL, PATH, ROW, DATE(YEAR/MONTH/DAY), COLLECTION_NUMBER, COLLECTION, TIER`)
	flag.BoolVar(&config.Providers.GSAnonymous, "gs-anonymous", true, "access the Google Storage buckets without authentication (public buckets)")
	flag.BoolVar(&config.Providers.LandsatAws, "landsat-aws", false, "configure the USGS requester-pays bucket on AWS as a potential image provider (default if no other provider is configured)")
	flag.StringVar(&config.Providers.AWSAccessKeyID, "aws-access-key-id", "", "AWS access key id (optional, default credential chain otherwise)")
	flag.StringVar(&config.Providers.AWSSecretAccessKey, "aws-secret-access-key", "", "AWS secret access key")
	flag.StringVar(&config.Providers.AWSEndpoint, "aws-endpoint", "", "S3 endpoint of a mirror of the USGS bucket (optional)")
	flag.StringVar(&config.Providers.LocalPath, "local-path", "", "local path where images are stored (optional). To configure a local path as a potential image provider.")
	flag.StringVar(&config.Providers.LocalPattern, "local-pattern", provider.DefaultLocalPattern, "layout of the local archives, relative to local-path, without extension")
	flag.StringVar(&config.Providers.URLPattern, "url-pattern", "", "url of a http mirror (optional), e.g. https://example.org/{SENSOR}/{SCENE}.tar")
	flag.StringVar(&config.Providers.FTPPattern, "ftp-pattern", "", "path of a ftp mirror (optional), e.g. ftp://ftp.example.org:21/{SENSOR}/{SCENE}.tar")
	flag.StringVar(&config.Providers.FTPUsername, "ftp-username", "anonymous", "ftp account username")
	flag.StringVar(&config.Providers.FTPPassword, "ftp-password", "", "ftp account password")
	flag.StringVar(&config.Providers.BlobURL, "blob-url", "", "url of a bucket mirroring the products (optional), e.g. s3://bucket?region=us-west-2, gs://bucket, file:///data/mirror")
	flag.StringVar(&config.Providers.BlobPattern, "blob-pattern", "{SENSOR}/{PATH}/{ROW}/{SCENE}/", "key of the products in the blob-url bucket: a directory (ending with /) or an archive")

	flag.Parse()

	var err error
	switch {
	case *aoi != "" && *ext != "":
		return nil, fmt.Errorf("ext and aoi are mutually exclusive")
	case *aoi != "":
		if config.Request.BBox, err = geometry.BBoxFromGeoJSONFile(*aoi); err != nil {
			return nil, err
		}
	default:
		if config.Request.BBox, err = parseExtent(*ext); err != nil {
			return nil, err
		}
	}
	if config.Request.StartDate, err = parseDate(*startDate); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	if config.Request.EndDate, err = parseDate(*endDate); err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	config.Request.Sensors = splitList(*sensors)
	if config.Request.Tiers, err = common.ParseTiers(*tiers); err != nil {
		return nil, err
	}
	if *gsProviderBuckets != "" {
		config.Providers.GSBuckets = splitList(*gsProviderBuckets)
	}
	if err := config.Request.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func splitList(s string) []string {
	var l []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			l = append(l, e)
		}
	}
	return l
}

// parseExtent parses "xmin,xmax,ymin,ymax"
func parseExtent(s string) (geometry.BBox, error) {
	vs := strings.Split(s, ",")
	if len(vs) != 4 {
		return geometry.BBox{}, fmt.Errorf("ext must be xmin,xmax,ymin,ymax: %q", s)
	}
	var fs [4]float64
	for i, v := range vs {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return geometry.BBox{}, fmt.Errorf("ext: %w", err)
		}
		fs[i] = f
	}
	b := geometry.BBox{XMin: fs[0], XMax: fs[1], YMin: fs[2], YMax: fs[3]}
	return b, b.Validate()
}

// parseDate parses any date format and returns the calendar day (UTC)
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	d, err := dateparse.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return entities.Date(d.Year(), int(d.Month()), d.Day())
}

// recordingCatalog keeps the scenes returned by the catalog
type recordingCatalog struct {
	icatalog.ScenesProvider
	scenes entities.Scenes
}

func (c *recordingCatalog) SearchScenes(ctx context.Context, query *entities.SceneQuery, aoi geos.Geometry) (entities.Scenes, error) {
	scenes, err := c.ScenesProvider.SearchScenes(ctx, query, aoi)
	c.scenes = scenes
	return scenes, err
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	cancel()
	if err != nil {
		log.Fatal("error", zap.Error(err))
	}
}

func run(ctx context.Context) error {
	config, err := newAppConfig()
	if err != nil {
		return err
	}
	imageProviders, closeProviders, err := downloader.NewImageProviders(ctx, config.Providers)
	if err != nil {
		return err
	}
	defer closeProviders()
	var providerNames []string
	for _, ip := range imageProviders {
		providerNames = append(providerNames, ip.Name())
	}

	scenesProvider := &recordingCatalog{ScenesProvider: &landsataws.Provider{URL: config.CatalogURL, Limit: config.CatalogLimit}}
	log.Logger(ctx).Debug("downloader starts downloading images from " + strings.Join(providerNames, ", ") + " to " + config.Request.StagingDir)

	ids, err := downloader.FindAndDownload(ctx, scenesProvider, imageProviders, config.Request)
	if err != nil {
		return err
	}

	if config.GeojsonPath != "" {
		b, err := json.Marshal(scenesProvider.scenes)
		if err != nil {
			return fmt.Errorf("geojson: %w", err)
		}
		if err := os.WriteFile(config.GeojsonPath, b, 0644); err != nil {
			return fmt.Errorf("geojson: %w", err)
		}
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
