package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/airbusgeo/force-prep/catalog"
	"github.com/airbusgeo/force-prep/catalog/entities"
	"github.com/airbusgeo/force-prep/common"
	icatalog "github.com/airbusgeo/force-prep/interface/catalog"
	"github.com/airbusgeo/force-prep/interface/provider"
	"github.com/airbusgeo/force-prep/service"
	"github.com/airbusgeo/force-prep/service/geometry"
	"github.com/airbusgeo/force-prep/service/log"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Request of FindAndDownload
type Request struct {
	// QueueDir/QueueFile is the FORCE queue file listing the products already downloaded
	QueueDir  string
	QueueFile string
	// StagingDir receives the downloaded products
	StagingDir string
	// LogPath is the file where download failures are appended
	LogPath string

	BBox      geometry.BBox
	StartDate time.Time
	EndDate   time.Time
	Sensors   []string
	Tiers     []common.Tier
	MaxCloud  float64
}

// Query returns the catalog query of the request
func (r Request) Query() *entities.SceneQuery {
	return &entities.SceneQuery{
		AOI:       r.BBox,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Sensors:   r.Sensors,
		Tiers:     r.Tiers,
		MaxCloud:  r.MaxCloud,
	}
}

// QueuePath returns the path of the queue file
func (r Request) QueuePath() string {
	return filepath.Join(r.QueueDir, r.QueueFile)
}

// Validate the request
func (r Request) Validate() error {
	if r.QueueFile == "" {
		return fmt.Errorf("missing queue file")
	}
	if r.StagingDir == "" {
		return fmt.Errorf("missing staging directory")
	}
	if r.LogPath == "" {
		return fmt.Errorf("missing log file")
	}
	return r.Query().Validate()
}

// SearchScenes validates the request and returns the scenes found by the catalog, in catalog order
func SearchScenes(ctx context.Context, scenesProvider icatalog.ScenesProvider, req Request) (entities.Scenes, error) {
	if err := req.Validate(); err != nil {
		return nil, service.MakeFatal(fmt.Errorf("SearchScenes: %w", err))
	}
	aoi, err := req.BBox.Geos()
	if err != nil {
		return nil, service.MakeFatal(fmt.Errorf("SearchScenes.%w", err))
	}
	scenes, err := scenesProvider.SearchScenes(ctx, req.Query(), *aoi)
	if err != nil {
		return nil, fmt.Errorf("SearchScenes.%w", err)
	}
	return scenes, nil
}

// FindAndDownload searches the catalog, downloads the scenes that are not already in the queue file
// and returns the identifiers of all the scenes found (downloaded or not).
// A failed download is recorded in req.LogPath and does not stop the batch.
func FindAndDownload(ctx context.Context, scenesProvider icatalog.ScenesProvider, imageProviders []provider.ImageProvider, req Request) ([]string, error) {
	scenes, err := SearchScenes(ctx, scenesProvider, req)
	if err != nil {
		return nil, fmt.Errorf("FindAndDownload.%w", err)
	}
	candidates := scenes.IDs()
	log.Logger(ctx).Sugar().Infof("%d scenes found", len(candidates))

	queued, err := catalog.ReadQueue(req.QueuePath())
	if err != nil {
		return nil, fmt.Errorf("FindAndDownload.%w", err)
	}
	toDownload := catalog.ToDownload(candidates, queued)
	log.Logger(ctx).Sugar().Infof("%d scenes to download (%d already queued)", len(toDownload), len(candidates)-len(toDownload))

	failures := NewFailureLog(req.LogPath)
	defer failures.Close()
	if err := DownloadScenes(ctx, imageProviders, toDownload, req.StagingDir, failures); err != nil {
		return nil, fmt.Errorf("FindAndDownload.%w", err)
	}
	return candidates, nil
}

// DownloadScenes downloads the scenes sequentially into stagingDir.
// Failures are recorded and the batch goes on. It only stops if the context is done
// or if a failure cannot be recorded.
func DownloadScenes(ctx context.Context, imageProviders []provider.ImageProvider, sceneNames []string, stagingDir string, failures *FailureLog) error {
	if len(sceneNames) > 0 {
		if err := os.MkdirAll(stagingDir, 0755); err != nil {
			return fmt.Errorf("DownloadScenes.MkdirAll: %w", err)
		}
	}
	nbFailures := 0
	for _, sceneName := range sceneNames {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("DownloadScenes: %w", err)
		}
		sctx := log.With(ctx, "scene", sceneName)
		err := ProcessScene(sctx, imageProviders, sceneName, stagingDir)
		if err == nil {
			log.Logger(sctx).Sugar().Infof("%s downloaded to %s", sceneName, stagingDir)
			continue
		}
		if ctx.Err() != nil {
			return fmt.Errorf("DownloadScenes: %w", ctx.Err())
		}
		nbFailures++
		log.Logger(sctx).Warn("download failed", zap.Error(err))
		if e := failures.Record(sceneName, stagingDir); e != nil {
			return fmt.Errorf("DownloadScenes.%w", e)
		}
	}
	if nbFailures > 0 {
		log.Logger(ctx).Sugar().Warnf("%d/%d downloads failed", nbFailures, len(sceneNames))
	}
	return nil
}

// ProcessScene downloads a scene in a temporary working dir with the first successful imageProvider
// and moves the result into stagingDir.
func ProcessScene(ctx context.Context, imageProviders []provider.ImageProvider, sceneName, stagingDir string) error {
	if len(imageProviders) == 0 {
		return fmt.Errorf("ProcessScene: no image provider")
	}
	workdir := filepath.Join(stagingDir, "."+uuid.New().String())
	if err := os.MkdirAll(workdir, 0755); err != nil {
		return service.MakeTemporary(fmt.Errorf("make directory %s: %w", workdir, err))
	}
	defer os.RemoveAll(workdir)

	log.Logger(ctx).Sugar().Infof("downloading %s", sceneName)
	var err error
	for _, imageProvider := range imageProviders {
		e := imageProvider.Download(ctx, sceneName, workdir)
		if err = service.MergeErrors(false, err, e); err == nil {
			break
		}
		log.Logger(ctx).Sugar().Debugf("%s: %v", imageProvider.Name(), e)
		if service.Fatal(e) {
			// no other provider can succeed
			break
		}
		if e := cleanDir(workdir); e != nil {
			return service.MakeTemporary(fmt.Errorf("ProcessScene.%w", e))
		}
	}
	if err != nil {
		return fmt.Errorf("ProcessScene.ImageProviders.%w", err)
	}

	if err := moveContent(workdir, stagingDir); err != nil {
		return fmt.Errorf("ProcessScene.%w", err)
	}
	return nil
}

// cleanDir removes the content of dir, left by a failed download
func cleanDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("cleanDir: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("cleanDir: %w", err)
		}
	}
	return nil
}

// moveContent moves the content of srcDir into dstDir, replacing existing entries
func moveContent(srcDir, dstDir string) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("moveContent: %w", err)
	}
	if len(entries) == 0 {
		return errors.New("moveContent: nothing was downloaded")
	}
	for _, e := range entries {
		dst := filepath.Join(dstDir, e.Name())
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("moveContent: %w", err)
		}
		if err := os.Rename(filepath.Join(srcDir, e.Name()), dst); err != nil {
			return fmt.Errorf("moveContent: %w", err)
		}
	}
	return nil
}
