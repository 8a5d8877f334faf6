package downloader

import (
	"context"
	"fmt"

	"github.com/airbusgeo/force-prep/interface/provider"
	"github.com/airbusgeo/force-prep/service/log"
)

// ProvidersConfig lists the image providers to chain, in order of preference:
// local archives, blob mirror, USGS bucket on AWS, http mirror, ftp mirror, Google Storage buckets.
type ProvidersConfig struct {
	LocalPath    string
	LocalPattern string

	BlobURL     string
	BlobPattern string

	LandsatAws         bool
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSEndpoint        string

	URLPattern string

	FTPPattern  string
	FTPUsername string
	FTPPassword string

	GSBuckets   []string
	GSAnonymous bool
}

// NewImageProviders creates the chain of image providers and a function to release them.
// The catalog returns Collection 2 products, so the USGS bucket on AWS is used if no provider is configured.
func NewImageProviders(ctx context.Context, cfg ProvidersConfig) ([]provider.ImageProvider, func(), error) {
	var imageProviders []provider.ImageProvider
	closeFn := func() {}

	if cfg.LocalPath != "" {
		imageProviders = append(imageProviders, provider.NewLocalImageProvider(cfg.LocalPath, cfg.LocalPattern))
	}
	if cfg.BlobURL != "" {
		bp, err := provider.OpenBlobImageProvider(ctx, cfg.BlobURL, cfg.BlobPattern)
		if err != nil {
			return nil, nil, fmt.Errorf("NewImageProviders.%w", err)
		}
		closeFn = func() {
			if err := bp.Close(); err != nil {
				log.Logger(ctx).Sugar().Warnf("close %s: %v", bp.Name(), err)
			}
		}
		imageProviders = append(imageProviders, bp)
	}
	landsatAws := cfg.LandsatAws || (cfg.URLPattern == "" && cfg.FTPPattern == "" && len(cfg.GSBuckets) == 0 && len(imageProviders) == 0)
	if landsatAws {
		imageProviders = append(imageProviders, provider.NewLandsatAwsImageProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey).WithEndpoint(cfg.AWSEndpoint))
	}
	if cfg.URLPattern != "" {
		imageProviders = append(imageProviders, provider.NewURLImageProvider(cfg.URLPattern))
	}
	if cfg.FTPPattern != "" {
		imageProviders = append(imageProviders, provider.NewFTPImageProvider(cfg.FTPPattern, cfg.FTPUsername, cfg.FTPPassword))
	}
	if len(cfg.GSBuckets) != 0 {
		gs := provider.NewGSImageProvider(cfg.GSAnonymous)
		for _, bucket := range cfg.GSBuckets {
			if err := gs.AddBucket(bucket); err != nil {
				closeFn()
				return nil, nil, fmt.Errorf("NewImageProviders.%w", err)
			}
		}
		imageProviders = append(imageProviders, gs)
	}
	return imageProviders, closeFn, nil
}
