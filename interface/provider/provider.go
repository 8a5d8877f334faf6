package provider

import (
	"context"
)

// ImageProvider is the interface of an image download service
type ImageProvider interface {
	// Download an image to the given localDir
	// sceneName is for example LC08_L1TP_196025_20200501_20200509_02_T1
	// localDir is the directory where the product directory (named sceneName) will be created
	Download(ctx context.Context, sceneName, localDir string) error

	// Name of the provider
	Name() string
}
