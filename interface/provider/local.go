package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/airbusgeo/force-prep/common"
)

// DefaultLocalPattern is the layout of a local archive of Landsat products
const DefaultLocalPattern = "{YEAR}/{MONTH}/{DAY}/{SCENE}"

// LocalImageProvider implements ImageProvider for local storage
type LocalImageProvider struct {
	path    string
	pattern string
}

// Name implements ImageProvider
func (ip *LocalImageProvider) Name() string {
	return "FileSystem (" + ip.path + ")"
}

// NewLocalImageProvider creates a new ImageProvider from local storage
// pattern is the path of an archive relative to path, without extension (see common.FormatBrackets).
// Default is DefaultLocalPattern.
func NewLocalImageProvider(path, pattern string) *LocalImageProvider {
	if pattern == "" {
		pattern = DefaultLocalPattern
	}
	return &LocalImageProvider{path: path, pattern: pattern}
}

// Download implements ImageProvider
func (ip *LocalImageProvider) Download(ctx context.Context, sceneName, localDir string) error {
	info, err := sceneInfo("LocalImageProvider", sceneName)
	if err != nil {
		return err
	}
	src := filepath.Join(ip.path, common.FormatBrackets(ip.pattern, info))

	for _, ext := range archiveExtensions {
		srcArchive := src + ext
		if _, err := os.Stat(srcArchive); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("LocalImageProvider: %w", err)
		}
		if err := unarchive(srcArchive, filepath.Join(localDir, sceneName)); err != nil {
			return fmt.Errorf("LocalImageProvider.%w", err)
		}
		return nil
	}
	return ErrProductNotFound{src}
}
