package provider

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/airbusgeo/force-prep/common"
	"github.com/cavaliercoder/grab"
)

// URLImageProvider implements ImageProvider for a http(s) mirror
type URLImageProvider struct {
	pattern string
}

// Name implements ImageProvider
func (ip *URLImageProvider) Name() string {
	return "URL (" + ip.pattern + ")"
}

// NewURLImageProvider creates a new ImageProvider for direct download link
// pattern is the url of the product, e.g. https://example.org/landsat/{SENSOR}/{PATH}/{ROW}/{SCENE}.tar (see common.FormatBrackets)
func NewURLImageProvider(pattern string) *URLImageProvider {
	return &URLImageProvider{pattern: pattern}
}

// Download implements ImageProvider
// Archives are extracted in localDir/sceneName, other files are stored as is in localDir/sceneName.
func (ip *URLImageProvider) Download(ctx context.Context, sceneName, localDir string) error {
	info, err := sceneInfo("URLImageProvider", sceneName)
	if err != nil {
		return err
	}
	url := common.FormatBrackets(ip.pattern, info)
	productDir := filepath.Join(localDir, sceneName)

	ext := archiveExt(url)
	localFile := sceneFilePath(localDir, sceneName, ext)
	if ext == "" {
		if err := os.MkdirAll(productDir, 0755); err != nil {
			return fmt.Errorf("URLImageProvider.MkdirAll: %w", err)
		}
		localFile = filepath.Join(productDir, path.Base(url))
	}

	req, err := grab.NewRequest(localFile, url)
	if err != nil {
		return fmt.Errorf("URLImageProvider.NewRequest: %w", err)
	}
	if err := download(ctx, req, "URL:"+sceneName); err != nil {
		return fmt.Errorf("URLImageProvider.%w", err)
	}
	if ext == "" {
		return nil
	}
	defer os.Remove(localFile)
	if err := unarchive(localFile, productDir); err != nil {
		return fmt.Errorf("URLImageProvider.%w", err)
	}
	return nil
}
