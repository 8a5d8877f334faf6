package provider

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/force-prep/common"
	"github.com/airbusgeo/force-prep/service"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

// BlobImageProvider implements ImageProvider for any bucket supported by gocloud.dev (s3://, gs://, file://)
type BlobImageProvider struct {
	bucket  *blob.Bucket
	name    string
	pattern string
}

// Name implements ImageProvider
func (ip *BlobImageProvider) Name() string {
	return "Blob (" + ip.name + ")"
}

// NewBlobImageProvider creates a new ImageProvider on an opened bucket
// pattern is the key of the product in the bucket (see common.FormatBrackets):
// a directory (ending with "/") whose objects are downloaded, or an archive.
func NewBlobImageProvider(bucket *blob.Bucket, name, pattern string) *BlobImageProvider {
	return &BlobImageProvider{bucket: bucket, name: name, pattern: pattern}
}

// OpenBlobImageProvider opens the bucket (e.g. s3://bucket?region=us-west-2, file:///data/mirror) and creates the ImageProvider.
// The bucket must be closed with Close.
func OpenBlobImageProvider(ctx context.Context, bucketURL, pattern string) (*BlobImageProvider, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("OpenBlobImageProvider: %w", err)
	}
	return NewBlobImageProvider(bucket, bucketURL, pattern), nil
}

// Close the bucket
func (ip *BlobImageProvider) Close() error {
	return ip.bucket.Close()
}

// Download implements ImageProvider
func (ip *BlobImageProvider) Download(ctx context.Context, sceneName, localDir string) error {
	info, err := sceneInfo("BlobImageProvider", sceneName)
	if err != nil {
		return err
	}
	key := common.FormatBrackets(ip.pattern, info)
	productDir := filepath.Join(localDir, sceneName)

	if ext := archiveExt(key); ext != "" {
		localArchive := sceneFilePath(localDir, sceneName, ext)
		if err := ip.downloadObject(ctx, key, localArchive); err != nil {
			return fmt.Errorf("BlobImageProvider.%w", err)
		}
		defer os.Remove(localArchive)
		if err := unarchive(localArchive, productDir); err != nil {
			return fmt.Errorf("BlobImageProvider.%w", err)
		}
		return nil
	}

	prefix := strings.TrimSuffix(key, "/") + "/"
	nbFiles := 0
	iter := ip.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err != nil {
			if err == io.EOF {
				break
			}
			return service.MakeTemporary(fmt.Errorf("BlobImageProvider.List[%s]: %w", prefix, err))
		}
		if obj.IsDir || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		localFile := filepath.Join(productDir, filepath.FromSlash(strings.TrimPrefix(obj.Key, prefix)))
		if err := os.MkdirAll(filepath.Dir(localFile), 0755); err != nil {
			return fmt.Errorf("BlobImageProvider.MkdirAll: %w", err)
		}
		if err := ip.downloadObject(ctx, obj.Key, localFile); err != nil {
			return fmt.Errorf("BlobImageProvider.%w", err)
		}
		nbFiles++
	}
	if nbFiles == 0 {
		return ErrProductNotFound{path.Join(ip.name, prefix)}
	}
	return nil
}

func (ip *BlobImageProvider) downloadObject(ctx context.Context, key, localFile string) error {
	r, err := ip.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return ErrProductNotFound{path.Join(ip.name, key)}
		}
		return service.MakeTemporary(fmt.Errorf("downloadObject[%s]: %w", key, err))
	}
	defer r.Close()
	if err := copyToFile(localFile, r); err != nil {
		return service.MakeTemporary(fmt.Errorf("downloadObject[%s].%w", key, err))
	}
	return nil
}
