package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/airbusgeo/force-prep/common"
	"github.com/airbusgeo/force-prep/service"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GSLandsatCollection1Bucket is the Google public Landsat bucket (pre-collection and Collection 1 products only)
const GSLandsatCollection1Bucket = "gs://gcp-public-data-landsat/{SENSOR}/{COLLECTION_NUMBER}/{PATH}/{ROW}/{SCENE}/"

// GSImageProvider implements ImageProvider for Google Storage LANDSAT buckets
type GSImageProvider struct {
	buckets     []string
	anonymous   bool
	concurrency int

	mu     sync.Mutex
	client *storage.Client
}

// Name implements ImageProvider
func (ip *GSImageProvider) Name() string {
	return "GoogleStorage (" + strings.Join(ip.buckets, ", ") + ")"
}

// NewGSImageProvider creates a new ImageProvider from Google Storage LANDSAT buckets
// anonymous disables the authentication (public buckets)
func NewGSImageProvider(anonymous bool) *GSImageProvider {
	return &GSImageProvider{anonymous: anonymous, concurrency: 5}
}

// AddBucket to the provider
// bucket can contain several {IDENTIFIER} than will be replaced according to the information found in scenename
// IDENTIFIER must be one of those returned by common.Info (SCENE, SENSOR, PATH, ROW, YEAR, COLLECTION_NUMBER...)
// If bucket is a directory (ends with "/"), all its objects are downloaded, otherwise it must be an archive.
func (ip *GSImageProvider) AddBucket(bucket string) error {
	if _, _, err := parseGSURI(bucket); err != nil {
		return fmt.Errorf("GSImageProvider.AddBucket: %w", err)
	}
	ip.buckets = append(ip.buckets, bucket)
	return nil
}

// parseGSURI splits gs://bucket/object into bucket and object
func parseGSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid gs uri %s: must start with gs://", uri)
	}
	splits := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if splits[0] == "" {
		return "", "", fmt.Errorf("invalid gs uri %s: missing bucket", uri)
	}
	if len(splits) == 1 {
		return splits[0], "", nil
	}
	return splits[0], splits[1], nil
}

func (ip *GSImageProvider) storageClient(ctx context.Context) (*storage.Client, error) {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	if ip.client != nil {
		return ip.client, nil
	}
	var opts []option.ClientOption
	if ip.anonymous {
		opts = append(opts, option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	ip.client = client
	return client, nil
}

// Download implements ImageProvider
func (ip *GSImageProvider) Download(ctx context.Context, sceneName, localDir string) error {
	if len(ip.buckets) == 0 {
		return fmt.Errorf("GSImageProvider: no bucket configured")
	}
	format, err := sceneInfo("GSImageProvider", sceneName)
	if err != nil {
		return err
	}
	client, err := ip.storageClient(ctx)
	if err != nil {
		return service.MakeTemporary(fmt.Errorf("GSImageProvider.%w", err))
	}
	productDir := filepath.Join(localDir, sceneName)

	for _, bucket := range ip.buckets {
		url := common.FormatBrackets(bucket, format)
		e := func() error {
			if ext := archiveExt(url); ext != "" {
				if err := ip.downloadArchive(ctx, client, url, sceneFilePath(localDir, sceneName, ext), productDir); err != nil {
					return fmt.Errorf("GSImageProvider[%s].%w", url, err)
				}
			} else if files, err := ip.downloadDirectory(ctx, client, url, productDir); err != nil {
				return fmt.Errorf("GSImageProvider[%s].%w", url, err)
			} else if len(files) == 0 {
				return ErrProductNotFound{url}
			}
			return nil
		}()

		if err = service.MergeErrors(false, err, e); err == nil {
			break
		}
	}
	return err
}

// downloadDirectory fetches all objects prefixed by uri to dstDir
// It returns the list of absolute filenames that were created (i.e with the dstDir prefix)
func (ip *GSImageProvider) downloadDirectory(ctx context.Context, client *storage.Client, uri string, dstDir string) ([]string, error) {
	bucket, prefix, err := parseGSURI(uri)
	if err != nil {
		return nil, fmt.Errorf("downloadDirectory: %w", err)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var files []string
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ip.concurrency)

	q := &storage.Query{Prefix: prefix, Versions: false}
	if err := q.SetAttrSelection([]string{"Name"}); err != nil {
		return nil, fmt.Errorf("downloadDirectory.SetAttrSelection: %w", err)
	}
	it := client.Bucket(bucket).Objects(gctx, q)
	for {
		objectAttrs, iterr := it.Next()
		if iterr == iterator.Done {
			break
		}
		if iterr != nil {
			g.Wait()
			return nil, service.MakeTemporary(fmt.Errorf("bucket iterate: %w", iterr))
		}
		filename := strings.TrimPrefix(objectAttrs.Name, prefix)
		if filename == "" || strings.HasSuffix(filename, "/") {
			continue
		}
		filename = filepath.Join(dstDir, filepath.FromSlash(filename))
		if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
			g.Wait()
			return nil, fmt.Errorf("mkdirall %s: %w", filepath.Dir(filename), err)
		}
		object := objectAttrs.Name
		files = append(files, filename)
		g.Go(func() error {
			return downloadObject(gctx, client, bucket, object, filename)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("downloadDirectory.%w", err)
	}
	return files, nil
}

// downloadArchive to localArchive and unarchive it in productDir
func (ip *GSImageProvider) downloadArchive(ctx context.Context, client *storage.Client, uri, localArchive, productDir string) error {
	bucket, object, err := parseGSURI(uri)
	if err != nil {
		return fmt.Errorf("downloadArchive: %w", err)
	}
	if err := downloadObject(ctx, client, bucket, object, localArchive); err != nil {
		return fmt.Errorf("downloadArchive.%w", err)
	}
	defer os.Remove(localArchive)
	if err := unarchive(localArchive, productDir); err != nil {
		return fmt.Errorf("downloadArchive.%w", err)
	}
	return nil
}

func downloadObject(ctx context.Context, client *storage.Client, bucket, object, localFile string) error {
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return ErrProductNotFound{"gs://" + bucket + "/" + object}
		}
		return service.MakeTemporary(fmt.Errorf("downloadObject[gs://%s/%s]: %w", bucket, object, err))
	}
	defer r.Close()
	if err := copyToFile(localFile, io.Reader(r)); err != nil {
		return service.MakeTemporary(fmt.Errorf("downloadObject[gs://%s/%s].%w", bucket, object, err))
	}
	return nil
}
