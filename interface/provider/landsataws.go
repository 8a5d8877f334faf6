package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/force-prep/common"
	"github.com/airbusgeo/force-prep/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	landsatAwsBucket         = "usgs-landsat"
	landsatAwsPrefixTemplate = "collection02/level-1/standard/{COLLECTION}/{YEAR}/{PATH}/{ROW}/{SCENE}/"
	landsatAwsRegion         = "us-west-2"
)

// LandsatAwsImageProvider implements ImageProvider for the USGS requester-pays bucket on AWS
type LandsatAwsImageProvider struct {
	accessKeyId     string
	secretAccessKey string
	// endpoint overrides the S3 endpoint (path-style), for S3-compatible mirrors
	endpoint string
}

// Name implements ImageProvider
func (ip *LandsatAwsImageProvider) Name() string {
	return "LandsatAws"
}

// NewLandsatAwsImageProvider creates a new ImageProvider from LandsatAws
// If accessKeyId is empty, the default credential chain of the AWS SDK is used.
func NewLandsatAwsImageProvider(accessKeyId, secretAccessKey string) *LandsatAwsImageProvider {
	return &LandsatAwsImageProvider{accessKeyId: accessKeyId, secretAccessKey: secretAccessKey}
}

// WithEndpoint sets a custom S3 endpoint
func (ip *LandsatAwsImageProvider) WithEndpoint(endpoint string) *LandsatAwsImageProvider {
	ip.endpoint = endpoint
	return ip
}

func (ip *LandsatAwsImageProvider) s3Client(ctx context.Context) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(landsatAwsRegion)}
	if ip.accessKeyId != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(ip.accessKeyId, ip.secretAccessKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("config.LoadDefaultConfig: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if ip.endpoint != "" {
			o.BaseEndpoint = aws.String(ip.endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Download implements ImageProvider
func (ip *LandsatAwsImageProvider) Download(ctx context.Context, sceneName, localDir string) error {
	info, err := sceneInfo("LandsatAwsImageProvider", sceneName)
	if err != nil {
		return err
	}
	landsatAwsPrefix := common.FormatBrackets(landsatAwsPrefixTemplate, info)

	client, err := ip.s3Client(ctx)
	if err != nil {
		return fmt.Errorf("LandsatAwsImageProvider.%w", err)
	}

	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.PartSize = 10 * 1024 * 1024 // 10MB per part
	})

	paginator := s3.NewListObjectsV2Paginator(client,
		&s3.ListObjectsV2Input{
			Bucket:       aws.String(landsatAwsBucket),
			Prefix:       aws.String(landsatAwsPrefix),
			RequestPayer: "requester",
		},
		func(o *s3.ListObjectsV2PaginatorOptions) {
			o.Limit = 200 // much more than the the typical number of files in a Landsat product
		},
	)

	productDir := filepath.Join(localDir, sceneName)
	nbFiles := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return service.MakeTemporary(fmt.Errorf("LandsatAwsImageProvider.NextPage: %w", err))
		}

		for _, object := range page.Contents {
			objectKey := aws.ToString(object.Key)
			objectFileName := objectKey[strings.LastIndex(objectKey, "/")+1:]
			if objectFileName == "" {
				continue
			}
			if nbFiles == 0 {
				if err = os.MkdirAll(productDir, 0755); err != nil {
					return fmt.Errorf("LandsatAwsImageProvider.MkdirAll: %w", err)
				}
			}
			if err := downloadSingleObjectToFile(ctx, downloader, landsatAwsBucket, objectKey, filepath.Join(productDir, objectFileName)); err != nil {
				return service.MakeTemporary(fmt.Errorf("LandsatAwsImageProvider.%w", err))
			}
			nbFiles++
		}
	}
	if nbFiles == 0 {
		return ErrProductNotFound{"s3://" + landsatAwsBucket + "/" + landsatAwsPrefix}
	}
	return nil
}

func downloadSingleObjectToFile(ctx context.Context, downloader *manager.Downloader, bucketName string, objectKey string, localPath string) error {
	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("downloadSingleObjectToFile: failed to create file %s: %w", localPath, err)
	}
	defer file.Close()

	_, err = downloader.Download(ctx, file, &s3.GetObjectInput{
		Bucket:       aws.String(bucketName),
		Key:          aws.String(objectKey),
		RequestPayer: "requester",
	})
	if err != nil {
		return fmt.Errorf("downloadSingleObjectToFile: failed to download object %s:%s: %w",
			bucketName, objectKey, err)
	}
	return nil
}
