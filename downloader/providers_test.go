package downloader_test

import (
	"context"

	"github.com/airbusgeo/force-prep/downloader"
	"github.com/airbusgeo/force-prep/interface/provider"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	_ "gocloud.dev/blob/memblob"
)

var _ = Describe("NewImageProviders", func() {
	var (
		cfg            downloader.ProvidersConfig
		imageProviders []provider.ImageProvider
		closeFn        func()
		err            error
	)

	names := func() []string {
		var n []string
		for _, ip := range imageProviders {
			n = append(n, ip.Name())
		}
		return n
	}

	BeforeEach(func() {
		cfg = downloader.ProvidersConfig{}
	})

	JustBeforeEach(func() {
		imageProviders, closeFn, err = downloader.NewImageProviders(context.Background(), cfg)
	})

	AfterEach(func() {
		if closeFn != nil {
			closeFn()
		}
	})

	Context("when no provider is configured", func() {
		It("should download from the USGS Collection 2 bucket", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(imageProviders).To(HaveLen(1))
			Expect(imageProviders[0]).To(BeAssignableToTypeOf(&provider.LandsatAwsImageProvider{}))
		})
	})

	Context("when only a mirror is configured", func() {
		BeforeEach(func() {
			cfg.URLPattern = "https://example.org/{SCENE}.tar"
		})
		It("should not add the USGS bucket", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(names()).To(Equal([]string{"URL (https://example.org/{SCENE}.tar)"}))
		})
	})

	Context("when all the providers are configured", func() {
		BeforeEach(func() {
			cfg = downloader.ProvidersConfig{
				LocalPath:   "/data/archives",
				BlobURL:     "mem://",
				BlobPattern: "{SCENE}/",
				LandsatAws:  true,
				URLPattern:  "https://example.org/{SCENE}.tar",
				FTPPattern:  "ftp://ftp.example.org/{SCENE}.tar",
				GSBuckets:   []string{"gs://mirror/{SCENE}/"},
				GSAnonymous: true,
			}
		})
		It("should chain them in order of preference", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(imageProviders).To(HaveLen(6))
			Expect(imageProviders[0]).To(BeAssignableToTypeOf(&provider.LocalImageProvider{}))
			Expect(imageProviders[1]).To(BeAssignableToTypeOf(&provider.BlobImageProvider{}))
			Expect(imageProviders[2]).To(BeAssignableToTypeOf(&provider.LandsatAwsImageProvider{}))
			Expect(imageProviders[3]).To(BeAssignableToTypeOf(&provider.URLImageProvider{}))
			Expect(imageProviders[4]).To(BeAssignableToTypeOf(&provider.FTPImageProvider{}))
			Expect(imageProviders[5]).To(BeAssignableToTypeOf(&provider.GSImageProvider{}))
			Expect(closeFn).NotTo(BeNil())
		})
	})

	Context("when a Google Storage bucket is invalid", func() {
		BeforeEach(func() {
			cfg.GSBuckets = []string{"s3://not-a-gs-bucket/{SCENE}/"}
		})
		It("should fail", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	Context("when the blob url has an unknown scheme", func() {
		BeforeEach(func() {
			cfg.BlobURL = "unknown://bucket"
		})
		It("should fail", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})
