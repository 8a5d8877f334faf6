package downloader_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/airbusgeo/force-prep/common"
	"github.com/airbusgeo/force-prep/downloader"
	"github.com/airbusgeo/force-prep/interface/provider"
	"github.com/airbusgeo/force-prep/service/geometry"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

const (
	sceneA = "LC08_L1TP_196025_20200501_20200509_02_T1"
	sceneB = "LC08_L1TP_196025_20200517_20200527_02_T1"
	sceneC = "LE07_L1TP_196025_20200503_20200529_02_T1"
	sceneD = "LE07_L1TP_196025_20200519_20200614_02_T1"
)

var _ = Describe("FindAndDownload", func() {
	var (
		ctx        context.Context
		tmpDir     string
		req        downloader.Request
		catalog    *MockCatalog
		mainIP     *MockProvider
		fallbackIP *MockProvider
		ids        []string
		err        error
	)

	writeQueue := func(scenes ...string) {
		content := ""
		for _, s := range scenes {
			content += filepath.Join(tmpDir, "level1", s+".tar") + " QUEUED\n"
		}
		Expect(os.WriteFile(req.QueuePath(), []byte(content), 0644)).To(Succeed())
	}
	readLog := func() string {
		b, err := os.ReadFile(req.LogPath)
		if os.IsNotExist(err) {
			return ""
		}
		Expect(err).NotTo(HaveOccurred())
		return string(b)
	}
	staged := func() []string {
		entries, err := os.ReadDir(req.StagingDir)
		if os.IsNotExist(err) {
			return nil
		}
		Expect(err).NotTo(HaveOccurred())
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		return names
	}
	run := func() {
		ids, err = downloader.FindAndDownload(ctx, catalog, []provider.ImageProvider{mainIP, fallbackIP}, req)
	}

	BeforeEach(func() {
		ctx = context.Background()
		var e error
		tmpDir, e = os.MkdirTemp("", "downloader")
		Expect(e).NotTo(HaveOccurred())
		req = downloader.Request{
			QueueDir:   tmpDir,
			QueueFile:  "queue.txt",
			StagingDir: filepath.Join(tmpDir, "staging"),
			LogPath:    filepath.Join(tmpDir, "download.log"),
			BBox:       geometry.BBox{XMin: 5, XMax: 6, YMin: 45, YMax: 46},
			StartDate:  time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC),
			EndDate:    time.Date(2020, 5, 31, 0, 0, 0, 0, time.UTC),
			Sensors:    []string{"LC08", "LE07"},
			Tiers:      []common.Tier{common.TierT1},
			MaxCloud:   70,
		}
		catalog = &MockCatalog{Scenes: []string{sceneA, sceneB, sceneC}}
		mainIP = NewMockProvider("main", nil)
		fallbackIP = NewMockProvider("fallback", nil)
		writeQueue()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Context("when some scenes are already queued", func() {
		BeforeEach(func() {
			writeQueue(sceneA, sceneB)
			run()
		})
		It("should return all the candidates", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(Equal([]string{sceneA, sceneB, sceneC}))
		})
		It("should only download the others", func() {
			Expect(mainIP.Calls).To(Equal([]string{sceneC}))
			Expect(staged()).To(Equal([]string{sceneC}))
			Expect(filepath.Join(req.StagingDir, sceneC, sceneC+".txt")).To(BeAnExistingFile())
		})
		It("should not create the log file", func() {
			Expect(req.LogPath).NotTo(BeAnExistingFile())
		})
		It("should forward the query to the catalog", func() {
			Expect(catalog.Queries).To(HaveLen(1))
			Expect(catalog.Queries[0].Sensors).To(Equal(req.Sensors))
			Expect(catalog.Queries[0].MaxCloud).To(Equal(70.0))
		})
	})

	Context("when a queued stem is a substring of a candidate", func() {
		BeforeEach(func() {
			catalog.Scenes = []string{sceneA, sceneA + "_bis"}
			writeQueue(sceneA)
			run()
		})
		It("should not download any of them", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(Equal([]string{sceneA, sceneA + "_bis"}))
			Expect(mainIP.Calls).To(BeEmpty())
		})
	})

	Context("when a download fails", func() {
		BeforeEach(func() {
			mainIP.Failures[sceneB] = errNetwork
			fallbackIP.Failures[sceneB] = errNetwork
			run()
		})
		It("should return all the candidates", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(Equal([]string{sceneA, sceneB, sceneC}))
		})
		It("should log exactly one line", func() {
			Expect(readLog()).To(Equal("cannot download " + sceneB + " to " + req.StagingDir + "\n"))
		})
		It("should download the other scenes", func() {
			Expect(staged()).To(ConsistOf(sceneA, sceneC))
		})
		It("should append to the log on the next run", func() {
			run()
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Count(readLog(), "cannot download "+sceneB)).To(Equal(2))
		})
	})

	Context("when the first provider fails", func() {
		BeforeEach(func() {
			mainIP.Failures[sceneA] = errNetwork
			run()
		})
		It("should download with the next provider", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(fallbackIP.Downloaded).To(Equal([]string{sceneA}))
			content, e := os.ReadFile(filepath.Join(req.StagingDir, sceneA, sceneA+".txt"))
			Expect(e).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal("fallback"))
			Expect(filepath.Join(req.StagingDir, sceneA, "partial")).NotTo(BeAnExistingFile())
			Expect(req.LogPath).NotTo(BeAnExistingFile())
		})
	})

	Context("when a provider returns a fatal error", func() {
		BeforeEach(func() {
			mainIP.Failures[sceneA] = errMalformed
			run()
		})
		It("should not try the other providers but go on with the batch", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(fallbackIP.Calls).NotTo(ContainElement(sceneA))
			Expect(readLog()).To(Equal("cannot download " + sceneA + " to " + req.StagingDir + "\n"))
			Expect(staged()).To(ConsistOf(sceneB, sceneC))
		})
	})

	Context("when the catalog is empty", func() {
		BeforeEach(func() {
			catalog.Scenes = nil
			run()
		})
		It("should return an empty list", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(BeEmpty())
			Expect(staged()).To(BeEmpty())
		})
	})

	DescribeTable("invalid requests",
		func(update func(r *downloader.Request)) {
			update(&req)
			run()
			Expect(err).To(HaveOccurred())
			Expect(catalog.Queries).To(BeEmpty())
			Expect(mainIP.Calls).To(BeEmpty())
		},
		Entry("xmin > xmax", func(r *downloader.Request) { r.BBox.XMin, r.BBox.XMax = 6, 5 }),
		Entry("ymin = ymax", func(r *downloader.Request) { r.BBox.YMax = r.BBox.YMin }),
		Entry("end < start", func(r *downloader.Request) { r.EndDate = r.StartDate.AddDate(0, 0, -1) }),
		Entry("unknown sensor", func(r *downloader.Request) { r.Sensors = []string{"S2A"} }),
		Entry("missing log file", func(r *downloader.Request) { r.LogPath = "" }),
	)

	Context("when the catalog fails", func() {
		BeforeEach(func() {
			catalog.Err = errors.New("catalog unavailable")
			run()
		})
		It("should return the error", func() {
			Expect(err).To(MatchError(ContainSubstring("catalog unavailable")))
			Expect(mainIP.Calls).To(BeEmpty())
		})
	})

	Context("when the queue file is missing", func() {
		BeforeEach(func() {
			req.QueueFile = "missing.txt"
			run()
		})
		It("should return an error without downloading", func() {
			Expect(err).To(HaveOccurred())
			Expect(mainIP.Calls).To(BeEmpty())
		})
	})

	Context("when the context is cancelled", func() {
		BeforeEach(func() {
			var cancel context.CancelFunc
			ctx, cancel = context.WithCancel(ctx)
			cancel()
			run()
		})
		It("should stop the batch", func() {
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(mainIP.Calls).To(BeEmpty())
			Expect(req.LogPath).NotTo(BeAnExistingFile())
		})
	})
})
