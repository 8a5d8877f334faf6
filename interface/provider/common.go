package provider

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/airbusgeo/force-prep/common"
	"github.com/airbusgeo/force-prep/service"
	"github.com/airbusgeo/force-prep/service/log"
	"github.com/cavaliercoder/grab"
	"github.com/mholt/archiver"
)

// ErrProductNotFound is an error returned when a product is not found or available
type ErrProductNotFound struct {
	Product string
}

func (e ErrProductNotFound) Error() string {
	return fmt.Sprintf("Product not found or unavailable: %s", e.Product)
}

// archiveExtensions supported by unarchive, longest first
var archiveExtensions = []string{".tar.gz", ".tar.bz2", ".tgz", ".tar", ".zip"}

// archiveExt returns the archive extension of filename or "" if it's not a supported archive
func archiveExt(filename string) string {
	lower := strings.ToLower(filename)
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}

// sceneInfo parses the scene name. Malformed names are fatal: no provider can serve them.
func sceneInfo(provider, sceneName string) (map[string]string, error) {
	info, err := common.Info(sceneName)
	if err != nil {
		return nil, service.MakeFatal(fmt.Errorf("%s: %w", provider, err))
	}
	return info, nil
}

func fmtBytes(bytes int64) string {
	v := float64(bytes)
	switch {
	case v > 1<<30:
		return fmt.Sprintf("%.2fGo", v/(1<<30))
	case v > 1<<20:
		return fmt.Sprintf("%.2fMo", v/(1<<20))
	case v > 1<<10:
		return fmt.Sprintf("%.2fko", v/(1<<10))
	default:
		return fmt.Sprintf("%.2fo", v)
	}
}

func displayProgress(ctx context.Context, prefix string, resp *grab.Response, progressPeriod float64) {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	progress, lastBytes, seconds := 0.0, int64(0), int64(0)
	for {
		select {
		case <-t.C:
			seconds++
			if resp.Progress() > progress {
				log.Logger(ctx).Sugar().Debugf("%s: %.2f%% %s/%s (%s/s)", prefix, 100*resp.Progress(), fmtBytes(resp.BytesComplete()), fmtBytes(resp.Size), fmtBytes((resp.BytesComplete()-lastBytes)/seconds))
				seconds = 0
				progress += progressPeriod
				lastBytes = resp.BytesComplete()
			}

		case <-resp.Done:
			return
		}
	}
}

// Progress logs the progression of a transfer of known size every period percent
type Progress struct {
	ctx      context.Context
	prefix   string
	total    int64
	period   int64
	mu       sync.Mutex
	current  int64
	nextStep int64
}

// NewProgress creates a Progress logging every periodPercent of total.
// If total is unknown (<= 0), nothing is logged.
func NewProgress(ctx context.Context, prefix string, total int64, periodPercent int64) *Progress {
	p := &Progress{ctx: ctx, prefix: prefix, total: total}
	if total > 0 && periodPercent > 0 {
		p.period = total * periodPercent / 100
		if p.period == 0 {
			p.period = 1
		}
		p.nextStep = p.period
	}
	return p
}

// UpdateDelta adds delta bytes to the transfer
func (p *Progress) UpdateDelta(delta int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += delta
	if p.period == 0 || p.current < p.nextStep {
		return
	}
	for p.nextStep <= p.current {
		p.nextStep += p.period
	}
	log.Logger(p.ctx).Sugar().Debugf("%s: %.2f%% %s/%s", p.prefix, 100*float64(p.current)/float64(p.total), fmtBytes(p.current), fmtBytes(p.total))
}

// Current returns the number of bytes transferred
func (p *Progress) Current() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// WriteCounter counts the number of bytes written to it. It implements to the io.Writer interface
// and we can pass this into io.TeeReader() which will report progress on each write cycle.
type WriteCounter struct {
	Progress *Progress
}

func (wc *WriteCounter) Write(p []byte) (int, error) {
	n := len(p)
	wc.Progress.UpdateDelta(int64(n))
	return n, nil
}

// download a file with display every 5%
func download(ctx context.Context, req *grab.Request, displayPrefix string) error {
	client := grab.NewClient()
	resp := client.Do(req.WithContext(ctx))

	displayProgress(ctx, displayPrefix, resp, 0.05)

	if err := resp.Err(); err != nil {
		err = fmt.Errorf("download[%s]: %w", req.URL(), err)
		if resp.HTTPResponse == nil {
			return service.MakeTemporary(err)
		}
		switch resp.HTTPResponse.StatusCode {
		case http.StatusNotFound:
			return ErrProductNotFound{req.URL().String()}
		case 408, 429, 500, 501, 502, 503, 504:
			return service.MakeTemporary(err)
		default:
			return err
		}
	}
	return nil
}

// unarchive localArchive into productDir.
// If the archive contains a single directory, its content is moved instead, to avoid productDir/productDir.
func unarchive(localArchive, productDir string) error {
	if err := os.MkdirAll(productDir, 0755); err != nil {
		return fmt.Errorf("unarchive.MkdirAll: %w", err)
	}
	tmpdir, err := os.MkdirTemp(filepath.Dir(productDir), "."+filepath.Base(localArchive))
	if err != nil {
		return service.MakeTemporary(err)
	}
	defer os.RemoveAll(tmpdir)
	if err := archiver.Unarchive(localArchive, tmpdir); err != nil {
		return service.MakeTemporary(fmt.Errorf("unarchive[%s]: %w", localArchive, err))
	}
	srcdir := tmpdir
	files, err := os.ReadDir(srcdir)
	if err != nil {
		return service.MakeTemporary(err)
	}
	if len(files) == 0 {
		return service.MakeTemporary(fmt.Errorf("unarchive[%s]: empty archive", localArchive))
	}
	if len(files) == 1 && files[0].IsDir() {
		srcdir = filepath.Join(tmpdir, files[0].Name())
		if files, err = os.ReadDir(srcdir); err != nil {
			return service.MakeTemporary(err)
		}
	}
	for _, f := range files {
		if err := os.Rename(filepath.Join(srcdir, f.Name()), filepath.Join(productDir, f.Name())); err != nil {
			return fmt.Errorf("unarchive.Rename: %w", err)
		}
	}
	return nil
}

// sceneFilePath returns the path of the scene, given the directory, the sceneid and the extension (with the dot)
func sceneFilePath(dir, sceneID, ext string) string {
	return filepath.Join(dir, sceneID+ext)
}
