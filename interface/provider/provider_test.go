package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/airbusgeo/force-prep/service"
	"github.com/mholt/archiver"
)

const testScene = "LC08_L1TP_196025_20200501_20200509_02_T1"

var testFiles = map[string]string{
	testScene + "_B1.TIF":  "band1",
	testScene + "_MTL.txt": "metadata",
}

// makeArchive creates dir/name containing a directory testScene with testFiles
func makeArchive(t *testing.T, dir, name string) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), testScene)
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	for f, content := range testFiles {
		if err := os.WriteFile(filepath.Join(src, f), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	archive := filepath.Join(dir, name)
	if err := archiver.Archive([]string{src}, archive); err != nil {
		t.Fatal(err)
	}
	return archive
}

func checkProduct(t *testing.T, localDir string) {
	t.Helper()
	for f, content := range testFiles {
		b, err := os.ReadFile(filepath.Join(localDir, testScene, f))
		if err != nil {
			t.Errorf("missing %s: %v", f, err)
			continue
		}
		if string(b) != content {
			t.Errorf("%s: expected %s, got %s", f, content, b)
		}
	}
}

func TestArchiveExt(t *testing.T) {
	for name, ext := range map[string]string{
		"a/b.tar":    ".tar",
		"a/b.TAR.GZ": ".tar.gz",
		"b.tgz":      ".tgz",
		"b.zip":      ".zip",
		"b.TIF":      "",
		"gs://b/c/":  "",
	} {
		if e := archiveExt(name); e != ext {
			t.Errorf("archiveExt(%s): expected %s, got %s", name, ext, e)
		}
	}
}

func TestParseGSURI(t *testing.T) {
	bucket, object, err := parseGSURI("gs://gcp-public-data-landsat/LC08/01/196/025/")
	if err != nil {
		t.Fatal(err)
	}
	if bucket != "gcp-public-data-landsat" || object != "LC08/01/196/025/" {
		t.Errorf("unexpected %s %s", bucket, object)
	}
	for _, uri := range []string{"s3://bucket/object", "gs:///object"} {
		if _, _, err := parseGSURI(uri); err == nil {
			t.Errorf("%s: expected an error", uri)
		}
	}
	gs := NewGSImageProvider(true)
	if err := gs.AddBucket(GSLandsatCollection1Bucket); err != nil {
		t.Error(err)
	}
	if err := gs.AddBucket("/local/path"); err == nil {
		t.Error("expected an error")
	}
}

func TestNewFTPImageProvider(t *testing.T) {
	ip := NewFTPImageProvider("ftp://ftp.example.org:990/landsat/{SCENE}.tar", "user", "pwd")
	if ip.host != "ftp.example.org:990" || !ip.tls || ip.pathPattern != "landsat/{SCENE}.tar" {
		t.Errorf("unexpected %+v", ip)
	}
	ip = NewFTPImageProvider("ftp.example.org", "", "")
	if ip.host != "ftp.example.org:21" || ip.tls || ip.pathPattern != "{SCENE}.tar" {
		t.Errorf("unexpected %+v", ip)
	}
}

func TestProgress(t *testing.T) {
	p := NewProgress(context.Background(), "test", 1000, 5)
	wc := &WriteCounter{Progress: p}
	for i := 0; i < 10; i++ {
		wc.Write(make([]byte, 100))
	}
	if p.Current() != 1000 {
		t.Errorf("expected 1000, got %d", p.Current())
	}
	NewProgress(context.Background(), "unknown size", 0, 5).UpdateDelta(10)
}

func TestLocalImageProvider(t *testing.T) {
	root := t.TempDir()
	makeArchive(t, filepath.Join(root, "2020", "05", "01"), testScene+".tar.gz")

	ip := NewLocalImageProvider(root, "")
	localDir := t.TempDir()
	if err := ip.Download(context.Background(), testScene, localDir); err != nil {
		t.Fatal(err)
	}
	checkProduct(t, localDir)

	err := ip.Download(context.Background(), "LC08_L1TP_196025_20200517_20200527_02_T1", localDir)
	if !errors.As(err, &ErrProductNotFound{}) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}

	if err := ip.Download(context.Background(), "not_a_landsat_product", localDir); !service.Fatal(err) {
		t.Errorf("expected a fatal error, got %v", err)
	}
}

func TestURLImageProvider(t *testing.T) {
	archive := makeArchive(t, t.TempDir(), testScene+".tar")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/LC08/"+testScene+".tar" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, archive)
	}))
	defer server.Close()

	ip := NewURLImageProvider(server.URL + "/{SENSOR}/{SCENE}.tar")
	localDir := t.TempDir()
	if err := ip.Download(context.Background(), testScene, localDir); err != nil {
		t.Fatal(err)
	}
	checkProduct(t, localDir)
	if _, err := os.Stat(filepath.Join(localDir, testScene+".tar")); !os.IsNotExist(err) {
		t.Errorf("archive must be removed after extraction: %v", err)
	}

	if err := ip.Download(context.Background(), "LC08_L1TP_196025_20200517_20200527_02_T1", t.TempDir()); err == nil {
		t.Error("expected an error")
	}
}

// fakeS3 serves ListObjectsV2 and GetObject requests on a single bucket
func fakeS3(t *testing.T, bucket string, objects map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/"+bucket || r.URL.Path == "/"+bucket+"/" {
			prefix := r.URL.Query().Get("prefix")
			var keys []string
			for k := range objects {
				if strings.HasPrefix(k, prefix) {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			buf := &bytes.Buffer{}
			fmt.Fprintf(buf, `<?xml version="1.0" encoding="UTF-8"?>`)
			fmt.Fprintf(buf, `<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><MaxKeys>200</MaxKeys><IsTruncated>false</IsTruncated>`, bucket, prefix, len(keys))
			for _, k := range keys {
				fmt.Fprintf(buf, `<Contents><Key>%s</Key><Size>%d</Size><StorageClass>STANDARD</StorageClass></Contents>`, k, len(objects[k]))
			}
			fmt.Fprintf(buf, `</ListBucketResult>`)
			w.Header().Set("Content-Type", "application/xml")
			w.Write(buf.Bytes())
			return
		}
		content, ok := objects[strings.TrimPrefix(r.URL.Path, "/"+bucket+"/")]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`)
			return
		}
		http.ServeContent(w, r, "object", time.Time{}, strings.NewReader(content))
	}))
}

func TestLandsatAwsImageProvider(t *testing.T) {
	prefix := "collection02/level-1/standard/oli-tirs/2020/196/025/" + testScene + "/"
	objects := map[string]string{}
	for f, content := range testFiles {
		objects[prefix+f] = content
	}
	server := fakeS3(t, landsatAwsBucket, objects)
	defer server.Close()

	ip := NewLandsatAwsImageProvider("access", "secret").WithEndpoint(server.URL)
	localDir := t.TempDir()
	if err := ip.Download(context.Background(), testScene, localDir); err != nil {
		t.Fatal(err)
	}
	checkProduct(t, localDir)

	err := ip.Download(context.Background(), "LC08_L1TP_196025_20200517_20200527_02_T1", t.TempDir())
	if !errors.As(err, &ErrProductNotFound{}) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}
