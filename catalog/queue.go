package catalog

import (
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/airbusgeo/force-prep/service"
)

// queuedPath matches the absolute paths of the products listed in a FORCE queue file
// e.g. "/data/level1/LC08_L1TP_196025_20200501_20200509_02_T1.tar QUEUED"
var queuedPath = regexp.MustCompile(`(/.*?\.[\w:]+)`)

// ReadQueue returns the identifiers of the products already listed in the queue file
func ReadQueue(queueFile string) ([]string, error) {
	f, err := os.Open(queueFile)
	if err != nil {
		return nil, fmt.Errorf("ReadQueue: %w", err)
	}
	defer f.Close()
	stems, err := QueuedStems(f)
	if err != nil {
		return nil, fmt.Errorf("ReadQueue[%s]: %w", queueFile, err)
	}
	return stems, nil
}

// QueuedStems extracts all the paths of r and returns their file name without extension.
// Stems are unique and returned in order of appearance.
func QueuedStems(r io.Reader) ([]string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	seen := service.StringSet{}
	var stems []string
	for _, p := range queuedPath.FindAllString(string(content), -1) {
		s := stem(p)
		if s == "" || seen.Exists(s) {
			continue
		}
		seen.Push(s)
		stems = append(stems, s)
	}
	return stems, nil
}

// stem returns the base name of p without its last extension.
// Leading dots belong to the name: stem("/a/.b") is ".b".
func stem(p string) string {
	base := path.Base(p)
	if i := strings.LastIndex(base, "."); i > 0 && strings.Trim(base[:i], ".") != "" {
		return base[:i]
	}
	return base
}

// ToDownload returns the candidates that are not already queued, in the same order.
// A candidate is considered queued as soon as it contains one of the queued stems.
func ToDownload(candidates, queued []string) []string {
	toDownload := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !containsAny(c, queued) {
			toDownload = append(toDownload, c)
		}
	}
	return toDownload
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
