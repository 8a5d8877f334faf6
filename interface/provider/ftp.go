package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/airbusgeo/force-prep/common"
	"github.com/airbusgeo/force-prep/service"
	"github.com/jlaffaye/ftp"
)

// FTPImageProvider implements ImageProvider for connection to FTP
type FTPImageProvider struct {
	host        string
	pathPattern string
	user        string
	pword       string
	tls         bool
}

// Name implements ImageProvider
func (ip *FTPImageProvider) Name() string {
	return "FTP (" + ip.host + ")"
}

// NewFTPImageProvider creates a new ImageProvider for ftp download link
// pathPattern: full ftp path, including host, port and folder tree. i.e: ftp://ftp.example.org:21/landsat/{SCENE}.tar (see common.FormatBrackets)
// Port 990 enables implicit TLS.
func NewFTPImageProvider(pathPattern, user, pword string) *FTPImageProvider {
	pathPattern = strings.TrimPrefix(pathPattern, "ftp://")
	splits := strings.SplitN(pathPattern, "/", 2)
	if len(splits) == 1 {
		splits = append(splits, "{SCENE}.tar")
	}
	host := splits[0]
	splitHost := strings.SplitN(host, ":", 2)
	if len(splitHost) == 1 {
		host += ":21"
	}

	return &FTPImageProvider{
		host:        host,
		tls:         len(splitHost) == 2 && splitHost[1] == "990",
		pathPattern: splits[1],
		user:        user,
		pword:       pword,
	}
}

// Download implements ImageProvider
func (ip *FTPImageProvider) Download(ctx context.Context, sceneName, localDir string) error {
	info, err := sceneInfo("FTPImageProvider", sceneName)
	if err != nil {
		return err
	}
	path := common.FormatBrackets(ip.pathPattern, info)
	ext := archiveExt(path)
	if ext == "" {
		return service.MakeFatal(fmt.Errorf("FTPImageProvider: %s is not a supported archive", path))
	}

	// Connection to FTP
	ftpOption := []ftp.DialOption{ftp.DialWithTimeout(5 * time.Second), ftp.DialWithContext(ctx)}
	if ip.tls {
		ftpOption = append(ftpOption, ftp.DialWithTLS(&tls.Config{InsecureSkipVerify: true}))
	}
	c, err := ftp.Dial(ip.host, ftpOption...)
	if err != nil {
		return service.MakeTemporary(fmt.Errorf("FTPImageProvider.Dial: %w", err))
	}
	defer c.Quit()

	if err = c.Login(ip.user, ip.pword); err != nil {
		return fmt.Errorf("FTPImageProvider.Login: %w", err)
	}

	// Get file size (optional, for progress only)
	s, _ := c.FileSize(path)

	// Get file stream
	r, err := c.Retr(path)
	if err != nil {
		return ErrProductNotFound{"ftp://" + ip.host + "/" + path}
	}
	defer r.Close()

	// Download to local file
	localArchive := sceneFilePath(localDir, sceneName, ext)
	if err := copyToFile(localArchive, io.TeeReader(r, &WriteCounter{Progress: NewProgress(ctx, "Ftp:"+sceneName, s, 5)})); err != nil {
		return service.MakeTemporary(fmt.Errorf("FTPImageProvider.%w", err))
	}
	defer os.Remove(localArchive)

	if err := unarchive(localArchive, filepath.Join(localDir, sceneName)); err != nil {
		return fmt.Errorf("FTPImageProvider.%w", err)
	}
	return nil
}

// copyToFile creates dst and copies r in it
func copyToFile(dst string, r io.Reader) error {
	destFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("copyToFile.Create: %w", err)
	}
	if _, err = io.Copy(destFile, r); err != nil {
		destFile.Close()
		return fmt.Errorf("copyToFile.Copy: %w", err)
	}
	if err = destFile.Close(); err != nil {
		return fmt.Errorf("copyToFile.Close: %w", err)
	}
	return nil
}
