// Package filestorage stores report files locally or on cloud storage.
package filestorage

import (
	"fmt"
	"path"
	"strings"
	"time"
)

const (
	timeout = time.Second * 50
)

// FileStorage is a place where files can be uploaded to.
type FileStorage interface {
	// Upload saves b as fileName inside bucket and returns where it was placed.
	Upload(b []byte, bucket, fileName string) (string, error)

	// FileExists reports whether fileName is already inside bucket.
	FileExists(bucket, fileName string) bool
}

// Destination is a parsed upload target.
type Destination struct {
	Scheme   string // "gs", "s3", "drive" or "" for the local file system
	Bucket   string // bucket, Drive folder ID or local directory
	FileName string
}

// ParseDestination splits dest, e.g. gs://bucket/report.csv, s3://bucket/a/report.csv,
// drive://folderID/report.csv or a plain local path.
func ParseDestination(dest string) (Destination, error) {
	for _, scheme := range []string{"gs", "s3", "drive"} {
		prefix := scheme + "://"
		if !strings.HasPrefix(dest, prefix) {
			continue
		}
		rest := strings.TrimPrefix(dest, prefix)
		i := strings.Index(rest, "/")
		if i <= 0 || i == len(rest)-1 {
			return Destination{}, fmt.Errorf("destino inválido [%s], esperado %sBUCKET/ARQUIVO", dest, prefix)
		}
		return Destination{Scheme: scheme, Bucket: rest[:i], FileName: rest[i+1:]}, nil
	}
	if dest == "" {
		return Destination{}, fmt.Errorf("destino vazio")
	}
	dir, file := path.Split(dest)
	if dir == "" {
		dir = "."
	}
	return Destination{Bucket: strings.TrimSuffix(dir, "/"), FileName: file}, nil
}

// Options carries the credentials some storages need.
type Options struct {
	DriveCredentialsFile string
	DriveOAuthTokenFile  string
}

// New returns the FileStorage serving d.
func New(d Destination, opts Options) (FileStorage, error) {
	switch d.Scheme {
	case "gs":
		c, err := NewGCSClient()
		if err != nil {
			return nil, err
		}
		return c, nil
	case "s3":
		c, err := NewAWSClient()
		if err != nil {
			return nil, err
		}
		return c, nil
	case "drive":
		return NewGoogleDriveStorage(opts.DriveCredentialsFile, opts.DriveOAuthTokenFile)
	}
	return NewLocalStorage(), nil
}
