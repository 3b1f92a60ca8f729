// Package media uploads attachments to object storage and hands the resulting
// URLs to a single save step.
package media

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// ErrStorageUnavailable is returned by Unavailable for every upload.
var ErrStorageUnavailable = errors.New("media: object storage is not configured")

// Source is one attachment to upload.
type Source interface {
	// Name is the last path segment of the attachment, used in the object key.
	Name() string
	Open() (io.ReadCloser, error)
}

// ObjectStore uploads one object and returns its public download URL.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader) (string, error)
}

// LocalFile is an attachment on the server's filesystem.
type LocalFile string

func (f LocalFile) Name() string {
	return filepath.Base(string(f))
}

func (f LocalFile) Open() (io.ReadCloser, error) {
	return os.Open(string(f))
}

// FormFile is an attachment received in a multipart request.
type FormFile struct {
	Header *multipart.FileHeader
}

func (f FormFile) Name() string {
	return filepath.Base(f.Header.Filename)
}

func (f FormFile) Open() (io.ReadCloser, error) {
	return f.Header.Open()
}

// FormFiles wraps every header of a multipart field.
func FormFiles(headers []*multipart.FileHeader) []Source {
	out := make([]Source, 0, len(headers))
	for _, h := range headers {
		out = append(out, FormFile{Header: h})
	}
	return out
}

// Unavailable is the store used when no object storage credentials are configured.
type Unavailable struct{}

func (Unavailable) Upload(context.Context, string, io.Reader) (string, error) {
	return "", ErrStorageUnavailable
}

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// IsImage reports whether name has a .jpg, .jpeg or .png extension, in any case.
// Every other attachment is treated as a video.
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Split partitions names into images and videos, keeping their relative order.
func Split(names []string) (images, videos []string) {
	images, videos = []string{}, []string{}
	for _, n := range names {
		if IsImage(n) {
			images = append(images, n)
		} else {
			videos = append(videos, n)
		}
	}
	return images, videos
}
