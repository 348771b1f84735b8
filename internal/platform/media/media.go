// Package media provides image files to the app: a directory-backed picker and uploads received over HTTP.
package media

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/gabriel-vasile/mimetype"
)

// CameraDir is the subdirectory of a library that stands in for the camera roll of new shots
const CameraDir = "camera"

// Library picks images from a local directory. Permission is granted when the directory is readable.
// The camera is the CameraDir subdirectory: a capture returns the newest image in it.
type Library struct {
	dir string
}

var _ platform.MediaSource = (*Library)(nil)

func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

func (l *Library) RequestPermission(_ context.Context, kind platform.MediaKind) (bool, error) {
	dir := l.dir
	switch kind {
	case platform.MediaImage:
	case platform.MediaCamera:
		dir = filepath.Join(l.dir, CameraDir)
	default:
		return false, nil
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) || os.IsPermission(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat media library: %w", err)
	}
	return info.IsDir(), nil
}

func (l *Library) Pick(ctx context.Context, kind platform.MediaKind, name string) (platform.MediaFile, error) {
	granted, err := l.RequestPermission(ctx, kind)
	if err != nil {
		return platform.MediaFile{}, err
	}
	if !granted {
		return platform.MediaFile{}, platform.ErrPermissionDenied
	}
	if name == "" {
		return platform.MediaFile{}, platform.ErrNoMediaSelected
	}

	return imageFile(filepath.Join(l.dir, filepath.Base(name)))
}

// Capture returns the newest image in the camera directory
func (l *Library) Capture(ctx context.Context) (platform.MediaFile, error) {
	granted, err := l.RequestPermission(ctx, platform.MediaCamera)
	if err != nil {
		return platform.MediaFile{}, err
	}
	if !granted {
		return platform.MediaFile{}, platform.ErrPermissionDenied
	}

	dir := filepath.Join(l.dir, CameraDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return platform.MediaFile{}, fmt.Errorf("read camera: %w", err)
	}
	var (
		newest  string
		newestT time.Time
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestT) {
			newest, newestT = e.Name(), info.ModTime()
		}
	}
	if newest == "" {
		return platform.MediaFile{}, platform.ErrNoMediaSelected
	}
	return imageFile(filepath.Join(dir, newest))
}

func imageFile(path string) (platform.MediaFile, error) {
	name := filepath.Base(path)
	mt, err := mimetype.DetectFile(path)
	if os.IsNotExist(err) {
		return platform.MediaFile{}, platform.ErrNoMediaSelected
	}
	if err != nil {
		return platform.MediaFile{}, fmt.Errorf("detect %s: %w", name, err)
	}
	if !isImage(mt) {
		return platform.MediaFile{}, fmt.Errorf("%s is %s, not an image", name, mt.String())
	}

	return platform.MediaFile{
		Name:        name,
		ContentType: mt.String(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FromUpload wraps an uploaded multipart file as a media file.
func FromUpload(fh *multipart.FileHeader) (platform.MediaFile, error) {
	f, err := fh.Open()
	if err != nil {
		return platform.MediaFile{}, fmt.Errorf("open upload: %w", err)
	}
	mt, err := mimetype.DetectReader(f)
	f.Close()
	if err != nil {
		return platform.MediaFile{}, fmt.Errorf("detect upload: %w", err)
	}
	if !isImage(mt) {
		return platform.MediaFile{}, fmt.Errorf("%s is %s, not an image", fh.Filename, mt.String())
	}
	return platform.MediaFile{
		Name:        fh.Filename,
		ContentType: mt.String(),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}, nil
}

func isImage(mt *mimetype.MIME) bool {
	return strings.HasPrefix(mt.String(), "image/")
}
