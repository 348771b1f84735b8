package platform

import (
	"context"
	"errors"
	"io"
)

type MediaKind string

const (
	// MediaImage is access to the photo library
	MediaImage MediaKind = "image"
	// MediaCamera is access to the camera
	MediaCamera MediaKind = "camera"
)

var (
	ErrPermissionDenied = errors.New("media permission denied")
	ErrNoMediaSelected  = errors.New("no media selected")
)

// MediaFile is a local handle to a captured or picked image.
type MediaFile struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// MediaSource is the device media capability: pick from the library or capture with the camera.
type MediaSource interface {
	RequestPermission(ctx context.Context, kind MediaKind) (bool, error)
	Pick(ctx context.Context, kind MediaKind, name string) (MediaFile, error)
	// Capture takes a photo. ErrNoMediaSelected means the user dismissed the camera.
	Capture(ctx context.Context) (MediaFile, error)
}
