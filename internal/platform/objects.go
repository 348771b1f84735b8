package platform

import (
	"context"
	"io"
)

// Object is an uploaded blob.
type Object struct {
	Path string
	URL  string
}

//go:generate go run go.uber.org/mock/mockgen -source=objects.go -destination=mocks/objects.go -package=mocks

// ObjectStore is the remote binary blob store.
type ObjectStore interface {
	Upload(ctx context.Context, path string, r io.Reader, contentType string) (Object, error)
	URL(ctx context.Context, path string) (string, error)
	// Delete removes a blob by its path or by a URL previously returned for it.
	Delete(ctx context.Context, ref string) error
}
