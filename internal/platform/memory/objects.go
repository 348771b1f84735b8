package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/anonto42/nano-midea/app/internal/platform"
)

const urlPrefix = "memory://objects/"

type blob struct {
	data        []byte
	contentType string
}

// Objects is an in-process ObjectStore.
type Objects struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

var _ platform.ObjectStore = (*Objects)(nil)

func NewObjects() *Objects {
	return &Objects{blobs: make(map[string]blob)}
}

func (o *Objects) Upload(ctx context.Context, path string, r io.Reader, contentType string) (platform.Object, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return platform.Object{}, fmt.Errorf("read upload %s: %w", path, err)
	}
	o.mu.Lock()
	o.blobs[path] = blob{data: buf.Bytes(), contentType: contentType}
	o.mu.Unlock()
	return platform.Object{Path: path, URL: urlPrefix + path}, nil
}

func (o *Objects) URL(_ context.Context, path string) (string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if _, ok := o.blobs[path]; !ok {
		return "", fmt.Errorf("object %s: %w", path, platform.ErrNotFound)
	}
	return urlPrefix + path, nil
}

func (o *Objects) Delete(_ context.Context, ref string) error {
	path := strings.TrimPrefix(ref, urlPrefix)
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.blobs[path]; !ok {
		return fmt.Errorf("object %s: %w", path, platform.ErrNotFound)
	}
	delete(o.blobs, path)
	return nil
}

// Exists reports whether a blob is stored at path.
func (o *Objects) Exists(path string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.blobs[path]
	return ok
}

// ContentType returns the content type recorded for path.
func (o *Objects) ContentType(path string) string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.blobs[path].contentType
}
