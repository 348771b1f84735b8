// Package cloudstorage adapts a Firebase Storage bucket to platform.ObjectStore.
package cloudstorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/google/uuid"
)

const (
	tokenKey       = "firebaseStorageDownloadTokens"
	downloadPrefix = "https://firebasestorage.googleapis.com/v0/b/"
)

type Store struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

var _ platform.ObjectStore = (*Store)(nil)

func New(bucket *gcs.BucketHandle, bucketName string) *Store {
	return &Store{bucket: bucket, bucketName: bucketName}
}

func (s *Store) Upload(ctx context.Context, path string, r io.Reader, contentType string) (platform.Object, error) {
	token := uuid.NewString()
	w := s.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{tokenKey: token}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return platform.Object{}, fmt.Errorf("upload %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return platform.Object{}, fmt.Errorf("upload %s: %w", path, err)
	}
	return platform.Object{Path: path, URL: DownloadURL(s.bucketName, path, token)}, nil
}

// URL returns the tokenized download URL, minting a token for objects uploaded without one.
func (s *Store) URL(ctx context.Context, path string) (string, error) {
	obj := s.bucket.Object(path)
	attrs, err := obj.Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return "", fmt.Errorf("object %s: %w", path, platform.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("object %s: %w", path, err)
	}

	token := strings.Split(attrs.Metadata[tokenKey], ",")[0]
	if token == "" {
		token = uuid.NewString()
		_, err := obj.Update(ctx, gcs.ObjectAttrsToUpdate{Metadata: map[string]string{tokenKey: token}})
		if err != nil {
			return "", fmt.Errorf("object %s: %w", path, err)
		}
	}
	return DownloadURL(s.bucketName, path, token), nil
}

func (s *Store) Delete(ctx context.Context, ref string) error {
	path, err := ObjectPath(ref)
	if err != nil {
		return err
	}
	err = s.bucket.Object(path).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("object %s: %w", path, platform.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// DownloadURL builds the URL Firebase clients use to fetch an object.
func DownloadURL(bucket, path, token string) string {
	return fmt.Sprintf("%s%s/o/%s?alt=media&token=%s", downloadPrefix, bucket, url.PathEscape(path), token)
}

// ObjectPath extracts the object path from a download URL, a gs:// URL or a plain path.
func ObjectPath(ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, downloadPrefix):
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("parse %q: %w", ref, err)
		}
		escaped := u.EscapedPath()
		i := strings.Index(escaped, "/o/")
		if i < 0 {
			return "", fmt.Errorf("no object in %q", ref)
		}
		return url.PathUnescape(escaped[i+len("/o/"):])
	case strings.HasPrefix(ref, "gs://"):
		rest := strings.TrimPrefix(ref, "gs://")
		i := strings.Index(rest, "/")
		if i < 0 {
			return "", fmt.Errorf("no object in %q", ref)
		}
		return rest[i+1:], nil
	case ref == "":
		return "", fmt.Errorf("empty object reference")
	}
	return ref, nil
}
