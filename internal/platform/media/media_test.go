package media

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid PNG header plus IHDR chunk start
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 2, 0, 0, 0}

func TestLibraryPick(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cat.png"), pngBytes, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))

	lib := NewLibrary(dir)
	ok, err := lib.RequestPermission(context.Background(), platform.MediaImage)
	require.NoError(t, err)
	assert.True(t, ok)

	f, err := lib.Pick(context.Background(), platform.MediaImage, "cat.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.ContentType)

	rc, err := f.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	_, err = lib.Pick(context.Background(), platform.MediaImage, "notes.txt")
	assert.Error(t, err)

	_, err = lib.Pick(context.Background(), platform.MediaImage, "missing.png")
	assert.ErrorIs(t, err, platform.ErrNoMediaSelected)
}

func TestLibraryWithoutDirectoryIsDenied(t *testing.T) {
	lib := NewLibrary(filepath.Join(t.TempDir(), "nope"))
	ok, err := lib.RequestPermission(context.Background(), platform.MediaImage)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = lib.Pick(context.Background(), platform.MediaImage, "cat.png")
	assert.ErrorIs(t, err, platform.ErrPermissionDenied)
}

func TestLibraryCapture(t *testing.T) {
	dir := t.TempDir()
	lib := NewLibrary(dir)
	ctx := context.Background()

	ok, err := lib.RequestPermission(ctx, platform.MediaCamera)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = lib.Capture(ctx)
	assert.ErrorIs(t, err, platform.ErrPermissionDenied)

	camera := filepath.Join(dir, CameraDir)
	require.NoError(t, os.Mkdir(camera, 0o755))
	_, err = lib.Capture(ctx)
	assert.ErrorIs(t, err, platform.ErrNoMediaSelected)

	older := filepath.Join(camera, "older.png")
	newer := filepath.Join(camera, "newer.png")
	require.NoError(t, os.WriteFile(older, pngBytes, 0o644))
	require.NoError(t, os.WriteFile(newer, pngBytes, 0o644))
	now := time.Now()
	require.NoError(t, os.Chtimes(older, now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(newer, now, now))

	f, err := lib.Capture(ctx)
	require.NoError(t, err)
	assert.Equal(t, "newer.png", f.Name)
	assert.Equal(t, "image/png", f.ContentType)
}
