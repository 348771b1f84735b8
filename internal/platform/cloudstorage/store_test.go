package cloudstorage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadURLRoundTrip(t *testing.T) {
	u := DownloadURL("demo.appspot.com", "stories/u1/1700000000000.jpg", "tok")
	assert.Equal(t, "https://firebasestorage.googleapis.com/v0/b/demo.appspot.com/o/stories%2Fu1%2F1700000000000.jpg?alt=media&token=tok", u)

	path, err := ObjectPath(u)
	require.NoError(t, err)
	assert.Equal(t, "stories/u1/1700000000000.jpg", path)
}

func TestObjectPath(t *testing.T) {
	path, err := ObjectPath("gs://demo.appspot.com/profilePictures/u1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "profilePictures/u1.jpg", path)

	path, err = ObjectPath("posts/u1/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "posts/u1/a.jpg", path)

	_, err = ObjectPath("")
	assert.Error(t, err)
}
