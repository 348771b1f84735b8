package firestoredb

import (
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/stretchr/testify/assert"
)

func TestRelativePath(t *testing.T) {
	assert.Equal(t, "posts/p1/comments/c1",
		relativePath("projects/demo/databases/(default)/documents/posts/p1/comments/c1"))
	assert.Equal(t, "posts/p1", relativePath("posts/p1"))
}

func TestEncodeSentinels(t *testing.T) {
	out := encodeMap(map[string]any{
		"createdAt": platform.ServerTimestamp,
		"caption":   "hello",
		"user":      map[string]any{"username": "u"},
	})
	assert.Equal(t, firestore.ServerTimestamp, out["createdAt"])
	assert.Equal(t, "hello", out["caption"])
	assert.Equal(t, map[string]any{"username": "u"}, out["user"])

	updates := encodeUpdates([]platform.Update{{Field: "likes", Value: platform.ArrayUnion("u1")}})
	assert.Len(t, updates, 1)
	assert.Equal(t, "likes", updates[0].Path)
	assert.Equal(t, firestore.ArrayUnion("u1"), updates[0].Value)
}
