package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayUnionAndRemove(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	require.NoError(t, s.Set(ctx, "posts/p1", map[string]any{"likes": []string{}}, false))

	require.NoError(t, s.Update(ctx, "posts/p1", platform.Update{Field: "likes", Value: platform.ArrayUnion("u1")}))
	require.NoError(t, s.Update(ctx, "posts/p1", platform.Update{Field: "likes", Value: platform.ArrayUnion("u1", "u2")}))

	doc, err := s.Get(ctx, "posts/p1")
	require.NoError(t, err)
	assert.Equal(t, []any{"u1", "u2"}, doc.Data["likes"])

	require.NoError(t, s.Update(ctx, "posts/p1", platform.Update{Field: "likes", Value: platform.ArrayRemove("u1")}))
	doc, err = s.Get(ctx, "posts/p1")
	require.NoError(t, err)
	assert.Equal(t, []any{"u2"}, doc.Data["likes"])
}

func TestUpdateMissingDocument(t *testing.T) {
	s := NewStore(nil)
	err := s.Update(context.Background(), "posts/missing", platform.Update{Field: "caption", Value: "x"})
	assert.ErrorIs(t, err, platform.ErrNotFound)

	doc, err := s.Get(context.Background(), "posts/missing")
	require.NoError(t, err)
	assert.False(t, doc.Exists)
	assert.Equal(t, "missing", doc.ID)
}

func TestServerTimestampUsesClock(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(clockwork.NewFakeClockAt(now))

	id, err := s.Add(context.Background(), "stories", map[string]any{"createdAt": platform.ServerTimestamp})
	require.NoError(t, err)

	doc, err := s.Get(context.Background(), "stories/"+id)
	require.NoError(t, err)
	assert.Equal(t, now, doc.Data["createdAt"])
}

func TestQueryFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Set(ctx, "notifications/a", map[string]any{"toUserId": "u2", "createdAt": base}, false))
	require.NoError(t, s.Set(ctx, "notifications/b", map[string]any{"toUserId": "u2", "createdAt": base.Add(time.Hour)}, false))
	require.NoError(t, s.Set(ctx, "notifications/c", map[string]any{"toUserId": "u3", "createdAt": base}, false))
	require.NoError(t, s.Set(ctx, "posts/p1/comments/x", map[string]any{"toUserId": "u2"}, false))

	docs, err := s.GetAll(ctx, platform.Collection("notifications").
		Where("toUserId", platform.OpEqual, "u2").
		OrderBy("createdAt", platform.Desc))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID)
	assert.Equal(t, "a", docs[1].ID)

	docs, err = s.GetAll(ctx, platform.Collection("notifications").Where("createdAt", platform.OpGreater, base))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].ID)
}

func TestArrayContainsFilter(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	require.NoError(t, s.Set(ctx, "conversations/c1", map[string]any{"participants": []string{"u1", "u2"}}, false))
	require.NoError(t, s.Set(ctx, "conversations/c2", map[string]any{"participants": []string{"u2", "u3"}}, false))

	docs, err := s.GetAll(ctx, platform.Collection("conversations").Where("participants", platform.OpArrayContains, "u1"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "c1", docs[0].ID)
}

func TestWatchQueryDeliversFullSnapshots(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)

	var mu sync.Mutex
	var sizes []int
	sub, err := s.WatchQuery(ctx, platform.Collection("posts"), func(docs []platform.Document, err error) {
		assert.NoError(t, err)
		mu.Lock()
		sizes = append(sizes, len(docs))
		mu.Unlock()
	})
	require.NoError(t, err)
	defer sub.Stop()

	require.NoError(t, s.Set(ctx, "posts/p1", map[string]any{"caption": "a"}, false))
	require.NoError(t, s.Set(ctx, "posts/p2", map[string]any{"caption": "b"}, false))
	require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"username": "x"}, false))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sizes) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []int{0, 1, 2}, sizes)
	mu.Unlock()
}

func TestStopSuppressesFurtherCallbacks(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)

	var mu sync.Mutex
	calls := 0
	sub, err := s.WatchDocument(ctx, "users/u1", func(platform.Document, error) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, 5*time.Millisecond)

	sub.Stop()
	require.NoError(t, s.Set(ctx, "users/u1", map[string]any{"bio": "hi"}, false))
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestWatchStopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStore(nil)

	sub, err := s.WatchDocument(ctx, "users/u1", func(platform.Document, error) {})
	require.NoError(t, err)
	cancel()

	require.Eventually(t, func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return len(s.listeners) == 0
	}, time.Second, 5*time.Millisecond)
	sub.Stop()
}

func TestBatchCommit(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	require.NoError(t, s.Set(ctx, "notifications/a", map[string]any{"read": false}, false))
	require.NoError(t, s.Set(ctx, "notifications/b", map[string]any{"read": false}, false))

	b := s.Batch()
	b.Update("notifications/a", platform.Update{Field: "read", Value: true})
	b.Update("notifications/b", platform.Update{Field: "read", Value: true})
	require.NoError(t, b.Commit(ctx))

	docs, err := s.GetAll(ctx, platform.Collection("notifications").Where("read", platform.OpEqual, true))
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	b = s.Batch()
	b.Update("notifications/a", platform.Update{Field: "read", Value: false})
	b.Update("notifications/zzz", platform.Update{Field: "read", Value: false})
	require.ErrorIs(t, b.Commit(ctx), platform.ErrNotFound)

	doc, err := s.Get(ctx, "notifications/a")
	require.NoError(t, err)
	assert.Equal(t, true, doc.Data["read"])
}

func TestInjectFault(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	boom := errors.New("unavailable")
	s.InjectFault(func(op WriteOp, path string) error {
		if op == OpAdd && strings.HasPrefix(path, "notifications/") {
			return boom
		}
		return nil
	})

	_, err := s.Add(ctx, "notifications", map[string]any{"type": "like"})
	assert.ErrorIs(t, err, boom)
	_, err = s.Add(ctx, "posts", map[string]any{"caption": "ok"})
	assert.NoError(t, err)
}

func TestInvalidPaths(t *testing.T) {
	s := NewStore(nil)
	_, err := s.Get(context.Background(), "posts")
	assert.Error(t, err)
	_, err = s.GetAll(context.Background(), platform.Collection("posts/p1"))
	assert.Error(t, err)
}

func TestObjects(t *testing.T) {
	ctx := context.Background()
	o := NewObjects()

	obj, err := o.Upload(ctx, "stories/u1/1.jpg", strings.NewReader("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, o.Exists("stories/u1/1.jpg"))

	url, err := o.URL(ctx, "stories/u1/1.jpg")
	require.NoError(t, err)
	assert.Equal(t, obj.URL, url)

	require.NoError(t, o.Delete(ctx, url))
	assert.False(t, o.Exists("stories/u1/1.jpg"))
	assert.ErrorIs(t, o.Delete(ctx, "stories/u1/1.jpg"), platform.ErrNotFound)
}
