package screens

import (
	"testing"
	"time"

	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/mutations"
	"github.com/anonto42/nano-midea/app/internal/navigation"
	"github.com/anonto42/nano-midea/app/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storyIDs(st FeedState) []string {
	ids := make([]string, 0, len(st.Stories))
	for _, s := range st.Stories {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestFeedStoryWindow(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	bob := f.account(t, "bob@x.io", "bob")
	f.signIn(t, ann)

	id, err := f.deps.Stories.CreateStory(f.ctx, models.NewStoryData(bob.UID, "bob", "memory://objects/s.jpg", ""))
	require.NoError(t, err)

	feed, err := OpenFeed(f.ctx, f.deps)
	require.NoError(t, err)
	defer feed.Close()

	st := eventually(t, feed, func(st FeedState) bool { return len(st.Stories) == 2 })
	assert.Equal(t, []string{models.YourStoryID, id}, storyIDs(st))
	assert.Equal(t, "Your Story", st.Stories[0].Name)
	assert.Equal(t, DefaultAvatar, st.Stories[0].Image)

	f.clock.Advance(23 * time.Hour)
	assert.Equal(t, []string{models.YourStoryID, id}, storyIDs(feed.State().(FeedState)))

	f.clock.Advance(2 * time.Hour)
	assert.Equal(t, []string{models.YourStoryID}, storyIDs(feed.State().(FeedState)))

	require.NoError(t, feed.refreshStories())
	assert.Equal(t, []string{models.YourStoryID}, storyIDs(feed.State().(FeedState)))

	story, ok, err := f.deps.Stories.GetStory(f.ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, bob.UID, story.UserID)
}

func TestFeedLikeAndCommentCounts(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	bob := f.account(t, "bob@x.io", "bob")
	pid := f.post(t, bob, "sunset")
	f.signIn(t, ann)

	feed, err := OpenFeed(f.ctx, f.deps)
	require.NoError(t, err)
	defer feed.Close()

	st := eventually(t, feed, func(st FeedState) bool { return !st.Loading && len(st.Posts) == 1 })
	assert.Equal(t, "no likes", st.Posts[0].LikesLabel)
	assert.Equal(t, "", st.Posts[0].CommentsLabel)
	assert.False(t, st.Posts[0].Mine)

	f.comment(t, pid, bob, "first")
	st = eventually(t, feed, func(st FeedState) bool { return len(st.Posts) == 1 && st.Posts[0].CommentCount == 1 })
	assert.Equal(t, "View 1 comment", st.Posts[0].CommentsLabel)

	res, err := feed.Do(f.ctx, "like", params(t, postParams{PostID: pid}))
	require.NoError(t, err)
	assert.Equal(t, mutations.LikeState{Liked: true, Count: 1, Label: "1 like"}, res)

	st = feed.State().(FeedState)
	assert.True(t, st.Posts[0].Liked)
	assert.Equal(t, 1, st.Posts[0].LikeCount)

	st = eventually(t, feed, func(st FeedState) bool {
		return len(st.Posts) == 1 && len(st.Posts[0].Likes) == 1
	})
	assert.Equal(t, []string{ann.UID}, st.Posts[0].Likes)
	assert.Equal(t, len(st.Posts[0].Likes), st.Posts[0].LikeCount)

	res, err = feed.Do(f.ctx, "like", params(t, postParams{PostID: pid}))
	require.NoError(t, err)
	assert.Equal(t, mutations.LikeState{Liked: false, Count: 0, Label: "no likes"}, res)

	_, err = feed.Do(f.ctx, "like", params(t, postParams{PostID: "gone"}))
	assert.Error(t, err)
}

func TestFeedSaveAndUnreadBadge(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	bob := f.account(t, "bob@x.io", "bob")
	pid := f.post(t, bob, "sunset")
	f.signIn(t, ann)

	feed, err := OpenFeed(f.ctx, f.deps)
	require.NoError(t, err)
	defer feed.Close()
	eventually(t, feed, func(st FeedState) bool { return len(st.Posts) == 1 })

	saved, err := feed.Do(f.ctx, "save", params(t, postParams{PostID: pid}))
	require.NoError(t, err)
	assert.Equal(t, true, saved)
	assert.True(t, feed.State().(FeedState).Posts[0].Saved)

	u, _, err := f.deps.Users.GetUser(f.ctx, ann.UID)
	require.NoError(t, err)
	assert.Equal(t, []string{pid}, u.SavedPosts)

	_, err = f.deps.Notifications.CreateNotification(f.ctx, models.Notification{
		Type:       models.NotificationFollow,
		FromUserID: bob.UID,
		ToUserID:   ann.UID,
	})
	require.NoError(t, err)
	eventually(t, feed, func(st FeedState) bool { return st.Unread == 1 })
}

func TestFeedTracksCommentWatchersPerPost(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	first := f.post(t, ann, "one")
	f.post(t, ann, "two")
	f.signIn(t, ann)

	feed, err := OpenFeed(f.ctx, f.deps)
	require.NoError(t, err)

	watchers := func() int {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return len(feed.comments)
	}
	require.Eventually(t, func() bool { return watchers() == 2 }, wait, tick)

	require.NoError(t, f.store.Delete(f.ctx, models.PostPath(first)))
	require.Eventually(t, func() bool { return watchers() == 1 }, wait, tick)

	changes, _ := feed.Changes()
	feed.Close()
	feed.Close()
	for range changes {
	}
	assert.True(t, feed.group.Closed())
	assert.Equal(t, 0, feed.group.Len())
}

func TestFeedOpenStory(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	f.signIn(t, ann)

	feed, err := OpenFeed(f.ctx, f.deps)
	require.NoError(t, err)
	defer feed.Close()

	res, err := feed.Do(f.ctx, "open_story", params(t, map[string]string{"story_id": models.YourStoryID}))
	require.NoError(t, err)
	assert.Equal(t, navigation.CreateStory, res.(RouteResult).Destination)
}

func TestFeedSchedulesStoryRefresh(t *testing.T) {
	f := newFixture(t)
	ann := f.account(t, "ann@x.io", "ann")
	f.signIn(t, ann)

	s, err := scheduler.New(nil, nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, s.Shutdown()) }()
	f.deps.Scheduler = s

	feed, err := OpenFeed(f.ctx, f.deps)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Jobs())

	feed.Close()
	assert.Equal(t, 0, s.Jobs())
}
