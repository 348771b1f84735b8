package derive

import (
	"testing"
	"time"

	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestTimeAgoBoundaries(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		elapsed time.Duration
		want    string
	}{
		{0, "now"},
		{59 * time.Second, "now"},
		{60 * time.Second, "1m"},
		{59 * time.Minute, "59m"},
		{60 * time.Minute, "1h"},
		{23 * time.Hour, "23h"},
		{24 * time.Hour, "1d"},
		{6 * 24 * time.Hour, "6d"},
		{7 * 24 * time.Hour, "1w"},
		{30 * 24 * time.Hour, "4w"},
		{-time.Hour, "now"},
	}
	for _, tc := range cases {
		t.Run(tc.elapsed.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, TimeAgo(now.Add(-tc.elapsed), now))
		})
	}
	assert.Equal(t, "", TimeAgo(time.Time{}, now))
}

func TestLikeMembership(t *testing.T) {
	likes := []string{"u1", "u2"}
	assert.True(t, IsMember(likes, "u1"))
	assert.False(t, IsMember(likes, "u3"))
	assert.False(t, IsMember(likes, ""))
	assert.Equal(t, 2, Count(likes))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "no likes", LikesLabel(0))
	assert.Equal(t, "1 like", LikesLabel(1))
	assert.Equal(t, "2 likes", LikesLabel(2))
	assert.Equal(t, "1,234 likes", LikesLabel(1234))
	assert.Equal(t, "1,234,567 likes", LikesLabel(1234567))

	assert.Equal(t, "", CommentsLabel(0))
	assert.Equal(t, "View 1 comment", CommentsLabel(1))
	assert.Equal(t, "View all 5 comments", CommentsLabel(5))
}

func TestNotificationText(t *testing.T) {
	assert.Equal(t, "liked your post.", NotificationText(models.Notification{Type: models.NotificationLike}))
	assert.Equal(t, "started following you.", NotificationText(models.Notification{Type: models.NotificationFollow}))
	assert.Equal(t, "commented on your post.", NotificationText(models.Notification{Type: models.NotificationComment}))
	assert.Equal(t, "commented: short", NotificationText(models.Notification{Type: models.NotificationComment, CommentText: "short"}))
	assert.Equal(t, "commented: 123456789012345678901234567890...",
		NotificationText(models.Notification{Type: models.NotificationComment, CommentText: "1234567890123456789012345678901"}))
	assert.Equal(t, "", NotificationText(models.Notification{Type: "mention"}))
}

func TestSortDescIsStable(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []models.Notification{
		{ID: "a", CreatedAt: base},
		{ID: "b", CreatedAt: base.Add(time.Hour)},
		{ID: "c", CreatedAt: base},
		{ID: "d"},
	}
	out := SortDesc(in, func(n models.Notification) time.Time { return n.CreatedAt })
	ids := make([]string, len(out))
	for i, n := range out {
		ids[i] = n.ID
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids)
	assert.Equal(t, "a", in[0].ID)
}

func TestStoryVisibility(t *testing.T) {
	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	s := models.Story{ID: "s1", CreatedAt: created}
	assert.True(t, StoryVisible(s, created.Add(23*time.Hour)))
	assert.False(t, StoryVisible(s, created.Add(24*time.Hour)))
	assert.False(t, StoryVisible(s, created.Add(25*time.Hour)))
	assert.False(t, StoryVisible(models.Story{}, created))
	assert.Equal(t, created, StoryWindowStart(created.Add(StoryTTL)))
	assert.Len(t, VisibleStories([]models.Story{s}, created.Add(25*time.Hour)), 0)
}

func TestUnread(t *testing.T) {
	ns := []models.Notification{{ID: "a"}, {ID: "b", Read: true}, {ID: "c"}}
	assert.Equal(t, 2, UnreadCount(ns))
	assert.Equal(t, []string{"a", "c"}, UnreadIDs(ns))
	assert.Equal(t, 0, UnreadCount(nil))
}

func TestOtherParticipant(t *testing.T) {
	c := models.Conversation{
		Participants:    []string{"u1", "u2"},
		ParticipantData: map[string]models.UserSnapshot{"u2": {Username: "bob"}},
	}
	id, snap := OtherParticipant(c, "u1")
	assert.Equal(t, "u2", id)
	assert.Equal(t, "bob", snap.Username)
}

func TestSearchUsers(t *testing.T) {
	users := []models.User{
		{ID: "1", Username: "Alice", Email: "a@x.io"},
		{ID: "2", Username: "bob", Email: "ALICE.b@x.io"},
		{ID: "3", Username: "carl", Email: "c@x.io"},
	}
	got := SearchUsers(users, "aLi")
	assert.Len(t, got, 2)
	assert.Empty(t, SearchUsers(users, ""))
	assert.Equal(t, "ann", Username("", "ann@x.io", "User"))
	assert.Equal(t, "User", Username("", "", "User"))
}
