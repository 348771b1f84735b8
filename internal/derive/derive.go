// Package derive computes display state from store snapshots. Every function is pure.
package derive

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/app/internal/models"
)

// StoryTTL is how long a story stays in the strip
const StoryTTL = 24 * time.Hour

// IsMember reports whether id is in set
func IsMember(set []string, id string) bool {
	return id != "" && slices.Contains(set, id)
}

// Count is the size of a membership set
func Count(set []string) int {
	return len(set)
}

// TimeAgo labels the time elapsed from t to now: "now", "Nm", "Nh", "Nd" or "Nw".
// A zero t, e.g. a server timestamp not yet resolved, has no label.
func TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	}
	return fmt.Sprintf("%dw", int(d/(7*24*time.Hour)))
}

// SortDesc returns a copy of items ordered newest first by at. Ties keep their input order.
func SortDesc[T any](items []T, at func(T) time.Time) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		return at(b).Compare(at(a))
	})
	return out
}

// SortAsc returns a copy of items ordered oldest first by at
func SortAsc[T any](items []T, at func(T) time.Time) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		return at(a).Compare(at(b))
	})
	return out
}

// StoryWindowStart is the earliest creation time still visible at now
func StoryWindowStart(now time.Time) time.Time {
	return now.Add(-StoryTTL)
}

// StoryVisible reports whether s was created less than StoryTTL before now
func StoryVisible(s models.Story, now time.Time) bool {
	if s.CreatedAt.IsZero() {
		return false
	}
	return now.Sub(s.CreatedAt) < StoryTTL
}

// VisibleStories keeps the stories still inside the window at now
func VisibleStories(stories []models.Story, now time.Time) []models.Story {
	out := make([]models.Story, 0, len(stories))
	for _, s := range stories {
		if StoryVisible(s, now) {
			out = append(out, s)
		}
	}
	return out
}

// UnreadCount counts the notifications not yet read
func UnreadCount(notifications []models.Notification) int {
	n := 0
	for _, item := range notifications {
		if !item.Read {
			n++
		}
	}
	return n
}

// UnreadIDs lists the ids of the notifications not yet read
func UnreadIDs(notifications []models.Notification) []string {
	var ids []string
	for _, item := range notifications {
		if !item.Read {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// LikesLabel renders a like count: "no likes", "1 like", "1,234 likes"
func LikesLabel(n int) string {
	switch {
	case n <= 0:
		return "no likes"
	case n == 1:
		return "1 like"
	}
	return groupThousands(n) + " likes"
}

// CommentsLabel renders the comment link, empty when there are none
func CommentsLabel(n int) string {
	switch {
	case n <= 0:
		return ""
	case n == 1:
		return "View 1 comment"
	}
	return fmt.Sprintf("View all %d comments", n)
}

const commentPreviewLen = 30

// NotificationText is the sentence shown after the sender's name
func NotificationText(n models.Notification) string {
	switch n.Type {
	case models.NotificationLike:
		return "liked your post."
	case models.NotificationComment:
		if n.CommentText == "" {
			return "commented on your post."
		}
		text := []rune(n.CommentText)
		if len(text) > commentPreviewLen {
			return "commented: " + string(text[:commentPreviewLen]) + "..."
		}
		return "commented: " + n.CommentText
	case models.NotificationFollow:
		return "started following you."
	}
	return ""
}

// OtherParticipant returns the other side of a conversation and its snapshot
func OtherParticipant(c models.Conversation, me string) (string, models.UserSnapshot) {
	other := c.Other(me)
	return other, c.ParticipantData[other]
}

// Username is username, else the email prefix, else def
func Username(username, email, def string) string {
	return models.FirstNonEmpty(username, models.EmailPrefix(email), def)
}

// SearchUsers keeps the users whose username or email contains text, ignoring case.
// An empty text matches nobody.
func SearchUsers(users []models.User, text string) []models.User {
	needle := strings.ToLower(text)
	if needle == "" {
		return []models.User{}
	}
	out := make([]models.User, 0)
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Username), needle) || strings.Contains(strings.ToLower(u.Email), needle) {
			out = append(out, u)
		}
	}
	return out
}

func groupThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
