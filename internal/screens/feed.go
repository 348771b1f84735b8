package screens

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/app/internal/derive"
	"github.com/anonto42/nano-midea/app/internal/live"
	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/mutations"
	"github.com/anonto42/nano-midea/app/internal/navigation"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/anonto42/nano-midea/app/internal/repositories"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
)

// StoryRefreshInterval is how often an open feed moves its story window forward
const StoryRefreshInterval = time.Minute

// FeedPost is a post as the feed shows it
type FeedPost struct {
	models.Post
	Liked         bool   `json:"liked"`
	LikeCount     int    `json:"like_count"`
	LikesLabel    string `json:"likes_label"`
	CommentCount  int    `json:"comment_count"`
	CommentsLabel string `json:"comments_label"`
	Saved         bool   `json:"saved"`
	Mine          bool   `json:"mine"`
	TimeAgo       string `json:"time_ago"`
}

type FeedState struct {
	Loading bool           `json:"loading"`
	Posts   []FeedPost     `json:"posts"`
	Stories []models.Story `json:"stories"`
	Unread  int            `json:"unread"`
	Error   string         `json:"error,omitempty"`
}

// Feed is the main screen: posts with live like and comment counts, the stories strip
// and the unread notification badge.
type Feed struct {
	*base
	deps Deps
	me   platform.Principal

	likes *live.Overlay[string, mutations.LikeState]
	saved *live.Overlay[string, bool]

	mu       sync.Mutex
	posts    *live.Collection[models.Post]
	user     *live.Document[models.User]
	unread   *live.Collection[models.Notification]
	stories  *live.Collection[models.Story]
	comments map[string]*live.Collection[models.Comment]
}

func OpenFeed(ctx context.Context, deps Deps) (*Feed, error) {
	deps = deps.withDefaults()
	me, err := deps.principal()
	if err != nil {
		return nil, err
	}
	f := &Feed{
		base:     newBase(ctx, "feed", deps.Logger),
		deps:     deps,
		me:       me,
		likes:    live.NewOverlay[string, mutations.LikeState](),
		saved:    live.NewOverlay[string, bool](),
		comments: make(map[string]*live.Collection[models.Comment]),
	}

	posts, err := live.WatchCollection(f.ctx, deps.Store, deps.Posts.FeedQuery(), models.PostFromDocument, func() {
		f.syncComments()
		f.changed()
	})
	if err != nil {
		f.Close()
		return nil, f.failed(err, "Failed to load posts")
	}
	f.setWatcher(func() { f.posts = posts })
	f.group.Add(posts)
	f.syncComments()

	user, err := live.WatchDocument(f.ctx, deps.Store, repositories.UserPath(me.UID), models.UserFromDocument, f.changed)
	if err != nil {
		f.Close()
		return nil, f.failed(err, "Failed to load your profile", "uid", me.UID)
	}
	f.setWatcher(func() { f.user = user })
	f.group.Add(user)

	unread, err := live.WatchCollection(f.ctx, deps.Store, deps.Notifications.UnreadQuery(me.UID), models.NotificationFromDocument, f.changed)
	if err != nil {
		f.Close()
		return nil, f.failed(err, "Failed to load notifications", "uid", me.UID)
	}
	f.setWatcher(func() { f.unread = unread })
	f.group.Add(unread)

	if err := f.refreshStories(); err != nil {
		f.Close()
		return nil, f.failed(err, "Failed to load stories")
	}
	if deps.Scheduler != nil {
		cancel, err := deps.Scheduler.Every(StoryRefreshInterval, "feed-stories", func() {
			if err := f.refreshStories(); err != nil {
				f.log.Warn("Failed to refresh stories", "error", err)
			}
			f.changed()
		})
		if err != nil {
			f.log.Warn("Stories will not refresh", "error", err)
		} else {
			f.group.Add(live.StopFunc(cancel))
		}
	}

	f.log.Debug("Feed opened", "uid", me.UID)
	return f, nil
}

func (f *Feed) setWatcher(set func()) {
	f.mu.Lock()
	set()
	f.mu.Unlock()
}

// refreshStories resubscribes to the stories of the last day, starting from now
func (f *Feed) refreshStories() error {
	since := derive.StoryWindowStart(f.deps.Clock.Now())
	next, err := live.WatchCollection(f.ctx, f.deps.Store, f.deps.Stories.WindowQuery(since), models.StoryFromDocument, f.changed)
	if err != nil {
		return err
	}
	f.mu.Lock()
	old := f.stories
	f.stories = next
	f.mu.Unlock()

	if old == nil {
		f.group.Add(next)
	} else {
		f.group.Replace(old, next)
	}
	return nil
}

// syncComments keeps one comment watcher per post in the feed
func (f *Feed) syncComments() {
	f.mu.Lock()
	if f.posts == nil {
		f.mu.Unlock()
		return
	}
	want := make(map[string]bool)
	for _, p := range f.posts.Items() {
		want[p.ID] = true
	}
	var stale []*live.Collection[models.Comment]
	for id, c := range f.comments {
		if !want[id] {
			stale = append(stale, c)
			delete(f.comments, id)
		}
	}
	var missing []string
	for id := range want {
		if _, ok := f.comments[id]; !ok {
			missing = append(missing, id)
		}
	}
	f.mu.Unlock()

	for _, c := range stale {
		f.group.Remove(c)
	}
	for _, id := range missing {
		c, err := live.WatchCollection(f.ctx, f.deps.Store, f.deps.Comments.Query(id), models.CommentFromDocument, f.changed)
		if err != nil {
			f.log.Warn("Failed to watch comments", "post_id", id, "error", err)
			continue
		}
		f.mu.Lock()
		if _, dup := f.comments[id]; dup {
			f.mu.Unlock()
			c.Stop()
			continue
		}
		f.comments[id] = c
		f.mu.Unlock()
		f.group.Add(c)
	}
}

func (f *Feed) State() any {
	f.mu.Lock()
	posts, user, unread, stories := f.posts, f.user, f.unread, f.stories
	comments := maps.Clone(f.comments)
	f.mu.Unlock()

	now := f.deps.Clock.Now()
	st := FeedState{Loading: posts.Version() == 0}
	if err := posts.Err(); err != nil {
		st.Error = apperrors.GetMessage(err)
	}

	me, _ := user.Value()
	userVersion := user.Version()
	postsVersion := posts.Version()
	for _, p := range posts.Items() {
		like := f.likes.Get(p.ID, likeState(p, f.me.UID), postsVersion)
		n := 0
		if c := comments[p.ID]; c != nil {
			n = len(c.Items())
		}
		st.Posts = append(st.Posts, FeedPost{
			Post:          p,
			Liked:         like.Liked,
			LikeCount:     like.Count,
			LikesLabel:    like.Label,
			CommentCount:  n,
			CommentsLabel: derive.CommentsLabel(n),
			Saved:         f.saved.Get(p.ID, derive.IsMember(me.SavedPosts, p.ID), userVersion),
			Mine:          p.UserRef == f.me.UID,
			TimeAgo:       derive.TimeAgo(p.CreatedAt, now),
		})
	}

	st.Stories = append([]models.Story{f.yourStory(now)}, derive.VisibleStories(stories.Items(), now)...)
	st.Unread = derive.UnreadCount(unread.Items())
	return st
}

// yourStory is the placeholder that opens story creation
func (f *Feed) yourStory(now time.Time) models.Story {
	me := f.me
	if p, ok := f.deps.Session.Current(); ok && p.UID == me.UID {
		me = p
	}
	image := me.PhotoURL
	if image == "" {
		image = DefaultAvatar
	}
	return models.Story{
		ID:        models.YourStoryID,
		UserID:    me.UID,
		Name:      "Your Story",
		Image:     image,
		CreatedAt: now,
	}
}

func likeState(p models.Post, uid string) mutations.LikeState {
	n := derive.Count(p.Likes)
	return mutations.LikeState{Liked: derive.IsMember(p.Likes, uid), Count: n, Label: derive.LikesLabel(n)}
}

func (f *Feed) post(id string) (models.Post, uint64, bool) {
	f.mu.Lock()
	posts := f.posts
	f.mu.Unlock()
	version := posts.Version()
	for _, p := range posts.Items() {
		if p.ID == id {
			return p, version, true
		}
	}
	return models.Post{}, version, false
}

func (f *Feed) Do(ctx context.Context, action string, params json.RawMessage) (any, error) {
	switch action {
	case "like":
		req, err := decode[postParams](params)
		if err != nil {
			return nil, err
		}
		return f.toggleLike(ctx, req.PostID)
	case "save":
		req, err := decode[postParams](params)
		if err != nil {
			return nil, err
		}
		return f.toggleSave(ctx, req.PostID)
	case "open_story":
		req, err := decode[struct {
			StoryID string `json:"story_id"`
		}](params)
		if err != nil {
			return nil, err
		}
		if req.StoryID == models.YourStoryID {
			return navigate(navigation.To(navigation.CreateStory)), nil
		}
		return nil, nil
	}
	return nil, unknownAction(action)
}

func (f *Feed) toggleLike(ctx context.Context, postID string) (mutations.LikeState, error) {
	post, since, ok := f.post(postID)
	if !ok {
		return mutations.LikeState{}, apperrors.Validation("This post is no longer available")
	}
	current := f.likes.Get(post.ID, likeState(post, f.me.UID), since)
	state, err := f.deps.Mutator.ToggleLike(ctx, post, current.Liked)
	if applied(err) {
		f.likes.Set(post.ID, state, since)
		f.changed()
	}
	return state, err
}

func (f *Feed) toggleSave(ctx context.Context, postID string) (bool, error) {
	f.mu.Lock()
	user := f.user
	f.mu.Unlock()
	me, _ := user.Value()
	since := user.Version()
	current := f.saved.Get(postID, derive.IsMember(me.SavedPosts, postID), since)

	saved, err := f.deps.Mutator.ToggleSave(ctx, postID, current)
	if applied(err) {
		f.saved.Set(postID, saved, since)
		f.changed()
	}
	return saved, err
}
