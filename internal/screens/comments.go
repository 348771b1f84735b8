package screens

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/app/internal/derive"
	"github.com/anonto42/nano-midea/app/internal/live"
	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/mutations"
	"github.com/anonto42/nano-midea/app/internal/platform"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
)

type CommentView struct {
	models.Comment
	Mine    bool   `json:"mine"`
	TimeAgo string `json:"time_ago"`
}

type CommentsState struct {
	Loading  bool                `json:"loading"`
	Exists   bool                `json:"exists"`
	Post     models.Post         `json:"post"`
	Like     mutations.LikeState `json:"like"`
	Comments []CommentView       `json:"comments"`
	Error    string              `json:"error,omitempty"`
}

// Comments shows one post and its comments, oldest first
type Comments struct {
	*base
	deps   Deps
	me     platform.Principal
	postID string
	likes  *live.Overlay[string, mutations.LikeState]

	mu       sync.Mutex
	post     *live.Document[models.Post]
	comments *live.Collection[models.Comment]
}

func OpenComments(ctx context.Context, deps Deps, postID string) (*Comments, error) {
	deps = deps.withDefaults()
	me, err := deps.principal()
	if err != nil {
		return nil, err
	}
	s := &Comments{
		base:   newBase(ctx, "comments", deps.Logger),
		deps:   deps,
		me:     me,
		postID: postID,
		likes:  live.NewOverlay[string, mutations.LikeState](),
	}

	post, err := live.WatchDocument(s.ctx, deps.Store, models.PostPath(postID), models.PostFromDocument, s.changed)
	if err != nil {
		s.Close()
		return nil, s.failed(err, "Failed to load post", "post_id", postID)
	}
	s.group.Add(post)

	comments, err := live.WatchCollection(s.ctx, deps.Store, deps.Comments.Query(postID), models.CommentFromDocument, s.changed)
	if err != nil {
		s.Close()
		return nil, s.failed(err, "Failed to load comments", "post_id", postID)
	}
	s.group.Add(comments)

	s.mu.Lock()
	s.post, s.comments = post, comments
	s.mu.Unlock()
	return s, nil
}

func (s *Comments) watchers() (*live.Document[models.Post], *live.Collection[models.Comment]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.post, s.comments
}

func (s *Comments) State() any {
	post, comments := s.watchers()
	now := s.deps.Clock.Now()

	p, exists := post.Value()
	st := CommentsState{
		Loading: post.Version() == 0 || comments.Version() == 0,
		Exists:  exists,
		Post:    p,
		Like:    s.likes.Get(s.postID, likeState(p, s.me.UID), post.Version()),
	}
	if err := comments.Err(); err != nil {
		st.Error = apperrors.GetMessage(err)
	}
	items := derive.SortAsc(comments.Items(), func(c models.Comment) time.Time { return c.CreatedAt })
	for _, c := range items {
		st.Comments = append(st.Comments, CommentView{
			Comment: c,
			Mine:    c.UserRef == s.me.UID,
			TimeAgo: derive.TimeAgo(c.CreatedAt, now),
		})
	}
	return st
}

func (s *Comments) Do(ctx context.Context, action string, params json.RawMessage) (any, error) {
	post, _ := s.watchers()
	p, exists := post.Value()
	since := post.Version()

	switch action {
	case "comment":
		req, err := decode[textParams](params)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperrors.Validation("This post is no longer available")
		}
		return s.deps.Mutator.AddComment(ctx, p, req.Text)
	case "like":
		if !exists {
			return nil, apperrors.Validation("This post is no longer available")
		}
		current := s.likes.Get(p.ID, likeState(p, s.me.UID), since)
		state, err := s.deps.Mutator.ToggleLike(ctx, p, current.Liked)
		if applied(err) {
			s.likes.Set(p.ID, state, since)
			s.changed()
		}
		return state, err
	}
	return nil, unknownAction(action)
}
