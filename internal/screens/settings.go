package screens

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/app/internal/derive"
	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/platform"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
)

type SettingsState struct {
	Principal  platform.Principal `json:"principal"`
	User       models.User        `json:"user"`
	Posts      []models.Post      `json:"posts"`
	SavedPosts []models.Post      `json:"saved_posts"`
}

// Settings is the principal's own profile: their posts, saved posts and account actions
type Settings struct {
	*base
	deps Deps

	mu    sync.Mutex
	state SettingsState
}

func OpenSettings(ctx context.Context, deps Deps) (*Settings, error) {
	deps = deps.withDefaults()
	if _, err := deps.principal(); err != nil {
		return nil, err
	}
	s := &Settings{base: newBase(ctx, "settings", deps.Logger), deps: deps}
	if err := s.load(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Settings) load(ctx context.Context) error {
	me, err := s.deps.principal()
	if err != nil {
		return err
	}
	posts, err := s.deps.Posts.GetPostsByUser(ctx, me.UID)
	if err != nil {
		return s.failed(err, "Failed to load your posts", "uid", me.UID)
	}
	u, _, err := s.deps.Users.GetUser(ctx, me.UID)
	if err != nil {
		return s.failed(err, "Failed to load your profile", "uid", me.UID)
	}
	u.ID = me.UID
	saved, err := s.deps.Posts.GetPosts(ctx, u.SavedPosts)
	if err != nil {
		return s.failed(err, "Failed to load saved posts", "uid", me.UID)
	}

	byTime := func(p models.Post) time.Time { return p.CreatedAt }
	s.mu.Lock()
	s.state = SettingsState{
		Principal:  me,
		User:       u,
		Posts:      derive.SortDesc(posts, byTime),
		SavedPosts: saved,
	}
	s.mu.Unlock()
	s.changed()
	return nil
}

func (s *Settings) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Posts = append([]models.Post(nil), st.Posts...)
	st.SavedPosts = append([]models.Post(nil), st.SavedPosts...)
	return st
}

func (s *Settings) ownPost(id string) (models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.state.Posts {
		if p.ID == id {
			return p, true
		}
	}
	return models.Post{}, false
}

func (s *Settings) Do(ctx context.Context, action string, params json.RawMessage) (any, error) {
	switch action {
	case "refresh":
		return nil, s.load(ctx)
	case "logout":
		return nil, s.deps.Session.Logout(ctx)
	case "change_photo":
		req, err := decode[pickParams](params)
		if err != nil {
			return nil, err
		}
		file, err := pick(ctx, s.deps.Media, req.Name)
		if err != nil {
			return nil, err
		}
		return s.changePhoto(ctx, file)
	case "capture_photo":
		file, err := capture(ctx, s.deps.Media)
		if err != nil {
			return nil, err
		}
		return s.changePhoto(ctx, file)
	case "edit_caption":
		req, err := decode[struct {
			PostID  string `json:"post_id"`
			Caption string `json:"caption"`
		}](params)
		if err != nil {
			return nil, err
		}
		post, ok := s.ownPost(req.PostID)
		if !ok {
			return nil, apperrors.Forbidden("Only the owner can edit this post")
		}
		updated, err := s.deps.Mutator.EditCaption(ctx, post, req.Caption)
		if err != nil {
			return nil, err
		}
		s.replacePost(updated)
		return updated, nil
	case "delete_post":
		req, err := decode[postParams](params)
		if err != nil {
			return nil, err
		}
		post, ok := s.ownPost(req.PostID)
		if !ok {
			return nil, apperrors.Forbidden("Only the owner can delete this post")
		}
		if err := s.deps.Mutator.DeletePost(ctx, post); err != nil {
			return nil, err
		}
		s.removePost(post.ID)
		return nil, nil
	}
	return nil, unknownAction(action)
}

func (s *Settings) replacePost(p models.Post) {
	s.mu.Lock()
	for i := range s.state.Posts {
		if s.state.Posts[i].ID == p.ID {
			s.state.Posts[i] = p
		}
	}
	s.mu.Unlock()
	s.changed()
}

func (s *Settings) removePost(id string) {
	s.mu.Lock()
	keep := s.state.Posts[:0:0]
	for _, p := range s.state.Posts {
		if p.ID != id {
			keep = append(keep, p)
		}
	}
	s.state.Posts = keep
	s.mu.Unlock()
	s.changed()
}

func (s *Settings) changePhoto(ctx context.Context, file platform.MediaFile) (platform.Principal, error) {
	p, err := s.deps.Mutator.ChangeProfilePhoto(ctx, file)
	if applied(err) {
		s.mu.Lock()
		s.state.Principal = p
		s.state.User.PhotoURL = p.PhotoURL
		s.mu.Unlock()
		s.changed()
	}
	return p, err
}
