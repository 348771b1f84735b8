package screens

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/anonto42/nano-midea/app/internal/derive"
	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/navigation"
)

// SearchPost is a tile of the explore grid
type SearchPost struct {
	ID       string `json:"id"`
	ImageURL string `json:"image_url"`
	UserID   string `json:"user_id"`
}

type SearchState struct {
	Recent    []SearchPost  `json:"recent"`
	Query     string        `json:"query"`
	Searching bool          `json:"searching"`
	Results   []models.User `json:"results"`
}

// Search shows recent posts and filters users by username or email
type Search struct {
	*base
	deps Deps

	mu    sync.Mutex
	state SearchState
}

func OpenSearch(ctx context.Context, deps Deps) (*Search, error) {
	deps = deps.withDefaults()
	if _, err := deps.principal(); err != nil {
		return nil, err
	}
	s := &Search{base: newBase(ctx, "search", deps.Logger), deps: deps}
	if err := s.loadRecent(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Search) loadRecent(ctx context.Context) error {
	posts, err := s.deps.Posts.GetRecentPosts(ctx)
	if err != nil {
		return s.failed(err, "Failed to load posts")
	}
	recent := make([]SearchPost, 0, len(posts))
	for _, p := range posts {
		recent = append(recent, SearchPost{ID: p.ID, ImageURL: p.CoverImage(), UserID: p.UserRef})
	}
	s.mu.Lock()
	s.state.Recent = recent
	s.mu.Unlock()
	s.changed()
	return nil
}

func (s *Search) search(ctx context.Context, text string) (SearchState, error) {
	var results []models.User
	if strings.TrimSpace(text) != "" {
		users, err := s.deps.Users.ListUsers(ctx)
		if err != nil {
			return SearchState{}, s.failed(err, "Failed to search users")
		}
		results = derive.SearchUsers(users, text)
	}
	s.mu.Lock()
	s.state.Query = text
	s.state.Searching = text != ""
	s.state.Results = results
	st := s.state
	s.mu.Unlock()
	s.changed()
	return st, nil
}

func (s *Search) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Recent = append([]SearchPost(nil), st.Recent...)
	st.Results = append([]models.User(nil), st.Results...)
	return st
}

func (s *Search) Do(ctx context.Context, action string, params json.RawMessage) (any, error) {
	switch action {
	case "search":
		req, err := decode[textParams](params)
		if err != nil {
			return nil, err
		}
		return s.search(ctx, req.Text)
	case "refresh":
		return nil, s.loadRecent(ctx)
	case "open_post":
		req, err := decode[postParams](params)
		if err != nil {
			return nil, err
		}
		r := navigation.CommentsRoute{PostID: req.PostID}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		return navigate(r), nil
	}
	return nil, unknownAction(action)
}
