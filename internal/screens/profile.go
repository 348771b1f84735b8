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
	"github.com/anonto42/nano-midea/app/internal/navigation"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/anonto42/nano-midea/app/internal/repositories"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
)

type ProfileState struct {
	Loading   bool          `json:"loading"`
	Exists    bool          `json:"exists"`
	User      models.User   `json:"user"`
	Name      string        `json:"name"`
	Handle    string        `json:"handle"`
	IsMe      bool          `json:"is_me"`
	Following bool          `json:"following"`
	Followers int           `json:"followers"`
	Follows   int           `json:"follows"`
	PostCount int           `json:"post_count"`
	Posts     []models.Post `json:"posts"`
	Error     string        `json:"error,omitempty"`
}

// UserProfile shows a live profile with its posts. Posts are read once and on refresh.
type UserProfile struct {
	*base
	deps    Deps
	me      platform.Principal
	userID  string
	user    *live.Document[models.User]
	follows *live.Overlay[string, mutations.FollowState]

	mu    sync.Mutex
	posts []models.Post
}

func OpenUserProfile(ctx context.Context, deps Deps, userID string) (*UserProfile, error) {
	deps = deps.withDefaults()
	me, err := deps.principal()
	if err != nil {
		return nil, err
	}
	s := &UserProfile{
		base:    newBase(ctx, "user-profile", deps.Logger),
		deps:    deps,
		me:      me,
		userID:  userID,
		follows: live.NewOverlay[string, mutations.FollowState](),
	}
	if err := s.refresh(ctx); err != nil {
		s.Close()
		return nil, err
	}

	user, err := live.WatchDocument(s.ctx, deps.Store, repositories.UserPath(userID), models.UserFromDocument, s.changed)
	if err != nil {
		s.Close()
		return nil, s.failed(err, "Failed to load profile", "user_id", userID)
	}
	s.user = user
	s.group.Add(user)
	return s, nil
}

func (s *UserProfile) refresh(ctx context.Context) error {
	posts, err := s.deps.Posts.GetPostsByUser(ctx, s.userID)
	if err != nil {
		return s.failed(err, "Failed to load posts", "user_id", s.userID)
	}
	posts = derive.SortDesc(posts, func(p models.Post) time.Time { return p.CreatedAt })
	s.mu.Lock()
	s.posts = posts
	s.mu.Unlock()
	s.changed()
	return nil
}

func followState(u models.User, uid string) mutations.FollowState {
	return mutations.FollowState{Following: derive.IsMember(u.Followers, uid), Followers: derive.Count(u.Followers)}
}

func (s *UserProfile) State() any {
	u, exists := s.user.Value()
	u.ID = s.userID
	follow := s.follows.Get(s.userID, followState(u, s.me.UID), s.user.Version())

	s.mu.Lock()
	posts := append([]models.Post(nil), s.posts...)
	s.mu.Unlock()

	st := ProfileState{
		Loading:   s.user.Version() == 0,
		Exists:    exists,
		User:      u,
		Name:      u.Name(),
		Handle:    u.Handle(),
		IsMe:      s.userID == s.me.UID,
		Following: follow.Following,
		Followers: follow.Followers,
		Follows:   derive.Count(u.Following),
		PostCount: len(posts),
		Posts:     posts,
	}
	if err := s.user.Err(); err != nil {
		st.Error = apperrors.GetMessage(err)
	}
	return st
}

func (s *UserProfile) Do(ctx context.Context, action string, _ json.RawMessage) (any, error) {
	u, _ := s.user.Value()
	u.ID = s.userID
	since := s.user.Version()

	switch action {
	case "follow":
		current := s.follows.Get(s.userID, followState(u, s.me.UID), since)
		state, err := s.deps.Mutator.ToggleFollow(ctx, u, current.Following)
		if applied(err) {
			s.follows.Set(s.userID, state, since)
			s.changed()
		}
		return state, err
	case "message":
		c, err := s.deps.Mutator.OpenConversation(ctx, u)
		if err != nil {
			return nil, err
		}
		return navigate(navigation.ChatRoute{ConversationID: c.ID, OtherUserID: s.userID}), nil
	case "refresh":
		return nil, s.refresh(ctx)
	case "followers", "following":
		return navigate(navigation.FollowersListRoute{UserID: s.userID, Type: navigation.ListType(action)}), nil
	}
	return nil, unknownAction(action)
}

type EditProfileState struct {
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	Bio         string `json:"bio"`
	PhotoURL    string `json:"photo_url"`
	Saved       bool   `json:"saved"`
}

// EditProfile holds the profile form, prefilled from the user document
type EditProfile struct {
	*base
	deps Deps

	mu    sync.Mutex
	state EditProfileState
}

func OpenEditProfile(ctx context.Context, deps Deps) (*EditProfile, error) {
	deps = deps.withDefaults()
	me, err := deps.principal()
	if err != nil {
		return nil, err
	}
	s := &EditProfile{base: newBase(ctx, "edit-profile", deps.Logger), deps: deps}

	u, _, err := deps.Users.GetUser(ctx, me.UID)
	if err != nil {
		s.Close()
		return nil, s.failed(err, "Failed to load profile", "uid", me.UID)
	}
	s.state = EditProfileState{
		DisplayName: models.FirstNonEmpty(u.DisplayName, me.DisplayName),
		Username:    u.Username,
		Bio:         u.Bio,
		PhotoURL:    models.FirstNonEmpty(u.PhotoURL, me.PhotoURL),
	}
	return s, nil
}

func (s *EditProfile) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *EditProfile) Do(ctx context.Context, action string, params json.RawMessage) (any, error) {
	if action != "save" {
		return nil, unknownAction(action)
	}
	req, err := decode[models.UpdateProfileRequest](params)
	if err != nil {
		return nil, err
	}
	req = req.Trimmed()
	p, err := s.deps.Mutator.UpdateProfile(ctx, req)
	if !applied(err) {
		return nil, err
	}
	s.mu.Lock()
	s.state.DisplayName = p.DisplayName
	s.state.Username = models.FirstNonEmpty(req.Username, p.DisplayName)
	s.state.Bio = req.Bio
	s.state.Saved = true
	st := s.state
	s.mu.Unlock()
	s.changed()
	return st, err
}

type FollowersListState struct {
	UserID string              `json:"user_id"`
	Type   navigation.ListType `json:"type"`
	Users  []models.User       `json:"users"`
}

// FollowersList shows who follows a user, or whom they follow. Missing accounts are skipped.
type FollowersList struct {
	*base
	deps  Deps
	route navigation.FollowersListRoute

	mu    sync.Mutex
	users []models.User
}

func OpenFollowersList(ctx context.Context, deps Deps, r navigation.FollowersListRoute) (*FollowersList, error) {
	deps = deps.withDefaults()
	if _, err := deps.principal(); err != nil {
		return nil, err
	}
	s := &FollowersList{base: newBase(ctx, "followers-list", deps.Logger), deps: deps, route: r}
	if err := s.load(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *FollowersList) load(ctx context.Context) error {
	u, _, err := s.deps.Users.GetUser(ctx, s.route.UserID)
	if err != nil {
		return s.failed(err, "Failed to load users", "user_id", s.route.UserID)
	}
	ids := u.Followers
	if s.route.Type == navigation.ListFollowing {
		ids = u.Following
	}
	users, err := s.deps.Users.GetUsers(ctx, ids)
	if err != nil {
		return s.failed(err, "Failed to load users", "user_id", s.route.UserID)
	}
	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
	s.changed()
	return nil
}

func (s *FollowersList) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FollowersListState{
		UserID: s.route.UserID,
		Type:   s.route.Type,
		Users:  append([]models.User(nil), s.users...),
	}
}

func (s *FollowersList) Do(ctx context.Context, action string, params json.RawMessage) (any, error) {
	switch action {
	case "refresh":
		return nil, s.load(ctx)
	case "open":
		req, err := decode[struct {
			UserID string `json:"user_id"`
		}](params)
		if err != nil {
			return nil, err
		}
		r := navigation.UserProfileRoute{UserID: req.UserID}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		return navigate(r), nil
	}
	return nil, unknownAction(action)
}
