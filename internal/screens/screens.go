// Package screens composes live subscriptions, derived state and mutations into the
// screens a renderer shows. Every screen owns its own subscriptions and releases them on Close.
package screens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anonto42/nano-midea/app/internal/live"
	"github.com/anonto42/nano-midea/app/internal/mutations"
	"github.com/anonto42/nano-midea/app/internal/navigation"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/anonto42/nano-midea/app/internal/repositories"
	"github.com/anonto42/nano-midea/app/internal/scheduler"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
	"github.com/anonto42/nano-midea/app/pkg/logger"
	"github.com/jonboulle/clockwork"
)

// DefaultAvatar is shown for principals without a profile photo
const DefaultAvatar = "https://w7.pngwing.com/pngs/256/355/png-transparent-computer-icons-female-jewelry-head-silhouette-avatar.png"

// Session is the signed-in principal as screens need it
type Session interface {
	Current() (platform.Principal, bool)
	Logout(ctx context.Context) error
}

// Actor is a screen that accepts user actions
type Actor interface {
	Do(ctx context.Context, action string, params json.RawMessage) (any, error)
}

// RouteResult asks the renderer to navigate
type RouteResult struct {
	Destination navigation.Destination `json:"destination"`
	Params      navigation.Route       `json:"params"`
}

func navigate(r navigation.Route) RouteResult {
	return RouteResult{Destination: r.Destination(), Params: r}
}

// Deps groups what screens read from and write through
type Deps struct {
	Store         platform.DocumentStore
	Users         repositories.UserRepository
	Posts         repositories.PostRepository
	Comments      repositories.CommentRepository
	Stories       repositories.StoryRepository
	Conversations repositories.ConversationRepository
	Notifications repositories.NotificationRepository
	Mutator       *mutations.Mutator
	Session       Session
	Media         platform.MediaSource
	Scheduler     *scheduler.Scheduler
	Clock         clockwork.Clock
	Logger        logger.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Logger == nil {
		d.Logger = logger.NewNop()
	}
	return d
}

func (d Deps) principal() (platform.Principal, error) {
	p, ok := d.Session.Current()
	if !ok {
		return platform.Principal{}, apperrors.Unauthenticated("Sign in to continue")
	}
	return p, nil
}

// Register installs a factory for every destination on d
func Register(d *navigation.Dispatcher, deps Deps) {
	deps = deps.withDefaults()

	for _, dest := range []navigation.Destination{navigation.Welcome, navigation.Login, navigation.Register} {
		dest := dest
		d.Handle(dest, func(ctx context.Context, _ navigation.Route) (navigation.Screen, error) {
			return OpenStatic(ctx, dest, deps), nil
		})
	}

	d.Handle(navigation.Main, func(ctx context.Context, _ navigation.Route) (navigation.Screen, error) {
		return screen(OpenFeed(ctx, deps))
	})
	d.Handle(navigation.Comments, func(ctx context.Context, r navigation.Route) (navigation.Screen, error) {
		return screen(OpenComments(ctx, deps, r.(navigation.CommentsRoute).PostID))
	})
	d.Handle(navigation.UserProfile, func(ctx context.Context, r navigation.Route) (navigation.Screen, error) {
		return screen(OpenUserProfile(ctx, deps, r.(navigation.UserProfileRoute).UserID))
	})
	d.Handle(navigation.Messages, func(ctx context.Context, _ navigation.Route) (navigation.Screen, error) {
		return screen(OpenMessages(ctx, deps))
	})
	d.Handle(navigation.Chat, func(ctx context.Context, r navigation.Route) (navigation.Screen, error) {
		return screen(OpenChat(ctx, deps, r.(navigation.ChatRoute)))
	})
	d.Handle(navigation.Notifications, func(ctx context.Context, _ navigation.Route) (navigation.Screen, error) {
		return screen(OpenNotifications(ctx, deps))
	})
	d.Handle(navigation.CreateStory, func(ctx context.Context, _ navigation.Route) (navigation.Screen, error) {
		return screen(OpenCreateStory(ctx, deps))
	})
	d.Handle(navigation.EditProfile, func(ctx context.Context, _ navigation.Route) (navigation.Screen, error) {
		return screen(OpenEditProfile(ctx, deps))
	})
	d.Handle(navigation.FollowersList, func(ctx context.Context, r navigation.Route) (navigation.Screen, error) {
		return screen(OpenFollowersList(ctx, deps, r.(navigation.FollowersListRoute)))
	})
	d.Handle(navigation.Settings, func(ctx context.Context, _ navigation.Route) (navigation.Screen, error) {
		return screen(OpenSettings(ctx, deps))
	})
	d.Handle(navigation.Search, func(ctx context.Context, _ navigation.Route) (navigation.Screen, error) {
		return screen(OpenSearch(ctx, deps))
	})
}

func screen[T navigation.Screen](s T, err error) (navigation.Screen, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// base carries what every screen has: a subscription group, a change notifier and
// a context that outlives the request that opened the screen.
type base struct {
	name    string
	ctx     context.Context
	cancel  context.CancelFunc
	group   live.Group
	changes *live.Notifier
	log     logger.Logger
}

func newBase(ctx context.Context, name string, log logger.Logger) *base {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &base{
		name:    name,
		ctx:     ctx,
		cancel:  cancel,
		changes: live.NewNotifier(),
		log:     log.WithComponent("screens/" + name),
	}
}

func (b *base) Changes() (<-chan struct{}, func()) {
	return b.changes.Subscribe()
}

func (b *base) changed() {
	b.changes.Notify()
}

func (b *base) Close() {
	if b.group.Closed() {
		return
	}
	b.group.Close()
	b.cancel()
	b.changes.Close()
	b.log.Debug("Screen closed")
}

// failed logs err once and reports it as a backend failure
func (b *base) failed(err error, msg string, args ...any) error {
	b.log.Error(msg, append(args, "error", err)...)
	return apperrors.Backend(err, msg)
}

// applied reports whether the primary write of an action went through
func applied(err error) bool {
	return err == nil || apperrors.IsPartial(err)
}

func unknownAction(action string) error {
	return apperrors.Validation(fmt.Sprintf("Unknown action %q", action))
}

func decode[T any](params json.RawMessage) (T, error) {
	var v T
	if len(params) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(params, &v); err != nil {
		return v, apperrors.Validation("Invalid action parameters")
	}
	return v, nil
}

type postParams struct {
	PostID string `json:"post_id"`
}

type textParams struct {
	Text string `json:"text"`
}

type pickParams struct {
	Name string `json:"name"`
}

// pick asks for photo access and returns the named image from the device library
func pick(ctx context.Context, media platform.MediaSource, name string) (platform.MediaFile, error) {
	if media == nil {
		return platform.MediaFile{}, apperrors.Validation("No photo library on this device")
	}
	granted, err := media.RequestPermission(ctx, platform.MediaImage)
	if err != nil {
		return platform.MediaFile{}, apperrors.Backend(err, "Failed to request photo access")
	}
	if !granted {
		return platform.MediaFile{}, apperrors.Validation("Permission to access your photos is required")
	}
	file, err := media.Pick(ctx, platform.MediaImage, name)
	switch {
	case errors.Is(err, platform.ErrNoMediaSelected):
		return platform.MediaFile{}, apperrors.Validation("Pick an image first")
	case errors.Is(err, platform.ErrPermissionDenied):
		return platform.MediaFile{}, apperrors.Validation("Permission to access your photos is required")
	case err != nil:
		return platform.MediaFile{}, apperrors.Backend(err, "Failed to load image")
	}
	return file, nil
}

// capture asks for camera access and takes a photo
func capture(ctx context.Context, media platform.MediaSource) (platform.MediaFile, error) {
	if media == nil {
		return platform.MediaFile{}, apperrors.Validation("No camera on this device")
	}
	granted, err := media.RequestPermission(ctx, platform.MediaCamera)
	if err != nil {
		return platform.MediaFile{}, apperrors.Backend(err, "Failed to request camera access")
	}
	if !granted {
		return platform.MediaFile{}, apperrors.Validation("Permission to access your camera is required")
	}
	file, err := media.Capture(ctx)
	switch {
	case errors.Is(err, platform.ErrNoMediaSelected):
		return platform.MediaFile{}, apperrors.Validation("Take a photo first")
	case errors.Is(err, platform.ErrPermissionDenied):
		return platform.MediaFile{}, apperrors.Validation("Permission to access your camera is required")
	case err != nil:
		return platform.MediaFile{}, apperrors.Backend(err, "Failed to capture photo")
	}
	return file, nil
}

// StaticState is the state of a screen with no data of its own
type StaticState struct {
	Destination navigation.Destination `json:"destination"`
}

// Static is the Welcome, Login or Register screen. Signing in goes through the auth endpoints.
type Static struct {
	*base
	dest navigation.Destination
}

func OpenStatic(ctx context.Context, dest navigation.Destination, deps Deps) *Static {
	deps = deps.withDefaults()
	return &Static{base: newBase(ctx, string(dest), deps.Logger), dest: dest}
}

func (s *Static) State() any {
	return StaticState{Destination: s.dest}
}

func (s *Static) Do(_ context.Context, action string, _ json.RawMessage) (any, error) {
	return nil, unknownAction(action)
}
