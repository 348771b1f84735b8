// Package app wires the process together with fx.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anonto42/nano-midea/app/internal/mutations"
	"github.com/anonto42/nano-midea/app/internal/navigation"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/anonto42/nano-midea/app/internal/platform/media"
	"github.com/anonto42/nano-midea/app/internal/ratelimit"
	"github.com/anonto42/nano-midea/app/internal/repositories"
	"github.com/anonto42/nano-midea/app/internal/router"
	"github.com/anonto42/nano-midea/app/internal/scheduler"
	"github.com/anonto42/nano-midea/app/internal/screens"
	"github.com/anonto42/nano-midea/app/internal/session"
	"github.com/anonto42/nano-midea/app/pkg/config"
	"github.com/anonto42/nano-midea/app/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/fx"
)

// Core is everything except configuration, logging and the backends
var Core = fx.Options(
	fx.Provide(
		NewPool,
		NewScheduler,
		fx.Annotate(repositories.NewDocumentUserRepository, fx.As(new(repositories.UserRepository))),
		fx.Annotate(repositories.NewDocumentPostRepository, fx.As(new(repositories.PostRepository))),
		fx.Annotate(repositories.NewDocumentCommentRepository, fx.As(new(repositories.CommentRepository))),
		fx.Annotate(repositories.NewDocumentStoryRepository, fx.As(new(repositories.StoryRepository))),
		fx.Annotate(repositories.NewDocumentConversationRepository, fx.As(new(repositories.ConversationRepository))),
		fx.Annotate(repositories.NewDocumentNotificationRepository, fx.As(new(repositories.NotificationRepository))),
		NewSession,
		NewMutator,
		NewDispatcher,
		NewLimiter,
		NewEcho,
	),
	fx.Invoke(run),
)

// Module is the whole application
var Module = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
		NewPlatform,
	),
	Core,
)

func NewPool(lc fx.Lifecycle, cfg *config.Config) (*ants.Pool, error) {
	pool, err := ants.NewPool(cfg.Workers.FetchPoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch pool: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		pool.Release()
		return nil
	}})
	return pool, nil
}

func NewScheduler(log logger.Logger) (*scheduler.Scheduler, error) {
	return scheduler.New(nil, log)
}

func NewSession(cfg *config.Config, credentials platform.CredentialService, users repositories.UserRepository,
	store repositories.SessionRepository, log logger.Logger) *session.Session {
	return session.New(session.Opts{
		Credentials: credentials,
		Users:       users,
		Store:       store,
		Device:      cfg.App.Device,
		Logger:      log,
	})
}

// MutatorParams groups the Mutator's dependencies
type MutatorParams struct {
	fx.In

	Session       *session.Session
	Users         repositories.UserRepository
	Posts         repositories.PostRepository
	Comments      repositories.CommentRepository
	Stories       repositories.StoryRepository
	Conversations repositories.ConversationRepository
	Notifications repositories.NotificationRepository
	Objects       platform.ObjectStore
	Credentials   platform.CredentialService
	Logger        logger.Logger
}

func NewMutator(p MutatorParams) *mutations.Mutator {
	return mutations.New(mutations.Deps{
		Session:       p.Session,
		Users:         p.Users,
		Posts:         p.Posts,
		Comments:      p.Comments,
		Stories:       p.Stories,
		Conversations: p.Conversations,
		Notifications: p.Notifications,
		Objects:       p.Objects,
		Credentials:   p.Credentials,
		Logger:        p.Logger,
	})
}

// DispatcherParams groups what the screens read from
type DispatcherParams struct {
	fx.In

	Config        *config.Config
	Store         platform.DocumentStore
	Users         repositories.UserRepository
	Posts         repositories.PostRepository
	Comments      repositories.CommentRepository
	Stories       repositories.StoryRepository
	Conversations repositories.ConversationRepository
	Notifications repositories.NotificationRepository
	Mutator       *mutations.Mutator
	Session       *session.Session
	Scheduler     *scheduler.Scheduler
	Logger        logger.Logger
}

// NewDispatcher creates the navigation dispatcher with every screen registered
func NewDispatcher(p DispatcherParams) *navigation.Dispatcher {
	d := navigation.NewDispatcher(p.Session, p.Logger)
	screens.Register(d, screens.Deps{
		Store:         p.Store,
		Users:         p.Users,
		Posts:         p.Posts,
		Comments:      p.Comments,
		Stories:       p.Stories,
		Conversations: p.Conversations,
		Notifications: p.Notifications,
		Mutator:       p.Mutator,
		Session:       p.Session,
		Media:         media.NewLibrary(p.Config.Media.LibraryDir),
		Scheduler:     p.Scheduler,
		Logger:        p.Logger,
	})
	return d
}

// NewLimiter builds the per-principal limiter and schedules the sweep of idle keys
func NewLimiter(cfg *config.Config, s *scheduler.Scheduler, log logger.Logger) (ratelimit.Limiter, error) {
	l := ratelimit.NewInMemoryLimiter(cfg.Limits.Actions, cfg.Limits.Per, cfg.Limits.Burst)
	idle := cfg.Limits.Idle
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	_, err := s.Every(idle, "ratelimit-sweep", func() {
		if n := l.Sweep(idle); n > 0 {
			log.Debug("Dropped idle rate limit keys", "count", n)
		}
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// EchoParams groups what the HTTP bridge routes to
type EchoParams struct {
	fx.In

	Dispatcher  *navigation.Dispatcher
	Session     *session.Session
	Credentials platform.CredentialService
	Mutator     *mutations.Mutator
	Limiter     ratelimit.Limiter
	Logger      logger.Logger
}

func NewEcho(p EchoParams) *echo.Echo {
	e := router.New(p.Logger)
	router.SetupRoutes(e, router.Deps{
		Dispatcher: p.Dispatcher,
		Session:    p.Session,
		Verifier:   p.Credentials,
		Uploader:   p.Mutator,
		Limiter:    p.Limiter,
		Logger:     p.Logger,
	})
	return e
}

// run starts the core in dependency order: jobs, navigation, the restored session, then the bridge
func run(lc fx.Lifecycle, cfg *config.Config, log logger.Logger, s *scheduler.Scheduler,
	d *navigation.Dispatcher, sess *session.Session, e *echo.Echo) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			d.Start()
			if err := sess.Init(ctx); err != nil {
				log.Warn("Starting signed out", "error", err)
			}

			addr := fmt.Sprintf(":%d", cfg.App.Port)
			go func() {
				log.Info("Starting server", "addr", addr, "home", d.Home().Destination())
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("Server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			err := e.Shutdown(ctx)
			d.Stop()
			sess.Close()
			if serr := s.Shutdown(); serr != nil {
				err = errors.Join(err, serr)
			}
			return err
		},
	})
}
