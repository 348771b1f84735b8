// Package session holds the signed-in principal for the whole process.
// It is created once, injected where needed, restored on Init and persisted on every change.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/anonto42/nano-midea/app/internal/repositories"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
	"github.com/anonto42/nano-midea/app/pkg/logger"
	"github.com/jonboulle/clockwork"
)

// Listener is told about every sign-in, sign-out and principal refresh
type Listener func(p platform.Principal, signedIn bool)

type Session struct {
	credentials platform.CredentialService
	users       repositories.UserRepository
	store       repositories.SessionRepository
	device      string
	clock       clockwork.Clock
	log         logger.Logger

	mu        sync.RWMutex
	current   *platform.Principal
	listeners map[int]Listener
	nextID    int
}

type Opts struct {
	Credentials platform.CredentialService
	Users       repositories.UserRepository
	Store       repositories.SessionRepository
	Device      string
	Clock       clockwork.Clock
	Logger      logger.Logger
}

func New(opts Opts) *Session {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Device == "" {
		opts.Device = "default"
	}
	return &Session{
		credentials: opts.Credentials,
		users:       opts.Users,
		store:       opts.Store,
		device:      opts.Device,
		clock:       opts.Clock,
		log:         opts.Logger.WithComponent("session"),
		listeners:   make(map[int]Listener),
	}
}

// Init restores the persisted principal if its token still verifies
func (s *Session) Init(ctx context.Context) error {
	saved, err := s.store.Load(ctx, s.device)
	if err != nil {
		return apperrors.Backend(err, "Failed to restore session")
	}
	if saved == nil {
		s.log.Info("No saved session", "device", s.device)
		return nil
	}
	p, err := s.credentials.Verify(ctx, saved.Token)
	if err != nil {
		s.log.Info("Saved session expired", "device", s.device, "uid", saved.UID, "error", err)
		if err := s.store.Delete(ctx, s.device); err != nil {
			s.log.Warn("Failed to drop expired session", "device", s.device, "error", err)
		}
		return nil
	}
	p.IDToken = saved.Token
	s.set(ctx, &p)
	s.log.Info("Session restored", "uid", p.UID)
	return nil
}

// Close drops every listener. The persisted principal is kept for the next Init.
func (s *Session) Close() {
	s.mu.Lock()
	s.listeners = make(map[int]Listener)
	s.mu.Unlock()
}

// Current returns the signed-in principal, if any
func (s *Session) Current() (platform.Principal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return platform.Principal{}, false
	}
	return *s.current, true
}

// OnChange registers fn and returns a func that removes it. fn runs on the goroutine that changed the session.
func (s *Session) OnChange(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Register creates an account named username and its profile document
func (s *Session) Register(ctx context.Context, req models.RegisterRequest) (platform.Principal, error) {
	p, err := s.credentials.SignUp(ctx, req.Email, req.Password, req.Username)
	if err != nil {
		return platform.Principal{}, s.authError(err, "Failed to create user.")
	}
	if err := s.users.CreateUser(ctx, p.UID, models.NewUserData(req.Email, req.Username, req.Username, "")); err != nil {
		s.log.Error("Failed to create profile", "uid", p.UID, "error", err)
		s.set(ctx, &p)
		return p, apperrors.Partial(err, "Account created, but the profile was not saved")
	}
	s.set(ctx, &p)
	s.log.Info("Registered", "uid", p.UID)
	return p, nil
}

func (s *Session) Login(ctx context.Context, req models.LoginRequest) (platform.Principal, error) {
	p, err := s.credentials.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return platform.Principal{}, s.authError(err, "Failed to sign in.")
	}
	s.set(ctx, &p)
	s.log.Info("Signed in", "uid", p.UID)
	return p, nil
}

// SignInWithGoogle exchanges a Google ID token and creates the profile document on first sign-in
func (s *Session) SignInWithGoogle(ctx context.Context, idToken string) (platform.Principal, error) {
	p, err := s.credentials.SignInWithIDToken(ctx, platform.ProviderGoogle, idToken)
	if err != nil {
		return platform.Principal{}, s.authError(err, "Failed to sign in with Google")
	}
	_, exists, err := s.users.GetUser(ctx, p.UID)
	if err != nil {
		return platform.Principal{}, apperrors.Backend(err, "Failed to sign in with Google")
	}
	if !exists {
		prefix := models.EmailPrefix(p.Email)
		data := models.NewUserData(
			p.Email,
			models.FirstNonEmpty(prefix, "user"),
			models.FirstNonEmpty(p.DisplayName, prefix, "User"),
			p.PhotoURL,
		)
		if err := s.users.CreateUser(ctx, p.UID, data); err != nil {
			return platform.Principal{}, apperrors.Backend(err, "Failed to sign in with Google")
		}
	}
	s.set(ctx, &p)
	s.log.Info("Signed in with Google", "uid", p.UID, "new", !exists)
	return p, nil
}

// Logout revokes the principal's tokens and forgets the session. Local state is cleared even if revoking fails.
func (s *Session) Logout(ctx context.Context) error {
	p, ok := s.Current()
	if !ok {
		return nil
	}
	err := s.credentials.SignOut(ctx, p.UID)
	if err != nil {
		s.log.Warn("Failed to revoke tokens", "uid", p.UID, "error", err)
	}
	s.set(ctx, nil)
	s.log.Info("Signed out", "uid", p.UID)
	return nil
}

// Refresh replaces the principal after a profile edit. An empty token keeps the current one.
func (s *Session) Refresh(ctx context.Context, p platform.Principal) error {
	current, ok := s.Current()
	if !ok || current.UID != p.UID {
		return apperrors.Unauthenticated("Sign in to continue")
	}
	if p.IDToken == "" {
		p.IDToken = current.IDToken
	}
	s.set(ctx, &p)
	return nil
}

// set swaps the principal, persists it and tells every listener
func (s *Session) set(ctx context.Context, p *platform.Principal) {
	s.mu.Lock()
	s.current = p
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	s.persist(ctx, p)
	var value platform.Principal
	if p != nil {
		value = *p
	}
	for _, fn := range listeners {
		fn(value, p != nil)
	}
}

func (s *Session) persist(ctx context.Context, p *platform.Principal) {
	var err error
	if p == nil {
		err = s.store.Delete(ctx, s.device)
	} else {
		err = s.store.Save(ctx, &models.Session{
			Device:      s.device,
			UID:         p.UID,
			Email:       p.Email,
			DisplayName: p.DisplayName,
			PhotoURL:    p.PhotoURL,
			Token:       p.IDToken,
			UpdatedAt:   s.clock.Now(),
		})
	}
	if err != nil {
		s.log.Error("Failed to persist session", "device", s.device, "error", err)
	}
}

func (s *Session) authError(err error, fallback string) error {
	switch {
	case errors.Is(err, platform.ErrInvalidCredentials), errors.Is(err, platform.ErrInvalidToken):
		return apperrors.WrapWithCode(err, apperrors.CodeUnauthenticated, err.Error())
	case errors.Is(err, platform.ErrEmailExists):
		return apperrors.WrapWithCode(err, apperrors.CodeValidation, err.Error())
	}
	s.log.Error(fallback, "error", err)
	return apperrors.Backend(err, fallback)
}
