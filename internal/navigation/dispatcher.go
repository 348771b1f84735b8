// Package navigation opens screens for typed routes and keeps them consistent with the auth state.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/anonto42/nano-midea/app/internal/session"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
	"github.com/anonto42/nano-midea/app/pkg/logger"
	"github.com/google/uuid"
)

// ErrUnavailable is returned for a destination that belongs to the other auth state
var ErrUnavailable = errors.New("destination unavailable")

// Screen is an open screen. Changes signals whenever State would return something new.
type Screen interface {
	State() any
	Changes() (<-chan struct{}, func())
	Close()
}

// Factory opens the screen for a route
type Factory func(ctx context.Context, r Route) (Screen, error)

// Principals is the session as the dispatcher sees it
type Principals interface {
	Current() (platform.Principal, bool)
	OnChange(fn session.Listener) func()
}

type entry struct {
	route  Route
	screen Screen
}

type Dispatcher struct {
	principals Principals
	log        logger.Logger

	mu        sync.Mutex
	factories map[Destination]Factory
	open      map[string]entry
	state     AuthState
	uid       string
	cancel    func()
}

func NewDispatcher(principals Principals, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	d := &Dispatcher{
		principals: principals,
		log:        log.WithComponent("navigation"),
		factories:  make(map[Destination]Factory),
		open:       make(map[string]entry),
	}
	if p, ok := principals.Current(); ok {
		d.state = Authenticated
		d.uid = p.UID
	}
	return d
}

// Handle registers the factory for a destination
func (d *Dispatcher) Handle(dest Destination, f Factory) {
	d.mu.Lock()
	d.factories[dest] = f
	d.mu.Unlock()
}

// Start follows the session. Every change of auth state or of signed-in user closes all open screens.
func (d *Dispatcher) Start() {
	cancel := d.principals.OnChange(func(p platform.Principal, signedIn bool) {
		if !signedIn {
			d.transition(Unauthenticated, "")
			return
		}
		d.transition(Authenticated, p.UID)
	})
	d.mu.Lock()
	d.cancel = cancel
	if p, ok := d.principals.Current(); ok {
		d.state = Authenticated
		d.uid = p.UID
	} else {
		d.state = Unauthenticated
		d.uid = ""
	}
	d.mu.Unlock()
}

// Stop detaches from the session and closes every open screen
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.closeAll()
}

func (d *Dispatcher) State() AuthState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Home is the first screen of the current auth state
func (d *Dispatcher) Home() Route {
	if d.State() == Authenticated {
		return To(Main)
	}
	return To(Welcome)
}

// Open validates r against the auth state and opens its screen
func (d *Dispatcher) Open(ctx context.Context, r Route) (string, Screen, error) {
	if err := r.Validate(); err != nil {
		return "", nil, err
	}
	dest := r.Destination()
	want, ok := dest.State()
	if !ok {
		return "", nil, apperrors.Validation(fmt.Sprintf("Unknown destination %q", dest))
	}

	d.mu.Lock()
	state, uid := d.state, d.uid
	factory, registered := d.factories[dest]
	d.mu.Unlock()

	if want != state {
		return "", nil, apperrors.WrapWithCode(ErrUnavailable, apperrors.CodeForbidden,
			fmt.Sprintf("%s is not available while %s", dest, state))
	}
	if !registered {
		return "", nil, apperrors.Validation(fmt.Sprintf("No screen for %s", dest))
	}

	screen, err := factory(ctx, r)
	if err != nil {
		return "", nil, err
	}

	d.mu.Lock()
	if d.state != state || d.uid != uid {
		d.mu.Unlock()
		screen.Close()
		return "", nil, apperrors.WrapWithCode(ErrUnavailable, apperrors.CodeForbidden,
			fmt.Sprintf("%s closed: the session changed", dest))
	}
	id := uuid.NewString()
	d.open[id] = entry{route: r, screen: screen}
	d.mu.Unlock()

	d.log.Debug("Opened screen", "destination", dest, "screen_id", id)
	return id, screen, nil
}

// Get returns an open screen and the route it was opened with
func (d *Dispatcher) Get(id string) (Screen, Route, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.open[id]
	return e.screen, e.route, ok
}

// Close closes one screen. Unknown ids are ignored.
func (d *Dispatcher) Close(id string) {
	d.mu.Lock()
	e, ok := d.open[id]
	delete(d.open, id)
	d.mu.Unlock()
	if ok {
		e.screen.Close()
	}
}

// Len is the number of open screens
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.open)
}

// transition closes every screen when the auth state or the signed-in user changes.
// A refresh of the same principal keeps the screens open.
func (d *Dispatcher) transition(next AuthState, uid string) {
	d.mu.Lock()
	if d.state == next && d.uid == uid {
		d.mu.Unlock()
		return
	}
	d.state = next
	d.uid = uid
	d.mu.Unlock()

	d.log.Info("Auth state changed", "state", next, "uid", uid)
	d.closeAll()
}

func (d *Dispatcher) closeAll() {
	d.mu.Lock()
	screens := make([]Screen, 0, len(d.open))
	for id, e := range d.open {
		screens = append(screens, e.screen)
		delete(d.open, id)
	}
	d.mu.Unlock()

	for _, s := range screens {
		s.Close()
	}
}

// Resolve maps a notification to the screen it should open
func Resolve(n models.Notification) (Route, bool) {
	switch n.Type {
	case models.NotificationFollow:
		if n.FromUserID != "" {
			return UserProfileRoute{UserID: n.FromUserID}, true
		}
	case models.NotificationLike, models.NotificationComment:
		if n.PostID != "" {
			return CommentsRoute{PostID: n.PostID}, true
		}
	}
	return nil, false
}
