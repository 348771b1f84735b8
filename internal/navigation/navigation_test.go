package navigation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/anonto42/nano-midea/app/internal/session"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrincipals struct {
	mu       sync.Mutex
	p        *platform.Principal
	listener session.Listener
}

func (f *fakePrincipals) Current() (platform.Principal, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.p == nil {
		return platform.Principal{}, false
	}
	return *f.p, true
}

func (f *fakePrincipals) OnChange(fn session.Listener) func() {
	f.mu.Lock()
	f.listener = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.listener = nil
		f.mu.Unlock()
	}
}

func (f *fakePrincipals) set(p *platform.Principal) {
	f.mu.Lock()
	f.p = p
	fn := f.listener
	f.mu.Unlock()
	if fn != nil {
		var v platform.Principal
		if p != nil {
			v = *p
		}
		fn(v, p != nil)
	}
}

type stubScreen struct {
	mu     sync.Mutex
	closed bool
	route  Route
}

func (s *stubScreen) State() any { return s.route }
func (s *stubScreen) Changes() (<-chan struct{}, func()) {
	return make(chan struct{}), func() {}
}
func (s *stubScreen) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
func (s *stubScreen) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func stubFactory(_ context.Context, r Route) (Screen, error) {
	return &stubScreen{route: r}, nil
}

func newDispatcher(p *fakePrincipals) *Dispatcher {
	d := NewDispatcher(p, nil)
	for dest := range destinations {
		d.Handle(dest, stubFactory)
	}
	d.Start()
	return d
}

func TestOpenRespectsAuthState(t *testing.T) {
	p := &fakePrincipals{}
	d := newDispatcher(p)
	ctx := context.Background()

	assert.Equal(t, To(Welcome), d.Home())
	_, _, err := d.Open(ctx, To(Login))
	require.NoError(t, err)

	_, _, err = d.Open(ctx, To(Main))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, apperrors.IsForbidden(err))

	p.set(&platform.Principal{UID: "u1"})
	assert.Equal(t, Authenticated, d.State())
	assert.Equal(t, To(Main), d.Home())

	_, _, err = d.Open(ctx, To(Register))
	assert.ErrorIs(t, err, ErrUnavailable)
	id, screen, err := d.Open(ctx, CommentsRoute{PostID: "p1"})
	require.NoError(t, err)
	got, route, ok := d.Get(id)
	require.True(t, ok)
	assert.Same(t, screen, got)
	assert.Equal(t, CommentsRoute{PostID: "p1"}, route)
}

func TestStateChangeClosesScreens(t *testing.T) {
	p := &fakePrincipals{p: &platform.Principal{UID: "u1"}}
	d := newDispatcher(p)
	ctx := context.Background()

	_, a, err := d.Open(ctx, To(Main))
	require.NoError(t, err)
	_, b, err := d.Open(ctx, ChatRoute{ConversationID: "c1", OtherUserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())

	p.set(&platform.Principal{UID: "u1", DisplayName: "renamed"})
	assert.Equal(t, 2, d.Len())

	p.set(nil)
	assert.Equal(t, 0, d.Len())
	assert.True(t, a.(*stubScreen).isClosed())
	assert.True(t, b.(*stubScreen).isClosed())
	assert.Equal(t, Unauthenticated, d.State())
}

func TestSwitchingUserClosesScreens(t *testing.T) {
	p := &fakePrincipals{p: &platform.Principal{UID: "u1"}}
	d := newDispatcher(p)
	ctx := context.Background()

	_, a, err := d.Open(ctx, To(Main))
	require.NoError(t, err)

	p.set(&platform.Principal{UID: "u2"})
	assert.Equal(t, 0, d.Len())
	assert.True(t, a.(*stubScreen).isClosed())
	assert.Equal(t, Authenticated, d.State())

	_, b, err := d.Open(ctx, To(Main))
	require.NoError(t, err)
	p.set(&platform.Principal{UID: "u2", PhotoURL: "new.jpg"})
	assert.Equal(t, 1, d.Len())
	assert.False(t, b.(*stubScreen).isClosed())
}

func TestCloseAndStop(t *testing.T) {
	p := &fakePrincipals{p: &platform.Principal{UID: "u1"}}
	d := newDispatcher(p)
	id, s, err := d.Open(context.Background(), To(Messages))
	require.NoError(t, err)

	d.Close(id)
	d.Close("missing")
	assert.True(t, s.(*stubScreen).isClosed())
	_, _, ok := d.Get(id)
	assert.False(t, ok)

	_, s, err = d.Open(context.Background(), To(Settings))
	require.NoError(t, err)
	d.Stop()
	assert.True(t, s.(*stubScreen).isClosed())
	assert.Nil(t, p.listener)
}

func TestDecode(t *testing.T) {
	r, err := Decode(FollowersList, json.RawMessage(`{"userId":"u1","type":"following"}`))
	require.NoError(t, err)
	assert.Equal(t, FollowersListRoute{UserID: "u1", Type: ListFollowing}, r)

	_, err = Decode(FollowersList, json.RawMessage(`{"userId":"u1","type":"friends"}`))
	assert.True(t, apperrors.IsValidation(err))
	_, err = Decode(Comments, nil)
	assert.True(t, apperrors.IsValidation(err))
	_, err = Decode(Chat, json.RawMessage(`{`))
	assert.True(t, apperrors.IsValidation(err))
	_, err = Decode("Reels", nil)
	assert.True(t, apperrors.IsValidation(err))

	r, err = Decode(Notifications, nil)
	require.NoError(t, err)
	assert.Equal(t, Notifications, r.Destination())
}

func TestDecodeRejectsIDsWithSlashes(t *testing.T) {
	for _, tc := range []struct {
		dest   Destination
		params string
	}{
		{Comments, `{"id":"p1/comments/c1"}`},
		{UserProfile, `{"userId":"u1/followers"}`},
		{UserProfile, `{"userId":".."}`},
		{Chat, `{"conversationId":"c1/messages/m1","otherUserId":"u2"}`},
		{Chat, `{"conversationId":"c1","otherUserId":"users/u2"}`},
		{FollowersList, `{"userId":"/u1","type":"followers"}`},
	} {
		t.Run(string(tc.dest)+" "+tc.params, func(t *testing.T) {
			_, err := Decode(tc.dest, json.RawMessage(tc.params))
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Contains(t, apperrors.GetMessage(err), "invalid")
		})
	}

	r, err := Decode(Comments, json.RawMessage(`{"id":"p1"}`))
	require.NoError(t, err)
	assert.Equal(t, CommentsRoute{PostID: "p1"}, r)
}

func TestResolve(t *testing.T) {
	r, ok := Resolve(models.Notification{Type: models.NotificationFollow, FromUserID: "u1"})
	require.True(t, ok)
	assert.Equal(t, UserProfileRoute{UserID: "u1"}, r)

	r, ok = Resolve(models.Notification{Type: models.NotificationLike, PostID: "p1"})
	require.True(t, ok)
	assert.Equal(t, CommentsRoute{PostID: "p1"}, r)

	r, ok = Resolve(models.Notification{Type: models.NotificationComment, PostID: "p2"})
	require.True(t, ok)
	assert.Equal(t, CommentsRoute{PostID: "p2"}, r)

	_, ok = Resolve(models.Notification{Type: models.NotificationLike})
	assert.False(t, ok)
}
