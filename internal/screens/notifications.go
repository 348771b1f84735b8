package screens

import (
	"context"
	"encoding/json"
	"time"

	"github.com/anonto42/nano-midea/app/internal/derive"
	"github.com/anonto42/nano-midea/app/internal/live"
	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/navigation"
	"github.com/anonto42/nano-midea/app/internal/platform"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
)

type NotificationView struct {
	models.Notification
	Text    string `json:"text"`
	TimeAgo string `json:"time_ago"`
}

type NotificationsState struct {
	Loading       bool               `json:"loading"`
	Notifications []NotificationView `json:"notifications"`
	Unread        int                `json:"unread"`
	Error         string             `json:"error,omitempty"`
}

// Notifications is the principal's activity inbox, newest first
type Notifications struct {
	*base
	deps  Deps
	me    platform.Principal
	inbox *live.Collection[models.Notification]
}

func OpenNotifications(ctx context.Context, deps Deps) (*Notifications, error) {
	deps = deps.withDefaults()
	me, err := deps.principal()
	if err != nil {
		return nil, err
	}
	s := &Notifications{base: newBase(ctx, "notifications", deps.Logger), deps: deps, me: me}
	inbox, err := live.WatchCollection(s.ctx, deps.Store, deps.Notifications.InboxQuery(me.UID), models.NotificationFromDocument, s.changed)
	if err != nil {
		s.Close()
		return nil, s.failed(err, "Failed to load notifications", "uid", me.UID)
	}
	s.inbox = inbox
	s.group.Add(inbox)
	return s, nil
}

func (s *Notifications) items() []models.Notification {
	return derive.SortDesc(s.inbox.Items(), func(n models.Notification) time.Time { return n.CreatedAt })
}

func (s *Notifications) State() any {
	now := s.deps.Clock.Now()
	items := s.items()
	st := NotificationsState{
		Loading: s.inbox.Version() == 0,
		Unread:  derive.UnreadCount(items),
	}
	if err := s.inbox.Err(); err != nil {
		st.Error = apperrors.GetMessage(err)
	}
	for _, n := range items {
		st.Notifications = append(st.Notifications, NotificationView{
			Notification: n,
			Text:         derive.NotificationText(n),
			TimeAgo:      derive.TimeAgo(n.CreatedAt, now),
		})
	}
	return st
}

func (s *Notifications) Do(ctx context.Context, action string, params json.RawMessage) (any, error) {
	switch action {
	case "open":
		req, err := decode[struct {
			ID string `json:"id"`
		}](params)
		if err != nil {
			return nil, err
		}
		return s.open(ctx, req.ID)
	case "mark_all_read":
		return nil, s.deps.Mutator.MarkAllNotificationsRead(ctx, s.items())
	}
	return nil, unknownAction(action)
}

// open marks the notification read and returns where it leads, if anywhere
func (s *Notifications) open(ctx context.Context, id string) (any, error) {
	for _, n := range s.inbox.Items() {
		if n.ID != id {
			continue
		}
		if !n.Read {
			if err := s.deps.Mutator.MarkNotificationRead(ctx, n.ID); err != nil {
				return nil, err
			}
		}
		r, ok := navigation.Resolve(n)
		if !ok {
			return nil, nil
		}
		return navigate(r), nil
	}
	return nil, apperrors.Validation("This notification is no longer available")
}
