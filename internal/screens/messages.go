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

type ConversationView struct {
	models.Conversation
	OtherUserID string              `json:"other_user_id"`
	Other       models.UserSnapshot `json:"other"`
	TimeAgo     string              `json:"time_ago"`
}

type MessagesState struct {
	Loading       bool               `json:"loading"`
	Conversations []ConversationView `json:"conversations"`
	Error         string             `json:"error,omitempty"`
}

// Messages lists the principal's conversations, most recent first
type Messages struct {
	*base
	deps  Deps
	me    platform.Principal
	inbox *live.Collection[models.Conversation]
}

func OpenMessages(ctx context.Context, deps Deps) (*Messages, error) {
	deps = deps.withDefaults()
	me, err := deps.principal()
	if err != nil {
		return nil, err
	}
	s := &Messages{base: newBase(ctx, "messages", deps.Logger), deps: deps, me: me}
	inbox, err := live.WatchCollection(s.ctx, deps.Store, deps.Conversations.InboxQuery(me.UID), models.ConversationFromDocument, s.changed)
	if err != nil {
		s.Close()
		return nil, s.failed(err, "Failed to load conversations", "uid", me.UID)
	}
	s.inbox = inbox
	s.group.Add(inbox)
	return s, nil
}

func (s *Messages) State() any {
	now := s.deps.Clock.Now()
	st := MessagesState{Loading: s.inbox.Version() == 0}
	if err := s.inbox.Err(); err != nil {
		st.Error = apperrors.GetMessage(err)
	}
	items := derive.SortDesc(s.inbox.Items(), func(c models.Conversation) time.Time { return c.LastMessageTime })
	for _, c := range items {
		id, other := derive.OtherParticipant(c, s.me.UID)
		st.Conversations = append(st.Conversations, ConversationView{
			Conversation: c,
			OtherUserID:  id,
			Other:        other,
			TimeAgo:      derive.TimeAgo(c.LastMessageTime, now),
		})
	}
	return st
}

func (s *Messages) Do(_ context.Context, action string, params json.RawMessage) (any, error) {
	if action != "open" {
		return nil, unknownAction(action)
	}
	req, err := decode[struct {
		ConversationID string `json:"conversation_id"`
	}](params)
	if err != nil {
		return nil, err
	}
	for _, c := range s.inbox.Items() {
		if c.ID == req.ConversationID {
			return navigate(navigation.ChatRoute{ConversationID: c.ID, OtherUserID: c.Other(s.me.UID)}), nil
		}
	}
	return nil, apperrors.Validation("This conversation is no longer available")
}

type ChatMessage struct {
	models.Message
	Mine bool `json:"mine"`
}

type ChatState struct {
	Loading  bool          `json:"loading"`
	Other    models.User   `json:"other"`
	Name     string        `json:"name"`
	Messages []ChatMessage `json:"messages"`
	Error    string        `json:"error,omitempty"`
}

// Chat is one conversation, oldest message first
type Chat struct {
	*base
	deps     Deps
	me       platform.Principal
	route    navigation.ChatRoute
	other    models.User
	messages *live.Collection[models.Message]
}

func OpenChat(ctx context.Context, deps Deps, r navigation.ChatRoute) (*Chat, error) {
	deps = deps.withDefaults()
	me, err := deps.principal()
	if err != nil {
		return nil, err
	}
	s := &Chat{base: newBase(ctx, "chat", deps.Logger), deps: deps, me: me, route: r}

	c, ok, err := deps.Conversations.GetConversation(ctx, r.ConversationID)
	if err != nil {
		s.Close()
		return nil, s.failed(err, "Failed to load conversation", "conversation_id", r.ConversationID)
	}
	switch {
	case !ok:
		s.Close()
		return nil, apperrors.WrapWithCode(apperrors.ErrNotFound, apperrors.CodeNotFound, "This conversation is no longer available")
	case !c.Has(me.UID):
		s.Close()
		return nil, apperrors.Forbidden("You are not part of this conversation")
	case c.Other(me.UID) != r.OtherUserID:
		s.Close()
		return nil, apperrors.Validation("This conversation is with someone else")
	}

	other, _, err := deps.Users.GetUser(ctx, r.OtherUserID)
	if err != nil {
		s.Close()
		return nil, s.failed(err, "Failed to load user", "user_id", r.OtherUserID)
	}
	other.ID = r.OtherUserID
	s.other = other

	messages, err := live.WatchCollection(s.ctx, deps.Store, deps.Conversations.MessagesQuery(r.ConversationID), models.MessageFromDocument, s.changed)
	if err != nil {
		s.Close()
		return nil, s.failed(err, "Failed to load messages", "conversation_id", r.ConversationID)
	}
	s.messages = messages
	s.group.Add(messages)
	return s, nil
}

func (s *Chat) State() any {
	st := ChatState{
		Loading: s.messages.Version() == 0,
		Other:   s.other,
		Name:    derive.Username(s.other.Username, s.other.Email, "User"),
	}
	if err := s.messages.Err(); err != nil {
		st.Error = apperrors.GetMessage(err)
	}
	items := derive.SortAsc(s.messages.Items(), func(m models.Message) time.Time { return m.Timestamp })
	for _, m := range items {
		st.Messages = append(st.Messages, ChatMessage{Message: m, Mine: m.SenderID == s.me.UID})
	}
	return st
}

func (s *Chat) Do(ctx context.Context, action string, params json.RawMessage) (any, error) {
	if action != "send" {
		return nil, unknownAction(action)
	}
	req, err := decode[textParams](params)
	if err != nil {
		return nil, err
	}
	return s.deps.Mutator.SendMessage(ctx, s.route.ConversationID, req.Text)
}
