package models

import (
	"time"

	"github.com/anonto42/nano-midea/app/internal/platform"
)

// Conversation is a two-party thread under conversations/{id}
type Conversation struct {
	ID              string                  `json:"id"`
	Participants    []string                `json:"participants"`
	ParticipantData map[string]UserSnapshot `json:"participant_data"`
	LastMessage     string                  `json:"last_message"`
	LastMessageTime time.Time               `json:"last_message_time"`
	UnreadCount     int                     `json:"unread_count"`
}

// ConversationFromDocument builds a Conversation from a conversations/{id} document
func ConversationFromDocument(doc platform.Document) Conversation {
	d := doc.Data
	pd := make(map[string]UserSnapshot)
	for uid, v := range mapField(d, FieldParticipantData) {
		if m, ok := v.(map[string]any); ok {
			pd[uid] = snapshotFromMap(m)
		}
	}
	return Conversation{
		ID:              doc.ID,
		Participants:    stringsField(d, FieldParticipants),
		ParticipantData: pd,
		LastMessage:     stringField(d, FieldLastMessage),
		LastMessageTime: timeField(d, FieldLastMessageTime),
		UnreadCount:     intField(d, FieldUnreadCount),
	}
}

// NewConversationData is the document written when two users first open a thread
func NewConversationData(me string, mine UserSnapshot, other string, theirs UserSnapshot) map[string]any {
	return map[string]any{
		FieldParticipants: []string{me, other},
		FieldParticipantData: map[string]any{
			me:    mine.data(),
			other: theirs.data(),
		},
		FieldLastMessage:     "",
		FieldLastMessageTime: platform.ServerTimestamp,
		FieldUnreadCount:     0,
	}
}

// Other returns the participant that is not uid, or "" if there is none
func (c Conversation) Other(uid string) string {
	for _, p := range c.Participants {
		if p != uid {
			return p
		}
	}
	return ""
}

// Has reports whether uid takes part in the conversation
func (c Conversation) Has(uid string) bool {
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

// ConversationPath returns the document path of a conversation
func ConversationPath(id string) string {
	return platform.Join(CollectionConversations, id)
}

// MessagesPath returns the messages subcollection of a conversation
func MessagesPath(conversationID string) string {
	return platform.Join(CollectionConversations, conversationID, CollectionMessages)
}

// OpenConversationRequest names the other participant of a thread
type OpenConversationRequest struct {
	UserID string `json:"user_id" validate:"required"`
}
