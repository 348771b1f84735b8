package models

import (
	"time"

	"github.com/anonto42/nano-midea/app/internal/platform"
)

// NotificationType is one of like, comment or follow
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationFollow  NotificationType = "follow"
)

// Notification is a document under notifications/{id}
type Notification struct {
	ID            string           `json:"id"`
	Type          NotificationType `json:"type"`
	FromUserID    string           `json:"from_user_id"`
	FromUsername  string           `json:"from_username"`
	FromUserPhoto string           `json:"from_user_photo"`
	ToUserID      string           `json:"to_user_id"`
	PostID        string           `json:"post_id,omitempty"`
	PostImage     string           `json:"post_image,omitempty"`
	CommentText   string           `json:"comment_text,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	Read          bool             `json:"read"`
}

// NotificationFromDocument builds a Notification from a notifications/{id} document
func NotificationFromDocument(doc platform.Document) Notification {
	d := doc.Data
	return Notification{
		ID:            doc.ID,
		Type:          NotificationType(stringField(d, FieldType)),
		FromUserID:    stringField(d, FieldFromUserID),
		FromUsername:  stringField(d, FieldFromUsername),
		FromUserPhoto: stringField(d, FieldFromUserPhoto),
		ToUserID:      stringField(d, FieldToUserID),
		PostID:        stringField(d, FieldPostID),
		PostImage:     stringField(d, FieldPostImage),
		CommentText:   stringField(d, FieldCommentText),
		CreatedAt:     timeField(d, FieldCreatedAt),
		Read:          boolField(d, FieldRead),
	}
}

// Data is the document written for a new notification. Empty post fields are omitted.
func (n Notification) Data() map[string]any {
	data := map[string]any{
		FieldType:          string(n.Type),
		FieldFromUserID:    n.FromUserID,
		FieldFromUsername:  n.FromUsername,
		FieldFromUserPhoto: n.FromUserPhoto,
		FieldToUserID:      n.ToUserID,
		FieldCreatedAt:     platform.ServerTimestamp,
		FieldRead:          false,
	}
	if n.PostID != "" {
		data[FieldPostID] = n.PostID
		data[FieldPostImage] = n.PostImage
	}
	if n.CommentText != "" {
		data[FieldCommentText] = n.CommentText
	}
	return data
}

// NotificationPath returns the document path of a notification
func NotificationPath(id string) string {
	return platform.Join(CollectionNotifications, id)
}
