package models

import (
	"time"

	"github.com/anonto42/nano-midea/app/internal/platform"
)

// Message is a document under conversations/{id}/messages/{mid}
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	SenderID  string    `json:"sender_id"`
	Timestamp time.Time `json:"timestamp"`
}

func MessageFromDocument(doc platform.Document) Message {
	return Message{
		ID:        doc.ID,
		Text:      stringField(doc.Data, FieldText),
		SenderID:  stringField(doc.Data, FieldSenderID),
		Timestamp: timeField(doc.Data, FieldTimestamp),
	}
}

func NewMessageData(sender, text string) map[string]any {
	return map[string]any{
		FieldText:      text,
		FieldSenderID:  sender,
		FieldTimestamp: platform.ServerTimestamp,
	}
}

// SendMessageRequest defines the request body for sending a chat message
type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}
