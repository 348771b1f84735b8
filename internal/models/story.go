package models

import (
	"time"

	"github.com/anonto42/nano-midea/app/internal/platform"
)

// YourStoryID marks the placeholder entry that opens story creation
const YourStoryID = "-1"

// Story is a document under stories/{id}
type Story struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	UserPhoto string    `json:"user_photo"`
	CreatedAt time.Time `json:"created_at"`
}

// StoryFromDocument builds a Story from a stories/{id} document
func StoryFromDocument(doc platform.Document) Story {
	d := doc.Data
	return Story{
		ID:        doc.ID,
		UserID:    stringField(d, FieldUserID),
		Name:      stringField(d, FieldName),
		Image:     stringField(d, FieldImage),
		UserPhoto: stringField(d, FieldUserPhoto),
		CreatedAt: timeField(d, FieldCreatedAt),
	}
}

// NewStoryData is the document written when a story is published
func NewStoryData(userID, name, image, userPhoto string) map[string]any {
	return map[string]any{
		FieldUserID:    userID,
		FieldName:      name,
		FieldImage:     image,
		FieldUserPhoto: userPhoto,
		FieldCreatedAt: platform.ServerTimestamp,
	}
}
