package models

import (
	"strings"
	"time"

	"github.com/anonto42/nano-midea/app/internal/platform"
)

// Comment is a document under posts/{postId}/comments/{id}
type Comment struct {
	ID        string       `json:"id"`
	PostID    string       `json:"post_id"`
	UserRef   string       `json:"user_ref"`
	Author    UserSnapshot `json:"user"`
	Text      string       `json:"comment"`
	CreatedAt time.Time    `json:"created_at"`
}

// CommentFromDocument builds a Comment from a comments subcollection document
func CommentFromDocument(doc platform.Document) Comment {
	d := doc.Data
	postID := ""
	if parts := strings.Split(doc.Path, "/"); len(parts) == 4 && parts[0] == CollectionPosts {
		postID = parts[1]
	}
	return Comment{
		ID:        doc.ID,
		PostID:    postID,
		UserRef:   stringField(d, FieldUserRef),
		Author:    snapshotFromMap(mapField(d, FieldUser)),
		Text:      stringField(d, FieldComment),
		CreatedAt: timeField(d, FieldCreatedAt),
	}
}

// NewCommentData is the document written when a comment is added
func NewCommentData(author string, snapshot UserSnapshot, text string) map[string]any {
	return map[string]any{
		FieldUserRef:   author,
		FieldUser:      snapshot.data(),
		FieldComment:   text,
		FieldCreatedAt: platform.ServerTimestamp,
	}
}

// CommentsPath returns the comments subcollection of a post
func CommentsPath(postID string) string {
	return platform.Join(CollectionPosts, postID, CollectionComments)
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}
