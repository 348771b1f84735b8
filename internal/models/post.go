package models

import (
	"time"

	"github.com/anonto42/nano-midea/app/internal/platform"
)

// Post is a document under posts/{id}
type Post struct {
	ID        string       `json:"id"`
	UserRef   string       `json:"user_ref"`
	Author    UserSnapshot `json:"user"`
	Images    []string     `json:"images"`
	Caption   string       `json:"caption"`
	Likes     []string     `json:"likes"`
	CreatedAt time.Time    `json:"created_at"`
}

// PostFromDocument builds a Post from a posts/{id} document
func PostFromDocument(doc platform.Document) Post {
	d := doc.Data
	return Post{
		ID:        doc.ID,
		UserRef:   stringField(d, FieldUserRef),
		Author:    snapshotFromMap(mapField(d, FieldUser)),
		Images:    stringsField(d, FieldImages),
		Caption:   stringField(d, FieldCaption),
		Likes:     stringsField(d, FieldLikes),
		CreatedAt: timeField(d, FieldCreatedAt),
	}
}

// CoverImage is the first image of the post, or "" if it has none
func (p Post) CoverImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// NewPostData is the document written when a post is published
func NewPostData(owner string, author UserSnapshot, images []string, caption string) map[string]any {
	return map[string]any{
		FieldUserRef:   owner,
		FieldUser:      author.data(),
		FieldImages:    images,
		FieldCaption:   caption,
		FieldLikes:     []string{},
		FieldCreatedAt: platform.ServerTimestamp,
	}
}

// PostPath returns the document path of a post
func PostPath(id string) string {
	return platform.Join(CollectionPosts, id)
}

// EditCaptionRequest defines the request body for changing a caption
type EditCaptionRequest struct {
	Caption string `json:"caption" validate:"max=2200"`
}

// CreatePostRequest defines the form fields for a new post. Images arrive as multipart files.
type CreatePostRequest struct {
	Caption string `json:"caption" form:"caption" validate:"max=2200"`
}
