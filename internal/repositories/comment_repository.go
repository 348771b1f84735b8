package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/platform"
)

// CommentRepository defines the interface for comment operations
type CommentRepository interface {
	Query(postID string) platform.Query
	CreateComment(ctx context.Context, postID string, data map[string]any) (string, error)
}

type documentCommentRepository struct {
	store platform.DocumentStore
}

func NewDocumentCommentRepository(store platform.DocumentStore) CommentRepository {
	return &documentCommentRepository{store: store}
}

// Query is the comments of a post, oldest first
func (r *documentCommentRepository) Query(postID string) platform.Query {
	return platform.Collection(models.CommentsPath(postID)).OrderBy(models.FieldCreatedAt, platform.Asc)
}

func (r *documentCommentRepository) CreateComment(ctx context.Context, postID string, data map[string]any) (string, error) {
	return r.store.Add(ctx, models.CommentsPath(postID), data)
}
