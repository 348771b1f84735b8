package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/panjf2000/ants/v2"
)

// RecentPostsLimit bounds the search screen's post grid
const RecentPostsLimit = 30

// PostRepository defines the interface for post document operations
type PostRepository interface {
	FeedQuery() platform.Query
	GetPost(ctx context.Context, id string) (models.Post, bool, error)
	GetPosts(ctx context.Context, ids []string) ([]models.Post, error)
	GetPostsByUser(ctx context.Context, uid string) ([]models.Post, error)
	GetRecentPosts(ctx context.Context) ([]models.Post, error)
	CreatePost(ctx context.Context, data map[string]any) (string, error)
	SetLike(ctx context.Context, postID, uid string, on bool) error
	UpdateCaption(ctx context.Context, postID, caption string) error
	DeletePost(ctx context.Context, postID string) error
}

// DocumentPostRepository implements PostRepository over a DocumentStore
type DocumentPostRepository struct {
	store platform.DocumentStore
	pool  *ants.Pool
}

// NewDocumentPostRepository creates a new DocumentPostRepository
func NewDocumentPostRepository(store platform.DocumentStore, pool *ants.Pool) *DocumentPostRepository {
	return &DocumentPostRepository{store: store, pool: pool}
}

// FeedQuery is every post, newest first
func (r *DocumentPostRepository) FeedQuery() platform.Query {
	return platform.Collection(models.CollectionPosts).OrderBy(models.FieldCreatedAt, platform.Desc)
}

func (r *DocumentPostRepository) GetPost(ctx context.Context, id string) (models.Post, bool, error) {
	doc, err := r.store.Get(ctx, models.PostPath(id))
	if err != nil {
		return models.Post{ID: id}, false, err
	}
	return models.PostFromDocument(doc), doc.Exists, nil
}

// GetPosts reads several posts in parallel, skipping deleted ones
func (r *DocumentPostRepository) GetPosts(ctx context.Context, ids []string) ([]models.Post, error) {
	paths := make([]string, len(ids))
	for i, id := range ids {
		paths[i] = models.PostPath(id)
	}
	docs, err := fetchAll(ctx, r.store, r.pool, paths)
	return decodePosts(docs), err
}

// GetPostsByUser reads a user's posts in store order. Callers sort.
func (r *DocumentPostRepository) GetPostsByUser(ctx context.Context, uid string) ([]models.Post, error) {
	docs, err := r.store.GetAll(ctx, platform.Collection(models.CollectionPosts).
		Where(models.FieldUserRef, platform.OpEqual, uid))
	if err != nil {
		return nil, err
	}
	return decodePosts(docs), nil
}

func (r *DocumentPostRepository) GetRecentPosts(ctx context.Context) ([]models.Post, error) {
	docs, err := r.store.GetAll(ctx, r.FeedQuery().LimitTo(RecentPostsLimit))
	if err != nil {
		return nil, err
	}
	return decodePosts(docs), nil
}

func (r *DocumentPostRepository) CreatePost(ctx context.Context, data map[string]any) (string, error) {
	return r.store.Add(ctx, models.CollectionPosts, data)
}

// SetLike adds or removes uid from the post's liker set
func (r *DocumentPostRepository) SetLike(ctx context.Context, postID, uid string, on bool) error {
	return r.store.Update(ctx, models.PostPath(postID), membership(models.FieldLikes, uid, on))
}

func (r *DocumentPostRepository) UpdateCaption(ctx context.Context, postID, caption string) error {
	return r.store.Update(ctx, models.PostPath(postID), platform.Update{Field: models.FieldCaption, Value: caption})
}

// DeletePost removes the post document, then its comments in one batch
func (r *DocumentPostRepository) DeletePost(ctx context.Context, postID string) error {
	if err := r.store.Delete(ctx, models.PostPath(postID)); err != nil {
		return err
	}
	comments, err := r.store.GetAll(ctx, platform.Collection(models.CommentsPath(postID)))
	if err != nil {
		return fmt.Errorf("list comments of %s: %w", postID, err)
	}
	err = writeChunked(ctx, r.store, comments, func(b platform.WriteBatch, c platform.Document) {
		b.Delete(c.Path)
	})
	if err != nil {
		return fmt.Errorf("delete comments of %s: %w", postID, err)
	}
	return nil
}

func decodePosts(docs []platform.Document) []models.Post {
	posts := make([]models.Post, 0, len(docs))
	for _, doc := range docs {
		posts = append(posts, models.PostFromDocument(doc))
	}
	return posts
}
