package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/platform"
)

// StoryRepository defines the interface for story operations
type StoryRepository interface {
	WindowQuery(since time.Time) platform.Query
	GetStory(ctx context.Context, id string) (models.Story, bool, error)
	CreateStory(ctx context.Context, data map[string]any) (string, error)
}

type documentStoryRepository struct {
	store platform.DocumentStore
}

func NewDocumentStoryRepository(store platform.DocumentStore) StoryRepository {
	return &documentStoryRepository{store: store}
}

// WindowQuery is the stories created strictly after since
func (r *documentStoryRepository) WindowQuery(since time.Time) platform.Query {
	return platform.Collection(models.CollectionStories).
		Where(models.FieldCreatedAt, platform.OpGreater, since)
}

// GetStory reads a story by id regardless of its age
func (r *documentStoryRepository) GetStory(ctx context.Context, id string) (models.Story, bool, error) {
	doc, err := r.store.Get(ctx, platform.Join(models.CollectionStories, id))
	if err != nil {
		return models.Story{ID: id}, false, err
	}
	return models.StoryFromDocument(doc), doc.Exists, nil
}

func (r *documentStoryRepository) CreateStory(ctx context.Context, data map[string]any) (string, error) {
	return r.store.Add(ctx, models.CollectionStories, data)
}
