package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/panjf2000/ants/v2"
)

// UserRepository defines the interface for user document operations
type UserRepository interface {
	GetUser(ctx context.Context, uid string) (models.User, bool, error)
	GetUsers(ctx context.Context, uids []string) ([]models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, uid string, data map[string]any) error
	UpdateProfile(ctx context.Context, uid, displayName, username, bio string) error
	SetPhoto(ctx context.Context, uid, url string) error
	SetFollower(ctx context.Context, target, follower string, on bool) error
	SetFollowing(ctx context.Context, uid, target string, on bool) error
	SetSaved(ctx context.Context, uid, postID string, on bool) error
}

// DocumentUserRepository implements UserRepository over a DocumentStore
type DocumentUserRepository struct {
	store platform.DocumentStore
	pool  *ants.Pool
}

// NewDocumentUserRepository creates a new DocumentUserRepository
func NewDocumentUserRepository(store platform.DocumentStore, pool *ants.Pool) *DocumentUserRepository {
	return &DocumentUserRepository{store: store, pool: pool}
}

// UserPath returns the document path of a user
func UserPath(uid string) string {
	return platform.Join(models.CollectionUsers, uid)
}

// GetUser reads users/{uid}. A missing document yields a zero User with its ID set.
func (r *DocumentUserRepository) GetUser(ctx context.Context, uid string) (models.User, bool, error) {
	doc, err := r.store.Get(ctx, UserPath(uid))
	if err != nil {
		return models.User{ID: uid}, false, err
	}
	return models.UserFromDocument(doc), doc.Exists, nil
}

// GetUsers reads several users in parallel, skipping the missing ones
func (r *DocumentUserRepository) GetUsers(ctx context.Context, uids []string) ([]models.User, error) {
	paths := make([]string, len(uids))
	for i, uid := range uids {
		paths[i] = UserPath(uid)
	}
	docs, err := fetchAll(ctx, r.store, r.pool, paths)
	users := make([]models.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, models.UserFromDocument(doc))
	}
	return users, err
}

// ListUsers reads the whole users collection
func (r *DocumentUserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	docs, err := r.store.GetAll(ctx, platform.Collection(models.CollectionUsers))
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, models.UserFromDocument(doc))
	}
	return users, nil
}

func (r *DocumentUserRepository) CreateUser(ctx context.Context, uid string, data map[string]any) error {
	return r.store.Set(ctx, UserPath(uid), data, false)
}

// UpdateProfile writes the editable profile fields. An empty username falls back to the display name.
func (r *DocumentUserRepository) UpdateProfile(ctx context.Context, uid, displayName, username, bio string) error {
	return r.store.Update(ctx, UserPath(uid),
		platform.Update{Field: models.FieldUsername, Value: models.FirstNonEmpty(username, displayName)},
		platform.Update{Field: models.FieldDisplayName, Value: displayName},
		platform.Update{Field: models.FieldBio, Value: bio},
	)
}

func (r *DocumentUserRepository) SetPhoto(ctx context.Context, uid, url string) error {
	return r.store.Update(ctx, UserPath(uid), platform.Update{Field: models.FieldPhotoURL, Value: url})
}

// SetFollower adds or removes follower from target's followers
func (r *DocumentUserRepository) SetFollower(ctx context.Context, target, follower string, on bool) error {
	return r.store.Update(ctx, UserPath(target), membership(models.FieldFollowers, follower, on))
}

// SetFollowing adds or removes target from uid's following
func (r *DocumentUserRepository) SetFollowing(ctx context.Context, uid, target string, on bool) error {
	return r.store.Update(ctx, UserPath(uid), membership(models.FieldFollowing, target, on))
}

func (r *DocumentUserRepository) SetSaved(ctx context.Context, uid, postID string, on bool) error {
	return r.store.Update(ctx, UserPath(uid), membership(models.FieldSavedPosts, postID, on))
}

// membership builds an atomic array union or remove of a single value
func membership(field, value string, on bool) platform.Update {
	if on {
		return platform.Update{Field: field, Value: platform.ArrayUnion(value)}
	}
	return platform.Update{Field: field, Value: platform.ArrayRemove(value)}
}
