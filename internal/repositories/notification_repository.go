package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/platform"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	InboxQuery(uid string) platform.Query
	UnreadQuery(uid string) platform.Query
	GetNotification(ctx context.Context, id string) (models.Notification, bool, error)
	CreateNotification(ctx context.Context, n models.Notification) (string, error)
	MarkAsRead(ctx context.Context, id string) error
	MarkAllAsRead(ctx context.Context, ids []string) error
}

type documentNotificationRepository struct {
	store platform.DocumentStore
}

func NewDocumentNotificationRepository(store platform.DocumentStore) NotificationRepository {
	return &documentNotificationRepository{store: store}
}

// InboxQuery is every notification addressed to uid. Callers sort by createdAt.
func (r *documentNotificationRepository) InboxQuery(uid string) platform.Query {
	return platform.Collection(models.CollectionNotifications).
		Where(models.FieldToUserID, platform.OpEqual, uid)
}

func (r *documentNotificationRepository) UnreadQuery(uid string) platform.Query {
	return r.InboxQuery(uid).Where(models.FieldRead, platform.OpEqual, false)
}

func (r *documentNotificationRepository) GetNotification(ctx context.Context, id string) (models.Notification, bool, error) {
	doc, err := r.store.Get(ctx, models.NotificationPath(id))
	if err != nil {
		return models.Notification{ID: id}, false, err
	}
	return models.NotificationFromDocument(doc), doc.Exists, nil
}

func (r *documentNotificationRepository) CreateNotification(ctx context.Context, n models.Notification) (string, error) {
	return r.store.Add(ctx, models.CollectionNotifications, n.Data())
}

func (r *documentNotificationRepository) MarkAsRead(ctx context.Context, id string) error {
	return r.store.Update(ctx, models.NotificationPath(id), platform.Update{Field: models.FieldRead, Value: true})
}

// MarkAllAsRead flags every listed notification read, one batch per platform.MaxBatchWrites ids
func (r *documentNotificationRepository) MarkAllAsRead(ctx context.Context, ids []string) error {
	return writeChunked(ctx, r.store, ids, func(b platform.WriteBatch, id string) {
		b.Update(models.NotificationPath(id), platform.Update{Field: models.FieldRead, Value: true})
	})
}
