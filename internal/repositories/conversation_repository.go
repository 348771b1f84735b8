package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/platform"
)

// ConversationRepository defines the interface for conversation and message operations
type ConversationRepository interface {
	InboxQuery(uid string) platform.Query
	MessagesQuery(conversationID string) platform.Query
	GetConversation(ctx context.Context, id string) (models.Conversation, bool, error)
	FindBetween(ctx context.Context, uid, other string) (models.Conversation, bool, error)
	CreateConversation(ctx context.Context, data map[string]any) (string, error)
	AddMessage(ctx context.Context, conversationID string, data map[string]any) (string, error)
	SetLastMessage(ctx context.Context, conversationID, text string) error
}

type documentConversationRepository struct {
	store platform.DocumentStore
}

func NewDocumentConversationRepository(store platform.DocumentStore) ConversationRepository {
	return &documentConversationRepository{store: store}
}

// InboxQuery is every conversation uid takes part in. Callers sort by lastMessageTime.
func (r *documentConversationRepository) InboxQuery(uid string) platform.Query {
	return platform.Collection(models.CollectionConversations).
		Where(models.FieldParticipants, platform.OpArrayContains, uid)
}

// MessagesQuery is the messages of a conversation, oldest first
func (r *documentConversationRepository) MessagesQuery(conversationID string) platform.Query {
	return platform.Collection(models.MessagesPath(conversationID)).OrderBy(models.FieldTimestamp, platform.Asc)
}

func (r *documentConversationRepository) GetConversation(ctx context.Context, id string) (models.Conversation, bool, error) {
	doc, err := r.store.Get(ctx, models.ConversationPath(id))
	if err != nil {
		return models.Conversation{ID: id}, false, err
	}
	return models.ConversationFromDocument(doc), doc.Exists, nil
}

// FindBetween returns the conversation whose participants include both uid and other
func (r *documentConversationRepository) FindBetween(ctx context.Context, uid, other string) (models.Conversation, bool, error) {
	docs, err := r.store.GetAll(ctx, r.InboxQuery(uid))
	if err != nil {
		return models.Conversation{}, false, err
	}
	for _, doc := range docs {
		c := models.ConversationFromDocument(doc)
		if c.Has(other) {
			return c, true, nil
		}
	}
	return models.Conversation{}, false, nil
}

func (r *documentConversationRepository) CreateConversation(ctx context.Context, data map[string]any) (string, error) {
	return r.store.Add(ctx, models.CollectionConversations, data)
}

func (r *documentConversationRepository) AddMessage(ctx context.Context, conversationID string, data map[string]any) (string, error) {
	return r.store.Add(ctx, models.MessagesPath(conversationID), data)
}

// SetLastMessage stamps the conversation preview with text and the server time
func (r *documentConversationRepository) SetLastMessage(ctx context.Context, conversationID, text string) error {
	return r.store.Update(ctx, models.ConversationPath(conversationID),
		platform.Update{Field: models.FieldLastMessage, Value: text},
		platform.Update{Field: models.FieldLastMessageTime, Value: platform.ServerTimestamp},
	)
}
