package repositories

import (
	"context"
	"errors"
	"sync"

	"github.com/anonto42/nano-midea/app/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate go run go.uber.org/mock/mockgen -source=session_repository.go -destination=mocks/session_repository.go -package=mocks

// SessionRepository persists the signed-in principal of a device across restarts
type SessionRepository interface {
	Load(ctx context.Context, device string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, device string) error
}

// PostgresSessionRepository implements SessionRepository for PostgreSQL
type PostgresSessionRepository struct {
	db *gorm.DB
}

// NewPostgresSessionRepository creates a new PostgresSessionRepository
func NewPostgresSessionRepository(db *gorm.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

// Migrate creates the sessions table
func (r *PostgresSessionRepository) Migrate() error {
	return r.db.AutoMigrate(&models.Session{})
}

// Load returns the stored session of a device, or nil if there is none
func (r *PostgresSessionRepository) Load(ctx context.Context, device string) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).Where("device = ?", device).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Save upserts the session keyed by device
func (r *PostgresSessionRepository) Save(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(session).Error
}

func (r *PostgresSessionRepository) Delete(ctx context.Context, device string) error {
	return r.db.WithContext(ctx).Where("device = ?", device).Delete(&models.Session{}).Error
}

// MemorySessionRepository keeps sessions for the life of the process
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]models.Session)}
}

func (r *MemorySessionRepository) Load(_ context.Context, device string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[device]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *MemorySessionRepository) Save(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.Device] = *session
	return nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, device string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, device)
	return nil
}
