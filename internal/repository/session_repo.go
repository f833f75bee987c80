package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/models"
)

// SessionRepository defines data operations for mock-test sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.MockTestSession) error
	GetByID(ctx context.Context, id uint) (models.MockTestSession, error)
	GetByIDForUpdate(ctx context.Context, id uint) (models.MockTestSession, error)
	Update(ctx context.Context, session *models.MockTestSession) error
	ListByUser(ctx context.Context, userID uint) ([]models.MockTestSession, error)
	AddCompletedSeconds(ctx context.Context, id uint, seconds int) error
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository instantiates the repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.MockTestSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) GetByID(ctx context.Context, id uint) (models.MockTestSession, error) {
	var session models.MockTestSession
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return models.MockTestSession{}, err
	}

	return session, nil
}

func (r *sessionRepository) GetByIDForUpdate(ctx context.Context, id uint) (models.MockTestSession, error) {
	var session models.MockTestSession
	if err := lockForUpdate(r.db.WithContext(ctx)).First(&session, id).Error; err != nil {
		return models.MockTestSession{}, err
	}

	return session, nil
}

func (r *sessionRepository) Update(ctx context.Context, session *models.MockTestSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID uint) ([]models.MockTestSession, error) {
	var sessions []models.MockTestSession
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *sessionRepository) AddCompletedSeconds(ctx context.Context, id uint, seconds int) error {
	return r.db.WithContext(ctx).
		Model(&models.MockTestSession{}).
		Where("id = ?", id).
		UpdateColumn("completed_seconds", gorm.Expr("completed_seconds + ?", seconds)).Error
}
