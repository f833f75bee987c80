package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/models"
)

// AttemptRepository defines data operations for the append-only attempt history.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.MockTestAttempt) error
	MaxRepeatCount(ctx context.Context, sessionID, segmentID uint) (int, error)
	ListBySessionSegment(ctx context.Context, sessionID, segmentID uint) ([]models.MockTestAttempt, error)
}

type attemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository instantiates the repository.
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.MockTestAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *attemptRepository) MaxRepeatCount(ctx context.Context, sessionID, segmentID uint) (int, error) {
	var max int
	if err := r.db.WithContext(ctx).
		Model(&models.MockTestAttempt{}).
		Where("mock_test_session_id = ?", sessionID).
		Where("segment_id = ?", segmentID).
		Select("COALESCE(MAX(repeat_count), 0)").
		Scan(&max).Error; err != nil {
		return 0, err
	}

	return max, nil
}

func (r *attemptRepository) ListBySessionSegment(ctx context.Context, sessionID, segmentID uint) ([]models.MockTestAttempt, error) {
	var attempts []models.MockTestAttempt
	if err := r.db.WithContext(ctx).
		Where("mock_test_session_id = ?", sessionID).
		Where("segment_id = ?", segmentID).
		Order("repeat_count ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}

	return attempts, nil
}
