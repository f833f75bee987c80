package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/models"
)

// ResultRepository defines data operations for the per-segment ledger.
type ResultRepository interface {
	BulkCreate(ctx context.Context, results []models.MockTestResult) error
	ListBySession(ctx context.Context, sessionID uint) ([]models.MockTestResult, error)
	GetBySessionSegment(ctx context.Context, sessionID, segmentID uint) (models.MockTestResult, error)
	GetBySessionSegmentForUpdate(ctx context.Context, sessionID, segmentID uint) (models.MockTestResult, error)
	Update(ctx context.Context, result *models.MockTestResult) error
}

type resultRepository struct {
	db *gorm.DB
}

// NewResultRepository instantiates the repository.
func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) BulkCreate(ctx context.Context, results []models.MockTestResult) error {
	if len(results) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Create(&results).Error
}

func (r *resultRepository) ListBySession(ctx context.Context, sessionID uint) ([]models.MockTestResult, error) {
	var results []models.MockTestResult
	if err := r.db.WithContext(ctx).
		Where("mock_test_session_id = ?", sessionID).
		Order("dialogue_id ASC").
		Order("segment_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func (r *resultRepository) GetBySessionSegment(ctx context.Context, sessionID, segmentID uint) (models.MockTestResult, error) {
	return r.getBySessionSegment(r.db.WithContext(ctx), sessionID, segmentID)
}

func (r *resultRepository) GetBySessionSegmentForUpdate(ctx context.Context, sessionID, segmentID uint) (models.MockTestResult, error) {
	return r.getBySessionSegment(lockForUpdate(r.db.WithContext(ctx)), sessionID, segmentID)
}

func (r *resultRepository) getBySessionSegment(query *gorm.DB, sessionID, segmentID uint) (models.MockTestResult, error) {
	var result models.MockTestResult
	if err := query.
		Where("mock_test_session_id = ?", sessionID).
		Where("segment_id = ?", segmentID).
		First(&result).Error; err != nil {
		return models.MockTestResult{}, err
	}

	return result, nil
}

func (r *resultRepository) Update(ctx context.Context, result *models.MockTestResult) error {
	return r.db.WithContext(ctx).Save(result).Error
}
