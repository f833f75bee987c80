package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/models"
)

// FinalResultRepository defines data operations for session-level final results.
type FinalResultRepository interface {
	GetBySession(ctx context.Context, sessionID uint) (models.MockTestFinalResult, error)
	Upsert(ctx context.Context, result *models.MockTestFinalResult) error
}

type finalResultRepository struct {
	db *gorm.DB
}

// NewFinalResultRepository instantiates the repository.
func NewFinalResultRepository(db *gorm.DB) FinalResultRepository {
	return &finalResultRepository{db: db}
}

func (r *finalResultRepository) GetBySession(ctx context.Context, sessionID uint) (models.MockTestFinalResult, error) {
	var result models.MockTestFinalResult
	if err := r.db.WithContext(ctx).
		Where("mock_test_session_id = ?", sessionID).
		First(&result).Error; err != nil {
		return models.MockTestFinalResult{}, err
	}

	return result, nil
}

// Upsert writes the final result keyed by session id. Concurrent compute
// calls converge on one row via the unique index and ON CONFLICT update.
func (r *finalResultRepository) Upsert(ctx context.Context, result *models.MockTestFinalResult) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "mock_test_session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_score", "dialogue1_score", "dialogue2_score",
			"out_of", "pass_marks", "per_dialogue_out_of", "per_dialogue_pass",
			"passed", "averages", "overall_feedback", "computed_at", "updated_at",
		}),
	}).Create(result).Error
}
