package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/models"
)

// ContentRepository reads the mock-test content tree. The catalog service
// owns these tables; this core never writes them.
type ContentRepository interface {
	GetMockTest(ctx context.Context, id uint) (models.MockTest, error)
	GetDialogues(ctx context.Context, ids []uint) ([]models.Dialogue, error)
	ListSegments(ctx context.Context, dialogueID uint) ([]models.Segment, error)
	GetSegment(ctx context.Context, id uint) (models.Segment, error)
}

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository instantiates the repository.
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) GetMockTest(ctx context.Context, id uint) (models.MockTest, error) {
	var mockTest models.MockTest
	if err := r.db.WithContext(ctx).First(&mockTest, id).Error; err != nil {
		return models.MockTest{}, err
	}

	return mockTest, nil
}

func (r *contentRepository) GetDialogues(ctx context.Context, ids []uint) ([]models.Dialogue, error) {
	var dialogues []models.Dialogue
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&dialogues).Error; err != nil {
		return nil, err
	}

	return dialogues, nil
}

func (r *contentRepository) ListSegments(ctx context.Context, dialogueID uint) ([]models.Segment, error) {
	var segments []models.Segment
	if err := r.db.WithContext(ctx).
		Where("dialogue_id = ?", dialogueID).
		Order("segment_order ASC").
		Find(&segments).Error; err != nil {
		return nil, err
	}

	return segments, nil
}

func (r *contentRepository) GetSegment(ctx context.Context, id uint) (models.Segment, error) {
	var segment models.Segment
	if err := r.db.WithContext(ctx).First(&segment, id).Error; err != nil {
		return models.Segment{}, err
	}

	return segment, nil
}
