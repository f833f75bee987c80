package models

import (
	"time"

	"gorm.io/datatypes"
)

// MockTestFinalResult is the idempotently upserted summary of a fully
// completed session; unique on the session id.
type MockTestFinalResult struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	MockTestSessionID uint              `gorm:"not null;uniqueIndex" json:"mock_test_session_id"`
	MockTestID        uint              `gorm:"not null" json:"mock_test_id"`
	UserID            uint              `gorm:"not null;index" json:"user_id"`
	TotalScore        float64           `gorm:"type:numeric(10,2);not null" json:"total_score"`
	Dialogue1Score    float64           `gorm:"type:numeric(10,2);not null" json:"dialogue1_score"`
	Dialogue2Score    float64           `gorm:"type:numeric(10,2);not null" json:"dialogue2_score"`
	OutOf             float64           `gorm:"type:numeric(10,2);not null" json:"out_of"`
	PassMarks         float64           `gorm:"type:numeric(10,2);not null" json:"pass_marks"`
	PerDialogueOutOf  float64           `gorm:"type:numeric(10,2);not null" json:"per_dialogue_out_of"`
	PerDialoguePass   float64           `gorm:"type:numeric(10,2);not null" json:"per_dialogue_pass"`
	Passed            bool              `gorm:"not null" json:"passed"`
	Averages          datatypes.JSONMap `json:"averages"`
	OverallFeedback   string            `gorm:"type:text" json:"overall_feedback"`
	ComputedAt        time.Time         `gorm:"not null" json:"computed_at"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
