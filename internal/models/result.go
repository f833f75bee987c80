package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScoreBreakdown is the rubric outcome of the latest scored attempt. The same
// columns live on the ledger row (current state) and the attempt row
// (history), written in the same transaction.
type ScoreBreakdown struct {
	AudioURL                  string            `gorm:"type:text" json:"audio_url"`
	UserTranscription         string            `gorm:"type:text" json:"user_transcription"`
	AIScores                  datatypes.JSONMap `json:"ai_scores"`
	AccuracyScore             float64           `gorm:"type:numeric(10,2)" json:"accuracy_score"`
	AccuracyText              string            `gorm:"type:text" json:"accuracy_text"`
	LanguageQualityScore      float64           `gorm:"type:numeric(10,2)" json:"language_quality_score"`
	LanguageQualityText       string            `gorm:"type:text" json:"language_quality_text"`
	FluencyPronunciationScore float64           `gorm:"type:numeric(10,2)" json:"fluency_pronunciation_score"`
	FluencyPronunciationText  string            `gorm:"type:text" json:"fluency_pronunciation_text"`
	DeliveryCoherenceScore    float64           `gorm:"type:numeric(10,2)" json:"delivery_coherence_score"`
	DeliveryCoherenceText     string            `gorm:"type:text" json:"delivery_coherence_text"`
	CulturalContextScore      float64           `gorm:"type:numeric(10,2)" json:"cultural_context_score"`
	CulturalContextText       string            `gorm:"type:text" json:"cultural_context_text"`
	ResponseManagementScore   float64           `gorm:"type:numeric(10,2)" json:"response_management_score"`
	ResponseManagementText    string            `gorm:"type:text" json:"response_management_text"`
	TotalRawScore             float64           `gorm:"type:numeric(10,2)" json:"total_raw_score"`
	FinalScore                float64           `gorm:"type:numeric(10,2)" json:"final_score"`
	OneLineFeedback           string            `gorm:"type:text" json:"one_line_feedback"`
	Language                  string            `gorm:"size:64" json:"language"`
}

// MockTestResult is the per-segment ledger row: exactly one per
// (session, segment), created pending at session start and overwritten in
// place on every resubmission. DialogueID and SegmentOrder are denormalized
// from the segment so progress ordering and per-dialogue sums need no joins.
type MockTestResult struct {
	ID                uint    `gorm:"primaryKey" json:"id"`
	MockTestSessionID uint    `gorm:"not null;uniqueIndex:idx_results_session_segment" json:"mock_test_session_id"`
	MockTestID        uint    `gorm:"not null" json:"mock_test_id"`
	UserID            uint    `gorm:"not null;index" json:"user_id"`
	DialogueID        uint    `gorm:"not null" json:"dialogue_id"`
	SegmentID         uint    `gorm:"not null;uniqueIndex:idx_results_session_segment" json:"segment_id"`
	SegmentOrder      int     `gorm:"not null" json:"segment_order"`
	Status            string  `gorm:"size:32;not null" json:"status"`
	MaxMarks          float64 `gorm:"type:numeric(10,2);not null" json:"max_marks"`
	ObtainedMarks     float64 `gorm:"type:numeric(10,2);not null;default:0" json:"obtained_marks"`
	RepeatCount       int     `gorm:"not null;default:0" json:"repeat_count"`
	ScoreBreakdown
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

const (
	// ResultStatusPending indicates the segment has not been scored yet.
	ResultStatusPending = "pending"
	// ResultStatusCompleted indicates at least one scored attempt exists.
	ResultStatusCompleted = "completed"
)

// IsCompleted reports whether the segment has been scored.
func (r MockTestResult) IsCompleted() bool {
	return r.Status == ResultStatusCompleted
}
