package models

import "time"

// MockTestAttempt is the append-only history: one row per submission,
// 1-based repeat_count per (session, segment). Rows are never updated or
// deleted; the ledger row carries the current state.
type MockTestAttempt struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	MockTestSessionID uint   `gorm:"not null;uniqueIndex:idx_attempts_session_segment_repeat" json:"mock_test_session_id"`
	MockTestID        uint   `gorm:"not null" json:"mock_test_id"`
	UserID            uint   `gorm:"not null;index" json:"user_id"`
	DialogueID        uint   `gorm:"not null" json:"dialogue_id"`
	SegmentID         uint   `gorm:"not null;uniqueIndex:idx_attempts_session_segment_repeat" json:"segment_id"`
	Status            string `gorm:"size:32;not null" json:"status"`
	RepeatCount       int    `gorm:"not null;uniqueIndex:idx_attempts_session_segment_repeat" json:"repeat_count"`
	ScoreBreakdown
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AttemptStatusScored marks an attempt that went through the scoring oracle.
const AttemptStatusScored = "scored"
