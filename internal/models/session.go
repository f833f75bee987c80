package models

import "time"

// MockTestSession tracks one user's attempt at a mock test from start to final scoring.
type MockTestSession struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	MockTestID       uint       `gorm:"not null;index:idx_sessions_test_user" json:"mock_test_id"`
	UserID           uint       `gorm:"not null;index:idx_sessions_test_user;index:idx_sessions_user_status" json:"user_id"`
	Status           string     `gorm:"size:32;not null;index:idx_sessions_user_status" json:"status"`
	TotalMarks       float64    `gorm:"type:numeric(10,2);not null;default:90" json:"total_marks"`
	PassMarks        float64    `gorm:"type:numeric(10,2);not null;default:63" json:"pass_marks"`
	TotalScore       float64    `gorm:"type:numeric(10,2);not null;default:0" json:"total_score"`
	Passed           bool       `gorm:"not null;default:false" json:"passed"`
	CompletedSeconds int        `gorm:"not null;default:0" json:"completed_seconds"`
	StartedAt        time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

const (
	// SessionStatusInProgress indicates the session still accepts segment submissions.
	SessionStatusInProgress = "in_progress"
	// SessionStatusCompleted is terminal; set by the final-result compiler.
	SessionStatusCompleted = "completed"
)

// IsInProgress reports whether segment submissions are still accepted.
func (s MockTestSession) IsInProgress() bool {
	return s.Status == SessionStatusInProgress
}

// OwnedBy reports whether the given user started this session.
func (s MockTestSession) OwnedBy(userID uint) bool {
	return s.UserID == userID
}
