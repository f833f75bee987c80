package dto

import (
	"time"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/models"
)

// IncrementTimeRequest adds elapsed seconds to a session's duration counter.
type IncrementTimeRequest struct {
	UserID  uint `json:"userId" validate:"required,gt=0"`
	Seconds int  `json:"seconds" validate:"required,gt=0"`
}

// SessionTimeResponse reports one session's accumulated duration.
type SessionTimeResponse struct {
	MockTestSessionID uint       `json:"mockTestSessionId"`
	UserID            uint       `json:"userId"`
	MockTestID        uint       `json:"mockTestId"`
	Status            string     `json:"status"`
	CompletedSeconds  int        `json:"completedSeconds"`
	AddedSeconds      int        `json:"addedSeconds,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	CompletedAt       *time.Time `json:"completedAt"`
}

// UserTimeResponse aggregates durations across all of a user's sessions.
type UserTimeResponse struct {
	UserID                uint                  `json:"userId"`
	TotalCompletedSeconds int                   `json:"totalCompletedSeconds"`
	Sessions              []SessionTimeResponse `json:"sessions"`
}

// NewSessionTimeResponse maps a session to its duration view.
func NewSessionTimeResponse(session models.MockTestSession) SessionTimeResponse {
	return SessionTimeResponse{
		MockTestSessionID: session.ID,
		UserID:            session.UserID,
		MockTestID:        session.MockTestID,
		Status:            session.Status,
		CompletedSeconds:  session.CompletedSeconds,
		CreatedAt:         session.CreatedAt,
		CompletedAt:       session.CompletedAt,
	}
}
