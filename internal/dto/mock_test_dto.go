package dto

import (
	"time"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/models"
)

// StartMockTestRequest begins a new mock-test session for a user.
type StartMockTestRequest struct {
	UserID     uint `json:"userId" validate:"required,gt=0"`
	MockTestID uint `json:"mockTestId" validate:"required,gt=0"`
}

// Progress summarises segment completion within a session.
type Progress struct {
	TotalSegments     int `json:"totalSegments"`
	CompletedSegments int `json:"completedSegments"`
	PendingSegments   int `json:"pendingSegments"`
}

// Threshold is one side of the pass rule.
type Threshold struct {
	OutOf       float64 `json:"outOf"`
	PassAtLeast float64 `json:"passAtLeast"`
}

// PassRule describes the nested pass thresholds applied at final compute.
type PassRule struct {
	Total       Threshold `json:"total"`
	PerDialogue Threshold `json:"perDialogue"`
}

// SessionResponse serializes a mock-test session.
type SessionResponse struct {
	ID               uint       `json:"id"`
	MockTestID       uint       `json:"mockTestId"`
	UserID           uint       `json:"userId"`
	Status           string     `json:"status"`
	TotalMarks       float64    `json:"totalMarks"`
	PassMarks        float64    `json:"passMarks"`
	TotalScore       float64    `json:"totalScore"`
	Passed           bool       `json:"passed"`
	CompletedSeconds int        `json:"completedSeconds"`
	StartedAt        time.Time  `json:"startedAt"`
	CompletedAt      *time.Time `json:"completedAt"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// MockTestResponse serializes the exam definition.
type MockTestResponse struct {
	ID              uint    `json:"id"`
	Title           string  `json:"title"`
	LanguageID      uint    `json:"languageId"`
	DialogueID      uint    `json:"dialogueId"`
	DialogueID2     uint    `json:"dialogueId2"`
	DurationSeconds int     `json:"durationSeconds"`
	TotalMarks      float64 `json:"totalMarks"`
	PassMarks       float64 `json:"passMarks"`
}

// DialogueResponse serializes a dialogue.
type DialogueResponse struct {
	ID         uint   `json:"id"`
	LanguageID uint   `json:"languageId"`
	Title      string `json:"title"`
}

// SegmentResponse serializes one spoken turn.
type SegmentResponse struct {
	ID                uint   `json:"id"`
	DialogueID        uint   `json:"dialogueId"`
	SegmentOrder      int    `json:"segmentOrder"`
	TextContent       string `json:"textContent"`
	AudioURL          string `json:"audioUrl"`
	SuggestedAudioURL string `json:"suggestedAudioUrl"`
}

// StartMockTestResponse is returned when a session is created.
type StartMockTestResponse struct {
	Session         SessionResponse    `json:"session"`
	MockTest        MockTestResponse   `json:"mockTest"`
	Dialogues       []DialogueResponse `json:"dialogues"`
	Segments        []SegmentResponse  `json:"segments"`
	Results         []ResultResponse   `json:"results"`
	Progress        Progress           `json:"progress"`
	PassRule        PassRule           `json:"passRule"`
	DurationSeconds int                `json:"durationSeconds"`
}

// SessionProgressResponse is the read-only progress view of a session.
type SessionProgressResponse struct {
	Session           SessionResponse  `json:"session"`
	Progress          Progress         `json:"progress"`
	CompletedSegments []ResultResponse `json:"completedSegments"`
	PendingSegments   []ResultResponse `json:"pendingSegments"`
	NextSegment       *ResultResponse  `json:"nextSegment"`
}

// NewSessionResponse maps a session model to its response shape.
func NewSessionResponse(session models.MockTestSession) SessionResponse {
	return SessionResponse{
		ID:               session.ID,
		MockTestID:       session.MockTestID,
		UserID:           session.UserID,
		Status:           session.Status,
		TotalMarks:       session.TotalMarks,
		PassMarks:        session.PassMarks,
		TotalScore:       session.TotalScore,
		Passed:           session.Passed,
		CompletedSeconds: session.CompletedSeconds,
		StartedAt:        session.StartedAt,
		CompletedAt:      session.CompletedAt,
		CreatedAt:        session.CreatedAt,
		UpdatedAt:        session.UpdatedAt,
	}
}

// NewMockTestResponse maps an exam definition to its response shape.
func NewMockTestResponse(mockTest models.MockTest) MockTestResponse {
	return MockTestResponse{
		ID:              mockTest.ID,
		Title:           mockTest.Title,
		LanguageID:      mockTest.LanguageID,
		DialogueID:      mockTest.DialogueID,
		DialogueID2:     mockTest.DialogueID2,
		DurationSeconds: mockTest.DurationSeconds,
		TotalMarks:      mockTest.TotalMarks,
		PassMarks:       mockTest.PassMarks,
	}
}

// NewDialogueResponseSlice maps dialogues to their response shape.
func NewDialogueResponseSlice(dialogues []models.Dialogue) []DialogueResponse {
	responses := make([]DialogueResponse, 0, len(dialogues))
	for _, dialogue := range dialogues {
		responses = append(responses, DialogueResponse{
			ID:         dialogue.ID,
			LanguageID: dialogue.LanguageID,
			Title:      dialogue.Title,
		})
	}
	return responses
}

// NewSegmentResponseSlice maps segments to their response shape.
func NewSegmentResponseSlice(segments []models.Segment) []SegmentResponse {
	responses := make([]SegmentResponse, 0, len(segments))
	for _, segment := range segments {
		responses = append(responses, SegmentResponse{
			ID:                segment.ID,
			DialogueID:        segment.DialogueID,
			SegmentOrder:      segment.SegmentOrder,
			TextContent:       segment.TextContent,
			AudioURL:          segment.AudioURL,
			SuggestedAudioURL: segment.SuggestedAudioURL,
		})
	}
	return responses
}
