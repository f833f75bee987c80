package dto

import (
	"time"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/models"
	"github.com/ahmedsarwar7575/naati-speaking-api/pkg/ai"
)

// SubmitSegmentRequest is the multipart payload for one segment submission.
// The audio file itself travels as the "userAudio" form file.
type SubmitSegmentRequest struct {
	UserID            uint   `form:"userId" validate:"required,gt=0"`
	MockTestSessionID uint   `form:"mockTestSessionId" validate:"required,gt=0"`
	SegmentID         uint   `form:"segmentId" validate:"required,gt=0"`
	Language          string `form:"language"`
	AudioURL          string `form:"audioUrl"`
	SuggestedAudioURL string `form:"suggestedAudioUrl"`
}

// ScoreBreakdownResponse serializes the rubric outcome shared by ledger rows
// and attempt history rows.
type ScoreBreakdownResponse struct {
	AudioURL                  string  `json:"audioUrl"`
	UserTranscription         string  `json:"userTranscription"`
	AccuracyScore             float64 `json:"accuracyScore"`
	AccuracyText              string  `json:"accuracyText"`
	LanguageQualityScore      float64 `json:"languageQualityScore"`
	LanguageQualityText       string  `json:"languageQualityText"`
	FluencyPronunciationScore float64 `json:"fluencyPronunciationScore"`
	FluencyPronunciationText  string  `json:"fluencyPronunciationText"`
	DeliveryCoherenceScore    float64 `json:"deliveryCoherenceScore"`
	DeliveryCoherenceText     string  `json:"deliveryCoherenceText"`
	CulturalContextScore      float64 `json:"culturalContextScore"`
	CulturalContextText       string  `json:"culturalContextText"`
	ResponseManagementScore   float64 `json:"responseManagementScore"`
	ResponseManagementText    string  `json:"responseManagementText"`
	TotalRawScore             float64 `json:"totalRawScore"`
	FinalScore                float64 `json:"finalScore"`
	OneLineFeedback           string  `json:"oneLineFeedback"`
	Language                  string  `json:"language"`
}

// ResultResponse serializes one ledger row.
type ResultResponse struct {
	ID                uint    `json:"id"`
	MockTestSessionID uint    `json:"mockTestSessionId"`
	MockTestID        uint    `json:"mockTestId"`
	UserID            uint    `json:"userId"`
	DialogueID        uint    `json:"dialogueId"`
	SegmentID         uint    `json:"segmentId"`
	SegmentOrder      int     `json:"segmentOrder"`
	Status            string  `json:"status"`
	MaxMarks          float64 `json:"maxMarks"`
	ObtainedMarks     float64 `json:"obtainedMarks"`
	RepeatCount       int     `json:"repeatCount"`
	ScoreBreakdownResponse
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AttemptResponse serializes one history row.
type AttemptResponse struct {
	ID                uint   `json:"id"`
	MockTestSessionID uint   `json:"mockTestSessionId"`
	MockTestID        uint   `json:"mockTestId"`
	UserID            uint   `json:"userId"`
	DialogueID        uint   `json:"dialogueId"`
	SegmentID         uint   `json:"segmentId"`
	Status            string `json:"status"`
	RepeatCount       int    `json:"repeatCount"`
	ScoreBreakdownResponse
	CreatedAt time.Time `json:"createdAt"`
}

// TranscriptsResponse echoes the transcripts produced while scoring.
type TranscriptsResponse struct {
	ReferenceTranscript string `json:"referenceTranscript"`
	SuggestedTranscript string `json:"suggestedTranscript"`
	StudentTranscript   string `json:"studentTranscript"`
	CombinedTranscript  string `json:"combinedTranscript"`
}

// SubmitSegmentResponse is returned after one segment is scored.
type SubmitSegmentResponse struct {
	Attempt           AttemptResponse     `json:"attempt"`
	Result            ResultResponse      `json:"result"`
	ObtainedMarks     float64             `json:"obtainedMarks"`
	MaxMarks          float64             `json:"maxMarks"`
	SegmentID         uint                `json:"segmentId"`
	MockTestSessionID uint                `json:"mockTestSessionId"`
	Transcripts       TranscriptsResponse `json:"transcripts"`
	Scores            ai.SegmentScores    `json:"scores"`
	Progress          Progress            `json:"progress"`
	NextSegmentID     *uint               `json:"nextSegmentId"`
}

func newScoreBreakdownResponse(breakdown models.ScoreBreakdown) ScoreBreakdownResponse {
	return ScoreBreakdownResponse{
		AudioURL:                  breakdown.AudioURL,
		UserTranscription:         breakdown.UserTranscription,
		AccuracyScore:             breakdown.AccuracyScore,
		AccuracyText:              breakdown.AccuracyText,
		LanguageQualityScore:      breakdown.LanguageQualityScore,
		LanguageQualityText:       breakdown.LanguageQualityText,
		FluencyPronunciationScore: breakdown.FluencyPronunciationScore,
		FluencyPronunciationText:  breakdown.FluencyPronunciationText,
		DeliveryCoherenceScore:    breakdown.DeliveryCoherenceScore,
		DeliveryCoherenceText:     breakdown.DeliveryCoherenceText,
		CulturalContextScore:      breakdown.CulturalContextScore,
		CulturalContextText:       breakdown.CulturalContextText,
		ResponseManagementScore:   breakdown.ResponseManagementScore,
		ResponseManagementText:    breakdown.ResponseManagementText,
		TotalRawScore:             breakdown.TotalRawScore,
		FinalScore:                breakdown.FinalScore,
		OneLineFeedback:           breakdown.OneLineFeedback,
		Language:                  breakdown.Language,
	}
}

// NewResultResponse maps a ledger row to its response shape.
func NewResultResponse(result models.MockTestResult) ResultResponse {
	return ResultResponse{
		ID:                     result.ID,
		MockTestSessionID:      result.MockTestSessionID,
		MockTestID:             result.MockTestID,
		UserID:                 result.UserID,
		DialogueID:             result.DialogueID,
		SegmentID:              result.SegmentID,
		SegmentOrder:           result.SegmentOrder,
		Status:                 result.Status,
		MaxMarks:               result.MaxMarks,
		ObtainedMarks:          result.ObtainedMarks,
		RepeatCount:            result.RepeatCount,
		ScoreBreakdownResponse: newScoreBreakdownResponse(result.ScoreBreakdown),
		CreatedAt:              result.CreatedAt,
		UpdatedAt:              result.UpdatedAt,
	}
}

// NewResultResponseSlice maps ledger rows to their response shape.
func NewResultResponseSlice(results []models.MockTestResult) []ResultResponse {
	responses := make([]ResultResponse, 0, len(results))
	for _, result := range results {
		responses = append(responses, NewResultResponse(result))
	}
	return responses
}

// NewAttemptResponse maps a history row to its response shape.
func NewAttemptResponse(attempt models.MockTestAttempt) AttemptResponse {
	return AttemptResponse{
		ID:                     attempt.ID,
		MockTestSessionID:      attempt.MockTestSessionID,
		MockTestID:             attempt.MockTestID,
		UserID:                 attempt.UserID,
		DialogueID:             attempt.DialogueID,
		SegmentID:              attempt.SegmentID,
		Status:                 attempt.Status,
		RepeatCount:            attempt.RepeatCount,
		ScoreBreakdownResponse: newScoreBreakdownResponse(attempt.ScoreBreakdown),
		CreatedAt:              attempt.CreatedAt,
	}
}
