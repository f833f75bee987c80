package dto

import (
	"time"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/models"
)

// FinalResultRow serializes the persisted final-result record.
type FinalResultRow struct {
	ID                uint                   `json:"id"`
	MockTestSessionID uint                   `json:"mockTestSessionId"`
	MockTestID        uint                   `json:"mockTestId"`
	UserID            uint                   `json:"userId"`
	TotalScore        float64                `json:"totalScore"`
	Dialogue1Score    float64                `json:"dialogue1Score"`
	Dialogue2Score    float64                `json:"dialogue2Score"`
	OutOf             float64                `json:"outOf"`
	PassMarks         float64                `json:"passMarks"`
	PerDialogueOutOf  float64                `json:"perDialogueOutOf"`
	PerDialoguePass   float64                `json:"perDialoguePass"`
	Passed            bool                   `json:"passed"`
	Averages          map[string]interface{} `json:"averages"`
	OverallFeedback   string                 `json:"overallFeedback"`
	ComputedAt        time.Time              `json:"computedAt"`
}

// PerDialogueSummary breaks the final score down by dialogue.
type PerDialogueSummary struct {
	OutOf          float64 `json:"outOf"`
	PassAtLeast    float64 `json:"passAtLeast"`
	Dialogue1Score float64 `json:"dialogue1Score"`
	Dialogue2Score float64 `json:"dialogue2Score"`
}

// FinalSummary is the client-facing recap of a computed final result.
type FinalSummary struct {
	TotalScore      float64            `json:"totalScore"`
	OutOf           float64            `json:"outOf"`
	PassMarks       float64            `json:"passMarks"`
	PerDialogue     PerDialogueSummary `json:"perDialogue"`
	Passed          bool               `json:"passed"`
	Averages        map[string]float64 `json:"averages"`
	OverallFeedback string             `json:"overallFeedback"`
}

// FinalResultResponse is returned by the final-result endpoint.
type FinalResultResponse struct {
	Session     SessionResponse  `json:"session"`
	FinalResult FinalResultRow   `json:"finalResult"`
	Summary     FinalSummary     `json:"summary"`
	Results     []ResultResponse `json:"results"`
}

// NewFinalResultRow maps the final-result model to its response shape.
func NewFinalResultRow(result models.MockTestFinalResult) FinalResultRow {
	return FinalResultRow{
		ID:                result.ID,
		MockTestSessionID: result.MockTestSessionID,
		MockTestID:        result.MockTestID,
		UserID:            result.UserID,
		TotalScore:        result.TotalScore,
		Dialogue1Score:    result.Dialogue1Score,
		Dialogue2Score:    result.Dialogue2Score,
		OutOf:             result.OutOf,
		PassMarks:         result.PassMarks,
		PerDialogueOutOf:  result.PerDialogueOutOf,
		PerDialoguePass:   result.PerDialoguePass,
		Passed:            result.Passed,
		Averages:          result.Averages,
		OverallFeedback:   result.OverallFeedback,
		ComputedAt:        result.ComputedAt,
	}
}
