package ai

import "context"

// AudioInput is an audio payload to transcribe.
type AudioInput struct {
	FileName string
	MimeType string
	Language string
	Data     []byte
}

// ScoreInput carries the labeled transcript bundle for one segment attempt.
type ScoreInput struct {
	CombinedTranscript string
	Language           string
	ReferenceText      string
}

// SegmentScores is the normalized rubric outcome for one attempt: six
// clamped sub-scores, their feedback strings, the raw total (max 45) and the
// floored final score.
type SegmentScores struct {
	AccuracyScore                float64 `json:"accuracy_score"`
	AccuracyFeedback             string  `json:"accuracy_feedback"`
	LanguageQualityScore         float64 `json:"language_quality_score"`
	LanguageQualityFeedback      string  `json:"language_quality_feedback"`
	FluencyPronunciationScore    float64 `json:"fluency_pronunciation_score"`
	FluencyPronunciationFeedback string  `json:"fluency_pronunciation_feedback"`
	DeliveryCoherenceScore       float64 `json:"delivery_coherence_score"`
	DeliveryCoherenceFeedback    string  `json:"delivery_coherence_feedback"`
	CulturalContextScore         float64 `json:"cultural_context_score"`
	CulturalContextFeedback      string  `json:"cultural_context_feedback"`
	ResponseManagementScore      float64 `json:"response_management_score"`
	ResponseManagementFeedback   string  `json:"response_management_feedback"`
	TotalRawScore                float64 `json:"total_raw_score"`
	FinalScore                   float64 `json:"final_score"`
	OneLineFeedback              string  `json:"one_line_feedback"`
}

// FeedbackInput feeds the overall-feedback generator after all segments are scored.
type FeedbackInput struct {
	Averages map[string]float64
	Notes    string
}

// SpeechService is the external speech/scoring oracle consumed by the
// mock-test core: transcription, rubric scoring and narrative feedback.
type SpeechService interface {
	Transcribe(ctx context.Context, input AudioInput) (string, error)
	TranscribeURL(ctx context.Context, url, language string) (string, error)
	ScoreSegment(ctx context.Context, input ScoreInput) (SegmentScores, error)
	OverallFeedback(ctx context.Context, input FeedbackInput) (string, error)
}
