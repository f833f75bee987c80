package ai

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Rubric ceilings. The six sub-scores sum to at most 45 per segment.
const (
	MaxAccuracyScore             = 15
	MaxLanguageQualityScore      = 10
	MaxFluencyPronunciationScore = 8
	MaxDeliveryCoherenceScore    = 5
	MaxCulturalContextScore      = 4
	MaxResponseManagementScore   = 3

	// MaxSegmentScore is the rubric total per segment.
	MaxSegmentScore = 45
	// MinFinalScore floors every scored attempt: no attempt scores below 5/45.
	MinFinalScore = 5
)

const scoreSchemaJSON = `{
	"type": "object",
	"required": [
		"accuracy_score", "accuracy_feedback",
		"language_quality_score", "language_quality_feedback",
		"fluency_pronunciation_score", "fluency_pronunciation_feedback",
		"delivery_coherence_score", "delivery_coherence_feedback",
		"cultural_context_score", "cultural_context_feedback",
		"response_management_score", "response_management_feedback",
		"one_line_feedback"
	],
	"properties": {
		"accuracy_score": {"type": "number"},
		"accuracy_feedback": {"type": "string"},
		"language_quality_score": {"type": "number"},
		"language_quality_feedback": {"type": "string"},
		"fluency_pronunciation_score": {"type": "number"},
		"fluency_pronunciation_feedback": {"type": "string"},
		"delivery_coherence_score": {"type": "number"},
		"delivery_coherence_feedback": {"type": "string"},
		"cultural_context_score": {"type": "number"},
		"cultural_context_feedback": {"type": "string"},
		"response_management_score": {"type": "number"},
		"response_management_feedback": {"type": "string"},
		"one_line_feedback": {"type": "string"}
	}
}`

var scoreSchema = jsonschema.MustCompileString("segment_scores.json", scoreSchemaJSON)

// ParseSegmentScores validates the oracle's JSON payload against the rubric
// schema and returns the normalized scores. Malformed or non-schema payloads
// fail the whole submission; no partial score is ever produced.
func ParseSegmentScores(payload []byte) (SegmentScores, error) {
	var document interface{}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(&document); err != nil {
		return SegmentScores{}, fmt.Errorf("decode score payload: %w", err)
	}

	if err := scoreSchema.Validate(document); err != nil {
		return SegmentScores{}, fmt.Errorf("score payload does not match rubric schema: %w", err)
	}

	var raw SegmentScores
	if err := json.Unmarshal(payload, &raw); err != nil {
		return SegmentScores{}, fmt.Errorf("unmarshal score payload: %w", err)
	}

	return NormalizeScores(raw), nil
}

// NormalizeScores clamps each sub-score into its rubric range, derives the
// raw total and applies the floor-of-5 final score.
func NormalizeScores(raw SegmentScores) SegmentScores {
	scores := raw
	scores.AccuracyScore = clamp(raw.AccuracyScore, 0, MaxAccuracyScore)
	scores.LanguageQualityScore = clamp(raw.LanguageQualityScore, 0, MaxLanguageQualityScore)
	scores.FluencyPronunciationScore = clamp(raw.FluencyPronunciationScore, 0, MaxFluencyPronunciationScore)
	scores.DeliveryCoherenceScore = clamp(raw.DeliveryCoherenceScore, 0, MaxDeliveryCoherenceScore)
	scores.CulturalContextScore = clamp(raw.CulturalContextScore, 0, MaxCulturalContextScore)
	scores.ResponseManagementScore = clamp(raw.ResponseManagementScore, 0, MaxResponseManagementScore)

	scores.TotalRawScore = scores.AccuracyScore +
		scores.LanguageQualityScore +
		scores.FluencyPronunciationScore +
		scores.DeliveryCoherenceScore +
		scores.CulturalContextScore +
		scores.ResponseManagementScore

	scores.FinalScore = scores.TotalRawScore
	if scores.FinalScore < MinFinalScore {
		scores.FinalScore = MinFinalScore
	}

	return scores
}

func clamp(n, min, max float64) float64 {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
