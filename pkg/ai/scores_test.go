package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSegmentScoresNormalizesPayload(t *testing.T) {
	payload := []byte(`{
		"accuracy_score": 14,
		"accuracy_feedback": "mostly faithful",
		"language_quality_score": 12,
		"language_quality_feedback": "strong vocabulary",
		"fluency_pronunciation_score": 7.5,
		"fluency_pronunciation_feedback": "minor hesitations",
		"delivery_coherence_score": -1,
		"delivery_coherence_feedback": "disjointed at times",
		"cultural_context_score": 4,
		"cultural_context_feedback": "handled register well",
		"response_management_score": 2,
		"response_management_feedback": "kept turns tight",
		"one_line_feedback": "confident performance"
	}`)

	scores, err := ParseSegmentScores(payload)
	require.NoError(t, err)

	// 12 exceeds the language quality ceiling of 10 and -1 clamps to 0.
	require.Equal(t, 10.0, scores.LanguageQualityScore)
	require.Equal(t, 0.0, scores.DeliveryCoherenceScore)
	require.Equal(t, 14.0, scores.AccuracyScore)
	require.Equal(t, 14+10+7.5+0+4+2.0, scores.TotalRawScore)
	require.Equal(t, scores.TotalRawScore, scores.FinalScore)
	require.Equal(t, "confident performance", scores.OneLineFeedback)
}

func TestParseSegmentScoresRejectsMissingFields(t *testing.T) {
	_, err := ParseSegmentScores([]byte(`{"accuracy_score": 10}`))
	require.Error(t, err)
}

func TestParseSegmentScoresRejectsMalformedJSON(t *testing.T) {
	_, err := ParseSegmentScores([]byte(`{"accuracy_score":`))
	require.Error(t, err)
}

func TestNormalizeScoresAppliesFloor(t *testing.T) {
	scores := NormalizeScores(SegmentScores{
		AccuracyScore:        1,
		LanguageQualityScore: 0.5,
	})

	require.Equal(t, 1.5, scores.TotalRawScore)
	require.Equal(t, float64(MinFinalScore), scores.FinalScore)
}

func TestNormalizeScoresClampsEveryRubricCeiling(t *testing.T) {
	scores := NormalizeScores(SegmentScores{
		AccuracyScore:             99,
		LanguageQualityScore:      99,
		FluencyPronunciationScore: 99,
		DeliveryCoherenceScore:    99,
		CulturalContextScore:      99,
		ResponseManagementScore:   99,
	})

	require.Equal(t, float64(MaxAccuracyScore), scores.AccuracyScore)
	require.Equal(t, float64(MaxLanguageQualityScore), scores.LanguageQualityScore)
	require.Equal(t, float64(MaxFluencyPronunciationScore), scores.FluencyPronunciationScore)
	require.Equal(t, float64(MaxDeliveryCoherenceScore), scores.DeliveryCoherenceScore)
	require.Equal(t, float64(MaxCulturalContextScore), scores.CulturalContextScore)
	require.Equal(t, float64(MaxResponseManagementScore), scores.ResponseManagementScore)
	require.Equal(t, float64(MaxSegmentScore), scores.TotalRawScore)
	require.Equal(t, float64(MaxSegmentScore), scores.FinalScore)
}
