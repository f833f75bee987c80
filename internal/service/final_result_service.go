package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/config"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/dto"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/models"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/observability"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/repository"
	"github.com/ahmedsarwar7575/naati-speaking-api/pkg/ai"
)

const truncationSuffix = "\n...(truncated)"

// FinalResultService compiles the session-level result once every segment is
// scored, applying the nested pass rule and flipping the session to completed.
type FinalResultService interface {
	Compute(ctx context.Context, sessionID, userID uint) (dto.FinalResultResponse, error)
}

type finalResultService struct {
	store  *repository.Store
	speech ai.SpeechService
	events *EventPublisher
	cache  *ProgressCache
	cfg    config.MockTestConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewFinalResultService constructs the final-result compiler.
func NewFinalResultService(store *repository.Store, speech ai.SpeechService, events *EventPublisher, cache *ProgressCache, cfg config.MockTestConfig, logger zerolog.Logger) FinalResultService {
	return &finalResultService{
		store:  store,
		speech: speech,
		events: events,
		cache:  cache,
		cfg:    cfg,
		logger: logger.With().Str("component", "final_result_service").Logger(),
		now:    time.Now,
	}
}

// Compute is idempotent: a completed session returns its stored final result
// unchanged. Otherwise it verifies every ledger row is completed, sums the
// per-dialogue marks, generates overall feedback and upserts the final row
// while flipping the session in one transaction.
func (s *finalResultService) Compute(ctx context.Context, sessionID, userID uint) (dto.FinalResultResponse, error) {
	tracer := otel.Tracer("github.com/ahmedsarwar7575/naati-speaking-api/internal/service/final_result")
	ctx, span := tracer.Start(ctx, "mocktest.final_result.compute")
	span.SetAttributes(
		attribute.Int64("mocktest.session_id", int64(sessionID)),
		attribute.Int64("mocktest.user_id", int64(userID)),
	)
	defer span.End()

	session, err := s.store.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FinalResultResponse{}, ErrSessionNotFound
		}
		return dto.FinalResultResponse{}, err
	}
	if !session.OwnedBy(userID) {
		return dto.FinalResultResponse{}, ErrForbidden
	}

	mockTest, err := s.store.Content.GetMockTest(ctx, session.MockTestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FinalResultResponse{}, ErrMockTestNotFound
		}
		return dto.FinalResultResponse{}, err
	}

	results, err := s.store.Results.ListBySession(ctx, sessionID)
	if err != nil {
		return dto.FinalResultResponse{}, err
	}
	orderResults(results, mockTest)

	if !session.IsInProgress() {
		if existing, err := s.store.FinalResults.GetBySession(ctx, sessionID); err == nil {
			return s.buildResponse(session, existing, results), nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FinalResultResponse{}, err
		}
		// Completed session without a stored final result: recompute below.
	}

	if pendingErr := pendingSegments(results); pendingErr != nil {
		span.SetStatus(codes.Error, "segments_pending")
		return dto.FinalResultResponse{}, pendingErr
	}

	dialogue1Score, dialogue2Score := s.dialogueScores(results, mockTest)
	totalScore := Round2(dialogue1Score + dialogue2Score)
	passed := totalScore >= session.PassMarks &&
		dialogue1Score >= s.cfg.DialoguePassMarks &&
		dialogue2Score >= s.cfg.DialoguePassMarks
	averages := rubricAverages(results)

	feedback, err := s.speech.OverallFeedback(ctx, ai.FeedbackInput{
		Averages: averages,
		Notes:    s.feedbackNotes(results, mockTest),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "feedback_failed")
		return dto.FinalResultResponse{}, &UpstreamError{Op: "feedback", Err: err}
	}

	var final models.MockTestFinalResult
	err = s.store.WithinTransaction(ctx, func(tx *repository.Store) error {
		locked, err := tx.Sessions.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if !locked.IsInProgress() {
			// A concurrent compute won the race; its stored row wins.
			if final, err = tx.FinalResults.GetBySession(ctx, sessionID); err == nil {
				session = locked
				return nil
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		final = models.MockTestFinalResult{
			MockTestSessionID: sessionID,
			MockTestID:        session.MockTestID,
			UserID:            session.UserID,
			TotalScore:        totalScore,
			Dialogue1Score:    dialogue1Score,
			Dialogue2Score:    dialogue2Score,
			OutOf:             session.TotalMarks,
			PassMarks:         session.PassMarks,
			PerDialogueOutOf:  s.cfg.DialogueMarks,
			PerDialoguePass:   s.cfg.DialoguePassMarks,
			Passed:            passed,
			Averages:          toJSONMap(averages),
			OverallFeedback:   feedback,
			ComputedAt:        s.now(),
		}
		if err := tx.FinalResults.Upsert(ctx, &final); err != nil {
			return err
		}
		if final, err = tx.FinalResults.GetBySession(ctx, sessionID); err != nil {
			return err
		}

		completedAt := s.now()
		locked.Status = models.SessionStatusCompleted
		locked.TotalScore = totalScore
		locked.Passed = passed
		locked.CompletedAt = &completedAt
		if err := tx.Sessions.Update(ctx, &locked); err != nil {
			return err
		}
		session = locked

		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compute_failed")
		return dto.FinalResultResponse{}, err
	}

	outcome := "failed"
	if session.Passed {
		outcome = "passed"
	}
	observability.SessionsCompleted().WithLabelValues(outcome).Inc()

	s.cache.Invalidate(ctx, sessionID)
	s.events.SessionCompleted(SessionCompletedEvent{
		MockTestSessionID: sessionID,
		UserID:            session.UserID,
		TotalScore:        session.TotalScore,
		Passed:            session.Passed,
		CompletedAt:       s.now(),
	})

	s.logger.Info().
		Uint("session_id", sessionID).
		Float64("total_score", session.TotalScore).
		Bool("passed", session.Passed).
		Msg("final result computed")

	return s.buildResponse(session, final, results), nil
}

func (s *finalResultService) buildResponse(session models.MockTestSession, final models.MockTestFinalResult, results []models.MockTestResult) dto.FinalResultResponse {
	averages := make(map[string]float64, len(final.Averages))
	for key, value := range final.Averages {
		if number, ok := value.(float64); ok {
			averages[key] = number
		}
	}

	return dto.FinalResultResponse{
		Session:     dto.NewSessionResponse(session),
		FinalResult: dto.NewFinalResultRow(final),
		Summary: dto.FinalSummary{
			TotalScore: final.TotalScore,
			OutOf:      final.OutOf,
			PassMarks:  final.PassMarks,
			PerDialogue: dto.PerDialogueSummary{
				OutOf:          final.PerDialogueOutOf,
				PassAtLeast:    final.PerDialoguePass,
				Dialogue1Score: final.Dialogue1Score,
				Dialogue2Score: final.Dialogue2Score,
			},
			Passed:          final.Passed,
			Averages:        averages,
			OverallFeedback: final.OverallFeedback,
		},
		Results: dto.NewResultResponseSlice(results),
	}
}

func (s *finalResultService) dialogueScores(results []models.MockTestResult, mockTest models.MockTest) (float64, float64) {
	var dialogue1, dialogue2 float64
	for _, result := range results {
		if result.DialogueID == mockTest.DialogueID {
			dialogue1 += result.ObtainedMarks
		} else {
			dialogue2 += result.ObtainedMarks
		}
	}
	return Round2(dialogue1), Round2(dialogue2)
}

// feedbackNotes digests the per-segment one-line feedback for the overall
// feedback prompt, capped so a long session cannot blow the prompt budget.
func (s *finalResultService) feedbackNotes(results []models.MockTestResult, mockTest models.MockTest) string {
	var b strings.Builder
	for _, result := range results {
		if result.OneLineFeedback == "" {
			continue
		}
		dialogue := 1
		if result.DialogueID == mockTest.DialogueID2 {
			dialogue = 2
		}
		fmt.Fprintf(&b, "Dialogue %d segment %d: %s\n", dialogue, result.SegmentOrder, result.OneLineFeedback)
	}

	notes := strings.TrimRight(b.String(), "\n")
	if limit := s.cfg.FeedbackNotesLimit; limit > 0 && len(notes) > limit {
		notes = notes[:limit] + truncationSuffix
	}
	return notes
}

func pendingSegments(results []models.MockTestResult) error {
	var pendingIDs []uint
	for _, result := range results {
		if !result.IsCompleted() {
			pendingIDs = append(pendingIDs, result.SegmentID)
		}
	}
	if len(pendingIDs) == 0 {
		return nil
	}

	return &PendingSegmentsError{
		SegmentIDs: pendingIDs,
		Progress: dto.Progress{
			TotalSegments:     len(results),
			CompletedSegments: len(results) - len(pendingIDs),
			PendingSegments:   len(pendingIDs),
		},
	}
}

// rubricAverages computes the mean of each rubric column across all segments,
// keyed the way the scoring oracle names them.
func rubricAverages(results []models.MockTestResult) map[string]float64 {
	if len(results) == 0 {
		return map[string]float64{}
	}

	sums := map[string]float64{}
	for _, result := range results {
		sums["accuracy_score"] += result.AccuracyScore
		sums["language_quality_score"] += result.LanguageQualityScore
		sums["fluency_pronunciation_score"] += result.FluencyPronunciationScore
		sums["delivery_coherence_score"] += result.DeliveryCoherenceScore
		sums["cultural_context_score"] += result.CulturalContextScore
		sums["response_management_score"] += result.ResponseManagementScore
		sums["total_raw_score"] += result.TotalRawScore
		sums["final_score"] += result.FinalScore
	}

	averages := make(map[string]float64, len(sums))
	for key, sum := range sums {
		averages[key] = Round2(sum / float64(len(results)))
	}
	return averages
}

func toJSONMap(values map[string]float64) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(values))
	for key, value := range values {
		out[key] = value
	}
	return out
}
