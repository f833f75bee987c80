package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/config"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/dto"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/models"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/observability"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/repository"
	"github.com/ahmedsarwar7575/naati-speaking-api/pkg/ai"
)

// ErrAudioMissing indicates the submission carried no audio file.
var ErrAudioMissing = errors.New("user audio file is required")

// ErrUnsupportedAudio indicates the uploaded file is not an audio format.
var ErrUnsupportedAudio = errors.New("uploaded file is not audio")

// ErrSubmitConflict indicates a concurrent submission for the same segment
// won the race; the client can simply resubmit.
var ErrSubmitConflict = errors.New("segment submission conflicted with a concurrent attempt")

// UploadedAudio is the student's recording as received from the request.
type UploadedAudio struct {
	FileName string
	Data     []byte
}

// AudioUploader stores a recording under a key and returns its public URL.
type AudioUploader interface {
	UploadAudio(ctx context.Context, key string, reader io.Reader) (string, error)
}

// SubmitService scores one segment submission end to end: upload, transcribe,
// score, then persist the attempt and overwrite the ledger row.
type SubmitService interface {
	Submit(ctx context.Context, payload dto.SubmitSegmentRequest, audio UploadedAudio) (dto.SubmitSegmentResponse, error)
}

type submitService struct {
	store     *repository.Store
	speech    ai.SpeechService
	uploader  AudioUploader
	events    *EventPublisher
	cache     *ProgressCache
	validator *validator.Validate
	cfg       config.MockTestConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSubmitService constructs the submission service.
func NewSubmitService(store *repository.Store, speech ai.SpeechService, uploader AudioUploader, events *EventPublisher, cache *ProgressCache, validator *validator.Validate, cfg config.MockTestConfig, logger zerolog.Logger) SubmitService {
	return &submitService{
		store:     store,
		speech:    speech,
		uploader:  uploader,
		events:    events,
		cache:     cache,
		validator: validator,
		cfg:       cfg,
		logger:    logger.With().Str("component", "submit_service").Logger(),
		now:       time.Now,
	}
}

// Submit runs the precondition checks in order, calls the blob store and the
// scoring oracle before opening the transaction, then appends the attempt and
// overwrites the ledger row atomically. Repeats replace the ledger state but
// every attempt survives in history.
func (s *submitService) Submit(ctx context.Context, payload dto.SubmitSegmentRequest, audio UploadedAudio) (dto.SubmitSegmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmitSegmentResponse{}, err
	}
	if len(audio.Data) == 0 {
		return dto.SubmitSegmentResponse{}, ErrAudioMissing
	}

	detected := mimetype.Detect(audio.Data)
	if !strings.HasPrefix(detected.String(), "audio/") && !strings.HasPrefix(detected.String(), "video/") {
		return dto.SubmitSegmentResponse{}, ErrUnsupportedAudio
	}

	session, err := s.store.Sessions.GetByID(ctx, payload.MockTestSessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmitSegmentResponse{}, ErrSessionNotFound
		}
		return dto.SubmitSegmentResponse{}, err
	}
	if !session.OwnedBy(payload.UserID) {
		return dto.SubmitSegmentResponse{}, ErrForbidden
	}
	if !session.IsInProgress() {
		return dto.SubmitSegmentResponse{}, ErrSessionNotInProgress
	}

	mockTest, err := s.store.Content.GetMockTest(ctx, session.MockTestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmitSegmentResponse{}, ErrMockTestNotFound
		}
		return dto.SubmitSegmentResponse{}, err
	}

	segment, err := s.store.Content.GetSegment(ctx, payload.SegmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmitSegmentResponse{}, ErrSegmentNotFound
		}
		return dto.SubmitSegmentResponse{}, err
	}
	if segment.DialogueID != mockTest.DialogueID && segment.DialogueID != mockTest.DialogueID2 {
		return dto.SubmitSegmentResponse{}, ErrSegmentNotInMockTest
	}

	row, err := s.store.Results.GetBySessionSegment(ctx, session.ID, segment.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmitSegmentResponse{}, ErrResultRowMissing
		}
		return dto.SubmitSegmentResponse{}, err
	}

	referenceURL := payload.AudioURL
	if referenceURL == "" {
		referenceURL = segment.AudioURL
	}
	if referenceURL == "" {
		return dto.SubmitSegmentResponse{}, ErrNoReferenceAudio
	}
	suggestedURL := payload.SuggestedAudioURL
	if suggestedURL == "" {
		suggestedURL = segment.SuggestedAudioURL
	}

	maxRepeat, err := s.store.Attempts.MaxRepeatCount(ctx, session.ID, segment.ID)
	if err != nil {
		return dto.SubmitSegmentResponse{}, err
	}
	repeatCount := maxRepeat + 1

	// External calls come before the transaction: a slow or failed upstream
	// must never hold row locks, and a failed submission leaves no partial
	// writes behind.
	key := fmt.Sprintf("users/%d/mock-tests/sessions/%d/segments/%d/attempt-%d",
		payload.UserID, session.ID, segment.ID, repeatCount)
	uploadedURL, err := s.uploader.UploadAudio(ctx, key, bytes.NewReader(audio.Data))
	if err != nil {
		return dto.SubmitSegmentResponse{}, &UpstreamError{Op: "upload", Err: err}
	}

	studentTranscript, err := s.speech.Transcribe(ctx, ai.AudioInput{
		FileName: audio.FileName,
		MimeType: detected.String(),
		Language: payload.Language,
		Data:     audio.Data,
	})
	if err != nil {
		return dto.SubmitSegmentResponse{}, &UpstreamError{Op: "transcription", Err: err}
	}

	referenceTranscript := s.transcribeURL(ctx, referenceURL, payload.Language, "reference")
	suggestedTranscript := ""
	if suggestedURL != "" {
		suggestedTranscript = s.transcribeURL(ctx, suggestedURL, payload.Language, "suggested")
	}

	combined := combineTranscripts(referenceTranscript, suggestedTranscript, studentTranscript)

	scores, err := s.speech.ScoreSegment(ctx, ai.ScoreInput{
		CombinedTranscript: combined,
		Language:           payload.Language,
		ReferenceText:      segment.TextContent,
	})
	if err != nil {
		return dto.SubmitSegmentResponse{}, &UpstreamError{Op: "scoring", Err: err}
	}

	obtained := Round2(Clamp(scores.FinalScore, 0, ai.MaxSegmentScore) / ai.MaxSegmentScore * row.MaxMarks)
	breakdown := scoreBreakdown(scores, uploadedURL, studentTranscript, payload.Language)

	var attempt models.MockTestAttempt
	err = s.store.WithinTransaction(ctx, func(tx *repository.Store) error {
		locked, err := tx.Sessions.GetByIDForUpdate(ctx, session.ID)
		if err != nil {
			return err
		}
		if !locked.IsInProgress() {
			return ErrSessionNotInProgress
		}

		row, err = tx.Results.GetBySessionSegmentForUpdate(ctx, session.ID, segment.ID)
		if err != nil {
			return err
		}

		// A racing submission may have appended an attempt between the
		// pre-upload read and this lock; re-derive the repeat count under
		// the row lock so the unique index stays clean.
		lockedMax, err := tx.Attempts.MaxRepeatCount(ctx, session.ID, segment.ID)
		if err != nil {
			return err
		}
		if lockedMax >= repeatCount {
			repeatCount = lockedMax + 1
		}

		attempt = models.MockTestAttempt{
			MockTestSessionID: session.ID,
			MockTestID:        mockTest.ID,
			UserID:            payload.UserID,
			DialogueID:        segment.DialogueID,
			SegmentID:         segment.ID,
			Status:            models.AttemptStatusScored,
			RepeatCount:       repeatCount,
			ScoreBreakdown:    breakdown,
		}
		if err := tx.Attempts.Create(ctx, &attempt); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSubmitConflict
			}
			return err
		}

		row.Status = models.ResultStatusCompleted
		row.ObtainedMarks = obtained
		row.RepeatCount = repeatCount
		row.ScoreBreakdown = breakdown

		return tx.Results.Update(ctx, &row)
	})
	if err != nil {
		return dto.SubmitSegmentResponse{}, err
	}

	observability.SegmentsScored().Inc()
	if repeatCount > 1 {
		observability.SegmentRepeats().Inc()
	}

	s.cache.Invalidate(ctx, session.ID)
	s.events.SegmentScored(SegmentScoredEvent{
		MockTestSessionID: session.ID,
		SegmentID:         segment.ID,
		UserID:            payload.UserID,
		RepeatCount:       repeatCount,
		ObtainedMarks:     obtained,
		MaxMarks:          row.MaxMarks,
		ScoredAt:          s.now(),
	})

	s.logger.Info().
		Uint("session_id", session.ID).
		Uint("segment_id", segment.ID).
		Int("repeat_count", repeatCount).
		Float64("obtained_marks", obtained).
		Msg("segment scored")

	progress, nextSegmentID, err := s.progressAfterSubmit(ctx, session.ID, mockTest)
	if err != nil {
		return dto.SubmitSegmentResponse{}, err
	}

	return dto.SubmitSegmentResponse{
		Attempt:           dto.NewAttemptResponse(attempt),
		Result:            dto.NewResultResponse(row),
		ObtainedMarks:     obtained,
		MaxMarks:          row.MaxMarks,
		SegmentID:         segment.ID,
		MockTestSessionID: session.ID,
		Transcripts: dto.TranscriptsResponse{
			ReferenceTranscript: referenceTranscript,
			SuggestedTranscript: suggestedTranscript,
			StudentTranscript:   studentTranscript,
			CombinedTranscript:  combined,
		},
		Scores:        scores,
		Progress:      progress,
		NextSegmentID: nextSegmentID,
	}, nil
}

// transcribeURL transcribes a stored recording; a failure degrades scoring
// context rather than failing the submission.
func (s *submitService) transcribeURL(ctx context.Context, url, language, role string) string {
	transcript, err := s.speech.TranscribeURL(ctx, url, language)
	if err != nil {
		s.logger.Warn().Err(err).Str("role", role).Msg("reference transcription failed")
		return ""
	}
	return transcript
}

func (s *submitService) progressAfterSubmit(ctx context.Context, sessionID uint, mockTest models.MockTest) (dto.Progress, *uint, error) {
	results, err := s.store.Results.ListBySession(ctx, sessionID)
	if err != nil {
		return dto.Progress{}, nil, err
	}
	orderResults(results, mockTest)

	progress := dto.Progress{TotalSegments: len(results)}
	var nextSegmentID *uint
	for _, result := range results {
		if result.IsCompleted() {
			progress.CompletedSegments++
			continue
		}
		progress.PendingSegments++
		if nextSegmentID == nil {
			id := result.SegmentID
			nextSegmentID = &id
		}
	}

	return progress, nextSegmentID, nil
}

func combineTranscripts(reference, suggested, student string) string {
	var b strings.Builder
	b.WriteString("SEGMENT:\n")
	b.WriteString("REFERENCE: " + reference + "\n")
	if suggested != "" {
		b.WriteString("SUGGESTED: " + suggested + "\n")
	}
	b.WriteString("STUDENT: " + student)
	return b.String()
}

func scoreBreakdown(scores ai.SegmentScores, audioURL, transcript, language string) models.ScoreBreakdown {
	var aiScores datatypes.JSONMap
	if raw, err := json.Marshal(scores); err == nil {
		_ = json.Unmarshal(raw, &aiScores)
	}

	return models.ScoreBreakdown{
		AudioURL:                  audioURL,
		UserTranscription:         transcript,
		AIScores:                  aiScores,
		AccuracyScore:             scores.AccuracyScore,
		AccuracyText:              scores.AccuracyFeedback,
		LanguageQualityScore:      scores.LanguageQualityScore,
		LanguageQualityText:       scores.LanguageQualityFeedback,
		FluencyPronunciationScore: scores.FluencyPronunciationScore,
		FluencyPronunciationText:  scores.FluencyPronunciationFeedback,
		DeliveryCoherenceScore:    scores.DeliveryCoherenceScore,
		DeliveryCoherenceText:     scores.DeliveryCoherenceFeedback,
		CulturalContextScore:      scores.CulturalContextScore,
		CulturalContextText:       scores.CulturalContextFeedback,
		ResponseManagementScore:   scores.ResponseManagementScore,
		ResponseManagementText:    scores.ResponseManagementFeedback,
		TotalRawScore:             scores.TotalRawScore,
		FinalScore:                scores.FinalScore,
		OneLineFeedback:           scores.OneLineFeedback,
		Language:                  language,
	}
}
