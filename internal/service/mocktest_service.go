package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/config"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/dto"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/models"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/observability"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/repository"
)

// MockTestService starts sessions and reports their progress.
type MockTestService interface {
	Start(ctx context.Context, payload dto.StartMockTestRequest) (dto.StartMockTestResponse, error)
	Progress(ctx context.Context, sessionID, userID uint) (dto.SessionProgressResponse, error)
}

type mockTestService struct {
	store     *repository.Store
	cache     *ProgressCache
	validator *validator.Validate
	cfg       config.MockTestConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewMockTestService constructs the session service.
func NewMockTestService(store *repository.Store, cache *ProgressCache, validator *validator.Validate, cfg config.MockTestConfig, logger zerolog.Logger) MockTestService {
	return &mockTestService{
		store:     store,
		cache:     cache,
		validator: validator,
		cfg:       cfg,
		logger:    logger.With().Str("component", "mock_test_service").Logger(),
		now:       time.Now,
	}
}

// Start validates the exam definition, opens an in_progress session and seeds
// one pending ledger row per segment with its exact share of the dialogue
// marks. Everything happens in one transaction so a failed seed leaves no
// half-started session behind.
func (s *mockTestService) Start(ctx context.Context, payload dto.StartMockTestRequest) (dto.StartMockTestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.StartMockTestResponse{}, err
	}

	var (
		session   models.MockTestSession
		mockTest  models.MockTest
		dialogues []models.Dialogue
		segments1 []models.Segment
		segments2 []models.Segment
		results   []models.MockTestResult
	)

	err := s.store.WithinTransaction(ctx, func(tx *repository.Store) error {
		var err error
		mockTest, err = tx.Content.GetMockTest(ctx, payload.MockTestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMockTestNotFound
			}
			return err
		}

		if !mockTest.HasDistinctDialogues() {
			return ErrMockTestMisconfigured
		}

		dialogues, err = tx.Content.GetDialogues(ctx, []uint{mockTest.DialogueID, mockTest.DialogueID2})
		if err != nil {
			return err
		}
		if len(dialogues) != 2 {
			return ErrDialogueNotFound
		}

		segments1, err = tx.Content.ListSegments(ctx, mockTest.DialogueID)
		if err != nil {
			return err
		}
		segments2, err = tx.Content.ListSegments(ctx, mockTest.DialogueID2)
		if err != nil {
			return err
		}
		if len(segments1) == 0 || len(segments2) == 0 {
			return ErrSegmentsMissing
		}

		totalMarks := mockTest.TotalMarks
		if totalMarks <= 0 {
			totalMarks = s.cfg.TotalMarks
		}
		passMarks := mockTest.PassMarks
		if passMarks <= 0 {
			passMarks = s.cfg.PassMarks
		}

		session = models.MockTestSession{
			MockTestID: mockTest.ID,
			UserID:     payload.UserID,
			Status:     models.SessionStatusInProgress,
			TotalMarks: totalMarks,
			PassMarks:  passMarks,
			StartedAt:  s.now(),
		}
		if err := tx.Sessions.Create(ctx, &session); err != nil {
			return err
		}

		results = append(
			s.pendingRows(session, mockTest, segments1),
			s.pendingRows(session, mockTest, segments2)...,
		)

		return tx.Results.BulkCreate(ctx, results)
	})
	if err != nil {
		return dto.StartMockTestResponse{}, err
	}

	observability.SessionsStarted().Inc()
	s.logger.Info().
		Uint("session_id", session.ID).
		Uint("mock_test_id", mockTest.ID).
		Uint("user_id", payload.UserID).
		Int("segments", len(results)).
		Msg("mock test session started")

	durationSeconds := mockTest.DurationSeconds
	if durationSeconds <= 0 {
		durationSeconds = s.cfg.DefaultDurationSecs
	}

	segments := append(append([]models.Segment{}, segments1...), segments2...)

	return dto.StartMockTestResponse{
		Session:   dto.NewSessionResponse(session),
		MockTest:  dto.NewMockTestResponse(mockTest),
		Dialogues: dto.NewDialogueResponseSlice(orderDialogues(dialogues, mockTest)),
		Segments:  dto.NewSegmentResponseSlice(segments),
		Results:   dto.NewResultResponseSlice(results),
		Progress: dto.Progress{
			TotalSegments:   len(results),
			PendingSegments: len(results),
		},
		PassRule:        s.passRule(session),
		DurationSeconds: durationSeconds,
	}, nil
}

// Progress reports the session's segment completion, serving from cache when
// the view is fresh.
func (s *mockTestService) Progress(ctx context.Context, sessionID, userID uint) (dto.SessionProgressResponse, error) {
	session, err := s.store.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionProgressResponse{}, ErrSessionNotFound
		}
		return dto.SessionProgressResponse{}, err
	}
	if !session.OwnedBy(userID) {
		return dto.SessionProgressResponse{}, ErrForbidden
	}

	if cached, ok := s.cache.Get(ctx, sessionID); ok {
		return cached, nil
	}

	mockTest, err := s.store.Content.GetMockTest(ctx, session.MockTestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionProgressResponse{}, ErrMockTestNotFound
		}
		return dto.SessionProgressResponse{}, err
	}

	results, err := s.store.Results.ListBySession(ctx, sessionID)
	if err != nil {
		return dto.SessionProgressResponse{}, err
	}
	orderResults(results, mockTest)

	var completed, pending []models.MockTestResult
	for _, result := range results {
		if result.IsCompleted() {
			completed = append(completed, result)
		} else {
			pending = append(pending, result)
		}
	}

	response := dto.SessionProgressResponse{
		Session: dto.NewSessionResponse(session),
		Progress: dto.Progress{
			TotalSegments:     len(results),
			CompletedSegments: len(completed),
			PendingSegments:   len(pending),
		},
		CompletedSegments: dto.NewResultResponseSlice(completed),
		PendingSegments:   dto.NewResultResponseSlice(pending),
	}
	if len(response.PendingSegments) > 0 {
		response.NextSegment = &response.PendingSegments[0]
	}

	s.cache.Set(ctx, sessionID, response)

	return response, nil
}

// pendingRows seeds the ledger for one dialogue: the dialogue marks are
// distributed penny-exactly across its segments, so the per-dialogue sum is
// exact no matter the segment count.
func (s *mockTestService) pendingRows(session models.MockTestSession, mockTest models.MockTest, segments []models.Segment) []models.MockTestResult {
	shares := DistributeMarks(s.cfg.DialogueMarks, len(segments))
	rows := make([]models.MockTestResult, 0, len(segments))
	for i, segment := range segments {
		rows = append(rows, models.MockTestResult{
			MockTestSessionID: session.ID,
			MockTestID:        mockTest.ID,
			UserID:            session.UserID,
			DialogueID:        segment.DialogueID,
			SegmentID:         segment.ID,
			SegmentOrder:      segment.SegmentOrder,
			Status:            models.ResultStatusPending,
			MaxMarks:          shares[i],
		})
	}
	return rows
}

func (s *mockTestService) passRule(session models.MockTestSession) dto.PassRule {
	return dto.PassRule{
		Total: dto.Threshold{
			OutOf:       session.TotalMarks,
			PassAtLeast: session.PassMarks,
		},
		PerDialogue: dto.Threshold{
			OutOf:       s.cfg.DialogueMarks,
			PassAtLeast: s.cfg.DialoguePassMarks,
		},
	}
}

// orderDialogues returns the dialogues in exam order, first dialogue first.
func orderDialogues(dialogues []models.Dialogue, mockTest models.MockTest) []models.Dialogue {
	ordered := make([]models.Dialogue, 0, len(dialogues))
	for _, id := range []uint{mockTest.DialogueID, mockTest.DialogueID2} {
		for _, dialogue := range dialogues {
			if dialogue.ID == id {
				ordered = append(ordered, dialogue)
			}
		}
	}
	return ordered
}

// orderResults sorts ledger rows into exam order: all of dialogue one before
// dialogue two, each by segment order. Dialogue ids carry no ordering of
// their own, so the rank comes from the exam definition.
func orderResults(results []models.MockTestResult, mockTest models.MockTest) {
	rank := func(dialogueID uint) int {
		if dialogueID == mockTest.DialogueID {
			return 0
		}
		return 1
	}

	sort.SliceStable(results, func(i, j int) bool {
		if rank(results[i].DialogueID) != rank(results[j].DialogueID) {
			return rank(results[i].DialogueID) < rank(results[j].DialogueID)
		}
		return results[i].SegmentOrder < results[j].SegmentOrder
	})
}
