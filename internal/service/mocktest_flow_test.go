package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/config"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/dto"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/models"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/repository"
	"github.com/ahmedsarwar7575/naati-speaking-api/pkg/ai"
)

const (
	testUserID     = uint(7)
	testMockTestID = uint(1)
	dialogue1ID    = uint(10)
	dialogue2ID    = uint(11)
)

type fakeSpeech struct {
	scoreQueue    []ai.SegmentScores
	defaultScore  ai.SegmentScores
	feedback      string
	feedbackInput ai.FeedbackInput
	feedbackCalls int
	scoreCalls    int
	onScore       func()
}

func (f *fakeSpeech) Transcribe(_ context.Context, input ai.AudioInput) (string, error) {
	return "student said something in " + input.Language, nil
}

func (f *fakeSpeech) TranscribeURL(_ context.Context, url, _ string) (string, error) {
	return "transcript of " + url, nil
}

func (f *fakeSpeech) ScoreSegment(_ context.Context, _ ai.ScoreInput) (ai.SegmentScores, error) {
	f.scoreCalls++
	if f.onScore != nil {
		f.onScore()
	}
	if len(f.scoreQueue) > 0 {
		next := f.scoreQueue[0]
		f.scoreQueue = f.scoreQueue[1:]
		return next, nil
	}
	return f.defaultScore, nil
}

func (f *fakeSpeech) OverallFeedback(_ context.Context, input ai.FeedbackInput) (string, error) {
	f.feedbackCalls++
	f.feedbackInput = input
	return f.feedback, nil
}

type fakeUploader struct {
	keys []string
}

func (f *fakeUploader) UploadAudio(_ context.Context, key string, _ io.Reader) (string, error) {
	f.keys = append(f.keys, key)
	return "https://cdn.test/" + key, nil
}

type flowFixture struct {
	store    *repository.Store
	db       *gorm.DB
	speech   *fakeSpeech
	uploader *fakeUploader
	sessions MockTestService
	submits  SubmitService
	finals   FinalResultService
	times    SessionTimeService
}

func testConfig() config.MockTestConfig {
	return config.MockTestConfig{
		TotalMarks:          90,
		PassMarks:           63,
		DialogueMarks:       45,
		DialoguePassMarks:   31,
		FeedbackNotesLimit:  12000,
		DefaultDurationSecs: 1200,
	}
}

// perfectScores builds a rubric result with every sub-score at its ceiling.
func perfectScores() ai.SegmentScores {
	return ai.NormalizeScores(ai.SegmentScores{
		AccuracyScore:             ai.MaxAccuracyScore,
		LanguageQualityScore:      ai.MaxLanguageQualityScore,
		FluencyPronunciationScore: ai.MaxFluencyPronunciationScore,
		DeliveryCoherenceScore:    ai.MaxDeliveryCoherenceScore,
		CulturalContextScore:      ai.MaxCulturalContextScore,
		ResponseManagementScore:   ai.MaxResponseManagementScore,
		OneLineFeedback:           "flawless",
	})
}

// scoresWithFinal builds a rubric result whose final score is the given value.
func scoresWithFinal(final float64) ai.SegmentScores {
	scores := perfectScores()
	scores.TotalRawScore = final
	scores.FinalScore = final
	scores.OneLineFeedback = fmt.Sprintf("scored %.1f", final)
	return scores
}

func wavAudio() []byte {
	header := []byte{
		'R', 'I', 'F', 'F', 0x24, 0x08, 0x00, 0x00,
		'W', 'A', 'V', 'E', 'f', 'm', 't', ' ',
		0x10, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
		0x44, 0xac, 0x00, 0x00, 0x88, 0x58, 0x01, 0x00,
		0x02, 0x00, 0x10, 0x00, 'd', 'a', 't', 'a',
		0x00, 0x08, 0x00, 0x00,
	}
	return append(header, make([]byte, 128)...)
}

func setupFlow(t *testing.T) *flowFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.MockTest{},
		&models.Dialogue{},
		&models.Segment{},
		&models.MockTestSession{},
		&models.MockTestResult{},
		&models.MockTestAttempt{},
		&models.MockTestFinalResult{},
	))

	require.NoError(t, db.Create(&models.MockTest{
		ID:              testMockTestID,
		Title:           "Spanish Mock Test 1",
		LanguageID:      3,
		DialogueID:      dialogue1ID,
		DialogueID2:     dialogue2ID,
		DurationSeconds: 1800,
		TotalMarks:      90,
		PassMarks:       63,
	}).Error)
	require.NoError(t, db.Create(&models.Dialogue{ID: dialogue1ID, LanguageID: 3, Title: "At the clinic"}).Error)
	require.NoError(t, db.Create(&models.Dialogue{ID: dialogue2ID, LanguageID: 3, Title: "At the bank"}).Error)

	for i, seg := range []struct {
		id       uint
		dialogue uint
		order    int
	}{
		{100, dialogue1ID, 1},
		{101, dialogue1ID, 2},
		{102, dialogue2ID, 1},
		{103, dialogue2ID, 2},
		{104, dialogue2ID, 3},
	} {
		require.NoError(t, db.Create(&models.Segment{
			ID:           seg.id,
			DialogueID:   seg.dialogue,
			SegmentOrder: seg.order,
			TextContent:  fmt.Sprintf("segment text %d", i+1),
			AudioURL:     fmt.Sprintf("https://cdn.test/reference-%d.mp3", seg.id),
		}).Error)
	}

	store := repository.NewStore(db)
	speech := &fakeSpeech{defaultScore: perfectScores(), feedback: "strong overall performance"}
	uploader := &fakeUploader{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	cache := NewProgressCache(nil, 0, zerolog.Nop())
	events := NewEventPublisher(nil, zerolog.Nop())
	cfg := testConfig()

	return &flowFixture{
		store:    store,
		db:       db,
		speech:   speech,
		uploader: uploader,
		sessions: NewMockTestService(store, cache, validate, cfg, zerolog.Nop()),
		submits:  NewSubmitService(store, speech, uploader, events, cache, validate, cfg, zerolog.Nop()),
		finals:   NewFinalResultService(store, speech, events, cache, cfg, zerolog.Nop()),
		times:    NewSessionTimeService(store, validate, zerolog.Nop()),
	}
}

func (f *flowFixture) start(t *testing.T) dto.StartMockTestResponse {
	t.Helper()
	response, err := f.sessions.Start(context.Background(), dto.StartMockTestRequest{
		UserID:     testUserID,
		MockTestID: testMockTestID,
	})
	require.NoError(t, err)
	return response
}

func (f *flowFixture) submit(t *testing.T, sessionID, segmentID uint) (dto.SubmitSegmentResponse, error) {
	t.Helper()
	return f.submits.Submit(context.Background(), dto.SubmitSegmentRequest{
		UserID:            testUserID,
		MockTestSessionID: sessionID,
		SegmentID:         segmentID,
		Language:          "spanish",
	}, UploadedAudio{FileName: "attempt.wav", Data: wavAudio()})
}

func TestStartSeedsLedgerWithDistributedMarks(t *testing.T) {
	f := setupFlow(t)
	response := f.start(t)

	require.Equal(t, models.SessionStatusInProgress, response.Session.Status)
	require.Equal(t, 90.0, response.Session.TotalMarks)
	require.Len(t, response.Results, 5)
	require.Equal(t, dto.Progress{TotalSegments: 5, PendingSegments: 5}, response.Progress)
	require.Equal(t, 1800, response.DurationSeconds)

	// Dialogue one splits 45 across 2 segments, dialogue two across 3.
	for _, result := range response.Results {
		require.Equal(t, models.ResultStatusPending, result.Status)
		switch result.DialogueID {
		case dialogue1ID:
			require.Equal(t, 22.5, result.MaxMarks)
		case dialogue2ID:
			require.Equal(t, 15.0, result.MaxMarks)
		default:
			t.Fatalf("unexpected dialogue %d", result.DialogueID)
		}
	}

	require.Equal(t, []uint{dialogue1ID, dialogue2ID}, []uint{response.Dialogues[0].ID, response.Dialogues[1].ID})
	require.Equal(t, 63.0, response.PassRule.Total.PassAtLeast)
	require.Equal(t, 31.0, response.PassRule.PerDialogue.PassAtLeast)
}

func TestStartRejectsBrokenDefinitions(t *testing.T) {
	f := setupFlow(t)
	ctx := context.Background()

	_, err := f.sessions.Start(ctx, dto.StartMockTestRequest{UserID: testUserID, MockTestID: 999})
	require.ErrorIs(t, err, ErrMockTestNotFound)

	require.NoError(t, f.db.Model(&models.MockTest{}).Where("id = ?", testMockTestID).
		Update("dialogue_id_2", dialogue1ID).Error)
	_, err = f.sessions.Start(ctx, dto.StartMockTestRequest{UserID: testUserID, MockTestID: testMockTestID})
	require.ErrorIs(t, err, ErrMockTestMisconfigured)

	require.NoError(t, f.db.Model(&models.MockTest{}).Where("id = ?", testMockTestID).
		Update("dialogue_id_2", dialogue2ID).Error)
	require.NoError(t, f.db.Where("dialogue_id = ?", dialogue2ID).Delete(&models.Segment{}).Error)
	_, err = f.sessions.Start(ctx, dto.StartMockTestRequest{UserID: testUserID, MockTestID: testMockTestID})
	require.ErrorIs(t, err, ErrSegmentsMissing)

	var sessions int64
	require.NoError(t, f.db.Model(&models.MockTestSession{}).Count(&sessions).Error)
	require.Zero(t, sessions, "failed starts must not leave sessions behind")
}

func TestSubmitScoresSegmentAndOverwritesOnRepeat(t *testing.T) {
	f := setupFlow(t)
	started := f.start(t)
	sessionID := started.Session.ID

	f.speech.scoreQueue = []ai.SegmentScores{scoresWithFinal(39)}
	response, err := f.submit(t, sessionID, 100)
	require.NoError(t, err)

	// 39/45 of the 22.5 segment share.
	require.Equal(t, 19.5, response.ObtainedMarks)
	require.Equal(t, 22.5, response.MaxMarks)
	require.Equal(t, models.ResultStatusCompleted, response.Result.Status)
	require.Equal(t, 1, response.Attempt.RepeatCount)
	require.Equal(t, dto.Progress{TotalSegments: 5, CompletedSegments: 1, PendingSegments: 4}, response.Progress)
	require.NotNil(t, response.NextSegmentID)
	require.Equal(t, uint(101), *response.NextSegmentID)
	require.Contains(t, response.Result.AudioURL, fmt.Sprintf("users/%d/mock-tests/sessions/%d/segments/100/attempt-1", testUserID, sessionID))
	require.Equal(t, "transcript of https://cdn.test/reference-100.mp3", response.Transcripts.ReferenceTranscript)

	f.speech.scoreQueue = []ai.SegmentScores{scoresWithFinal(45)}
	repeat, err := f.submit(t, sessionID, 100)
	require.NoError(t, err)

	require.Equal(t, 22.5, repeat.ObtainedMarks)
	require.Equal(t, 2, repeat.Attempt.RepeatCount)
	require.Equal(t, 2, repeat.Result.RepeatCount)
	require.Equal(t, dto.Progress{TotalSegments: 5, CompletedSegments: 1, PendingSegments: 4}, repeat.Progress,
		"a repeat must not change segment completion")

	attempts, err := f.store.Attempts.ListBySessionSegment(context.Background(), sessionID, 100)
	require.NoError(t, err)
	require.Len(t, attempts, 2)

	results, err := f.store.Results.ListBySession(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, results, 5, "repeats overwrite the ledger row in place")
}

func TestSubmitPreconditions(t *testing.T) {
	f := setupFlow(t)
	started := f.start(t)
	sessionID := started.Session.ID
	ctx := context.Background()

	_, err := f.submits.Submit(ctx, dto.SubmitSegmentRequest{
		UserID: 99, MockTestSessionID: sessionID, SegmentID: 100,
	}, UploadedAudio{FileName: "a.wav", Data: wavAudio()})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.submits.Submit(ctx, dto.SubmitSegmentRequest{
		UserID: testUserID, MockTestSessionID: 999, SegmentID: 100,
	}, UploadedAudio{FileName: "a.wav", Data: wavAudio()})
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.submits.Submit(ctx, dto.SubmitSegmentRequest{
		UserID: testUserID, MockTestSessionID: sessionID, SegmentID: 100,
	}, UploadedAudio{})
	require.ErrorIs(t, err, ErrAudioMissing)

	_, err = f.submits.Submit(ctx, dto.SubmitSegmentRequest{
		UserID: testUserID, MockTestSessionID: sessionID, SegmentID: 100,
	}, UploadedAudio{FileName: "a.txt", Data: []byte("definitely not audio content")})
	require.ErrorIs(t, err, ErrUnsupportedAudio)

	require.NoError(t, f.db.Create(&models.Segment{
		ID: 200, DialogueID: 42, SegmentOrder: 1, TextContent: "stray",
	}).Error)
	_, err = f.submit(t, sessionID, 200)
	require.ErrorIs(t, err, ErrSegmentNotInMockTest)

	require.NoError(t, f.db.Model(&models.Segment{}).Where("id = ?", 100).
		Update("audio_url", "").Error)
	_, err = f.submit(t, sessionID, 100)
	require.ErrorIs(t, err, ErrNoReferenceAudio)
}

func TestFinalResultBlockedWhilePending(t *testing.T) {
	f := setupFlow(t)
	started := f.start(t)
	sessionID := started.Session.ID

	_, err := f.submit(t, sessionID, 100)
	require.NoError(t, err)

	_, err = f.finals.Compute(context.Background(), sessionID, testUserID)
	require.ErrorIs(t, err, ErrSegmentsPending)

	var pending *PendingSegmentsError
	require.ErrorAs(t, err, &pending)
	require.ElementsMatch(t, []uint{101, 102, 103, 104}, pending.SegmentIDs)
	require.Equal(t, dto.Progress{TotalSegments: 5, CompletedSegments: 1, PendingSegments: 4}, pending.Progress)

	session, err := f.store.Sessions.GetByID(context.Background(), sessionID)
	require.NoError(t, err)
	require.True(t, session.IsInProgress(), "a blocked compute must not flip the session")
}

func TestFinalResultFullPassAndIdempotency(t *testing.T) {
	f := setupFlow(t)
	started := f.start(t)
	sessionID := started.Session.ID
	ctx := context.Background()

	for _, segmentID := range []uint{100, 101, 102, 103, 104} {
		_, err := f.submit(t, sessionID, segmentID)
		require.NoError(t, err)
	}

	response, err := f.finals.Compute(ctx, sessionID, testUserID)
	require.NoError(t, err)

	require.Equal(t, 90.0, response.FinalResult.TotalScore)
	require.Equal(t, 45.0, response.FinalResult.Dialogue1Score)
	require.Equal(t, 45.0, response.FinalResult.Dialogue2Score)
	require.True(t, response.FinalResult.Passed)
	require.Equal(t, models.SessionStatusCompleted, response.Session.Status)
	require.NotNil(t, response.Session.CompletedAt)
	require.Equal(t, "strong overall performance", response.Summary.OverallFeedback)
	require.Equal(t, 45.0, response.Summary.Averages["final_score"])
	require.Len(t, response.Results, 5)

	again, err := f.finals.Compute(ctx, sessionID, testUserID)
	require.NoError(t, err)
	require.Equal(t, response.FinalResult.ID, again.FinalResult.ID)
	require.Equal(t, response.FinalResult.ComputedAt.Unix(), again.FinalResult.ComputedAt.Unix())
	require.Equal(t, 1, f.speech.feedbackCalls, "a completed session must not re-run the oracle")
	require.Contains(t, f.speech.feedbackInput.Notes, "Dialogue 2 segment 3: flawless")
	require.NotContains(t, f.speech.feedbackInput.Notes, "(truncated)")

	_, err = f.submit(t, sessionID, 100)
	require.ErrorIs(t, err, ErrSessionNotInProgress)
}

func TestFinalResultPerDialogueGate(t *testing.T) {
	f := setupFlow(t)
	started := f.start(t)
	sessionID := started.Session.ID
	ctx := context.Background()

	// Dialogue one lands on 30/45, just under the 31 gate; dialogue two is
	// strong enough to push the total past 63.
	f.speech.scoreQueue = []ai.SegmentScores{
		scoresWithFinal(30), scoresWithFinal(30), // dialogue 1: 15 + 15 = 30
		scoresWithFinal(45), scoresWithFinal(45), scoresWithFinal(45), // dialogue 2: 45
	}
	for _, segmentID := range []uint{100, 101, 102, 103, 104} {
		_, err := f.submit(t, sessionID, segmentID)
		require.NoError(t, err)
	}

	response, err := f.finals.Compute(ctx, sessionID, testUserID)
	require.NoError(t, err)

	require.Equal(t, 30.0, response.FinalResult.Dialogue1Score)
	require.Equal(t, 45.0, response.FinalResult.Dialogue2Score)
	require.Equal(t, 75.0, response.FinalResult.TotalScore)
	require.False(t, response.FinalResult.Passed, "total above 63 cannot pass when a dialogue is below 31")

	session, err := f.store.Sessions.GetByID(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusCompleted, session.Status)
	require.False(t, session.Passed)
}

func TestProgressReportsOrderAndNextSegment(t *testing.T) {
	f := setupFlow(t)
	started := f.start(t)
	sessionID := started.Session.ID
	ctx := context.Background()

	_, err := f.sessions.Progress(ctx, sessionID, 99)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.submit(t, sessionID, 100)
	require.NoError(t, err)

	progress, err := f.sessions.Progress(ctx, sessionID, testUserID)
	require.NoError(t, err)
	require.Equal(t, dto.Progress{TotalSegments: 5, CompletedSegments: 1, PendingSegments: 4}, progress.Progress)
	require.Len(t, progress.CompletedSegments, 1)
	require.Equal(t, uint(100), progress.CompletedSegments[0].SegmentID)
	require.NotNil(t, progress.NextSegment)
	require.Equal(t, uint(101), progress.NextSegment.SegmentID, "dialogue one finishes before dialogue two")
}

func TestSessionTimeTracking(t *testing.T) {
	f := setupFlow(t)
	started := f.start(t)
	sessionID := started.Session.ID
	ctx := context.Background()

	response, err := f.times.Increment(ctx, sessionID, dto.IncrementTimeRequest{UserID: testUserID, Seconds: 30})
	require.NoError(t, err)
	require.Equal(t, 30, response.CompletedSeconds)
	require.Equal(t, 30, response.AddedSeconds)

	response, err = f.times.Increment(ctx, sessionID, dto.IncrementTimeRequest{UserID: testUserID, Seconds: 45})
	require.NoError(t, err)
	require.Equal(t, 75, response.CompletedSeconds)

	_, err = f.times.Increment(ctx, sessionID, dto.IncrementTimeRequest{UserID: 99, Seconds: 10})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.times.Increment(ctx, sessionID, dto.IncrementTimeRequest{UserID: testUserID, Seconds: -5})
	require.Error(t, err, "negative increments must be rejected by validation")

	byUser, err := f.times.UserSeconds(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, 75, byUser.TotalCompletedSeconds)
	require.Len(t, byUser.Sessions, 1)

	bySession, err := f.times.SessionSeconds(ctx, sessionID, testUserID)
	require.NoError(t, err)
	require.Equal(t, 75, bySession.CompletedSeconds)
}

func TestFinalFeedbackNotesCapped(t *testing.T) {
	f := setupFlow(t)
	started := f.start(t)
	sessionID := started.Session.ID
	ctx := context.Background()

	for _, segmentID := range []uint{100, 101, 102, 103, 104} {
		_, err := f.submit(t, sessionID, segmentID)
		require.NoError(t, err)
	}

	// Five "Dialogue N segment N: flawless" lines run well past 60 chars,
	// so the digest must be cut at the budget and marked.
	cfg := testConfig()
	cfg.FeedbackNotesLimit = 60
	finals := NewFinalResultService(f.store, f.speech, NewEventPublisher(nil, zerolog.Nop()),
		NewProgressCache(nil, 0, zerolog.Nop()), cfg, zerolog.Nop())

	_, err := finals.Compute(ctx, sessionID, testUserID)
	require.NoError(t, err)

	notes := f.speech.feedbackInput.Notes
	require.True(t, strings.HasSuffix(notes, "...(truncated)"))
	require.Len(t, notes, 60+len("\n...(truncated)"))
	require.True(t, strings.HasPrefix(notes, "Dialogue 1 segment 1: flawless"))
}

func TestProgressServedFromCache(t *testing.T) {
	f := setupFlow(t)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewProgressCache(client, time.Minute, zerolog.Nop())
	validate := validator.New(validator.WithRequiredStructEnabled())
	sessions := NewMockTestService(f.store, cache, validate, testConfig(), zerolog.Nop())

	started := f.start(t)
	sessionID := started.Session.ID
	ctx := context.Background()

	first, err := sessions.Progress(ctx, sessionID, testUserID)
	require.NoError(t, err)
	require.Equal(t, 5, first.Progress.PendingSegments)

	// Drop the ledger behind the cache's back; a warm cache still serves
	// the captured view without touching the rows.
	require.NoError(t, f.db.Where("mock_test_session_id = ?", sessionID).
		Delete(&models.MockTestResult{}).Error)

	second, err := sessions.Progress(ctx, sessionID, testUserID)
	require.NoError(t, err)
	require.Equal(t, first.Progress, second.Progress)
	require.NotNil(t, second.NextSegment)

	// Once the view expires the database is consulted again.
	mr.FastForward(2 * time.Minute)
	third, err := sessions.Progress(ctx, sessionID, testUserID)
	require.NoError(t, err)
	require.Zero(t, third.Progress.TotalSegments)
}

func TestSubmitRederivesRepeatCountUnderLock(t *testing.T) {
	f := setupFlow(t)
	started := f.start(t)
	sessionID := started.Session.ID

	// Sneak a rival attempt in while the oracle call is in flight, after
	// the submit path has already read max repeat count as zero.
	f.speech.onScore = func() {
		require.NoError(t, f.db.Create(&models.MockTestAttempt{
			MockTestSessionID: sessionID,
			MockTestID:        testMockTestID,
			UserID:            testUserID,
			DialogueID:        dialogue1ID,
			SegmentID:         100,
			Status:            models.AttemptStatusScored,
			RepeatCount:       1,
		}).Error)
		f.speech.onScore = nil
	}

	response, err := f.submit(t, sessionID, 100)
	require.NoError(t, err)
	require.Equal(t, 2, response.Attempt.RepeatCount)
	require.Equal(t, 2, response.Result.RepeatCount)

	var attempts []models.MockTestAttempt
	require.NoError(t, f.db.Where("mock_test_session_id = ? AND segment_id = ?", sessionID, 100).
		Order("repeat_count ASC").Find(&attempts).Error)
	require.Len(t, attempts, 2)
	require.Equal(t, []int{1, 2}, []int{attempts[0].RepeatCount, attempts[1].RepeatCount})
}
