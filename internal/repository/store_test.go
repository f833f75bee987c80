package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func TestSessionRepositoryAddCompletedSecondsAccumulates(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	session := models.MockTestSession{
		MockTestID: 1,
		UserID:     7,
		Status:     models.SessionStatusInProgress,
		TotalMarks: 90,
		PassMarks:  63,
		StartedAt:  time.Now(),
	}
	require.NoError(t, store.Sessions.Create(ctx, &session))

	require.NoError(t, store.Sessions.AddCompletedSeconds(ctx, session.ID, 30))
	require.NoError(t, store.Sessions.AddCompletedSeconds(ctx, session.ID, 45))

	stored, err := store.Sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, 75, stored.CompletedSeconds)
}

func TestResultRepositoryOverwritesInPlace(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	rows := []models.MockTestResult{
		{MockTestSessionID: 1, MockTestID: 1, UserID: 7, DialogueID: 10, SegmentID: 100, SegmentOrder: 1, Status: models.ResultStatusPending, MaxMarks: 22.5},
		{MockTestSessionID: 1, MockTestID: 1, UserID: 7, DialogueID: 10, SegmentID: 101, SegmentOrder: 2, Status: models.ResultStatusPending, MaxMarks: 22.5},
	}
	require.NoError(t, store.Results.BulkCreate(ctx, rows))

	row, err := store.Results.GetBySessionSegment(ctx, 1, 100)
	require.NoError(t, err)

	row.Status = models.ResultStatusCompleted
	row.ObtainedMarks = 18.75
	row.RepeatCount = 1
	require.NoError(t, store.Results.Update(ctx, &row))

	again, err := store.Results.GetBySessionSegment(ctx, 1, 100)
	require.NoError(t, err)
	require.Equal(t, row.ID, again.ID, "resubmission must overwrite, not insert")
	require.Equal(t, 18.75, again.ObtainedMarks)

	all, err := store.Results.ListBySession(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestResultRepositoryRejectsDuplicateSessionSegment(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	first := []models.MockTestResult{
		{MockTestSessionID: 2, MockTestID: 1, UserID: 7, DialogueID: 10, SegmentID: 100, SegmentOrder: 1, Status: models.ResultStatusPending, MaxMarks: 22.5},
	}
	require.NoError(t, store.Results.BulkCreate(ctx, first))

	duplicate := []models.MockTestResult{
		{MockTestSessionID: 2, MockTestID: 1, UserID: 7, DialogueID: 10, SegmentID: 100, SegmentOrder: 1, Status: models.ResultStatusPending, MaxMarks: 22.5},
	}
	require.Error(t, store.Results.BulkCreate(ctx, duplicate))
}

func TestAttemptRepositoryMaxRepeatCount(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	max, err := store.Attempts.MaxRepeatCount(ctx, 1, 100)
	require.NoError(t, err)
	require.Zero(t, max)

	for repeat := 1; repeat <= 3; repeat++ {
		attempt := models.MockTestAttempt{
			MockTestSessionID: 1,
			MockTestID:        1,
			UserID:            7,
			DialogueID:        10,
			SegmentID:         100,
			Status:            models.AttemptStatusScored,
			RepeatCount:       repeat,
		}
		require.NoError(t, store.Attempts.Create(ctx, &attempt))
	}

	max, err = store.Attempts.MaxRepeatCount(ctx, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 3, max)

	attempts, err := store.Attempts.ListBySessionSegment(ctx, 1, 100)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	require.Equal(t, 1, attempts[0].RepeatCount)
	require.Equal(t, 3, attempts[2].RepeatCount)
}

func TestAttemptRepositoryRejectsDuplicateRepeat(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	attempt := models.MockTestAttempt{
		MockTestSessionID: 1, MockTestID: 1, UserID: 7,
		DialogueID: 10, SegmentID: 100,
		Status: models.AttemptStatusScored, RepeatCount: 1,
	}
	require.NoError(t, store.Attempts.Create(ctx, &attempt))

	clash := models.MockTestAttempt{
		MockTestSessionID: 1, MockTestID: 1, UserID: 7,
		DialogueID: 10, SegmentID: 100,
		Status: models.AttemptStatusScored, RepeatCount: 1,
	}
	require.Error(t, store.Attempts.Create(ctx, &clash))
}

func TestFinalResultRepositoryUpsertConvergesOnOneRow(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	first := models.MockTestFinalResult{
		MockTestSessionID: 5,
		MockTestID:        1,
		UserID:            7,
		TotalScore:        60,
		Dialogue1Score:    30,
		Dialogue2Score:    30,
		OutOf:             90,
		PassMarks:         63,
		PerDialogueOutOf:  45,
		PerDialoguePass:   31,
		ComputedAt:        time.Now(),
	}
	require.NoError(t, store.FinalResults.Upsert(ctx, &first))

	second := first
	second.ID = 0
	second.TotalScore = 72
	second.Dialogue1Score = 36
	second.Dialogue2Score = 36
	second.Passed = true
	require.NoError(t, store.FinalResults.Upsert(ctx, &second))

	stored, err := store.FinalResults.GetBySession(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, 72.0, stored.TotalScore)
	require.True(t, stored.Passed)

	var count int64
	require.NoError(t, store.db.Model(&models.MockTestFinalResult{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestContentRepositoryListSegmentsOrdersBySegmentOrder(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Segment{DialogueID: 10, SegmentOrder: 3, TextContent: "third"}).Error)
	require.NoError(t, db.Create(&models.Segment{DialogueID: 10, SegmentOrder: 1, TextContent: "first"}).Error)
	require.NoError(t, db.Create(&models.Segment{DialogueID: 10, SegmentOrder: 2, TextContent: "second"}).Error)
	require.NoError(t, db.Create(&models.Segment{DialogueID: 11, SegmentOrder: 1, TextContent: "other dialogue"}).Error)

	segments, err := store.Content.ListSegments(ctx, 10)
	require.NoError(t, err)
	require.Len(t, segments, 3)
	require.Equal(t, "first", segments[0].TextContent)
	require.Equal(t, "second", segments[1].TextContent)
	require.Equal(t, "third", segments[2].TextContent)
}

func TestStoreWithinTransactionRollsBackOnError(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := store.WithinTransaction(ctx, func(tx *Store) error {
		session := models.MockTestSession{
			MockTestID: 1,
			UserID:     7,
			Status:     models.SessionStatusInProgress,
			StartedAt:  time.Now(),
		}
		if err := tx.Sessions.Create(ctx, &session); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	var count int64
	require.NoError(t, store.db.Model(&models.MockTestSession{}).Count(&count).Error)
	require.Zero(t, count)
}
