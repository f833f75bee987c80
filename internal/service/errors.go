package service

import (
	"errors"
	"fmt"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/dto"
)

// ErrMockTestNotFound indicates the exam definition is absent.
var ErrMockTestNotFound = errors.New("mock test not found")

// ErrMockTestMisconfigured indicates the definition does not reference two distinct dialogues.
var ErrMockTestMisconfigured = errors.New("mock test must have two different dialogues")

// ErrDialogueNotFound indicates one or both dialogues are absent.
var ErrDialogueNotFound = errors.New("one or both dialogues not found")

// ErrSegmentsMissing indicates a dialogue has no segments to grade.
var ErrSegmentsMissing = errors.New("each dialogue must have segments")

// ErrSessionNotFound indicates the session is absent.
var ErrSessionNotFound = errors.New("mock test session not found")

// ErrForbidden indicates the requesting user does not own the session.
var ErrForbidden = errors.New("forbidden")

// ErrSessionNotInProgress indicates the session no longer accepts submissions.
var ErrSessionNotInProgress = errors.New("session is not in progress")

// ErrSegmentNotFound indicates the segment is absent.
var ErrSegmentNotFound = errors.New("segment not found")

// ErrSegmentNotInMockTest indicates the segment belongs to neither dialogue of the test.
var ErrSegmentNotInMockTest = errors.New("segment does not belong to mock test dialogues")

// ErrResultRowMissing indicates the ledger row that session start should have
// created is absent; the session is corrupted and must be restarted.
var ErrResultRowMissing = errors.New("segment was not initialized for this session")

// ErrNoReferenceAudio indicates neither the segment nor the request supplies reference audio.
var ErrNoReferenceAudio = errors.New("no reference audio found")

// ErrSegmentsPending gates final compute: every ledger row must be completed first.
var ErrSegmentsPending = errors.New("segments still pending")

// PendingSegmentsError reports which segments block the final compute.
type PendingSegmentsError struct {
	SegmentIDs []uint
	Progress   dto.Progress
}

func (e *PendingSegmentsError) Error() string {
	return fmt.Sprintf("%v: %d of %d segments pending", ErrSegmentsPending, e.Progress.PendingSegments, e.Progress.TotalSegments)
}

// Unwrap lets callers match ErrSegmentsPending with errors.Is.
func (e *PendingSegmentsError) Unwrap() error {
	return ErrSegmentsPending
}

// UpstreamError wraps blob-store or oracle failures so handlers can map them
// to a retryable status without leaking provider detail.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstream reports whether err is an upstream collaborator failure.
func IsUpstream(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream)
}
