package service

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	subjectSegmentScored    = "mocktest.segment.scored"
	subjectSessionCompleted = "mocktest.session.completed"
)

// EventPublisher emits fire-and-forget domain events over NATS so downstream
// consumers (dashboards, notifications) can react to scoring milestones.
// A nil connection disables publishing; event failures never fail the request.
type EventPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewEventPublisher constructs an event publisher; conn may be nil.
func NewEventPublisher(conn *nats.Conn, logger zerolog.Logger) *EventPublisher {
	return &EventPublisher{
		conn:   conn,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

// SegmentScoredEvent is published after a segment submission is scored.
type SegmentScoredEvent struct {
	MockTestSessionID uint      `json:"mock_test_session_id"`
	SegmentID         uint      `json:"segment_id"`
	UserID            uint      `json:"user_id"`
	RepeatCount       int       `json:"repeat_count"`
	ObtainedMarks     float64   `json:"obtained_marks"`
	MaxMarks          float64   `json:"max_marks"`
	ScoredAt          time.Time `json:"scored_at"`
}

// SessionCompletedEvent is published after the final result is computed.
type SessionCompletedEvent struct {
	MockTestSessionID uint      `json:"mock_test_session_id"`
	UserID            uint      `json:"user_id"`
	TotalScore        float64   `json:"total_score"`
	Passed            bool      `json:"passed"`
	CompletedAt       time.Time `json:"completed_at"`
}

// SegmentScored publishes a segment-scored event.
func (p *EventPublisher) SegmentScored(event SegmentScoredEvent) {
	p.publish(subjectSegmentScored, event)
}

// SessionCompleted publishes a session-completed event.
func (p *EventPublisher) SessionCompleted(event SessionCompletedEvent) {
	p.publish(subjectSessionCompleted, event)
}

func (p *EventPublisher) publish(subject string, event interface{}) {
	if p == nil || p.conn == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to encode event")
		return
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
