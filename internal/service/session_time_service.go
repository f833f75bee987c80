package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/dto"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/repository"
)

// SessionTimeService tracks speaking time per session and per user.
type SessionTimeService interface {
	Increment(ctx context.Context, sessionID uint, payload dto.IncrementTimeRequest) (dto.SessionTimeResponse, error)
	SessionSeconds(ctx context.Context, sessionID, userID uint) (dto.SessionTimeResponse, error)
	UserSeconds(ctx context.Context, userID uint) (dto.UserTimeResponse, error)
}

type sessionTimeService struct {
	store     *repository.Store
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSessionTimeService constructs the time tracker.
func NewSessionTimeService(store *repository.Store, validator *validator.Validate, logger zerolog.Logger) SessionTimeService {
	return &sessionTimeService{
		store:     store,
		validator: validator,
		logger:    logger.With().Str("component", "session_time_service").Logger(),
		now:       time.Now,
	}
}

// Increment adds elapsed seconds to the session counter. The addition happens
// in SQL under a row lock so concurrent clients cannot lose increments.
func (s *sessionTimeService) Increment(ctx context.Context, sessionID uint, payload dto.IncrementTimeRequest) (dto.SessionTimeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionTimeResponse{}, err
	}

	var session dto.SessionTimeResponse
	err := s.store.WithinTransaction(ctx, func(tx *repository.Store) error {
		locked, err := tx.Sessions.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		if !locked.OwnedBy(payload.UserID) {
			return ErrForbidden
		}

		if err := tx.Sessions.AddCompletedSeconds(ctx, sessionID, payload.Seconds); err != nil {
			return err
		}

		locked.CompletedSeconds += payload.Seconds
		session = dto.NewSessionTimeResponse(locked)
		session.AddedSeconds = payload.Seconds
		return nil
	})
	if err != nil {
		return dto.SessionTimeResponse{}, err
	}

	return session, nil
}

// SessionSeconds reports the accumulated duration for one session.
func (s *sessionTimeService) SessionSeconds(ctx context.Context, sessionID, userID uint) (dto.SessionTimeResponse, error) {
	session, err := s.store.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionTimeResponse{}, ErrSessionNotFound
		}
		return dto.SessionTimeResponse{}, err
	}
	if !session.OwnedBy(userID) {
		return dto.SessionTimeResponse{}, ErrForbidden
	}

	return dto.NewSessionTimeResponse(session), nil
}

// UserSeconds aggregates durations across all of a user's sessions.
func (s *sessionTimeService) UserSeconds(ctx context.Context, userID uint) (dto.UserTimeResponse, error) {
	sessions, err := s.store.Sessions.ListByUser(ctx, userID)
	if err != nil {
		return dto.UserTimeResponse{}, err
	}

	response := dto.UserTimeResponse{
		UserID:   userID,
		Sessions: make([]dto.SessionTimeResponse, 0, len(sessions)),
	}
	for _, session := range sessions {
		response.TotalCompletedSeconds += session.CompletedSeconds
		response.Sessions = append(response.Sessions, dto.NewSessionTimeResponse(session))
	}

	return response, nil
}
