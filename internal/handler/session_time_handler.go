package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/dto"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/service"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/utils"
)

// SessionTimeHandler exposes the speaking-time tracking endpoints.
type SessionTimeHandler struct {
	service service.SessionTimeService
	logger  zerolog.Logger
}

// NewSessionTimeHandler builds a session-time handler instance.
func NewSessionTimeHandler(service service.SessionTimeService, logger zerolog.Logger) *SessionTimeHandler {
	return &SessionTimeHandler{
		service: service,
		logger:  logger.With().Str("component", "session_time_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SessionTimeHandler) Register(router fiber.Router) {
	router.Post("/sessions/:sessionID/time", h.increment)
	router.Get("/sessions/:sessionID/time", h.sessionTime)
	router.Get("/users/:userID/time", h.userTime)
}

func (h *SessionTimeHandler) increment(c *fiber.Ctx) error {
	sessionID, err := parseUintParam(c, "sessionID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.IncrementTimeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Increment(c.Context(), sessionID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session time updated", response)
}

func (h *SessionTimeHandler) sessionTime(c *fiber.Ctx) error {
	sessionID, err := parseUintParam(c, "sessionID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	userID, err := parseQueryUint(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.SessionSeconds(c.Context(), sessionID, userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session time retrieved", response)
}

func (h *SessionTimeHandler) userTime(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "userID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.UserSeconds(c.Context(), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "user time retrieved", response)
}

func (h *SessionTimeHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "mock test session not found")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "session does not belong to this user")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
