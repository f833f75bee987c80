package handler

import (
	"errors"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/dto"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/service"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/utils"
)

// MockTestHandler exposes the mock-test flow endpoints.
type MockTestHandler struct {
	sessions service.MockTestService
	submits  service.SubmitService
	finals   service.FinalResultService
	logger   zerolog.Logger
}

// NewMockTestHandler builds a mock-test handler instance.
func NewMockTestHandler(sessions service.MockTestService, submits service.SubmitService, finals service.FinalResultService, logger zerolog.Logger) *MockTestHandler {
	return &MockTestHandler{
		sessions: sessions,
		submits:  submits,
		finals:   finals,
		logger:   logger.With().Str("component", "mock_test_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *MockTestHandler) Register(router fiber.Router) {
	router.Post("/start", h.start)
	router.Post("/segments/submit", h.submitSegment)
	router.Get("/sessions/:sessionID/progress", h.progress)
	router.Get("/sessions/:sessionID/result", h.finalResult)
}

func (h *MockTestHandler) start(c *fiber.Ctx) error {
	var payload dto.StartMockTestRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.sessions.Start(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "mock test session started", response)
}

func (h *MockTestHandler) submitSegment(c *fiber.Ctx) error {
	payload := dto.SubmitSegmentRequest{
		Language:          c.FormValue("language"),
		AudioURL:          c.FormValue("audioUrl"),
		SuggestedAudioURL: c.FormValue("suggestedAudioUrl"),
	}

	userID, err := parseFormUint(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	sessionID, err := parseFormUint(c, "mockTestSessionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	segmentID, err := parseFormUint(c, "segmentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	payload.UserID = userID
	payload.MockTestSessionID = sessionID
	payload.SegmentID = segmentID

	fileHeader, err := c.FormFile("userAudio")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "userAudio file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "could not read userAudio file")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "could not read userAudio file")
	}

	response, err := h.submits.Submit(c.Context(), payload, service.UploadedAudio{
		FileName: fileHeader.Filename,
		Data:     data,
	})
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "segment scored", response)
}

func (h *MockTestHandler) progress(c *fiber.Ctx) error {
	sessionID, err := parseUintParam(c, "sessionID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	userID, err := parseQueryUint(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.sessions.Progress(c.Context(), sessionID, userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session progress retrieved", response)
}

func (h *MockTestHandler) finalResult(c *fiber.Ctx) error {
	sessionID, err := parseUintParam(c, "sessionID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	userID, err := parseQueryUint(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.finals.Compute(c.Context(), sessionID, userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "final result computed", response)
}

func (h *MockTestHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	var pending *service.PendingSegmentsError
	switch {
	case errors.As(err, &pending):
		return utils.SendErrorWithData(c, fiber.StatusConflict, "all segments must be completed before computing the final result", fiber.Map{
			"pendingSegmentIds": pending.SegmentIDs,
			"progress":          pending.Progress,
		})
	case errors.Is(err, service.ErrMockTestNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "mock test not found")
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "mock test session not found")
	case errors.Is(err, service.ErrSegmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "segment not found")
	case errors.Is(err, service.ErrDialogueNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "one or both dialogues not found")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "session does not belong to this user")
	case errors.Is(err, service.ErrSessionNotInProgress):
		return utils.SendError(c, fiber.StatusConflict, "session is not in progress")
	case errors.Is(err, service.ErrMockTestMisconfigured):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "mock test must reference two different dialogues")
	case errors.Is(err, service.ErrSegmentsMissing):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "each dialogue must have segments")
	case errors.Is(err, service.ErrSegmentNotInMockTest):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "segment does not belong to this mock test")
	case errors.Is(err, service.ErrSubmitConflict):
		return utils.SendError(c, fiber.StatusConflict, "a concurrent submission for this segment won, please resubmit")
	case errors.Is(err, service.ErrResultRowMissing):
		return utils.SendError(c, fiber.StatusConflict, "segment was not initialized for this session")
	case errors.Is(err, service.ErrNoReferenceAudio):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "no reference audio found for this segment")
	case errors.Is(err, service.ErrAudioMissing):
		return utils.SendError(c, fiber.StatusBadRequest, "user audio file is required")
	case errors.Is(err, service.ErrUnsupportedAudio):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, "uploaded file is not audio")
	case service.IsUpstream(err):
		h.logger.Error().Err(err).Msg("upstream provider failure")
		return utils.SendError(c, fiber.StatusBadGateway, "scoring provider is unavailable, please retry")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
