package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/dto"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/handler"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/service"
)

type stubMockTestService struct {
	startResponse    dto.StartMockTestResponse
	startErr         error
	progressResponse dto.SessionProgressResponse
	progressErr      error
}

func (s *stubMockTestService) Start(_ context.Context, _ dto.StartMockTestRequest) (dto.StartMockTestResponse, error) {
	return s.startResponse, s.startErr
}

func (s *stubMockTestService) Progress(_ context.Context, _, _ uint) (dto.SessionProgressResponse, error) {
	return s.progressResponse, s.progressErr
}

type stubSubmitService struct {
	lastAudio service.UploadedAudio
	response  dto.SubmitSegmentResponse
	err       error
}

func (s *stubSubmitService) Submit(_ context.Context, _ dto.SubmitSegmentRequest, audio service.UploadedAudio) (dto.SubmitSegmentResponse, error) {
	s.lastAudio = audio
	return s.response, s.err
}

type stubFinalResultService struct {
	response dto.FinalResultResponse
	err      error
}

func (s *stubFinalResultService) Compute(_ context.Context, _, _ uint) (dto.FinalResultResponse, error) {
	return s.response, s.err
}

func newTestApp(sessions *stubMockTestService, submits *stubSubmitService, finals *stubFinalResultService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v2/mock-tests")
	handler.NewMockTestHandler(sessions, submits, finals, zerolog.New(io.Discard)).Register(group)
	return app
}

func decodeEnvelope(t *testing.T, resp *http.Response) (bool, map[string]interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
		Message string                 `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope.Success, envelope.Data
}

func TestMockTestHandlerStartCreated(t *testing.T) {
	sessions := &stubMockTestService{
		startResponse: dto.StartMockTestResponse{
			Session: dto.SessionResponse{ID: 1, Status: "in_progress"},
		},
	}
	app := newTestApp(sessions, &stubSubmitService{}, &stubFinalResultService{})

	body, err := json.Marshal(dto.StartMockTestRequest{UserID: 7, MockTestID: 1})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/mock-tests/start", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	success, data := decodeEnvelope(t, resp)
	require.True(t, success)
	require.NotNil(t, data["session"])
}

func TestMockTestHandlerStartNotFound(t *testing.T) {
	sessions := &stubMockTestService{startErr: service.ErrMockTestNotFound}
	app := newTestApp(sessions, &stubSubmitService{}, &stubFinalResultService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v2/mock-tests/start", bytes.NewReader([]byte(`{"userId":7,"mockTestId":999}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestMockTestHandlerSubmitReadsMultipart(t *testing.T) {
	submits := &stubSubmitService{response: dto.SubmitSegmentResponse{ObtainedMarks: 19.5, MaxMarks: 22.5}}
	app := newTestApp(&stubMockTestService{}, submits, &stubFinalResultService{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("userId", "7"))
	require.NoError(t, writer.WriteField("mockTestSessionId", "1"))
	require.NoError(t, writer.WriteField("segmentId", "100"))
	require.NoError(t, writer.WriteField("language", "spanish"))
	part, err := writer.CreateFormFile("userAudio", "attempt.wav")
	require.NoError(t, err)
	_, err = part.Write([]byte("RIFF....WAVE"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/mock-tests/segments/submit", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "attempt.wav", submits.lastAudio.FileName)
	require.Equal(t, []byte("RIFF....WAVE"), submits.lastAudio.Data)
}

func TestMockTestHandlerSubmitRequiresAudioFile(t *testing.T) {
	app := newTestApp(&stubMockTestService{}, &stubSubmitService{}, &stubFinalResultService{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("userId", "7"))
	require.NoError(t, writer.WriteField("mockTestSessionId", "1"))
	require.NoError(t, writer.WriteField("segmentId", "100"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/mock-tests/segments/submit", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMockTestHandlerFinalResultPendingConflict(t *testing.T) {
	finals := &stubFinalResultService{err: &service.PendingSegmentsError{
		SegmentIDs: []uint{101, 102},
		Progress:   dto.Progress{TotalSegments: 5, CompletedSegments: 3, PendingSegments: 2},
	}}
	app := newTestApp(&stubMockTestService{}, &stubSubmitService{}, finals)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/mock-tests/sessions/1/result?userId=7", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	success, data := decodeEnvelope(t, resp)
	require.False(t, success)
	require.Len(t, data["pendingSegmentIds"], 2)
}

func TestMockTestHandlerProgressRejectsBadParams(t *testing.T) {
	app := newTestApp(&stubMockTestService{}, &stubSubmitService{}, &stubFinalResultService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/mock-tests/sessions/abc/progress?userId=7", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/mock-tests/sessions/1/progress", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
