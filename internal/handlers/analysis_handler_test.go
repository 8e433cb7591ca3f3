package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doldari/api/internal/logger"
	"github.com/doldari/api/internal/middleware"
	"github.com/doldari/api/internal/services"
	"github.com/doldari/api/internal/stream"
)

// fakeAnalysisService replays a canned event sequence into any attached sink.
// A testify mock is awkward with the variadic sink parameter, so this is a
// plain fake.
type fakeAnalysisService struct {
	events []stream.Event
	err    error
	calls  int
}

func (f *fakeAnalysisService) Start(ctx context.Context, caseID, userID string, sinks ...stream.Sink) (*services.Run, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, sink := range sinks {
		for _, ev := range f.events {
			_ = sink.Write(ev)
		}
	}
	return &services.Run{CaseID: caseID}, nil
}

func setupAnalysisTestRouter(service services.AnalysisService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	log := logger.New("test")
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))

	handler := NewAnalysisHandler(service)
	v1 := router.Group("/api/v1")
	{
		cases := v1.Group("/cases")
		{
			cases.POST("/:id/analysis", handler.Start)
			cases.GET("/:id/analysis/stream", handler.Stream)
		}
	}
	return router
}

func TestStartAnalysis_Handler(t *testing.T) {
	// Arrange
	service := &fakeAnalysisService{}
	router := setupAnalysisTestRouter(service)

	// Act
	w := doJSON(router, http.MethodPost, "/api/v1/cases/case-1/analysis", "user-1", nil)

	// Assert
	assert.Equal(t, http.StatusAccepted, w.Code)
	var resp StartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "case-1", resp.CaseID)
	assert.True(t, resp.Started)
	assert.Equal(t, 1, service.calls)
}

func TestStartAnalysis_Handler_MissingUserHeader(t *testing.T) {
	service := &fakeAnalysisService{}
	router := setupAnalysisTestRouter(service)

	w := doJSON(router, http.MethodPost, "/api/v1/cases/case-1/analysis", "", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, service.calls)
}

func TestStartAnalysis_Handler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"case not found", services.ErrCaseNotFound, http.StatusNotFound},
		{"already running", services.ErrAnalysisInFlight, http.StatusConflict},
		{"case not ready", services.ErrCaseNotReady, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &fakeAnalysisService{err: tt.serviceErr}
			router := setupAnalysisTestRouter(service)

			w := doJSON(router, http.MethodPost, "/api/v1/cases/case-1/analysis", "user-1", nil)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

// streamRequest serves a stream request whose context is already cancelled,
// so the handler's wait returns as soon as the fake has written its frames.
func streamRequest(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(UserIDHeader, "user-1")
	ctx, cancel := context.WithCancel(req.Context())
	cancel()
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStreamAnalysis_Handler(t *testing.T) {
	// Arrange
	service := &fakeAnalysisService{events: []stream.Event{
		{Step: 1, Message: "사례 정보를 불러오는 중...", Progress: 0.05, Phase: stream.PhaseCaseLoading},
		{Step: 2, Message: "등기부등본을 분석하는 중...", Progress: 0.2, Phase: stream.PhaseRegistryParsing},
		{Step: 3, Message: "분석이 완료되었습니다.", Progress: 1.0, Phase: stream.PhaseCompletion, Done: true, ReportID: "report-1"},
	}}
	router := setupAnalysisTestRouter(service)

	// Act
	w := streamRequest(router, "/api/v1/cases/case-1/analysis/stream")

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))

	frames := parseSSEFrames(t, w.Body.String())
	require.Len(t, frames, 3)
	assert.Equal(t, stream.PhaseCaseLoading, frames[0].Phase)
	assert.True(t, frames[2].Done)
	assert.Equal(t, "report-1", frames[2].ReportID)
}

func TestStreamAnalysis_Handler_StartFailureIsTerminalFrame(t *testing.T) {
	// Headers are committed before the service is invoked, so a start failure
	// must surface as a terminal error frame inside the stream body.
	service := &fakeAnalysisService{err: services.ErrAnalysisInFlight}
	router := setupAnalysisTestRouter(service)

	w := streamRequest(router, "/api/v1/cases/case-1/analysis/stream")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	frames := parseSSEFrames(t, w.Body.String())
	require.Len(t, frames, 1)
	assert.Equal(t, "이미 분석이 진행 중입니다.", frames[0].Error)
}

// sinkCapturingService records the sink the handler hands to Start so the
// test can keep writing to it after the handler has returned, the way the
// detached pipeline does after a client disconnect.
type sinkCapturingService struct {
	sink stream.Sink
}

func (f *sinkCapturingService) Start(ctx context.Context, caseID, userID string, sinks ...stream.Sink) (*services.Run, error) {
	f.sink = sinks[0]
	_ = f.sink.Write(stream.Event{Step: 1, Message: "사례 정보를 불러오는 중...", Progress: 0.05, Phase: stream.PhaseCaseLoading})
	return &services.Run{CaseID: caseID}, nil
}

func TestStreamAnalysis_Handler_PipelineWritesAfterDisconnect(t *testing.T) {
	// Arrange
	service := &sinkCapturingService{}
	router := setupAnalysisTestRouter(service)

	// Act: the client disconnects and the handler returns, but the pipeline
	// keeps emitting into the sink it was given.
	w := streamRequest(router, "/api/v1/cases/case-1/analysis/stream")
	require.NotNil(t, service.sink)
	bodyAtReturn := w.Body.String()

	err := service.sink.Write(stream.Event{Step: 2, Message: "late", Progress: 0.5, Phase: stream.PhasePublicData})

	// Assert: the late write is silently dropped, never reaching the
	// recycled response writer.
	assert.NoError(t, err)
	assert.Equal(t, bodyAtReturn, w.Body.String())

	frames := parseSSEFrames(t, bodyAtReturn)
	require.Len(t, frames, 1)
	assert.Equal(t, 1, frames[0].Step)
}

func TestStreamAnalysis_Handler_MissingUserHeader(t *testing.T) {
	service := &fakeAnalysisService{}
	router := setupAnalysisTestRouter(service)

	w := doJSON(router, http.MethodGet, "/api/v1/cases/case-1/analysis/stream", "", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, service.calls)
}

func parseSSEFrames(t *testing.T, body string) []stream.Event {
	t.Helper()

	var events []stream.Event
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev stream.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}
