package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/doldari/api/internal/errors"
	"github.com/doldari/api/internal/middleware"
	"github.com/doldari/api/internal/services"
	"github.com/doldari/api/internal/stream"
)

// AnalysisHandler handles analysis trigger and streaming endpoints.
type AnalysisHandler struct {
	service services.AnalysisService
}

// NewAnalysisHandler creates a new AnalysisHandler instance.
func NewAnalysisHandler(service services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

// StartResponse is the response for the non-streaming trigger endpoint.
type StartResponse struct {
	CaseID  string `json:"caseId"`
	Started bool   `json:"started"`
}

// Start handles POST /api/v1/cases/:id/analysis. It launches the pipeline
// without attaching a listener; the client polls the case (or opens the
// stream endpoint) to follow progress. Useful for clients that cannot hold
// an SSE connection open.
func (h *AnalysisHandler) Start(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	run, err := h.service.Start(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.respondStartError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, StartResponse{CaseID: run.CaseID, Started: true})
}

// Stream handles GET /api/v1/cases/:id/analysis/stream. It launches the
// pipeline with an SSE sink attached and holds the connection open until the
// terminal event or a client disconnect. A disconnect does not stop the
// pipeline; the run continues and persists its outcome, and the client can
// recover the report id by polling the case.
func (h *AnalysisHandler) Stream(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}
	log := middleware.GetLogger(c)

	stream.SetSSEHeaders(c.Writer)
	writer, err := stream.NewSSEWriter(c.Writer)
	if err != nil {
		apierrors.InternalServerError(c, "Streaming is not supported on this connection", err)
		return
	}

	// The run outlives this handler, but gin recycles c.Writer the moment the
	// handler returns. The guard cuts the pipeline off from the writer before
	// that happens; dropped events are recovered by polling the case.
	guard := stream.NewDetachable(writer)
	defer guard.Detach()

	run, err := h.service.Start(c.Request.Context(), c.Param("id"), userID, guard)
	if err != nil {
		// Headers are already committed to text/event-stream, so the failure
		// goes out as a terminal error frame rather than a JSON response.
		_ = writer.Write(stream.Event{
			Step:    1,
			Message: startErrorMessage(err),
			Error:   startErrorMessage(err),
		})
		return
	}

	select {
	case <-run.Done():
	case <-c.Request.Context().Done():
		if log != nil {
			log.Info("Analysis stream listener detached", map[string]interface{}{
				"case_id": run.CaseID,
			})
		}
	}
}

// respondStartError maps analysis start errors to HTTP responses.
func (h *AnalysisHandler) respondStartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCaseNotFound):
		apierrors.NotFound(c, "Case not found")
	case errors.Is(err, services.ErrAnalysisInFlight):
		apierrors.Conflict(c, "An analysis run is already in progress for this case")
	case errors.Is(err, services.ErrCaseNotReady):
		apierrors.BadRequest(c, err.Error(), nil)
	default:
		apierrors.InternalServerError(c, "Failed to start analysis", err)
	}
}

// startErrorMessage renders a start failure as a display-safe message.
func startErrorMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrCaseNotFound):
		return "사례를 찾을 수 없습니다."
	case errors.Is(err, services.ErrAnalysisInFlight):
		return "이미 분석이 진행 중입니다."
	case errors.Is(err, services.ErrCaseNotReady):
		return "아직 분석을 시작할 수 없는 단계입니다."
	default:
		return "분석을 시작하지 못했습니다."
	}
}
