package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apierrors "github.com/doldari/api/internal/errors"
	"github.com/doldari/api/internal/models"
	"github.com/doldari/api/internal/services"
)

// ReportHandler handles read-only report HTTP requests. Reports are written
// exclusively by the analysis pipeline.
type ReportHandler struct {
	service services.ReportService
}

// NewReportHandler creates a new ReportHandler instance.
func NewReportHandler(service services.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// ReportResponse wraps a single full report.
type ReportResponse struct {
	Report *models.Report `json:"report"`
}

// ReportListResponse wraps the summary listing of all report versions.
type ReportListResponse struct {
	Reports []ReportSummaryData `json:"reports"`
}

// ReportSummaryData is the listing DTO: version metadata plus the
// denormalized summary, without the full analysis payload.
type ReportSummaryData struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	Score     int       `json:"score"`
	Grade     string    `json:"grade"`
	Headline  string    `json:"headline"`
	CreatedAt time.Time `json:"createdAt"`
}

// Latest handles GET /api/v1/cases/:id/reports/latest.
func (h *ReportHandler) Latest(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}
	report, err := h.service.Latest(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReportResponse{Report: report})
}

// ByVersion handles GET /api/v1/cases/:id/reports/:version.
func (h *ReportHandler) ByVersion(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		apierrors.BadRequest(c, "Invalid report version", nil)
		return
	}
	report, err := h.service.ByVersion(c.Request.Context(), c.Param("id"), userID, version)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReportResponse{Report: report})
}

// List handles GET /api/v1/cases/:id/reports.
func (h *ReportHandler) List(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}
	reports, err := h.service.List(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	summaries := make([]ReportSummaryData, 0, len(reports))
	for _, r := range reports {
		summaries = append(summaries, ReportSummaryData{
			ID:        r.ID,
			Version:   r.Version,
			Score:     r.Summary.Score,
			Grade:     r.Summary.Grade,
			Headline:  r.Summary.Headline,
			CreatedAt: r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, ReportListResponse{Reports: summaries})
}

// respondServiceError maps report service errors to HTTP responses.
func (h *ReportHandler) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCaseNotFound):
		apierrors.NotFound(c, "Case not found")
	case errors.Is(err, services.ErrReportNotFound):
		apierrors.NotFound(c, "Report not found")
	default:
		apierrors.InternalServerError(c, "Failed to load report", err)
	}
}
