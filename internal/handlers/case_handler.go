package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/doldari/api/internal/errors"
	"github.com/doldari/api/internal/models"
	"github.com/doldari/api/internal/services"
)

// UserIDHeader carries the authenticated user id, injected by the gateway.
// Authentication itself is an upstream concern; the core only requires that
// every request is scoped to a user.
const UserIDHeader = "X-User-ID"

// CaseHandler handles case lifecycle HTTP requests.
type CaseHandler struct {
	service services.CaseService
}

// NewCaseHandler creates a new CaseHandler instance.
func NewCaseHandler(service services.CaseService) *CaseHandler {
	return &CaseHandler{service: service}
}

// ConfirmAddressRequest is the body for the confirm-address endpoint.
type ConfirmAddressRequest struct {
	RoadAddress  string   `json:"roadAddress" binding:"required"`
	LotAddress   string   `json:"lotAddress"`
	Province     string   `json:"province"`
	District     string   `json:"district"`
	LegalDongCd  string   `json:"legalDongCd"`
	BuildingCd   string   `json:"buildingCd"`
	RoadCd       string   `json:"roadCd"`
	Detail       *string  `json:"detail"`
	FloorNo      *int     `json:"floorNo"`
	AreaSqm      *float64 `json:"areaSqm"`
	PropertyType string   `json:"propertyType" binding:"required,oneof=apartment villa"`
}

// ContractTermsRequest is the body for the contract-terms endpoint.
type ContractTermsRequest struct {
	ContractType   string `json:"contractType" binding:"required,oneof=jeonse semi_jeonse monthly purchase"`
	ContractAmount int64  `json:"contractAmount" binding:"required,gt=0"`
	MonthlyRent    int64  `json:"monthlyRent" binding:"gte=0"`
}

// AttachRegistryRequest is the body for the registry-document endpoint.
type AttachRegistryRequest struct {
	Source  string `json:"source" binding:"required,oneof=upload issued"`
	FileRef string `json:"fileRef" binding:"required"`
}

// CaseResponse is the API representation of a case.
type CaseResponse struct {
	Case *CaseData `json:"case"`
}

// CaseData is the case DTO returned to clients. A client that lost its
// analysis stream can recover the latest report id from here.
type CaseData struct {
	ID             string            `json:"id"`
	State          string            `json:"state"`
	Address        *models.Address   `json:"address,omitempty"`
	PropertyType   string            `json:"propertyType,omitempty"`
	ContractType   string            `json:"contractType,omitempty"`
	ContractAmount *int64            `json:"contractAmount,omitempty"`
	MonthlyRent    *int64            `json:"monthlyRent,omitempty"`
	Flags          map[string]string `json:"flags,omitempty"`
	LatestReportID string            `json:"latestReportId,omitempty"`
}

// Create handles POST /api/v1/cases.
func (h *CaseHandler) Create(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	created, err := h.service.CreateCase(c.Request.Context(), userID)
	if err != nil {
		apierrors.InternalServerError(c, "Failed to create case", err)
		return
	}
	c.JSON(http.StatusCreated, CaseResponse{Case: mapCaseToDTO(created)})
}

// Get handles GET /api/v1/cases/:id.
func (h *CaseHandler) Get(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	found, err := h.service.GetCase(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, CaseResponse{Case: mapCaseToDTO(found)})
}

// StartAddressSearch handles POST /api/v1/cases/:id/address-search.
func (h *CaseHandler) StartAddressSearch(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	updated, err := h.service.StartAddressSearch(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, CaseResponse{Case: mapCaseToDTO(updated)})
}

// SearchAddresses handles GET /api/v1/cases/:id/address/candidates.
func (h *CaseHandler) SearchAddresses(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}
	query := c.Query("q")
	if query == "" {
		apierrors.BadRequest(c, "Missing query parameter 'q'", nil)
		return
	}

	candidates, err := h.service.SearchAddresses(c.Request.Context(), c.Param("id"), userID, query)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": candidates})
}

// ConfirmAddress handles POST /api/v1/cases/:id/address.
func (h *CaseHandler) ConfirmAddress(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	var req ConfirmAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	addr := models.Address{
		RoadAddress: req.RoadAddress,
		LotAddress:  req.LotAddress,
		Province:    req.Province,
		District:    req.District,
		LegalDongCd: req.LegalDongCd,
		BuildingCd:  req.BuildingCd,
		RoadCd:      req.RoadCd,
		Detail:      req.Detail,
		FloorNo:     req.FloorNo,
		AreaSqm:     req.AreaSqm,
	}

	updated, err := h.service.ConfirmAddress(c.Request.Context(), c.Param("id"), userID, addr, models.PropertyType(req.PropertyType))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, CaseResponse{Case: mapCaseToDTO(updated)})
}

// SetContractTerms handles POST /api/v1/cases/:id/contract.
func (h *CaseHandler) SetContractTerms(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	var req ContractTermsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	updated, err := h.service.SetContractTerms(c.Request.Context(), c.Param("id"), userID,
		models.ContractType(req.ContractType), req.ContractAmount, req.MonthlyRent)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, CaseResponse{Case: mapCaseToDTO(updated)})
}

// AttachRegistry handles POST /api/v1/cases/:id/registry.
func (h *CaseHandler) AttachRegistry(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	var req AttachRegistryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	updated, err := h.service.AttachRegistry(c.Request.Context(), c.Param("id"), userID,
		models.ArtifactSource(req.Source), req.FileRef)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, CaseResponse{Case: mapCaseToDTO(updated)})
}

// ParseRegistry handles POST /api/v1/cases/:id/registry/parse.
func (h *CaseHandler) ParseRegistry(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	updated, err := h.service.ParseRegistry(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, CaseResponse{Case: mapCaseToDTO(updated)})
}

// UpdateFields handles PATCH /api/v1/cases/:id. The body is a camelCase
// field map checked against the fixed allow-list; unknown fields fail the
// request rather than being dropped.
func (h *CaseHandler) UpdateFields(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		bindError(c, err)
		return
	}

	updated, err := h.service.UpdateFields(c.Request.Context(), c.Param("id"), userID, fields)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, CaseResponse{Case: mapCaseToDTO(updated)})
}

// ResetFromError handles POST /api/v1/cases/:id/reset.
func (h *CaseHandler) ResetFromError(c *gin.Context) {
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	updated, err := h.service.ResetFromError(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, CaseResponse{Case: mapCaseToDTO(updated)})
}

// respondServiceError maps service-level errors to HTTP responses.
func (h *CaseHandler) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCaseNotFound):
		apierrors.NotFound(c, "Case not found")
	case errors.Is(err, services.ErrInvalidTransition):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidFields), errors.Is(err, services.ErrRegistryNotReady):
		apierrors.BadRequest(c, err.Error(), nil)
	default:
		apierrors.InternalServerError(c, "Failed to process case request", err)
	}
}

// requireUserID extracts the authenticated user id or fails the request.
func requireUserID(c *gin.Context) string {
	userID := c.GetHeader(UserIDHeader)
	if userID == "" {
		apierrors.BadRequest(c, "Missing user identity", nil)
	}
	return userID
}

// bindError responds to a JSON binding failure, distinguishing validation
// errors from malformed payloads.
func bindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		apierrors.ValidationError(c, validationErrors)
		return
	}
	apierrors.BadRequest(c, "Invalid request body", nil)
}

// mapCaseToDTO converts a Case model to its API DTO.
func mapCaseToDTO(m *models.Case) *CaseData {
	if m == nil {
		return nil
	}
	dto := &CaseData{
		ID:             m.ID,
		State:          string(m.State),
		Address:        m.Address,
		ContractAmount: m.ContractAmount,
		MonthlyRent:    m.MonthlyRent,
		Flags:          m.Flags,
	}
	if m.PropertyType != nil {
		dto.PropertyType = string(*m.PropertyType)
	}
	if m.ContractType != nil {
		dto.ContractType = string(*m.ContractType)
	}
	if m.LatestReportID != nil {
		dto.LatestReportID = *m.LatestReportID
	}
	return dto
}
