package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/doldari/api/internal/clients/address"
	"github.com/doldari/api/internal/logger"
	"github.com/doldari/api/internal/middleware"
	"github.com/doldari/api/internal/models"
	"github.com/doldari/api/internal/services"
)

// MockCaseService is a mock implementation of services.CaseService for testing
type MockCaseService struct {
	mock.Mock
}

func (m *MockCaseService) CreateCase(ctx context.Context, userID string) (*models.Case, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Case), args.Error(1)
}

func (m *MockCaseService) GetCase(ctx context.Context, caseID, userID string) (*models.Case, error) {
	args := m.Called(ctx, caseID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Case), args.Error(1)
}

func (m *MockCaseService) StartAddressSearch(ctx context.Context, caseID, userID string) (*models.Case, error) {
	args := m.Called(ctx, caseID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Case), args.Error(1)
}

func (m *MockCaseService) SearchAddresses(ctx context.Context, caseID, userID, query string) ([]address.ResolvedAddress, error) {
	args := m.Called(ctx, caseID, userID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]address.ResolvedAddress), args.Error(1)
}

func (m *MockCaseService) ConfirmAddress(ctx context.Context, caseID, userID string, addr models.Address, propertyType models.PropertyType) (*models.Case, error) {
	args := m.Called(ctx, caseID, userID, addr, propertyType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Case), args.Error(1)
}

func (m *MockCaseService) SetContractTerms(ctx context.Context, caseID, userID string, contractType models.ContractType, amount int64, monthlyRent int64) (*models.Case, error) {
	args := m.Called(ctx, caseID, userID, contractType, amount, monthlyRent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Case), args.Error(1)
}

func (m *MockCaseService) AttachRegistry(ctx context.Context, caseID, userID string, source models.ArtifactSource, fileRef string) (*models.Case, error) {
	args := m.Called(ctx, caseID, userID, source, fileRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Case), args.Error(1)
}

func (m *MockCaseService) ParseRegistry(ctx context.Context, caseID, userID string) (*models.Case, error) {
	args := m.Called(ctx, caseID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Case), args.Error(1)
}

func (m *MockCaseService) UpdateFields(ctx context.Context, caseID, userID string, fields map[string]interface{}) (*models.Case, error) {
	args := m.Called(ctx, caseID, userID, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Case), args.Error(1)
}

func (m *MockCaseService) ResetFromError(ctx context.Context, caseID, userID string) (*models.Case, error) {
	args := m.Called(ctx, caseID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Case), args.Error(1)
}

// setupCaseTestRouter creates a test router with middleware and case handlers.
func setupCaseTestRouter(handler *CaseHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	log := logger.New("test")
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))

	v1 := router.Group("/api/v1")
	{
		cases := v1.Group("/cases")
		{
			cases.POST("", handler.Create)
			cases.GET("/:id", handler.Get)
			cases.PATCH("/:id", handler.UpdateFields)
			cases.POST("/:id/address-search", handler.StartAddressSearch)
			cases.GET("/:id/address/candidates", handler.SearchAddresses)
			cases.POST("/:id/address", handler.ConfirmAddress)
			cases.POST("/:id/contract", handler.SetContractTerms)
			cases.POST("/:id/registry", handler.AttachRegistry)
			cases.POST("/:id/registry/parse", handler.ParseRegistry)
			cases.POST("/:id/reset", handler.ResetFromError)
		}
	}
	return router
}

func handlerTestCase(state models.CaseState) *models.Case {
	return &models.Case{
		ID:            "case-1",
		UserID:        "user-1",
		State:         state,
		LastGoodState: state,
	}
}

func doJSON(router *gin.Engine, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateCase_Handler(t *testing.T) {
	// Arrange
	service := new(MockCaseService)
	router := setupCaseTestRouter(NewCaseHandler(service))
	service.On("CreateCase", mock.Anything, "user-1").Return(handlerTestCase(models.StateInit), nil)

	// Act
	w := doJSON(router, http.MethodPost, "/api/v1/cases", "user-1", nil)

	// Assert
	assert.Equal(t, http.StatusCreated, w.Code)
	var resp CaseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "case-1", resp.Case.ID)
	assert.Equal(t, "init", resp.Case.State)
}

func TestCreateCase_MissingUserHeader(t *testing.T) {
	service := new(MockCaseService)
	router := setupCaseTestRouter(NewCaseHandler(service))

	w := doJSON(router, http.MethodPost, "/api/v1/cases", "", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "CreateCase", mock.Anything, mock.Anything)
}

func TestGetCase_Handler_NotFound(t *testing.T) {
	service := new(MockCaseService)
	router := setupCaseTestRouter(NewCaseHandler(service))
	service.On("GetCase", mock.Anything, "case-9", "user-1").Return(nil, services.ErrCaseNotFound)

	w := doJSON(router, http.MethodGet, "/api/v1/cases/case-9", "user-1", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchAddresses_Handler(t *testing.T) {
	service := new(MockCaseService)
	router := setupCaseTestRouter(NewCaseHandler(service))
	service.On("SearchAddresses", mock.Anything, "case-1", "user-1", "월드컵북로").Return([]address.ResolvedAddress{
		{RoadAddress: "서울특별시 마포구 월드컵북로 396"},
	}, nil)

	w := doJSON(router, http.MethodGet, "/api/v1/cases/case-1/address/candidates?q=%EC%9B%94%EB%93%9C%EC%BB%B5%EB%B6%81%EB%A1%9C", "user-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "월드컵북로 396")
}

func TestSearchAddresses_Handler_MissingQuery(t *testing.T) {
	service := new(MockCaseService)
	router := setupCaseTestRouter(NewCaseHandler(service))

	w := doJSON(router, http.MethodGet, "/api/v1/cases/case-1/address/candidates", "user-1", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmAddress_Handler(t *testing.T) {
	service := new(MockCaseService)
	router := setupCaseTestRouter(NewCaseHandler(service))
	updated := handlerTestCase(models.StateContractType)
	service.On("ConfirmAddress", mock.Anything, "case-1", "user-1", mock.AnythingOfType("models.Address"), models.PropertyApartment).
		Return(updated, nil)

	w := doJSON(router, http.MethodPost, "/api/v1/cases/case-1/address", "user-1", ConfirmAddressRequest{
		RoadAddress:  "서울특별시 송파구 올림픽로 300",
		Province:     "서울특별시",
		District:     "송파구",
		PropertyType: "apartment",
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConfirmAddress_Handler_InvalidPropertyType(t *testing.T) {
	service := new(MockCaseService)
	router := setupCaseTestRouter(NewCaseHandler(service))

	w := doJSON(router, http.MethodPost, "/api/v1/cases/case-1/address", "user-1", map[string]interface{}{
		"roadAddress":  "서울특별시 송파구 올림픽로 300",
		"propertyType": "castle",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "ConfirmAddress", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetContractTerms_Handler_InvalidType(t *testing.T) {
	service := new(MockCaseService)
	router := setupCaseTestRouter(NewCaseHandler(service))

	w := doJSON(router, http.MethodPost, "/api/v1/cases/case-1/contract", "user-1", map[string]interface{}{
		"contractType":   "timeshare",
		"contractAmount": 300000000,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetContractTerms_Handler_OutOfOrderIsConflict(t *testing.T) {
	// The service reports an out-of-order step; the handler maps it to 409.
	service := new(MockCaseService)
	router := setupCaseTestRouter(NewCaseHandler(service))
	service.On("SetContractTerms", mock.Anything, "case-1", "user-1", models.ContractJeonse, int64(300000000), int64(0)).
		Return(nil, services.ErrInvalidTransition)

	w := doJSON(router, http.MethodPost, "/api/v1/cases/case-1/contract", "user-1", ContractTermsRequest{
		ContractType:   "jeonse",
		ContractAmount: 300000000,
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAttachRegistry_Handler(t *testing.T) {
	service := new(MockCaseService)
	router := setupCaseTestRouter(NewCaseHandler(service))
	service.On("AttachRegistry", mock.Anything, "case-1", "user-1", models.SourceIssued, "s3://docs/r.pdf").
		Return(handlerTestCase(models.StateRegistryReady), nil)

	w := doJSON(router, http.MethodPost, "/api/v1/cases/case-1/registry", "user-1", AttachRegistryRequest{
		Source:  "issued",
		FileRef: "s3://docs/r.pdf",
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParseRegistry_Handler_NotReady(t *testing.T) {
	service := new(MockCaseService)
	router := setupCaseTestRouter(NewCaseHandler(service))
	service.On("ParseRegistry", mock.Anything, "case-1", "user-1").Return(nil, services.ErrRegistryNotReady)

	w := doJSON(router, http.MethodPost, "/api/v1/cases/case-1/registry/parse", "user-1", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateFields_Handler(t *testing.T) {
	service := new(MockCaseService)
	router := setupCaseTestRouter(NewCaseHandler(service))
	service.On("UpdateFields", mock.Anything, "case-1", "user-1", mock.Anything).
		Return(handlerTestCase(models.StateAddressPick), nil)

	w := doJSON(router, http.MethodPatch, "/api/v1/cases/case-1", "user-1", map[string]interface{}{
		"areaSqm": 84.9,
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResetFromError_Handler(t *testing.T) {
	service := new(MockCaseService)
	router := setupCaseTestRouter(NewCaseHandler(service))
	service.On("ResetFromError", mock.Anything, "case-1", "user-1").
		Return(handlerTestCase(models.StateRegistryReady), nil)

	w := doJSON(router, http.MethodPost, "/api/v1/cases/case-1/reset", "user-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp CaseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "registry_ready", resp.Case.State)
}
