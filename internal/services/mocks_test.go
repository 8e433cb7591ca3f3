package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/doldari/api/internal/clients/address"
	"github.com/doldari/api/internal/clients/llm"
	"github.com/doldari/api/internal/clients/registry"
	"github.com/doldari/api/internal/models"
)

// MockCaseRepository is a mock implementation of CaseRepository for testing
type MockCaseRepository struct {
	mock.Mock
}

func (m *MockCaseRepository) Create(ctx context.Context, userID string) (*models.Case, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Case), args.Error(1)
}

func (m *MockCaseRepository) GetForUser(ctx context.Context, caseID, userID string) (*models.Case, error) {
	args := m.Called(ctx, caseID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Case), args.Error(1)
}

func (m *MockCaseRepository) Update(ctx context.Context, c *models.Case) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

// MockArtifactRepository is a mock implementation of ArtifactRepository for testing
type MockArtifactRepository struct {
	mock.Mock
}

func (m *MockArtifactRepository) Create(ctx context.Context, artifact *models.Artifact) error {
	args := m.Called(ctx, artifact)
	return args.Error(0)
}

func (m *MockArtifactRepository) AttachParse(ctx context.Context, artifactID string, parse *models.ParseRecord) error {
	args := m.Called(ctx, artifactID, parse)
	return args.Error(0)
}

func (m *MockArtifactRepository) LatestRegistry(ctx context.Context, caseID string) (*models.Artifact, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Artifact), args.Error(1)
}

// MockReportRepository is a mock implementation of ReportRepository for testing
type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Append(ctx context.Context, report *models.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportRepository) Latest(ctx context.Context, caseID string) (*models.Report, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockReportRepository) ByVersion(ctx context.Context, caseID string, version int) (*models.Report, error) {
	args := m.Called(ctx, caseID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockReportRepository) ListSummaries(ctx context.Context, caseID string) ([]models.Report, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Report), args.Error(1)
}

// MockAddressResolver is a mock implementation of address.Resolver for testing
type MockAddressResolver struct {
	mock.Mock
}

func (m *MockAddressResolver) Resolve(ctx context.Context, query string) ([]address.ResolvedAddress, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]address.ResolvedAddress), args.Error(1)
}

// MockRegistrySource is a mock implementation of registry.Source for testing
type MockRegistrySource struct {
	mock.Mock
}

func (m *MockRegistrySource) Parse(ctx context.Context, fileRef string) (*registry.ParseOutcome, error) {
	args := m.Called(ctx, fileRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registry.ParseOutcome), args.Error(1)
}

// MockMarketSource is a mock implementation of market.Source for testing
type MockMarketSource struct {
	mock.Mock
}

func (m *MockMarketSource) Fetch(ctx context.Context, legalDongCd string, window time.Duration, areaSqm float64) (*models.MarketData, error) {
	args := m.Called(ctx, legalDongCd, window, areaSqm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MarketData), args.Error(1)
}

// MockTextGenerator is a canned implementation of llm.TextGenerator for
// testing. It fires a couple of progress callbacks before returning its text.
type MockTextGenerator struct {
	ModelName string
	Text      string
	Err       error
}

func (m *MockTextGenerator) Model() string {
	return m.ModelName
}

func (m *MockTextGenerator) Generate(ctx context.Context, system, user string, onProgress llm.ProgressFunc) (*llm.Generation, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if onProgress != nil {
		onProgress(len(m.Text) / 2)
		onProgress(len(m.Text))
	}
	return &llm.Generation{
		Text:   m.Text,
		Model:  m.ModelName,
		Tokens: len(m.Text) / 4,
	}, nil
}
