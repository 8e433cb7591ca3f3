package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/doldari/api/internal/logger"
	"github.com/doldari/api/internal/models"
	"github.com/doldari/api/internal/repository"
)

// ErrReportNotFound is returned when a case has no report at the requested
// version (or none at all).
var ErrReportNotFound = errors.New("report not found")

// ReportService defines read access to generated reports. Reports are
// created only by the analysis pipeline; this service never writes.
type ReportService interface {
	// Latest returns the newest report for the user's case.
	Latest(ctx context.Context, caseID, userID string) (*models.Report, error)

	// ByVersion returns a specific report version for the user's case.
	ByVersion(ctx context.Context, caseID, userID string, version int) (*models.Report, error)

	// List returns the denormalized summaries of all versions, newest first.
	List(ctx context.Context, caseID, userID string) ([]models.Report, error)
}

// reportService is the concrete implementation of ReportService.
type reportService struct {
	cases   repository.CaseRepository
	reports repository.ReportRepository
	log     *logger.Logger
}

// NewReportService creates a new instance of ReportService.
func NewReportService(cases repository.CaseRepository, reports repository.ReportRepository, log *logger.Logger) ReportService {
	return &reportService{cases: cases, reports: reports, log: log}
}

// Latest returns the newest report, after checking case ownership.
func (s *reportService) Latest(ctx context.Context, caseID, userID string) (*models.Report, error) {
	if err := s.checkOwnership(ctx, caseID, userID); err != nil {
		return nil, err
	}
	report, err := s.reports.Latest(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest report: %w", err)
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	return report, nil
}

// ByVersion returns one report version, after checking case ownership.
func (s *reportService) ByVersion(ctx context.Context, caseID, userID string, version int) (*models.Report, error) {
	if err := s.checkOwnership(ctx, caseID, userID); err != nil {
		return nil, err
	}
	report, err := s.reports.ByVersion(ctx, caseID, version)
	if err != nil {
		return nil, fmt.Errorf("failed to load report version %d: %w", version, err)
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	return report, nil
}

// List returns report summaries, after checking case ownership.
func (s *reportService) List(ctx context.Context, caseID, userID string) ([]models.Report, error) {
	if err := s.checkOwnership(ctx, caseID, userID); err != nil {
		return nil, err
	}
	reports, err := s.reports.ListSummaries(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// checkOwnership verifies the case exists and belongs to the user. Reports
// inherit the case's row-level isolation through this check.
func (s *reportService) checkOwnership(ctx context.Context, caseID, userID string) error {
	c, err := s.cases.GetForUser(ctx, caseID, userID)
	if err != nil {
		return fmt.Errorf("failed to load case: %w", err)
	}
	if c == nil {
		return ErrCaseNotFound
	}
	return nil
}
