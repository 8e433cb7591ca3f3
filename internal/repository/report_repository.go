package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/doldari/api/internal/database"
	"github.com/doldari/api/internal/models"
)

// ReportRepository defines the interface for report data access. Reports are
// append-only: every analysis run creates a new version and nothing ever
// updates an existing row.
type ReportRepository interface {
	// Append persists a new report with the next version number for its case
	// and fills in the report's id and version.
	Append(ctx context.Context, report *models.Report) error

	// Latest returns the newest report for a case.
	// Returns nil, nil if the case has no reports (not an error).
	Latest(ctx context.Context, caseID string) (*models.Report, error)

	// ByVersion returns a specific report version for a case.
	// Returns nil, nil if the version does not exist (not an error).
	ByVersion(ctx context.Context, caseID string, version int) (*models.Report, error)

	// ListSummaries returns the denormalized summaries of all report versions
	// for a case, newest first.
	ListSummaries(ctx context.Context, caseID string) ([]models.Report, error)
}

// reportRepository is the concrete implementation of ReportRepository.
type reportRepository struct {
	db *database.Database
}

// NewReportRepository creates a new instance of ReportRepository.
func NewReportRepository(db *database.Database) ReportRepository {
	return &reportRepository{db: db}
}

// Append inserts the report with the next version for its case. The version
// subselect and insert run in one statement so concurrent appends for the
// same case cannot allocate the same version.
func (r *reportRepository) Append(ctx context.Context, report *models.Report) error {
	report.ID = uuid.New().String()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	analysisJSON, err := json.Marshal(report.Analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis for case %s: %w", report.CaseID, err)
	}

	query := `
		INSERT INTO reports (id, case_id, version, score, grade, headline, analysis, created_at)
		VALUES (
			$1, $2,
			(SELECT COALESCE(MAX(version), 0) + 1 FROM reports WHERE case_id = $2),
			$3, $4, $5, $6, $7
		)
		RETURNING version
	`
	err = r.db.Pool.QueryRow(ctx, query,
		report.ID,
		report.CaseID,
		report.Summary.Score,
		report.Summary.Grade,
		report.Summary.Headline,
		analysisJSON,
		report.CreatedAt,
	).Scan(&report.Version)
	if err != nil {
		return fmt.Errorf("failed to append report for case %s: %w", report.CaseID, err)
	}
	return nil
}

const reportColumns = `id, case_id, version, score, grade, headline, analysis, created_at`

// Latest fetches the newest report version for a case.
func (r *reportRepository) Latest(ctx context.Context, caseID string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE case_id = $1 ORDER BY version DESC LIMIT 1`
	return r.scanOne(ctx, query, caseID)
}

// ByVersion fetches one specific report version for a case.
func (r *reportRepository) ByVersion(ctx context.Context, caseID string, version int) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE case_id = $1 AND version = $2`
	return r.scanOne(ctx, query, caseID, version)
}

// ListSummaries fetches summary rows for all versions, newest first. The
// analysis payload is not loaded; only the denormalized summary columns.
func (r *reportRepository) ListSummaries(ctx context.Context, caseID string) ([]models.Report, error) {
	query := `
		SELECT id, case_id, version, score, grade, headline, created_at
		FROM reports
		WHERE case_id = $1
		ORDER BY version DESC
	`
	rows, err := r.db.Pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports for case %s: %w", caseID, err)
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		var report models.Report
		if err := rows.Scan(
			&report.ID,
			&report.CaseID,
			&report.Version,
			&report.Summary.Score,
			&report.Summary.Grade,
			&report.Summary.Headline,
			&report.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report rows: %w", err)
	}

	if reports == nil {
		reports = []models.Report{}
	}
	return reports, nil
}

// scanOne runs a single-row report query and hydrates the analysis payload.
func (r *reportRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*models.Report, error) {
	var (
		report       models.Report
		analysisJSON []byte
	)
	err := r.db.Pool.QueryRow(ctx, query, args...).Scan(
		&report.ID,
		&report.CaseID,
		&report.Version,
		&report.Summary.Score,
		&report.Summary.Grade,
		&report.Summary.Headline,
		&analysisJSON,
		&report.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query report: %w", err)
	}

	if len(analysisJSON) > 0 {
		if err := json.Unmarshal(analysisJSON, &report.Analysis); err != nil {
			return nil, fmt.Errorf("failed to parse analysis for report %s: %w", report.ID, err)
		}
	}
	return &report, nil
}
