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

// ArtifactRepository defines the interface for artifact data access.
// Artifacts are immutable once a parse record is attached: re-parsing
// appends a new parse record row, it never mutates an existing one.
type ArtifactRepository interface {
	// Create inserts a new artifact bound to a case.
	Create(ctx context.Context, artifact *models.Artifact) error

	// AttachParse appends a parse record to an artifact. The record gets a
	// fresh id; earlier records for the same artifact are preserved.
	AttachParse(ctx context.Context, artifactID string, parse *models.ParseRecord) error

	// LatestRegistry returns the most recent registry artifact for a case,
	// with its newest parse record attached if one exists.
	// Returns nil, nil if the case has no registry artifact (not an error).
	LatestRegistry(ctx context.Context, caseID string) (*models.Artifact, error)
}

// artifactRepository is the concrete implementation of ArtifactRepository.
type artifactRepository struct {
	db *database.Database
}

// NewArtifactRepository creates a new instance of ArtifactRepository.
func NewArtifactRepository(db *database.Database) ArtifactRepository {
	return &artifactRepository{db: db}
}

// Create inserts a new artifact row.
func (r *artifactRepository) Create(ctx context.Context, artifact *models.Artifact) error {
	if artifact.ID == "" {
		artifact.ID = uuid.New().String()
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO artifacts (id, case_id, kind, source, file_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.Pool.Exec(ctx, query,
		artifact.ID, artifact.CaseID, artifact.Kind, artifact.Source, artifact.FileRef, artifact.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert artifact for case %s: %w", artifact.CaseID, err)
	}
	return nil
}

// AttachParse appends a new parse record for the artifact.
func (r *artifactRepository) AttachParse(ctx context.Context, artifactID string, parse *models.ParseRecord) error {
	parse.ID = uuid.New().String()
	parse.ArtifactID = artifactID
	if parse.ParsedAt.IsZero() {
		parse.ParsedAt = time.Now().UTC()
	}

	registryJSON, err := json.Marshal(parse.Registry)
	if err != nil {
		return fmt.Errorf("failed to marshal registry data for artifact %s: %w", artifactID, err)
	}

	query := `
		INSERT INTO artifact_parses (id, artifact_id, registry, confidence, method, parsed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.Pool.Exec(ctx, query,
		parse.ID, parse.ArtifactID, registryJSON, parse.Confidence, parse.Method, parse.ParsedAt,
	); err != nil {
		return fmt.Errorf("failed to insert parse record for artifact %s: %w", artifactID, err)
	}
	return nil
}

// LatestRegistry fetches the newest registry artifact for a case together
// with its newest parse record.
func (r *artifactRepository) LatestRegistry(ctx context.Context, caseID string) (*models.Artifact, error) {
	query := `
		SELECT id, case_id, kind, source, file_ref, created_at
		FROM artifacts
		WHERE case_id = $1 AND kind = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var artifact models.Artifact
	err := r.db.Pool.QueryRow(ctx, query, caseID, models.ArtifactRegistry).Scan(
		&artifact.ID,
		&artifact.CaseID,
		&artifact.Kind,
		&artifact.Source,
		&artifact.FileRef,
		&artifact.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query registry artifact for case %s: %w", caseID, err)
	}

	parseQuery := `
		SELECT id, artifact_id, registry, confidence, method, parsed_at
		FROM artifact_parses
		WHERE artifact_id = $1
		ORDER BY parsed_at DESC
		LIMIT 1
	`

	var (
		parse        models.ParseRecord
		registryJSON []byte
	)
	err = r.db.Pool.QueryRow(ctx, parseQuery, artifact.ID).Scan(
		&parse.ID,
		&parse.ArtifactID,
		&registryJSON,
		&parse.Confidence,
		&parse.Method,
		&parse.ParsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Not parsed yet; that is a valid artifact state.
			return &artifact, nil
		}
		return nil, fmt.Errorf("failed to query parse record for artifact %s: %w", artifact.ID, err)
	}

	if len(registryJSON) > 0 {
		var registry models.RegistryData
		if err := json.Unmarshal(registryJSON, &registry); err != nil {
			return nil, fmt.Errorf("failed to parse registry data for artifact %s: %w", artifact.ID, err)
		}
		parse.Registry = &registry
	}
	artifact.Parse = &parse

	return &artifact, nil
}
