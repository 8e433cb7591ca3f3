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

// CaseRepository defines the interface for case data access operations.
// Every read and write is scoped by user id so one user can never reach
// another user's cases.
type CaseRepository interface {
	// Create inserts a new case in the init state and returns it.
	Create(ctx context.Context, userID string) (*models.Case, error)

	// GetForUser returns the case with the given id if it belongs to the user.
	// Returns nil, nil if no such case exists (not an error).
	GetForUser(ctx context.Context, caseID, userID string) (*models.Case, error)

	// Update persists the mutable columns of the case (state, address,
	// contract terms, flags, latest report id).
	Update(ctx context.Context, c *models.Case) error
}

// caseRepository is the concrete implementation of CaseRepository.
type caseRepository struct {
	db *database.Database
}

// NewCaseRepository creates a new instance of CaseRepository.
func NewCaseRepository(db *database.Database) CaseRepository {
	return &caseRepository{db: db}
}

const caseColumns = `
	id,
	user_id,
	state,
	last_good_state,
	address,
	property_type,
	contract_type,
	contract_amount,
	monthly_rent,
	flags,
	latest_report_id,
	created_at,
	updated_at
`

// Create inserts a fresh case for the user.
func (r *caseRepository) Create(ctx context.Context, userID string) (*models.Case, error) {
	now := time.Now().UTC()
	c := &models.Case{
		ID:            uuid.New().String(),
		UserID:        userID,
		State:         models.StateInit,
		LastGoodState: models.StateInit,
		Flags:         map[string]string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	flagsJSON, err := json.Marshal(c.Flags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal case flags: %w", err)
	}

	query := `
		INSERT INTO cases (id, user_id, state, last_good_state, flags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.Pool.Exec(ctx, query,
		c.ID, c.UserID, c.State, c.LastGoodState, flagsJSON, c.CreatedAt, c.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to insert case for user %s: %w", userID, err)
	}

	return c, nil
}

// GetForUser fetches one case scoped to its owner.
func (r *caseRepository) GetForUser(ctx context.Context, caseID, userID string) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1 AND user_id = $2`

	var (
		c            models.Case
		addressJSON  []byte
		flagsJSON    []byte
		propertyType *string
		contractType *string
	)

	err := r.db.Pool.QueryRow(ctx, query, caseID, userID).Scan(
		&c.ID,
		&c.UserID,
		&c.State,
		&c.LastGoodState,
		&addressJSON,
		&propertyType,
		&contractType,
		&c.ContractAmount,
		&c.MonthlyRent,
		&flagsJSON,
		&c.LatestReportID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query case %s: %w", caseID, err)
	}

	if len(addressJSON) > 0 {
		var addr models.Address
		if err := json.Unmarshal(addressJSON, &addr); err != nil {
			return nil, fmt.Errorf("failed to parse address for case %s: %w", caseID, err)
		}
		c.Address = &addr
	}
	if len(flagsJSON) > 0 {
		if err := json.Unmarshal(flagsJSON, &c.Flags); err != nil {
			return nil, fmt.Errorf("failed to parse flags for case %s: %w", caseID, err)
		}
	}
	if c.Flags == nil {
		c.Flags = map[string]string{}
	}
	if propertyType != nil {
		pt := models.PropertyType(*propertyType)
		c.PropertyType = &pt
	}
	if contractType != nil {
		ct := models.ContractType(*contractType)
		c.ContractType = &ct
	}

	return &c, nil
}

// Update writes back the mutable columns of a case, still scoped by owner.
func (r *caseRepository) Update(ctx context.Context, c *models.Case) error {
	var addressJSON []byte
	if c.Address != nil {
		data, err := json.Marshal(c.Address)
		if err != nil {
			return fmt.Errorf("failed to marshal address for case %s: %w", c.ID, err)
		}
		addressJSON = data
	}
	flagsJSON, err := json.Marshal(c.Flags)
	if err != nil {
		return fmt.Errorf("failed to marshal flags for case %s: %w", c.ID, err)
	}

	query := `
		UPDATE cases
		SET state = $3,
			last_good_state = $4,
			address = $5,
			property_type = $6,
			contract_type = $7,
			contract_amount = $8,
			monthly_rent = $9,
			flags = $10,
			latest_report_id = $11,
			updated_at = $12
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.db.Pool.Exec(ctx, query,
		c.ID,
		c.UserID,
		c.State,
		c.LastGoodState,
		addressJSON,
		(*string)(c.PropertyType),
		(*string)(c.ContractType),
		c.ContractAmount,
		c.MonthlyRent,
		flagsJSON,
		c.LatestReportID,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update case %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("case %s not found for user %s", c.ID, c.UserID)
	}
	return nil
}
