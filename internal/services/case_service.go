package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/doldari/api/internal/clients/address"
	"github.com/doldari/api/internal/clients/registry"
	"github.com/doldari/api/internal/logger"
	"github.com/doldari/api/internal/mapping"
	"github.com/doldari/api/internal/models"
	"github.com/doldari/api/internal/repository"
	"github.com/doldari/api/internal/staterules"
)

// Service-level errors.
var (
	ErrCaseNotFound      = errors.New("case not found")
	ErrInvalidTransition = errors.New("requested step is not allowed in the current case state")
	ErrInvalidFields     = errors.New("invalid case fields")
	ErrRegistryNotReady  = errors.New("registry document is not attached")
)

// CaseService defines the interface for case lifecycle operations. Every
// mutation goes through the state machine; there is no way to move a case
// forward without satisfying the entry precondition of the next state.
type CaseService interface {
	// CreateCase creates a new case in the init state.
	CreateCase(ctx context.Context, userID string) (*models.Case, error)

	// GetCase returns a user's case, or ErrCaseNotFound.
	GetCase(ctx context.Context, caseID, userID string) (*models.Case, error)

	// StartAddressSearch advances init -> address_pick.
	StartAddressSearch(ctx context.Context, caseID, userID string) (*models.Case, error)

	// SearchAddresses resolves a free-text query to structured candidates
	// while the case is in address_pick. An empty candidate list is a valid
	// result, not an error.
	SearchAddresses(ctx context.Context, caseID, userID, query string) ([]address.ResolvedAddress, error)

	// ConfirmAddress stores the resolved address and advances
	// address_pick -> contract_type.
	ConfirmAddress(ctx context.Context, caseID, userID string, addr models.Address, propertyType models.PropertyType) (*models.Case, error)

	// SetContractTerms stores the contract family and amounts and advances
	// contract_type -> registry_choice.
	SetContractTerms(ctx context.Context, caseID, userID string, contractType models.ContractType, amount int64, monthlyRent int64) (*models.Case, error)

	// AttachRegistry binds a registry document artifact to the case and
	// advances registry_choice -> registry_ready. Re-attaching while already
	// in registry_ready is an idempotent re-entry, not an error.
	AttachRegistry(ctx context.Context, caseID, userID string, source models.ArtifactSource, fileRef string) (*models.Case, error)

	// ParseRegistry runs the registry parser on the attached document and,
	// when the confidence floor (or the override flag) allows, advances
	// registry_ready -> parse_enrich.
	ParseRegistry(ctx context.Context, caseID, userID string) (*models.Case, error)

	// UpdateFields applies a camelCase client payload to the case through the
	// field allow-list. Unknown fields are rejected.
	UpdateFields(ctx context.Context, caseID, userID string, fields map[string]interface{}) (*models.Case, error)

	// ResetFromError recovers a case from the error state back to its last
	// well-formed state.
	ResetFromError(ctx context.Context, caseID, userID string) (*models.Case, error)
}

// caseService is the concrete implementation of CaseService.
type caseService struct {
	cases     repository.CaseRepository
	artifacts repository.ArtifactRepository
	resolver  address.Resolver
	parser    registry.Source
	machine   *staterules.Machine
	log       *logger.Logger
}

// NewCaseService creates a new instance of CaseService.
func NewCaseService(
	cases repository.CaseRepository,
	artifacts repository.ArtifactRepository,
	resolver address.Resolver,
	parser registry.Source,
	machine *staterules.Machine,
	log *logger.Logger,
) CaseService {
	return &caseService{
		cases:     cases,
		artifacts: artifacts,
		resolver:  resolver,
		parser:    parser,
		machine:   machine,
		log:       log,
	}
}

// CreateCase creates a fresh case for the user.
func (s *caseService) CreateCase(ctx context.Context, userID string) (*models.Case, error) {
	c, err := s.cases.Create(ctx, userID)
	if err != nil {
		s.log.Error("Failed to create case", err, map[string]interface{}{"user_id": userID})
		return nil, fmt.Errorf("failed to create case: %w", err)
	}
	s.log.Info("Case created", map[string]interface{}{"case_id": c.ID, "user_id": userID})
	return c, nil
}

// GetCase loads a user's case.
func (s *caseService) GetCase(ctx context.Context, caseID, userID string) (*models.Case, error) {
	c, err := s.cases.GetForUser(ctx, caseID, userID)
	if err != nil {
		s.log.Error("Failed to load case", err, map[string]interface{}{"case_id": caseID})
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}
	return c, nil
}

// StartAddressSearch advances the case into address_pick.
func (s *caseService) StartAddressSearch(ctx context.Context, caseID, userID string) (*models.Case, error) {
	c, err := s.GetCase(ctx, caseID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, c, models.StateAddressPick, nil); err != nil {
		return nil, err
	}
	return c, nil
}

// SearchAddresses resolves a free-text query against the external resolver.
func (s *caseService) SearchAddresses(ctx context.Context, caseID, userID, query string) ([]address.ResolvedAddress, error) {
	c, err := s.GetCase(ctx, caseID, userID)
	if err != nil {
		return nil, err
	}
	if c.State != models.StateAddressPick {
		return nil, fmt.Errorf("%w: address search requires state %s", ErrInvalidTransition, models.StateAddressPick)
	}

	candidates, err := s.resolver.Resolve(ctx, query)
	if err != nil {
		s.log.Error("Address resolution failed", err, map[string]interface{}{"case_id": caseID})
		return nil, fmt.Errorf("failed to resolve address: %w", err)
	}
	return candidates, nil
}

// ConfirmAddress records the resolved address and advances to contract_type.
func (s *caseService) ConfirmAddress(ctx context.Context, caseID, userID string, addr models.Address, propertyType models.PropertyType) (*models.Case, error) {
	if addr.RoadAddress == "" {
		return nil, fmt.Errorf("%w: road address is required", ErrInvalidFields)
	}
	c, err := s.GetCase(ctx, caseID, userID)
	if err != nil {
		return nil, err
	}

	c.Address = &addr
	c.PropertyType = &propertyType
	if err := s.transition(ctx, c, models.StateContractType, nil); err != nil {
		return nil, err
	}

	s.log.Info("Address confirmed", map[string]interface{}{
		"case_id":       c.ID,
		"road_address":  addr.RoadAddress,
		"legal_dong_cd": addr.LegalDongCd,
	})
	return c, nil
}

// SetContractTerms records the contract family and amounts and advances to
// registry_choice.
func (s *caseService) SetContractTerms(ctx context.Context, caseID, userID string, contractType models.ContractType, amount int64, monthlyRent int64) (*models.Case, error) {
	c, err := s.GetCase(ctx, caseID, userID)
	if err != nil {
		return nil, err
	}

	c.ContractType = &contractType
	c.ContractAmount = &amount
	c.MonthlyRent = &monthlyRent
	if err := c.ValidateContractTerms(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFields, err)
	}

	if err := s.transition(ctx, c, models.StateRegistryChoice, nil); err != nil {
		return nil, err
	}
	return c, nil
}

// AttachRegistry binds a registry artifact and advances to registry_ready.
// Re-attaching while already in registry_ready replaces the working document
// without moving the state.
func (s *caseService) AttachRegistry(ctx context.Context, caseID, userID string, source models.ArtifactSource, fileRef string) (*models.Case, error) {
	if fileRef == "" {
		return nil, fmt.Errorf("%w: file reference is required", ErrInvalidFields)
	}
	c, err := s.GetCase(ctx, caseID, userID)
	if err != nil {
		return nil, err
	}

	artifact := &models.Artifact{
		CaseID:  c.ID,
		Kind:    models.ArtifactRegistry,
		Source:  source,
		FileRef: fileRef,
	}
	if err := s.artifacts.Create(ctx, artifact); err != nil {
		s.log.Error("Failed to attach registry artifact", err, map[string]interface{}{"case_id": c.ID})
		return nil, fmt.Errorf("failed to attach registry document: %w", err)
	}

	if err := s.transition(ctx, c, models.StateRegistryReady, artifact); err != nil {
		return nil, err
	}

	s.log.Info("Registry document attached", map[string]interface{}{
		"case_id":     c.ID,
		"artifact_id": artifact.ID,
		"source":      source,
	})
	return c, nil
}

// ParseRegistry parses the attached registry document and advances to
// parse_enrich when the confidence floor (or override flag) allows.
func (s *caseService) ParseRegistry(ctx context.Context, caseID, userID string) (*models.Case, error) {
	c, err := s.GetCase(ctx, caseID, userID)
	if err != nil {
		return nil, err
	}

	artifact, err := s.artifacts.LatestRegistry(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry artifact: %w", err)
	}
	if artifact == nil {
		return nil, ErrRegistryNotReady
	}

	outcome, err := s.parser.Parse(ctx, artifact.FileRef)
	if err != nil {
		s.log.Error("Registry parsing failed", err, map[string]interface{}{"case_id": c.ID})
		return nil, fmt.Errorf("registry parsing failed: %w", err)
	}

	parse := &models.ParseRecord{
		Registry:   outcome.Registry,
		Confidence: outcome.Confidence,
		Method:     outcome.Method,
	}
	if err := s.artifacts.AttachParse(ctx, artifact.ID, parse); err != nil {
		return nil, fmt.Errorf("failed to store parse record: %w", err)
	}
	artifact.Parse = parse

	s.log.Info("Registry document parsed", map[string]interface{}{
		"case_id":    c.ID,
		"confidence": outcome.Confidence,
		"method":     outcome.Method,
	})

	if err := s.transition(ctx, c, models.StateParseEnrich, artifact); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateFields applies a camelCase payload through the allow-list. Fields
// are set on the case without advancing state; transitions remain explicit.
func (s *caseService) UpdateFields(ctx context.Context, caseID, userID string, fields map[string]interface{}) (*models.Case, error) {
	snake, err := mapping.ToSnake(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFields, err)
	}

	c, err := s.GetCase(ctx, caseID, userID)
	if err != nil {
		return nil, err
	}

	if err := applyFields(c, snake); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFields, err)
	}
	if c.ContractType != nil {
		if err := c.ValidateContractTerms(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFields, err)
		}
	}

	if err := s.cases.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update case: %w", err)
	}
	return c, nil
}

// ResetFromError recovers the case from the error state.
func (s *caseService) ResetFromError(ctx context.Context, caseID, userID string) (*models.Case, error) {
	c, err := s.GetCase(ctx, caseID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.machine.Reset(c); err != nil {
		if errors.Is(err, staterules.ErrNotInErrorState) {
			return nil, fmt.Errorf("%w: case is not in the error state", ErrInvalidTransition)
		}
		return nil, err
	}
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to persist reset: %w", err)
	}
	s.log.Info("Case reset from error", map[string]interface{}{
		"case_id": c.ID,
		"state":   c.State,
	})
	return c, nil
}

// transition applies a state change through the machine and persists the
// case. Machine rejections are mapped to service-level errors.
func (s *caseService) transition(ctx context.Context, c *models.Case, to models.CaseState, artifact *models.Artifact) error {
	if err := s.machine.Transition(c, to, artifact); err != nil {
		if errors.Is(err, staterules.ErrIllegalTransition) {
			s.log.Warn("Illegal transition attempt", map[string]interface{}{
				"case_id": c.ID,
				"from":    c.State,
				"to":      to,
			})
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.State, to)
		}
		return err
	}
	if err := s.cases.Update(ctx, c); err != nil {
		return fmt.Errorf("failed to persist case state: %w", err)
	}
	return nil
}

// applyFields copies allow-listed snake_case values onto the case. Numeric
// JSON values arrive as float64 and are converted per field.
func applyFields(c *models.Case, fields map[string]interface{}) error {
	if c.Address == nil {
		// Address fields may arrive before the address is confirmed; keep
		// them on a scratch address so nothing is silently dropped.
		if hasAddressField(fields) {
			c.Address = &models.Address{}
		}
	}

	for name, value := range fields {
		switch name {
		case "road_address":
			if err := setString(&c.Address.RoadAddress, name, value); err != nil {
				return err
			}
		case "lot_address":
			if err := setString(&c.Address.LotAddress, name, value); err != nil {
				return err
			}
		case "province":
			if err := setString(&c.Address.Province, name, value); err != nil {
				return err
			}
		case "district":
			if err := setString(&c.Address.District, name, value); err != nil {
				return err
			}
		case "legal_dong_cd":
			if err := setString(&c.Address.LegalDongCd, name, value); err != nil {
				return err
			}
		case "building_cd":
			if err := setString(&c.Address.BuildingCd, name, value); err != nil {
				return err
			}
		case "road_cd":
			if err := setString(&c.Address.RoadCd, name, value); err != nil {
				return err
			}
		case "detail":
			str, ok := value.(string)
			if !ok {
				return fmt.Errorf("field %q must be a string", name)
			}
			c.Address.Detail = &str
		case "floor_no":
			n, ok := asInt64(value)
			if !ok {
				return fmt.Errorf("field %q must be a number", name)
			}
			floor := int(n)
			c.Address.FloorNo = &floor
		case "area_sqm":
			f, ok := asFloat64(value)
			if !ok {
				return fmt.Errorf("field %q must be a number", name)
			}
			c.Address.AreaSqm = &f
		case "property_type":
			str, ok := value.(string)
			if !ok {
				return fmt.Errorf("field %q must be a string", name)
			}
			pt := models.PropertyType(str)
			c.PropertyType = &pt
		case "contract_type":
			str, ok := value.(string)
			if !ok {
				return fmt.Errorf("field %q must be a string", name)
			}
			ct := models.ContractType(str)
			if !ct.Valid() {
				return fmt.Errorf("unknown contract type %q", str)
			}
			c.ContractType = &ct
		case "contract_amount":
			n, ok := asInt64(value)
			if !ok {
				return fmt.Errorf("field %q must be a number", name)
			}
			c.ContractAmount = &n
		case "monthly_rent":
			n, ok := asInt64(value)
			if !ok {
				return fmt.Errorf("field %q must be a number", name)
			}
			c.MonthlyRent = &n
		default:
			return fmt.Errorf("unknown field %q", name)
		}
	}
	return nil
}

var addressFieldNames = map[string]bool{
	"road_address": true, "lot_address": true, "province": true,
	"district": true, "legal_dong_cd": true, "building_cd": true,
	"road_cd": true, "detail": true, "floor_no": true, "area_sqm": true,
}

func hasAddressField(fields map[string]interface{}) bool {
	for name := range fields {
		if addressFieldNames[name] {
			return true
		}
	}
	return false
}

func setString(dst *string, name string, value interface{}) error {
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("field %q must be a string", name)
	}
	*dst = str
	return nil
}

func asInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

func asFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}
