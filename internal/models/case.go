package models

import (
	"fmt"
	"time"
)

// CaseState is the lifecycle state of an analysis case. States form a fixed
// sequence; a case only ever advances to the immediate next state, re-enters
// its current state, or drops to StateError.
type CaseState string

const (
	StateInit           CaseState = "init"
	StateAddressPick    CaseState = "address_pick"
	StateContractType   CaseState = "contract_type"
	StateRegistryChoice CaseState = "registry_choice"
	StateRegistryReady  CaseState = "registry_ready"
	StateParseEnrich    CaseState = "parse_enrich"
	StateReport         CaseState = "report"
	StateError          CaseState = "error"
)

// StateSequence is the canonical forward order of case states. StateError is
// not part of the sequence; it is reachable from any non-terminal state.
var StateSequence = []CaseState{
	StateInit,
	StateAddressPick,
	StateContractType,
	StateRegistryChoice,
	StateRegistryReady,
	StateParseEnrich,
	StateReport,
}

// Ordinal returns the position of the state in the forward sequence, or -1
// for StateError and unknown states.
func (s CaseState) Ordinal() int {
	for i, state := range StateSequence {
		if state == s {
			return i
		}
	}
	return -1
}

// Valid reports whether the state is a known case state.
func (s CaseState) Valid() bool {
	return s == StateError || s.Ordinal() >= 0
}

// ContractType identifies the contract family for a case. The first three are
// rental occupancy contracts scored for deposit safety; purchase contracts are
// scored as investments.
type ContractType string

const (
	// ContractJeonse is a lease funded by a lump-sum deposit with no monthly rent (전세).
	ContractJeonse ContractType = "jeonse"
	// ContractSemiJeonse is a lease with a large deposit plus monthly rent (반전세).
	ContractSemiJeonse ContractType = "semi_jeonse"
	// ContractMonthly is a lease with a small deposit and monthly rent (월세).
	ContractMonthly ContractType = "monthly"
	// ContractPurchase is an outright purchase (매매).
	ContractPurchase ContractType = "purchase"
)

// Valid reports whether the contract type is one of the known families.
func (t ContractType) Valid() bool {
	switch t {
	case ContractJeonse, ContractSemiJeonse, ContractMonthly, ContractPurchase:
		return true
	}
	return false
}

// AllowsMonthlyRent reports whether a non-zero monthly rent is consistent
// with the contract type. Purchases and deposit-only leases must carry zero.
func (t ContractType) AllowsMonthlyRent() bool {
	return t == ContractSemiJeonse || t == ContractMonthly
}

// PropertyType is the broad property class used by the auction rate table.
type PropertyType string

const (
	// PropertyApartment covers apartment-class housing (아파트, 오피스텔).
	PropertyApartment PropertyType = "apartment"
	// PropertyVilla covers villa/detached-class housing (빌라, 다세대, 단독).
	PropertyVilla PropertyType = "villa"
)

// Address is the structured address attached to a case once the user has
// confirmed a resolver result. RoadAddress is required past address_pick; the
// structured codes feed market lookups and the auction rate table.
type Address struct {
	RoadAddress string   `json:"road_address"`
	LotAddress  string   `json:"lot_address,omitempty"`
	Province    string   `json:"province,omitempty"`
	District    string   `json:"district,omitempty"`
	LegalDongCd string   `json:"legal_dong_cd,omitempty"`
	BuildingCd  string   `json:"building_cd,omitempty"`
	RoadCd      string   `json:"road_cd,omitempty"`
	Detail      *string  `json:"detail,omitempty"`
	FloorNo     *int     `json:"floor_no,omitempty"`
	AreaSqm     *float64 `json:"area_sqm,omitempty"`
}

// Case represents one user's end-to-end analysis attempt for one property
// and one contract. Nullable fields use pointers so unset values survive
// round trips to the database unchanged.
type Case struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id"`
	State          CaseState         `json:"state"`
	LastGoodState  CaseState         `json:"last_good_state"`
	Address        *Address          `json:"address,omitempty"`
	PropertyType   *PropertyType     `json:"property_type,omitempty"`
	ContractType   *ContractType     `json:"contract_type,omitempty"`
	ContractAmount *int64            `json:"contract_amount,omitempty"`
	MonthlyRent    *int64            `json:"monthly_rent,omitempty"`
	Flags          map[string]string `json:"flags,omitempty"`
	LatestReportID *string           `json:"latest_report_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// FlagParseOverride marks a case allowed to proceed past registry parsing
// even when the parse confidence is below the configured floor.
const FlagParseOverride = "parse_override"

// HasParseOverride reports whether the explicit low-confidence override flag
// is set on the case.
func (c *Case) HasParseOverride() bool {
	return c.Flags[FlagParseOverride] == "true"
}

// ValidateContractTerms checks that the contract amount and monthly rent are
// mutually consistent with the contract type.
func (c *Case) ValidateContractTerms() error {
	if c.ContractType == nil {
		return fmt.Errorf("contract type is not set")
	}
	if !c.ContractType.Valid() {
		return fmt.Errorf("unknown contract type %q", *c.ContractType)
	}
	if c.ContractAmount == nil || *c.ContractAmount <= 0 {
		return fmt.Errorf("contract amount must be a positive amount")
	}
	rent := int64(0)
	if c.MonthlyRent != nil {
		rent = *c.MonthlyRent
	}
	if rent < 0 {
		return fmt.Errorf("monthly rent must not be negative")
	}
	if rent > 0 && !c.ContractType.AllowsMonthlyRent() {
		return fmt.Errorf("contract type %q does not carry monthly rent", *c.ContractType)
	}
	return nil
}
