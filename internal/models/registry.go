package models

import (
	"time"
)

// LienPriority ranks a registered claim relative to the subject interest.
// Only liens senior to the occupant's deposit claim count toward the senior
// defect amount in risk scoring.
type LienPriority string

const (
	PriorityFirst  LienPriority = "first"
	PrioritySecond LienPriority = "second"
	PriorityThird  LienPriority = "third"
	PriorityOther  LienPriority = "other"
)

// Senior reports whether the lien ranks ahead of the subject interest in a
// forced sale.
func (p LienPriority) Senior() bool {
	return p == PriorityFirst || p == PrioritySecond || p == PriorityThird
}

// LienType classifies a registered right or encumbrance.
type LienType string

const (
	// LienMortgage is a registered mortgage (근저당권).
	LienMortgage LienType = "mortgage"
	// LienSeizure is an active seizure (압류).
	LienSeizure LienType = "seizure"
	// LienProvisional is a provisional seizure or injunction (가압류/가처분).
	LienProvisional LienType = "provisional"
	// LienTaxArrears is a registered national or local tax arrears claim (체납).
	LienTaxArrears LienType = "tax_arrears"
	// LienJeonseRight is a registered leasehold right (전세권).
	LienJeonseRight LienType = "jeonse_right"
	// LienOther is any other registered right.
	LienOther LienType = "other"
)

// Owner is one entry in the registry's ownership section (갑구).
type Owner struct {
	Name        string     `json:"name"`
	Share       string     `json:"share"`
	AcquiredVia string     `json:"acquired_via,omitempty"`
	AcquiredAt  *time.Time `json:"acquired_at,omitempty"`
}

// Lien is one entry in the registry's rights section (을구), ordered by
// registration date.
type Lien struct {
	Type     LienType     `json:"type"`
	Amount   int64        `json:"amount"`
	Priority LienPriority `json:"priority"`
	Date     *time.Time   `json:"date,omitempty"`
	Creditor string       `json:"creditor,omitempty"`
	Debtor   string       `json:"debtor,omitempty"`
	Notes    string       `json:"notes,omitempty"`
}

// RegistryData is the parsed legal-rights snapshot of a registry document:
// ordered owners and ordered liens, plus document-level adverse markers.
type RegistryData struct {
	Owners          []Owner    `json:"owners"`
	Liens           []Lien     `json:"liens"`
	IllegalBuilding bool       `json:"illegal_building"`
	IssuedAt        *time.Time `json:"issued_at,omitempty"`
}

// SeniorLienAmount sums the senior money claims (mortgages, tax claims and
// the like) that would be paid out ahead of the subject interest in a forced
// sale. Registered leasehold rights are counted separately as defects.
func (r *RegistryData) SeniorLienAmount() int64 {
	var total int64
	for _, lien := range r.Liens {
		if lien.Priority.Senior() && lien.Type != LienJeonseRight {
			total += lien.Amount
		}
	}
	return total
}

// SeniorDefectAmount sums senior registered leasehold rights: deposits that
// directly reduce the value recoverable from the property itself.
func (r *RegistryData) SeniorDefectAmount() int64 {
	var total int64
	for _, lien := range r.Liens {
		if lien.Priority.Senior() && lien.Type == LienJeonseRight {
			total += lien.Amount
		}
	}
	return total
}

// HasLienType reports whether any lien of the given type is present.
func (r *RegistryData) HasLienType(t LienType) bool {
	for _, lien := range r.Liens {
		if lien.Type == t {
			return true
		}
	}
	return false
}
