// Package risk implements the deterministic scoring engine. Everything in
// this package is a pure function over already-gathered facts: no I/O, no
// clock, no state. Scores are additive so every point of deduction can be
// traced back to a named flag and a human-readable reason.
package risk

// PropertyClass is the broad property class used by the auction rate table.
// Apartment-class property recovers a noticeably higher fraction of fair
// value at auction than villa/detached-class property.
type PropertyClass string

const (
	ClassApartment PropertyClass = "apartment"
	ClassVilla     PropertyClass = "villa"
)

// Grade is a discrete 5-band risk grade derived from a 0-100 score.
type Grade string

const (
	GradeSafe    Grade = "안전"
	GradeNormal  Grade = "보통"
	GradeCaution Grade = "주의"
	GradeDanger  Grade = "위험"
	GradeSevere  Grade = "매우 위험"
)

// GradeForScore maps a clamped 0-100 score to its grade band.
// Thresholds are fixed: >=80 safe, >=60 normal, >=40 caution, >=20 danger.
func GradeForScore(score int) Grade {
	switch {
	case score >= 80:
		return GradeSafe
	case score >= 60:
		return GradeNormal
	case score >= 40:
		return GradeCaution
	case score >= 20:
		return GradeDanger
	default:
		return GradeSevere
	}
}

// Flag tokens are stable identifiers for triggered risk conditions. The UI
// renders the paired reason strings; tests assert on these tokens. A flag is
// never appended without its reason, and vice versa.
const (
	FlagDepositHigh     = "보증금 비율 높음"
	FlagDepositExceeds  = "보증금이 물건 가치 초과"
	FlagSeizure         = "압류 존재"
	FlagProvisional     = "가압류/가처분 존재"
	FlagTaxArrears      = "국세/지방세 체납"
	FlagIllegalBuilding = "위반건축물"
	FlagSeniorHeavy     = "선순위 채권 과다"
	FlagOverpriced      = "시세 대비 고가 매수"
	FlagLegalUnsafe     = "권리관계 불안"
)

// RentInput carries the legal and market facts needed to score a rental
// occupancy contract for deposit safety. Amounts are KRW.
type RentInput struct {
	Deposit          int64
	FairValue        int64
	DefectAmount     int64
	SeniorLienAmount int64
	AuctionRate      float64
	HasSeizure       bool
	HasProvisional   bool
	HasTaxArrears    bool
	IllegalBuilding  bool
}

// RentResult is the outcome of scoring a rental contract. Reasons are ordered
// by evaluation order; Flags holds the stable tokens for each triggered
// condition, paired one-to-one in spirit with a reason (one condition may
// contribute a reason without a flag, never a flag without a reason).
type RentResult struct {
	Score        int      `json:"score"`
	Grade        Grade    `json:"grade"`
	ObjectValue  int64    `json:"object_value"`
	DepositRatio float64  `json:"deposit_ratio"`
	SeniorRatio  float64  `json:"senior_ratio"`
	Reasons      []string `json:"reasons"`
	Flags        []string `json:"flags"`
}

// SaleInput carries the facts needed to score a purchase contract as an
// investment. Locational sub-scores are each 0-100; LegalScore, when
// supplied, is an externally computed legal-safety sub-score (typically the
// rent-safety score of the same property).
type SaleInput struct {
	ContractPrice int64
	FairPrice     int64
	Education     float64
	Employment    float64
	Liquidity     float64
	Appreciation  float64
	LegalScore    *float64
}

// SaleResult is the outcome of scoring a purchase contract.
type SaleResult struct {
	Score         int      `json:"score"`
	Grade         Grade    `json:"grade"`
	PriceGapRatio float64  `json:"price_gap_ratio"`
	LocationScore float64  `json:"location_score"`
	Reasons       []string `json:"reasons"`
	Flags         []string `json:"flags"`
}
