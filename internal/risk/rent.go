package risk

import (
	"fmt"
)

// depositRatioSentinel stands in for deposit/objectValue when the object
// value is zero: the deposit has no recoverable backing at all, which is the
// worst band by definition.
const depositRatioSentinel = 99.0

// Deposit-ratio band boundaries and their penalties. Bands are evaluated on
// deposit / objectValue where objectValue already discounts senior defects
// and the auction haircut.
const (
	depositRatioModerate = 0.70
	depositRatioSevere   = 0.90
	depositRatioExceeds  = 1.00

	penaltyDepositModerate = 20
	penaltyDepositSevere   = 40
	penaltyDepositExceeds  = 60
)

// Senior-lien ratio boundaries and penalties, evaluated on
// totalSeniorLienAmount / fairValue.
const (
	seniorRatioModerate = 0.40
	seniorRatioSevere   = 0.60

	penaltySeniorModerate = 10
	penaltySeniorSevere   = 25
)

// Flat penalties for adverse legal conditions.
const (
	penaltySeizure         = 10
	penaltyProvisional     = 10
	penaltyTaxArrears      = 10
	penaltyIllegalBuilding = 15
)

// CalculateRentSafety scores a rental occupancy contract for deposit safety.
//
// The recovery ceiling is objectValue = max(0, fairValue - defectAmount) *
// auctionRate: what the deposit holder could realistically recover in a
// forced sale, not the nominal market price. The score starts at 100 and
// every penalty is evaluated independently (no early exit), so the final
// score is an auditable sum of named contributions. The result is clamped to
// [0,100] and graded on fixed thresholds.
func CalculateRentSafety(in RentInput) RentResult {
	result := RentResult{
		Score:   100,
		Reasons: []string{},
		Flags:   []string{},
	}

	equity := in.FairValue - in.DefectAmount
	if equity < 0 {
		equity = 0
	}
	result.ObjectValue = int64(float64(equity) * in.AuctionRate)

	if result.ObjectValue > 0 {
		result.DepositRatio = float64(in.Deposit) / float64(result.ObjectValue)
	} else {
		result.DepositRatio = depositRatioSentinel
	}
	if in.FairValue > 0 {
		result.SeniorRatio = float64(in.SeniorLienAmount) / float64(in.FairValue)
	}

	applyDepositPenalty(&result)
	applySeniorPenalty(&result)
	applyLegalPenalties(&result, in)

	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 100 {
		result.Score = 100
	}
	result.Grade = GradeForScore(result.Score)
	return result
}

// applyDepositPenalty applies the tiered deposit-ratio band penalty. Only the
// two highest bands carry flags; the moderate band records a reason alone.
func applyDepositPenalty(r *RentResult) {
	ratio := r.DepositRatio
	switch {
	case ratio > depositRatioExceeds:
		r.Score -= penaltyDepositExceeds
		r.Flags = append(r.Flags, FlagDepositExceeds)
		r.Reasons = append(r.Reasons, fmt.Sprintf(
			"보증금(%.0f%%)이 경매 시 회수 가능한 물건 가치를 초과합니다. 보증금 전액 손실 위험이 있습니다.", ratio*100))
	case ratio > depositRatioSevere:
		r.Score -= penaltyDepositSevere
		r.Flags = append(r.Flags, FlagDepositHigh)
		r.Reasons = append(r.Reasons, fmt.Sprintf(
			"보증금이 회수 가능 가치의 %.0f%%로 매우 높습니다. 경매 시 일부 손실 가능성이 큽니다.", ratio*100))
	case ratio > depositRatioModerate:
		r.Score -= penaltyDepositModerate
		r.Reasons = append(r.Reasons, fmt.Sprintf(
			"보증금이 회수 가능 가치의 %.0f%% 수준입니다. 여유가 크지 않습니다.", ratio*100))
	}
}

// applySeniorPenalty applies the senior-lien ratio penalty against fair value.
func applySeniorPenalty(r *RentResult) {
	switch {
	case r.SeniorRatio > seniorRatioSevere:
		r.Score -= penaltySeniorSevere
		r.Flags = append(r.Flags, FlagSeniorHeavy)
		r.Reasons = append(r.Reasons, fmt.Sprintf(
			"선순위 채권이 시세의 %.0f%%에 달합니다. 경매 시 배당 순위에서 크게 밀립니다.", r.SeniorRatio*100))
	case r.SeniorRatio > seniorRatioModerate:
		r.Score -= penaltySeniorModerate
		r.Reasons = append(r.Reasons, fmt.Sprintf(
			"선순위 채권이 시세의 %.0f%% 수준입니다. 주의가 필요합니다.", r.SeniorRatio*100))
	}
}

// applyLegalPenalties applies the flat penalties for adverse legal flags.
// Each is evaluated independently; a property can accumulate all four.
func applyLegalPenalties(r *RentResult, in RentInput) {
	if in.HasSeizure {
		r.Score -= penaltySeizure
		r.Flags = append(r.Flags, FlagSeizure)
		r.Reasons = append(r.Reasons, "등기부에 압류가 존재합니다. 소유자의 채무 불이행 이력을 의심해야 합니다.")
	}
	if in.HasProvisional {
		r.Score -= penaltyProvisional
		r.Flags = append(r.Flags, FlagProvisional)
		r.Reasons = append(r.Reasons, "가압류 또는 가처분이 등기되어 있습니다. 소유권 분쟁 가능성이 있습니다.")
	}
	if in.HasTaxArrears {
		r.Score -= penaltyTaxArrears
		r.Flags = append(r.Flags, FlagTaxArrears)
		r.Reasons = append(r.Reasons, "국세 또는 지방세 체납이 확인됩니다. 세금 채권은 보증금보다 우선 변제됩니다.")
	}
	if in.IllegalBuilding {
		r.Score -= penaltyIllegalBuilding
		r.Flags = append(r.Flags, FlagIllegalBuilding)
		r.Reasons = append(r.Reasons, "위반건축물로 등재되어 있습니다. 전세보증보험 가입이 거절될 수 있습니다.")
	}
}
