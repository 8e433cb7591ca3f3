package risk

import (
	"fmt"
)

// Price-gap tiers on (contractPrice - fairPrice) / fairPrice. Buying below
// fair value is rewarded; paying a premium is penalized, steeply past 15%.
const (
	gapDeepDiscount = -0.10
	gapDiscount     = -0.05
	gapPremium      = 0.05
	gapSteepPremium = 0.15

	rewardDeepDiscount = 15
	rewardDiscount     = 8
	penaltyPremium     = 10
	penaltySteepGap    = 25
)

// Locational blend weights, fixed. The blended 0-100 sub-score is scaled by
// locationScale so location contributes at most half the scale of the score.
const (
	weightEducation    = 0.3
	weightEmployment   = 0.3
	weightLiquidity    = 0.2
	weightAppreciation = 0.2
	locationScale      = 0.5
)

// Legal-safety deduction: applied when an externally supplied legal sub-score
// falls below the threshold.
const (
	legalScoreFloor    = 50.0
	penaltyLegalUnsafe = 15
)

// saleBaseScore anchors the investment score so a fair-priced property in an
// average location lands mid-band before adjustments.
const saleBaseScore = 50

// CalculateSaleInvestment scores a purchase contract as an investment. The
// structure mirrors CalculateRentSafety: independent additive adjustments, a
// final clamp to [0,100], and the fixed grade thresholds.
func CalculateSaleInvestment(in SaleInput) SaleResult {
	result := SaleResult{
		Score:   saleBaseScore,
		Reasons: []string{},
		Flags:   []string{},
	}

	if in.FairPrice > 0 {
		result.PriceGapRatio = float64(in.ContractPrice-in.FairPrice) / float64(in.FairPrice)
	}
	applyPriceGap(&result)

	result.LocationScore = locationBlend(in)
	result.Score += int(result.LocationScore)
	result.Reasons = append(result.Reasons, fmt.Sprintf(
		"입지 평가 %.1f점이 반영되었습니다 (학군/직주/거래량/상승여력 가중 평균).", result.LocationScore))

	if in.LegalScore != nil && *in.LegalScore < legalScoreFloor {
		result.Score -= penaltyLegalUnsafe
		result.Flags = append(result.Flags, FlagLegalUnsafe)
		result.Reasons = append(result.Reasons, fmt.Sprintf(
			"권리관계 안전 점수가 %.0f점으로 낮습니다. 등기부상 하자를 먼저 해소해야 합니다.", *in.LegalScore))
	}

	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 100 {
		result.Score = 100
	}
	result.Grade = GradeForScore(result.Score)
	return result
}

// applyPriceGap applies the tiered reward/penalty curve for the contract
// price relative to fair value.
func applyPriceGap(r *SaleResult) {
	gap := r.PriceGapRatio
	pct := gap * 100
	switch {
	case gap <= gapDeepDiscount:
		r.Score += rewardDeepDiscount
		r.Reasons = append(r.Reasons, fmt.Sprintf(
			"시세 대비 %.1f%% 낮은 가격입니다. 안전 마진이 충분합니다.", -pct))
	case gap <= gapDiscount:
		r.Score += rewardDiscount
		r.Reasons = append(r.Reasons, fmt.Sprintf(
			"시세 대비 %.1f%% 낮은 가격입니다.", -pct))
	case gap < gapPremium:
		r.Reasons = append(r.Reasons, "시세와 유사한 수준의 가격입니다.")
	case gap < gapSteepPremium:
		r.Score -= penaltyPremium
		r.Reasons = append(r.Reasons, fmt.Sprintf(
			"시세 대비 %.1f%% 높은 가격입니다. 협상 여지를 확인하세요.", pct))
	default:
		r.Score -= penaltySteepGap
		r.Flags = append(r.Flags, FlagOverpriced)
		r.Reasons = append(r.Reasons, fmt.Sprintf(
			"시세 대비 %.1f%% 높은 가격입니다. 고가 매수 위험이 큽니다.", pct))
	}
}

// locationBlend computes the weighted locational sub-score, scaled to at most
// 50 points. Out-of-range sub-scores are clamped to [0,100] first so the
// blend stays bounded.
func locationBlend(in SaleInput) float64 {
	blend := clamp100(in.Education)*weightEducation +
		clamp100(in.Employment)*weightEmployment +
		clamp100(in.Liquidity)*weightLiquidity +
		clamp100(in.Appreciation)*weightAppreciation
	return blend * locationScale
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
