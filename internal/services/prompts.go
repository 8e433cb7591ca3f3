package services

import (
	"encoding/json"
	"fmt"

	"github.com/doldari/api/internal/models"
	"github.com/doldari/api/internal/risk"
)

// factBundle is the structured input handed to the LLM passes: the parsed
// legal facts, the market snapshot, and the computed risk result. The models
// never see raw documents, only machine-computed facts, so the narrative
// cannot contradict the deterministic score.
type factBundle struct {
	Address      *models.Address      `json:"address,omitempty"`
	ContractType *models.ContractType `json:"contract_type,omitempty"`
	Amount       *int64               `json:"contract_amount,omitempty"`
	MonthlyRent  *int64               `json:"monthly_rent,omitempty"`
	Registry     *models.RegistryData `json:"registry,omitempty"`
	Market       *models.MarketData   `json:"market,omitempty"`
	RentRisk     *risk.RentResult     `json:"rent_risk,omitempty"`
	SaleRisk     *risk.SaleResult     `json:"sale_risk,omitempty"`
}

const draftSystemPrompt = `당신은 부동산 계약 리스크 분석 전문가입니다. ` +
	`주어진 사실 데이터(등기부 권리관계, 시세, 계산된 위험 점수와 사유)만 근거로 ` +
	`보고서 초안을 작성하세요. 데이터에 없는 사실을 추가하지 말고, 점수와 등급을 ` +
	`그대로 인용하며, 각 감점 사유를 일반인이 이해할 수 있는 말로 풀어 설명하세요.`

const validationSystemPrompt = `당신은 부동산 분석 보고서 감수자입니다. 초안이 ` +
	`사실 데이터와 모순되는 부분, 과장된 표현, 누락된 위험 요소를 찾아 수정한 ` +
	`최종 보고서를 작성하세요. 점수, 등급, 감점 사유는 데이터와 정확히 일치해야 합니다.`

// buildDraftPrompt serializes the fact bundle for the draft pass.
func buildDraftPrompt(bundle factBundle) (string, error) {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal fact bundle: %w", err)
	}
	return fmt.Sprintf("다음 분석 데이터를 바탕으로 보고서 초안을 작성해 주세요.\n\n```json\n%s\n```", data), nil
}

// buildValidationPrompt serializes the fact bundle together with the draft
// for the validation pass.
func buildValidationPrompt(bundle factBundle, draft string) (string, error) {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal fact bundle: %w", err)
	}
	return fmt.Sprintf(
		"분석 데이터:\n```json\n%s\n```\n\n초안:\n%s\n\n초안을 검증하고 최종 보고서를 작성해 주세요.",
		data, draft), nil
}

// headlineFor builds the one-line report summary shown in listings.
func headlineFor(rentRisk *risk.RentResult, saleRisk *risk.SaleResult) string {
	switch {
	case rentRisk != nil:
		return fmt.Sprintf("보증금 안전 점수 %d점 (%s)", rentRisk.Score, rentRisk.Grade)
	case saleRisk != nil:
		return fmt.Sprintf("투자 적합 점수 %d점 (%s)", saleRisk.Score, saleRisk.Grade)
	default:
		return "분석 결과 없음"
	}
}
