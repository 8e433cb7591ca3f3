package models

import (
	"time"

	"github.com/doldari/api/internal/risk"
)

// Report is the versioned output of one analysis run, bound 1:N to a case.
// Reports are append-only: each run creates a new version and no report is
// ever updated in place.
type Report struct {
	ID        string         `json:"id"`
	CaseID    string         `json:"case_id"`
	Version   int            `json:"version"`
	Summary   ReportSummary  `json:"summary"`
	Analysis  AnalysisResult `json:"analysis"`
	CreatedAt time.Time      `json:"created_at"`
}

// ReportSummary is the denormalized slice of a report kept for fast listing:
// score, grade band, and a one-line headline.
type ReportSummary struct {
	Score    int    `json:"score"`
	Grade    string `json:"grade"`
	Headline string `json:"headline"`
}

// AnalysisResult is the full structured payload of a report: the facts the
// run gathered, the risk computation embedded at generation time, the two
// narrative passes, and LLM provenance.
type AnalysisResult struct {
	Registry   *RegistryData    `json:"registry,omitempty"`
	Market     *MarketData      `json:"market,omitempty"`
	RentRisk   *risk.RentResult `json:"rent_risk,omitempty"`
	SaleRisk   *risk.SaleResult `json:"sale_risk,omitempty"`
	Draft      string           `json:"draft"`
	Final      string           `json:"final"`
	Provenance LLMProvenance    `json:"provenance"`
}

// LLMProvenance records which models produced the narrative and what they
// cost, for auditability of generated text.
type LLMProvenance struct {
	DraftModel       string        `json:"draft_model"`
	ValidationModel  string        `json:"validation_model"`
	DraftTokens      int           `json:"draft_tokens"`
	ValidationTokens int           `json:"validation_tokens"`
	GenerationTime   time.Duration `json:"generation_time"`
}
