package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/doldari/api/internal/clients/llm"
	"github.com/doldari/api/internal/clients/market"
	"github.com/doldari/api/internal/clients/registry"
	"github.com/doldari/api/internal/config"
	"github.com/doldari/api/internal/logger"
	"github.com/doldari/api/internal/models"
	"github.com/doldari/api/internal/repository"
	"github.com/doldari/api/internal/risk"
	"github.com/doldari/api/internal/staterules"
	"github.com/doldari/api/internal/stream"
)

// Analysis-level errors.
var (
	ErrAnalysisInFlight = errors.New("an analysis run is already in flight for this case")
	ErrCaseNotReady     = errors.New("case is not ready for analysis")
)

// marketWindow is the lookback window for trade data.
const marketWindow = 180 * 24 * time.Hour

// Run is a handle to one in-flight or finished analysis run. Events emitted
// so far are retained for inspection; a client that loses its stream does
// not reattach to the run, it polls the case and reads the latest report id
// once the run has persisted its outcome.
type Run struct {
	CaseID   string
	recorder *stream.Recorder
	done     chan struct{}
}

// Done is closed when the run has emitted its terminal event.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Events returns the events emitted so far, in order.
func (r *Run) Events() []stream.Event {
	return r.recorder.Events()
}

// AnalysisService drives the multi-phase analysis pipeline for a case and
// reports progress through the stream protocol.
type AnalysisService interface {
	// Start launches the pipeline for the case. The run is fire-and-continue:
	// it executes on a detached context and persists its terminal outcome
	// whether or not any listener stays attached. A second Start for the same
	// case while a run is in flight returns ErrAnalysisInFlight.
	Start(ctx context.Context, caseID, userID string, sinks ...stream.Sink) (*Run, error)
}

// analysisService is the concrete implementation of AnalysisService.
type analysisService struct {
	cases     repository.CaseRepository
	artifacts repository.ArtifactRepository
	reports   repository.ReportRepository
	parser    registry.Source
	markets   market.Source
	draft     llm.TextGenerator
	validator llm.TextGenerator
	machine   *staterules.Machine
	cfg       config.AnalysisConfig
	log       *logger.Logger

	mu       sync.Mutex
	inFlight map[string]*Run
}

// NewAnalysisService creates a new instance of AnalysisService. All
// collaborators are constructed once at process start and passed in by
// reference so tests can substitute fakes.
func NewAnalysisService(
	cases repository.CaseRepository,
	artifacts repository.ArtifactRepository,
	reports repository.ReportRepository,
	parser registry.Source,
	markets market.Source,
	draft llm.TextGenerator,
	validator llm.TextGenerator,
	machine *staterules.Machine,
	cfg config.AnalysisConfig,
	log *logger.Logger,
) AnalysisService {
	return &analysisService{
		cases:     cases,
		artifacts: artifacts,
		reports:   reports,
		parser:    parser,
		markets:   markets,
		draft:     draft,
		validator: validator,
		machine:   machine,
		cfg:       cfg,
		log:       log,
		inFlight:  map[string]*Run{},
	}
}

// Start validates ownership and readiness synchronously, then launches the
// pipeline goroutine. The request context is deliberately not propagated into
// the pipeline: a client disconnect must not abort a run whose report will be
// persisted anyway.
func (s *analysisService) Start(ctx context.Context, caseID, userID string, sinks ...stream.Sink) (*Run, error) {
	c, err := s.cases.GetForUser(ctx, caseID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}
	if c.State != models.StateParseEnrich && c.State != models.StateReport {
		return nil, fmt.Errorf("%w: state %s", ErrCaseNotReady, c.State)
	}

	s.mu.Lock()
	if _, running := s.inFlight[caseID]; running {
		s.mu.Unlock()
		return nil, ErrAnalysisInFlight
	}
	run := &Run{
		CaseID:   caseID,
		recorder: stream.NewRecorder(),
		done:     make(chan struct{}),
	}
	s.inFlight[caseID] = run
	s.mu.Unlock()

	emitter := stream.NewEmitter(append([]stream.Sink{run.recorder}, sinks...)...)

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, caseID)
			s.mu.Unlock()
			close(run.done)
		}()
		s.runPipeline(context.Background(), c, emitter)
	}()

	return run, nil
}

// runPipeline executes the phases strictly in order. Each phase's output is
// an input to the next, so there is nothing to parallelize; the sequencing is
// the contract.
func (s *analysisService) runPipeline(ctx context.Context, c *models.Case, emitter *stream.Emitter) {
	started := time.Now()

	// Phase: case_loading. The case itself was loaded during Start; this
	// phase re-validates the pieces the rest of the pipeline depends on.
	_ = emitter.Phase(stream.PhaseCaseLoading, "사례 정보를 불러오는 중입니다.", 0.05)
	if c.Address == nil || c.ContractType == nil || c.ContractAmount == nil {
		s.fail(ctx, c, emitter, stream.PhaseCaseLoading, "사례 정보가 불완전합니다. 주소와 계약 조건을 먼저 입력해 주세요.", nil)
		return
	}

	// Phase: registry_parsing.
	_ = emitter.Phase(stream.PhaseRegistryParsing, "등기부등본을 분석하는 중입니다.", 0.15)
	registryData, err := s.loadRegistry(ctx, c)
	if err != nil {
		s.fail(ctx, c, emitter, stream.PhaseRegistryParsing, "등기부등본 분석에 실패했습니다.", err)
		return
	}

	// Phase: public_data.
	_ = emitter.Phase(stream.PhasePublicData, "실거래가와 시세 정보를 조회하는 중입니다.", 0.30)
	marketData, err := s.loadMarket(ctx, c)
	if err != nil {
		s.fail(ctx, c, emitter, stream.PhasePublicData, "시세 정보 조회에 실패했습니다.", err)
		return
	}
	// A zero fair value means the lookup found no comparable trades, not a
	// worthless property. Scoring against it would report a total loss.
	if marketData.FairValue == 0 {
		s.fail(ctx, c, emitter, stream.PhasePublicData, "비교 가능한 실거래가를 찾지 못해 분석을 진행할 수 없습니다.",
			fmt.Errorf("no comparable trades for legal dong %s", c.Address.LegalDongCd))
		return
	}

	// Phase: risk_calculation.
	_ = emitter.Phase(stream.PhaseRiskCalculation, "위험 점수를 계산하는 중입니다.", 0.40)
	rentRisk, saleRisk := s.computeRisk(c, registryData, marketData)

	bundle := factBundle{
		Address:      c.Address,
		ContractType: c.ContractType,
		Amount:       c.ContractAmount,
		MonthlyRent:  c.MonthlyRent,
		Registry:     registryData,
		Market:       marketData,
		RentRisk:     rentRisk,
		SaleRisk:     saleRisk,
	}

	// Phase: draft.
	draftGen, err := s.generate(ctx, emitter, stream.PhaseDraft, s.draft, bundle, "")
	if err != nil {
		s.fail(ctx, c, emitter, stream.PhaseDraft, "보고서 초안 생성에 실패했습니다.", err)
		return
	}

	// Phase: validation. Never starts before the draft phase's final event.
	validationGen, err := s.generate(ctx, emitter, stream.PhaseValidation, s.validator, bundle, draftGen.Text)
	if err != nil {
		s.fail(ctx, c, emitter, stream.PhaseValidation, "보고서 검증에 실패했습니다.", err)
		return
	}

	// Phase: report_saving. Reports are append-only; this run creates a new
	// version regardless of how many came before.
	_ = emitter.Phase(stream.PhaseReportSaving, "보고서를 저장하는 중입니다.", 0.90)
	report := &models.Report{
		CaseID: c.ID,
		Summary: models.ReportSummary{
			Score:    summaryScore(rentRisk, saleRisk),
			Grade:    summaryGrade(rentRisk, saleRisk),
			Headline: headlineFor(rentRisk, saleRisk),
		},
		Analysis: models.AnalysisResult{
			Registry: registryData,
			Market:   marketData,
			RentRisk: rentRisk,
			SaleRisk: saleRisk,
			Draft:    draftGen.Text,
			Final:    validationGen.Text,
			Provenance: models.LLMProvenance{
				DraftModel:       draftGen.Model,
				ValidationModel:  validationGen.Model,
				DraftTokens:      draftGen.Tokens,
				ValidationTokens: validationGen.Tokens,
				GenerationTime:   time.Since(started),
			},
		},
	}
	saveCtx, cancel := context.WithTimeout(ctx, s.cfg.SavePhaseTimeout)
	err = s.reports.Append(saveCtx, report)
	cancel()
	if err != nil {
		s.fail(ctx, c, emitter, stream.PhaseReportSaving, "보고서 저장에 실패했습니다.", err)
		return
	}

	// Phase: state_transition.
	_ = emitter.Phase(stream.PhaseStateTransition, "사례 상태를 갱신하는 중입니다.", 0.95)
	c.LatestReportID = &report.ID
	if err := s.machine.Transition(c, models.StateReport, nil); err != nil {
		s.fail(ctx, c, emitter, stream.PhaseStateTransition, "사례 상태 갱신에 실패했습니다.", err)
		return
	}
	saveCtx, cancel = context.WithTimeout(ctx, s.cfg.SavePhaseTimeout)
	err = s.cases.Update(saveCtx, c)
	cancel()
	if err != nil {
		s.fail(ctx, c, emitter, stream.PhaseStateTransition, "사례 상태 갱신에 실패했습니다.", err)
		return
	}

	// Terminal event only after the report is fully persisted and queryable.
	_ = emitter.Done(report.ID)
	s.log.Info("Analysis run completed", map[string]interface{}{
		"case_id":   c.ID,
		"report_id": report.ID,
		"version":   report.Version,
		"score":     report.Summary.Score,
		"elapsed":   time.Since(started).String(),
	})
}

// loadRegistry returns the parsed registry data for the case, parsing the
// attached document now if no parse record exists yet.
func (s *analysisService) loadRegistry(ctx context.Context, c *models.Case) (*models.RegistryData, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, s.cfg.DataPhaseTimeout)
	defer cancel()

	artifact, err := s.artifacts.LatestRegistry(phaseCtx, c.ID)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, fmt.Errorf("no registry artifact attached to case %s", c.ID)
	}
	if artifact.Parse != nil && artifact.Parse.Registry != nil {
		return artifact.Parse.Registry, nil
	}

	outcome, err := s.parser.Parse(phaseCtx, artifact.FileRef)
	if err != nil {
		return nil, err
	}
	parse := &models.ParseRecord{
		Registry:   outcome.Registry,
		Confidence: outcome.Confidence,
		Method:     outcome.Method,
	}
	if err := s.artifacts.AttachParse(phaseCtx, artifact.ID, parse); err != nil {
		return nil, err
	}
	return outcome.Registry, nil
}

// loadMarket fetches the market snapshot for the case's neighborhood.
func (s *analysisService) loadMarket(ctx context.Context, c *models.Case) (*models.MarketData, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, s.cfg.DataPhaseTimeout)
	defer cancel()

	area := 0.0
	if c.Address.AreaSqm != nil {
		area = *c.Address.AreaSqm
	}
	return s.markets.Fetch(phaseCtx, c.Address.LegalDongCd, marketWindow, area)
}

// computeRisk runs the scoring engine for the case's contract family. Rental
// families get the deposit-safety score; purchases get the investment score
// with the rent-safety score supplied as the legal sub-score.
func (s *analysisService) computeRisk(c *models.Case, registryData *models.RegistryData, marketData *models.MarketData) (*risk.RentResult, *risk.SaleResult) {
	class := risk.ClassApartment
	if c.PropertyType != nil && *c.PropertyType == models.PropertyVilla {
		class = risk.ClassVilla
	}
	rate := risk.ResolveAuctionRate(class, c.Address.Province, c.Address.District)

	rentInput := risk.RentInput{
		Deposit:          *c.ContractAmount,
		FairValue:        marketData.FairValue,
		DefectAmount:     registryData.SeniorDefectAmount(),
		SeniorLienAmount: registryData.SeniorLienAmount(),
		AuctionRate:      rate,
		HasSeizure:       registryData.HasLienType(models.LienSeizure),
		HasProvisional:   registryData.HasLienType(models.LienProvisional),
		HasTaxArrears:    registryData.HasLienType(models.LienTaxArrears),
		IllegalBuilding:  registryData.IllegalBuilding,
	}

	if *c.ContractType != models.ContractPurchase {
		result := risk.CalculateRentSafety(rentInput)
		return &result, nil
	}

	legalResult := risk.CalculateRentSafety(rentInput)
	legalScore := float64(legalResult.Score)
	saleResult := risk.CalculateSaleInvestment(risk.SaleInput{
		ContractPrice: *c.ContractAmount,
		FairPrice:     marketData.FairValue,
		Education:     amenityScore(marketData),
		Employment:    amenityScore(marketData),
		Liquidity:     liquidityScore(marketData),
		Appreciation:  appreciationScore(marketData),
		LegalScore:    &legalScore,
	})
	return nil, &saleResult
}

// generate runs one LLM pass, emitting partial progress events as the model
// streams and a final replacing event when the text is complete.
func (s *analysisService) generate(ctx context.Context, emitter *stream.Emitter, phase stream.Phase, gen llm.TextGenerator, bundle factBundle, draftText string) (*llm.Generation, error) {
	var (
		system string
		user   string
		err    error
	)
	if phase == stream.PhaseDraft {
		system = draftSystemPrompt
		user, err = buildDraftPrompt(bundle)
	} else {
		system = validationSystemPrompt
		user, err = buildValidationPrompt(bundle, draftText)
	}
	if err != nil {
		return nil, err
	}

	base := 0.50
	message := "보고서 초안을 작성하는 중입니다."
	if phase == stream.PhaseValidation {
		base = 0.70
		message = "보고서를 검증하는 중입니다."
	}
	_ = emitter.Emit(stream.Event{
		Phase:    phase,
		Message:  message,
		Progress: base,
		Model:    gen.Model(),
	})

	phaseCtx, cancel := context.WithTimeout(ctx, s.cfg.LLMPhaseTimeout)
	defer cancel()

	generation, err := gen.Generate(phaseCtx, system, user, func(partialLength int) {
		_ = emitter.Emit(stream.Event{
			Phase:         phase,
			Message:       message,
			Progress:      base,
			Model:         gen.Model(),
			Partial:       true,
			PartialLength: partialLength,
		})
	})
	if err != nil {
		return nil, err
	}

	_ = emitter.Emit(stream.Event{
		Phase:      phase,
		Message:    message,
		Progress:   base + 0.15,
		Model:      generation.Model,
		TextLength: len(generation.Text),
	})
	return generation, nil
}

// fail emits the error terminal event and drops the case into the error
// state. The human-readable message goes to the client; the underlying error
// only to the log.
func (s *analysisService) fail(ctx context.Context, c *models.Case, emitter *stream.Emitter, phase stream.Phase, message string, cause error) {
	s.log.Error("Analysis phase failed", cause, map[string]interface{}{
		"case_id": c.ID,
		"phase":   phase,
	})
	_ = emitter.Fail(phase, message)

	if err := s.machine.Fail(c); err == nil {
		saveCtx, cancel := context.WithTimeout(ctx, s.cfg.SavePhaseTimeout)
		defer cancel()
		if err := s.cases.Update(saveCtx, c); err != nil {
			s.log.Error("Failed to persist error state", err, map[string]interface{}{"case_id": c.ID})
		}
	}
}

// summaryScore picks the headline score for the report summary.
func summaryScore(rentRisk *risk.RentResult, saleRisk *risk.SaleResult) int {
	if rentRisk != nil {
		return rentRisk.Score
	}
	if saleRisk != nil {
		return saleRisk.Score
	}
	return 0
}

// summaryGrade picks the headline grade for the report summary.
func summaryGrade(rentRisk *risk.RentResult, saleRisk *risk.SaleResult) string {
	if rentRisk != nil {
		return string(rentRisk.Grade)
	}
	if saleRisk != nil {
		return string(saleRisk.Grade)
	}
	return ""
}

// amenityScore derives a coarse 0-100 amenity sub-score (education access,
// employment demand) from market activity. Without a dedicated locational
// data source, transaction volume is the only observable proxy.
func amenityScore(m *models.MarketData) float64 {
	return 40 + liquidityScore(m)*0.4
}

// appreciationScore derives the long-run appreciation sub-score, dampened
// harder than the amenity scores.
func appreciationScore(m *models.MarketData) float64 {
	return 30 + liquidityScore(m)*0.5
}

// liquidityScore scales recent trade count into a 0-100 liquidity score.
func liquidityScore(m *models.MarketData) float64 {
	count := len(m.Trades)
	if count > 50 {
		count = 50
	}
	return float64(count) * 2
}
