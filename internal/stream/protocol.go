// Package stream defines the wire contract for the progressive analysis
// stream: the fixed phase order, the event shape, and an emitter that
// enforces ordering and the single-terminal-event contract. Intermediate
// phase events are advisory UX; correctness only depends on the terminal
// event, which is emitted after the report is fully persisted.
package stream

// Phase names one stage of an analysis run. Phases are strictly ordered: a
// later phase is never observed before an earlier one completes for the same
// run.
type Phase string

const (
	PhaseCaseLoading     Phase = "case_loading"
	PhaseRegistryParsing Phase = "registry_parsing"
	PhasePublicData      Phase = "public_data"
	PhaseRiskCalculation Phase = "risk_calculation"
	PhaseDraft           Phase = "draft"
	PhaseValidation      Phase = "validation"
	PhaseReportSaving    Phase = "report_saving"
	PhaseStateTransition Phase = "state_transition"
	PhaseCompletion      Phase = "completion"
)

// PhaseOrder is the canonical phase sequence of one run.
var PhaseOrder = []Phase{
	PhaseCaseLoading,
	PhaseRegistryParsing,
	PhasePublicData,
	PhaseRiskCalculation,
	PhaseDraft,
	PhaseValidation,
	PhaseReportSaving,
	PhaseStateTransition,
	PhaseCompletion,
}

// Index returns the position of the phase in the canonical order, or -1 for
// an unknown phase.
func (p Phase) Index() int {
	for i, phase := range PhaseOrder {
		if phase == p {
			return i
		}
	}
	return -1
}

// Event is one discrete JSON event in the analysis stream.
//
// Step is monotonically non-decreasing within a run. Progress is a fraction
// in [0,1]. The two LLM phases additionally carry Model and PartialLength;
// repeated events within one phase replace the displayed text unless Partial
// is set, in which case the consumer appends.
//
// Exactly one terminal event closes the stream: Done=true with ReportID on
// success, or Error non-empty on failure. No events are valid after either.
type Event struct {
	Step          int     `json:"step"`
	Message       string  `json:"message"`
	Progress      float64 `json:"progress"`
	Phase         Phase   `json:"phase,omitempty"`
	Model         string  `json:"model,omitempty"`
	Partial       bool    `json:"partial,omitempty"`
	PartialLength int     `json:"partial_length,omitempty"`
	TextLength    int     `json:"text_length,omitempty"`
	Done          bool    `json:"done,omitempty"`
	ReportID      string  `json:"report_id,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// Terminal reports whether the event closes the stream.
func (e Event) Terminal() bool {
	return e.Done || e.Error != ""
}
