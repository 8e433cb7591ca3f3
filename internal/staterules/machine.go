// Package staterules implements the case lifecycle state machine. It is the
// single authority on which transitions are legal and which data must exist
// on a case before it may enter a given state; risk analysis can only run
// against a case the machine has let through every gate.
package staterules

import (
	"errors"
	"fmt"

	"github.com/doldari/api/internal/models"
)

// Sentinel errors. ErrIllegalTransition marks an out-of-order transition
// attempt, which is an integration bug in the caller rather than a user
// error; ErrPreconditionFailed marks missing data for an otherwise legal
// transition and is safe to surface to the caller.
var (
	ErrIllegalTransition  = errors.New("illegal case state transition")
	ErrPreconditionFailed = errors.New("case state precondition not met")
	ErrNotInErrorState    = errors.New("case is not in the error state")
	ErrUnknownState       = errors.New("unknown case state")
)

// Machine validates case state transitions. It holds the parse-confidence
// floor as its only tunable; everything else is fixed by the transition table.
type Machine struct {
	parseConfidenceFloor float64
}

// New creates a Machine with the given parse-confidence floor, the minimum
// registry parse confidence required to enter parse_enrich without an
// explicit override flag.
func New(parseConfidenceFloor float64) *Machine {
	return &Machine{parseConfidenceFloor: parseConfidenceFloor}
}

// CanTransition reports whether moving from one state to another is legal,
// ignoring data preconditions. A transition is legal only if it moves to the
// immediate next state in the sequence, re-enters the same state, or drops to
// the error state from any non-terminal state.
func (m *Machine) CanTransition(from, to models.CaseState) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if to == models.StateError {
		return from != models.StateError
	}
	if from == to {
		return true
	}
	if from == models.StateError {
		// Leaving error goes through Reset, not Transition.
		return false
	}
	return to.Ordinal() == from.Ordinal()+1
}

// Transition validates and applies a state change on the case. It checks the
// transition table first, then the entry precondition for the target state.
// On success the case's state is updated and, for non-error targets, its
// last-good-state marker advances with it.
func (m *Machine) Transition(c *models.Case, to models.CaseState, registry *models.Artifact) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownState, to)
	}
	if !m.CanTransition(c.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.State, to)
	}
	if err := m.ValidateEntry(to, c, registry); err != nil {
		return err
	}
	c.State = to
	if to != models.StateError {
		c.LastGoodState = to
	}
	return nil
}

// Fail drops the case into the error state. Legal from any non-terminal
// state; the last-good-state marker is left untouched so Reset can recover.
func (m *Machine) Fail(c *models.Case) error {
	if c.State == models.StateError {
		return fmt.Errorf("%w: already in error", ErrIllegalTransition)
	}
	c.State = models.StateError
	return nil
}

// Reset recovers a case from the error state back to its last well-formed
// state. The machine never retries on its own; calling Reset is an explicit
// orchestration decision.
func (m *Machine) Reset(c *models.Case) error {
	if c.State != models.StateError {
		return ErrNotInErrorState
	}
	target := c.LastGoodState
	if !target.Valid() || target == models.StateError {
		target = models.StateInit
	}
	c.State = target
	return nil
}

// ValidateEntry checks the minimum-data precondition for entering a state.
// The registry artifact is passed separately because artifacts are persisted
// outside the case row; it may be nil for states that do not require one.
func (m *Machine) ValidateEntry(to models.CaseState, c *models.Case, registry *models.Artifact) error {
	switch to {
	case models.StateInit, models.StateAddressPick, models.StateError:
		return nil

	case models.StateContractType:
		if c.Address == nil || c.Address.RoadAddress == "" {
			return fmt.Errorf("%w: resolved road address required to enter %s", ErrPreconditionFailed, to)
		}
		return nil

	case models.StateRegistryChoice:
		if err := c.ValidateContractTerms(); err != nil {
			return fmt.Errorf("%w: %v", ErrPreconditionFailed, err)
		}
		return nil

	case models.StateRegistryReady:
		if registry == nil || registry.Kind != models.ArtifactRegistry {
			return fmt.Errorf("%w: registry artifact required to enter %s", ErrPreconditionFailed, to)
		}
		return nil

	case models.StateParseEnrich:
		if registry == nil || registry.Parse == nil || registry.Parse.Registry == nil {
			return fmt.Errorf("%w: parsed registry data required to enter %s", ErrPreconditionFailed, to)
		}
		if registry.Parse.Confidence < m.parseConfidenceFloor && !c.HasParseOverride() {
			return fmt.Errorf("%w: parse confidence %.2f below floor %.2f and no override set",
				ErrPreconditionFailed, registry.Parse.Confidence, m.parseConfidenceFloor)
		}
		return nil

	case models.StateReport:
		if c.LatestReportID == nil || *c.LatestReportID == "" {
			return fmt.Errorf("%w: persisted report required to enter %s", ErrPreconditionFailed, to)
		}
		return nil
	}

	return fmt.Errorf("%w: %q", ErrUnknownState, to)
}
