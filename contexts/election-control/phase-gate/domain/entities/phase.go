package entities

import "time"

// Phase names in election timeline order.
const (
	PhaseNotStarted  = "Not Started"
	PhaseCampaigning = "Campaigning Day"
	PhaseCoolingOff  = "Cooling Off Day"
	PhasePolling     = "Polling Day"
	PhaseEnded       = "End Election"
)

// Phase is a named, mutually exclusive stage of the election timeline.
type Phase struct {
	PhaseID   int64
	Name      string
	Ordinal   int
	IsActive  bool
	UpdatedAt time.Time
}

// IsTerminal reports whether activating the phase closes the election.
func (p Phase) IsTerminal() bool {
	return p.Name == PhaseEnded
}

// DefaultPhases returns the canonical timeline with stable ids.
func DefaultPhases() []Phase {
	names := []string{PhaseNotStarted, PhaseCampaigning, PhaseCoolingOff, PhasePolling, PhaseEnded}
	phases := make([]Phase, 0, len(names))
	for i, name := range names {
		phases = append(phases, Phase{
			PhaseID: int64(i + 1),
			Name:    name,
			Ordinal: i + 1,
		})
	}
	return phases
}

type OperationClass string

const (
	OperationAccountMutation  OperationClass = "account_mutation"
	OperationDistrictMutation OperationClass = "district_mutation"
	OperationPartyMutation    OperationClass = "party_mutation"
	OperationBallotCast       OperationClass = "ballot_cast"
)

func (o OperationClass) Valid() bool {
	switch o {
	case OperationAccountMutation, OperationDistrictMutation, OperationPartyMutation, OperationBallotCast:
		return true
	default:
		return false
	}
}

// ActivationRecord is what the repository reports after an activation commits.
type ActivationRecord struct {
	Phase        Phase
	Changed      bool
	Finalization *TallyFinalization
}
