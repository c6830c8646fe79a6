package services

import "evoting/contexts/election-control/phase-gate/domain/entities"

// MutationAllowed is the canonical phase to operation-class policy.
// Unknown phases deny every operation.
func MutationAllowed(phaseName string, op entities.OperationClass) bool {
	switch op {
	case entities.OperationAccountMutation, entities.OperationDistrictMutation, entities.OperationPartyMutation:
		return phaseName == entities.PhaseNotStarted || phaseName == entities.PhaseCampaigning
	case entities.OperationBallotCast:
		return phaseName == entities.PhasePolling
	default:
		return false
	}
}
