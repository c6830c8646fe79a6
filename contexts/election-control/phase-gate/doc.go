// Package phasegate implements the election phase gate inside the
// election-control context.
//
// The module owns the ordered election timeline, the single active phase,
// the operation-class policy other contexts consult before mutating state,
// and the tally finalization that follows activation of the terminal phase.
// Finalization runs once synchronously after the transition commits and is
// retried by the worker until it completes.
package phasegate
