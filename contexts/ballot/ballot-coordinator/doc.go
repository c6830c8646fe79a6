// Package ballotcoordinator casts ballots through the external RingCT
// signer, keeps per-candidate tallies, and stops a batch on a confirmed
// double vote.
package ballotcoordinator
