// Package passkeyceremony owns step-up WebAuthn ceremonies for staff
// accounts, the typed session state machine, and the per-principal device
// invariants (two devices, one master).
package passkeyceremony
