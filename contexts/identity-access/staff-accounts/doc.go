// Package staffaccounts owns privileged staff accounts: password login,
// phase-gated account creation and deletion, and candidate key provisioning.
// Passkey step-up for these accounts lives in passkey-ceremony.
package staffaccounts
