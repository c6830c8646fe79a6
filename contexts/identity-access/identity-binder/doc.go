// Package identitybinder converts a verified national-identity login into an
// anonymous voter handle inside the identity-access context.
//
// A handle never references the identity that owns it. The link is a binding
// hash over the identity's attributes and a salt that is replaced on every
// login; only the current salt is kept, on the identity record, so a snapshot
// of the handle table cannot correlate two logins of the same voter.
//
// Every authentication failure is reported as ErrAuthFailure. The precise
// cause is logged, never returned.
package identitybinder
