// Package accessdecider resolves a request's effective role from the runtime
// variant of its principal and authorizes it against the route's declared
// role set.
//
// Layering:
// - domain: principal variants, role resolution, bypass policy
// - application: per-request authorization with deny-by-default
// - adapters: in-memory route policy table and HTTP handler
//
// Roles are never stored on a session; they are recomputed on every request.
package accessdecider
