package services

import (
	"crypto/subtle"

	"evoting/contexts/identity-access/access-decider/domain/entities"
)

// ResolveRole maps the principal's runtime variant to its role tag.
func ResolveRole(principal entities.Principal) entities.Role {
	switch p := principal.(type) {
	case entities.StaffPrincipal:
		switch p.Role {
		case entities.StaffRoleAdmin:
			return entities.RoleAdmin
		case entities.StaffRoleCandidate:
			return entities.RoleCandidate
		default:
			return entities.RoleAuthenticated
		}
	case *entities.StaffPrincipal:
		if p == nil {
			return entities.RolePublic
		}
		return ResolveRole(*p)
	case entities.VoterPrincipal:
		return entities.RoleVoter
	case *entities.VoterPrincipal:
		if p == nil {
			return entities.RolePublic
		}
		return entities.RoleVoter
	default:
		return entities.RolePublic
	}
}

// Authorize is allowed.Contains(ResolveRole(principal)); an empty set denies.
func Authorize(principal entities.Principal, allowed entities.RoleSet) entities.Decision {
	role := ResolveRole(principal)
	if allowed.Empty() {
		return entities.Decision{Role: role, Reason: "no_roles_declared"}
	}
	if !allowed.Contains(role) {
		return entities.Decision{Role: role, Reason: "role_not_allowed"}
	}
	return entities.Decision{Allowed: true, Role: role, Reason: "role_allowed"}
}

// BypassGranted reports whether presented matches an active bypass policy.
func BypassGranted(policy entities.LoadTestBypass, presented string) bool {
	if !policy.Enabled || policy.Production {
		return false
	}
	if len(policy.Token) < entities.MinBypassTokenLength || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(policy.Token), []byte(presented)) == 1
}
