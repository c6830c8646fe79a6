package entities

type Role string

const (
	RoleAdmin         Role = "admin"
	RoleCandidate     Role = "candidate"
	RoleAuthenticated Role = "authenticated"
	RoleVoter         Role = "voter"
	RolePublic        Role = "public"
)

// RoleSet is the explicit allow-list a route declares. The zero value allows
// nobody.
type RoleSet struct {
	roles map[Role]struct{}
}

func NewRoleSet(roles ...Role) RoleSet {
	set := RoleSet{roles: make(map[Role]struct{}, len(roles))}
	for _, role := range roles {
		set.roles[role] = struct{}{}
	}
	return set
}

func (s RoleSet) Contains(role Role) bool {
	_, ok := s.roles[role]
	return ok
}

func (s RoleSet) Empty() bool {
	return len(s.roles) == 0
}

func (s RoleSet) Roles() []Role {
	ordered := []Role{RoleAdmin, RoleCandidate, RoleAuthenticated, RoleVoter, RolePublic}
	items := make([]Role, 0, len(s.roles))
	for _, role := range ordered {
		if s.Contains(role) {
			items = append(items, role)
		}
	}
	return items
}

// Decision is the outcome of one authorization check.
type Decision struct {
	Allowed  bool
	Role     Role
	Reason   string
	Bypassed bool
}

// LoadTestBypass lets automated load tests skip role checks. It only applies
// outside production with a long enough token presented in the request.
type LoadTestBypass struct {
	Enabled    bool
	Production bool
	Token      string
}

const MinBypassTokenLength = 16
