package entities

// Principal is the authenticated subject of a session. The variants are
// StaffPrincipal and VoterPrincipal; a nil Principal is public.
type Principal interface {
	principal()
}

type StaffRole string

const (
	StaffRoleAdmin     StaffRole = "admin"
	StaffRoleCandidate StaffRole = "candidate"
	StaffRoleStaff     StaffRole = "staff"
)

type StaffPrincipal struct {
	AccountID  string
	Role       StaffRole
	DistrictID int64
}

func (StaffPrincipal) principal() {}

// VoterPrincipal is an anonymous voter handle. It never carries the real
// identity behind the handle.
type VoterPrincipal struct {
	HandleID   int64
	DistrictID int64
}

func (VoterPrincipal) principal() {}
