package entities

import "time"

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCandidate Role = "candidate"
	RoleStaff     Role = "staff"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCandidate, RoleStaff:
		return true
	default:
		return false
	}
}

// Account is a staff_accounts row. For candidates ID doubles as the
// candidate id known to the signer and the tally table.
type Account struct {
	ID                 int64
	Username           string
	PasswordHash       string
	Role               Role
	DistrictID         int64
	MustChangePassword bool
	CreatedAt          time.Time
	LastLoginAt        *time.Time
}

// Principal is what a successful password login yields.
type Principal struct {
	AccountID          int64
	Username           string
	Role               Role
	DistrictID         int64
	MustChangePassword bool
}

func (a Account) Principal() Principal {
	return Principal{
		AccountID:          a.ID,
		Username:           a.Username,
		Role:               a.Role,
		DistrictID:         a.DistrictID,
		MustChangePassword: a.MustChangePassword,
	}
}
