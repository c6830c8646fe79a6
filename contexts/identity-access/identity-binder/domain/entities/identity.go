package entities

import "time"

// NationalIdentity is an externally issued identity. BindingSalt holds the
// salt of the last successful handle binding and is empty before the first.
type NationalIdentity struct {
	IdentityID   string
	PasswordHash string
	FullName     string
	DateOfBirth  string
	PhoneNumber  string
	DistrictName string
	BindingSalt  string
}

// VoterHandle is the anonymous record a voter casts ballots as.
type VoterHandle struct {
	HandleID      int64
	DistrictID    int64
	IdentityHash  string
	SaltRotatedAt *time.Time
	LastLoginAt   *time.Time
	CreatedAt     time.Time
}

func (h VoterHandle) Bound() bool {
	return h.IdentityHash != ""
}

// BoundHandle is the session principal produced by a successful login.
type BoundHandle struct {
	HandleID     int64
	DistrictID   int64
	IdentityHash string
	FirstBind    bool
}

type HandleCounts struct {
	DistrictID int64
	Bound      int
	Unbound    int
}

// IdentityImport is a plaintext identity fed to the seed command.
type IdentityImport struct {
	IdentityID   string
	Password     string
	FullName     string
	DateOfBirth  string
	PhoneNumber  string
	DistrictName string
}
