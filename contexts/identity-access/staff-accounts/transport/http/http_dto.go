package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StaffLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// StaffLoginResponse is the verified password principal. The server turns
// it into a passkey-ceremony session.
type StaffLoginResponse struct {
	AccountID          int64  `json:"account_id"`
	Username           string `json:"username"`
	Role               string `json:"role"`
	DistrictID         int64  `json:"district_id,omitempty"`
	MustChangePassword bool   `json:"must_change_password"`
}

type CreateAccountRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	DistrictID int64  `json:"district_id,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type AccountResponse struct {
	ID                 int64      `json:"id"`
	Username           string     `json:"username"`
	Role               string     `json:"role"`
	DistrictID         int64      `json:"district_id,omitempty"`
	MustChangePassword bool       `json:"must_change_password"`
	CreatedAt          time.Time  `json:"created_at"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
}

type ListAccountsResponse struct {
	Items []AccountResponse `json:"items"`
}
