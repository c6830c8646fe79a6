package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type VoterLoginRequest struct {
	IdentityID string `json:"identity_id"`
	Password   string `json:"password"`
}

// VoterHandleResponse never carries the binding hash.
type VoterHandleResponse struct {
	HandleID   int64 `json:"handle_id"`
	DistrictID int64 `json:"district_id"`
	FirstBind  bool  `json:"first_bind"`
}

type HandleCountsResponse struct {
	DistrictID int64 `json:"district_id"`
	Bound      int   `json:"bound"`
	Unbound    int   `json:"unbound"`
}
