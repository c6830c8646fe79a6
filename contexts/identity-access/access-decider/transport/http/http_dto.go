package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type MeResponse struct {
	Role         string `json:"role"`
	Kind         string `json:"kind"`
	SubjectID    string `json:"subject_id,omitempty"`
	DistrictID   int64  `json:"district_id,omitempty"`
	SessionState string `json:"session_state"`
}
