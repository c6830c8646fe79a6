package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateDistrictRequest struct {
	Name       string `json:"name"`
	VoterCount int    `json:"voter_count,omitempty"`
}

type DistrictResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	VoterCount int       `json:"voter_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type ListDistrictsResponse struct {
	Items []DistrictResponse `json:"items"`
}
