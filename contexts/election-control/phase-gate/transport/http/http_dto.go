package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PhaseResponse struct {
	PhaseID  int64  `json:"phase_id"`
	Name     string `json:"name"`
	Ordinal  int    `json:"ordinal"`
	IsActive bool   `json:"is_active"`
	Terminal bool   `json:"terminal"`
}

type ListPhasesResponse struct {
	Items []PhaseResponse `json:"items"`
}

type CurrentPhaseResponse struct {
	Active bool           `json:"active"`
	Phase  *PhaseResponse `json:"phase,omitempty"`
}

type FinalizationResponse struct {
	FinalizationID string `json:"finalization_id"`
	PhaseID        int64  `json:"phase_id"`
	Status         string `json:"status"`
	Attempts       int    `json:"attempts"`
	LastError      string `json:"last_error,omitempty"`
	RequestedAt    string `json:"requested_at"`
	CompletedAt    string `json:"completed_at,omitempty"`
}

type ListFinalizationsResponse struct {
	Items []FinalizationResponse `json:"items"`
}

type ActivatePhaseResponse struct {
	Phase        PhaseResponse         `json:"phase"`
	Changed      bool                  `json:"changed"`
	Finalization *FinalizationResponse `json:"finalization,omitempty"`
}
