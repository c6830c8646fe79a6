package httpserver

import (
	"errors"
	"net/http"

	districtdomainerrors "evoting/contexts/election-control/district-registry/domain/errors"
	districthttp "evoting/contexts/election-control/district-registry/transport/http"
	phasedomainerrors "evoting/contexts/election-control/phase-gate/domain/errors"
)

func (s *Server) handleListPhases(w http.ResponseWriter, r *http.Request, _ requestState) {
	resp, err := s.modules.Phases.Handler.ListPhasesHandler(r.Context())
	if err != nil {
		writePhaseDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCurrentPhase(w http.ResponseWriter, r *http.Request, _ requestState) {
	resp, err := s.modules.Phases.Handler.CurrentPhaseHandler(r.Context())
	if err != nil {
		writePhaseDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActivatePhase(w http.ResponseWriter, r *http.Request, _ requestState) {
	phaseID, ok := pathInt64(r, "phase_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_phase_id", "phase id must be a positive integer")
		return
	}
	resp, err := s.modules.Phases.Handler.ActivatePhaseHandler(r.Context(), phaseID)
	if err != nil {
		writePhaseDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListFinalizations(w http.ResponseWriter, r *http.Request, _ requestState) {
	resp, err := s.modules.Phases.Handler.ListFinalizationsHandler(r.Context())
	if err != nil {
		writePhaseDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDistricts(w http.ResponseWriter, r *http.Request, _ requestState) {
	resp, err := s.modules.Districts.Handler.ListDistrictsHandler(r.Context())
	if err != nil {
		writeDistrictDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateDistrict(w http.ResponseWriter, r *http.Request, _ requestState) {
	var req districthttp.CreateDistrictRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	resp, err := s.modules.Districts.Handler.CreateDistrictHandler(r.Context(), req)
	if err != nil {
		writeDistrictDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetDistrict(w http.ResponseWriter, r *http.Request, _ requestState) {
	districtID, ok := pathInt64(r, "district_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_district_id", "district id must be a positive integer")
		return
	}
	resp, err := s.modules.Districts.Handler.GetDistrictHandler(r.Context(), districtID)
	if err != nil {
		writeDistrictDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteDistrict(w http.ResponseWriter, r *http.Request, _ requestState) {
	districtID, ok := pathInt64(r, "district_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_district_id", "district id must be a positive integer")
		return
	}
	if err := s.modules.Districts.Handler.DeleteDistrictHandler(r.Context(), districtID); err != nil {
		writeDistrictDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHandleCounts(w http.ResponseWriter, r *http.Request, _ requestState) {
	districtID, ok := pathInt64(r, "district_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_district_id", "district id must be a positive integer")
		return
	}
	resp, err := s.modules.Identity.Handler.HandleCountsHandler(r.Context(), districtID)
	if err != nil {
		writeIdentityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writePhaseDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, phasedomainerrors.ErrPhaseNotFound),
		errors.Is(err, phasedomainerrors.ErrFinalizationNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, phasedomainerrors.ErrInvalidPhaseID),
		errors.Is(err, phasedomainerrors.ErrInvalidOperationClass):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, phasedomainerrors.ErrPhaseRejected):
		writeError(w, http.StatusConflict, "phase_rejected", err.Error())
	case errors.Is(err, phasedomainerrors.ErrTallyFinalizerMissing),
		errors.Is(err, phasedomainerrors.ErrMultipleActivePhases):
		writeError(w, http.StatusInternalServerError, "phase_state_invalid", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeDistrictDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, districtdomainerrors.ErrDistrictNotFound):
		writeError(w, http.StatusNotFound, "district_not_found", err.Error())
	case errors.Is(err, districtdomainerrors.ErrDistrictExists):
		writeError(w, http.StatusConflict, "district_exists", err.Error())
	case errors.Is(err, districtdomainerrors.ErrInvalidDistrict):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, districtdomainerrors.ErrPhaseRejected):
		writeError(w, http.StatusConflict, "phase_rejected", err.Error())
	case errors.Is(err, districtdomainerrors.ErrSignerUnavailable):
		writeError(w, http.StatusServiceUnavailable, "signer_unavailable", "signer unavailable")
	case errors.Is(err, districtdomainerrors.ErrSignerRejected):
		writeError(w, http.StatusBadGateway, "signer_rejected", "signer rejected request")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
