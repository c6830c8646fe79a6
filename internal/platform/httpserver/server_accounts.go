package httpserver

import (
	"net/http"
	"strconv"

	passkeyentities "evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	staffhttp "evoting/contexts/identity-access/staff-accounts/transport/http"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request, _ requestState) {
	resp, err := s.modules.Staff.Handler.ListAccountsHandler(r.Context())
	if err != nil {
		writeStaffDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request, _ requestState) {
	var req staffhttp.CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	resp, err := s.modules.Staff.Handler.CreateAccountHandler(r.Context(), req)
	if err != nil {
		writeStaffDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request, _ requestState) {
	accountID, ok := pathInt64(r, "account_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_account_id", "account id must be a positive integer")
		return
	}
	if err := s.modules.Staff.Handler.DeleteAccountHandler(r.Context(), accountID); err != nil {
		writeStaffDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleChangePassword only ever targets the caller's own account.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, state requestState) {
	if state.session == nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
		return
	}
	accountID, err := strconv.ParseInt(state.session.Subject.ID, 10, 64)
	if state.session.Subject.Kind != passkeyentities.SubjectStaff || err != nil || accountID <= 0 {
		writeError(w, http.StatusForbidden, "forbidden", "session is not bound to a staff account")
		return
	}
	var req staffhttp.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if err := s.modules.Staff.Handler.ChangePasswordHandler(r.Context(), accountID, req); err != nil {
		writeStaffDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
