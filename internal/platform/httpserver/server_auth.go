package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	identitydomainerrors "evoting/contexts/identity-access/identity-binder/domain/errors"
	identityhttp "evoting/contexts/identity-access/identity-binder/transport/http"
	passkeyhttpadapter "evoting/contexts/identity-access/passkey-ceremony/adapters/http"
	passkeyentities "evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	passkeydomainerrors "evoting/contexts/identity-access/passkey-ceremony/domain/errors"
	passkeyhttp "evoting/contexts/identity-access/passkey-ceremony/transport/http"
	staffdomainerrors "evoting/contexts/identity-access/staff-accounts/domain/errors"
	staffhttp "evoting/contexts/identity-access/staff-accounts/transport/http"
)

func (s *Server) handleCSRFToken(w http.ResponseWriter, _ *http.Request, _ requestState) {
	token, err := newCSRFToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

type staffLoginResponse struct {
	Account staffhttp.StaffLoginResponse `json:"account"`
	Session passkeyhttp.SessionResponse  `json:"session"`
}

// handleStaffLogin is the password step. The session it opens is still
// waiting for a passkey ceremony before it carries a principal.
func (s *Server) handleStaffLogin(w http.ResponseWriter, r *http.Request, state requestState) {
	var req staffhttp.StaffLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	account, err := s.modules.Staff.Handler.StaffLoginHandler(r.Context(), req)
	if err != nil {
		writeStaffDomainError(w, err)
		return
	}
	s.endPriorSession(r.Context(), state)

	session, err := s.modules.Passkeys.Sessions.StartStaff(r.Context(), passkeyentities.Subject{
		Kind:       passkeyentities.SubjectStaff,
		ID:         strconv.FormatInt(account.AccountID, 10),
		Role:       account.Role,
		DistrictID: account.DistrictID,
		Username:   account.Username,
	})
	if err != nil {
		writePasskeyDomainError(w, err)
		return
	}
	s.setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, staffLoginResponse{
		Account: account,
		Session: passkeyhttpadapter.MapSession(session),
	})
}

type voterLoginResponse struct {
	Voter   identityhttp.VoterHandleResponse `json:"voter"`
	Session passkeyhttp.SessionResponse      `json:"session"`
}

func (s *Server) handleVoterLogin(w http.ResponseWriter, r *http.Request, state requestState) {
	var req identityhttp.VoterLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	handle, err := s.modules.Identity.Handler.VoterLoginHandler(r.Context(), req)
	if err != nil {
		writeIdentityDomainError(w, err)
		return
	}
	s.endPriorSession(r.Context(), state)

	session, err := s.modules.Passkeys.Sessions.StartVoter(r.Context(), passkeyentities.Subject{
		Kind:       passkeyentities.SubjectVoter,
		ID:         strconv.FormatInt(handle.HandleID, 10),
		DistrictID: handle.DistrictID,
	})
	if err != nil {
		writePasskeyDomainError(w, err)
		return
	}
	s.setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, voterLoginResponse{
		Voter:   handle,
		Session: passkeyhttpadapter.MapSession(session),
	})
}

// endPriorSession drops the session a fresh login replaces so a cookie
// never points at two principals over its lifetime.
func (s *Server) endPriorSession(ctx context.Context, state requestState) {
	if state.session == nil {
		return
	}
	if err := s.modules.Passkeys.Handler.LogoutHandler(ctx, state.sessionID()); err != nil {
		s.logger.Warn("prior session logout failed",
			"event", "http_prior_session_logout_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request, state requestState) {
	if state.session == nil {
		writeJSON(w, http.StatusOK, passkeyhttp.SessionResponse{State: state.sessionState()})
		return
	}
	writeJSON(w, http.StatusOK, passkeyhttpadapter.MapSession(*state.session))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, state requestState) {
	if state.session != nil {
		if err := s.modules.Passkeys.Handler.LogoutHandler(r.Context(), state.sessionID()); err != nil {
			writePasskeyDomainError(w, err)
			return
		}
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegistrationOptions(w http.ResponseWriter, r *http.Request, state requestState) {
	if !requireSession(w, state) {
		return
	}
	resp, err := s.modules.Passkeys.Handler.RegistrationOptionsHandler(r.Context(), state.sessionID())
	if err != nil {
		writePasskeyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegistrationVerify(w http.ResponseWriter, r *http.Request, state requestState) {
	if !requireSession(w, state) {
		return
	}
	var req passkeyhttp.RegistrationVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	resp, err := s.modules.Passkeys.Handler.RegistrationVerifyHandler(r.Context(), state.sessionID(), req)
	if err != nil {
		s.writeCeremonyError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleAuthenticationOptions(w http.ResponseWriter, r *http.Request, state requestState) {
	if !requireSession(w, state) {
		return
	}
	resp, err := s.modules.Passkeys.Handler.AuthenticationOptionsHandler(r.Context(), state.sessionID())
	if err != nil {
		writePasskeyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAuthenticationVerify(w http.ResponseWriter, r *http.Request, state requestState) {
	if !requireSession(w, state) {
		return
	}
	var req passkeyhttp.AuthenticationVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	resp, err := s.modules.Passkeys.Handler.AuthenticationVerifyHandler(r.Context(), state.sessionID(), req)
	if err != nil {
		s.writeCeremonyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelCeremony(w http.ResponseWriter, r *http.Request, state requestState) {
	if !requireSession(w, state) {
		return
	}
	if err := s.modules.Passkeys.Handler.CancelHandler(r.Context(), state.sessionID()); err != nil {
		writePasskeyDomainError(w, err)
		return
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListOwnCredentials(w http.ResponseWriter, r *http.Request, state requestState) {
	if !requireSession(w, state) {
		return
	}
	resp, err := s.modules.Passkeys.Handler.ListCredentialsHandler(r.Context(), state.session.Subject.ID)
	if err != nil {
		writePasskeyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteOwnNonMaster(w http.ResponseWriter, r *http.Request, state requestState) {
	if !requireSession(w, state) {
		return
	}
	resp, err := s.modules.Passkeys.Handler.DeleteOwnNonMasterHandler(r.Context(), state.sessionID())
	if err != nil {
		writePasskeyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeletePrincipalCredentials(w http.ResponseWriter, r *http.Request, _ requestState) {
	principalID := r.PathValue("principal_id")
	if principalID == "" {
		writeError(w, http.StatusBadRequest, "invalid_principal_id", "principal id is required")
		return
	}
	resp, err := s.modules.Passkeys.Handler.DeleteAllForPrincipalHandler(r.Context(), principalID)
	if err != nil {
		writePasskeyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteAllNonMaster(w http.ResponseWriter, r *http.Request, _ requestState) {
	resp, err := s.modules.Passkeys.Handler.DeleteAllNonMasterHandler(r.Context())
	if err != nil {
		writePasskeyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, state requestState) {
	writeJSON(w, http.StatusOK, s.modules.Access.Handler.MeHandler(r.Context(), state.principal, state.sessionState()))
}

func requireSession(w http.ResponseWriter, state requestState) bool {
	if state.session == nil {
		writeError(w, http.StatusUnauthorized, "session_required", "login before starting a passkey ceremony")
		return false
	}
	return true
}

// writeCeremonyError ends the session on a failed verification; the
// ceremony already invalidated it server side.
func (s *Server) writeCeremonyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, passkeydomainerrors.ErrVerificationFailed),
		errors.Is(err, passkeydomainerrors.ErrPrincipalMismatch),
		errors.Is(err, passkeydomainerrors.ErrCounterRegression),
		errors.Is(err, passkeydomainerrors.ErrCredentialNotFound):
		s.clearSessionCookie(w)
	}
	writePasskeyDomainError(w, err)
}

func writeStaffDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, staffdomainerrors.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "auth_failure", "invalid username or password")
	case errors.Is(err, staffdomainerrors.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account_not_found", err.Error())
	case errors.Is(err, staffdomainerrors.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "username_taken", err.Error())
	case errors.Is(err, staffdomainerrors.ErrInvalidAccount),
		errors.Is(err, staffdomainerrors.ErrInvalidRole),
		errors.Is(err, staffdomainerrors.ErrWeakPassword),
		errors.Is(err, staffdomainerrors.ErrPasswordUnchanged):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, staffdomainerrors.ErrLastAdmin):
		writeError(w, http.StatusConflict, "last_admin", err.Error())
	case errors.Is(err, staffdomainerrors.ErrCandidateHasVotes):
		writeError(w, http.StatusConflict, "candidate_has_votes", err.Error())
	case errors.Is(err, staffdomainerrors.ErrPhaseRejected):
		writeError(w, http.StatusConflict, "phase_rejected", err.Error())
	case errors.Is(err, staffdomainerrors.ErrSignerUnavailable):
		writeError(w, http.StatusServiceUnavailable, "signer_unavailable", "signer unavailable")
	case errors.Is(err, staffdomainerrors.ErrSignerRejected):
		writeError(w, http.StatusBadGateway, "signer_rejected", "signer rejected request")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// writeIdentityDomainError collapses every login failure into one response.
func writeIdentityDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identitydomainerrors.ErrAuthFailure):
		writeError(w, http.StatusUnauthorized, "auth_failure", "authentication failed")
	case errors.Is(err, identitydomainerrors.ErrInvalidDistrictID),
		errors.Is(err, identitydomainerrors.ErrInvalidHandleCount),
		errors.Is(err, identitydomainerrors.ErrInvalidIdentityInput):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writePasskeyDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, passkeydomainerrors.ErrSessionNotFound),
		errors.Is(err, passkeydomainerrors.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, "session_expired", "session not found or expired")
	case errors.Is(err, passkeydomainerrors.ErrVerificationFailed),
		errors.Is(err, passkeydomainerrors.ErrPrincipalMismatch),
		errors.Is(err, passkeydomainerrors.ErrCounterRegression),
		errors.Is(err, passkeydomainerrors.ErrCredentialNotFound):
		writeError(w, http.StatusUnauthorized, "verification_failed", "passkey verification failed")
	case errors.Is(err, passkeydomainerrors.ErrPasswordNotConfirmed):
		writeError(w, http.StatusForbidden, "password_not_confirmed", err.Error())
	case errors.Is(err, passkeydomainerrors.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, passkeydomainerrors.ErrDeviceLimitReached):
		writeError(w, http.StatusConflict, "device_limit_reached", err.Error())
	case errors.Is(err, passkeydomainerrors.ErrMasterAlreadyExists):
		writeError(w, http.StatusConflict, "master_exists", err.Error())
	case errors.Is(err, passkeydomainerrors.ErrCredentialExists):
		writeError(w, http.StatusConflict, "credential_exists", err.Error())
	case errors.Is(err, passkeydomainerrors.ErrChallengeExpired):
		writeError(w, http.StatusGone, "challenge_expired", err.Error())
	case errors.Is(err, passkeydomainerrors.ErrNoCredentials):
		writeError(w, http.StatusNotFound, "no_credentials", err.Error())
	case errors.Is(err, passkeydomainerrors.ErrInvalidSubject):
		writeError(w, http.StatusBadRequest, "invalid_subject", err.Error())
	case errors.Is(err, passkeydomainerrors.ErrCeremonyNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "ceremony_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
