package httpserver

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"time"

	accessqueries "evoting/contexts/identity-access/access-decider/application/queries"
	accessentities "evoting/contexts/identity-access/access-decider/domain/entities"
	passkeyentities "evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	passkeyerrors "evoting/contexts/identity-access/passkey-ceremony/domain/errors"
	stafferrors "evoting/contexts/identity-access/staff-accounts/domain/errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	sessionCookieName = "evoting_session"
	csrfCookieName    = "evoting_csrf"
	csrfHeaderName    = "X-CSRF-Token"
	bypassHeaderName  = "X-Load-Test-Token"
)

// requestState is what the guard resolved before the route handler runs.
// session is nil when the request carries no live session cookie.
type requestState struct {
	session   *passkeyentities.Session
	principal accessentities.Principal
}

func (st requestState) sessionID() string {
	if st.session == nil {
		return ""
	}
	return st.session.SessionID
}

func (st requestState) sessionState() string {
	if st.session == nil {
		return string(passkeyentities.StateUnauthenticated)
	}
	return string(st.session.State)
}

type routeHandler func(w http.ResponseWriter, r *http.Request, state requestState)

// guard resolves the session, enforces CSRF on unsafe methods and asks the
// access decider before the handler runs.
func (s *Server) guard(route string, next routeHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ctx, span := s.tracer.Start(r.Context(), route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		r = r.WithContext(ctx)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.status_code", recorder.status),
			)
			if recorder.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(recorder.status))
			}
			if s.metrics != nil {
				s.metrics.ObserveHTTP(route, r.Method, recorder.status, time.Since(started))
			}
		}()

		state, err := s.resolveSession(r)
		if err != nil {
			s.logger.Error("resolve session failed",
				"event", "http_session_resolve_failed",
				"module", "internal/platform/httpserver",
				"layer", "platform",
				"route", route,
				"error", err.Error(),
			)
			writeError(recorder, http.StatusInternalServerError, "internal_error", "internal error")
			return
		}

		if requiresCSRF(r.Method) && !validCSRF(r) {
			writeError(recorder, http.StatusForbidden, "csrf_failed", "missing or mismatched csrf token")
			return
		}

		decision := s.modules.Access.Decider.Execute(ctx, accessqueries.AuthorizeQuery{
			Route:       route,
			Principal:   state.principal,
			BypassToken: r.Header.Get(bypassHeaderName),
		})
		if !decision.Allowed {
			if state.principal == nil {
				writeError(recorder, http.StatusUnauthorized, "unauthenticated", "authentication required")
				return
			}
			writeError(recorder, http.StatusForbidden, "forbidden", "role not allowed for this route")
			return
		}
		next(recorder, r, state)
	})
}

func (s *Server) resolveSession(r *http.Request) (requestState, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return requestState{}, nil
	}
	session, err := s.modules.Passkeys.Query.Resolve(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, passkeyerrors.ErrSessionNotFound) || errors.Is(err, passkeyerrors.ErrSessionExpired) {
			return requestState{}, nil
		}
		return requestState{}, err
	}
	principal, err := s.currentPrincipal(r.Context(), session)
	if err != nil {
		return requestState{}, err
	}
	return requestState{session: &session, principal: principal}, nil
}

// currentPrincipal re-reads a staff account on every request. The session
// only proves who logged in; the role and district come from the account as
// it is now, and a deleted account yields no principal.
func (s *Server) currentPrincipal(ctx context.Context, session passkeyentities.Session) (accessentities.Principal, error) {
	principal := principalFromSession(session)
	staff, ok := principal.(accessentities.StaffPrincipal)
	if !ok {
		return principal, nil
	}
	accountID, err := strconv.ParseInt(staff.AccountID, 10, 64)
	if err != nil || accountID <= 0 {
		return nil, nil
	}
	account, err := s.modules.Staff.Queries.GetAccount(ctx, accountID)
	if errors.Is(err, stafferrors.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	staff.Role = accessentities.StaffRole(account.Role)
	staff.DistrictID = account.DistrictID
	return staff, nil
}

// principalFromSession only yields a principal for fully authenticated
// sessions; a staff member mid ceremony is still public.
func principalFromSession(session passkeyentities.Session) accessentities.Principal {
	if !session.Authenticated() {
		return nil
	}
	subject := session.Subject
	switch subject.Kind {
	case passkeyentities.SubjectStaff:
		return accessentities.StaffPrincipal{
			AccountID:  subject.ID,
			Role:       accessentities.StaffRole(subject.Role),
			DistrictID: subject.DistrictID,
		}
	case passkeyentities.SubjectVoter:
		handleID, err := strconv.ParseInt(subject.ID, 10, 64)
		if err != nil || handleID <= 0 {
			return nil
		}
		return accessentities.VoterPrincipal{HandleID: handleID, DistrictID: subject.DistrictID}
	default:
		return nil
	}
}

func requiresCSRF(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// validCSRF is the double submit check: the cookie value must be echoed in
// the header.
func validCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	header := r.Header.Get(csrfHeaderName)
	if header == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) == 1
}

func newCSRFToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, session passkeyentities.Session) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.SessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	}
	if !session.ExpiresAt.IsZero() {
		cookie.Expires = session.ExpiresAt
	}
	http.SetCookie(w, cookie)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(body []byte) (int, error) {
	if !r.wroteHeader {
		r.wroteHeader = true
	}
	return r.ResponseWriter.Write(body)
}
