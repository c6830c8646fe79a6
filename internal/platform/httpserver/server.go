package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	ballotcoordinator "evoting/contexts/ballot/ballot-coordinator"
	districtregistry "evoting/contexts/election-control/district-registry"
	phasegate "evoting/contexts/election-control/phase-gate"
	accessdecider "evoting/contexts/identity-access/access-decider"
	accessentities "evoting/contexts/identity-access/access-decider/domain/entities"
	identitybinder "evoting/contexts/identity-access/identity-binder"
	passkeyceremony "evoting/contexts/identity-access/passkey-ceremony"
	staffaccounts "evoting/contexts/identity-access/staff-accounts"
	"evoting/internal/platform/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const maxBodyBytes = 1 << 20

// Modules are the context composition roots the server routes to.
type Modules struct {
	Phases    phasegate.Module
	Districts districtregistry.Module
	Identity  identitybinder.Module
	Staff     staffaccounts.Module
	Passkeys  passkeyceremony.Module
	Access    accessdecider.Module
	Ballot    ballotcoordinator.Module
}

type Options struct {
	Addr string
	// SecureCookies marks session and CSRF cookies Secure; on outside
	// development.
	SecureCookies bool
	Metrics       *observability.Metrics
	Logger        *slog.Logger
}

type Server struct {
	mux           *http.ServeMux
	logger        *slog.Logger
	addr          string
	modules       Modules
	metrics       *observability.Metrics
	tracer        trace.Tracer
	secureCookies bool
	httpServer    *http.Server
}

// New registers every route together with its access policy. A route
// declared twice is a programming error and fails construction.
func New(modules Modules, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := opts.Addr
	if addr == "" {
		addr = ":8080"
	}
	if modules.Access.Policies == nil {
		return nil, errors.New("access decider policies are required")
	}

	s := &Server{
		mux:           http.NewServeMux(),
		logger:        logger,
		addr:          addr,
		modules:       modules,
		metrics:       opts.Metrics,
		tracer:        otel.Tracer("evoting/internal/platform/httpserver"),
		secureCookies: opts.SecureCookies,
	}
	if err := s.registerRoutes(); err != nil {
		return nil, err
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.httpServer.Shutdown(ctx)
}

var (
	publicRoles = accessentities.NewRoleSet(accessentities.RolePublic, accessentities.RoleVoter,
		accessentities.RoleAuthenticated, accessentities.RoleCandidate, accessentities.RoleAdmin)
	staffRoles = accessentities.NewRoleSet(accessentities.RoleAuthenticated, accessentities.RoleCandidate,
		accessentities.RoleAdmin)
	adminRoles = accessentities.NewRoleSet(accessentities.RoleAdmin)
	voterRoles = accessentities.NewRoleSet(accessentities.RoleVoter)
)

func (s *Server) registerRoutes() error {
	routes := []struct {
		pattern string
		roles   accessentities.RoleSet
		handler routeHandler
	}{
		{"GET /healthz", publicRoles, s.handleHealthz},
		{"GET /metrics", publicRoles, s.handleMetrics},

		{"GET /api/auth/v1/csrf", publicRoles, s.handleCSRFToken},
		{"POST /api/auth/v1/staff/login", publicRoles, s.handleStaffLogin},
		{"POST /api/auth/v1/voter/login", publicRoles, s.handleVoterLogin},
		{"GET /api/auth/v1/session", publicRoles, s.handleGetSession},
		{"POST /api/auth/v1/logout", publicRoles, s.handleLogout},
		{"POST /api/auth/v1/passkeys/registration/options", publicRoles, s.handleRegistrationOptions},
		{"POST /api/auth/v1/passkeys/registration/verify", publicRoles, s.handleRegistrationVerify},
		{"POST /api/auth/v1/passkeys/authentication/options", publicRoles, s.handleAuthenticationOptions},
		{"POST /api/auth/v1/passkeys/authentication/verify", publicRoles, s.handleAuthenticationVerify},
		{"POST /api/auth/v1/passkeys/cancel", publicRoles, s.handleCancelCeremony},
		{"GET /api/auth/v1/passkeys/credentials", staffRoles, s.handleListOwnCredentials},
		{"DELETE /api/auth/v1/passkeys/credentials", staffRoles, s.handleDeleteOwnNonMaster},
		{"DELETE /api/auth/v1/passkeys/credentials/non-master", adminRoles, s.handleDeleteAllNonMaster},
		{"DELETE /api/auth/v1/passkeys/principals/{principal_id}/credentials", adminRoles, s.handleDeletePrincipalCredentials},

		{"GET /api/access/v1/me", publicRoles, s.handleMe},

		{"GET /api/election/v1/phases", publicRoles, s.handleListPhases},
		{"GET /api/election/v1/phases/current", publicRoles, s.handleCurrentPhase},
		{"POST /api/election/v1/phases/{phase_id}/activate", adminRoles, s.handleActivatePhase},
		{"GET /api/election/v1/finalizations", adminRoles, s.handleListFinalizations},
		{"GET /api/election/v1/districts", publicRoles, s.handleListDistricts},
		{"POST /api/election/v1/districts", adminRoles, s.handleCreateDistrict},
		{"GET /api/election/v1/districts/{district_id}", publicRoles, s.handleGetDistrict},
		{"DELETE /api/election/v1/districts/{district_id}", adminRoles, s.handleDeleteDistrict},
		{"GET /api/election/v1/districts/{district_id}/handles", adminRoles, s.handleHandleCounts},

		{"GET /api/accounts/v1/accounts", adminRoles, s.handleListAccounts},
		{"POST /api/accounts/v1/accounts", adminRoles, s.handleCreateAccount},
		{"DELETE /api/accounts/v1/accounts/{account_id}", adminRoles, s.handleDeleteAccount},
		{"POST /api/accounts/v1/password", staffRoles, s.handleChangePassword},

		{"GET /api/ballot/v1/status", voterRoles, s.handleVotingStatus},
		{"POST /api/ballot/v1/votes", voterRoles, s.handleCastVote},
		{"GET /api/results/v1/tallies", staffRoles, s.handleListTallies},
		{"GET /api/results/v1/non-voters", adminRoles, s.handleNonVoters},
	}
	for _, route := range routes {
		if err := s.modules.Access.Policies.Declare(route.pattern, route.roles); err != nil {
			return fmt.Errorf("declare policy for %s: %w", route.pattern, err)
		}
		s.mux.Handle(route.pattern, s.guard(route.pattern, route.handler))
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request, _ requestState) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request, _ requestState) {
	if s.metrics == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func pathInt64(r *http.Request, name string) (int64, bool) {
	value, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}
