package accessdecider

import (
	"log/slog"
	"strings"

	httpadapter "evoting/contexts/identity-access/access-decider/adapters/http"
	"evoting/contexts/identity-access/access-decider/adapters/memory"
	"evoting/contexts/identity-access/access-decider/application/queries"
	"evoting/contexts/identity-access/access-decider/domain/entities"
	domainerrors "evoting/contexts/identity-access/access-decider/domain/errors"
	"evoting/contexts/identity-access/access-decider/ports"
)

// Module is the access-decider composition root. Policies is filled by the
// HTTP server as it registers routes.
type Module struct {
	Handler  httpadapter.Handler
	Decider  queries.AuthorizeUseCase
	Policies *memory.PolicyTable
}

type Dependencies struct {
	Environment    string
	LoadTestBypass bool
	LoadTestToken  string
	Metrics        ports.Metrics
	Logger         *slog.Logger
}

// NewModule refuses a bypass configuration that could be active in
// production or with a guessable token.
func NewModule(deps Dependencies) (Module, error) {
	production := strings.EqualFold(strings.TrimSpace(deps.Environment), "production")
	if deps.LoadTestBypass {
		if production {
			return Module{}, domainerrors.ErrBypassInProduction
		}
		if len(deps.LoadTestToken) < entities.MinBypassTokenLength {
			return Module{}, domainerrors.ErrBypassTokenTooShort
		}
	}

	policies := memory.NewPolicyTable()
	decider := queries.AuthorizeUseCase{
		Policies: policies,
		Bypass: entities.LoadTestBypass{
			Enabled:    deps.LoadTestBypass,
			Production: production,
			Token:      deps.LoadTestToken,
		},
		Metrics: deps.Metrics,
		Logger:  deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Authorize: decider,
			Logger:    deps.Logger,
		},
		Decider:  decider,
		Policies: policies,
	}, nil
}

// NewInMemoryModule builds a module with the bypass disabled.
func NewInMemoryModule(logger *slog.Logger) Module {
	module, _ := NewModule(Dependencies{Environment: "development", Logger: logger})
	return module
}
