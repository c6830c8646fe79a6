package queries

import (
	"context"
	"log/slog"
	"strings"

	application "evoting/contexts/identity-access/access-decider/application"
	"evoting/contexts/identity-access/access-decider/domain/entities"
	"evoting/contexts/identity-access/access-decider/domain/services"
	"evoting/contexts/identity-access/access-decider/ports"
)

type AuthorizeQuery struct {
	Route     string
	Principal entities.Principal
	// BypassToken is the raw value of the load test header, if any.
	BypassToken string
}

// AuthorizeUseCase evaluates a request against its route's declared policy.
// Routes without a declared policy are denied.
type AuthorizeUseCase struct {
	Policies ports.PolicyRegistry
	Bypass   entities.LoadTestBypass
	Metrics  ports.Metrics
	Logger   *slog.Logger
}

func (u AuthorizeUseCase) Execute(ctx context.Context, query AuthorizeQuery) entities.Decision {
	logger := application.ResolveLogger(u.Logger)
	route := strings.TrimSpace(query.Route)

	if services.BypassGranted(u.Bypass, query.BypassToken) {
		logger.Warn("load test bypass granted",
			"event", "access_bypass_granted",
			"module", "identity-access/access-decider",
			"layer", "application",
			"route", route,
		)
		u.count("bypassed")
		return entities.Decision{Allowed: true, Role: services.ResolveRole(query.Principal), Reason: "load_test_bypass", Bypassed: true}
	}

	allowed, declared := u.Policies.PolicyFor(route)
	if !declared {
		logger.Error("route has no declared policy, deny by default",
			"event", "access_policy_missing",
			"module", "identity-access/access-decider",
			"layer", "application",
			"route", route,
		)
		u.count("denied")
		return entities.Decision{Role: services.ResolveRole(query.Principal), Reason: "no_policy_declared"}
	}

	decision := services.Authorize(query.Principal, allowed)
	if !decision.Allowed {
		logger.Log(ctx, slog.LevelDebug, "access denied",
			"event", "access_denied",
			"module", "identity-access/access-decider",
			"layer", "application",
			"route", route,
			"role", string(decision.Role),
			"reason", decision.Reason,
		)
		u.count("denied")
		return decision
	}
	u.count("allowed")
	return decision
}

// ResolveRole exposes the role tag of a principal for reporting.
func (u AuthorizeUseCase) ResolveRole(principal entities.Principal) entities.Role {
	return services.ResolveRole(principal)
}

func (u AuthorizeUseCase) count(outcome string) {
	if u.Metrics != nil {
		u.Metrics.CountAuthorization(outcome)
	}
}
