package queries

import (
	"context"
	"testing"

	"evoting/contexts/identity-access/access-decider/adapters/memory"
	"evoting/contexts/identity-access/access-decider/domain/entities"
)

type countingMetrics struct {
	outcomes map[string]int
}

func (m *countingMetrics) CountAuthorization(outcome string) {
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[outcome]++
}

func newUseCase(t *testing.T, bypass entities.LoadTestBypass) (AuthorizeUseCase, *countingMetrics) {
	t.Helper()
	table := memory.NewPolicyTable()
	if err := table.Declare("POST /api/ballot/v1/votes", entities.NewRoleSet(entities.RoleVoter)); err != nil {
		t.Fatalf("declare ballot policy: %v", err)
	}
	if err := table.Declare("POST /api/phases/v1/activate", entities.NewRoleSet(entities.RoleAdmin)); err != nil {
		t.Fatalf("declare phase policy: %v", err)
	}
	if err := table.Declare("GET /api/results/v1", entities.NewRoleSet()); err != nil {
		t.Fatalf("declare empty policy: %v", err)
	}
	metrics := &countingMetrics{}
	return AuthorizeUseCase{Policies: table, Bypass: bypass, Metrics: metrics}, metrics
}

func TestAuthorizeResolvesRolePerRequest(t *testing.T) {
	useCase, metrics := newUseCase(t, entities.LoadTestBypass{})
	ctx := context.Background()

	cases := []struct {
		name      string
		route     string
		principal entities.Principal
		allowed   bool
		role      entities.Role
	}{
		{"voter casts", "POST /api/ballot/v1/votes", entities.VoterPrincipal{HandleID: 7, DistrictID: 1}, true, entities.RoleVoter},
		{"admin cannot cast", "POST /api/ballot/v1/votes", entities.StaffPrincipal{AccountID: "a1", Role: entities.StaffRoleAdmin}, false, entities.RoleAdmin},
		{"admin activates", "POST /api/phases/v1/activate", entities.StaffPrincipal{AccountID: "a1", Role: entities.StaffRoleAdmin}, true, entities.RoleAdmin},
		{"candidate cannot activate", "POST /api/phases/v1/activate", entities.StaffPrincipal{AccountID: "c1", Role: entities.StaffRoleCandidate}, false, entities.RoleCandidate},
		{"staff is authenticated", "POST /api/phases/v1/activate", entities.StaffPrincipal{AccountID: "s1", Role: entities.StaffRoleStaff}, false, entities.RoleAuthenticated},
		{"anonymous is public", "POST /api/ballot/v1/votes", nil, false, entities.RolePublic},
		{"empty set denies", "GET /api/results/v1", entities.StaffPrincipal{AccountID: "a1", Role: entities.StaffRoleAdmin}, false, entities.RoleAdmin},
		{"undeclared route denies", "DELETE /api/unknown", entities.StaffPrincipal{AccountID: "a1", Role: entities.StaffRoleAdmin}, false, entities.RoleAdmin},
	}
	for _, tc := range cases {
		decision := useCase.Execute(ctx, AuthorizeQuery{Route: tc.route, Principal: tc.principal})
		if decision.Allowed != tc.allowed {
			t.Fatalf("%s: expected allowed=%v, got %+v", tc.name, tc.allowed, decision)
		}
		if decision.Role != tc.role {
			t.Fatalf("%s: expected role %s, got %s", tc.name, tc.role, decision.Role)
		}
	}
	if metrics.outcomes["allowed"] != 2 || metrics.outcomes["denied"] != 6 {
		t.Fatalf("unexpected outcome counts %+v", metrics.outcomes)
	}
}

func TestAuthorizeBypassRequiresMatchingToken(t *testing.T) {
	token := "load-test-token-0123456789"
	useCase, _ := newUseCase(t, entities.LoadTestBypass{Enabled: true, Token: token})
	ctx := context.Background()

	decision := useCase.Execute(ctx, AuthorizeQuery{Route: "POST /api/phases/v1/activate", BypassToken: token})
	if !decision.Allowed || !decision.Bypassed {
		t.Fatalf("expected bypass to allow, got %+v", decision)
	}

	decision = useCase.Execute(ctx, AuthorizeQuery{Route: "POST /api/phases/v1/activate", BypassToken: "wrong-token-0123456789"})
	if decision.Allowed {
		t.Fatalf("expected wrong token to be denied, got %+v", decision)
	}

	decision = useCase.Execute(ctx, AuthorizeQuery{Route: "POST /api/phases/v1/activate"})
	if decision.Allowed {
		t.Fatalf("expected missing token to be denied, got %+v", decision)
	}
}

func TestAuthorizeBypassInertInProduction(t *testing.T) {
	token := "load-test-token-0123456789"
	useCase, _ := newUseCase(t, entities.LoadTestBypass{Enabled: true, Production: true, Token: token})

	decision := useCase.Execute(context.Background(), AuthorizeQuery{Route: "POST /api/phases/v1/activate", BypassToken: token})
	if decision.Allowed || decision.Bypassed {
		t.Fatalf("expected production bypass to stay inert, got %+v", decision)
	}
}

func TestAuthorizeBypassIgnoresShortToken(t *testing.T) {
	useCase, _ := newUseCase(t, entities.LoadTestBypass{Enabled: true, Token: "short"})

	decision := useCase.Execute(context.Background(), AuthorizeQuery{Route: "POST /api/phases/v1/activate", BypassToken: "short"})
	if decision.Allowed {
		t.Fatalf("expected short token bypass to be denied, got %+v", decision)
	}
}
