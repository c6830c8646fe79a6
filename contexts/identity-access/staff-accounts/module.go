package staffaccounts

import (
	"log/slog"

	httpadapter "evoting/contexts/identity-access/staff-accounts/adapters/http"
	"evoting/contexts/identity-access/staff-accounts/adapters/memory"
	"evoting/contexts/identity-access/staff-accounts/application/commands"
	"evoting/contexts/identity-access/staff-accounts/application/queries"
	"evoting/contexts/identity-access/staff-accounts/ports"
)

// Module is the staff-accounts composition root. Passwords.EnsureAdmin backs
// the create-admin command.
type Module struct {
	Handler   httpadapter.Handler
	Passwords commands.PasswordUseCase
	Queries   queries.AccountQueryUseCase
	Store     *memory.Store
}

type Dependencies struct {
	Accounts   ports.AccountRepository
	Hasher     ports.PasswordHasher
	Phases     ports.PhaseGuard
	Keys       ports.CandidateKeyGenerator
	Candidates ports.CandidateRegistrar
	Sessions   ports.SessionRevoker
	Clock      ports.Clock
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	passwords := commands.PasswordUseCase{
		Accounts: deps.Accounts,
		Hasher:   deps.Hasher,
		Clock:    deps.Clock,
		Logger:   deps.Logger,
	}
	query := queries.AccountQueryUseCase{Accounts: deps.Accounts}
	return Module{
		Handler: httpadapter.Handler{
			Login: commands.LoginUseCase{
				Accounts: deps.Accounts,
				Hasher:   deps.Hasher,
				Clock:    deps.Clock,
				Logger:   deps.Logger,
			},
			Accounts: commands.AccountUseCase{
				Accounts:   deps.Accounts,
				Hasher:     deps.Hasher,
				Phases:     deps.Phases,
				Keys:       deps.Keys,
				Candidates: deps.Candidates,
				Sessions:   deps.Sessions,
				Clock:      deps.Clock,
				Logger:     deps.Logger,
			},
			Passwords: passwords,
			Queries:   query,
			Logger:    deps.Logger,
		},
		Passwords: passwords,
		Queries:   query,
	}
}

// NewInMemoryModule keeps accounts in process memory; collaborators are
// still supplied by the caller.
func NewInMemoryModule(
	hasher ports.PasswordHasher,
	phases ports.PhaseGuard,
	keys ports.CandidateKeyGenerator,
	candidates ports.CandidateRegistrar,
	sessions ports.SessionRevoker,
	logger *slog.Logger,
) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Accounts:   store,
		Hasher:     hasher,
		Phases:     phases,
		Keys:       keys,
		Candidates: candidates,
		Sessions:   sessions,
		Clock:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
