package passkeyceremony

import (
	"log/slog"
	"time"

	httpadapter "evoting/contexts/identity-access/passkey-ceremony/adapters/http"
	"evoting/contexts/identity-access/passkey-ceremony/adapters/memory"
	"evoting/contexts/identity-access/passkey-ceremony/application/commands"
	"evoting/contexts/identity-access/passkey-ceremony/application/queries"
	"evoting/contexts/identity-access/passkey-ceremony/application/workers"
	"evoting/contexts/identity-access/passkey-ceremony/ports"
)

// Module is the passkey-ceremony composition root. Sessions and Query are
// used by the HTTP server's session middleware and login handlers; Revoker
// is consumed by staff-accounts.
type Module struct {
	Handler  httpadapter.Handler
	Sessions commands.StartSessionUseCase
	Query    queries.SessionQueryUseCase
	Revoker  commands.RevokePrincipalUseCase
	Sweeper  workers.ChallengeSweeper
	Store    *memory.Store
}

type Dependencies struct {
	Sessions     ports.SessionStore
	Challenges   ports.ChallengeStore
	Credentials  ports.CredentialRepository
	Verifier     ports.CeremonyVerifier
	Metrics      ports.Metrics
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	SessionTTL   time.Duration
	ChallengeTTL time.Duration
	Logger       *slog.Logger
}

func NewModule(deps Dependencies) Module {
	query := queries.SessionQueryUseCase{
		Sessions:    deps.Sessions,
		Credentials: deps.Credentials,
		Clock:       deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			BeginRegistration: commands.BeginRegistrationUseCase{
				Sessions:     deps.Sessions,
				Credentials:  deps.Credentials,
				Challenges:   deps.Challenges,
				Verifier:     deps.Verifier,
				Clock:        deps.Clock,
				ChallengeTTL: deps.ChallengeTTL,
				Logger:       deps.Logger,
			},
			CompleteRegistration: commands.CompleteRegistrationUseCase{
				Sessions:    deps.Sessions,
				Credentials: deps.Credentials,
				Challenges:  deps.Challenges,
				Verifier:    deps.Verifier,
				Metrics:     deps.Metrics,
				Clock:       deps.Clock,
				IDGen:       deps.IDGen,
				Logger:      deps.Logger,
			},
			BeginAuthentication: commands.BeginAuthenticationUseCase{
				Sessions:     deps.Sessions,
				Credentials:  deps.Credentials,
				Challenges:   deps.Challenges,
				Verifier:     deps.Verifier,
				Clock:        deps.Clock,
				ChallengeTTL: deps.ChallengeTTL,
				Logger:       deps.Logger,
			},
			CompleteAuthentication: commands.CompleteAuthenticationUseCase{
				Sessions:    deps.Sessions,
				Credentials: deps.Credentials,
				Challenges:  deps.Challenges,
				Verifier:    deps.Verifier,
				Metrics:     deps.Metrics,
				Clock:       deps.Clock,
				Logger:      deps.Logger,
			},
			Cancel: commands.CancelCeremonyUseCase{
				Sessions:   deps.Sessions,
				Challenges: deps.Challenges,
				Metrics:    deps.Metrics,
				Logger:     deps.Logger,
			},
			Logout: commands.LogoutUseCase{
				Sessions:   deps.Sessions,
				Challenges: deps.Challenges,
				Logger:     deps.Logger,
			},
			Devices: commands.DeviceManagementUseCase{
				Credentials: deps.Credentials,
				Sessions:    deps.Sessions,
				Clock:       deps.Clock,
				Logger:      deps.Logger,
			},
			Sessions: query,
			Logger:   deps.Logger,
		},
		Sessions: commands.StartSessionUseCase{
			Sessions:    deps.Sessions,
			Credentials: deps.Credentials,
			Clock:       deps.Clock,
			TTL:         deps.SessionTTL,
			Logger:      deps.Logger,
		},
		Query: query,
		Revoker: commands.RevokePrincipalUseCase{
			Credentials: deps.Credentials,
			Sessions:    deps.Sessions,
			Challenges:  deps.Challenges,
			Logger:      deps.Logger,
		},
		Sweeper: workers.ChallengeSweeper{
			Challenges: deps.Challenges,
			Clock:      deps.Clock,
			Logger:     deps.Logger,
		},
	}
}

// NewInMemoryModule backs every port with one in-process store.
func NewInMemoryModule(verifier ports.CeremonyVerifier, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Sessions:    store,
		Challenges:  store,
		Credentials: store,
		Verifier:    verifier,
		Clock:       store,
		IDGen:       store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
