package identitybinder

import (
	"log/slog"

	httpadapter "evoting/contexts/identity-access/identity-binder/adapters/http"
	"evoting/contexts/identity-access/identity-binder/adapters/memory"
	"evoting/contexts/identity-access/identity-binder/application/commands"
	"evoting/contexts/identity-access/identity-binder/application/queries"
	"evoting/contexts/identity-access/identity-binder/ports"
)

// Module is the identity-binder composition root. Provisioner and Importer
// are driven by the district registry and the seed command.
type Module struct {
	Handler     httpadapter.Handler
	Provisioner commands.ProvisionHandlesUseCase
	Importer    commands.ImportIdentitiesUseCase
	Store       *memory.Store
}

type Dependencies struct {
	Identities ports.IdentityRepository
	Handles    ports.HandleRepository
	Bindings   ports.BindingUnitOfWork
	Districts  ports.DistrictDirectory
	Hasher     ports.PasswordHasher
	Clock      ports.Clock
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			Authenticate: commands.AuthenticateUseCase{
				Identities: deps.Identities,
				Bindings:   deps.Bindings,
				Districts:  deps.Districts,
				Hasher:     deps.Hasher,
				Clock:      deps.Clock,
				Logger:     deps.Logger,
			},
			CountHandles: queries.CountHandlesUseCase{Handles: deps.Handles},
			Logger:       deps.Logger,
		},
		Provisioner: commands.ProvisionHandlesUseCase{
			Handles: deps.Handles,
			Clock:   deps.Clock,
			Logger:  deps.Logger,
		},
		Importer: commands.ImportIdentitiesUseCase{
			Identities: deps.Identities,
			Hasher:     deps.Hasher,
			Logger:     deps.Logger,
		},
	}
}

// NewInMemoryModule wires the memory store as every port, including the
// district directory, which tests populate with Store.SetDistrict.
func NewInMemoryModule(hasher ports.PasswordHasher, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Identities: store,
		Handles:    store,
		Bindings:   store,
		Districts:  store,
		Hasher:     hasher,
		Clock:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
