package districtregistry

import (
	"log/slog"

	httpadapter "evoting/contexts/election-control/district-registry/adapters/http"
	"evoting/contexts/election-control/district-registry/adapters/memory"
	"evoting/contexts/election-control/district-registry/application/commands"
	"evoting/contexts/election-control/district-registry/application/queries"
	"evoting/contexts/election-control/district-registry/ports"
)

// Module is the district-registry composition root. Directory satisfies
// identity-binder's DistrictDirectory and ballot's DistrictLister as is.
type Module struct {
	Handler   httpadapter.Handler
	Districts commands.DistrictUseCase
	Directory queries.DistrictQueryUseCase
	Store     *memory.Store
}

type Dependencies struct {
	Districts         ports.DistrictRepository
	Phases            ports.PhaseGuard
	Voters            ports.VoterPoolGenerator
	Handles           ports.HandleProvisioner
	Clock             ports.Clock
	DefaultVoterCount int
	Logger            *slog.Logger
}

func NewModule(deps Dependencies) Module {
	districts := commands.DistrictUseCase{
		Districts:         deps.Districts,
		Phases:            deps.Phases,
		Voters:            deps.Voters,
		Handles:           deps.Handles,
		Clock:             deps.Clock,
		DefaultVoterCount: deps.DefaultVoterCount,
		Logger:            deps.Logger,
	}
	directory := queries.DistrictQueryUseCase{Districts: deps.Districts}
	return Module{
		Handler: httpadapter.Handler{
			Districts: districts,
			Queries:   directory,
			Logger:    deps.Logger,
		},
		Districts: districts,
		Directory: directory,
	}
}

func NewInMemoryModule(
	phases ports.PhaseGuard,
	voters ports.VoterPoolGenerator,
	handles ports.HandleProvisioner,
	logger *slog.Logger,
) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Districts: store,
		Phases:    phases,
		Voters:    voters,
		Handles:   handles,
		Clock:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
