package phasegate

import (
	"log/slog"

	httpadapter "evoting/contexts/election-control/phase-gate/adapters/http"
	"evoting/contexts/election-control/phase-gate/adapters/memory"
	"evoting/contexts/election-control/phase-gate/application/commands"
	"evoting/contexts/election-control/phase-gate/application/queries"
	"evoting/contexts/election-control/phase-gate/application/workers"
	"evoting/contexts/election-control/phase-gate/domain/entities"
	"evoting/contexts/election-control/phase-gate/ports"
)

// Module is the phase-gate composition root exposed to runtime wiring.
// Gate is consumed by other contexts through their phase guard ports.
type Module struct {
	Handler httpadapter.Handler
	Gate    queries.PhaseQueryUseCase
	Seed    commands.SeedPhasesUseCase
	Retrier workers.FinalizationRetrier
	Store   *memory.Store
}

type Dependencies struct {
	Phases        ports.PhaseRepository
	Finalizations ports.FinalizationRepository
	Finalizer     ports.TallyFinalizer
	Metrics       ports.Metrics
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	finalize := commands.FinalizeTallyUseCase{
		Finalizations: deps.Finalizations,
		Finalizer:     deps.Finalizer,
		Metrics:       deps.Metrics,
		Clock:         deps.Clock,
		Logger:        deps.Logger,
	}
	activate := commands.ActivatePhaseUseCase{
		Phases:   deps.Phases,
		Finalize: finalize,
		Metrics:  deps.Metrics,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Logger:   deps.Logger,
	}
	gate := queries.PhaseQueryUseCase{
		Phases:        deps.Phases,
		Finalizations: deps.Finalizations,
		Logger:        deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Activate: activate,
			Queries:  gate,
			Logger:   deps.Logger,
		},
		Gate: gate,
		Seed: commands.SeedPhasesUseCase{
			Phases: deps.Phases,
			Logger: deps.Logger,
		},
		Retrier: workers.FinalizationRetrier{
			Finalizations: deps.Finalizations,
			Finalize:      finalize,
			BatchSize:     10,
			Logger:        deps.Logger,
		},
	}
}

// NewInMemoryModule builds a development/testing module seeded with the
// canonical timeline and no active phase.
func NewInMemoryModule(finalizer ports.TallyFinalizer, logger *slog.Logger) Module {
	store := memory.NewStore(entities.DefaultPhases())
	module := NewModule(Dependencies{
		Phases:        store,
		Finalizations: store,
		Finalizer:     finalizer,
		Clock:         store,
		IDGen:         store,
		Logger:        logger,
	})
	module.Store = store
	return module
}
