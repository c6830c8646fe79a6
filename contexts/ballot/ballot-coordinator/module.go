package ballotcoordinator

import (
	"log/slog"
	"time"

	httpadapter "evoting/contexts/ballot/ballot-coordinator/adapters/http"
	"evoting/contexts/ballot/ballot-coordinator/adapters/memory"
	"evoting/contexts/ballot/ballot-coordinator/application/commands"
	"evoting/contexts/ballot/ballot-coordinator/application/queries"
	"evoting/contexts/ballot/ballot-coordinator/ports"
)

// Module is the ballot-coordinator composition root. Finalizer backs
// phase-gate's tally finalization; Candidates is used by staff-accounts.
type Module struct {
	Handler    httpadapter.Handler
	Finalizer  commands.FinalizeTallyUseCase
	Candidates commands.CandidateUseCase
	Store      *memory.Store
}

type Dependencies struct {
	Tallies       ports.TallyRepository
	Signer        ports.Signer
	Phases        ports.PhaseGuard
	Districts     ports.DistrictLister
	Metrics       ports.Metrics
	Clock         ports.Clock
	SignerTimeout time.Duration
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			Cast: commands.CastVoteUseCase{
				Tallies:       deps.Tallies,
				Signer:        deps.Signer,
				Phases:        deps.Phases,
				Metrics:       deps.Metrics,
				Clock:         deps.Clock,
				SignerTimeout: deps.SignerTimeout,
				Logger:        deps.Logger,
			},
			Queries: queries.BallotQueryUseCase{
				Tallies:       deps.Tallies,
				Signer:        deps.Signer,
				Districts:     deps.Districts,
				SignerTimeout: deps.SignerTimeout,
				Logger:        deps.Logger,
			},
			Logger: deps.Logger,
		},
		Finalizer: commands.FinalizeTallyUseCase{
			Signer:    deps.Signer,
			Districts: deps.Districts,
			Logger:    deps.Logger,
		},
		Candidates: commands.CandidateUseCase{
			Tallies: deps.Tallies,
			Clock:   deps.Clock,
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(signer ports.Signer, phases ports.PhaseGuard, districts ports.DistrictLister, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Tallies:   store,
		Signer:    signer,
		Phases:    phases,
		Districts: districts,
		Clock:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
