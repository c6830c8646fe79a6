package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"evoting/contexts/election-control/phase-gate/application/commands"
	"evoting/contexts/election-control/phase-gate/application/queries"
	"evoting/contexts/election-control/phase-gate/domain/entities"
	httptransport "evoting/contexts/election-control/phase-gate/transport/http"
)

type Handler struct {
	Activate commands.ActivatePhaseUseCase
	Queries  queries.PhaseQueryUseCase
	Logger   *slog.Logger
}

func (h Handler) ListPhasesHandler(ctx context.Context) (httptransport.ListPhasesResponse, error) {
	phases, err := h.Queries.ListPhases(ctx)
	if err != nil {
		return httptransport.ListPhasesResponse{}, err
	}
	items := make([]httptransport.PhaseResponse, 0, len(phases))
	for _, phase := range phases {
		items = append(items, mapPhase(phase))
	}
	return httptransport.ListPhasesResponse{Items: items}, nil
}

func (h Handler) CurrentPhaseHandler(ctx context.Context) (httptransport.CurrentPhaseResponse, error) {
	phase, found, err := h.Queries.CurrentPhase(ctx)
	if err != nil {
		return httptransport.CurrentPhaseResponse{}, err
	}
	if !found {
		return httptransport.CurrentPhaseResponse{Active: false}, nil
	}
	mapped := mapPhase(phase)
	return httptransport.CurrentPhaseResponse{Active: true, Phase: &mapped}, nil
}

func (h Handler) ActivatePhaseHandler(ctx context.Context, phaseID int64) (httptransport.ActivatePhaseResponse, error) {
	result, err := h.Activate.Execute(ctx, phaseID)
	if err != nil {
		return httptransport.ActivatePhaseResponse{}, err
	}
	resp := httptransport.ActivatePhaseResponse{
		Phase:   mapPhase(result.Phase),
		Changed: result.Changed,
	}
	if result.Finalization != nil {
		finalization := mapFinalization(*result.Finalization)
		resp.Finalization = &finalization
	}
	return resp, nil
}

func (h Handler) ListFinalizationsHandler(ctx context.Context) (httptransport.ListFinalizationsResponse, error) {
	items, err := h.Queries.ListFinalizations(ctx)
	if err != nil {
		return httptransport.ListFinalizationsResponse{}, err
	}
	resp := httptransport.ListFinalizationsResponse{Items: make([]httptransport.FinalizationResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, mapFinalization(item))
	}
	return resp, nil
}

func mapPhase(phase entities.Phase) httptransport.PhaseResponse {
	return httptransport.PhaseResponse{
		PhaseID:  phase.PhaseID,
		Name:     phase.Name,
		Ordinal:  phase.Ordinal,
		IsActive: phase.IsActive,
		Terminal: phase.IsTerminal(),
	}
}

func mapFinalization(item entities.TallyFinalization) httptransport.FinalizationResponse {
	resp := httptransport.FinalizationResponse{
		FinalizationID: item.FinalizationID,
		PhaseID:        item.PhaseID,
		Status:         string(item.Status),
		Attempts:       item.Attempts,
		LastError:      item.LastError,
		RequestedAt:    item.RequestedAt.UTC().Format(time.RFC3339),
	}
	if item.CompletedAt != nil {
		resp.CompletedAt = item.CompletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
