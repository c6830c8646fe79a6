package httpadapter

import (
	"context"
	"log/slog"

	"evoting/contexts/identity-access/identity-binder/application/commands"
	"evoting/contexts/identity-access/identity-binder/application/queries"
	httptransport "evoting/contexts/identity-access/identity-binder/transport/http"
)

type Handler struct {
	Authenticate commands.AuthenticateUseCase
	CountHandles queries.CountHandlesUseCase
	Logger       *slog.Logger
}

func (h Handler) VoterLoginHandler(ctx context.Context, req httptransport.VoterLoginRequest) (httptransport.VoterHandleResponse, error) {
	bound, err := h.Authenticate.Execute(ctx, commands.AuthenticateCommand{
		IdentityID: req.IdentityID,
		Password:   req.Password,
	})
	if err != nil {
		return httptransport.VoterHandleResponse{}, err
	}
	return httptransport.VoterHandleResponse{
		HandleID:   bound.HandleID,
		DistrictID: bound.DistrictID,
		FirstBind:  bound.FirstBind,
	}, nil
}

func (h Handler) HandleCountsHandler(ctx context.Context, districtID int64) (httptransport.HandleCountsResponse, error) {
	counts, err := h.CountHandles.Execute(ctx, districtID)
	if err != nil {
		return httptransport.HandleCountsResponse{}, err
	}
	return httptransport.HandleCountsResponse{
		DistrictID: counts.DistrictID,
		Bound:      counts.Bound,
		Unbound:    counts.Unbound,
	}, nil
}
