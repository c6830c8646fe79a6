package httpadapter

import (
	"context"
	"log/slog"
	"strconv"

	"evoting/contexts/identity-access/access-decider/application/queries"
	"evoting/contexts/identity-access/access-decider/domain/entities"
	httptransport "evoting/contexts/identity-access/access-decider/transport/http"
)

type Handler struct {
	Authorize queries.AuthorizeUseCase
	Logger    *slog.Logger
}

func (h Handler) MeHandler(_ context.Context, principal entities.Principal, sessionState string) httptransport.MeResponse {
	resp := httptransport.MeResponse{
		Role:         string(h.Authorize.ResolveRole(principal)),
		Kind:         "public",
		SessionState: sessionState,
	}
	switch p := principal.(type) {
	case entities.StaffPrincipal:
		resp.Kind = "staff"
		resp.SubjectID = p.AccountID
		resp.DistrictID = p.DistrictID
	case entities.VoterPrincipal:
		resp.Kind = "voter"
		resp.SubjectID = strconv.FormatInt(p.HandleID, 10)
		resp.DistrictID = p.DistrictID
	}
	return resp
}
