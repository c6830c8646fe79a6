package httpadapter

import (
	"context"
	"log/slog"

	"evoting/contexts/election-control/district-registry/application/commands"
	"evoting/contexts/election-control/district-registry/application/queries"
	"evoting/contexts/election-control/district-registry/domain/entities"
	httptransport "evoting/contexts/election-control/district-registry/transport/http"
)

type Handler struct {
	Districts commands.DistrictUseCase
	Queries   queries.DistrictQueryUseCase
	Logger    *slog.Logger
}

func (h Handler) CreateDistrictHandler(ctx context.Context, req httptransport.CreateDistrictRequest) (httptransport.DistrictResponse, error) {
	district, err := h.Districts.Create(ctx, commands.CreateDistrictCommand{
		Name:       req.Name,
		VoterCount: req.VoterCount,
	})
	if err != nil {
		return httptransport.DistrictResponse{}, err
	}
	return mapDistrict(district), nil
}

func (h Handler) DeleteDistrictHandler(ctx context.Context, districtID int64) error {
	return h.Districts.Delete(ctx, districtID)
}

func (h Handler) GetDistrictHandler(ctx context.Context, districtID int64) (httptransport.DistrictResponse, error) {
	district, err := h.Queries.GetDistrict(ctx, districtID)
	if err != nil {
		return httptransport.DistrictResponse{}, err
	}
	return mapDistrict(district), nil
}

func (h Handler) ListDistrictsHandler(ctx context.Context) (httptransport.ListDistrictsResponse, error) {
	districts, err := h.Queries.ListDistricts(ctx)
	if err != nil {
		return httptransport.ListDistrictsResponse{}, err
	}
	items := make([]httptransport.DistrictResponse, 0, len(districts))
	for _, district := range districts {
		items = append(items, mapDistrict(district))
	}
	return httptransport.ListDistrictsResponse{Items: items}, nil
}

func mapDistrict(district entities.District) httptransport.DistrictResponse {
	return httptransport.DistrictResponse{
		ID:         district.ID,
		Name:       district.Name,
		VoterCount: district.VoterCount,
		CreatedAt:  district.CreatedAt,
	}
}
