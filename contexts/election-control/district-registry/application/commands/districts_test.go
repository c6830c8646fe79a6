package commands

import (
	"context"
	"errors"
	"testing"

	"evoting/contexts/election-control/district-registry/adapters/memory"
	"evoting/contexts/election-control/district-registry/application/queries"
	domainerrors "evoting/contexts/election-control/district-registry/domain/errors"
)

type togglePhase struct {
	allowed bool
}

func (p *togglePhase) IsMutationAllowed(_ context.Context, op string) (bool, error) {
	return p.allowed && op == OperationDistrictMutation, nil
}

type fakeVoters struct {
	err    error
	counts map[int64]int
}

func (v *fakeVoters) GenerateVotersAndCurrency(_ context.Context, districtID int64, voterCount int) error {
	if v.err != nil {
		return v.err
	}
	v.counts[districtID] = voterCount
	return nil
}

type fakeHandles struct {
	err     error
	handles map[int64]int
}

func (h *fakeHandles) ProvisionHandles(_ context.Context, districtID int64, count int) (int, error) {
	if h.err != nil {
		return 0, h.err
	}
	h.handles[districtID] += count
	return count, nil
}

func (h *fakeHandles) RemoveHandles(_ context.Context, districtID int64) (int, error) {
	removed := h.handles[districtID]
	delete(h.handles, districtID)
	return removed, nil
}

type districtFixture struct {
	store   *memory.Store
	phase   *togglePhase
	voters  *fakeVoters
	handles *fakeHandles
	useCase DistrictUseCase
}

func newDistrictFixture() districtFixture {
	store := memory.NewStore()
	f := districtFixture{
		store:   store,
		phase:   &togglePhase{allowed: true},
		voters:  &fakeVoters{counts: map[int64]int{}},
		handles: &fakeHandles{handles: map[int64]int{}},
	}
	f.useCase = DistrictUseCase{
		Districts: store,
		Phases:    f.phase,
		Voters:    f.voters,
		Handles:   f.handles,
		Clock:     store,
	}
	return f
}

func TestCreateDistrictProvisionsVoterPool(t *testing.T) {
	f := newDistrictFixture()
	district, err := f.useCase.Create(context.Background(), CreateDistrictCommand{Name: "  North "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if district.Name != "North" || district.VoterCount != 20 {
		t.Fatalf("expected default voter count, got %+v", district)
	}
	if f.voters.counts[district.ID] != 20 || f.handles.handles[district.ID] != 20 {
		t.Fatalf("expected signer pool and handles of 20, got %d/%d", f.voters.counts[district.ID], f.handles.handles[district.ID])
	}

	directory := queries.DistrictQueryUseCase{Districts: f.store}
	id, found, err := directory.ResolveDistrictByName(context.Background(), "North")
	if err != nil || !found || id != district.ID {
		t.Fatalf("expected directory hit, got id=%d found=%v err=%v", id, found, err)
	}
	if _, found, _ := directory.ResolveDistrictByName(context.Background(), "South"); found {
		t.Fatal("expected unknown district to miss")
	}
}

func TestCreateDistrictRollsBackOnSignerFailure(t *testing.T) {
	f := newDistrictFixture()
	f.voters.err = domainerrors.ErrSignerRejected

	if _, err := f.useCase.Create(context.Background(), CreateDistrictCommand{Name: "North", VoterCount: 5}); !errors.Is(err, domainerrors.ErrSignerRejected) {
		t.Fatalf("expected signer rejection, got %v", err)
	}
	if _, err := f.store.FindByName(context.Background(), "North"); !errors.Is(err, domainerrors.ErrDistrictNotFound) {
		t.Fatalf("expected district removed, got %v", err)
	}
	if len(f.handles.handles) != 0 {
		t.Fatal("expected no handles provisioned")
	}
}

func TestCreateDistrictRejectsDuplicatesAndBadCounts(t *testing.T) {
	f := newDistrictFixture()
	ctx := context.Background()
	if _, err := f.useCase.Create(ctx, CreateDistrictCommand{Name: "North"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.useCase.Create(ctx, CreateDistrictCommand{Name: "North"}); !errors.Is(err, domainerrors.ErrDistrictExists) {
		t.Fatalf("expected duplicate rejected, got %v", err)
	}
	if _, err := f.useCase.Create(ctx, CreateDistrictCommand{Name: "South", VoterCount: -1}); !errors.Is(err, domainerrors.ErrInvalidDistrict) {
		t.Fatalf("expected invalid count rejected, got %v", err)
	}
	if _, err := f.useCase.Create(ctx, CreateDistrictCommand{Name: " "}); !errors.Is(err, domainerrors.ErrInvalidDistrict) {
		t.Fatalf("expected blank name rejected, got %v", err)
	}
}

func TestDistrictMutationsArePhaseGated(t *testing.T) {
	f := newDistrictFixture()
	ctx := context.Background()
	district, err := f.useCase.Create(ctx, CreateDistrictCommand{Name: "North", VoterCount: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	f.phase.allowed = false
	if _, err := f.useCase.Create(ctx, CreateDistrictCommand{Name: "South"}); !errors.Is(err, domainerrors.ErrPhaseRejected) {
		t.Fatalf("expected phase rejection, got %v", err)
	}
	if err := f.useCase.Delete(ctx, district.ID); !errors.Is(err, domainerrors.ErrPhaseRejected) {
		t.Fatalf("expected phase rejection on delete, got %v", err)
	}

	f.phase.allowed = true
	if err := f.useCase.Delete(ctx, district.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := f.handles.handles[district.ID]; ok {
		t.Fatal("expected handles removed with the district")
	}
	ids, err := queries.DistrictQueryUseCase{Districts: f.store}.ListDistrictIDs(ctx)
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected no districts left, got %v err=%v", ids, err)
	}
}
