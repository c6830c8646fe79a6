package signeradapter

import (
	"context"
	"errors"
	"testing"

	domainerrors "evoting/contexts/election-control/district-registry/domain/errors"
	"evoting/internal/platform/ringct"
)

type fakeClient struct {
	err error
}

func (f fakeClient) GenerateVotersAndCurrency(_ context.Context, districtID int64, voterCount int) (ringct.VoterCurrency, error) {
	if f.err != nil {
		return ringct.VoterCurrency{}, f.err
	}
	return ringct.VoterCurrency{DistrictID: districtID, VoterCount: voterCount}, nil
}

func TestGenerateVotersAndCurrencyMapsErrors(t *testing.T) {
	generator := VoterPoolGenerator{client: fakeClient{}}
	if err := generator.GenerateVotersAndCurrency(context.Background(), 2, 20); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	generator = VoterPoolGenerator{client: fakeClient{err: &ringct.Error{Op: "generate_voters", Kind: ringct.ErrTransport}}}
	if err := generator.GenerateVotersAndCurrency(context.Background(), 2, 20); !errors.Is(err, domainerrors.ErrSignerUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}

	generator = VoterPoolGenerator{client: fakeClient{err: &ringct.Error{Op: "generate_voters", Kind: ringct.ErrRejected}}}
	if err := generator.GenerateVotersAndCurrency(context.Background(), 2, 20); !errors.Is(err, domainerrors.ErrSignerRejected) {
		t.Fatalf("expected rejected, got %v", err)
	}
}
