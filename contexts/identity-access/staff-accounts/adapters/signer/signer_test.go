package signeradapter

import (
	"context"
	"errors"
	"testing"

	domainerrors "evoting/contexts/identity-access/staff-accounts/domain/errors"
	"evoting/internal/platform/ringct"
)

type fakeClient struct {
	err error
}

func (f fakeClient) GenerateCandidateKeys(_ context.Context, districtID int64, candidateID int64) (ringct.CandidateKeys, error) {
	if f.err != nil {
		return ringct.CandidateKeys{}, f.err
	}
	return ringct.CandidateKeys{DistrictID: districtID, CandidateID: candidateID}, nil
}

func TestGenerateCandidateKeysMapsErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"ok", nil, nil},
		{"transport", &ringct.Error{Op: "generate_candidate_keys", Kind: ringct.ErrTransport}, domainerrors.ErrSignerUnavailable},
		{"rejected", &ringct.Error{Op: "generate_candidate_keys", Kind: ringct.ErrRejected}, domainerrors.ErrSignerRejected},
	}
	for _, tc := range cases {
		generator := KeyGenerator{client: fakeClient{err: tc.err}}
		err := generator.GenerateCandidateKeys(context.Background(), 3, 11)
		if tc.want == nil {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tc.name, err)
			}
			continue
		}
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}
