package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	ballotcoordinator "evoting/contexts/ballot/ballot-coordinator"
	ballotentities "evoting/contexts/ballot/ballot-coordinator/domain/entities"
	staffdomainerrors "evoting/contexts/identity-access/staff-accounts/domain/errors"
)

type openPhase struct{}

func (openPhase) IsMutationAllowed(context.Context, string) (bool, error) { return true, nil }

type noDistricts struct{}

func (noDistricts) ListDistrictIDs(context.Context) ([]int64, error) { return nil, nil }

type acceptingSigner struct{}

func (acceptingSigner) ComputeVote(context.Context, ballotentities.VoteCall) (ballotentities.VoteReceipt, error) {
	return ballotentities.VoteReceipt{KeyImage: "ki"}, nil
}

func (acceptingSigner) CalculateTotalVote(context.Context, []int64) error { return nil }

func (acceptingSigner) FilterNonVoters(context.Context, []int64) ([]int64, error) { return nil, nil }

func TestCandidateRegistrarMapsVotedCandidate(t *testing.T) {
	ctx := context.Background()
	ballot := ballotcoordinator.NewInMemoryModule(acceptingSigner{}, openPhase{}, noDistricts{}, nil)
	registrar := candidateRegistrar{candidates: ballot.Candidates}

	if err := registrar.RegisterCandidate(ctx, 7, 2); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := ballot.Store.IncrementTally(ctx, 7, systemClock{}.Now()); err != nil {
		t.Fatalf("increment: %v", err)
	}
	err := registrar.RemoveCandidate(ctx, 7)
	if !errors.Is(err, staffdomainerrors.ErrCandidateHasVotes) {
		t.Fatalf("expected ErrCandidateHasVotes, got %v", err)
	}

	if err := registrar.RemoveCandidate(ctx, 404); err != nil {
		t.Fatalf("expected missing candidate to be a no-op, got %v", err)
	}
}

func TestSplitOrigins(t *testing.T) {
	origins := splitOrigins(" https://vote.example.org, ,http://localhost:8080 ")
	if len(origins) != 2 || origins[0] != "https://vote.example.org" || origins[1] != "http://localhost:8080" {
		t.Fatalf("unexpected origins %v", origins)
	}
}

func TestNormalizeAddr(t *testing.T) {
	for input, want := range map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"} {
		if got := normalizeAddr(input); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	body := []byte(`districts:
  - name: North
    voterCount: 30
identities:
  - identityId: "3201010101900001"
    password: secret-pass
    fullName: Test Voter
    district: North
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	seed, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	if len(seed.Districts) != 1 || seed.Districts[0].VoterCount != 30 {
		t.Fatalf("unexpected districts %+v", seed.Districts)
	}
	if len(seed.Identities) != 1 || seed.Identities[0].District != "North" {
		t.Fatalf("unexpected identities %+v", seed.Identities)
	}
}
