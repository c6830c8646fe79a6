package signeradapter

import (
	"context"
	"errors"
	"fmt"

	domainerrors "evoting/contexts/identity-access/staff-accounts/domain/errors"
	"evoting/contexts/identity-access/staff-accounts/ports"
	"evoting/internal/platform/ringct"
)

type ringctClient interface {
	GenerateCandidateKeys(ctx context.Context, districtID int64, candidateID int64) (ringct.CandidateKeys, error)
}

// KeyGenerator adapts the shared RingCT client to the candidate key port.
type KeyGenerator struct {
	client ringctClient
}

func NewKeyGenerator(client *ringct.Client) KeyGenerator {
	return KeyGenerator{client: client}
}

func (g KeyGenerator) GenerateCandidateKeys(ctx context.Context, districtID int64, candidateID int64) error {
	if _, err := g.client.GenerateCandidateKeys(ctx, districtID, candidateID); err != nil {
		if errors.Is(err, ringct.ErrTransport) {
			return fmt.Errorf("%w: %w", domainerrors.ErrSignerUnavailable, err)
		}
		return fmt.Errorf("%w: %w", domainerrors.ErrSignerRejected, err)
	}
	return nil
}

var _ ports.CandidateKeyGenerator = KeyGenerator{}
