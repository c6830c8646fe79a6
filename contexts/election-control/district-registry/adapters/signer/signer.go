package signeradapter

import (
	"context"
	"errors"
	"fmt"

	domainerrors "evoting/contexts/election-control/district-registry/domain/errors"
	"evoting/contexts/election-control/district-registry/ports"
	"evoting/internal/platform/ringct"
)

type ringctClient interface {
	GenerateVotersAndCurrency(ctx context.Context, districtID int64, voterCount int) (ringct.VoterCurrency, error)
}

// VoterPoolGenerator adapts the shared RingCT client to the district
// registry's voter pool port.
type VoterPoolGenerator struct {
	client ringctClient
}

func NewVoterPoolGenerator(client *ringct.Client) VoterPoolGenerator {
	return VoterPoolGenerator{client: client}
}

func (g VoterPoolGenerator) GenerateVotersAndCurrency(ctx context.Context, districtID int64, voterCount int) error {
	if _, err := g.client.GenerateVotersAndCurrency(ctx, districtID, voterCount); err != nil {
		if errors.Is(err, ringct.ErrTransport) {
			return fmt.Errorf("%w: %w", domainerrors.ErrSignerUnavailable, err)
		}
		return fmt.Errorf("%w: %w", domainerrors.ErrSignerRejected, err)
	}
	return nil
}

var _ ports.VoterPoolGenerator = VoterPoolGenerator{}
