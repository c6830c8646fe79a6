package queries

import (
	"context"

	"evoting/contexts/identity-access/staff-accounts/domain/entities"
	"evoting/contexts/identity-access/staff-accounts/ports"
)

type AccountQueryUseCase struct {
	Accounts ports.AccountRepository
}

func (uc AccountQueryUseCase) ListAccounts(ctx context.Context) ([]entities.Account, error) {
	return uc.Accounts.ListAccounts(ctx)
}

func (uc AccountQueryUseCase) GetAccount(ctx context.Context, accountID int64) (entities.Account, error) {
	return uc.Accounts.GetAccount(ctx, accountID)
}
