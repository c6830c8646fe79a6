package httpadapter

import (
	"context"
	"log/slog"
	"strings"

	"evoting/contexts/identity-access/staff-accounts/application/commands"
	"evoting/contexts/identity-access/staff-accounts/application/queries"
	"evoting/contexts/identity-access/staff-accounts/domain/entities"
	httptransport "evoting/contexts/identity-access/staff-accounts/transport/http"
)

type Handler struct {
	Login     commands.LoginUseCase
	Accounts  commands.AccountUseCase
	Passwords commands.PasswordUseCase
	Queries   queries.AccountQueryUseCase
	Logger    *slog.Logger
}

func (h Handler) StaffLoginHandler(ctx context.Context, req httptransport.StaffLoginRequest) (httptransport.StaffLoginResponse, error) {
	principal, err := h.Login.Execute(ctx, commands.LoginCommand{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return httptransport.StaffLoginResponse{}, err
	}
	return httptransport.StaffLoginResponse{
		AccountID:          principal.AccountID,
		Username:           principal.Username,
		Role:               string(principal.Role),
		DistrictID:         principal.DistrictID,
		MustChangePassword: principal.MustChangePassword,
	}, nil
}

func (h Handler) CreateAccountHandler(ctx context.Context, req httptransport.CreateAccountRequest) (httptransport.AccountResponse, error) {
	account, err := h.Accounts.Create(ctx, commands.CreateAccountCommand{
		Username:   req.Username,
		Password:   req.Password,
		Role:       entities.Role(strings.ToLower(strings.TrimSpace(req.Role))),
		DistrictID: req.DistrictID,
	})
	if err != nil {
		return httptransport.AccountResponse{}, err
	}
	return mapAccount(account), nil
}

func (h Handler) DeleteAccountHandler(ctx context.Context, accountID int64) error {
	return h.Accounts.Delete(ctx, accountID)
}

func (h Handler) ChangePasswordHandler(ctx context.Context, accountID int64, req httptransport.ChangePasswordRequest) error {
	return h.Passwords.ChangePassword(ctx, commands.ChangePasswordCommand{
		AccountID:       accountID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
}

func (h Handler) ListAccountsHandler(ctx context.Context) (httptransport.ListAccountsResponse, error) {
	accounts, err := h.Queries.ListAccounts(ctx)
	if err != nil {
		return httptransport.ListAccountsResponse{}, err
	}
	items := make([]httptransport.AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		items = append(items, mapAccount(account))
	}
	return httptransport.ListAccountsResponse{Items: items}, nil
}

func mapAccount(account entities.Account) httptransport.AccountResponse {
	return httptransport.AccountResponse{
		ID:                 account.ID,
		Username:           account.Username,
		Role:               string(account.Role),
		DistrictID:         account.DistrictID,
		MustChangePassword: account.MustChangePassword,
		CreatedAt:          account.CreatedAt,
		LastLoginAt:        account.LastLoginAt,
	}
}
