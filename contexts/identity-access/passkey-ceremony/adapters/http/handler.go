package httpadapter

import (
	"context"
	"log/slog"

	"evoting/contexts/identity-access/passkey-ceremony/application/commands"
	"evoting/contexts/identity-access/passkey-ceremony/application/queries"
	"evoting/contexts/identity-access/passkey-ceremony/domain/entities"
	httptransport "evoting/contexts/identity-access/passkey-ceremony/transport/http"
)

type Handler struct {
	BeginRegistration      commands.BeginRegistrationUseCase
	CompleteRegistration   commands.CompleteRegistrationUseCase
	BeginAuthentication    commands.BeginAuthenticationUseCase
	CompleteAuthentication commands.CompleteAuthenticationUseCase
	Cancel                 commands.CancelCeremonyUseCase
	Logout                 commands.LogoutUseCase
	Devices                commands.DeviceManagementUseCase
	Sessions               queries.SessionQueryUseCase
	Logger                 *slog.Logger
}

func (h Handler) RegistrationOptionsHandler(ctx context.Context, sessionID string) (httptransport.CeremonyOptionsResponse, error) {
	options, err := h.BeginRegistration.Execute(ctx, sessionID)
	if err != nil {
		return httptransport.CeremonyOptionsResponse{}, err
	}
	return httptransport.CeremonyOptionsResponse{Options: options}, nil
}

func (h Handler) RegistrationVerifyHandler(ctx context.Context, sessionID string, req httptransport.RegistrationVerifyRequest) (httptransport.CredentialResponse, error) {
	credential, err := h.CompleteRegistration.Execute(ctx, commands.CompleteRegistrationCommand{
		SessionID: sessionID,
		Response:  req.Credential,
		IsMaster:  req.IsMaster,
	})
	if err != nil {
		return httptransport.CredentialResponse{}, err
	}
	return mapCredential(credential), nil
}

func (h Handler) AuthenticationOptionsHandler(ctx context.Context, sessionID string) (httptransport.CeremonyOptionsResponse, error) {
	options, err := h.BeginAuthentication.Execute(ctx, sessionID)
	if err != nil {
		return httptransport.CeremonyOptionsResponse{}, err
	}
	return httptransport.CeremonyOptionsResponse{Options: options}, nil
}

func (h Handler) AuthenticationVerifyHandler(ctx context.Context, sessionID string, req httptransport.AuthenticationVerifyRequest) (httptransport.SessionResponse, error) {
	session, err := h.CompleteAuthentication.Execute(ctx, commands.CompleteAuthenticationCommand{
		SessionID: sessionID,
		Response:  req.Credential,
	})
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return MapSession(session), nil
}

func (h Handler) CancelHandler(ctx context.Context, sessionID string) error {
	return h.Cancel.Execute(ctx, sessionID)
}

func (h Handler) LogoutHandler(ctx context.Context, sessionID string) error {
	return h.Logout.Execute(ctx, sessionID)
}

func (h Handler) ListCredentialsHandler(ctx context.Context, principalID string) (httptransport.ListCredentialsResponse, error) {
	items, err := h.Sessions.ListCredentials(ctx, principalID)
	if err != nil {
		return httptransport.ListCredentialsResponse{}, err
	}
	resp := httptransport.ListCredentialsResponse{Items: make([]httptransport.CredentialResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, mapCredential(item))
	}
	return resp, nil
}

func (h Handler) DeleteOwnNonMasterHandler(ctx context.Context, sessionID string) (httptransport.DeleteCredentialsResponse, error) {
	removed, err := h.Devices.DeleteOwnNonMaster(ctx, sessionID)
	if err != nil {
		return httptransport.DeleteCredentialsResponse{}, err
	}
	return httptransport.DeleteCredentialsResponse{Removed: removed}, nil
}

func (h Handler) DeleteAllForPrincipalHandler(ctx context.Context, principalID string) (httptransport.DeleteCredentialsResponse, error) {
	removed, err := h.Devices.DeleteAll(ctx, principalID)
	if err != nil {
		return httptransport.DeleteCredentialsResponse{}, err
	}
	return httptransport.DeleteCredentialsResponse{Removed: removed}, nil
}

func (h Handler) DeleteAllNonMasterHandler(ctx context.Context) (httptransport.DeleteCredentialsResponse, error) {
	principals, err := h.Devices.DeleteAllNonMaster(ctx)
	if err != nil {
		return httptransport.DeleteCredentialsResponse{}, err
	}
	return httptransport.DeleteCredentialsResponse{Removed: principals}, nil
}

// MapSession also tells the client which ceremony it owes next.
func MapSession(session entities.Session) httptransport.SessionResponse {
	resp := httptransport.SessionResponse{
		State:            string(session.State),
		PasswordVerified: session.PasswordVerified,
		SubjectKind:      string(session.Subject.Kind),
	}
	switch session.State {
	case entities.StateAwaitingFirstRegistration:
		resp.NextStep = "passkey_registration"
	case entities.StateAwaitingStepUpAuth:
		resp.NextStep = "passkey_authentication"
	}
	return resp
}

func mapCredential(credential entities.Credential) httptransport.CredentialResponse {
	return httptransport.CredentialResponse{
		ID:             credential.ID,
		IsMaster:       credential.IsMaster,
		BackupEligible: credential.BackupEligible,
		BackupState:    credential.BackupState,
		CreatedAt:      credential.CreatedAt,
		LastUsedAt:     credential.LastUsedAt,
	}
}
