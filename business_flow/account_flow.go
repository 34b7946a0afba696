// Package businessflow contains the core business logic and use cases for sender account workflows
package businessflow

import (
	"context"
	"fmt"

	"github.com/outreachly/outreachly-backend/app/dto"
	"github.com/outreachly/outreachly-backend/app/services"
	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/repository"
	"github.com/outreachly/outreachly-backend/utils"
	"gorm.io/gorm"
)

// AccountFlow handles the sender account business logic
type AccountFlow interface {
	ConnectAccount(ctx context.Context, req *dto.ConnectAccountRequest, metadata *ClientMetadata) (*dto.ConnectAccountResponse, error)
	DeactivateAccount(ctx context.Context, req *dto.DeactivateAccountRequest, metadata *ClientMetadata) (*dto.SenderAccountDTO, error)
	ListAccounts(ctx context.Context, req *dto.ListAccountsRequest, metadata *ClientMetadata) (*dto.ListAccountsResponse, error)
}

// AccountFlowImpl implements the sender account business flow
type AccountFlowImpl struct {
	accountRepo repository.SenderAccountRepository
	auditRepo   repository.AuditLogRepository
	sealer      *services.CredentialSealer
	db          *gorm.DB
}

// NewAccountFlow creates a new sender account flow instance
func NewAccountFlow(
	accountRepo repository.SenderAccountRepository,
	auditRepo repository.AuditLogRepository,
	sealer *services.CredentialSealer,
	db *gorm.DB,
) AccountFlow {
	return &AccountFlowImpl{
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		sealer:      sealer,
		db:          db,
	}
}

// ConnectAccount registers an Instagram identity and seals its credential at rest
func (s *AccountFlowImpl) ConnectAccount(ctx context.Context, req *dto.ConnectAccountRequest, metadata *ClientMetadata) (*dto.ConnectAccountResponse, error) {
	existing, err := s.accountRepo.ByIGUserID(ctx, req.IGUserID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to lookup sender account", err)
	}
	if existing != nil {
		return nil, NewBusinessError("ACCOUNT_ALREADY_CONNECTED", "Sender account already connected", ErrSenderAccountExists)
	}

	sealed, err := s.sealer.Seal(req.AccessToken, req.ExpiresAt)
	if err != nil {
		return nil, NewBusinessError("CREDENTIAL_SEAL_FAILED", "Failed to seal account credential", err)
	}

	account := &models.SenderAccount{
		WorkspaceID:         req.WorkspaceID,
		IGUserID:            req.IGUserID,
		Username:            req.Username,
		AuthMethod:          models.SenderAccountAuthMethod(req.AuthMethod),
		EncryptedCredential: sealed,
		IsActive:            utils.ToPtr(true),
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.accountRepo.Save(txCtx, account)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Sender account connection failed: %s", err.Error())
		_ = s.createAuditLog(ctx, &req.WorkspaceID, models.AuditActionAccountConnected, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("ACCOUNT_CONNECT_FAILED", "Sender account connection failed", err)
	}

	msg := fmt.Sprintf("Sender account connected: @%s", account.Username)
	_ = s.createAuditLog(ctx, &req.WorkspaceID, models.AuditActionAccountConnected, msg, true, nil, metadata)

	return &dto.ConnectAccountResponse{
		ID:       account.ID,
		IGUserID: account.IGUserID,
		Username: account.Username,
		IsActive: utils.IsTrue(account.IsActive),
	}, nil
}

// DeactivateAccount retires the account from sending. Running campaigns keep
// their assignments; the run loop skips recipients assigned to inactive accounts.
func (s *AccountFlowImpl) DeactivateAccount(ctx context.Context, req *dto.DeactivateAccountRequest, metadata *ClientMetadata) (*dto.SenderAccountDTO, error) {
	account, err := s.ownedAccount(ctx, req.ID, req.WorkspaceID)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Deactivate(ctx, account.ID); err != nil {
		return nil, NewBusinessError("ACCOUNT_DEACTIVATION_FAILED", "Sender account deactivation failed", err)
	}
	account.IsActive = utils.ToPtr(false)

	msg := fmt.Sprintf("Sender account deactivated: @%s", account.Username)
	_ = s.createAuditLog(ctx, &req.WorkspaceID, models.AuditActionAccountDeactivated, msg, true, nil, metadata)

	out := ToSenderAccountDTO(account)
	return &out, nil
}

// ListAccounts returns the workspace's sender accounts
func (s *AccountFlowImpl) ListAccounts(ctx context.Context, req *dto.ListAccountsRequest, metadata *ClientMetadata) (*dto.ListAccountsResponse, error) {
	page, pageSize, err := normalizePagination(req.Page, req.PageSize)
	if err != nil {
		return nil, NewBusinessError("INVALID_PAGINATION", "Invalid pagination parameters", err)
	}

	filter := models.SenderAccountFilter{WorkspaceID: &req.WorkspaceID}
	if req.ActiveOnly {
		filter.IsActive = utils.ToPtr(true)
	}

	total, err := s.accountRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LIST_FAILED", "Failed to count sender accounts", err)
	}

	accounts, err := s.accountRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LIST_FAILED", "Failed to list sender accounts", err)
	}

	response := &dto.ListAccountsResponse{
		Accounts: make([]dto.SenderAccountDTO, 0, len(accounts)),
		Pagination: dto.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	}
	for _, account := range accounts {
		response.Accounts = append(response.Accounts, ToSenderAccountDTO(account))
	}

	return response, nil
}

func (s *AccountFlowImpl) ownedAccount(ctx context.Context, accountID, workspaceID uint) (*models.SenderAccount, error) {
	account, err := s.accountRepo.ByID(ctx, accountID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to lookup sender account", err)
	}
	if account == nil {
		return nil, NewBusinessError("ACCOUNT_NOT_FOUND", "Sender account not found", ErrSenderAccountNotFound)
	}
	if account.WorkspaceID != workspaceID {
		return nil, NewBusinessError("ACCOUNT_ACCESS_DENIED", "Access denied: sender account belongs to another workspace", ErrSenderAccountAccessDenied)
	}
	return account, nil
}

func (s *AccountFlowImpl) createAuditLog(ctx context.Context, workspaceID *uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		WorkspaceID:  workspaceID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return s.auditRepo.Save(ctx, audit)
}
