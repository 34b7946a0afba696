// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/outreachly/outreachly-backend/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// WorkspaceRepository defines operations for workspaces
type WorkspaceRepository interface {
	Repository[models.Workspace, models.WorkspaceFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Workspace, error)
}

// UserRepository defines operations for workspace users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	ListByStatus(ctx context.Context, status models.CampaignStatus, limit, offset int) ([]*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	UpdateStatus(ctx context.Context, campaignID uint, status models.CampaignStatus, completedAt *time.Time) error
	// IncrementCounters atomically adds to the sent/failed aggregate counters
	IncrementCounters(ctx context.Context, campaignID uint, sentDelta, failedDelta int) error
}

// CampaignStepRepository defines operations for campaign steps
type CampaignStepRepository interface {
	Repository[models.CampaignStep, models.CampaignStepFilter]
	ListByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignStep, error)
	ByCampaignAndOrder(ctx context.Context, campaignID uint, stepOrder int) (*models.CampaignStep, error)
}

// SenderAccountRepository defines operations for sender accounts
type SenderAccountRepository interface {
	Repository[models.SenderAccount, models.SenderAccountFilter]
	ByIGUserID(ctx context.Context, igUserID string) (*models.SenderAccount, error)
	Update(ctx context.Context, account *models.SenderAccount) error
	Deactivate(ctx context.Context, accountID uint) error
}

// CampaignAccountRepository defines operations for campaign-account links
type CampaignAccountRepository interface {
	Repository[models.CampaignAccount, models.CampaignAccountFilter]
	ListByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignAccount, error)
}

// CampaignRecipientRepository defines operations for campaign recipients
type CampaignRecipientRepository interface {
	Repository[models.CampaignRecipient, models.CampaignRecipientFilter]
	// ListDue returns recipients assigned to the account that are eligible
	// for processing at the given instant, in stored insertion order.
	ListDue(ctx context.Context, campaignID, accountID uint, now time.Time, limit int) ([]*models.CampaignRecipient, error)
	// Claim conditionally moves a due recipient into the transient claimed
	// state. It returns false when the row was not claimable (already owned
	// by another invocation, terminal, or not yet due).
	Claim(ctx context.Context, recipientID uint, now time.Time) (bool, error)
	// Release returns a claimed recipient to the given status without
	// recording an attempt (used when an account is skipped after claiming).
	Release(ctx context.Context, recipientID uint, status models.RecipientStatus) error
	Update(ctx context.Context, recipient *models.CampaignRecipient) error
	// CountRemaining counts recipients still in a non-terminal state
	CountRemaining(ctx context.Context, campaignID uint) (int64, error)
}

// DailyCountRepository is the per-account per-UTC-day send quota ledger
type DailyCountRepository interface {
	// DailyCount returns the persisted count for the account/date, or zero
	// when no row exists. Reading never creates a row.
	DailyCount(ctx context.Context, accountID uint, date time.Time) (int, error)
	// IncrementDailyCount creates-or-increments the (account, date) row by
	// one in a single atomic statement.
	IncrementDailyCount(ctx context.Context, accountID uint, date time.Time) error
}

// ContactRepository defines operations for contacts
type ContactRepository interface {
	Repository[models.Contact, models.ContactFilter]
	ByWorkspaceAndIGUserID(ctx context.Context, workspaceID uint, igUserID string) (*models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) error
}

// ConversationRepository defines operations for conversations
type ConversationRepository interface {
	Repository[models.Conversation, models.ConversationFilter]
	// GetOrCreate returns the conversation for the (account, contact) pair,
	// creating it when absent.
	GetOrCreate(ctx context.Context, accountID, contactID uint) (*models.Conversation, error)
	TouchLastMessage(ctx context.Context, conversationID uint, at time.Time) error
}

// MessageRepository defines operations for messages
type MessageRepository interface {
	Repository[models.Message, models.MessageFilter]
	ExistsByExternalID(ctx context.Context, externalID string) (bool, error)
	// CountOutboundSentByAccountAndDate counts OUTBOUND/SENT rows attributed
	// to the account on the given UTC date (ledger reconciliation).
	CountOutboundSentByAccountAndDate(ctx context.Context, accountID uint, date time.Time) (int64, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByWorkspace(ctx context.Context, workspaceID uint, limit, offset int) ([]*models.AuditLog, error)
}
