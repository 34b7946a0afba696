package models

import (
	"time"
)

// SenderAccountAuthMethod records how the account's session credential was obtained
type SenderAccountAuthMethod string

const (
	SenderAccountAuthOAuth  SenderAccountAuthMethod = "oauth"
	SenderAccountAuthCookie SenderAccountAuthMethod = "cookie"
)

// SenderAccount is a connected Instagram identity usable for sending DMs.
// The credential blob is sealed with the application secret before it is
// stored; the session service is the only reader.
type SenderAccount struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	WorkspaceID uint   `gorm:"not null;index:idx_sender_accounts_workspace_id" json:"workspace_id"`
	IGUserID    string `gorm:"size:64;not null;uniqueIndex:uk_sender_accounts_ig_user_id" json:"ig_user_id"`
	Username    string `gorm:"size:128;not null" json:"username"`

	AuthMethod          SenderAccountAuthMethod `gorm:"size:16;not null;default:'oauth'" json:"auth_method"`
	EncryptedCredential []byte                  `gorm:"type:bytea;not null" json:"-"`

	IsActive *bool `gorm:"default:true;index:idx_sender_accounts_is_active" json:"is_active"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Workspace *Workspace `gorm:"foreignKey:WorkspaceID;references:ID" json:"workspace,omitempty"`
}

// TableName returns the table name for the model
func (SenderAccount) TableName() string {
	return "sender_accounts"
}

// SenderAccountFilter represents filter criteria for sender accounts
type SenderAccountFilter struct {
	ID          *uint   `json:"id,omitempty"`
	WorkspaceID *uint   `json:"workspace_id,omitempty"`
	IGUserID    *string `json:"ig_user_id,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// CampaignAccount links a campaign to a sender account (many-to-many).
// Campaigns created before multi-account support carry a legacy
// single-account reference on the campaign row instead.
type CampaignAccount struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	CampaignID uint `gorm:"not null;uniqueIndex:uk_campaign_accounts,priority:1;index:idx_campaign_accounts_campaign_id" json:"campaign_id"`
	AccountID  uint `gorm:"not null;uniqueIndex:uk_campaign_accounts,priority:2" json:"account_id"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Campaign *Campaign      `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Account  *SenderAccount `gorm:"foreignKey:AccountID;references:ID" json:"account,omitempty"`
}

// TableName returns the table name for the model
func (CampaignAccount) TableName() string {
	return "campaign_accounts"
}

// CampaignAccountFilter represents filter criteria for campaign-account links
type CampaignAccountFilter struct {
	ID         *uint `json:"id,omitempty"`
	CampaignID *uint `json:"campaign_id,omitempty"`
	AccountID  *uint `json:"account_id,omitempty"`
}
