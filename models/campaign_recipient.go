package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// RecipientStatus represents the status of a campaign recipient
type RecipientStatus string

const (
	RecipientStatusPending    RecipientStatus = "pending"
	RecipientStatusClaimed    RecipientStatus = "claimed"
	RecipientStatusInProgress RecipientStatus = "in_progress"
	RecipientStatusCompleted  RecipientStatus = "completed"
	RecipientStatusFailed     RecipientStatus = "failed"
)

// String returns the string representation of the status
func (s RecipientStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s RecipientStatus) Valid() bool {
	switch s {
	case RecipientStatusPending, RecipientStatusClaimed, RecipientStatusInProgress,
		RecipientStatusCompleted, RecipientStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for RecipientStatus
func (s *RecipientStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = RecipientStatus(v)
	case []byte:
		*s = RecipientStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into RecipientStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for RecipientStatus
func (s RecipientStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid RecipientStatus: %s", s)
	}
	return string(s), nil
}

// IsTerminal reports whether the status is an absorbing state
func (s RecipientStatus) IsTerminal() bool {
	return s == RecipientStatusCompleted || s == RecipientStatusFailed
}

// CampaignRecipient tracks one (campaign, contact) enrollment through the
// step sequence. "claimed" is a transient state held only while one run-loop
// invocation owns the recipient; it exists so overlapping invocations cannot
// both send to the same recipient. CurrentStepOrder only ever increases.
type CampaignRecipient struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	CampaignID uint            `gorm:"not null;uniqueIndex:uk_campaign_recipients,priority:1;index:idx_campaign_recipients_campaign_id" json:"campaign_id"`
	ContactID  uint            `gorm:"not null;uniqueIndex:uk_campaign_recipients,priority:2" json:"contact_id"`
	Status     RecipientStatus `gorm:"type:recipient_status;not null;default:'pending';index:idx_campaign_recipients_status" json:"status"`

	// CurrentStepOrder is the order of the last step successfully completed;
	// zero means no step has been sent yet.
	CurrentStepOrder int `gorm:"not null;default:0" json:"current_step_order"`

	// AssignedAccountID is fixed at enrollment and never reassigned mid-run
	AssignedAccountID uint `gorm:"not null;index:idx_campaign_recipients_assigned_account_id" json:"assigned_account_id"`

	// NextProcessAt gates eligibility: the recipient must not be processed
	// before this instant. Null means immediately eligible.
	NextProcessAt   *time.Time `gorm:"index:idx_campaign_recipients_next_process_at" json:"next_process_at,omitempty"`
	LastProcessedAt *time.Time `json:"last_processed_at,omitempty"`
	ErrorMessage    *string    `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Campaign        *Campaign      `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Contact         *Contact       `gorm:"foreignKey:ContactID;references:ID" json:"contact,omitempty"`
	AssignedAccount *SenderAccount `gorm:"foreignKey:AssignedAccountID;references:ID" json:"assigned_account,omitempty"`
}

// TableName returns the table name for the model
func (CampaignRecipient) TableName() string {
	return "campaign_recipients"
}

// DueAt reports whether the recipient is eligible for processing at the given
// instant: non-terminal, unclaimed, and past (or without) its gate timestamp.
func (r *CampaignRecipient) DueAt(now time.Time) bool {
	if r.Status != RecipientStatusPending && r.Status != RecipientStatusInProgress {
		return false
	}
	return r.NextProcessAt == nil || !r.NextProcessAt.After(now)
}

// CampaignRecipientFilter represents filter criteria for campaign recipients
type CampaignRecipientFilter struct {
	ID                *uint            `json:"id,omitempty"`
	CampaignID        *uint            `json:"campaign_id,omitempty"`
	ContactID         *uint            `json:"contact_id,omitempty"`
	AssignedAccountID *uint            `json:"assigned_account_id,omitempty"`
	Status            *RecipientStatus `json:"status,omitempty"`
	DueBefore         *time.Time       `json:"due_before,omitempty"`
}
