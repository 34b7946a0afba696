// Package models contains domain entities and business models for the outreach system
package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CampaignStatus represents the status of an outreach campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusRunning   CampaignStatus = "running"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusRunning,
		CampaignStatusCompleted, CampaignStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// Campaign represents a multi-step DM drip sequence targeting a set of contacts.
// The run loop is the only writer once the campaign leaves draft; "failed" is
// an operational state set by hand, never by the loop itself.
type Campaign struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	WorkspaceID uint           `gorm:"not null;index:idx_campaigns_workspace_id" json:"workspace_id"`
	Name        string         `gorm:"size:120;not null" json:"name"`
	Status      CampaignStatus `gorm:"type:campaign_status;not null;default:'draft';index:idx_campaigns_status" json:"status"`

	// Daily send window, time-of-day in the configured timezone. The window
	// may wrap past midnight (end < start).
	WindowStart string `gorm:"size:5;not null;default:'09:00'" json:"window_start"`
	WindowEnd   string `gorm:"size:5;not null;default:'17:00'" json:"window_end"`
	Timezone    string `gorm:"size:64;not null;default:'UTC'" json:"timezone"`

	// MessagesPerDay caps successful sends per sender account per UTC day
	MessagesPerDay int `gorm:"not null;default:50" json:"messages_per_day"`

	// Aggregate counters maintained by the run loop
	SentCount   int `gorm:"not null;default:0" json:"sent_count"`
	FailedCount int `gorm:"not null;default:0" json:"failed_count"`

	// LegacySenderAccountID is the single-account reference used by campaigns
	// created before multi-account support; the junction table wins when it
	// has rows.
	LegacySenderAccountID *uint `gorm:"index:idx_campaigns_legacy_sender_account_id" json:"legacy_sender_account_id,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`

	// Relations
	Workspace *Workspace     `gorm:"foreignKey:WorkspaceID;references:ID" json:"workspace,omitempty"`
	Steps     []CampaignStep `gorm:"foreignKey:CampaignID" json:"steps,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate() error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate() error {
	now := time.Now().UTC()
	c.UpdatedAt = &now
	return nil
}

// IsEditable checks if the campaign (and its steps) can still be modified
func (c *Campaign) IsEditable() bool {
	return c.Status == CampaignStatusDraft
}

// CanTransitionTo checks if the campaign can transition to the given status
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	switch c.Status {
	case CampaignStatusDraft:
		return newStatus == CampaignStatusRunning
	case CampaignStatusRunning:
		return newStatus == CampaignStatusCompleted ||
			newStatus == CampaignStatusFailed
	default:
		return false
	}
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	WorkspaceID   *uint           `json:"workspace_id,omitempty"`
	Status        *CampaignStatus `json:"status,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
}
