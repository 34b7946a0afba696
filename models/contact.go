package models

import (
	"time"
)

// ContactSource records how a contact entered the workspace
type ContactSource string

const (
	ContactSourceManual  ContactSource = "manual"
	ContactSourceImport  ContactSource = "import"
	ContactSourceInbound ContactSource = "inbound"
)

// Contact is an Instagram user a workspace can reach out to
type Contact struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	WorkspaceID uint    `gorm:"not null;uniqueIndex:uk_contacts_workspace_ig_user,priority:1;index:idx_contacts_workspace_id" json:"workspace_id"`
	IGUserID    string  `gorm:"size:64;not null;uniqueIndex:uk_contacts_workspace_ig_user,priority:2" json:"ig_user_id"`
	IGUsername  *string `gorm:"size:128;index:idx_contacts_ig_username" json:"ig_username,omitempty"`
	Name        *string `gorm:"size:255" json:"name,omitempty"`

	Source ContactSource `gorm:"size:16;not null;default:'manual'" json:"source"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Workspace *Workspace `gorm:"foreignKey:WorkspaceID;references:ID" json:"workspace,omitempty"`
}

// TableName returns the table name for the model
func (Contact) TableName() string {
	return "contacts"
}

// DisplayName returns the value substituted for {{name}}: display name first,
// then the Instagram username, then the literal "there".
func (c *Contact) DisplayName() string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	if c.IGUsername != nil && *c.IGUsername != "" {
		return *c.IGUsername
	}
	return "there"
}

// Username returns the value substituted for {{username}}; empty when absent
func (c *Contact) Username() string {
	if c.IGUsername != nil {
		return *c.IGUsername
	}
	return ""
}

// ContactFilter represents filter criteria for contacts
type ContactFilter struct {
	ID          *uint   `json:"id,omitempty"`
	WorkspaceID *uint   `json:"workspace_id,omitempty"`
	IGUserID    *string `json:"ig_user_id,omitempty"`
	IGUsername  *string `json:"ig_username,omitempty"`
}
