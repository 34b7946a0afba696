package models

import (
	"time"

	"github.com/google/uuid"
)

// Workspace is the tenant boundary: campaigns, sender accounts, and contacts
// all belong to exactly one workspace.
type Workspace struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_workspaces_uuid" json:"uuid"`
	Name string    `gorm:"size:120;not null" json:"name"`

	IsActive *bool `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Workspace) TableName() string {
	return "workspaces"
}

// BeforeCreate is called before creating a new record
func (w *Workspace) BeforeCreate() error {
	if w.UUID == uuid.Nil {
		w.UUID = uuid.New()
	}
	return nil
}

// WorkspaceFilter represents filter criteria for workspaces
type WorkspaceFilter struct {
	ID   *uint      `json:"id,omitempty"`
	UUID *uuid.UUID `json:"uuid,omitempty"`
}

// User is a workspace member who can log in and manage campaigns
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`
	WorkspaceID uint      `gorm:"not null;index:idx_users_workspace_id" json:"workspace_id"`

	Email        string `gorm:"size:255;not null;uniqueIndex:uk_users_email" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"` // Never serialize password hash

	IsActive *bool `gorm:"default:true" json:"is_active"`

	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	// Relations
	Workspace *Workspace `gorm:"foreignKey:WorkspaceID;references:ID" json:"workspace,omitempty"`
}

// TableName returns the table name for the model
func (User) TableName() string {
	return "users"
}

// BeforeCreate is called before creating a new record
func (u *User) BeforeCreate() error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	return nil
}

// UserFilter represents filter criteria for users
type UserFilter struct {
	ID          *uint      `json:"id,omitempty"`
	UUID        *uuid.UUID `json:"uuid,omitempty"`
	WorkspaceID *uint      `json:"workspace_id,omitempty"`
	Email       *string    `json:"email,omitempty"`
}
