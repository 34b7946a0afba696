package dto

import (
	"time"
)

// ImportContactsResponse represents the outcome of an XLSX contact upload
type ImportContactsResponse struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// ContactDTO represents a contact in responses
type ContactDTO struct {
	ID         uint      `json:"id"`
	IGUserID   string    `json:"ig_user_id"`
	IGUsername *string   `json:"ig_username,omitempty"`
	Name       *string   `json:"name,omitempty"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListContactsRequest represents the request to list workspace contacts
type ListContactsRequest struct {
	WorkspaceID uint `json:"-"`
	Page        int  `json:"page,omitempty" validate:"omitempty,min=1"`
	PageSize    int  `json:"page_size,omitempty" validate:"omitempty,min=1,max=100"`
}

// ListContactsResponse represents the response to list contacts
type ListContactsResponse struct {
	Contacts   []ContactDTO `json:"contacts"`
	Pagination Pagination   `json:"pagination"`
}
