package dto

import (
	"time"
)

// ConnectAccountRequest represents the request to register a sender account
type ConnectAccountRequest struct {
	WorkspaceID uint       `json:"-"`
	IGUserID    string     `json:"ig_user_id" validate:"required,max=64"`
	Username    string     `json:"username" validate:"required,max=128"`
	AuthMethod  string     `json:"auth_method" validate:"required,oneof=oauth cookie"`
	AccessToken string     `json:"access_token" validate:"required"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ConnectAccountResponse represents the response to register a sender account
type ConnectAccountResponse struct {
	ID       uint   `json:"id"`
	IGUserID string `json:"ig_user_id"`
	Username string `json:"username"`
	IsActive bool   `json:"is_active"`
}

// DeactivateAccountRequest represents the request to deactivate a sender account
type DeactivateAccountRequest struct {
	ID          uint `json:"-"`
	WorkspaceID uint `json:"-"`
}

// SenderAccountDTO represents a sender account in responses
type SenderAccountDTO struct {
	ID         uint      `json:"id"`
	IGUserID   string    `json:"ig_user_id"`
	Username   string    `json:"username"`
	AuthMethod string    `json:"auth_method"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListAccountsRequest represents the request to list workspace sender accounts
type ListAccountsRequest struct {
	WorkspaceID uint  `json:"-"`
	ActiveOnly  bool  `json:"active_only,omitempty"`
	Page        int   `json:"page,omitempty" validate:"omitempty,min=1"`
	PageSize    int   `json:"page_size,omitempty" validate:"omitempty,min=1,max=100"`
}

// ListAccountsResponse represents the response to list sender accounts
type ListAccountsResponse struct {
	Accounts   []SenderAccountDTO `json:"accounts"`
	Pagination Pagination         `json:"pagination"`
}
