package dto

import (
	"time"
)

// CampaignStepDTO represents one message of a campaign's drip sequence
type CampaignStepDTO struct {
	StepOrder       int      `json:"step_order" validate:"required,min=1"`
	ContentMode     string   `json:"content_mode" validate:"required,oneof=fixed variants"`
	Template        string   `json:"template" validate:"required_if=ContentMode fixed"`
	Variants        []string `json:"variants,omitempty" validate:"required_if=ContentMode variants,omitempty,min=1,dive,required"`
	SelectionPolicy string   `json:"selection_policy,omitempty" validate:"omitempty,oneof=uniform_random"`
	DelayMinutes    int      `json:"delay_minutes" validate:"min=0"`
}

// CreateCampaignRequest represents the request to create a new campaign
type CreateCampaignRequest struct {
	WorkspaceID    uint              `json:"-"`
	Name           string            `json:"name" validate:"required,max=120"`
	WindowStart    string            `json:"window_start" validate:"required,len=5"`
	WindowEnd      string            `json:"window_end" validate:"required,len=5"`
	Timezone       string            `json:"timezone,omitempty"`
	MessagesPerDay int               `json:"messages_per_day,omitempty" validate:"omitempty,min=1,max=1000"`
	AccountIDs     []uint            `json:"account_ids" validate:"required,min=1"`
	Steps          []CampaignStepDTO `json:"steps" validate:"required,min=1,dive"`
}

// CreateCampaignResponse represents the response to create a new campaign
type CreateCampaignResponse struct {
	UUID      string `json:"uuid"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// StartCampaignRequest represents the request to start a draft campaign
type StartCampaignRequest struct {
	UUID        string `json:"-"`
	WorkspaceID uint   `json:"-"`
	ContactIDs  []uint `json:"contact_ids" validate:"required,min=1"`
}

// StartCampaignResponse represents the response to start a campaign
type StartCampaignResponse struct {
	UUID           string `json:"uuid"`
	Status         string `json:"status"`
	EnrolledCount  int    `json:"enrolled_count"`
	AccountCount   int    `json:"account_count"`
	FirstProcessAt string `json:"first_process_at,omitempty"`
}

// GetCampaignRequest represents the request to fetch a campaign
type GetCampaignRequest struct {
	UUID        string `json:"-"`
	WorkspaceID uint   `json:"-"`
}

// CampaignDTO represents a campaign in responses
type CampaignDTO struct {
	UUID           string            `json:"uuid"`
	Name           string            `json:"name"`
	Status         string            `json:"status"`
	WindowStart    string            `json:"window_start"`
	WindowEnd      string            `json:"window_end"`
	Timezone       string            `json:"timezone"`
	MessagesPerDay int               `json:"messages_per_day"`
	SentCount      int               `json:"sent_count"`
	FailedCount    int               `json:"failed_count"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	Steps          []CampaignStepDTO `json:"steps,omitempty"`
}

// ListCampaignsRequest represents the request to list workspace campaigns
type ListCampaignsRequest struct {
	WorkspaceID uint    `json:"-"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=draft running completed failed"`
	Page        int     `json:"page,omitempty" validate:"omitempty,min=1"`
	PageSize    int     `json:"page_size,omitempty" validate:"omitempty,min=1,max=100"`
}

// ListCampaignsResponse represents the response to list campaigns
type ListCampaignsResponse struct {
	Campaigns  []CampaignDTO `json:"campaigns"`
	Pagination Pagination    `json:"pagination"`
}

// ProcessCampaignRequest represents the request to trigger one run-loop pass
type ProcessCampaignRequest struct {
	UUID        string `json:"-"`
	WorkspaceID uint   `json:"-"`
}

// ProcessCampaignResponse summarizes one run-loop invocation
type ProcessCampaignResponse struct {
	UUID            string `json:"uuid"`
	Status          string `json:"status"`
	Sent            int    `json:"sent"`
	Failed          int    `json:"failed"`
	Completed       int    `json:"completed"`
	SkippedAccounts int    `json:"skipped_accounts"`
	AlreadyRunning  bool   `json:"already_running,omitempty"`
}
