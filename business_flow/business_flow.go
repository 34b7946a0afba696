// Package businessflow contains the business logic for the application.
package businessflow

import (
	"github.com/outreachly/outreachly-backend/app/dto"
	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToCampaignDTO converts a campaign model (with preloaded steps) to its response DTO
func ToCampaignDTO(campaign *models.Campaign) dto.CampaignDTO {
	out := dto.CampaignDTO{
		UUID:           campaign.UUID.String(),
		Name:           campaign.Name,
		Status:         string(campaign.Status),
		WindowStart:    campaign.WindowStart,
		WindowEnd:      campaign.WindowEnd,
		Timezone:       campaign.Timezone,
		MessagesPerDay: campaign.MessagesPerDay,
		SentCount:      campaign.SentCount,
		FailedCount:    campaign.FailedCount,
		CompletedAt:    campaign.CompletedAt,
		CreatedAt:      campaign.CreatedAt,
	}

	for i := range campaign.Steps {
		out.Steps = append(out.Steps, ToCampaignStepDTO(&campaign.Steps[i]))
	}

	return out
}

// ToCampaignStepDTO converts a campaign step model to its response DTO
func ToCampaignStepDTO(step *models.CampaignStep) dto.CampaignStepDTO {
	return dto.CampaignStepDTO{
		StepOrder:       step.StepOrder,
		ContentMode:     string(step.ContentMode),
		Template:        step.Template,
		Variants:        []string(step.Variants),
		SelectionPolicy: string(step.SelectionPolicy),
		DelayMinutes:    step.DelayMinutes,
	}
}

// ToContactDTO converts a contact model to its response DTO
func ToContactDTO(contact *models.Contact) dto.ContactDTO {
	return dto.ContactDTO{
		ID:         contact.ID,
		IGUserID:   contact.IGUserID,
		IGUsername: contact.IGUsername,
		Name:       contact.Name,
		Source:     string(contact.Source),
		CreatedAt:  contact.CreatedAt,
	}
}

// ToSenderAccountDTO converts a sender account model to its response DTO
func ToSenderAccountDTO(account *models.SenderAccount) dto.SenderAccountDTO {
	return dto.SenderAccountDTO{
		ID:         account.ID,
		IGUserID:   account.IGUserID,
		Username:   account.Username,
		AuthMethod: string(account.AuthMethod),
		IsActive:   utils.IsTrue(account.IsActive),
		CreatedAt:  account.CreatedAt,
	}
}
