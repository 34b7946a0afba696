package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageDirection distinguishes inbound webhook messages from outbound sends
type MessageDirection string

const (
	MessageDirectionInbound  MessageDirection = "inbound"
	MessageDirectionOutbound MessageDirection = "outbound"
)

// MessageStatus enumerates delivery status of a message row
type MessageStatus string

const (
	MessageStatusSent     MessageStatus = "sent"
	MessageStatusReceived MessageStatus = "received"
)

// Message is one DM in a conversation. Outbound rows are written by the run
// loop only after the transport reports success and carry campaign/step
// attribution so the ledger can be reconciled against them.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_messages_uuid" json:"uuid"`
	ConversationID uint      `gorm:"not null;index:idx_messages_conversation_id" json:"conversation_id"`

	Direction MessageDirection `gorm:"size:8;not null;index:idx_messages_direction" json:"direction"`
	Status    MessageStatus    `gorm:"size:16;not null" json:"status"`
	Text      string           `gorm:"type:text;not null" json:"text"`

	// Campaign attribution, outbound only
	CampaignID *uint `gorm:"index:idx_messages_campaign_id" json:"campaign_id,omitempty"`
	StepOrder  *int  `json:"step_order,omitempty"`

	// ExternalID is the platform-side message id for inbound messages; used
	// for webhook dedupe.
	ExternalID *string `gorm:"size:128;index:idx_messages_external_id" json:"external_id,omitempty"`

	SentAt    time.Time `gorm:"not null;index:idx_messages_sent_at" json:"sent_at"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Conversation *Conversation `gorm:"foreignKey:ConversationID;references:ID" json:"conversation,omitempty"`
}

// TableName returns the table name for the model
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate is called before creating a new record
func (m *Message) BeforeCreate() error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now().UTC()
	}
	return nil
}

// MessageFilter represents filter criteria for messages
type MessageFilter struct {
	ID             *uint             `json:"id,omitempty"`
	ConversationID *uint             `json:"conversation_id,omitempty"`
	Direction      *MessageDirection `json:"direction,omitempty"`
	CampaignID     *uint             `json:"campaign_id,omitempty"`
	SentAfter      *time.Time        `json:"sent_after,omitempty"`
	SentBefore     *time.Time        `json:"sent_before,omitempty"`
}
