package models

import (
	"time"
)

// Conversation is the message thread between one sender account and one
// contact. There is exactly one conversation per (account, contact) pair;
// the message repository upserts it on first write.
type Conversation struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	AccountID uint `gorm:"not null;uniqueIndex:uk_conversations,priority:1;index:idx_conversations_account_id" json:"account_id"`
	ContactID uint `gorm:"not null;uniqueIndex:uk_conversations,priority:2" json:"contact_id"`

	LastMessageAt *time.Time `gorm:"index:idx_conversations_last_message_at" json:"last_message_at,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Account *SenderAccount `gorm:"foreignKey:AccountID;references:ID" json:"account,omitempty"`
	Contact *Contact       `gorm:"foreignKey:ContactID;references:ID" json:"contact,omitempty"`
}

// TableName returns the table name for the model
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationFilter represents filter criteria for conversations
type ConversationFilter struct {
	ID        *uint `json:"id,omitempty"`
	AccountID *uint `json:"account_id,omitempty"`
	ContactID *uint `json:"contact_id,omitempty"`
}
