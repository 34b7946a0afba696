package models

import (
	"time"
)

// AccountDailyMessageCount is the daily quota ledger row for one sender
// account and one UTC calendar date. It is the single source of truth for
// "has this account hit its daily cap": the count equals the number of
// successful sends attributed to the account on that date and never
// decreases within a day. Rows come into existence on the first increment;
// reads never create them.
type AccountDailyMessageCount struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID uint      `gorm:"not null;uniqueIndex:uk_account_daily_counts,priority:1" json:"account_id"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:uk_account_daily_counts,priority:2" json:"date"`

	MessageCount int `gorm:"not null;default:0" json:"message_count"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Account *SenderAccount `gorm:"foreignKey:AccountID;references:ID" json:"account,omitempty"`
}

// TableName returns the table name for the model
func (AccountDailyMessageCount) TableName() string {
	return "account_daily_message_counts"
}

// AccountDailyMessageCountFilter represents filter criteria for ledger rows
type AccountDailyMessageCountFilter struct {
	ID        *uint      `json:"id,omitempty"`
	AccountID *uint      `json:"account_id,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
}
