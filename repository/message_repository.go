package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/utils"
	"gorm.io/gorm"
)

// ConversationRepositoryImpl implements ConversationRepository
type ConversationRepositoryImpl struct {
	*BaseRepository[models.Conversation, models.ConversationFilter]
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &ConversationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Conversation, models.ConversationFilter](db),
	}
}

// GetOrCreate returns the conversation for the (account, contact) pair,
// creating it when absent
func (r *ConversationRepositoryImpl) GetOrCreate(ctx context.Context, accountID, contactID uint) (*models.Conversation, error) {
	db := r.getDB(ctx)

	var conv models.Conversation
	err := db.Where("account_id = ? AND contact_id = ?", accountID, contactID).Last(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up conversation: %w", err)
	}

	conv = models.Conversation{
		AccountID: accountID,
		ContactID: contactID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := r.Save(ctx, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// TouchLastMessage bumps the conversation's last-message timestamp
func (r *ConversationRepositoryImpl) TouchLastMessage(ctx context.Context, conversationID uint, at time.Time) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Conversation{}).Where("id = ?", conversationID).Updates(map[string]any{
		"last_message_at": at,
		"updated_at":      time.Now().UTC(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to touch conversation %d: %w", conversationID, err)
	}
	return nil
}

func (r *ConversationRepositoryImpl) applyFilter(db *gorm.DB, f models.ConversationFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.AccountID != nil {
		db = db.Where("account_id = ?", *f.AccountID)
	}
	if f.ContactID != nil {
		db = db.Where("contact_id = ?", *f.ContactID)
	}
	return db
}

// ByFilter retrieves conversations based on filter criteria
func (r *ConversationRepositoryImpl) ByFilter(ctx context.Context, filter models.ConversationFilter, orderBy string, limit, offset int) ([]*models.Conversation, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Conversation{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Conversation
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of conversations matching the filter
func (r *ConversationRepositoryImpl) Count(ctx context.Context, filter models.ConversationFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Conversation{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any conversation matching the filter exists
func (r *ConversationRepositoryImpl) Exists(ctx context.Context, filter models.ConversationFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// MessageRepositoryImpl implements MessageRepository
type MessageRepositoryImpl struct {
	*BaseRepository[models.Message, models.MessageFilter]
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &MessageRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Message, models.MessageFilter](db),
	}
}

// ExistsByExternalID reports whether an inbound message with the given
// platform-side id has already been ingested
func (r *MessageRepositoryImpl) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.Message{}).Where("external_id = ?", externalID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check message external id: %w", err)
	}
	return count > 0, nil
}

// CountOutboundSentByAccountAndDate counts OUTBOUND/SENT rows attributed to
// the account on the given UTC date
func (r *MessageRepositoryImpl) CountOutboundSentByAccountAndDate(ctx context.Context, accountID uint, date time.Time) (int64, error) {
	db := r.getDB(ctx)
	day := utils.UTCDate(date)

	var count int64
	err := db.Model(&models.Message{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.account_id = ?", accountID).
		Where("messages.direction = ? AND messages.status = ?", models.MessageDirectionOutbound, models.MessageStatusSent).
		Where("messages.sent_at >= ? AND messages.sent_at < ?", day, day.Add(24*time.Hour)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count outbound messages: %w", err)
	}
	return count, nil
}

func (r *MessageRepositoryImpl) applyFilter(db *gorm.DB, f models.MessageFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.ConversationID != nil {
		db = db.Where("conversation_id = ?", *f.ConversationID)
	}
	if f.Direction != nil {
		db = db.Where("direction = ?", *f.Direction)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.SentAfter != nil {
		db = db.Where("sent_at >= ?", *f.SentAfter)
	}
	if f.SentBefore != nil {
		db = db.Where("sent_at < ?", *f.SentBefore)
	}
	return db
}

// ByFilter retrieves messages based on filter criteria
func (r *MessageRepositoryImpl) ByFilter(ctx context.Context, filter models.MessageFilter, orderBy string, limit, offset int) ([]*models.Message, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Message{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Message
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of messages matching the filter
func (r *MessageRepositoryImpl) Count(ctx context.Context, filter models.MessageFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Message{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any message matching the filter exists
func (r *MessageRepositoryImpl) Exists(ctx context.Context, filter models.MessageFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
