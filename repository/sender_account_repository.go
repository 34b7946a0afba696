package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/utils"
	"gorm.io/gorm"
)

// SenderAccountRepositoryImpl implements SenderAccountRepository
type SenderAccountRepositoryImpl struct {
	*BaseRepository[models.SenderAccount, models.SenderAccountFilter]
}

// NewSenderAccountRepository creates a new sender account repository
func NewSenderAccountRepository(db *gorm.DB) SenderAccountRepository {
	return &SenderAccountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SenderAccount, models.SenderAccountFilter](db),
	}
}

// ByIGUserID retrieves a sender account by its Instagram user id
func (r *SenderAccountRepositoryImpl) ByIGUserID(ctx context.Context, igUserID string) (*models.SenderAccount, error) {
	rows, err := r.ByFilter(ctx, models.SenderAccountFilter{IGUserID: &igUserID}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Update updates a sender account
func (r *SenderAccountRepositoryImpl) Update(ctx context.Context, account *models.SenderAccount) error {
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

	now := time.Now().UTC()
	account.UpdatedAt = &now
	err = db.Save(account).Error
	if err != nil {
		return fmt.Errorf("failed to update sender account: %w", err)
	}
	return nil
}

// Deactivate flips the account's is_active flag off, taking it out of every
// campaign's rotation on the next cycle
func (r *SenderAccountRepositoryImpl) Deactivate(ctx context.Context, accountID uint) error {
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

	err = db.Model(&models.SenderAccount{}).Where("id = ?", accountID).Updates(map[string]any{
		"is_active":  utils.ToPtr(false),
		"updated_at": time.Now().UTC(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate sender account: %w", err)
	}
	return nil
}

func (r *SenderAccountRepositoryImpl) applyFilter(db *gorm.DB, f models.SenderAccountFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.WorkspaceID != nil {
		db = db.Where("workspace_id = ?", *f.WorkspaceID)
	}
	if f.IGUserID != nil {
		db = db.Where("ig_user_id = ?", *f.IGUserID)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	return db
}

// ByFilter retrieves sender accounts based on filter criteria
func (r *SenderAccountRepositoryImpl) ByFilter(ctx context.Context, filter models.SenderAccountFilter, orderBy string, limit, offset int) ([]*models.SenderAccount, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.SenderAccount{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.SenderAccount
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of sender accounts matching the filter
func (r *SenderAccountRepositoryImpl) Count(ctx context.Context, filter models.SenderAccountFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.SenderAccount{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any sender account matching the filter exists
func (r *SenderAccountRepositoryImpl) Exists(ctx context.Context, filter models.SenderAccountFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// CampaignAccountRepositoryImpl implements CampaignAccountRepository
type CampaignAccountRepositoryImpl struct {
	*BaseRepository[models.CampaignAccount, models.CampaignAccountFilter]
}

// NewCampaignAccountRepository creates a new campaign-account link repository
func NewCampaignAccountRepository(db *gorm.DB) CampaignAccountRepository {
	return &CampaignAccountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignAccount, models.CampaignAccountFilter](db),
	}
}

// ListByCampaign returns the campaign's account links in stored order
func (r *CampaignAccountRepositoryImpl) ListByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignAccount, error) {
	return r.ByFilter(ctx, models.CampaignAccountFilter{CampaignID: &campaignID}, "id ASC", 0, 0)
}

func (r *CampaignAccountRepositoryImpl) applyFilter(db *gorm.DB, f models.CampaignAccountFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.AccountID != nil {
		db = db.Where("account_id = ?", *f.AccountID)
	}
	return db
}

// ByFilter retrieves campaign-account links based on filter criteria
func (r *CampaignAccountRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignAccountFilter, orderBy string, limit, offset int) ([]*models.CampaignAccount, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CampaignAccount{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.CampaignAccount
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of links matching the filter
func (r *CampaignAccountRepositoryImpl) Count(ctx context.Context, filter models.CampaignAccountFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CampaignAccount{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any link matching the filter exists
func (r *CampaignAccountRepositoryImpl) Exists(ctx context.Context, filter models.CampaignAccountFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
