package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/outreachly/outreachly-backend/models"
	"gorm.io/gorm"
)

// CampaignRecipientRepositoryImpl implements CampaignRecipientRepository
type CampaignRecipientRepositoryImpl struct {
	*BaseRepository[models.CampaignRecipient, models.CampaignRecipientFilter]
}

// NewCampaignRecipientRepository creates a new campaign recipient repository
func NewCampaignRecipientRepository(db *gorm.DB) CampaignRecipientRepository {
	return &CampaignRecipientRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignRecipient, models.CampaignRecipientFilter](db),
	}
}

// ListDue returns due recipients for the account in stored insertion order
func (r *CampaignRecipientRepositoryImpl) ListDue(ctx context.Context, campaignID, accountID uint, now time.Time, limit int) ([]*models.CampaignRecipient, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.CampaignRecipient{}).
		Where("campaign_id = ? AND assigned_account_id = ?", campaignID, accountID).
		Where("status IN ?", []models.RecipientStatus{models.RecipientStatusPending, models.RecipientStatusInProgress}).
		Where("next_process_at IS NULL OR next_process_at <= ?", now).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []*models.CampaignRecipient
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list due recipients: %w", err)
	}
	return rows, nil
}

// Claim conditionally moves a due recipient into the claimed state. The WHERE
// clause re-checks status and due-ness so that two overlapping invocations
// cannot both win the same row.
func (r *CampaignRecipientRepositoryImpl) Claim(ctx context.Context, recipientID uint, now time.Time) (bool, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
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

	res := db.Model(&models.CampaignRecipient{}).
		Where("id = ?", recipientID).
		Where("status IN ?", []models.RecipientStatus{models.RecipientStatusPending, models.RecipientStatusInProgress}).
		Where("next_process_at IS NULL OR next_process_at <= ?", now).
		Updates(map[string]any{
			"status":     models.RecipientStatusClaimed,
			"updated_at": now,
		})
	if res.Error != nil {
		err = res.Error
		return false, fmt.Errorf("failed to claim recipient %d: %w", recipientID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Release returns a claimed recipient to the given status
func (r *CampaignRecipientRepositoryImpl) Release(ctx context.Context, recipientID uint, status models.RecipientStatus) error {
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

	err = db.Model(&models.CampaignRecipient{}).
		Where("id = ? AND status = ?", recipientID, models.RecipientStatusClaimed).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to release recipient %d: %w", recipientID, err)
	}
	return nil
}

// Update updates a campaign recipient
func (r *CampaignRecipientRepositoryImpl) Update(ctx context.Context, recipient *models.CampaignRecipient) error {
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
	recipient.UpdatedAt = &now
	err = db.Save(recipient).Error
	if err != nil {
		return fmt.Errorf("failed to update recipient: %w", err)
	}
	return nil
}

// CountRemaining counts recipients still in a non-terminal state
func (r *CampaignRecipientRepositoryImpl) CountRemaining(ctx context.Context, campaignID uint) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.CampaignRecipient{}).
		Where("campaign_id = ?", campaignID).
		Where("status IN ?", []models.RecipientStatus{
			models.RecipientStatusPending,
			models.RecipientStatusClaimed,
			models.RecipientStatusInProgress,
		}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count remaining recipients: %w", err)
	}
	return count, nil
}

func (r *CampaignRecipientRepositoryImpl) applyFilter(db *gorm.DB, f models.CampaignRecipientFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.ContactID != nil {
		db = db.Where("contact_id = ?", *f.ContactID)
	}
	if f.AssignedAccountID != nil {
		db = db.Where("assigned_account_id = ?", *f.AssignedAccountID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.DueBefore != nil {
		db = db.Where("next_process_at IS NULL OR next_process_at <= ?", *f.DueBefore)
	}
	return db
}

// ByFilter retrieves recipients based on filter criteria
func (r *CampaignRecipientRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignRecipientFilter, orderBy string, limit, offset int) ([]*models.CampaignRecipient, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CampaignRecipient{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.CampaignRecipient
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of recipients matching the filter
func (r *CampaignRecipientRepositoryImpl) Count(ctx context.Context, filter models.CampaignRecipientFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CampaignRecipient{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any recipient matching the filter exists
func (r *CampaignRecipientRepositoryImpl) Exists(ctx context.Context, filter models.CampaignRecipientFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
