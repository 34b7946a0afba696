package repository

import (
	"context"

	"github.com/outreachly/outreachly-backend/models"
	"gorm.io/gorm"
)

// CampaignStepRepositoryImpl implements CampaignStepRepository
type CampaignStepRepositoryImpl struct {
	*BaseRepository[models.CampaignStep, models.CampaignStepFilter]
}

// NewCampaignStepRepository creates a new campaign step repository
func NewCampaignStepRepository(db *gorm.DB) CampaignStepRepository {
	return &CampaignStepRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignStep, models.CampaignStepFilter](db),
	}
}

// ListByCampaign returns the campaign's steps in sequence order
func (r *CampaignStepRepositoryImpl) ListByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignStep, error) {
	return r.ByFilter(ctx, models.CampaignStepFilter{CampaignID: &campaignID}, "step_order ASC", 0, 0)
}

// ByCampaignAndOrder returns the single step at the given sequence position, or nil
func (r *CampaignStepRepositoryImpl) ByCampaignAndOrder(ctx context.Context, campaignID uint, stepOrder int) (*models.CampaignStep, error) {
	rows, err := r.ByFilter(ctx, models.CampaignStepFilter{CampaignID: &campaignID, StepOrder: &stepOrder}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *CampaignStepRepositoryImpl) applyFilter(db *gorm.DB, f models.CampaignStepFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.StepOrder != nil {
		db = db.Where("step_order = ?", *f.StepOrder)
	}
	return db
}

// ByFilter retrieves steps based on filter criteria
func (r *CampaignStepRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignStepFilter, orderBy string, limit, offset int) ([]*models.CampaignStep, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CampaignStep{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.CampaignStep
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of steps matching the filter
func (r *CampaignStepRepositoryImpl) Count(ctx context.Context, filter models.CampaignStepFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CampaignStep{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any step matching the filter exists
func (r *CampaignStepRepositoryImpl) Exists(ctx context.Context, filter models.CampaignStepFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
