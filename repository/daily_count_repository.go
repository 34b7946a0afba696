package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyCountRepositoryImpl implements the DailyCountRepository ledger
type DailyCountRepositoryImpl struct {
	*BaseRepository[models.AccountDailyMessageCount, models.AccountDailyMessageCountFilter]
}

// NewDailyCountRepository creates a new daily quota ledger repository
func NewDailyCountRepository(db *gorm.DB) DailyCountRepository {
	return &DailyCountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AccountDailyMessageCount, models.AccountDailyMessageCountFilter](db),
	}
}

// DailyCount returns the persisted count for the account/date, or zero when
// no row exists. The read never creates a row.
func (r *DailyCountRepositoryImpl) DailyCount(ctx context.Context, accountID uint, date time.Time) (int, error) {
	db := r.getDB(ctx)

	var row models.AccountDailyMessageCount
	err := db.Where("account_id = ? AND date = ?", accountID, utils.UTCDate(date)).Last(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read daily count for account %d: %w", accountID, err)
	}
	return row.MessageCount, nil
}

// IncrementDailyCount creates-or-increments the (account, date) row by one.
// The upsert runs as a single statement so concurrent callers targeting the
// same key cannot lose an increment.
func (r *DailyCountRepositoryImpl) IncrementDailyCount(ctx context.Context, accountID uint, date time.Time) error {
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
	row := models.AccountDailyMessageCount{
		AccountID:    accountID,
		Date:         utils.UTCDate(date),
		MessageCount: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"message_count": gorm.Expr("account_daily_message_counts.message_count + 1"),
			"updated_at":    now,
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to increment daily count for account %d: %w", accountID, err)
	}
	return nil
}
