package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/outreachly/outreachly-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyCountReadNeverCreatesRow(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)
	data := seedRecipientTest(t, fixtures)
	repo := NewDailyCountRepository(testDB.DB)
	ctx := context.Background()

	count, err := repo.DailyCount(ctx, data.account.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, count)

	var rows int64
	require.NoError(t, testDB.DB.Model(&models.AccountDailyMessageCount{}).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestIncrementDailyCountUpserts(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)
	data := seedRecipientTest(t, fixtures)
	repo := NewDailyCountRepository(testDB.DB)
	ctx := context.Background()

	day := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	// Different clock times on the same UTC day hit the same ledger row
	require.NoError(t, repo.IncrementDailyCount(ctx, data.account.ID, day))
	require.NoError(t, repo.IncrementDailyCount(ctx, data.account.ID, day.Add(5*time.Hour)))
	require.NoError(t, repo.IncrementDailyCount(ctx, data.account.ID, day.Add(14*time.Hour)))

	count, err := repo.DailyCount(ctx, data.account.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	var rows int64
	require.NoError(t, testDB.DB.Model(&models.AccountDailyMessageCount{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	// The next day starts a fresh row
	nextDay := day.AddDate(0, 0, 1)
	require.NoError(t, repo.IncrementDailyCount(ctx, data.account.ID, nextDay))

	count, err = repo.DailyCount(ctx, data.account.ID, nextDay)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repo.DailyCount(ctx, data.account.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestIncrementDailyCountConcurrent(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)
	data := seedRecipientTest(t, fixtures)
	repo := NewDailyCountRepository(testDB.DB)
	ctx := context.Background()

	day := time.Now().UTC()
	const writers = 20

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.IncrementDailyCount(ctx, data.account.ID, day)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// The single-statement upsert loses no increments under contention
	count, err := repo.DailyCount(ctx, data.account.ID, day)
	require.NoError(t, err)
	assert.Equal(t, writers, count)
}
