package repository

import (
	"context"
	"testing"
	"time"

	"github.com/outreachly/outreachly-backend/models"
	apptesting "github.com/outreachly/outreachly-backend/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRepoTest provisions a throwaway Postgres database and skips the test
// when no TEST_DB server is reachable
func setupRepoTest(t *testing.T) (*apptesting.TestDB, *apptesting.TestFixtures) {
	t.Helper()

	testDB, err := apptesting.SetupTestDB()
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testDB.TeardownTestDB(); err != nil {
			t.Logf("test database teardown: %v", err)
		}
	})

	return testDB, apptesting.NewTestFixtures(testDB)
}

type recipientTestData struct {
	campaign *models.Campaign
	contact  *models.Contact
	account  *models.SenderAccount
}

func seedRecipientTest(t *testing.T, fixtures *apptesting.TestFixtures) *recipientTestData {
	t.Helper()

	workspace, err := fixtures.CreateTestWorkspace()
	require.NoError(t, err)
	account, err := fixtures.CreateTestSenderAccount(workspace.ID, []byte("sealed"))
	require.NoError(t, err)
	contact, err := fixtures.CreateTestContact(workspace.ID)
	require.NoError(t, err)
	campaign, err := fixtures.CreateTestCampaign(workspace.ID)
	require.NoError(t, err)

	return &recipientTestData{campaign: campaign, contact: contact, account: account}
}

func TestClaimWinsOnlyOnce(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)
	data := seedRecipientTest(t, fixtures)
	repo := NewCampaignRecipientRepository(testDB.DB)
	ctx := context.Background()

	rec, err := fixtures.CreateTestRecipient(data.campaign.ID, data.contact.ID, data.account.ID)
	require.NoError(t, err)

	now := time.Now().UTC()

	claimed, err := repo.Claim(ctx, rec.ID, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	// The row is already claimed; a second caller loses
	claimed, err = repo.Claim(ctx, rec.ID, now)
	require.NoError(t, err)
	assert.False(t, claimed)

	stored, err := repo.ByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecipientStatusClaimed, stored.Status)

	// Releasing back to pending makes the row claimable again
	require.NoError(t, repo.Release(ctx, rec.ID, models.RecipientStatusPending))
	claimed, err = repo.Claim(ctx, rec.ID, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	// A terminal row never claims
	require.NoError(t, repo.Release(ctx, rec.ID, models.RecipientStatusFailed))
	claimed, err = repo.Claim(ctx, rec.ID, now)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestClaimHonorsGateTime(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)
	data := seedRecipientTest(t, fixtures)
	repo := NewCampaignRecipientRepository(testDB.DB)
	ctx := context.Background()

	rec, err := fixtures.CreateTestRecipient(data.campaign.ID, data.contact.ID, data.account.ID)
	require.NoError(t, err)

	now := time.Now().UTC()
	gate := now.Add(time.Hour)
	require.NoError(t, testDB.DB.Model(&models.CampaignRecipient{}).
		Where("id = ?", rec.ID).
		Update("next_process_at", gate).Error)

	claimed, err := repo.Claim(ctx, rec.ID, now)
	require.NoError(t, err)
	assert.False(t, claimed, "claimed a recipient whose gate is in the future")

	claimed, err = repo.Claim(ctx, rec.ID, gate.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestListDueFiltersAndOrders(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)
	data := seedRecipientTest(t, fixtures)
	repo := NewCampaignRecipientRepository(testDB.DB)
	ctx := context.Background()

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	otherAccount, err := fixtures.CreateTestSenderAccount(data.campaign.WorkspaceID, []byte("sealed"))
	require.NoError(t, err)

	newContact := func() *models.Contact {
		c, err := fixtures.CreateTestContact(data.campaign.WorkspaceID)
		require.NoError(t, err)
		return c
	}
	setRecipient := func(id uint, status models.RecipientStatus, gate *time.Time) {
		require.NoError(t, testDB.DB.Model(&models.CampaignRecipient{}).
			Where("id = ?", id).
			Updates(map[string]any{"status": status, "next_process_at": gate}).Error)
	}

	pendingDue, err := fixtures.CreateTestRecipient(data.campaign.ID, data.contact.ID, data.account.ID)
	require.NoError(t, err)
	inProgressDue, err := fixtures.CreateTestRecipient(data.campaign.ID, newContact().ID, data.account.ID)
	require.NoError(t, err)
	setRecipient(inProgressDue.ID, models.RecipientStatusInProgress, &past)
	gated, err := fixtures.CreateTestRecipient(data.campaign.ID, newContact().ID, data.account.ID)
	require.NoError(t, err)
	setRecipient(gated.ID, models.RecipientStatusPending, &future)
	failed, err := fixtures.CreateTestRecipient(data.campaign.ID, newContact().ID, data.account.ID)
	require.NoError(t, err)
	setRecipient(failed.ID, models.RecipientStatusFailed, nil)
	_, err = fixtures.CreateTestRecipient(data.campaign.ID, newContact().ID, otherAccount.ID)
	require.NoError(t, err)

	due, err := repo.ListDue(ctx, data.campaign.ID, data.account.ID, now, 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, pendingDue.ID, due[0].ID)
	assert.Equal(t, inProgressDue.ID, due[1].ID)

	limited, err := repo.ListDue(ctx, data.campaign.ID, data.account.ID, now, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, pendingDue.ID, limited[0].ID)

	// Non-terminal rows for the whole campaign: the failed one drops out
	remaining, err := repo.CountRemaining(ctx, data.campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), remaining)
}
