package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/outreachly/outreachly-backend/app/dto"
	"github.com/outreachly/outreachly-backend/app/scheduler"
	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/repository"
	"github.com/outreachly/outreachly-backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cfAccountRepo struct {
	repository.SenderAccountRepository
	accounts map[uint]*models.SenderAccount
}

func (f *cfAccountRepo) ByID(ctx context.Context, id uint) (*models.SenderAccount, error) {
	return f.accounts[id], nil
}

type cfLinkRepo struct {
	repository.CampaignAccountRepository
	links []*models.CampaignAccount
}

func (f *cfLinkRepo) ListByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignAccount, error) {
	return f.links, nil
}

type cfContactRepo struct {
	repository.ContactRepository
	contacts map[uint]*models.Contact
}

func (f *cfContactRepo) ByID(ctx context.Context, id uint) (*models.Contact, error) {
	return f.contacts[id], nil
}

type cfDailyCountRepo struct {
	repository.DailyCountRepository
	counts  map[uint]int
	queried []uint
}

func (f *cfDailyCountRepo) DailyCount(ctx context.Context, accountID uint, date time.Time) (int, error) {
	f.queried = append(f.queried, accountID)
	return f.counts[accountID], nil
}

type campaignFlowFixture struct {
	flow           *CampaignFlowImpl
	accountRepo    *cfAccountRepo
	linkRepo       *cfLinkRepo
	contactRepo    *cfContactRepo
	dailyCountRepo *cfDailyCountRepo
}

func newCampaignFlowFixture() *campaignFlowFixture {
	f := &campaignFlowFixture{
		accountRepo:    &cfAccountRepo{accounts: make(map[uint]*models.SenderAccount)},
		linkRepo:       &cfLinkRepo{},
		contactRepo:    &cfContactRepo{contacts: make(map[uint]*models.Contact)},
		dailyCountRepo: &cfDailyCountRepo{counts: make(map[uint]int)},
	}
	f.flow = &CampaignFlowImpl{
		accountRepo:    f.accountRepo,
		linkRepo:       f.linkRepo,
		contactRepo:    f.contactRepo,
		dailyCountRepo: f.dailyCountRepo,
		planner:        scheduler.NewSeededSendWindowPlanner(11),
	}
	return f
}

func (f *campaignFlowFixture) addAccount(id uint, workspaceID uint, active bool) {
	f.accountRepo.accounts[id] = &models.SenderAccount{
		ID:          id,
		WorkspaceID: workspaceID,
		IGUserID:    "17841000000001",
		Username:    "sender",
		IsActive:    utils.ToPtr(active),
	}
}

func (f *campaignFlowFixture) addContact(id uint, workspaceID uint) {
	f.contactRepo.contacts[id] = &models.Contact{
		ID:          id,
		WorkspaceID: workspaceID,
		IGUserID:    "17842000000001",
	}
}

func (f *campaignFlowFixture) linkAccounts(campaignID uint, accountIDs ...uint) {
	for _, accountID := range accountIDs {
		f.linkRepo.links = append(f.linkRepo.links, &models.CampaignAccount{
			CampaignID: campaignID,
			AccountID:  accountID,
		})
	}
}

func flowTestCampaign() *models.Campaign {
	return &models.Campaign{
		ID:             1,
		WorkspaceID:    42,
		Name:           "Launch outreach",
		Status:         models.CampaignStatusDraft,
		WindowStart:    "09:00",
		WindowEnd:      "17:00",
		Timezone:       "UTC",
		MessagesPerDay: 50,
	}
}

func TestStartableAccountsFiltersInactive(t *testing.T) {
	f := newCampaignFlowFixture()
	f.addAccount(10, 42, true)
	f.addAccount(11, 42, false)
	f.addAccount(12, 42, true)
	f.linkAccounts(1, 10, 11, 12)

	active, err := f.flow.startableAccounts(context.Background(), flowTestCampaign())
	require.NoError(t, err)
	assert.Equal(t, []uint{10, 12}, active)
}

func TestStartableAccountsLegacyFallback(t *testing.T) {
	f := newCampaignFlowFixture()
	f.addAccount(77, 42, true)

	campaign := flowTestCampaign()
	campaign.LegacySenderAccountID = utils.ToPtr(uint(77))

	active, err := f.flow.startableAccounts(context.Background(), campaign)
	require.NoError(t, err)
	assert.Equal(t, []uint{77}, active)
}

func TestStartableAccountsJunctionWinsOverLegacy(t *testing.T) {
	f := newCampaignFlowFixture()
	f.addAccount(10, 42, true)
	f.addAccount(77, 42, true)
	f.linkAccounts(1, 10)

	campaign := flowTestCampaign()
	campaign.LegacySenderAccountID = utils.ToPtr(uint(77))

	active, err := f.flow.startableAccounts(context.Background(), campaign)
	require.NoError(t, err)
	assert.Equal(t, []uint{10}, active)
}

func TestStartableAccountsNoneActive(t *testing.T) {
	f := newCampaignFlowFixture()
	f.addAccount(10, 42, false)
	f.linkAccounts(1, 10)

	_, err := f.flow.startableAccounts(context.Background(), flowTestCampaign())
	require.Error(t, err)
	assert.True(t, IsAccountsRequired(err))
}

func TestVerifyContactsDedupesPreservingOrder(t *testing.T) {
	f := newCampaignFlowFixture()
	f.addContact(5, 42)
	f.addContact(6, 42)
	f.addContact(7, 42)

	out, err := f.flow.verifyContacts(context.Background(), 42, []uint{6, 5, 6, 7, 5})
	require.NoError(t, err)
	assert.Equal(t, []uint{6, 5, 7}, out)
}

func TestVerifyContactsRejectsForeignWorkspace(t *testing.T) {
	f := newCampaignFlowFixture()
	f.addContact(5, 42)
	f.addContact(6, 99)

	_, err := f.flow.verifyContacts(context.Background(), 42, []uint{5, 6})
	require.Error(t, err)
	assert.True(t, IsContactNotFound(err))
}

func TestVerifyContactsRejectsUnknown(t *testing.T) {
	f := newCampaignFlowFixture()

	_, err := f.flow.verifyContacts(context.Background(), 42, []uint{5})
	require.Error(t, err)
	assert.True(t, IsContactNotFound(err))
}

func TestBuildRecipientsRoundRobin(t *testing.T) {
	f := newCampaignFlowFixture()
	campaign := flowTestCampaign()

	accountIDs := []uint{10, 11}
	contactIDs := []uint{1, 2, 3, 4, 5}

	recipients, firstProcessAt, err := f.flow.buildRecipients(context.Background(), campaign, accountIDs, contactIDs)
	require.NoError(t, err)
	require.Len(t, recipients, 5)
	require.NotNil(t, firstProcessAt)

	byAccount := make(map[uint][]uint)
	for _, r := range recipients {
		assert.Equal(t, campaign.ID, r.CampaignID)
		assert.Equal(t, models.RecipientStatusPending, r.Status)
		assert.Equal(t, 0, r.CurrentStepOrder)
		require.NotNil(t, r.NextProcessAt, "recipient %d has no gate time", r.ContactID)
		byAccount[r.AssignedAccountID] = append(byAccount[r.AssignedAccountID], r.ContactID)
	}

	// Contacts alternate across the two accounts in request order
	assert.Equal(t, []uint{1, 3, 5}, byAccount[10])
	assert.Equal(t, []uint{2, 4}, byAccount[11])

	// The reported first gate is the earliest of all planned gates
	for _, r := range recipients {
		assert.False(t, r.NextProcessAt.Before(*firstProcessAt))
	}

	// Each account's quota ledger was consulted once
	assert.ElementsMatch(t, []uint{10, 11}, f.dailyCountRepo.queried)
}

func TestBuildRecipientsSingleAccountTakesAll(t *testing.T) {
	f := newCampaignFlowFixture()

	recipients, _, err := f.flow.buildRecipients(context.Background(), flowTestCampaign(), []uint{10}, []uint{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, recipients, 3)
	for _, r := range recipients {
		assert.Equal(t, uint(10), r.AssignedAccountID)
	}
}

func TestValidateSteps(t *testing.T) {
	valid := []dto.CampaignStepDTO{
		{StepOrder: 1, ContentMode: string(models.StepContentFixed), Template: "Hey {{name}}"},
		{StepOrder: 2, ContentMode: string(models.StepContentVariants), Variants: []string{"Hi", "Hello"}},
	}
	assert.NoError(t, validateSteps(valid))

	tests := []struct {
		name  string
		steps []dto.CampaignStepDTO
		want  error
	}{
		{
			name:  "no steps",
			steps: nil,
			want:  ErrStepsRequired,
		},
		{
			name: "duplicate order",
			steps: []dto.CampaignStepDTO{
				{StepOrder: 1, ContentMode: string(models.StepContentFixed), Template: "a"},
				{StepOrder: 1, ContentMode: string(models.StepContentFixed), Template: "b"},
			},
			want: ErrStepOrderNotContiguous,
		},
		{
			name: "order gap",
			steps: []dto.CampaignStepDTO{
				{StepOrder: 1, ContentMode: string(models.StepContentFixed), Template: "a"},
				{StepOrder: 3, ContentMode: string(models.StepContentFixed), Template: "b"},
			},
			want: ErrStepOrderNotContiguous,
		},
		{
			name: "fixed step without template",
			steps: []dto.CampaignStepDTO{
				{StepOrder: 1, ContentMode: string(models.StepContentFixed)},
			},
			want: ErrStepContentRequired,
		},
		{
			name: "variants step without variants",
			steps: []dto.CampaignStepDTO{
				{StepOrder: 1, ContentMode: string(models.StepContentVariants)},
			},
			want: ErrStepContentRequired,
		},
		{
			name: "empty variant",
			steps: []dto.CampaignStepDTO{
				{StepOrder: 1, ContentMode: string(models.StepContentVariants), Variants: []string{"Hi", ""}},
			},
			want: ErrStepContentRequired,
		},
		{
			name: "unknown content mode",
			steps: []dto.CampaignStepDTO{
				{StepOrder: 1, ContentMode: "freestyle", Template: "a"},
			},
			want: ErrStepContentRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSteps(tt.steps)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNormalizePagination(t *testing.T) {
	page, pageSize, err := normalizePagination(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, pageSize)

	page, pageSize, err = normalizePagination(3, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, pageSize)

	_, _, err = normalizePagination(-1, 10)
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, _, err = normalizePagination(1, 101)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}
