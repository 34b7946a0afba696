package scheduler

import (
	"context"
	"log"
	"strconv"
	"testing"
	"time"

	"github.com/outreachly/outreachly-backend/app/services"
	"github.com/outreachly/outreachly-backend/config"
	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory fakes. Each embeds its interface so only the methods the runner
// touches need implementations; anything else panics loudly.

type fakeCampaignRepo struct {
	repository.CampaignRepository
	campaign    *models.Campaign
	sentDelta   int
	failedDelta int
}

func (f *fakeCampaignRepo) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	if f.campaign != nil && f.campaign.ID == id {
		return f.campaign, nil
	}
	return nil, nil
}

func (f *fakeCampaignRepo) UpdateStatus(ctx context.Context, campaignID uint, status models.CampaignStatus, completedAt *time.Time) error {
	f.campaign.Status = status
	f.campaign.CompletedAt = completedAt
	return nil
}

func (f *fakeCampaignRepo) IncrementCounters(ctx context.Context, campaignID uint, sentDelta, failedDelta int) error {
	f.sentDelta += sentDelta
	f.failedDelta += failedDelta
	return nil
}

func (f *fakeCampaignRepo) ListByStatus(ctx context.Context, status models.CampaignStatus, limit, offset int) ([]*models.Campaign, error) {
	if f.campaign != nil && f.campaign.Status == status {
		return []*models.Campaign{f.campaign}, nil
	}
	return nil, nil
}

type fakeStepRepo struct {
	repository.CampaignStepRepository
	steps []*models.CampaignStep
}

func (f *fakeStepRepo) ListByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignStep, error) {
	return f.steps, nil
}

type fakeAccountRepo struct {
	repository.SenderAccountRepository
	deactivated []uint
}

func (f *fakeAccountRepo) Deactivate(ctx context.Context, accountID uint) error {
	f.deactivated = append(f.deactivated, accountID)
	return nil
}

type fakeLinkRepo struct {
	repository.CampaignAccountRepository
	links []*models.CampaignAccount
}

func (f *fakeLinkRepo) ListByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignAccount, error) {
	return f.links, nil
}

type fakeRecipientRepo struct {
	repository.CampaignRecipientRepository
	recipients []*models.CampaignRecipient

	// claimDenied simulates another invocation owning the recipient
	claimDenied map[uint]bool
}

func (f *fakeRecipientRepo) ListDue(ctx context.Context, campaignID, accountID uint, now time.Time, limit int) ([]*models.CampaignRecipient, error) {
	var due []*models.CampaignRecipient
	for _, rec := range f.recipients {
		if rec.CampaignID != campaignID || rec.AssignedAccountID != accountID {
			continue
		}
		if rec.Status != models.RecipientStatusPending && rec.Status != models.RecipientStatusInProgress {
			continue
		}
		if rec.NextProcessAt != nil && rec.NextProcessAt.After(now) {
			continue
		}
		due = append(due, rec)
		if limit > 0 && len(due) >= limit {
			break
		}
	}
	return due, nil
}

func (f *fakeRecipientRepo) Claim(ctx context.Context, recipientID uint, now time.Time) (bool, error) {
	if f.claimDenied[recipientID] {
		return false, nil
	}
	for _, rec := range f.recipients {
		if rec.ID == recipientID {
			rec.Status = models.RecipientStatusClaimed
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRecipientRepo) Release(ctx context.Context, recipientID uint, status models.RecipientStatus) error {
	for _, rec := range f.recipients {
		if rec.ID == recipientID {
			rec.Status = status
		}
	}
	return nil
}

func (f *fakeRecipientRepo) Update(ctx context.Context, recipient *models.CampaignRecipient) error {
	return nil
}

func (f *fakeRecipientRepo) CountRemaining(ctx context.Context, campaignID uint) (int64, error) {
	var remaining int64
	for _, rec := range f.recipients {
		if rec.CampaignID == campaignID && !rec.Status.IsTerminal() {
			remaining++
		}
	}
	return remaining, nil
}

type fakeDailyCountRepo struct {
	counts map[string]int
}

func newFakeDailyCountRepo() *fakeDailyCountRepo {
	return &fakeDailyCountRepo{counts: make(map[string]int)}
}

func (f *fakeDailyCountRepo) key(accountID uint, date time.Time) string {
	return date.UTC().Format("2006-01-02") + "/" + strconv.FormatUint(uint64(accountID), 10)
}

func (f *fakeDailyCountRepo) DailyCount(ctx context.Context, accountID uint, date time.Time) (int, error) {
	return f.counts[f.key(accountID, date)], nil
}

func (f *fakeDailyCountRepo) IncrementDailyCount(ctx context.Context, accountID uint, date time.Time) error {
	f.counts[f.key(accountID, date)]++
	return nil
}

type fakeContactRepo struct {
	repository.ContactRepository
	contacts map[uint]*models.Contact
}

func (f *fakeContactRepo) ByID(ctx context.Context, id uint) (*models.Contact, error) {
	return f.contacts[id], nil
}

type fakeConversationRepo struct {
	repository.ConversationRepository
	touched int
}

func (f *fakeConversationRepo) GetOrCreate(ctx context.Context, accountID, contactID uint) (*models.Conversation, error) {
	return &models.Conversation{ID: accountID*1000 + contactID, AccountID: accountID, ContactID: contactID}, nil
}

func (f *fakeConversationRepo) TouchLastMessage(ctx context.Context, conversationID uint, at time.Time) error {
	f.touched++
	return nil
}

type fakeMessageRepo struct {
	repository.MessageRepository
	saved []*models.Message
}

func (f *fakeMessageRepo) Save(ctx context.Context, msg *models.Message) error {
	f.saved = append(f.saved, msg)
	return nil
}

type fakeSessionService struct {
	sessions map[uint]*services.Session
}

func (f *fakeSessionService) SessionForAccount(ctx context.Context, accountID uint) (*services.Session, error) {
	return f.sessions[accountID], nil
}

type deniedRunLock struct{}

func (deniedRunLock) Acquire(ctx context.Context, campaignID uint) (bool, func(), error) {
	return false, func() {}, nil
}

// runnerFixture bundles the runner with its fakes for assertions
type runnerFixture struct {
	runner        *CampaignRunner
	campaignRepo  *fakeCampaignRepo
	accountRepo   *fakeAccountRepo
	recipientRepo *fakeRecipientRepo
	dailyCounts   *fakeDailyCountRepo
	conversations *fakeConversationRepo
	messages      *fakeMessageRepo
	messenger     *services.MockMessenger
	now           time.Time
}

type fixtureOptions struct {
	campaign   *models.Campaign
	steps      []*models.CampaignStep
	accounts   []uint
	recipients []*models.CampaignRecipient
	contacts   map[uint]*models.Contact
	noSessions bool
	lock       RunLock
}

func newRunnerFixture(t *testing.T, opts fixtureOptions) *runnerFixture {
	t.Helper()

	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	campaignRepo := &fakeCampaignRepo{campaign: opts.campaign}
	stepRepo := &fakeStepRepo{steps: opts.steps}
	accountRepo := &fakeAccountRepo{}

	linkRepo := &fakeLinkRepo{}
	for _, accountID := range opts.accounts {
		linkRepo.links = append(linkRepo.links, &models.CampaignAccount{
			CampaignID: opts.campaign.ID,
			AccountID:  accountID,
		})
	}

	recipientRepo := &fakeRecipientRepo{recipients: opts.recipients, claimDenied: make(map[uint]bool)}
	dailyCounts := newFakeDailyCountRepo()
	contactRepo := &fakeContactRepo{contacts: opts.contacts}
	conversationRepo := &fakeConversationRepo{}
	messageRepo := &fakeMessageRepo{}

	sessions := &fakeSessionService{sessions: make(map[uint]*services.Session)}
	if !opts.noSessions {
		for _, accountID := range opts.accounts {
			sessions.sessions[accountID] = &services.Session{
				AccountID:   accountID,
				IGUserID:    "ig-sender",
				Username:    "sender",
				AccessToken: "token",
			}
		}
		if opts.campaign.LegacySenderAccountID != nil {
			id := *opts.campaign.LegacySenderAccountID
			sessions.sessions[id] = &services.Session{AccountID: id, AccessToken: "token"}
		}
	}

	messenger := services.NewMockMessenger()

	cfg := config.SchedulerConfig{
		SendTimeout:    5 * time.Second,
		InterSendDelay: time.Millisecond,
	}

	runner := NewCampaignRunner(
		campaignRepo, stepRepo, accountRepo, linkRepo, recipientRepo,
		dailyCounts, contactRepo, conversationRepo, messageRepo,
		sessions, messenger, opts.lock, cfg, log.Default(),
	)
	runner.now = func() time.Time { return now }
	runner.sleep = func(ctx context.Context, d time.Duration) {}

	return &runnerFixture{
		runner:        runner,
		campaignRepo:  campaignRepo,
		accountRepo:   accountRepo,
		recipientRepo: recipientRepo,
		dailyCounts:   dailyCounts,
		conversations: conversationRepo,
		messages:      messageRepo,
		messenger:     messenger,
		now:           now,
	}
}

func runningCampaign(perDay int) *models.Campaign {
	return &models.Campaign{
		ID:             1,
		WorkspaceID:    1,
		Name:           "Spring outreach",
		Status:         models.CampaignStatusRunning,
		WindowStart:    "09:00",
		WindowEnd:      "17:00",
		Timezone:       "UTC",
		MessagesPerDay: perDay,
	}
}

func fixedStep(order int, template string, delayMinutes int) *models.CampaignStep {
	return &models.CampaignStep{
		ID:           uint(order),
		CampaignID:   1,
		StepOrder:    order,
		ContentMode:  models.StepContentFixed,
		Template:     template,
		DelayMinutes: delayMinutes,
	}
}

func pendingRecipient(id, contactID, accountID uint) *models.CampaignRecipient {
	return &models.CampaignRecipient{
		ID:                id,
		CampaignID:        1,
		ContactID:         contactID,
		AssignedAccountID: accountID,
		Status:            models.RecipientStatusPending,
	}
}

func testContacts(igUserIDs ...string) map[uint]*models.Contact {
	contacts := make(map[uint]*models.Contact, len(igUserIDs))
	for i, igUserID := range igUserIDs {
		id := uint(i + 1)
		name := "Contact"
		contacts[id] = &models.Contact{ID: id, WorkspaceID: 1, IGUserID: igUserID, Name: &name}
	}
	return contacts
}

func TestProcessCampaignSendsFirstStep(t *testing.T) {
	fx := newRunnerFixture(t, fixtureOptions{
		campaign: runningCampaign(50),
		steps: []*models.CampaignStep{
			fixedStep(1, "Hey {{name}}", 0),
			fixedStep(2, "Following up", 60),
		},
		accounts: []uint{10},
		recipients: []*models.CampaignRecipient{
			pendingRecipient(1, 1, 10),
			pendingRecipient(2, 2, 10),
		},
		contacts: testContacts("ig-a", "ig-b"),
	})

	summary, err := fx.runner.ProcessCampaign(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Sent)
	assert.Zero(t, summary.Failed)
	assert.False(t, summary.CampaignCompleted)

	require.Len(t, fx.messenger.SentMessages, 2)
	assert.Equal(t, "ig-a", fx.messenger.SentMessages[0].RecipientIGUserID)
	assert.Equal(t, "Hey Contact", fx.messenger.SentMessages[0].Text)

	for _, rec := range fx.recipientRepo.recipients {
		assert.Equal(t, models.RecipientStatusInProgress, rec.Status)
		assert.Equal(t, 1, rec.CurrentStepOrder)
		require.NotNil(t, rec.NextProcessAt) // gated on the next drip step
		assert.Nil(t, rec.ErrorMessage)
	}

	count, err := fx.dailyCounts.DailyCount(context.Background(), 10, fx.now)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, fx.campaignRepo.sentDelta)
	assert.Len(t, fx.messages.saved, 2)
	assert.Equal(t, 2, fx.conversations.touched)
}

func TestProcessCampaignFinalStepCompletesInOnePass(t *testing.T) {
	fx := newRunnerFixture(t, fixtureOptions{
		campaign: runningCampaign(10),
		steps:    []*models.CampaignStep{fixedStep(1, "Hey {{name}}", 0)},
		accounts: []uint{10},
		recipients: []*models.CampaignRecipient{
			pendingRecipient(1, 1, 10),
			pendingRecipient(2, 2, 10),
			pendingRecipient(3, 3, 10),
		},
		contacts: testContacts("ig-a", "ig-b", "ig-c"),
	})

	summary, err := fx.runner.ProcessCampaign(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Sent)
	assert.Zero(t, summary.Failed)
	assert.True(t, summary.CampaignCompleted)

	// One invocation drains a single-step campaign: every recipient is
	// terminal after its only send, no second pass needed.
	for _, rec := range fx.recipientRepo.recipients {
		assert.Equal(t, models.RecipientStatusCompleted, rec.Status)
		assert.Equal(t, 1, rec.CurrentStepOrder)
		assert.Nil(t, rec.NextProcessAt)
	}

	assert.Equal(t, models.CampaignStatusCompleted, fx.campaignRepo.campaign.Status)
	require.NotNil(t, fx.campaignRepo.campaign.CompletedAt)
	assert.Len(t, fx.messenger.SentMessages, 3)
}

func TestProcessCampaignSetsDripGate(t *testing.T) {
	fx := newRunnerFixture(t, fixtureOptions{
		campaign: runningCampaign(50),
		steps: []*models.CampaignStep{
			fixedStep(1, "first", 0),
			fixedStep(2, "second", 30),
		},
		accounts:   []uint{10},
		recipients: []*models.CampaignRecipient{pendingRecipient(1, 1, 10)},
		contacts:   testContacts("ig-a"),
	})

	summary, err := fx.runner.ProcessCampaign(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)

	rec := fx.recipientRepo.recipients[0]
	assert.Equal(t, 1, rec.CurrentStepOrder)
	require.NotNil(t, rec.NextProcessAt)
	assert.Equal(t, fx.now.Add(30*time.Minute), *rec.NextProcessAt)
}

func TestProcessCampaignCompletesExhaustedRecipients(t *testing.T) {
	rec := pendingRecipient(1, 1, 10)
	rec.Status = models.RecipientStatusInProgress
	rec.CurrentStepOrder = 1 // already past the only step

	fx := newRunnerFixture(t, fixtureOptions{
		campaign:   runningCampaign(50),
		steps:      []*models.CampaignStep{fixedStep(1, "only", 0)},
		accounts:   []uint{10},
		recipients: []*models.CampaignRecipient{rec},
		contacts:   testContacts("ig-a"),
	})

	summary, err := fx.runner.ProcessCampaign(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Completed)
	assert.Zero(t, summary.Sent)
	assert.True(t, summary.CampaignCompleted)
	assert.Equal(t, models.RecipientStatusCompleted, rec.Status)
	assert.Equal(t, models.CampaignStatusCompleted, fx.campaignRepo.campaign.Status)
	require.NotNil(t, fx.campaignRepo.campaign.CompletedAt)
	assert.Empty(t, fx.messenger.SentMessages) // completion consumes no quota

	count, err := fx.dailyCounts.DailyCount(context.Background(), 10, fx.now)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestProcessCampaignStopsAtDailyQuota(t *testing.T) {
	fx := newRunnerFixture(t, fixtureOptions{
		campaign: runningCampaign(1),
		steps:    []*models.CampaignStep{fixedStep(1, "hello", 0)},
		accounts: []uint{10},
		recipients: []*models.CampaignRecipient{
			pendingRecipient(1, 1, 10),
			pendingRecipient(2, 2, 10),
			pendingRecipient(3, 3, 10),
		},
		contacts: testContacts("ig-a", "ig-b", "ig-c"),
	})

	summary, err := fx.runner.ProcessCampaign(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Sent)
	assert.Len(t, fx.messenger.SentMessages, 1)

	// The unsent recipients are untouched and stay eligible
	assert.Equal(t, models.RecipientStatusPending, fx.recipientRepo.recipients[1].Status)
	assert.Equal(t, models.RecipientStatusPending, fx.recipientRepo.recipients[2].Status)
}

func TestProcessCampaignQuotaExhaustedBeforeStart(t *testing.T) {
	fx := newRunnerFixture(t, fixtureOptions{
		campaign:   runningCampaign(5),
		steps:      []*models.CampaignStep{fixedStep(1, "hello", 0)},
		accounts:   []uint{10},
		recipients: []*models.CampaignRecipient{pendingRecipient(1, 1, 10)},
		contacts:   testContacts("ig-a"),
	})
	for i := 0; i < 5; i++ {
		require.NoError(t, fx.dailyCounts.IncrementDailyCount(context.Background(), 10, fx.now))
	}

	summary, err := fx.runner.ProcessCampaign(context.Background(), 1)
	require.NoError(t, err)

	assert.Zero(t, summary.Sent)
	assert.Equal(t, 1, summary.SkippedAccounts)
	assert.Empty(t, fx.messenger.SentMessages)
}

func TestProcessCampaignTransportFailureIsTerminal(t *testing.T) {
	fx := newRunnerFixture(t, fixtureOptions{
		campaign: runningCampaign(50),
		steps:    []*models.CampaignStep{fixedStep(1, "hello", 0)},
		accounts: []uint{10},
		recipients: []*models.CampaignRecipient{
			pendingRecipient(1, 1, 10),
			pendingRecipient(2, 2, 10),
		},
		contacts: testContacts("ig-a", "ig-b"),
	})
	fx.messenger.FailFor["ig-a"] = &services.SendError{Code: services.SendErrorCodeTransport, Reason: "connection reset"}

	summary, err := fx.runner.ProcessCampaign(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Sent)

	failed := fx.recipientRepo.recipients[0]
	assert.Equal(t, models.RecipientStatusFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Contains(t, *failed.ErrorMessage, "transport")

	// A non-auth failure does not take the account down
	assert.Empty(t, fx.accountRepo.deactivated)
	assert.Equal(t, 1, fx.campaignRepo.failedDelta)
	assert.Equal(t, 1, fx.campaignRepo.sentDelta)
}

func TestProcessCampaignAuthFailureDeactivatesAccount(t *testing.T) {
	fx := newRunnerFixture(t, fixtureOptions{
		campaign: runningCampaign(50),
		steps:    []*models.CampaignStep{fixedStep(1, "hello", 0)},
		accounts: []uint{10},
		recipients: []*models.CampaignRecipient{
			pendingRecipient(1, 1, 10),
			pendingRecipient(2, 2, 10),
		},
		contacts: testContacts("ig-a", "ig-b"),
	})
	fx.messenger.FailFor["ig-a"] = &services.SendError{Code: services.SendErrorCodeAuth, Reason: "session expired"}

	summary, err := fx.runner.ProcessCampaign(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.Sent)
	assert.Equal(t, []uint{10}, fx.accountRepo.deactivated)

	// The account stopped immediately; the second recipient was never claimed
	assert.Equal(t, models.RecipientStatusPending, fx.recipientRepo.recipients[1].Status)
}

func TestProcessCampaignSkipsWhenLocked(t *testing.T) {
	fx := newRunnerFixture(t, fixtureOptions{
		campaign:   runningCampaign(50),
		steps:      []*models.CampaignStep{fixedStep(1, "hello", 0)},
		accounts:   []uint{10},
		recipients: []*models.CampaignRecipient{pendingRecipient(1, 1, 10)},
		contacts:   testContacts("ig-a"),
		lock:       deniedRunLock{},
	})

	summary, err := fx.runner.ProcessCampaign(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, summary.AlreadyRunning)
	assert.Zero(t, summary.Sent)
	assert.Empty(t, fx.messenger.SentMessages)
}

func TestProcessCampaignClaimContention(t *testing.T) {
	fx := newRunnerFixture(t, fixtureOptions{
		campaign: runningCampaign(50),
		steps:    []*models.CampaignStep{fixedStep(1, "hello", 0)},
		accounts: []uint{10},
		recipients: []*models.CampaignRecipient{
			pendingRecipient(1, 1, 10),
			pendingRecipient(2, 2, 10),
		},
		contacts: testContacts("ig-a", "ig-b"),
	})
	fx.recipientRepo.claimDenied[1] = true

	summary, err := fx.runner.ProcessCampaign(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Sent)
	require.Len(t, fx.messenger.SentMessages, 1)
	assert.Equal(t, "ig-b", fx.messenger.SentMessages[0].RecipientIGUserID)
}

func TestProcessCampaignSkipsAccountWithoutSession(t *testing.T) {
	fx := newRunnerFixture(t, fixtureOptions{
		campaign:   runningCampaign(50),
		steps:      []*models.CampaignStep{fixedStep(1, "hello", 0)},
		accounts:   []uint{10},
		recipients: []*models.CampaignRecipient{pendingRecipient(1, 1, 10)},
		contacts:   testContacts("ig-a"),
		noSessions: true,
	})

	summary, err := fx.runner.ProcessCampaign(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SkippedAccounts)
	assert.Zero(t, summary.Sent)
	assert.Equal(t, models.RecipientStatusPending, fx.recipientRepo.recipients[0].Status)
}

func TestProcessCampaignIgnoresNonRunning(t *testing.T) {
	campaign := runningCampaign(50)
	campaign.Status = models.CampaignStatusDraft

	fx := newRunnerFixture(t, fixtureOptions{
		campaign:   campaign,
		steps:      []*models.CampaignStep{fixedStep(1, "hello", 0)},
		accounts:   []uint{10},
		recipients: []*models.CampaignRecipient{pendingRecipient(1, 1, 10)},
		contacts:   testContacts("ig-a"),
	})

	summary, err := fx.runner.ProcessCampaign(context.Background(), 1)
	require.NoError(t, err)

	assert.Zero(t, summary.Sent)
	assert.Empty(t, fx.messenger.SentMessages)
}

func TestProcessCampaignLegacyAccountFallback(t *testing.T) {
	campaign := runningCampaign(50)
	legacyID := uint(77)
	campaign.LegacySenderAccountID = &legacyID

	fx := newRunnerFixture(t, fixtureOptions{
		campaign:   campaign,
		steps:      []*models.CampaignStep{fixedStep(1, "hello", 0)},
		accounts:   nil, // no junction rows
		recipients: []*models.CampaignRecipient{pendingRecipient(1, 1, 77)},
		contacts:   testContacts("ig-a"),
	})

	summary, err := fx.runner.ProcessCampaign(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Sent)
	require.Len(t, fx.messenger.SentMessages, 1)
	assert.Equal(t, uint(77), fx.messenger.SentMessages[0].AccountID)
}

func TestSweeperRunOnceDrainsRunningCampaigns(t *testing.T) {
	fx := newRunnerFixture(t, fixtureOptions{
		campaign: runningCampaign(50),
		steps:    []*models.CampaignStep{fixedStep(1, "hello", 0)},
		accounts: []uint{10},
		recipients: []*models.CampaignRecipient{
			pendingRecipient(1, 1, 10),
			pendingRecipient(2, 2, 10),
		},
		contacts: testContacts("ig-a", "ig-b"),
	})

	sweeper := NewSweeper(fx.runner, fx.campaignRepo, time.Minute, log.Default())
	sweeper.runOnce(context.Background())

	// The sweep processes campaigns inline, so every effect of the pass is
	// visible as soon as runOnce returns
	assert.Len(t, fx.messenger.SentMessages, 2)
	assert.Equal(t, models.CampaignStatusCompleted, fx.campaignRepo.campaign.Status)
}

func TestProcessCampaignHonorsDripGateNotYetDue(t *testing.T) {
	rec := pendingRecipient(1, 1, 10)
	rec.Status = models.RecipientStatusInProgress
	rec.CurrentStepOrder = 1
	gate := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC) // after the fixture's noon clock
	rec.NextProcessAt = &gate

	fx := newRunnerFixture(t, fixtureOptions{
		campaign: runningCampaign(50),
		steps: []*models.CampaignStep{
			fixedStep(1, "first", 0),
			fixedStep(2, "second", 360),
		},
		accounts:   []uint{10},
		recipients: []*models.CampaignRecipient{rec},
		contacts:   testContacts("ig-a"),
	})

	summary, err := fx.runner.ProcessCampaign(context.Background(), 1)
	require.NoError(t, err)

	assert.Zero(t, summary.Sent)
	assert.False(t, summary.CampaignCompleted)
	assert.Equal(t, models.RecipientStatusInProgress, rec.Status)
	assert.Empty(t, fx.messenger.SentMessages)
}
