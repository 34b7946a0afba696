package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/outreachly/outreachly-backend/app/services"
	"github.com/outreachly/outreachly-backend/config"
	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/repository"
	"github.com/outreachly/outreachly-backend/utils"
)

// RecipientOutcome is the explicit result of processing one recipient in one
// run loop invocation
type RecipientOutcome string

const (
	OutcomeSent      RecipientOutcome = "sent"
	OutcomeFailed    RecipientOutcome = "failed"
	OutcomeCompleted RecipientOutcome = "completed"
	OutcomeSkipped   RecipientOutcome = "skipped"
)

// RunSummary aggregates the outcomes of one ProcessCampaign invocation
type RunSummary struct {
	CampaignID        uint
	Sent              int
	Failed            int
	Completed         int
	Skipped           int
	SkippedAccounts   int
	CampaignCompleted bool
	AlreadyRunning    bool
}

func (s *RunSummary) record(outcome RecipientOutcome) {
	switch outcome {
	case OutcomeSent:
		s.Sent++
	case OutcomeFailed:
		s.Failed++
	case OutcomeCompleted:
		s.Completed++
	case OutcomeSkipped:
		s.Skipped++
	}
	recipientOutcomes.WithLabelValues(string(outcome)).Inc()
}

// CampaignRunner executes one pull-invoked pass over a running campaign:
// resolve accounts, claim due recipients, send the next drip step, and record
// outcomes. Per-recipient failures never propagate; a failed recipient is
// terminal and the loop moves on.
type CampaignRunner struct {
	campaignRepo     repository.CampaignRepository
	stepRepo         repository.CampaignStepRepository
	accountRepo      repository.SenderAccountRepository
	linkRepo         repository.CampaignAccountRepository
	recipientRepo    repository.CampaignRecipientRepository
	dailyCountRepo   repository.DailyCountRepository
	contactRepo      repository.ContactRepository
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository

	sessions  services.SessionService
	messenger services.Messenger
	lock      RunLock
	renderer  *TemplateRenderer

	cfg    config.SchedulerConfig
	logger *log.Logger

	// Injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewCampaignRunner creates a new campaign runner
func NewCampaignRunner(
	campaignRepo repository.CampaignRepository,
	stepRepo repository.CampaignStepRepository,
	accountRepo repository.SenderAccountRepository,
	linkRepo repository.CampaignAccountRepository,
	recipientRepo repository.CampaignRecipientRepository,
	dailyCountRepo repository.DailyCountRepository,
	contactRepo repository.ContactRepository,
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	sessions services.SessionService,
	messenger services.Messenger,
	lock RunLock,
	cfg config.SchedulerConfig,
	logger *log.Logger,
) *CampaignRunner {
	if lock == nil {
		lock = NoopRunLock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CampaignRunner{
		campaignRepo:     campaignRepo,
		stepRepo:         stepRepo,
		accountRepo:      accountRepo,
		linkRepo:         linkRepo,
		recipientRepo:    recipientRepo,
		dailyCountRepo:   dailyCountRepo,
		contactRepo:      contactRepo,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		sessions:         sessions,
		messenger:        messenger,
		lock:             lock,
		renderer:         NewTemplateRenderer(),
		cfg:              cfg,
		logger:           logger,
		now:              utils.UTCNow,
		sleep:            sleepWithContext,
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// ProcessCampaign runs one pass over the campaign. Safe to invoke repeatedly
// and concurrently: a redis lock serializes whole invocations, and the
// per-recipient claim guarantees no recipient is sent twice even when two
// invocations overlap.
func (r *CampaignRunner) ProcessCampaign(ctx context.Context, campaignID uint) (*RunSummary, error) {
	summary := &RunSummary{CampaignID: campaignID}

	acquired, release, err := r.lock.Acquire(ctx, campaignID)
	if err != nil {
		// The lock only narrows the overlap window; claiming keeps
		// overlapping invocations correct, so a lock outage does not stop
		// the run.
		r.logger.Printf("runner: campaign %d run lock unavailable: %v", campaignID, err)
	} else if !acquired {
		summary.AlreadyRunning = true
		runInvocations.WithLabelValues("locked").Inc()
		return summary, nil
	}
	defer release()

	campaign, err := r.campaignRepo.ByID(ctx, campaignID)
	if err != nil {
		runInvocations.WithLabelValues("error").Inc()
		return summary, err
	}
	if campaign == nil || campaign.Status != models.CampaignStatusRunning {
		runInvocations.WithLabelValues("noop").Inc()
		return summary, nil
	}

	steps, err := r.stepRepo.ListByCampaign(ctx, campaignID)
	if err != nil {
		runInvocations.WithLabelValues("error").Inc()
		return summary, err
	}
	if len(steps) == 0 {
		r.logger.Printf("runner: campaign %d is running but has no steps", campaignID)
		runInvocations.WithLabelValues("noop").Inc()
		return summary, nil
	}

	accountIDs, err := r.resolveAccounts(ctx, campaign)
	if err != nil {
		runInvocations.WithLabelValues("error").Inc()
		return summary, err
	}
	if len(accountIDs) == 0 {
		r.logger.Printf("runner: campaign %d has no sender accounts", campaignID)
		runInvocations.WithLabelValues("noop").Inc()
		return summary, nil
	}

	// Accounts are processed independently; one account's failure never
	// aborts the others.
	for _, accountID := range accountIDs {
		if ctx.Err() != nil {
			break
		}
		r.processAccount(ctx, campaign, steps, accountID, summary)
	}

	remaining, err := r.recipientRepo.CountRemaining(ctx, campaignID)
	if err != nil {
		r.logger.Printf("runner: campaign %d remaining count failed: %v", campaignID, err)
	} else if remaining == 0 {
		completedAt := r.now()
		if err := r.campaignRepo.UpdateStatus(ctx, campaignID, models.CampaignStatusCompleted, &completedAt); err != nil {
			r.logger.Printf("runner: campaign %d completion update failed: %v", campaignID, err)
		} else {
			summary.CampaignCompleted = true
			campaignsCompleted.Inc()
			r.logger.Printf("runner: campaign %d completed", campaignID)
		}
	}

	runInvocations.WithLabelValues("processed").Inc()
	return summary, nil
}

// resolveAccounts returns the campaign's sender account ids: the junction
// table when it has rows, otherwise the legacy single-account reference.
func (r *CampaignRunner) resolveAccounts(ctx context.Context, campaign *models.Campaign) ([]uint, error) {
	links, err := r.linkRepo.ListByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	if len(links) > 0 {
		ids := make([]uint, 0, len(links))
		for _, l := range links {
			ids = append(ids, l.AccountID)
		}
		return ids, nil
	}
	if campaign.LegacySenderAccountID != nil {
		return []uint{*campaign.LegacySenderAccountID}, nil
	}
	return nil, nil
}

func (r *CampaignRunner) messagesPerDay(campaign *models.Campaign) int {
	if campaign.MessagesPerDay > 0 {
		return campaign.MessagesPerDay
	}
	return utils.DefaultMessagesPerDay
}

// processAccount works through the account's due recipients until the list,
// the quota, or the context is exhausted
func (r *CampaignRunner) processAccount(ctx context.Context, campaign *models.Campaign, steps []*models.CampaignStep, accountID uint, summary *RunSummary) {
	session, err := r.sessions.SessionForAccount(ctx, accountID)
	if err != nil {
		r.logger.Printf("runner: campaign %d account %d session lookup failed: %v", campaign.ID, accountID, err)
		summary.SkippedAccounts++
		accountsSkipped.WithLabelValues("no_session").Inc()
		return
	}
	if session == nil {
		r.logger.Printf("runner: campaign %d account %d has no usable session, skipping", campaign.ID, accountID)
		summary.SkippedAccounts++
		accountsSkipped.WithLabelValues("no_session").Inc()
		return
	}

	perDay := r.messagesPerDay(campaign)

	used, err := r.dailyCountRepo.DailyCount(ctx, accountID, r.now())
	if err != nil {
		r.logger.Printf("runner: campaign %d account %d quota read failed: %v", campaign.ID, accountID, err)
		summary.SkippedAccounts++
		return
	}
	if used >= perDay {
		r.logger.Printf("runner: campaign %d account %d daily quota exhausted (%d/%d)", campaign.ID, accountID, used, perDay)
		summary.SkippedAccounts++
		accountsSkipped.WithLabelValues("quota").Inc()
		return
	}

	due, err := r.recipientRepo.ListDue(ctx, campaign.ID, accountID, r.now(), r.cfg.BatchLimit)
	if err != nil {
		r.logger.Printf("runner: campaign %d account %d due list failed: %v", campaign.ID, accountID, err)
		return
	}

	didSend := false
	for _, rec := range due {
		if ctx.Err() != nil {
			return
		}
		if didSend {
			r.sleep(ctx, r.cfg.InterSendDelay)
			didSend = false
		}

		// Quota is re-read before every send so an invocation never
		// overshoots the cap, including sends landed by an overlapping
		// invocation.
		used, err := r.dailyCountRepo.DailyCount(ctx, accountID, r.now())
		if err != nil {
			r.logger.Printf("runner: campaign %d account %d quota re-check failed: %v", campaign.ID, accountID, err)
			return
		}
		if used >= perDay {
			accountsSkipped.WithLabelValues("quota").Inc()
			return
		}

		claimed, err := r.recipientRepo.Claim(ctx, rec.ID, r.now())
		if err != nil {
			r.logger.Printf("runner: campaign %d recipient %d claim failed: %v", campaign.ID, rec.ID, err)
			continue
		}
		if !claimed {
			// Another invocation owns this recipient
			summary.record(OutcomeSkipped)
			continue
		}

		outcome, sendAttempted, authFailed := r.processRecipient(ctx, campaign, steps, session, rec)
		summary.record(outcome)
		didSend = sendAttempted

		if authFailed {
			r.logger.Printf("runner: campaign %d account %d session rejected, deactivating", campaign.ID, accountID)
			if err := r.accountRepo.Deactivate(ctx, accountID); err != nil {
				r.logger.Printf("runner: account %d deactivation failed: %v", accountID, err)
			}
			accountsSkipped.WithLabelValues("auth_failure").Inc()
			return
		}
	}
}

// processRecipient advances one claimed recipient by one step. All failures
// are contained here: the recipient ends up in a terminal state and the
// caller's loop continues.
func (r *CampaignRunner) processRecipient(ctx context.Context, campaign *models.Campaign, steps []*models.CampaignStep, session *services.Session, rec *models.CampaignRecipient) (outcome RecipientOutcome, sendAttempted bool, authFailed bool) {
	step := stepWithOrder(steps, rec.CurrentStepOrder+1)
	if step == nil {
		// Sequence exhausted: no send, no quota
		if err := r.recipientRepo.Release(ctx, rec.ID, models.RecipientStatusCompleted); err != nil {
			r.logger.Printf("runner: recipient %d completion failed: %v", rec.ID, err)
		}
		return OutcomeCompleted, false, false
	}

	contact, err := r.contactRepo.ByID(ctx, rec.ContactID)
	if err != nil || contact == nil {
		r.failRecipient(ctx, campaign, rec, "contact unavailable for recipient")
		return OutcomeFailed, false, false
	}

	text := r.renderer.Render(step, contact)

	sendCtx, cancel := context.WithTimeout(ctx, r.cfg.SendTimeout)
	err = r.messenger.Send(sendCtx, session, contact.IGUserID, text)
	cancel()
	if err != nil {
		r.failRecipient(ctx, campaign, rec, err.Error())
		return OutcomeFailed, true, services.IsAuthSendError(err)
	}

	now := r.now()
	rec.CurrentStepOrder = step.StepOrder
	rec.LastProcessedAt = &now
	rec.ErrorMessage = nil
	if next := stepWithOrder(steps, step.StepOrder+1); next != nil {
		rec.Status = models.RecipientStatusInProgress
		gate := now.Add(time.Duration(next.DelayMinutes) * time.Minute)
		rec.NextProcessAt = &gate
	} else {
		// That was the final step: the sequence is done
		rec.Status = models.RecipientStatusCompleted
		rec.NextProcessAt = nil
	}
	if err := r.recipientRepo.Update(ctx, rec); err != nil {
		// The message left the building; the recipient row is re-claimed on
		// the next pass, which risks a duplicate send. Loud log, no retry.
		r.logger.Printf("runner: recipient %d update after send failed: %v", rec.ID, err)
	}

	r.recordMessage(ctx, campaign, session.AccountID, contact, step, text, now)

	if err := r.campaignRepo.IncrementCounters(ctx, campaign.ID, 1, 0); err != nil {
		r.logger.Printf("runner: campaign %d sent counter increment failed: %v", campaign.ID, err)
	}
	if err := r.dailyCountRepo.IncrementDailyCount(ctx, session.AccountID, now); err != nil {
		r.logger.Printf("runner: account %d ledger increment failed: %v", session.AccountID, err)
	}

	return OutcomeSent, true, false
}

// failRecipient marks the recipient terminally failed with the error text.
// Failed recipients are never auto-retried.
func (r *CampaignRunner) failRecipient(ctx context.Context, campaign *models.Campaign, rec *models.CampaignRecipient, reason string) {
	now := r.now()
	rec.Status = models.RecipientStatusFailed
	rec.ErrorMessage = &reason
	rec.LastProcessedAt = &now
	if err := r.recipientRepo.Update(ctx, rec); err != nil {
		r.logger.Printf("runner: recipient %d failure update failed: %v", rec.ID, err)
	}
	if err := r.campaignRepo.IncrementCounters(ctx, campaign.ID, 0, 1); err != nil {
		r.logger.Printf("runner: campaign %d failed counter increment failed: %v", campaign.ID, err)
	}
}

// recordMessage persists the delivered DM and its conversation. Failures are
// logged only; the send already happened.
func (r *CampaignRunner) recordMessage(ctx context.Context, campaign *models.Campaign, accountID uint, contact *models.Contact, step *models.CampaignStep, text string, sentAt time.Time) {
	conv, err := r.conversationRepo.GetOrCreate(ctx, accountID, contact.ID)
	if err != nil {
		r.logger.Printf("runner: conversation upsert failed for account %d contact %d: %v", accountID, contact.ID, err)
		return
	}

	stepOrder := step.StepOrder
	msg := &models.Message{
		ConversationID: conv.ID,
		Direction:      models.MessageDirectionOutbound,
		Status:         models.MessageStatusSent,
		Text:           text,
		CampaignID:     &campaign.ID,
		StepOrder:      &stepOrder,
		SentAt:         sentAt,
	}
	if err := msg.BeforeCreate(); err == nil {
		if err := r.messageRepo.Save(ctx, msg); err != nil {
			r.logger.Printf("runner: message persist failed for conversation %d: %v", conv.ID, err)
		}
	}
	if err := r.conversationRepo.TouchLastMessage(ctx, conv.ID, sentAt); err != nil {
		r.logger.Printf("runner: conversation %d touch failed: %v", conv.ID, err)
	}
}

func stepWithOrder(steps []*models.CampaignStep, order int) *models.CampaignStep {
	for _, s := range steps {
		if s.StepOrder == order {
			return s
		}
	}
	return nil
}

// Sweeper periodically invokes the run loop for every RUNNING campaign so
// deployments do not need an external cron
type Sweeper struct {
	runner       *CampaignRunner
	campaignRepo repository.CampaignRepository
	interval     time.Duration
	logger       *log.Logger
}

// NewSweeper creates a new background sweeper
func NewSweeper(runner *CampaignRunner, campaignRepo repository.CampaignRepository, interval time.Duration, logger *log.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Sweeper{
		runner:       runner,
		campaignRepo: campaignRepo,
		interval:     interval,
		logger:       logger,
	}
}

// Start launches the sweep loop in a background goroutine and returns a stop function
func (s *Sweeper) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *Sweeper) runOnce(ctx context.Context) {
	running, err := s.campaignRepo.ListByStatus(ctx, models.CampaignStatusRunning, 0, 0)
	if err != nil {
		s.logger.Printf("sweeper: list running campaigns failed: %v", err)
		return
	}
	if len(running) == 0 {
		return
	}
	s.logger.Printf("sweeper: %d running campaigns", len(running))

	// Campaigns are swept one at a time. A slow pass delays the next tick
	// instead of stacking goroutines behind the run lock.
	for _, camp := range running {
		if ctx.Err() != nil {
			return
		}
		summary, err := s.runner.ProcessCampaign(ctx, camp.ID)
		if err != nil {
			s.logger.Printf("sweeper: campaign %d process failed: %v", camp.ID, err)
			continue
		}
		if summary.Sent > 0 || summary.Failed > 0 || summary.Completed > 0 || summary.CampaignCompleted {
			s.logger.Printf("sweeper: campaign %d pass: sent=%d failed=%d completed=%d done=%t",
				camp.ID, summary.Sent, summary.Failed, summary.Completed, summary.CampaignCompleted)
		}
	}
}
