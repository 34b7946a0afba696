package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/outreachly/outreachly-backend/app/dto"
	"github.com/outreachly/outreachly-backend/app/scheduler"
	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/repository"
	"github.com/outreachly/outreachly-backend/utils"
)

// StartCampaign enrolls the contacts, assigns each one to a sender account
// round-robin, plans the first-touch gate times inside the send window, and
// moves the campaign to running. The whole transition is atomic: either every
// recipient row lands and the campaign runs, or nothing changes.
func (s *CampaignFlowImpl) StartCampaign(ctx context.Context, req *dto.StartCampaignRequest, metadata *ClientMetadata) (*dto.StartCampaignResponse, error) {
	campaign, err := s.ownedCampaign(ctx, req.UUID, req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	if !campaign.CanTransitionTo(models.CampaignStatusRunning) {
		return nil, NewBusinessError("CAMPAIGN_NOT_STARTABLE", "Campaign cannot be started in current status", ErrCampaignNotStartable)
	}

	steps, err := s.stepRepo.ListByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign steps", err)
	}
	if len(steps) == 0 {
		return nil, NewBusinessError("STEPS_REQUIRED", "Campaign has no steps", ErrStepsRequired)
	}

	accountIDs, err := s.startableAccounts(ctx, campaign)
	if err != nil {
		return nil, err
	}

	if len(req.ContactIDs) == 0 {
		return nil, NewBusinessError("RECIPIENTS_REQUIRED", "At least one recipient is required", ErrRecipientsRequired)
	}
	contactIDs, err := s.verifyContacts(ctx, req.WorkspaceID, req.ContactIDs)
	if err != nil {
		return nil, err
	}

	recipients, firstProcessAt, err := s.buildRecipients(ctx, campaign, accountIDs, contactIDs)
	if err != nil {
		return nil, err
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.recipientRepo.SaveBatch(txCtx, recipients); err != nil {
			return fmt.Errorf("failed to enroll recipients: %w", err)
		}
		if err := s.campaignRepo.UpdateStatus(txCtx, campaign.ID, models.CampaignStatusRunning, nil); err != nil {
			return fmt.Errorf("failed to transition campaign to running: %w", err)
		}
		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Campaign start failed: %s", err.Error())
		_ = s.createAuditLog(ctx, &req.WorkspaceID, models.AuditActionCampaignStartFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_START_FAILED", "Campaign start failed", err)
	}

	msg := fmt.Sprintf("Campaign started: %s with %d recipients across %d accounts", campaign.UUID.String(), len(recipients), len(accountIDs))
	_ = s.createAuditLog(ctx, &req.WorkspaceID, models.AuditActionCampaignStarted, msg, true, nil, metadata)

	response := &dto.StartCampaignResponse{
		UUID:          campaign.UUID.String(),
		Status:        string(models.CampaignStatusRunning),
		EnrolledCount: len(recipients),
		AccountCount:  len(accountIDs),
	}
	if firstProcessAt != nil {
		response.FirstProcessAt = firstProcessAt.Format(time.RFC3339)
	}

	return response, nil
}

// startableAccounts resolves the campaign's sender accounts (junction table
// first, legacy reference second) and keeps only the active ones
func (s *CampaignFlowImpl) startableAccounts(ctx context.Context, campaign *models.Campaign) ([]uint, error) {
	var candidates []uint

	links, err := s.linkRepo.ListByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to lookup campaign accounts", err)
	}
	for _, link := range links {
		candidates = append(candidates, link.AccountID)
	}
	if len(candidates) == 0 && campaign.LegacySenderAccountID != nil {
		candidates = append(candidates, *campaign.LegacySenderAccountID)
	}

	var active []uint
	for _, accountID := range candidates {
		account, err := s.accountRepo.ByID(ctx, accountID)
		if err != nil {
			return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to lookup sender account", err)
		}
		if account == nil || !utils.IsTrue(account.IsActive) {
			continue
		}
		active = append(active, accountID)
	}

	if len(active) == 0 {
		return nil, NewBusinessError("ACCOUNTS_REQUIRED", "Campaign has no active sender accounts", ErrAccountsRequired)
	}
	return active, nil
}

// verifyContacts checks ownership and drops duplicate ids while preserving order
func (s *CampaignFlowImpl) verifyContacts(ctx context.Context, workspaceID uint, contactIDs []uint) ([]uint, error) {
	seen := make(map[uint]bool, len(contactIDs))
	out := make([]uint, 0, len(contactIDs))

	for _, contactID := range contactIDs {
		if seen[contactID] {
			continue
		}
		seen[contactID] = true

		contact, err := s.contactRepo.ByID(ctx, contactID)
		if err != nil {
			return nil, NewBusinessError("CONTACT_LOOKUP_FAILED", "Failed to lookup contact", err)
		}
		if contact == nil || contact.WorkspaceID != workspaceID {
			return nil, NewBusinessErrorf("CONTACT_NOT_FOUND", "Contact %d not found", ErrContactNotFound, contactID)
		}
		out = append(out, contactID)
	}

	return out, nil
}

// buildRecipients assigns contacts to accounts round-robin and plans each
// account's first-touch timestamps inside the campaign's send window
func (s *CampaignFlowImpl) buildRecipients(ctx context.Context, campaign *models.Campaign, accountIDs, contactIDs []uint) ([]*models.CampaignRecipient, *time.Time, error) {
	partitions := make(map[uint][]uint, len(accountIDs))
	for i, contactID := range contactIDs {
		accountID := accountIDs[i%len(accountIDs)]
		partitions[accountID] = append(partitions[accountID], contactID)
	}

	now := utils.UTCNow()
	recipients := make([]*models.CampaignRecipient, 0, len(contactIDs))
	var firstProcessAt *time.Time

	for _, accountID := range accountIDs {
		partition := partitions[accountID]
		if len(partition) == 0 {
			continue
		}

		sentToday, err := s.dailyCountRepo.DailyCount(ctx, accountID, now)
		if err != nil {
			return nil, nil, NewBusinessError("QUOTA_LOOKUP_FAILED", "Failed to read account quota ledger", err)
		}

		gates, err := s.planner.Plan(scheduler.PlanRequest{
			Now:            now,
			WindowStart:    campaign.WindowStart,
			WindowEnd:      campaign.WindowEnd,
			Timezone:       campaign.Timezone,
			Count:          len(partition),
			MessagesPerDay: campaign.MessagesPerDay,
			SentToday:      sentToday,
		})
		if err != nil {
			return nil, nil, NewBusinessError("SCHEDULE_PLANNING_FAILED", "Failed to plan send schedule", err)
		}

		for i, contactID := range partition {
			gate := gates[i]
			recipients = append(recipients, &models.CampaignRecipient{
				CampaignID:        campaign.ID,
				ContactID:         contactID,
				Status:            models.RecipientStatusPending,
				CurrentStepOrder:  0,
				AssignedAccountID: accountID,
				NextProcessAt:     &gate,
				CreatedAt:         now,
			})
			if firstProcessAt == nil || gate.Before(*firstProcessAt) {
				firstProcessAt = utils.ToPtr(gate)
			}
		}
	}

	return recipients, firstProcessAt, nil
}
