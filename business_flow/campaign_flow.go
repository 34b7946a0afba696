// Package businessflow contains the core business logic and use cases for outreach campaign workflows
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
	"gorm.io/gorm"
)

// CampaignFlow handles the outreach campaign business logic
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error)
	GetCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest, metadata *ClientMetadata) (*dto.ListCampaignsResponse, error)
	StartCampaign(ctx context.Context, req *dto.StartCampaignRequest, metadata *ClientMetadata) (*dto.StartCampaignResponse, error)
	ProcessCampaign(ctx context.Context, req *dto.ProcessCampaignRequest, metadata *ClientMetadata) (*dto.ProcessCampaignResponse, error)
}

// CampaignFlowImpl implements the outreach campaign business flow
type CampaignFlowImpl struct {
	campaignRepo   repository.CampaignRepository
	stepRepo       repository.CampaignStepRepository
	accountRepo    repository.SenderAccountRepository
	linkRepo       repository.CampaignAccountRepository
	recipientRepo  repository.CampaignRecipientRepository
	dailyCountRepo repository.DailyCountRepository
	contactRepo    repository.ContactRepository
	auditRepo      repository.AuditLogRepository
	runner         *scheduler.CampaignRunner
	planner        *scheduler.SendWindowPlanner
	db             *gorm.DB
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	stepRepo repository.CampaignStepRepository,
	accountRepo repository.SenderAccountRepository,
	linkRepo repository.CampaignAccountRepository,
	recipientRepo repository.CampaignRecipientRepository,
	dailyCountRepo repository.DailyCountRepository,
	contactRepo repository.ContactRepository,
	auditRepo repository.AuditLogRepository,
	runner *scheduler.CampaignRunner,
	db *gorm.DB,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo:   campaignRepo,
		stepRepo:       stepRepo,
		accountRepo:    accountRepo,
		linkRepo:       linkRepo,
		recipientRepo:  recipientRepo,
		dailyCountRepo: dailyCountRepo,
		contactRepo:    contactRepo,
		auditRepo:      auditRepo,
		runner:         runner,
		planner:        scheduler.NewSendWindowPlanner(),
		db:             db,
	}
}

// CreateCampaign handles the complete campaign creation process
func (s *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error) {
	// Validate business rules
	if err := s.validateCreateCampaignRequest(req); err != nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", err)
	}

	// Verify all sender accounts exist, belong to the workspace, and are active
	if err := s.verifyAccounts(ctx, req.WorkspaceID, req.AccountIDs); err != nil {
		return nil, err
	}

	messagesPerDay := req.MessagesPerDay
	if messagesPerDay <= 0 {
		messagesPerDay = utils.DefaultMessagesPerDay
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	campaign := &models.Campaign{
		WorkspaceID:    req.WorkspaceID,
		Name:           req.Name,
		Status:         models.CampaignStatusDraft,
		WindowStart:    req.WindowStart,
		WindowEnd:      req.WindowEnd,
		Timezone:       timezone,
		MessagesPerDay: messagesPerDay,
	}
	if err := campaign.BeforeCreate(); err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Campaign creation failed", err)
	}

	// Use transaction for atomicity
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.campaignRepo.Save(txCtx, campaign); err != nil {
			return fmt.Errorf("failed to save campaign: %w", err)
		}

		steps := make([]*models.CampaignStep, 0, len(req.Steps))
		for _, stepReq := range req.Steps {
			steps = append(steps, &models.CampaignStep{
				CampaignID:      campaign.ID,
				StepOrder:       stepReq.StepOrder,
				ContentMode:     models.StepContentMode(stepReq.ContentMode),
				Template:        stepReq.Template,
				Variants:        stepReq.Variants,
				SelectionPolicy: selectionPolicy(stepReq.SelectionPolicy),
				DelayMinutes:    stepReq.DelayMinutes,
			})
		}
		if err := s.stepRepo.SaveBatch(txCtx, steps); err != nil {
			return fmt.Errorf("failed to save campaign steps: %w", err)
		}

		links := make([]*models.CampaignAccount, 0, len(req.AccountIDs))
		for _, accountID := range req.AccountIDs {
			links = append(links, &models.CampaignAccount{
				CampaignID: campaign.ID,
				AccountID:  accountID,
			})
		}
		if err := s.linkRepo.SaveBatch(txCtx, links); err != nil {
			return fmt.Errorf("failed to link sender accounts: %w", err)
		}

		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Campaign creation failed: %s", err.Error())
		_ = s.createAuditLog(ctx, &req.WorkspaceID, models.AuditActionCampaignCreationFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Campaign creation failed", err)
	}

	// Log successful creation
	msg := fmt.Sprintf("Campaign created successfully: %s", campaign.UUID.String())
	_ = s.createAuditLog(ctx, &req.WorkspaceID, models.AuditActionCampaignCreated, msg, true, nil, metadata)

	response := &dto.CreateCampaignResponse{
		UUID:      campaign.UUID.String(),
		Status:    string(campaign.Status),
		CreatedAt: campaign.CreatedAt.Format(time.RFC3339),
	}

	return response, nil
}

// GetCampaign returns one campaign with its steps, scoped to the workspace
func (s *CampaignFlowImpl) GetCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	campaign, err := s.ownedCampaign(ctx, req.UUID, req.WorkspaceID)
	if err != nil {
		return nil, err
	}

	out := ToCampaignDTO(campaign)
	if len(out.Steps) == 0 {
		steps, err := s.stepRepo.ListByCampaign(ctx, campaign.ID)
		if err != nil {
			return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign steps", err)
		}
		for _, step := range steps {
			out.Steps = append(out.Steps, ToCampaignStepDTO(step))
		}
	}

	return &out, nil
}

// ListCampaigns returns the workspace's campaigns, newest first
func (s *CampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest, metadata *ClientMetadata) (*dto.ListCampaignsResponse, error) {
	page, pageSize, err := normalizePagination(req.Page, req.PageSize)
	if err != nil {
		return nil, NewBusinessError("INVALID_PAGINATION", "Invalid pagination parameters", err)
	}

	filter := models.CampaignFilter{WorkspaceID: &req.WorkspaceID}
	if req.Status != nil {
		status := models.CampaignStatus(*req.Status)
		filter.Status = &status
	}

	total, err := s.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to count campaigns", err)
	}

	campaigns, err := s.campaignRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}

	response := &dto.ListCampaignsResponse{
		Campaigns: make([]dto.CampaignDTO, 0, len(campaigns)),
		Pagination: dto.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	}
	for _, campaign := range campaigns {
		item := ToCampaignDTO(campaign)
		item.Steps = nil // list view stays lean
		response.Campaigns = append(response.Campaigns, item)
	}

	return response, nil
}

// ProcessCampaign triggers one run-loop pass for the campaign and reports the outcome
func (s *CampaignFlowImpl) ProcessCampaign(ctx context.Context, req *dto.ProcessCampaignRequest, metadata *ClientMetadata) (*dto.ProcessCampaignResponse, error) {
	campaign, err := s.ownedCampaign(ctx, req.UUID, req.WorkspaceID)
	if err != nil {
		return nil, err
	}

	summary, err := s.runner.ProcessCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_PROCESS_FAILED", "Campaign processing failed", err)
	}

	status := campaign.Status
	if summary.CampaignCompleted {
		status = models.CampaignStatusCompleted

		msg := fmt.Sprintf("Campaign completed: %s", campaign.UUID.String())
		_ = s.createAuditLog(ctx, &req.WorkspaceID, models.AuditActionCampaignCompleted, msg, true, nil, metadata)
	}

	return &dto.ProcessCampaignResponse{
		UUID:            campaign.UUID.String(),
		Status:          string(status),
		Sent:            summary.Sent,
		Failed:          summary.Failed,
		Completed:       summary.Completed,
		SkippedAccounts: summary.SkippedAccounts,
		AlreadyRunning:  summary.AlreadyRunning,
	}, nil
}

// ownedCampaign resolves a campaign by UUID and verifies workspace ownership
func (s *CampaignFlowImpl) ownedCampaign(ctx context.Context, uuid string, workspaceID uint) (*models.Campaign, error) {
	campaign, err := s.campaignRepo.ByUUID(ctx, uuid)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}
	if campaign.WorkspaceID != workspaceID {
		return nil, NewBusinessError("CAMPAIGN_ACCESS_DENIED", "Access denied: campaign belongs to another workspace", ErrCampaignAccessDenied)
	}
	return campaign, nil
}

func (s *CampaignFlowImpl) validateCreateCampaignRequest(req *dto.CreateCampaignRequest) error {
	if req.Name == "" {
		return ErrCampaignNameRequired
	}
	if _, err := utils.ParseClock(req.WindowStart); err != nil {
		return fmt.Errorf("%w: %v", ErrCampaignWindowInvalid, err)
	}
	if _, err := utils.ParseClock(req.WindowEnd); err != nil {
		return fmt.Errorf("%w: %v", ErrCampaignWindowInvalid, err)
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrCampaignWindowInvalid, req.Timezone)
		}
	}
	if len(req.AccountIDs) == 0 {
		return ErrAccountsRequired
	}
	return validateSteps(req.Steps)
}

// validateSteps enforces contiguous 1..N ordering and mode-appropriate content
func validateSteps(steps []dto.CampaignStepDTO) error {
	if len(steps) == 0 {
		return ErrStepsRequired
	}

	seen := make(map[int]bool, len(steps))
	for _, step := range steps {
		if step.StepOrder < 1 || step.StepOrder > len(steps) || seen[step.StepOrder] {
			return ErrStepOrderNotContiguous
		}
		seen[step.StepOrder] = true

		switch models.StepContentMode(step.ContentMode) {
		case models.StepContentFixed:
			if step.Template == "" {
				return fmt.Errorf("%w: step %d has no template", ErrStepContentRequired, step.StepOrder)
			}
		case models.StepContentVariants:
			if len(step.Variants) == 0 {
				return fmt.Errorf("%w: step %d has no variants", ErrStepContentRequired, step.StepOrder)
			}
			for _, v := range step.Variants {
				if v == "" {
					return fmt.Errorf("%w: step %d has an empty variant", ErrStepContentRequired, step.StepOrder)
				}
			}
		default:
			return fmt.Errorf("%w: step %d has unknown content mode %q", ErrStepContentRequired, step.StepOrder, step.ContentMode)
		}
	}

	return nil
}

func (s *CampaignFlowImpl) verifyAccounts(ctx context.Context, workspaceID uint, accountIDs []uint) error {
	for _, accountID := range accountIDs {
		account, err := s.accountRepo.ByID(ctx, accountID)
		if err != nil {
			return NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to lookup sender account", err)
		}
		if account == nil {
			return NewBusinessErrorf("ACCOUNT_NOT_FOUND", "Sender account %d not found", ErrSenderAccountNotFound, accountID)
		}
		if account.WorkspaceID != workspaceID {
			return NewBusinessError("ACCOUNT_ACCESS_DENIED", "Access denied: sender account belongs to another workspace", ErrSenderAccountAccessDenied)
		}
		if !utils.IsTrue(account.IsActive) {
			return NewBusinessErrorf("ACCOUNT_INACTIVE", "Sender account %d is inactive", ErrSenderAccountInactive, accountID)
		}
	}
	return nil
}

func selectionPolicy(raw string) models.VariantSelectionPolicy {
	if raw == "" {
		return models.VariantPolicyUniformRandom
	}
	return models.VariantSelectionPolicy(raw)
}

func normalizePagination(page, pageSize int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = 20
	}
	if page < 1 {
		return 0, 0, ErrInvalidPage
	}
	if pageSize < 1 || pageSize > 100 {
		return 0, 0, ErrInvalidPageSize
	}
	return page, pageSize, nil
}

func (s *CampaignFlowImpl) createAuditLog(ctx context.Context, workspaceID *uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		WorkspaceID:  workspaceID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	// Extract request ID from context if available
	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return s.auditRepo.Save(ctx, audit)
}
