// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/outreachly/outreachly-backend/app/dto"
	businessflow "github.com/outreachly/outreachly-backend/business_flow"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	StartCampaign(c fiber.Ctx) error
	ProcessCampaign(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	validator    *validator.Validate
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		validator:    validator.New(),
	}
}

func (h *CampaignHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CampaignHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateCampaign handles the campaign creation process
// @Summary Create Campaign
// @Description Create a new outreach campaign with its step sequence and sender accounts
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body dto.CreateCampaignRequest true "Campaign creation data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateCampaignResponse} "Campaign created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	workspaceID, ok := workspaceFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Workspace ID not found in context", "MISSING_WORKSPACE_ID", nil)
	}
	req.WorkspaceID = workspaceID

	result, err := h.campaignFlow.CreateCampaign(createRequestContext(c, "/api/v1/campaigns"), &req, metadata)
	if err != nil {
		if businessflow.IsSenderAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Sender account not found", "ACCOUNT_NOT_FOUND", nil)
		}
		if businessflow.IsSenderAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Sender account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		if businessflow.IsSenderAccountAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: sender account belongs to another workspace", "ACCOUNT_ACCESS_DENIED", nil)
		}
		if businessflow.IsStepOrderNotContiguous(err) || businessflow.IsStepContentRequired(err) ||
			businessflow.IsStepsRequired(err) || businessflow.IsCampaignWindowInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign validation failed", "CAMPAIGN_VALIDATION_FAILED", err.Error())
		}

		log.Println("Campaign creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", result)
}

// GetCampaign handles fetching a single campaign
// @Summary Get Campaign
// @Description Fetch one campaign with its step sequence
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO} "Campaign fetched successfully"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid} [get]
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	workspaceID, ok := workspaceFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Workspace ID not found in context", "MISSING_WORKSPACE_ID", nil)
	}

	req := dto.GetCampaignRequest{UUID: campaignUUID, WorkspaceID: workspaceID}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.GetCampaign(createRequestContext(c, "/api/v1/campaigns/"+campaignUUID), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: campaign belongs to another workspace", "CAMPAIGN_ACCESS_DENIED", nil)
		}

		log.Println("Campaign fetch failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign fetch failed", "CAMPAIGN_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign fetched successfully", result)
}

// ListCampaigns handles listing the workspace's campaigns
// @Summary List Campaigns
// @Description List the workspace's campaigns, newest first
// @Tags Campaigns
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse} "Campaigns listed successfully"
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	workspaceID, ok := workspaceFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Workspace ID not found in context", "MISSING_WORKSPACE_ID", nil)
	}

	req := dto.ListCampaignsRequest{
		WorkspaceID: workspaceID,
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}
	if v := c.Query("status"); v != "" {
		req.Status = &v
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.ListCampaigns(createRequestContext(c, "/api/v1/campaigns"), &req, metadata)
	if err != nil {
		log.Println("Campaign listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign listing failed", "CAMPAIGN_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns listed successfully", result)
}

// StartCampaign handles the campaign start process
// @Summary Start Campaign
// @Description Enroll contacts and transition a draft campaign to running
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.StartCampaignRequest true "Recipients to enroll"
// @Success 200 {object} dto.APIResponse{data=dto.StartCampaignResponse} "Campaign started successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Campaign cannot be started in current status"
// @Router /api/v1/campaigns/{uuid}/start [post]
func (h *CampaignHandler) StartCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.StartCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.UUID = campaignUUID

	workspaceID, ok := workspaceFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Workspace ID not found in context", "MISSING_WORKSPACE_ID", nil)
	}
	req.WorkspaceID = workspaceID

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.StartCampaign(createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/start"), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: campaign belongs to another workspace", "CAMPAIGN_ACCESS_DENIED", nil)
		}
		if businessflow.IsCampaignNotStartable(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Campaign cannot be started in current status", "CAMPAIGN_NOT_STARTABLE", nil)
		}
		if businessflow.IsContactNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Contact not found", "CONTACT_NOT_FOUND", err.Error())
		}
		if businessflow.IsAccountsRequired(err) || businessflow.IsRecipientsRequired(err) || businessflow.IsStepsRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign start validation failed", "CAMPAIGN_START_VALIDATION_FAILED", err.Error())
		}

		log.Println("Campaign start failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign start failed", "CAMPAIGN_START_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign started successfully", result)
}

// ProcessCampaign handles triggering one run-loop pass
// @Summary Process Campaign
// @Description Trigger one processing pass over a running campaign
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.ProcessCampaignResponse} "Campaign processed"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid}/process [post]
func (h *CampaignHandler) ProcessCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	workspaceID, ok := workspaceFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Workspace ID not found in context", "MISSING_WORKSPACE_ID", nil)
	}

	req := dto.ProcessCampaignRequest{UUID: campaignUUID, WorkspaceID: workspaceID}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	// A full pass can take a while with many due recipients
	ctx := createRequestContextWithTimeout(c, "/api/v1/campaigns/"+campaignUUID+"/process", processTimeout)

	result, err := h.campaignFlow.ProcessCampaign(ctx, &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: campaign belongs to another workspace", "CAMPAIGN_ACCESS_DENIED", nil)
		}

		log.Println("Campaign processing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign processing failed", "CAMPAIGN_PROCESS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign processed", result)
}
