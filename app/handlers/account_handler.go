// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/outreachly/outreachly-backend/app/dto"
	businessflow "github.com/outreachly/outreachly-backend/business_flow"
)

// AccountHandlerInterface defines the contract for sender account handlers
type AccountHandlerInterface interface {
	ConnectAccount(c fiber.Ctx) error
	DeactivateAccount(c fiber.Ctx) error
	ListAccounts(c fiber.Ctx) error
}

// AccountHandler handles sender account HTTP requests
type AccountHandler struct {
	accountFlow businessflow.AccountFlow
	validator   *validator.Validate
}

// NewAccountHandler creates a new sender account handler
func NewAccountHandler(accountFlow businessflow.AccountFlow) *AccountHandler {
	return &AccountHandler{
		accountFlow: accountFlow,
		validator:   validator.New(),
	}
}

func (h *AccountHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AccountHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ConnectAccount handles registering an Instagram sender account
// @Summary Connect Sender Account
// @Description Register an Instagram identity for sending, sealing its credential at rest
// @Tags Sender Accounts
// @Accept json
// @Produce json
// @Param request body dto.ConnectAccountRequest true "Account connection data"
// @Success 201 {object} dto.APIResponse{data=dto.ConnectAccountResponse} "Account connected successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 409 {object} dto.APIResponse "Account already connected"
// @Router /api/v1/accounts [post]
func (h *AccountHandler) ConnectAccount(c fiber.Ctx) error {
	var req dto.ConnectAccountRequest
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

	workspaceID, ok := workspaceFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Workspace ID not found in context", "MISSING_WORKSPACE_ID", nil)
	}
	req.WorkspaceID = workspaceID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.accountFlow.ConnectAccount(createRequestContext(c, "/api/v1/accounts"), &req, metadata)
	if err != nil {
		if businessflow.IsSenderAccountExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Sender account already connected", "ACCOUNT_ALREADY_CONNECTED", nil)
		}

		log.Println("Account connection failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Account connection failed", "ACCOUNT_CONNECT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Sender account connected successfully", result)
}

// DeactivateAccount handles retiring a sender account from sending
// @Summary Deactivate Sender Account
// @Description Deactivate a sender account; running campaigns skip its recipients
// @Tags Sender Accounts
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {object} dto.APIResponse{data=dto.SenderAccountDTO} "Account deactivated successfully"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Router /api/v1/accounts/{id}/deactivate [post]
func (h *AccountHandler) DeactivateAccount(c fiber.Ctx) error {
	idStr := c.Params("id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account ID", "INVALID_ACCOUNT_ID", nil)
	}

	workspaceID, ok := workspaceFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Workspace ID not found in context", "MISSING_WORKSPACE_ID", nil)
	}

	req := dto.DeactivateAccountRequest{ID: uint(id), WorkspaceID: workspaceID}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.accountFlow.DeactivateAccount(createRequestContext(c, "/api/v1/accounts/"+idStr+"/deactivate"), &req, metadata)
	if err != nil {
		if businessflow.IsSenderAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Sender account not found", "ACCOUNT_NOT_FOUND", nil)
		}
		if businessflow.IsSenderAccountAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: sender account belongs to another workspace", "ACCOUNT_ACCESS_DENIED", nil)
		}

		log.Println("Account deactivation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Account deactivation failed", "ACCOUNT_DEACTIVATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Sender account deactivated successfully", result)
}

// ListAccounts handles listing the workspace's sender accounts
// @Summary List Sender Accounts
// @Description List the workspace's connected sender accounts
// @Tags Sender Accounts
// @Produce json
// @Param active_only query bool false "Only active accounts"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListAccountsResponse} "Accounts listed successfully"
// @Router /api/v1/accounts [get]
func (h *AccountHandler) ListAccounts(c fiber.Ctx) error {
	workspaceID, ok := workspaceFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Workspace ID not found in context", "MISSING_WORKSPACE_ID", nil)
	}

	req := dto.ListAccountsRequest{
		WorkspaceID: workspaceID,
		ActiveOnly:  c.Query("active_only") == "true",
		Page:        queryInt(c, "page"),
		PageSize:    queryInt(c, "page_size"),
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.accountFlow.ListAccounts(createRequestContext(c, "/api/v1/accounts"), &req, metadata)
	if err != nil {
		log.Println("Account listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Account listing failed", "ACCOUNT_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Sender accounts listed successfully", result)
}
