// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/outreachly/outreachly-backend/app/dto"
	businessflow "github.com/outreachly/outreachly-backend/business_flow"
)

// ContactHandlerInterface defines the contract for contact handlers
type ContactHandlerInterface interface {
	ImportContacts(c fiber.Ctx) error
	ListContacts(c fiber.Ctx) error
}

// ContactHandler handles contact HTTP requests
type ContactHandler struct {
	contactFlow businessflow.ContactFlow
	validator   *validator.Validate
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactFlow businessflow.ContactFlow) *ContactHandler {
	return &ContactHandler{
		contactFlow: contactFlow,
		validator:   validator.New(),
	}
}

func (h *ContactHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ContactHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ImportContacts handles uploading an XLSX contact sheet
// @Summary Import Contacts
// @Description Upload an XLSX sheet of contacts; existing contacts are refreshed
// @Tags Contacts
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "XLSX contact sheet"
// @Success 200 {object} dto.APIResponse{data=dto.ImportContactsResponse} "Contacts imported successfully"
// @Failure 400 {object} dto.APIResponse "Missing or unparseable sheet"
// @Router /api/v1/contacts/import [post]
func (h *ContactHandler) ImportContacts(c fiber.Ctx) error {
	workspaceID, ok := workspaceFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Workspace ID not found in context", "MISSING_WORKSPACE_ID", nil)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Contact sheet file is required", "MISSING_FILE", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Failed to open uploaded file", "INVALID_FILE", err.Error())
	}
	defer file.Close()

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.contactFlow.ImportContacts(createRequestContext(c, "/api/v1/contacts/import"), workspaceID, file, metadata)
	if err != nil {
		if businessflow.IsEmptyImportSheet(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Import sheet has no usable rows", "IMPORT_EMPTY", nil)
		}

		log.Println("Contact import failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Contact import failed", "IMPORT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contacts imported successfully", result)
}

// ListContacts handles listing the workspace's contacts
// @Summary List Contacts
// @Description List the workspace's contacts, newest first
// @Tags Contacts
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListContactsResponse} "Contacts listed successfully"
// @Router /api/v1/contacts [get]
func (h *ContactHandler) ListContacts(c fiber.Ctx) error {
	workspaceID, ok := workspaceFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Workspace ID not found in context", "MISSING_WORKSPACE_ID", nil)
	}

	req := dto.ListContactsRequest{
		WorkspaceID: workspaceID,
		Page:        queryInt(c, "page"),
		PageSize:    queryInt(c, "page_size"),
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.contactFlow.ListContacts(createRequestContext(c, "/api/v1/contacts"), &req, metadata)
	if err != nil {
		log.Println("Contact listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Contact listing failed", "CONTACT_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contacts listed successfully", result)
}
