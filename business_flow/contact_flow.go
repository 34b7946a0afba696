// Package businessflow contains the core business logic and use cases for contact workflows
package businessflow

import (
	"context"
	"fmt"
	"io"

	"github.com/outreachly/outreachly-backend/app/dto"
	"github.com/outreachly/outreachly-backend/app/services"
	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/repository"
	"github.com/outreachly/outreachly-backend/utils"
	"gorm.io/gorm"
)

// ContactFlow handles the contact business logic
type ContactFlow interface {
	ImportContacts(ctx context.Context, workspaceID uint, sheet io.Reader, metadata *ClientMetadata) (*dto.ImportContactsResponse, error)
	ListContacts(ctx context.Context, req *dto.ListContactsRequest, metadata *ClientMetadata) (*dto.ListContactsResponse, error)
}

// ContactFlowImpl implements the contact business flow
type ContactFlowImpl struct {
	contactRepo repository.ContactRepository
	auditRepo   repository.AuditLogRepository
	db          *gorm.DB
}

// NewContactFlow creates a new contact flow instance
func NewContactFlow(
	contactRepo repository.ContactRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) ContactFlow {
	return &ContactFlowImpl{
		contactRepo: contactRepo,
		auditRepo:   auditRepo,
		db:          db,
	}
}

// ImportContacts parses an XLSX sheet and upserts its rows into the workspace.
// Existing contacts (same IG user id) are refreshed, not duplicated.
func (s *ContactFlowImpl) ImportContacts(ctx context.Context, workspaceID uint, sheet io.Reader, metadata *ClientMetadata) (*dto.ImportContactsResponse, error) {
	parsed, err := services.ParseContactSheet(sheet)
	if err != nil {
		return nil, NewBusinessError("IMPORT_PARSE_FAILED", "Failed to parse contact sheet", err)
	}
	if len(parsed.Rows) == 0 {
		return nil, NewBusinessError("IMPORT_EMPTY", "Import sheet has no usable rows", ErrEmptyImportSheet)
	}

	response := &dto.ImportContactsResponse{Skipped: parsed.Skipped}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		for _, row := range parsed.Rows {
			existing, err := s.contactRepo.ByWorkspaceAndIGUserID(txCtx, workspaceID, row.IGUserID)
			if err != nil {
				return fmt.Errorf("failed to lookup contact %s: %w", row.IGUserID, err)
			}

			if existing != nil {
				if row.IGUsername != "" {
					existing.IGUsername = utils.ToPtr(row.IGUsername)
				}
				if row.Name != "" {
					existing.Name = utils.ToPtr(row.Name)
				}
				if err := s.contactRepo.Update(txCtx, existing); err != nil {
					return fmt.Errorf("failed to update contact %s: %w", row.IGUserID, err)
				}
				response.Updated++
				continue
			}

			contact := &models.Contact{
				WorkspaceID: workspaceID,
				IGUserID:    row.IGUserID,
				Source:      models.ContactSourceImport,
				CreatedAt:   utils.UTCNow(),
			}
			if row.IGUsername != "" {
				contact.IGUsername = utils.ToPtr(row.IGUsername)
			}
			if row.Name != "" {
				contact.Name = utils.ToPtr(row.Name)
			}
			if err := s.contactRepo.Save(txCtx, contact); err != nil {
				return fmt.Errorf("failed to create contact %s: %w", row.IGUserID, err)
			}
			response.Imported++
		}
		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Contact import failed: %s", err.Error())
		_ = s.createAuditLog(ctx, &workspaceID, models.AuditActionContactsImported, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("IMPORT_FAILED", "Contact import failed", err)
	}

	msg := fmt.Sprintf("Contacts imported: %d new, %d updated, %d skipped", response.Imported, response.Updated, response.Skipped)
	_ = s.createAuditLog(ctx, &workspaceID, models.AuditActionContactsImported, msg, true, nil, metadata)

	return response, nil
}

// ListContacts returns the workspace's contacts, newest first
func (s *ContactFlowImpl) ListContacts(ctx context.Context, req *dto.ListContactsRequest, metadata *ClientMetadata) (*dto.ListContactsResponse, error) {
	page, pageSize, err := normalizePagination(req.Page, req.PageSize)
	if err != nil {
		return nil, NewBusinessError("INVALID_PAGINATION", "Invalid pagination parameters", err)
	}

	filter := models.ContactFilter{WorkspaceID: &req.WorkspaceID}

	total, err := s.contactRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CONTACT_LIST_FAILED", "Failed to count contacts", err)
	}

	contacts, err := s.contactRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("CONTACT_LIST_FAILED", "Failed to list contacts", err)
	}

	response := &dto.ListContactsResponse{
		Contacts: make([]dto.ContactDTO, 0, len(contacts)),
		Pagination: dto.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	}
	for _, contact := range contacts {
		response.Contacts = append(response.Contacts, ToContactDTO(contact))
	}

	return response, nil
}

func (s *ContactFlowImpl) createAuditLog(ctx context.Context, workspaceID *uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return s.auditRepo.Save(ctx, audit)
}
