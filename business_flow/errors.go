// Package businessflow contains the core business logic and use cases for outreach workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// User-related errors
	ErrUserNotFound      = errors.New("user not found")
	ErrAccountInactive   = errors.New("account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// Campaign-related errors
	ErrCampaignNotFound       = errors.New("campaign not found")
	ErrCampaignAccessDenied   = errors.New("campaign access denied")
	ErrCampaignNotEditable    = errors.New("campaign can no longer be modified")
	ErrCampaignNotStartable   = errors.New("campaign cannot be started in current status")
	ErrCampaignNameRequired   = errors.New("campaign name is required")
	ErrCampaignWindowInvalid  = errors.New("campaign send window is invalid")
	ErrStepsRequired          = errors.New("at least one step is required")
	ErrStepOrderNotContiguous = errors.New("step orders must be contiguous starting at 1")
	ErrStepContentRequired    = errors.New("step content is required")
	ErrAccountsRequired       = errors.New("at least one sender account is required")
	ErrRecipientsRequired     = errors.New("at least one recipient is required")

	// Sender account errors
	ErrSenderAccountNotFound     = errors.New("sender account not found")
	ErrSenderAccountInactive     = errors.New("sender account is inactive")
	ErrSenderAccountExists       = errors.New("sender account already connected")
	ErrSenderAccountAccessDenied = errors.New("sender account access denied")

	// Contact errors
	ErrContactNotFound  = errors.New("contact not found")
	ErrEmptyImportSheet = errors.New("import sheet has no usable rows")

	// Webhook errors
	ErrWebhookSignatureInvalid = errors.New("webhook signature is invalid")

	// Filter errors
	ErrInvalidPage           = errors.New("page must be at least 1")
	ErrInvalidPageSize       = errors.New("page size must be between 1 and 100")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsWorkspaceNotFound(err error) bool {
	return errors.Is(err, ErrWorkspaceNotFound)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignAccessDenied(err error) bool {
	return errors.Is(err, ErrCampaignAccessDenied)
}

func IsCampaignNotEditable(err error) bool {
	return errors.Is(err, ErrCampaignNotEditable)
}

func IsCampaignNotStartable(err error) bool {
	return errors.Is(err, ErrCampaignNotStartable)
}

func IsCampaignNameRequired(err error) bool {
	return errors.Is(err, ErrCampaignNameRequired)
}

func IsCampaignWindowInvalid(err error) bool {
	return errors.Is(err, ErrCampaignWindowInvalid)
}

func IsStepsRequired(err error) bool {
	return errors.Is(err, ErrStepsRequired)
}

func IsStepOrderNotContiguous(err error) bool {
	return errors.Is(err, ErrStepOrderNotContiguous)
}

func IsStepContentRequired(err error) bool {
	return errors.Is(err, ErrStepContentRequired)
}

func IsAccountsRequired(err error) bool {
	return errors.Is(err, ErrAccountsRequired)
}

func IsRecipientsRequired(err error) bool {
	return errors.Is(err, ErrRecipientsRequired)
}

func IsSenderAccountNotFound(err error) bool {
	return errors.Is(err, ErrSenderAccountNotFound)
}

func IsSenderAccountInactive(err error) bool {
	return errors.Is(err, ErrSenderAccountInactive)
}

func IsSenderAccountExists(err error) bool {
	return errors.Is(err, ErrSenderAccountExists)
}

func IsSenderAccountAccessDenied(err error) bool {
	return errors.Is(err, ErrSenderAccountAccessDenied)
}

func IsContactNotFound(err error) bool {
	return errors.Is(err, ErrContactNotFound)
}

func IsEmptyImportSheet(err error) bool {
	return errors.Is(err, ErrEmptyImportSheet)
}

func IsWebhookSignatureInvalid(err error) bool {
	return errors.Is(err, ErrWebhookSignatureInvalid)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

func IsStartDateAfterEndDate(err error) bool {
	return errors.Is(err, ErrStartDateAfterEndDate)
}
