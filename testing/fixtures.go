// Package testing provides test utilities and database setup for testing the outreach system
package testing

import (
	"fmt"
	"math/rand"

	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestWorkspace creates a workspace with a unique name
func (tf *TestFixtures) CreateTestWorkspace() (*models.Workspace, error) {
	workspace := &models.Workspace{
		Name:     fmt.Sprintf("Test Workspace %d", rand.Intn(10000000)),
		IsActive: utils.ToPtr(true),
	}
	if err := workspace.BeforeCreate(); err != nil {
		return nil, err
	}

	if err := tf.DB.DB.Create(workspace).Error; err != nil {
		return nil, fmt.Errorf("failed to create test workspace: %w", err)
	}
	return workspace, nil
}

// CreateTestUser creates an active user in the workspace with the password "TestPass123!"
func (tf *TestFixtures) CreateTestUser(workspaceID uint) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		WorkspaceID:  workspaceID,
		Email:        fmt.Sprintf("user.%d@example.com", rand.Intn(100000000)),
		PasswordHash: string(hashedPassword),
		IsActive:     utils.ToPtr(true),
	}
	if err := user.BeforeCreate(); err != nil {
		return nil, err
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return user, nil
}

// CreateTestSenderAccount creates an active sender account with a sealed dummy credential
func (tf *TestFixtures) CreateTestSenderAccount(workspaceID uint, credential []byte) (*models.SenderAccount, error) {
	igUserID := fmt.Sprintf("17841%09d", rand.Intn(900000000)+100000000)

	account := &models.SenderAccount{
		WorkspaceID:         workspaceID,
		IGUserID:            igUserID,
		Username:            fmt.Sprintf("sender_%d", rand.Intn(10000000)),
		AuthMethod:          models.SenderAccountAuthOAuth,
		EncryptedCredential: credential,
		IsActive:            utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(account).Error; err != nil {
		return nil, fmt.Errorf("failed to create test sender account: %w", err)
	}
	return account, nil
}

// CreateTestContact creates a contact in the workspace
func (tf *TestFixtures) CreateTestContact(workspaceID uint) (*models.Contact, error) {
	igUserID := fmt.Sprintf("17842%09d", rand.Intn(900000000)+100000000)
	username := fmt.Sprintf("contact_%d", rand.Intn(10000000))

	contact := &models.Contact{
		WorkspaceID: workspaceID,
		IGUserID:    igUserID,
		IGUsername:  &username,
		Source:      models.ContactSourceManual,
	}

	if err := tf.DB.DB.Create(contact).Error; err != nil {
		return nil, fmt.Errorf("failed to create test contact: %w", err)
	}
	return contact, nil
}

// CreateTestCampaign creates a draft campaign with the given steps
func (tf *TestFixtures) CreateTestCampaign(workspaceID uint, templates ...string) (*models.Campaign, error) {
	if len(templates) == 0 {
		templates = []string{"Hey {{name}}, quick question"}
	}

	campaign := &models.Campaign{
		WorkspaceID:    workspaceID,
		Name:           fmt.Sprintf("Test Campaign %d", rand.Intn(10000000)),
		Status:         models.CampaignStatusDraft,
		WindowStart:    "09:00",
		WindowEnd:      "17:00",
		Timezone:       "UTC",
		MessagesPerDay: utils.DefaultMessagesPerDay,
	}
	if err := campaign.BeforeCreate(); err != nil {
		return nil, err
	}

	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}

	for i, template := range templates {
		step := &models.CampaignStep{
			CampaignID:      campaign.ID,
			StepOrder:       i + 1,
			ContentMode:     models.StepContentFixed,
			Template:        template,
			SelectionPolicy: models.VariantPolicyUniformRandom,
			DelayMinutes:    i * 60,
		}
		if err := tf.DB.DB.Create(step).Error; err != nil {
			return nil, fmt.Errorf("failed to create test campaign step %d: %w", i+1, err)
		}
		campaign.Steps = append(campaign.Steps, *step)
	}

	return campaign, nil
}

// CreateTestRecipient enrolls a contact on the campaign for the account
func (tf *TestFixtures) CreateTestRecipient(campaignID, contactID, accountID uint) (*models.CampaignRecipient, error) {
	recipient := &models.CampaignRecipient{
		CampaignID:        campaignID,
		ContactID:         contactID,
		AssignedAccountID: accountID,
		Status:            models.RecipientStatusPending,
		CurrentStepOrder:  0,
	}

	if err := tf.DB.DB.Create(recipient).Error; err != nil {
		return nil, fmt.Errorf("failed to create test recipient: %w", err)
	}
	return recipient, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(workspaceID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		WorkspaceID: workspaceID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
