package businessflow

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/outreachly/outreachly-backend/app/dto"
	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/repository"
	"github.com/outreachly/outreachly-backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type whAccountRepo struct {
	repository.SenderAccountRepository
	accounts map[string]*models.SenderAccount
}

func (f *whAccountRepo) ByIGUserID(ctx context.Context, igUserID string) (*models.SenderAccount, error) {
	return f.accounts[igUserID], nil
}

type whContactRepo struct {
	repository.ContactRepository
	contacts map[string]*models.Contact
	updated  []*models.Contact
}

func (f *whContactRepo) ByWorkspaceAndIGUserID(ctx context.Context, workspaceID uint, igUserID string) (*models.Contact, error) {
	contact := f.contacts[igUserID]
	if contact == nil || contact.WorkspaceID != workspaceID {
		return nil, nil
	}
	return contact, nil
}

func (f *whContactRepo) Save(ctx context.Context, contact *models.Contact) error {
	contact.ID = uint(len(f.contacts) + 1)
	f.contacts[contact.IGUserID] = contact
	return nil
}

func (f *whContactRepo) Update(ctx context.Context, contact *models.Contact) error {
	f.updated = append(f.updated, contact)
	return nil
}

type whConversationRepo struct {
	repository.ConversationRepository
	touched map[uint]time.Time
}

func (f *whConversationRepo) GetOrCreate(ctx context.Context, accountID, contactID uint) (*models.Conversation, error) {
	return &models.Conversation{
		ID:        accountID*1000 + contactID,
		AccountID: accountID,
		ContactID: contactID,
	}, nil
}

func (f *whConversationRepo) TouchLastMessage(ctx context.Context, conversationID uint, at time.Time) error {
	if f.touched == nil {
		f.touched = make(map[uint]time.Time)
	}
	f.touched[conversationID] = at
	return nil
}

type whMessageRepo struct {
	repository.MessageRepository
	seen  map[string]bool
	saved []*models.Message
}

func (f *whMessageRepo) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	return f.seen[externalID], nil
}

func (f *whMessageRepo) Save(ctx context.Context, msg *models.Message) error {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if msg.ExternalID != nil {
		f.seen[*msg.ExternalID] = true
	}
	f.saved = append(f.saved, msg)
	return nil
}

type webhookFixture struct {
	flow         WebhookFlow
	accountRepo  *whAccountRepo
	contactRepo  *whContactRepo
	convRepo     *whConversationRepo
	messageRepo  *whMessageRepo
}

func newWebhookFixture(secret string) *webhookFixture {
	f := &webhookFixture{
		accountRepo: &whAccountRepo{accounts: make(map[string]*models.SenderAccount)},
		contactRepo: &whContactRepo{contacts: make(map[string]*models.Contact)},
		convRepo:    &whConversationRepo{},
		messageRepo: &whMessageRepo{seen: make(map[string]bool)},
	}
	f.flow = NewWebhookFlow(
		f.accountRepo, f.contactRepo, f.convRepo, f.messageRepo,
		nil, "test:", time.Hour, secret, nil,
	)
	return f
}

func (f *webhookFixture) addAccount(igUserID string, workspaceID uint) *models.SenderAccount {
	account := &models.SenderAccount{
		ID:          uint(len(f.accountRepo.accounts) + 1),
		WorkspaceID: workspaceID,
		IGUserID:    igUserID,
		Username:    "sender",
		IsActive:    utils.ToPtr(true),
	}
	f.accountRepo.accounts[igUserID] = account
	return account
}

func signPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func inboundEnvelope(mid, senderID, recipientID string) *dto.WebhookEnvelope {
	return &dto.WebhookEnvelope{
		Object: "instagram",
		Entry: []dto.WebhookEntry{{
			ID: recipientID,
			Messaging: []dto.WebhookMessagingEvent{{
				Sender:    dto.WebhookParty{ID: senderID, Username: "ada.codes"},
				Recipient: dto.WebhookParty{ID: recipientID},
				Timestamp: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC).UnixMilli(),
				Message:   &dto.WebhookMessage{MID: mid, Text: "hey, got your note"},
			}},
		}},
	}
}

func TestVerifySignatureAccepted(t *testing.T) {
	f := newWebhookFixture("hook-secret")

	body := []byte(`{"object":"instagram"}`)
	assert.NoError(t, f.flow.VerifySignature(body, signPayload("hook-secret", body)))
}

func TestVerifySignatureRejected(t *testing.T) {
	f := newWebhookFixture("hook-secret")
	body := []byte(`{"object":"instagram"}`)

	err := f.flow.VerifySignature(body, signPayload("wrong-secret", body))
	assert.True(t, IsWebhookSignatureInvalid(err))

	err = f.flow.VerifySignature(body, "")
	assert.True(t, IsWebhookSignatureInvalid(err))

	err = f.flow.VerifySignature(body, "sha256=")
	assert.True(t, IsWebhookSignatureInvalid(err))
}

func TestVerifySignatureSkippedWithoutSecret(t *testing.T) {
	f := newWebhookFixture("")

	assert.NoError(t, f.flow.VerifySignature([]byte(`{}`), ""))
}

func TestIngestEventsRecordsInboundMessage(t *testing.T) {
	f := newWebhookFixture("")
	account := f.addAccount("17841000000001", 42)

	resp, err := f.flow.IngestEvents(context.Background(), inboundEnvelope("mid.1", "17842000000009", account.IGUserID))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Ingested)
	assert.Equal(t, 0, resp.Deduped)

	contact := f.contactRepo.contacts["17842000000009"]
	require.NotNil(t, contact)
	assert.Equal(t, uint(42), contact.WorkspaceID)
	assert.Equal(t, models.ContactSourceInbound, contact.Source)
	require.NotNil(t, contact.IGUsername)
	assert.Equal(t, "ada.codes", *contact.IGUsername)

	require.Len(t, f.messageRepo.saved, 1)
	msg := f.messageRepo.saved[0]
	assert.Equal(t, models.MessageDirectionInbound, msg.Direction)
	assert.Equal(t, models.MessageStatusReceived, msg.Status)
	assert.Equal(t, "hey, got your note", msg.Text)
	require.NotNil(t, msg.ExternalID)
	assert.Equal(t, "mid.1", *msg.ExternalID)
	assert.Equal(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), msg.SentAt)

	assert.Len(t, f.convRepo.touched, 1)
}

func TestIngestEventsDedupesRedelivery(t *testing.T) {
	f := newWebhookFixture("")
	account := f.addAccount("17841000000001", 42)

	envelope := inboundEnvelope("mid.1", "17842000000009", account.IGUserID)
	_, err := f.flow.IngestEvents(context.Background(), envelope)
	require.NoError(t, err)

	resp, err := f.flow.IngestEvents(context.Background(), envelope)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Ingested)
	assert.Equal(t, 1, resp.Deduped)
	assert.Len(t, f.messageRepo.saved, 1)
}

func TestIngestEventsSkipsUnknownAccount(t *testing.T) {
	f := newWebhookFixture("")

	_, err := f.flow.IngestEvents(context.Background(), inboundEnvelope("mid.1", "17842000000009", "17841999999999"))
	require.NoError(t, err)
	assert.Empty(t, f.messageRepo.saved)
	assert.Empty(t, f.contactRepo.contacts)
}

func TestIngestEventsSkipsEventsWithoutMessage(t *testing.T) {
	f := newWebhookFixture("")
	account := f.addAccount("17841000000001", 42)

	envelope := inboundEnvelope("", "17842000000009", account.IGUserID)
	envelope.Entry[0].Messaging = append(envelope.Entry[0].Messaging, dto.WebhookMessagingEvent{
		Sender:    dto.WebhookParty{ID: "17842000000009"},
		Recipient: dto.WebhookParty{ID: account.IGUserID},
	})

	resp, err := f.flow.IngestEvents(context.Background(), envelope)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Ingested)
	assert.Equal(t, 0, resp.Deduped)
	assert.Empty(t, f.messageRepo.saved)
}

func TestIngestEventsRefreshesContactUsername(t *testing.T) {
	f := newWebhookFixture("")
	account := f.addAccount("17841000000001", 42)

	stale := "old.handle"
	f.contactRepo.contacts["17842000000009"] = &models.Contact{
		ID:          7,
		WorkspaceID: 42,
		IGUserID:    "17842000000009",
		IGUsername:  &stale,
		Source:      models.ContactSourceManual,
	}

	resp, err := f.flow.IngestEvents(context.Background(), inboundEnvelope("mid.1", "17842000000009", account.IGUserID))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Ingested)

	require.Len(t, f.contactRepo.updated, 1)
	require.NotNil(t, f.contactRepo.updated[0].IGUsername)
	assert.Equal(t, "ada.codes", *f.contactRepo.updated[0].IGUsername)
}
