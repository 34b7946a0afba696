// Package businessflow contains the core business logic and use cases for webhook ingestion
package businessflow

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/outreachly/outreachly-backend/app/dto"
	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/repository"
	"github.com/outreachly/outreachly-backend/utils"
	"github.com/redis/go-redis/v9"
)

// WebhookFlow handles inbound Instagram webhook deliveries
type WebhookFlow interface {
	// VerifySignature checks the X-Hub-Signature-256 header against the raw body
	VerifySignature(body []byte, signatureHeader string) error
	IngestEvents(ctx context.Context, envelope *dto.WebhookEnvelope) (*dto.WebhookIngestResponse, error)
}

// WebhookFlowImpl implements the webhook ingestion business flow
type WebhookFlowImpl struct {
	accountRepo      repository.SenderAccountRepository
	contactRepo      repository.ContactRepository
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository

	redisClient *redis.Client
	redisPrefix string
	dedupeTTL   time.Duration
	secret      string
	logger      *log.Logger
}

// NewWebhookFlow creates a new webhook flow instance. The redis client is
// optional; without it dedupe falls back to the message store.
func NewWebhookFlow(
	accountRepo repository.SenderAccountRepository,
	contactRepo repository.ContactRepository,
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	redisClient *redis.Client,
	redisPrefix string,
	dedupeTTL time.Duration,
	secret string,
	logger *log.Logger,
) WebhookFlow {
	if dedupeTTL <= 0 {
		dedupeTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WebhookFlowImpl{
		accountRepo:      accountRepo,
		contactRepo:      contactRepo,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		redisClient:      redisClient,
		redisPrefix:      redisPrefix,
		dedupeTTL:        dedupeTTL,
		secret:           secret,
		logger:           logger,
	}
}

// VerifySignature validates the HMAC-SHA256 payload signature
func (s *WebhookFlowImpl) VerifySignature(body []byte, signatureHeader string) error {
	if s.secret == "" {
		return nil
	}

	provided := strings.TrimPrefix(signatureHeader, "sha256=")
	if provided == "" {
		return ErrWebhookSignatureInvalid
	}

	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return ErrWebhookSignatureInvalid
	}
	return nil
}

// IngestEvents records the inbound messages of one webhook delivery. Redelivered
// events (same platform message id) are dropped; unknown receiving accounts are
// skipped without failing the delivery.
func (s *WebhookFlowImpl) IngestEvents(ctx context.Context, envelope *dto.WebhookEnvelope) (*dto.WebhookIngestResponse, error) {
	response := &dto.WebhookIngestResponse{}

	for _, entry := range envelope.Entry {
		for _, event := range entry.Messaging {
			if event.Message == nil || event.Message.MID == "" {
				continue
			}

			fresh, err := s.markSeen(ctx, event.Message.MID)
			if err != nil {
				return nil, NewBusinessError("WEBHOOK_DEDUPE_FAILED", "Failed to dedupe webhook event", err)
			}
			if !fresh {
				response.Deduped++
				continue
			}

			if err := s.ingestMessage(ctx, &event); err != nil {
				return nil, err
			}
			response.Ingested++
		}
	}

	return response, nil
}

// markSeen records the platform message id and reports whether it was new.
// Redis is the fast path; the message store backs it when redis is absent.
func (s *WebhookFlowImpl) markSeen(ctx context.Context, mid string) (bool, error) {
	if s.redisClient != nil {
		key := fmt.Sprintf("%swebhook:mid:%s", s.redisPrefix, mid)
		fresh, err := s.redisClient.SetNX(ctx, key, "1", s.dedupeTTL).Result()
		if err == nil {
			if !fresh {
				return false, nil
			}
			// Redis can outlive its TTL window; the store remains authoritative
		} else {
			s.logger.Printf("webhook: redis dedupe unavailable: %v", err)
		}
	}

	exists, err := s.messageRepo.ExistsByExternalID(ctx, mid)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

func (s *WebhookFlowImpl) ingestMessage(ctx context.Context, event *dto.WebhookMessagingEvent) error {
	account, err := s.accountRepo.ByIGUserID(ctx, event.Recipient.ID)
	if err != nil {
		return NewBusinessError("WEBHOOK_ACCOUNT_LOOKUP_FAILED", "Failed to lookup receiving account", err)
	}
	if account == nil {
		s.logger.Printf("webhook: no sender account for IG user %s, dropping event", event.Recipient.ID)
		return nil
	}

	contact, err := s.upsertContact(ctx, account.WorkspaceID, &event.Sender)
	if err != nil {
		return err
	}

	conv, err := s.conversationRepo.GetOrCreate(ctx, account.ID, contact.ID)
	if err != nil {
		return NewBusinessError("WEBHOOK_CONVERSATION_FAILED", "Failed to resolve conversation", err)
	}

	sentAt := utils.UTCNow()
	if event.Timestamp > 0 {
		sentAt = time.UnixMilli(event.Timestamp).UTC()
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		Direction:      models.MessageDirectionInbound,
		Status:         models.MessageStatusReceived,
		Text:           event.Message.Text,
		ExternalID:     utils.ToPtr(event.Message.MID),
		SentAt:         sentAt,
	}
	if err := msg.BeforeCreate(); err != nil {
		return NewBusinessError("WEBHOOK_MESSAGE_FAILED", "Failed to build message", err)
	}
	if err := s.messageRepo.Save(ctx, msg); err != nil {
		return NewBusinessError("WEBHOOK_MESSAGE_FAILED", "Failed to persist message", err)
	}

	if err := s.conversationRepo.TouchLastMessage(ctx, conv.ID, sentAt); err != nil {
		s.logger.Printf("webhook: conversation %d touch failed: %v", conv.ID, err)
	}

	return nil
}

// upsertContact resolves the sending IG user into a workspace contact,
// creating an inbound-sourced contact on first sight
func (s *WebhookFlowImpl) upsertContact(ctx context.Context, workspaceID uint, sender *dto.WebhookParty) (*models.Contact, error) {
	contact, err := s.contactRepo.ByWorkspaceAndIGUserID(ctx, workspaceID, sender.ID)
	if err != nil {
		return nil, NewBusinessError("WEBHOOK_CONTACT_LOOKUP_FAILED", "Failed to lookup contact", err)
	}

	if contact != nil {
		if sender.Username != "" && (contact.IGUsername == nil || *contact.IGUsername != sender.Username) {
			contact.IGUsername = utils.ToPtr(sender.Username)
			if err := s.contactRepo.Update(ctx, contact); err != nil {
				s.logger.Printf("webhook: contact %d username refresh failed: %v", contact.ID, err)
			}
		}
		return contact, nil
	}

	contact = &models.Contact{
		WorkspaceID: workspaceID,
		IGUserID:    sender.ID,
		Source:      models.ContactSourceInbound,
		CreatedAt:   utils.UTCNow(),
	}
	if sender.Username != "" {
		contact.IGUsername = utils.ToPtr(sender.Username)
	}
	if err := s.contactRepo.Save(ctx, contact); err != nil {
		return nil, NewBusinessError("WEBHOOK_CONTACT_FAILED", "Failed to create contact", err)
	}

	return contact, nil
}
