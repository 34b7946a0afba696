// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/outreachly/outreachly-backend/app/dto"
	businessflow "github.com/outreachly/outreachly-backend/business_flow"
)

// WebhookHandlerInterface defines the contract for webhook handlers
type WebhookHandlerInterface interface {
	VerifySubscription(c fiber.Ctx) error
	ReceiveEvents(c fiber.Ctx) error
}

// WebhookHandler handles Instagram webhook HTTP requests
type WebhookHandler struct {
	webhookFlow businessflow.WebhookFlow
	verifyToken string
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookFlow businessflow.WebhookFlow, verifyToken string) *WebhookHandler {
	return &WebhookHandler{
		webhookFlow: webhookFlow,
		verifyToken: verifyToken,
	}
}

// VerifySubscription answers the platform's subscription handshake
// @Summary Verify Webhook Subscription
// @Description Echo hub.challenge when hub.verify_token matches
// @Tags Webhooks
// @Produce plain
// @Param hub.mode query string true "Subscription mode"
// @Param hub.verify_token query string true "Verify token"
// @Param hub.challenge query string true "Challenge to echo"
// @Success 200 {string} string "Challenge echoed"
// @Failure 403 {object} dto.APIResponse "Verify token mismatch"
// @Router /api/v1/webhooks/instagram [get]
func (h *WebhookHandler) VerifySubscription(c fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "subscribe" || token != h.verifyToken {
		return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
			Success: false,
			Message: "Webhook verification failed",
			Error:   dto.ErrorDetail{Code: "WEBHOOK_VERIFY_FAILED"},
		})
	}

	return c.Status(fiber.StatusOK).SendString(challenge)
}

// ReceiveEvents ingests one webhook delivery
// @Summary Receive Webhook Events
// @Description Ingest inbound message events; redeliveries are deduplicated
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param request body dto.WebhookEnvelope true "Webhook payload"
// @Success 200 {object} dto.APIResponse{data=dto.WebhookIngestResponse} "Events ingested"
// @Failure 401 {object} dto.APIResponse "Signature mismatch"
// @Router /api/v1/webhooks/instagram [post]
func (h *WebhookHandler) ReceiveEvents(c fiber.Ctx) error {
	body := c.Body()

	if err := h.webhookFlow.VerifySignature(body, c.Get("X-Hub-Signature-256")); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
			Success: false,
			Message: "Webhook signature verification failed",
			Error:   dto.ErrorDetail{Code: "WEBHOOK_SIGNATURE_INVALID"},
		})
	}

	var envelope dto.WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{
			Success: false,
			Message: "Invalid webhook payload",
			Error:   dto.ErrorDetail{Code: "INVALID_PAYLOAD", Details: err.Error()},
		})
	}

	result, err := h.webhookFlow.IngestEvents(createRequestContext(c, "/api/v1/webhooks/instagram"), &envelope)
	if err != nil {
		log.Println("Webhook ingestion failed", err)
		// The platform retries on non-2xx; a persistent failure here is
		// surfaced so the delivery is retried rather than silently lost
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Webhook ingestion failed",
			Error:   dto.ErrorDetail{Code: "WEBHOOK_INGEST_FAILED"},
		})
	}

	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{
		Success: true,
		Message: "Events ingested",
		Data:    result,
	})
}
