// Package services provides external service integrations and technical concerns like sessions and tokens
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/outreachly/outreachly-backend/config"
	"github.com/outreachly/outreachly-backend/utils"
)

// SendError codes reported by the messaging transport
const (
	SendErrorCodeAuth      = "auth"       // session rejected; account needs reconnecting
	SendErrorCodeRateLimit = "rate_limit" // platform-side throttle
	SendErrorCodeRecipient = "recipient"  // recipient unreachable or blocked
	SendErrorCodeTransport = "transport"  // network or HTTP-level failure
)

// SendError is a classifiable transport failure. The run loop inspects Code
// to decide whether the account should be deactivated.
type SendError struct {
	Code   string
	Reason string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send failed (%s): %s", e.Code, e.Reason)
}

// IsAuthSendError reports whether err is a transport failure caused by a
// rejected session
func IsAuthSendError(err error) bool {
	var se *SendError
	return errors.As(err, &se) && se.Code == SendErrorCodeAuth
}

// Messenger delivers one DM on behalf of an authenticated sender session
type Messenger interface {
	Send(ctx context.Context, session *Session, recipientIGUserID, text string) error
}

// InstagramMessenger implements Messenger against the Instagram Graph API
type InstagramMessenger struct {
	cfg    *config.InstagramConfig
	client *http.Client
}

// NewInstagramMessenger creates a new Graph API messenger
func NewInstagramMessenger(cfg *config.InstagramConfig) Messenger {
	return &InstagramMessenger{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type graphSendRequest struct {
	Recipient graphRecipient `json:"recipient"`
	Message   graphMessage   `json:"message"`
}

type graphRecipient struct {
	ID string `json:"id"`
}

type graphMessage struct {
	Text string `json:"text"`
}

type graphErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Send delivers one text DM from the session's account to the recipient
func (m *InstagramMessenger) Send(ctx context.Context, session *Session, recipientIGUserID, text string) error {
	if session == nil {
		return &SendError{Code: SendErrorCodeAuth, Reason: "no session"}
	}

	payload := graphSendRequest{
		Recipient: graphRecipient{ID: recipientIGUserID},
		Message:   graphMessage{Text: text},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", m.cfg.GraphBaseURL, m.cfg.APIVersion, session.IGUserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	resp, err := m.client.Do(req)
	if err != nil {
		return &SendError{Code: SendErrorCodeTransport, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	reason := strings.TrimSpace(string(respBody))
	var graphErr graphErrorResponse
	if json.Unmarshal(respBody, &graphErr) == nil && graphErr.Error.Message != "" {
		reason = fmt.Sprintf("%s (code %d)", graphErr.Error.Message, graphErr.Error.Code)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &SendError{Code: SendErrorCodeAuth, Reason: reason}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &SendError{Code: SendErrorCodeRateLimit, Reason: reason}
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return &SendError{Code: SendErrorCodeRecipient, Reason: reason}
	default:
		return &SendError{Code: SendErrorCodeTransport, Reason: fmt.Sprintf("http status %d: %s", resp.StatusCode, reason)}
	}
}

// MockMessenger implements Messenger for testing
type MockMessenger struct {
	SentMessages []MockSentMessage

	// FailFor maps recipient IG user ids to the error returned for them
	FailFor map[string]error
}

// MockSentMessage records one delivered mock message
type MockSentMessage struct {
	AccountID         uint
	RecipientIGUserID string
	Text              string
	SentAt            time.Time
}

// NewMockMessenger creates a new mock messenger
func NewMockMessenger() *MockMessenger {
	return &MockMessenger{
		SentMessages: make([]MockSentMessage, 0),
		FailFor:      make(map[string]error),
	}
}

// Send records a mock message, failing when the recipient is marked to fail
func (m *MockMessenger) Send(ctx context.Context, session *Session, recipientIGUserID, text string) error {
	if err, ok := m.FailFor[recipientIGUserID]; ok {
		return err
	}
	var accountID uint
	if session != nil {
		accountID = session.AccountID
	}
	m.SentMessages = append(m.SentMessages, MockSentMessage{
		AccountID:         accountID,
		RecipientIGUserID: recipientIGUserID,
		Text:              text,
		SentAt:            utils.UTCNow(),
	})
	return nil
}
