package dto

// WebhookEnvelope is the Instagram webhook payload: one entry per subscribed
// account, one messaging event per inbound DM.
type WebhookEnvelope struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry groups the messaging events delivered for one IG account
type WebhookEntry struct {
	ID        string                  `json:"id"` // IG user id of the receiving account
	Time      int64                   `json:"time"`
	Messaging []WebhookMessagingEvent `json:"messaging"`
}

// WebhookMessagingEvent is one inbound message event
type WebhookMessagingEvent struct {
	Sender    WebhookParty    `json:"sender"`
	Recipient WebhookParty    `json:"recipient"`
	Timestamp int64           `json:"timestamp"`
	Message   *WebhookMessage `json:"message,omitempty"`
}

// WebhookParty identifies one side of a messaging event
type WebhookParty struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// WebhookMessage carries the inbound message content
type WebhookMessage struct {
	MID  string `json:"mid"`
	Text string `json:"text"`
}

// WebhookIngestResponse summarizes one webhook delivery
type WebhookIngestResponse struct {
	Ingested int `json:"ingested"`
	Deduped  int `json:"deduped"`
}
