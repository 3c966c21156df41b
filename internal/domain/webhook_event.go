package domain

import "time"

// WebhookEventType enumerates inbound provider callback kinds.
type WebhookEventType string

const (
	WebhookSMSReceived      WebhookEventType = "sms_received"
	WebhookWhatsAppReceived WebhookEventType = "whatsapp_received"
	WebhookEmailReceived    WebhookEventType = "email_received"
	WebhookDeliveryStatus   WebhookEventType = "delivery_status"
	WebhookReadStatus       WebhookEventType = "read_status"
)

// WebhookEvent is one inbound provider callback, preserved verbatim for
// audit. Events are recorded even when they cannot be resolved to a message.
type WebhookEvent struct {
	ID        string
	EventType WebhookEventType
	ChannelID string

	Payload map[string]any
	Headers map[string]string

	Processed    bool
	ProcessedAt  *time.Time
	ErrorMessage string

	MessageID *string
	TicketID  *string

	CreatedAt time.Time
	SourceIP  string
}

// MarkProcessed flags successful processing.
func (e *WebhookEvent) MarkProcessed(now time.Time) {
	e.Processed = true
	e.ProcessedAt = &now
}

// MarkFailed records a processing failure note without discarding the event.
func (e *WebhookEvent) MarkFailed(errMsg string) {
	e.ErrorMessage = errMsg
}
