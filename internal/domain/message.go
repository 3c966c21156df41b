package domain

import "time"

// MessageStatus enumerates delivery states for outbound messages.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusFailed    MessageStatus = "failed"
	MessageStatusRead      MessageStatus = "read"
)

// messageTransitions is the forward-only delivery state machine:
// pending -> sent -> {delivered, failed} -> read, with failed also reachable
// directly from pending. failed and read are terminal.
var messageTransitions = map[MessageStatus][]MessageStatus{
	MessageStatusPending:   {MessageStatusSent, MessageStatusFailed},
	MessageStatusSent:      {MessageStatusDelivered, MessageStatusFailed},
	MessageStatusDelivered: {MessageStatusRead},
	MessageStatusFailed:    {},
	MessageStatusRead:      {},
}

func messageTransitionAllowed(from, to MessageStatus) bool {
	for _, candidate := range messageTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Message represents one outbound or inbound communication attempt.
type Message struct {
	ID        string
	ChannelID string
	Recipient string
	Subject   string
	Content   string

	TemplateID *string
	TicketID   *string
	ResponseID *string

	Status       MessageStatus
	ExternalID   string
	ErrorMessage string

	CreatedAt   time.Time
	SentAt      *time.Time
	DeliveredAt *time.Time
	ReadAt      *time.Time

	Metadata map[string]any
}

// MarkSent transitions the message to sent, stamping sent_at and capturing
// the provider-assigned id. Returns false if the transition does not apply.
func (m *Message) MarkSent(externalID string, now time.Time) bool {
	if !messageTransitionAllowed(m.Status, MessageStatusSent) {
		return false
	}
	m.Status = MessageStatusSent
	m.SentAt = &now
	if externalID != "" {
		m.ExternalID = externalID
	}
	return true
}

// MarkDelivered transitions the message to delivered. Idempotent: a late or
// duplicate webhook reporting an older status is a no-op.
func (m *Message) MarkDelivered(now time.Time) bool {
	if !messageTransitionAllowed(m.Status, MessageStatusDelivered) {
		return false
	}
	m.Status = MessageStatusDelivered
	m.DeliveredAt = &now
	return true
}

// MarkFailed records a delivery failure with its error text.
func (m *Message) MarkFailed(errMsg string) bool {
	if !messageTransitionAllowed(m.Status, MessageStatusFailed) {
		return false
	}
	m.Status = MessageStatusFailed
	m.ErrorMessage = errMsg
	return true
}

// MarkRead transitions the message to read, for channels with read receipts.
func (m *Message) MarkRead(now time.Time) bool {
	if !messageTransitionAllowed(m.Status, MessageStatusRead) {
		return false
	}
	m.Status = MessageStatusRead
	m.ReadAt = &now
	return true
}

// ApplyStatus applies a provider-reported status update, routing to the
// matching transition. Unknown statuses are ignored.
func (m *Message) ApplyStatus(status MessageStatus, errMsg string, now time.Time) bool {
	switch status {
	case MessageStatusSent:
		return m.MarkSent("", now)
	case MessageStatusDelivered:
		return m.MarkDelivered(now)
	case MessageStatusFailed:
		return m.MarkFailed(errMsg)
	case MessageStatusRead:
		return m.MarkRead(now)
	default:
		return false
	}
}
