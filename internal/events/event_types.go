package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketEscalated       EventType = "ticket_escalated"
	EventTicketClosed          EventType = "ticket_closed"
	EventTicketReopened        EventType = "ticket_reopened"
	EventResponseAdded         EventType = "response_added"
)

// Actor identifies who performed the action. UserID is nil for system and
// anonymous public actions. Threaded explicitly from the request; never
// pulled from ambient state.
type Actor struct {
	UserID *string `json:"user_id,omitempty"`
	Name   string  `json:"name,omitempty"`
	IP     string  `json:"ip,omitempty"`
}

// SystemActor marks actions originating from the service itself.
func SystemActor() Actor {
	return Actor{Name: "system"}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title        string `json:"title"`
	CategoryName string `json:"category_name"`
	PriorityName string `json:"priority_name"`
	ChannelID    string `json:"channel_id"`
	IsPSEA       bool   `json:"is_psea"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// PriorityChangedPayload payload.
type PriorityChangedPayload struct {
	OldPriority string `json:"old_priority"`
	NewPriority string `json:"new_priority"`
}

// AssignedPayload payload.
type AssignedPayload struct {
	AssigneeID   string `json:"assignee_id"`
	AssigneeName string `json:"assignee_name"`
}

// EscalatedPayload payload.
type EscalatedPayload struct {
	EscalatedTo string `json:"escalated_to"`
	IsPSEA      bool   `json:"is_psea"`
}

// ResponseAddedPayload payload.
type ResponseAddedPayload struct {
	ResponseID string `json:"response_id"`
	IsInternal bool   `json:"is_internal"`
}
