package domain

import "time"

// LogAction captures what happened in an audit trail entry.
type LogAction string

const (
	ActionCreated         LogAction = "created"
	ActionUpdated         LogAction = "updated"
	ActionAssigned        LogAction = "assigned"
	ActionStatusChanged   LogAction = "status_changed"
	ActionPriorityChanged LogAction = "priority_changed"
	ActionEscalated       LogAction = "escalated"
	ActionClosed          LogAction = "closed"
	ActionReopened        LogAction = "reopened"
	ActionResponseAdded   LogAction = "response_added"
)

// TicketLog is an append-only audit trail entry. Never mutated or deleted
// after creation. UserID is nil for system actions.
type TicketLog struct {
	ID          string
	TicketID    string
	Action      LogAction
	UserID      *string
	Description string
	OldValue    string
	NewValue    string
	CreatedAt   time.Time
	IPAddress   string
}
