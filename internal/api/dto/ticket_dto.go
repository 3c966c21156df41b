package dto

import (
	"time"

	"github.com/spec-kit/cfrm-service/internal/domain"
)

// TicketCreateRequest payload for ticket intake.
type TicketCreateRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Content     string `json:"content" validate:"required"`
	IsAnonymous bool   `json:"is_anonymous"`

	CategoryID string `json:"category_id" validate:"required,uuid4"`
	PriorityID string `json:"priority_id" validate:"omitempty,uuid4"`
	ChannelID  string `json:"channel_id" validate:"required,uuid4"`

	SubmitterName     string `json:"submitter_name" validate:"max=255"`
	SubmitterPhone    string `json:"submitter_phone" validate:"max=32"`
	SubmitterEmail    string `json:"submitter_email" validate:"omitempty,email"`
	SubmitterLocation string `json:"submitter_location" validate:"max=255"`

	Tags     []string       `json:"tags"`
	Metadata map[string]any `json:"metadata"`
}

// TicketUpdateRequest payload for partial updates; nil fields are unchanged.
type TicketUpdateRequest struct {
	Title      *string        `json:"title" validate:"omitempty,min=3,max=255"`
	Content    *string        `json:"content"`
	CategoryID *string        `json:"category_id" validate:"omitempty,uuid4"`
	PriorityID *string        `json:"priority_id" validate:"omitempty,uuid4"`
	StatusID   *string        `json:"status_id" validate:"omitempty,uuid4"`
	AssignedTo *string        `json:"assigned_to" validate:"omitempty,uuid4"`
	Tags       []string       `json:"tags"`
	Metadata   map[string]any `json:"metadata"`
}

// TicketAssignRequest payload for the assign action.
type TicketAssignRequest struct {
	UserID string `json:"user_id" validate:"required,uuid4"`
}

// TicketEscalateRequest payload for the escalate action.
type TicketEscalateRequest struct {
	EscalatedTo string `json:"escalated_to" validate:"required"`
}

// ResponseCreateRequest payload for adding a reply.
type ResponseCreateRequest struct {
	Content    string `json:"content" validate:"required"`
	ChannelID  string `json:"channel_id" validate:"omitempty,uuid4"`
	IsInternal bool   `json:"is_internal"`
}

// FeedbackCreateRequest payload for the satisfaction survey.
type FeedbackCreateRequest struct {
	SatisfactionRating int    `json:"satisfaction_rating" validate:"required,min=1,max=5"`
	ResponseTimeRating int    `json:"response_time_rating" validate:"required,min=1,max=5"`
	QualityRating      int    `json:"quality_rating" validate:"required,min=1,max=5"`
	Comments           string `json:"comments"`
	WouldRecommend     *bool  `json:"would_recommend"`
}

// TicketResponse is the ticket representation returned by the API.
type TicketResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	IsAnonymous bool   `json:"is_anonymous"`

	CategoryID string `json:"category_id"`
	PriorityID string `json:"priority_id"`
	StatusID   string `json:"status_id"`
	ChannelID  string `json:"channel_id"`

	SubmitterName     string `json:"submitter_name,omitempty"`
	SubmitterPhone    string `json:"submitter_phone,omitempty"`
	SubmitterEmail    string `json:"submitter_email,omitempty"`
	SubmitterLocation string `json:"submitter_location,omitempty"`

	AssignedTo *string `json:"assigned_to,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`

	SLADeadline *time.Time `json:"sla_deadline,omitempty"`
	EscalatedAt *time.Time `json:"escalated_at,omitempty"`
	EscalatedTo string     `json:"escalated_to,omitempty"`

	IsPSEA        bool `json:"is_psea"`
	PSEAEscalated bool `json:"psea_escalated"`

	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FromTicket maps a domain ticket. Anonymous tickets never expose submitter
// identity fields.
func FromTicket(t *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Content:     t.Content,
		IsAnonymous: t.IsAnonymous,
		CategoryID:  t.CategoryID,
		PriorityID:  t.PriorityID,
		StatusID:    t.StatusID,
		ChannelID:   t.ChannelID,
		AssignedTo:  t.AssignedTo,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		ClosedAt:    t.ClosedAt,
		SLADeadline: t.SLADeadline,
		EscalatedAt: t.EscalatedAt,
		EscalatedTo: t.EscalatedTo,
		IsPSEA:      t.IsPSEA,
		PSEAEscalated: t.PSEAEscalated,
		Tags:          t.Tags,
		Metadata:      t.Metadata,
	}
	if !t.IsAnonymous {
		resp.SubmitterName = t.SubmitterName
		resp.SubmitterPhone = t.SubmitterPhone
		resp.SubmitterEmail = t.SubmitterEmail
		resp.SubmitterLocation = t.SubmitterLocation
	}
	return resp
}

// FromTickets maps a slice of domain tickets.
func FromTickets(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, FromTicket(&tickets[i]))
	}
	return out
}

// LogResponse is one audit trail entry.
type LogResponse struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	UserID      *string   `json:"user_id,omitempty"`
	Description string    `json:"description"`
	OldValue    string    `json:"old_value,omitempty"`
	NewValue    string    `json:"new_value,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromLogs maps audit entries.
func FromLogs(logs []domain.TicketLog) []LogResponse {
	out := make([]LogResponse, 0, len(logs))
	for _, entry := range logs {
		out = append(out, LogResponse{
			ID:          entry.ID,
			Action:      string(entry.Action),
			UserID:      entry.UserID,
			Description: entry.Description,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return out
}
