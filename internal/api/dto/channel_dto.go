package dto

import (
	"time"

	"github.com/spec-kit/cfrm-service/internal/domain"
)

// ChannelUpdateRequest payload for channel configuration changes.
type ChannelUpdateRequest struct {
	Name          *string        `json:"name" validate:"omitempty,min=2,max=100"`
	IsActive      *bool          `json:"is_active"`
	Configuration map[string]any `json:"configuration"`
}

// ChannelResponse is the channel representation returned by the API.
// Configuration is omitted; it may hold credentials.
type ChannelResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// FromChannel maps a domain channel.
func FromChannel(ch *domain.Channel) ChannelResponse {
	return ChannelResponse{
		ID:        ch.ID,
		Name:      ch.Name,
		Type:      string(ch.Type),
		IsActive:  ch.IsActive,
		CreatedAt: ch.CreatedAt,
	}
}

// SendTestMessageRequest payload for channel smoke tests.
type SendTestMessageRequest struct {
	Recipient string `json:"recipient" validate:"required"`
	Content   string `json:"content" validate:"required"`
}

// TemplateCreateRequest payload for new message templates.
type TemplateCreateRequest struct {
	Name      string   `json:"name" validate:"required,min=2,max=100"`
	ChannelID string   `json:"channel_id" validate:"required,uuid4"`
	Purpose   string   `json:"purpose" validate:"required,oneof=welcome confirmation response escalation closure reminder"`
	Subject   string   `json:"subject" validate:"max=255"`
	Content   string   `json:"content" validate:"required"`
	Language  string   `json:"language" validate:"omitempty,len=2"`
	Variables []string `json:"variables"`
}

// TemplateUpdateRequest payload for template changes.
type TemplateUpdateRequest struct {
	Subject   *string  `json:"subject" validate:"omitempty,max=255"`
	Content   *string  `json:"content"`
	IsActive  *bool    `json:"is_active"`
	Variables []string `json:"variables"`
}

// TemplateResponse is the template representation returned by the API.
type TemplateResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ChannelID string   `json:"channel_id"`
	Purpose   string   `json:"purpose"`
	Subject   string   `json:"subject,omitempty"`
	Content   string   `json:"content"`
	Language  string   `json:"language"`
	Variables []string `json:"variables,omitempty"`
	IsActive  bool     `json:"is_active"`
}

// FromTemplate maps a domain template.
func FromTemplate(t *domain.MessageTemplate) TemplateResponse {
	return TemplateResponse{
		ID:        t.ID,
		Name:      t.Name,
		ChannelID: t.ChannelID,
		Purpose:   string(t.Purpose),
		Subject:   t.Subject,
		Content:   t.Content,
		Language:  t.Language,
		Variables: t.Variables,
		IsActive:  t.IsActive,
	}
}

// MessageResponse is the message representation returned by the API.
type MessageResponse struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Content   string `json:"content"`

	TicketID   *string `json:"ticket_id,omitempty"`
	ResponseID *string `json:"response_id,omitempty"`

	Status       string `json:"status"`
	ExternalID   string `json:"external_id,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// FromMessage maps a domain message.
func FromMessage(m *domain.Message) MessageResponse {
	return MessageResponse{
		ID:           m.ID,
		ChannelID:    m.ChannelID,
		Recipient:    m.Recipient,
		Subject:      m.Subject,
		Content:      m.Content,
		TicketID:     m.TicketID,
		ResponseID:   m.ResponseID,
		Status:       string(m.Status),
		ExternalID:   m.ExternalID,
		ErrorMessage: m.ErrorMessage,
		CreatedAt:    m.CreatedAt,
		SentAt:       m.SentAt,
		DeliveredAt:  m.DeliveredAt,
		ReadAt:       m.ReadAt,
	}
}

// FromMessages maps a slice of domain messages.
func FromMessages(messages []domain.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, FromMessage(&messages[i]))
	}
	return out
}
