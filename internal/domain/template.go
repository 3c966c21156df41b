package domain

import "time"

// TemplatePurpose scopes a message template to its use.
type TemplatePurpose string

const (
	TemplateWelcome      TemplatePurpose = "welcome"
	TemplateConfirmation TemplatePurpose = "confirmation"
	TemplateResponse     TemplatePurpose = "response"
	TemplateEscalation   TemplatePurpose = "escalation"
	TemplateClosure      TemplatePurpose = "closure"
	TemplateReminder     TemplatePurpose = "reminder"
)

// MessageTemplate holds channel- and purpose-scoped notification text with
// named {placeholder} tokens. Variables declares the placeholder names the
// template expects.
type MessageTemplate struct {
	ID        string
	Name      string
	ChannelID string
	Purpose   TemplatePurpose
	Subject   string
	Content   string
	Language  string
	Variables []string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
