package domain

import "time"

// ChannelType enumerates supported communication channels.
type ChannelType string

const (
	ChannelTypeSMS      ChannelType = "sms"
	ChannelTypeWhatsApp ChannelType = "whatsapp"
	ChannelTypeWeb      ChannelType = "web"
	ChannelTypeEmail    ChannelType = "email"
	ChannelTypePhone    ChannelType = "phone"
	ChannelTypePaper    ChannelType = "paper"
	ChannelTypeOther    ChannelType = "other"
)

// KnownChannelTypes lists every valid channel type.
var KnownChannelTypes = []ChannelType{
	ChannelTypeSMS,
	ChannelTypeWhatsApp,
	ChannelTypeWeb,
	ChannelTypeEmail,
	ChannelTypePhone,
	ChannelTypePaper,
	ChannelTypeOther,
}

// IsKnownChannelType validates a channel type value.
func IsKnownChannelType(t ChannelType) bool {
	for _, known := range KnownChannelTypes {
		if known == t {
			return true
		}
	}
	return false
}

// Category classifies feedback (complaint, request, PSEA, ...).
type Category struct {
	ID                 string
	Name               string
	Description        string
	IsSensitive        bool
	RequiresEscalation bool
	EscalationContact  string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Priority drives SLA deadline computation. Level is unique in 1..5.
type Priority struct {
	ID        string
	Name      string
	Level     int
	Color     string
	SLAHours  int
	CreatedAt time.Time
}

// SLAWindow returns the duration a ticket at this priority may stay open.
func (p Priority) SLAWindow() time.Duration {
	return time.Duration(p.SLAHours) * time.Hour
}

// Status is a configurable ticket state. A ticket in a final status is
// never overdue and accepts no further SLA clock.
type Status struct {
	ID          string
	Name        string
	Description string
	IsFinal     bool
	Color       string
	CreatedAt   time.Time
}

// Channel is one configured communication endpoint.
type Channel struct {
	ID            string
	Name          string
	Type          ChannelType
	IsActive      bool
	Configuration map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
