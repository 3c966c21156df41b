package domain

import "time"

// Ticket is the aggregate for one piece of community feedback.
type Ticket struct {
	ID          string
	Title       string
	Content     string
	IsAnonymous bool

	CategoryID string
	PriorityID string
	StatusID   string
	ChannelID  string
	ExternalID string

	SubmitterName     string
	SubmitterPhone    string
	SubmitterEmail    string
	SubmitterLocation string

	AssignedTo *string
	CreatedBy  *string

	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time

	SLADeadline *time.Time
	EscalatedAt *time.Time
	EscalatedTo string

	IsPSEA        bool
	PSEAContact   string
	PSEAEscalated bool

	Tags     []string
	Metadata map[string]any
}

// ComputeSLADeadline derives the deadline from creation time and priority.
func ComputeSLADeadline(createdAt time.Time, priority Priority) time.Time {
	return createdAt.Add(priority.SLAWindow())
}

// IsOverdue reports whether the ticket has blown its SLA. Tickets in a
// final status are never overdue regardless of deadline.
func (t *Ticket) IsOverdue(status Status, now time.Time) bool {
	if t.SLADeadline == nil || status.IsFinal {
		return false
	}
	return now.After(*t.SLADeadline)
}

// DaysSinceCreation returns whole days elapsed since the ticket was created.
func (t *Ticket) DaysSinceCreation(now time.Time) int {
	return int(now.Sub(t.CreatedAt).Hours() / 24)
}

// ContactRecipient returns the reply address for the submitter, preferring
// phone over email as the original intake flow does.
func (t *Ticket) ContactRecipient() string {
	if t.SubmitterPhone != "" {
		return t.SubmitterPhone
	}
	return t.SubmitterEmail
}

// HasContact reports whether the submitter left any reply channel.
func (t *Ticket) HasContact() bool {
	return t.SubmitterPhone != "" || t.SubmitterEmail != ""
}

// Response is one reply on a ticket. Internal responses are never sent
// externally.
type Response struct {
	ID         string
	TicketID   string
	Content    string
	AuthorID   *string
	ChannelID  string
	IsInternal bool
	SentAt     *time.Time
	CreatedAt  time.Time

	DeliveryStatus    string
	ExternalMessageID string
}

// Feedback is the post-resolution satisfaction survey, at most one per ticket.
type Feedback struct {
	ID                 string
	TicketID           string
	SatisfactionRating int
	ResponseTimeRating int
	QualityRating      int
	Comments           string
	WouldRecommend     *bool
	CreatedAt          time.Time
}

// ValidRating reports whether a survey rating is in the accepted 1..5 range.
func ValidRating(r int) bool {
	return r >= 1 && r <= 5
}
