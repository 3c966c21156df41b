package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/spec-kit/cfrm-service/internal/dispatch"
	"github.com/spec-kit/cfrm-service/internal/domain"
	"github.com/spec-kit/cfrm-service/internal/events"
	"github.com/spec-kit/cfrm-service/internal/repository"
	util "github.com/spec-kit/cfrm-service/pkg/util"
)

const (
	statusOpenName   = "Ouvert"
	statusClosedName = "Fermé"

	defaultPriorityLevel = 3
	inboundCategoryName  = "Feedback"

	inboundTitleMaxRunes = 80
)

// TicketService coordinates the ticket lifecycle: intake, triage, SLA
// tracking, escalation, responses and feedback.
type TicketService struct {
	tickets    repository.TicketRepository
	categories repository.CategoryRepository
	priorities repository.PriorityRepository
	statuses   repository.StatusRepository
	channels   repository.ChannelRepository
	logs       repository.TicketLogRepository
	responses  repository.ResponseRepository
	feedback   repository.FeedbackRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CategoryRepo repository.CategoryRepository
	PriorityRepo repository.PriorityRepository
	StatusRepo   repository.StatusRepository
	ChannelRepo  repository.ChannelRepository
	LogRepo      repository.TicketLogRepository
	ResponseRepo repository.ResponseRepository
	FeedbackRepo repository.FeedbackRepository
	UserRepo     repository.UserRepository
	Dispatcher   events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		categories: deps.CategoryRepo,
		priorities: deps.PriorityRepo,
		statuses:   deps.StatusRepo,
		channels:   deps.ChannelRepo,
		logs:       deps.LogRepo,
		responses:  deps.ResponseRepo,
		feedback:   deps.FeedbackRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// TicketCreateInput describes ticket creation payload. PriorityID and
// StatusID are optional; defaults are resolved from reference data.
type TicketCreateInput struct {
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

	Tags     []string
	Metadata map[string]any
}

// TicketUpdateInput carries optional field changes; nil means unchanged.
type TicketUpdateInput struct {
	Title      *string
	Content    *string
	CategoryID *string
	PriorityID *string
	StatusID   *string
	AssignedTo *string
	Tags       []string
	Metadata   map[string]any
}

// ResponseInput describes a reply on a ticket.
type ResponseInput struct {
	Content    string
	ChannelID  string
	IsInternal bool
}

// FeedbackInput describes the satisfaction survey payload.
type FeedbackInput struct {
	SatisfactionRating int
	ResponseTimeRating int
	QualityRating      int
	Comments           string
	WouldRecommend     *bool
}

// CreateTicket validates references, applies defaults and persists a new
// ticket. The SLA deadline is computed exactly once, from creation time and
// the priority in force at creation; later priority changes do not move it.
func (s *TicketService) CreateTicket(ctx context.Context, actor events.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, util.NewValidationError("title is required", nil)
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, util.NewValidationError("content is required", nil)
	}

	// An unknown reference in a creation payload is bad input, not a missing
	// resource: the caller is not addressing the category, it is citing one.
	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		return nil, badReference(err, "category", input.CategoryID)
	}
	priority, err := s.resolvePriority(ctx, input.PriorityID)
	if err != nil {
		return nil, badReference(err, "priority", input.PriorityID)
	}
	status, err := s.resolveStatus(ctx, input.StatusID)
	if err != nil {
		return nil, badReference(err, "status", input.StatusID)
	}
	if _, err := s.channels.GetByID(ctx, input.ChannelID); err != nil {
		return nil, badReference(err, "channel", input.ChannelID)
	}

	now := time.Now().UTC()
	deadline := domain.ComputeSLADeadline(now, *priority)
	ticket := &domain.Ticket{
		ID:                uuid.New().String(),
		Title:             input.Title,
		Content:           input.Content,
		IsAnonymous:       input.IsAnonymous,
		CategoryID:        category.ID,
		PriorityID:        priority.ID,
		StatusID:          status.ID,
		ChannelID:         input.ChannelID,
		ExternalID:        input.ExternalID,
		SubmitterName:     input.SubmitterName,
		SubmitterPhone:    input.SubmitterPhone,
		SubmitterEmail:    input.SubmitterEmail,
		SubmitterLocation: input.SubmitterLocation,
		CreatedBy:         actor.UserID,
		SLADeadline:       &deadline,
		IsPSEA:            category.IsSensitive,
		PSEAContact:       category.EscalationContact,
		Tags:              input.Tags,
		Metadata:          input.Metadata,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.writeLog(ctx, ticket.ID, domain.ActionCreated, actor, "ticket created", "", status.Name)
	s.publish(ctx, events.EventTicketCreated, ticket.ID, actor, events.TicketCreatedPayload{
		Title:        ticket.Title,
		CategoryName: category.Name,
		PriorityName: priority.Name,
		ChannelID:    ticket.ChannelID,
		IsPSEA:       ticket.IsPSEA,
	})
	return ticket, nil
}

// CreateFromInbound turns an inbound provider message into a ticket. Used by
// the webhook reconciliation flow.
func (s *TicketService) CreateFromInbound(ctx context.Context, channel *domain.Channel, inbound dispatch.InboundMessage) (*domain.Ticket, error) {
	category, err := s.categories.GetByName(ctx, inboundCategoryName)
	if err != nil {
		return nil, err
	}
	title := inbound.Subject
	if title == "" {
		title = truncateRunes(inbound.Body, inboundTitleMaxRunes)
	}
	input := TicketCreateInput{
		Title:         title,
		Content:       inbound.Body,
		CategoryID:    category.ID,
		ChannelID:     channel.ID,
		SubmitterName: inbound.From,
	}
	if channel.Type == domain.ChannelTypeEmail {
		input.SubmitterEmail = inbound.From
	} else {
		input.SubmitterPhone = inbound.From
	}
	return s.CreateTicket(ctx, events.SystemActor(), input)
}

// UpdateTicket applies field changes under a row lock, writing one audit
// entry per meaningful change. The SLA deadline is deliberately left alone
// on priority changes; RecomputeSLA exists for explicit corrections.
func (s *TicketService) UpdateTicket(ctx context.Context, actor events.Actor, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	var oldStatusID, oldPriorityID string
	var oldAssigned *string

	ticket, err := s.tickets.Mutate(ctx, ticketID, func(t *domain.Ticket) error {
		oldStatusID = t.StatusID
		oldPriorityID = t.PriorityID
		oldAssigned = t.AssignedTo

		if input.Title != nil {
			if strings.TrimSpace(*input.Title) == "" {
				return util.NewValidationError("title is required", nil)
			}
			t.Title = *input.Title
		}
		if input.Content != nil {
			t.Content = *input.Content
		}
		if input.CategoryID != nil {
			category, err := s.categories.GetByID(ctx, *input.CategoryID)
			if err != nil {
				return err
			}
			t.CategoryID = category.ID
			t.IsPSEA = category.IsSensitive
			if t.PSEAContact == "" {
				t.PSEAContact = category.EscalationContact
			}
		}
		if input.PriorityID != nil {
			if _, err := s.priorities.GetByID(ctx, *input.PriorityID); err != nil {
				return err
			}
			t.PriorityID = *input.PriorityID
		}
		if input.StatusID != nil {
			status, err := s.statuses.GetByID(ctx, *input.StatusID)
			if err != nil {
				return err
			}
			t.StatusID = status.ID
			if status.IsFinal {
				if t.ClosedAt == nil {
					now := time.Now().UTC()
					t.ClosedAt = &now
				}
			} else {
				t.ClosedAt = nil
			}
		}
		if input.AssignedTo != nil {
			if _, err := s.users.GetByID(ctx, *input.AssignedTo); err != nil {
				return err
			}
			t.AssignedTo = input.AssignedTo
		}
		if input.Tags != nil {
			t.Tags = input.Tags
		}
		if input.Metadata != nil {
			t.Metadata = input.Metadata
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if input.StatusID != nil && oldStatusID != ticket.StatusID {
		oldName, newName := s.statusNames(ctx, oldStatusID, ticket.StatusID)
		s.writeLog(ctx, ticket.ID, domain.ActionStatusChanged, actor, "status changed", oldName, newName)
		s.publish(ctx, events.EventTicketStatusChanged, ticket.ID, actor, events.StatusChangedPayload{
			OldStatus: oldName,
			NewStatus: newName,
		})
	}
	if input.PriorityID != nil && oldPriorityID != ticket.PriorityID {
		oldName, newName := s.priorityNames(ctx, oldPriorityID, ticket.PriorityID)
		s.writeLog(ctx, ticket.ID, domain.ActionPriorityChanged, actor, "priority changed", oldName, newName)
		s.publish(ctx, events.EventTicketPriorityChanged, ticket.ID, actor, events.PriorityChangedPayload{
			OldPriority: oldName,
			NewPriority: newName,
		})
	}
	if input.AssignedTo != nil && !sameAssignee(oldAssigned, ticket.AssignedTo) {
		s.logAssignment(ctx, actor, ticket, oldAssigned)
	}
	return ticket, nil
}

// Assign sets the ticket's assignee.
func (s *TicketService) Assign(ctx context.Context, actor events.Actor, ticketID, userID string) (*domain.Ticket, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var oldAssigned *string
	ticket, err := s.tickets.Mutate(ctx, ticketID, func(t *domain.Ticket) error {
		oldAssigned = t.AssignedTo
		t.AssignedTo = &user.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !sameAssignee(oldAssigned, ticket.AssignedTo) {
		s.writeLog(ctx, ticket.ID, domain.ActionAssigned, actor,
			fmt.Sprintf("assigned to %s", user.FullName), assigneeValue(oldAssigned), user.ID)
		s.publish(ctx, events.EventTicketAssigned, ticket.ID, actor, events.AssignedPayload{
			AssigneeID:   user.ID,
			AssigneeName: user.FullName,
		})
	}
	return ticket, nil
}

// Close moves the ticket to the final closed status and stamps closed_at.
func (s *TicketService) Close(ctx context.Context, actor events.Actor, ticketID string) (*domain.Ticket, error) {
	closed, err := s.statuses.GetByName(ctx, statusClosedName)
	if err != nil {
		return nil, err
	}
	var oldStatusID string
	ticket, err := s.tickets.Mutate(ctx, ticketID, func(t *domain.Ticket) error {
		oldStatusID = t.StatusID
		if t.StatusID == closed.ID {
			return util.NewConflict("ticket is already closed", nil)
		}
		t.StatusID = closed.ID
		now := time.Now().UTC()
		t.ClosedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	oldName, _ := s.statusNames(ctx, oldStatusID, closed.ID)
	s.writeLog(ctx, ticket.ID, domain.ActionClosed, actor, "ticket closed", oldName, closed.Name)
	s.publish(ctx, events.EventTicketClosed, ticket.ID, actor, events.StatusChangedPayload{
		OldStatus: oldName,
		NewStatus: closed.Name,
	})
	return ticket, nil
}

// Reopen returns a closed ticket to the open status and clears closed_at.
// The original SLA deadline is kept, so a long-closed ticket reopens overdue.
func (s *TicketService) Reopen(ctx context.Context, actor events.Actor, ticketID string) (*domain.Ticket, error) {
	open, err := s.statuses.GetByName(ctx, statusOpenName)
	if err != nil {
		return nil, err
	}
	var oldStatusID string
	ticket, err := s.tickets.Mutate(ctx, ticketID, func(t *domain.Ticket) error {
		oldStatusID = t.StatusID
		if t.ClosedAt == nil {
			return util.NewConflict("ticket is not closed", nil)
		}
		t.StatusID = open.ID
		t.ClosedAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	oldName, _ := s.statusNames(ctx, oldStatusID, open.ID)
	s.writeLog(ctx, ticket.ID, domain.ActionReopened, actor, "ticket reopened", oldName, open.Name)
	s.publish(ctx, events.EventTicketReopened, ticket.ID, actor, events.StatusChangedPayload{
		OldStatus: oldName,
		NewStatus: open.Name,
	})
	return ticket, nil
}

// Escalate records an escalation to a named contact. PSEA tickets also get
// the dedicated escalation flag so sensitive cases are trackable separately.
func (s *TicketService) Escalate(ctx context.Context, actor events.Actor, ticketID, escalatedTo string) (*domain.Ticket, error) {
	if strings.TrimSpace(escalatedTo) == "" {
		return nil, util.NewValidationError("escalation contact is required", nil)
	}
	ticket, err := s.tickets.Mutate(ctx, ticketID, func(t *domain.Ticket) error {
		now := time.Now().UTC()
		t.EscalatedAt = &now
		t.EscalatedTo = escalatedTo
		if t.IsPSEA {
			t.PSEAEscalated = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.writeLog(ctx, ticket.ID, domain.ActionEscalated, actor,
		fmt.Sprintf("escalated to %s", escalatedTo), "", escalatedTo)
	s.publish(ctx, events.EventTicketEscalated, ticket.ID, actor, events.EscalatedPayload{
		EscalatedTo: escalatedTo,
		IsPSEA:      ticket.IsPSEA,
	})
	return ticket, nil
}

// RecomputeSLA re-derives the deadline from creation time and the current
// priority. This is an explicit correction tool, not an automatic side
// effect of priority changes.
func (s *TicketService) RecomputeSLA(ctx context.Context, actor events.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.Mutate(ctx, ticketID, func(t *domain.Ticket) error {
		priority, err := s.priorities.GetByID(ctx, t.PriorityID)
		if err != nil {
			return err
		}
		deadline := domain.ComputeSLADeadline(t.CreatedAt, *priority)
		t.SLADeadline = &deadline
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.writeLog(ctx, ticket.ID, domain.ActionUpdated, actor, "sla deadline recomputed", "",
		ticket.SLADeadline.Format(time.RFC3339))
	return ticket, nil
}

// AddResponse records a reply on a ticket. Non-internal responses are picked
// up by the notification flow for external delivery; internal notes never
// leave the system.
func (s *TicketService) AddResponse(ctx context.Context, actor events.Actor, ticketID string, input ResponseInput) (*domain.Response, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, util.NewValidationError("response content is required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	channelID := input.ChannelID
	if channelID == "" {
		channelID = ticket.ChannelID
	}
	response := &domain.Response{
		ID:         uuid.New().String(),
		TicketID:   ticket.ID,
		Content:    input.Content,
		AuthorID:   actor.UserID,
		ChannelID:  channelID,
		IsInternal: input.IsInternal,
	}
	if err := s.responses.Create(ctx, response); err != nil {
		return nil, err
	}
	s.writeLog(ctx, ticket.ID, domain.ActionResponseAdded, actor, "response added", "", response.ID)
	s.publish(ctx, events.EventResponseAdded, ticket.ID, actor, events.ResponseAddedPayload{
		ResponseID: response.ID,
		IsInternal: response.IsInternal,
	})
	return response, nil
}

// SubmitFeedback records the post-resolution survey, at most once per ticket.
func (s *TicketService) SubmitFeedback(ctx context.Context, ticketID string, input FeedbackInput) (*domain.Feedback, error) {
	for _, rating := range []int{input.SatisfactionRating, input.ResponseTimeRating, input.QualityRating} {
		if !domain.ValidRating(rating) {
			return nil, util.NewValidationError("ratings must be between 1 and 5", nil)
		}
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if existing, err := s.feedback.GetByTicket(ctx, ticket.ID); err == nil && existing != nil {
		return nil, util.NewConflict("feedback already submitted for this ticket", nil)
	} else if err != nil && !util.IsNotFound(err) {
		return nil, err
	}
	fb := &domain.Feedback{
		ID:                 uuid.New().String(),
		TicketID:           ticket.ID,
		SatisfactionRating: input.SatisfactionRating,
		ResponseTimeRating: input.ResponseTimeRating,
		QualityRating:      input.QualityRating,
		Comments:           input.Comments,
		WouldRecommend:     input.WouldRecommend,
	}
	if err := s.feedback.Create(ctx, fb); err != nil {
		return nil, err
	}
	return fb, nil
}

// GetTicket fetches one ticket.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, id)
}

// ListTickets lists tickets matching the filter.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, filter)
}

// ListLogs returns the ticket's audit trail in chronological order.
func (s *TicketService) ListLogs(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketLog, error) {
	return s.logs.ListByTicket(ctx, ticketID, limit, offset)
}

// ListResponses returns the ticket's responses.
func (s *TicketService) ListResponses(ctx context.Context, ticketID string) ([]domain.Response, error) {
	return s.responses.ListByTicket(ctx, ticketID)
}

// IsOverdue reports whether a ticket has blown its SLA right now.
func (s *TicketService) IsOverdue(ctx context.Context, ticket *domain.Ticket) (bool, error) {
	status, err := s.statuses.GetByID(ctx, ticket.StatusID)
	if err != nil {
		return false, err
	}
	return ticket.IsOverdue(*status, time.Now().UTC()), nil
}

// truncateRunes shortens s to at most max runes. Truncating by bytes could
// split a multibyte rune and postgres rejects invalid UTF-8 text.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// badReference maps a failed reference lookup to a validation error.
func badReference(err error, field, value string) error {
	if util.IsNotFound(err) {
		return util.NewValidationError(fmt.Sprintf("unknown %s", field), map[string]any{field: value})
	}
	return err
}

func (s *TicketService) resolvePriority(ctx context.Context, priorityID string) (*domain.Priority, error) {
	if priorityID != "" {
		return s.priorities.GetByID(ctx, priorityID)
	}
	return s.priorities.GetByLevel(ctx, defaultPriorityLevel)
}

func (s *TicketService) resolveStatus(ctx context.Context, statusID string) (*domain.Status, error) {
	if statusID != "" {
		return s.statuses.GetByID(ctx, statusID)
	}
	return s.statuses.GetByName(ctx, statusOpenName)
}

func (s *TicketService) logAssignment(ctx context.Context, actor events.Actor, ticket *domain.Ticket, oldAssigned *string) {
	name := ""
	if ticket.AssignedTo != nil {
		if user, err := s.users.GetByID(ctx, *ticket.AssignedTo); err == nil {
			name = user.FullName
		}
	}
	s.writeLog(ctx, ticket.ID, domain.ActionAssigned, actor,
		fmt.Sprintf("assigned to %s", name), assigneeValue(oldAssigned), assigneeValue(ticket.AssignedTo))
	if ticket.AssignedTo != nil {
		s.publish(ctx, events.EventTicketAssigned, ticket.ID, actor, events.AssignedPayload{
			AssigneeID:   *ticket.AssignedTo,
			AssigneeName: name,
		})
	}
}

// writeLog appends an audit entry. Audit failures are swallowed: the state
// change already committed and must not be rolled back by a logging error.
func (s *TicketService) writeLog(ctx context.Context, ticketID string, action domain.LogAction, actor events.Actor, description, oldValue, newValue string) {
	entry := &domain.TicketLog{
		ID:          uuid.New().String(),
		TicketID:    ticketID,
		Action:      action,
		UserID:      actor.UserID,
		Description: description,
		OldValue:    oldValue,
		NewValue:    newValue,
		IPAddress:   actor.IP,
	}
	_ = s.logs.Create(ctx, entry)
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticketID string, actor events.Actor, payload interface{}) {
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

func (s *TicketService) statusNames(ctx context.Context, oldID, newID string) (string, string) {
	oldName, newName := oldID, newID
	if status, err := s.statuses.GetByID(ctx, oldID); err == nil {
		oldName = status.Name
	}
	if status, err := s.statuses.GetByID(ctx, newID); err == nil {
		newName = status.Name
	}
	return oldName, newName
}

func (s *TicketService) priorityNames(ctx context.Context, oldID, newID string) (string, string) {
	oldName, newName := oldID, newID
	if priority, err := s.priorities.GetByID(ctx, oldID); err == nil {
		oldName = priority.Name
	}
	if priority, err := s.priorities.GetByID(ctx, newID); err == nil {
		newName = priority.Name
	}
	return oldName, newName
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func assigneeValue(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}
