package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/cfrm-service/internal/dispatch"
	"github.com/spec-kit/cfrm-service/internal/domain"
	"github.com/spec-kit/cfrm-service/internal/events"
	"github.com/spec-kit/cfrm-service/internal/repository"
	"github.com/spec-kit/cfrm-service/internal/worker"
	util "github.com/spec-kit/cfrm-service/pkg/util"
)

const defaultTemplateLanguage = "fr"

// NotificationService listens to ticket events and enqueues outbound
// notifications. Delivery happens on the worker pool, never inline in the
// triggering request.
type NotificationService struct {
	tickets    repository.TicketRepository
	responses  repository.ResponseRepository
	channels   repository.ChannelRepository
	categories repository.CategoryRepository
	priorities repository.PriorityRepository
	templates  *TemplateService
	dispatcher events.Dispatcher
	pool       *worker.NotificationWorker
	logger     *zap.Logger
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	TicketRepo   repository.TicketRepository
	ResponseRepo repository.ResponseRepository
	ChannelRepo  repository.ChannelRepository
	CategoryRepo repository.CategoryRepository
	PriorityRepo repository.PriorityRepository
	Templates    *TemplateService
	Dispatcher   events.Dispatcher
	Pool         *worker.NotificationWorker
	Logger       *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		tickets:    deps.TicketRepo,
		responses:  deps.ResponseRepo,
		channels:   deps.ChannelRepo,
		categories: deps.CategoryRepo,
		priorities: deps.PriorityRepo,
		templates:  deps.Templates,
		dispatcher: deps.Dispatcher,
		pool:       deps.Pool,
		logger:     deps.Logger,
	}
}

// RegisterHandlers subscribes the notification flows to ticket events.
func (s *NotificationService) RegisterHandlers() {
	s.dispatcher.Subscribe(events.EventTicketCreated, s.onTicketCreated)
	s.dispatcher.Subscribe(events.EventResponseAdded, s.onResponseAdded)
	s.dispatcher.Subscribe(events.EventTicketEscalated, s.onTicketEscalated)
	s.dispatcher.Subscribe(events.EventTicketClosed, s.onTicketClosed)
}

func (s *NotificationService) onTicketCreated(ctx context.Context, event events.Event) error {
	return s.notifySubmitter(ctx, event.TicketID, domain.TemplateConfirmation, nil)
}

func (s *NotificationService) onResponseAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ResponseAddedPayload)
	if !ok || payload.IsInternal {
		return nil
	}
	response, err := s.responses.GetByID(ctx, payload.ResponseID)
	if err != nil {
		return err
	}
	extra := map[string]string{
		"response_content": response.Content,
		"responder":        responderName(event.Actor),
	}
	return s.notifySubmitter(ctx, event.TicketID, domain.TemplateResponse, extra)
}

func (s *NotificationService) onTicketEscalated(ctx context.Context, event events.Event) error {
	return s.notifySubmitter(ctx, event.TicketID, domain.TemplateEscalation, nil)
}

func (s *NotificationService) onTicketClosed(ctx context.Context, event events.Event) error {
	return s.notifySubmitter(ctx, event.TicketID, domain.TemplateClosure, nil)
}

// notifySubmitter renders the purpose's template for the ticket's channel
// and enqueues the delivery. Tickets without a reply address and anonymous
// tickets are silently skipped. A missing template falls back to the raw
// response content when one was supplied, otherwise the notification is
// skipped with a log line.
func (s *NotificationService) notifySubmitter(ctx context.Context, ticketID string, purpose domain.TemplatePurpose, extra map[string]string) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if !ticket.HasContact() {
		return nil
	}
	channel, err := s.channels.GetByID(ctx, ticket.ChannelID)
	if err != nil {
		return err
	}

	values := s.templateValues(ctx, ticket)
	for k, v := range extra {
		values[k] = v
	}

	var subject, content string
	var templateID *string
	rendered, err := s.templates.Render(ctx, channel.Type, purpose, defaultTemplateLanguage, values)
	switch {
	case err == nil:
		subject = rendered.Subject
		content = rendered.Content
		templateID = &rendered.Template.ID
		if len(rendered.Unresolved) > 0 {
			s.logger.Warn("template rendered with unresolved placeholders",
				zap.String("ticket_id", ticket.ID),
				zap.String("template", rendered.Template.Name),
				zap.Strings("placeholders", rendered.Unresolved))
		}
	case util.IsTemplateNotFound(err):
		raw, ok := extra["response_content"]
		if !ok {
			s.logger.Info("no template for notification, skipping",
				zap.String("ticket_id", ticket.ID),
				zap.String("purpose", string(purpose)),
				zap.String("channel_type", string(channel.Type)))
			return nil
		}
		content = raw
	default:
		return err
	}

	s.pool.Enqueue(dispatch.OutboundMessage{
		ChannelID:  channel.ID,
		Recipient:  ticket.ContactRecipient(),
		Subject:    subject,
		Content:    content,
		TemplateID: templateID,
		TicketID:   &ticket.ID,
	})
	return nil
}

// templateValues builds the standard placeholder set for a ticket.
func (s *NotificationService) templateValues(ctx context.Context, ticket *domain.Ticket) map[string]string {
	values := map[string]string{
		"ticket_id": ticket.ID,
		"title":     ticket.Title,
	}
	if category, err := s.categories.GetByID(ctx, ticket.CategoryID); err == nil {
		values["category"] = category.Name
	}
	if priority, err := s.priorities.GetByID(ctx, ticket.PriorityID); err == nil {
		values["priority"] = priority.Name
	}
	return values
}

func responderName(actor events.Actor) string {
	if actor.Name != "" {
		return actor.Name
	}
	return "agent"
}
