package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/cfrm-service/internal/domain"
	"github.com/spec-kit/cfrm-service/internal/observability"
	"github.com/spec-kit/cfrm-service/internal/persistence"
	"github.com/spec-kit/cfrm-service/internal/repository"
	util "github.com/spec-kit/cfrm-service/pkg/util"
)

// TicketIntake turns inbound webhook messages into tickets. Implemented by
// the ticket service; declared here to keep the dependency pointing inward.
type TicketIntake interface {
	CreateFromInbound(ctx context.Context, channel *domain.Channel, inbound InboundMessage) (*domain.Ticket, error)
}

// OutboundMessage is one requested delivery through a channel.
type OutboundMessage struct {
	ChannelID  string
	Recipient  string
	Subject    string
	Content    string
	TemplateID *string
	TicketID   *string
	ResponseID *string
}

// Dispatcher routes outbound messages to providers and reconciles provider
// webhooks back onto persisted messages.
type Dispatcher struct {
	registry *Registry
	messages repository.MessageRepository
	webhooks repository.WebhookEventRepository
	channels repository.ChannelRepository
	redis    *persistence.Redis
	intake   TicketIntake
	logger   *zap.Logger
	metrics  *observability.Metrics
	timeout  time.Duration
}

// NewDispatcher instantiates dispatcher.
func NewDispatcher(
	registry *Registry,
	messages repository.MessageRepository,
	webhooks repository.WebhookEventRepository,
	channels repository.ChannelRepository,
	redis *persistence.Redis,
	logger *zap.Logger,
	metrics *observability.Metrics,
	timeout time.Duration,
) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		messages: messages,
		webhooks: webhooks,
		channels: channels,
		redis:    redis,
		logger:   logger,
		metrics:  metrics,
		timeout:  timeout,
	}
}

// SetIntake wires the inbound ticket creator. Set after construction because
// the ticket service itself depends on the dispatcher for notifications.
func (d *Dispatcher) SetIntake(intake TicketIntake) {
	d.intake = intake
}

// SendMessage delivers one message through the channel's provider. The
// message row is persisted before the provider call, so a crash mid-send
// leaves an auditable pending record. Provider failures are recorded on the
// message and do not surface as errors; configuration problems (unknown
// channel, unsupported type) do.
func (d *Dispatcher) SendMessage(ctx context.Context, out OutboundMessage) (*domain.Message, error) {
	if out.Recipient == "" {
		return nil, util.NewValidationError("recipient is required", nil)
	}
	if out.Content == "" {
		return nil, util.NewValidationError("content is required", nil)
	}

	channel, err := d.channels.GetByID(ctx, out.ChannelID)
	if err != nil {
		return nil, err
	}
	provider, err := d.registry.ForChannel(channel)
	if err != nil {
		return nil, err
	}

	message := &domain.Message{
		ID:         uuid.New().String(),
		ChannelID:  channel.ID,
		Recipient:  out.Recipient,
		Subject:    out.Subject,
		Content:    out.Content,
		TemplateID: out.TemplateID,
		TicketID:   out.TicketID,
		ResponseID: out.ResponseID,
		Status:     domain.MessageStatusPending,
	}
	if err := d.messages.Create(ctx, message); err != nil {
		return nil, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result, sendErr := provider.Send(sendCtx, SendRequest{
		Recipient: out.Recipient,
		Subject:   out.Subject,
		Content:   out.Content,
	})
	now := time.Now().UTC()
	if sendErr != nil {
		message.MarkFailed(sendErr.Error())
		if err := d.messages.Update(ctx, message); err != nil {
			return nil, err
		}
		d.metrics.RecordDispatch(string(channel.Type), "failed")
		d.logger.Warn("message delivery failed",
			zap.String("message_id", message.ID),
			zap.String("channel", channel.Name),
			zap.Error(sendErr))
		return message, nil
	}

	message.MarkSent(result.ExternalID, now)
	if err := d.messages.Update(ctx, message); err != nil {
		return nil, err
	}
	d.metrics.RecordDispatch(string(channel.Type), "sent")
	d.logger.Info("message sent",
		zap.String("message_id", message.ID),
		zap.String("channel", channel.Name),
		zap.String("external_id", message.ExternalID))
	return message, nil
}

// ProcessWebhook records an inbound provider callback and reconciles it:
// delivery reports are applied to the matching message's state machine,
// inbound submissions become tickets. The raw payload is persisted before
// anything else, so malformed or unresolvable callbacks remain auditable.
func (d *Dispatcher) ProcessWebhook(ctx context.Context, channelID string, payload map[string]any, headers map[string]string, sourceIP string) (*domain.WebhookEvent, error) {
	channel, err := d.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	provider, err := d.registry.ForChannel(channel)
	if err != nil {
		return nil, err
	}

	event := &domain.WebhookEvent{
		ID:        uuid.New().String(),
		EventType: defaultEventType(channel.Type),
		ChannelID: channel.ID,
		Payload:   payload,
		Headers:   headers,
		SourceIP:  sourceIP,
	}
	if err := d.webhooks.Create(ctx, event); err != nil {
		return nil, err
	}

	result, parseErr := provider.ParseWebhook(payload, headers)
	now := time.Now().UTC()
	if parseErr != nil {
		event.MarkFailed(parseErr.Error())
		if err := d.webhooks.Update(ctx, event); err != nil {
			return nil, err
		}
		d.metrics.RecordWebhook(string(channel.Type), false)
		return event, nil
	}
	event.EventType = result.EventType

	resolved := true
	for _, update := range result.Statuses {
		if d.alreadySeen(ctx, channel.Type, update) {
			continue
		}
		message, err := d.messages.MutateByExternalID(ctx, update.ExternalID, func(m *domain.Message) error {
			m.ApplyStatus(update.Status, update.ErrorMessage, now)
			return nil
		})
		if err != nil {
			if util.IsNotFound(err) {
				resolved = false
				event.MarkFailed(fmt.Sprintf("no message for external id %s", update.ExternalID))
				d.logger.Warn("webhook references unknown message",
					zap.String("event_id", event.ID),
					zap.String("external_id", update.ExternalID))
				continue
			}
			return nil, err
		}
		if event.MessageID == nil {
			event.MessageID = &message.ID
			event.TicketID = message.TicketID
		}
	}

	for _, inbound := range result.Inbound {
		if d.intake == nil {
			event.MarkFailed("inbound intake not configured")
			resolved = false
			continue
		}
		ticket, err := d.intake.CreateFromInbound(ctx, channel, inbound)
		if err != nil {
			event.MarkFailed(err.Error())
			resolved = false
			d.logger.Error("inbound message rejected",
				zap.String("event_id", event.ID),
				zap.Error(err))
			continue
		}
		if event.TicketID == nil {
			event.TicketID = &ticket.ID
		}
	}

	event.MarkProcessed(now)
	if err := d.webhooks.Update(ctx, event); err != nil {
		return nil, err
	}
	d.metrics.RecordWebhook(string(channel.Type), resolved)
	return event, nil
}

// TestConnection verifies the provider credentials behind a channel.
func (d *Dispatcher) TestConnection(ctx context.Context, channelID string) error {
	channel, err := d.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	provider, err := d.registry.ForChannel(channel)
	if err != nil {
		return err
	}
	verifyCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return provider.Verify(verifyCtx)
}

// alreadySeen is a best-effort redis dedup for repeated provider callbacks.
// The message state machine is idempotent regardless, so redis being down
// only costs a redundant row lock.
func (d *Dispatcher) alreadySeen(ctx context.Context, channelType domain.ChannelType, update StatusUpdate) bool {
	if d.redis == nil {
		return false
	}
	key := fmt.Sprintf("%s:%s:%s", channelType, update.ExternalID, update.Status)
	first, err := d.redis.MarkEventSeen(ctx, key, 24*time.Hour)
	if err != nil {
		return false
	}
	return !first
}

func defaultEventType(channelType domain.ChannelType) domain.WebhookEventType {
	switch channelType {
	case domain.ChannelTypeSMS:
		return domain.WebhookSMSReceived
	case domain.ChannelTypeWhatsApp:
		return domain.WebhookWhatsAppReceived
	case domain.ChannelTypeEmail:
		return domain.WebhookEmailReceived
	default:
		return domain.WebhookDeliveryStatus
	}
}
