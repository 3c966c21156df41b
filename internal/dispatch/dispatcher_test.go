package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/cfrm-service/internal/domain"
	"github.com/spec-kit/cfrm-service/internal/observability"
	"github.com/spec-kit/cfrm-service/internal/repository"
	util "github.com/spec-kit/cfrm-service/pkg/util"
)

type fakeProvider struct {
	channelType domain.ChannelType
	sendResult  *SendResult
	sendErr     error
	sendDelay   time.Duration
	parseResult *WebhookResult
	parseErr    error
}

func (p *fakeProvider) Type() domain.ChannelType { return p.channelType }

func (p *fakeProvider) Send(ctx context.Context, _ SendRequest) (*SendResult, error) {
	if p.sendDelay > 0 {
		select {
		case <-time.After(p.sendDelay):
		case <-ctx.Done():
			return nil, util.NewProviderDelivery(string(p.channelType), ctx.Err())
		}
	}
	if p.sendErr != nil {
		return nil, p.sendErr
	}
	return p.sendResult, nil
}

func (p *fakeProvider) ParseWebhook(_ map[string]any, _ map[string]string) (*WebhookResult, error) {
	return p.parseResult, p.parseErr
}

func (p *fakeProvider) Verify(_ context.Context) error { return nil }

type memMessageRepo struct {
	mu       sync.Mutex
	messages map[string]*domain.Message
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{messages: map[string]*domain.Message{}}
}

func (r *memMessageRepo) Create(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.CreatedAt = time.Now().UTC()
	clone := *m
	r.messages[m.ID] = &clone
	return nil
}

func (r *memMessageRepo) Update(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *m
	r.messages[m.ID] = &clone
	return nil
}

func (r *memMessageRepo) GetByID(_ context.Context, id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, util.NewNotFound("message", nil)
	}
	clone := *m
	return &clone, nil
}

func (r *memMessageRepo) GetByExternalID(_ context.Context, externalID string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ExternalID == externalID {
			clone := *m
			return &clone, nil
		}
	}
	return nil, util.NewNotFound("message", nil)
}

func (r *memMessageRepo) MutateByExternalID(_ context.Context, externalID string, fn func(*domain.Message) error) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.messages {
		if m.ExternalID == externalID {
			clone := *m
			if err := fn(&clone); err != nil {
				return nil, err
			}
			r.messages[id] = &clone
			result := clone
			return &result, nil
		}
	}
	return nil, util.NewNotFound("message", nil)
}

func (r *memMessageRepo) ListWithFilter(_ context.Context, _ repository.MessageFilter) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Message, 0, len(r.messages))
	for _, m := range r.messages {
		out = append(out, *m)
	}
	return out, nil
}

type memWebhookRepo struct {
	mu     sync.Mutex
	events map[string]*domain.WebhookEvent
}

func newMemWebhookRepo() *memWebhookRepo {
	return &memWebhookRepo{events: map[string]*domain.WebhookEvent{}}
}

func (r *memWebhookRepo) Create(_ context.Context, e *domain.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.CreatedAt = time.Now().UTC()
	clone := *e
	r.events[e.ID] = &clone
	return nil
}

func (r *memWebhookRepo) Update(_ context.Context, e *domain.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *e
	r.events[e.ID] = &clone
	return nil
}

func (r *memWebhookRepo) GetByID(_ context.Context, id string) (*domain.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, util.NewNotFound("webhook_event", nil)
	}
	clone := *e
	return &clone, nil
}

func (r *memWebhookRepo) ListWithFilter(_ context.Context, _ repository.WebhookEventFilter) ([]domain.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.WebhookEvent, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, *e)
	}
	return out, nil
}

type memChannelRepo struct{ channels []domain.Channel }

func (r *memChannelRepo) GetByID(_ context.Context, id string) (*domain.Channel, error) {
	for i := range r.channels {
		if r.channels[i].ID == id {
			return &r.channels[i], nil
		}
	}
	return nil, util.NewNotFound("channel", nil)
}

func (r *memChannelRepo) GetByName(_ context.Context, name string) (*domain.Channel, error) {
	for i := range r.channels {
		if r.channels[i].Name == name {
			return &r.channels[i], nil
		}
	}
	return nil, util.NewNotFound("channel", nil)
}

func (r *memChannelRepo) GetActiveByType(_ context.Context, t domain.ChannelType) (*domain.Channel, error) {
	for i := range r.channels {
		if r.channels[i].Type == t {
			return &r.channels[i], nil
		}
	}
	return nil, util.NewNotFound("channel", nil)
}

func (r *memChannelRepo) List(_ context.Context, _ bool) ([]domain.Channel, error) {
	return r.channels, nil
}

func (r *memChannelRepo) Update(_ context.Context, _ *domain.Channel) error { return nil }

type fakeIntake struct {
	tickets []InboundMessage
	err     error
}

func (f *fakeIntake) CreateFromInbound(_ context.Context, _ *domain.Channel, inbound InboundMessage) (*domain.Ticket, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tickets = append(f.tickets, inbound)
	return &domain.Ticket{ID: "ticket-from-inbound"}, nil
}

const smsChannelID = "chan-sms"

func newTestDispatcher(provider Provider, timeout time.Duration) (*Dispatcher, *memMessageRepo, *memWebhookRepo) {
	messages := newMemMessageRepo()
	webhooks := newMemWebhookRepo()
	channels := &memChannelRepo{channels: []domain.Channel{
		{ID: smsChannelID, Name: "SMS", Type: domain.ChannelTypeSMS, IsActive: true},
	}}
	d := NewDispatcher(NewRegistry(provider), messages, webhooks, channels,
		nil, zap.NewNop(), observability.NewMetrics(), timeout)
	return d, messages, webhooks
}

func TestSendMessageSuccess(t *testing.T) {
	provider := &fakeProvider{channelType: domain.ChannelTypeSMS, sendResult: &SendResult{ExternalID: "SM1"}}
	d, messages, _ := newTestDispatcher(provider, time.Second)

	message, err := d.SendMessage(context.Background(), OutboundMessage{
		ChannelID: smsChannelID,
		Recipient: "+22670000001",
		Content:   "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.MessageStatusSent, message.Status)
	assert.Equal(t, "SM1", message.ExternalID)
	require.NotNil(t, message.SentAt)

	stored, err := messages.GetByID(context.Background(), message.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusSent, stored.Status)
}

func TestSendMessageProviderFailureRecordedNotReturned(t *testing.T) {
	provider := &fakeProvider{
		channelType: domain.ChannelTypeSMS,
		sendErr:     util.NewProviderDelivery("twilio", errors.New("status 500")),
	}
	d, messages, _ := newTestDispatcher(provider, time.Second)

	message, err := d.SendMessage(context.Background(), OutboundMessage{
		ChannelID: smsChannelID,
		Recipient: "+22670000001",
		Content:   "hello",
	})
	require.NoError(t, err, "delivery failure surfaces on the message, not as an error")

	assert.Equal(t, domain.MessageStatusFailed, message.Status)
	assert.Contains(t, message.ErrorMessage, "twilio")

	stored, err := messages.GetByID(context.Background(), message.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusFailed, stored.Status)
}

func TestSendMessageTimeoutFailsMessage(t *testing.T) {
	provider := &fakeProvider{
		channelType: domain.ChannelTypeSMS,
		sendDelay:   200 * time.Millisecond,
		sendResult:  &SendResult{ExternalID: "late"},
	}
	d, _, _ := newTestDispatcher(provider, 20*time.Millisecond)

	message, err := d.SendMessage(context.Background(), OutboundMessage{
		ChannelID: smsChannelID,
		Recipient: "+22670000001",
		Content:   "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusFailed, message.Status)
}

func TestSendMessageConfigurationErrorsPropagate(t *testing.T) {
	provider := &fakeProvider{channelType: domain.ChannelTypeWhatsApp}
	d, _, _ := newTestDispatcher(provider, time.Second)

	// channel exists but its type has no registered provider
	_, err := d.SendMessage(context.Background(), OutboundMessage{
		ChannelID: smsChannelID,
		Recipient: "+22670000001",
		Content:   "hello",
	})
	require.Error(t, err)

	_, err = d.SendMessage(context.Background(), OutboundMessage{
		ChannelID: "ghost",
		Recipient: "+22670000001",
		Content:   "hello",
	})
	require.Error(t, err)
}

func TestProcessWebhookAppliesStatusUpdate(t *testing.T) {
	provider := &fakeProvider{
		channelType: domain.ChannelTypeSMS,
		sendResult:  &SendResult{ExternalID: "SM1"},
		parseResult: &WebhookResult{
			EventType: domain.WebhookDeliveryStatus,
			Statuses:  []StatusUpdate{{ExternalID: "SM1", Status: domain.MessageStatusDelivered}},
		},
	}
	d, messages, webhooks := newTestDispatcher(provider, time.Second)
	ctx := context.Background()

	sent, err := d.SendMessage(ctx, OutboundMessage{ChannelID: smsChannelID, Recipient: "+226", Content: "x"})
	require.NoError(t, err)

	event, err := d.ProcessWebhook(ctx, smsChannelID, map[string]any{"MessageSid": "SM1"}, nil, "10.0.0.1")
	require.NoError(t, err)

	assert.True(t, event.Processed)
	require.NotNil(t, event.MessageID)
	assert.Equal(t, sent.ID, *event.MessageID)

	updated, err := messages.GetByID(ctx, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusDelivered, updated.Status)

	stored, err := webhooks.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", stored.SourceIP)
}

func TestProcessWebhookUnresolvedMessageStillRecorded(t *testing.T) {
	provider := &fakeProvider{
		channelType: domain.ChannelTypeSMS,
		parseResult: &WebhookResult{
			EventType: domain.WebhookDeliveryStatus,
			Statuses:  []StatusUpdate{{ExternalID: "unknown-sid", Status: domain.MessageStatusDelivered}},
		},
	}
	d, _, webhooks := newTestDispatcher(provider, time.Second)

	event, err := d.ProcessWebhook(context.Background(), smsChannelID, map[string]any{"MessageSid": "unknown-sid"}, nil, "")
	require.NoError(t, err, "unknown external id is not a caller error")

	assert.True(t, event.Processed, "event is marked processed for audit")
	assert.Contains(t, event.ErrorMessage, "unknown-sid")
	assert.Nil(t, event.MessageID)

	stored, err := webhooks.GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.True(t, stored.Processed)
}

func TestProcessWebhookInboundCreatesTicket(t *testing.T) {
	provider := &fakeProvider{
		channelType: domain.ChannelTypeSMS,
		parseResult: &WebhookResult{
			EventType: domain.WebhookSMSReceived,
			Inbound:   []InboundMessage{{From: "+22670000001", Body: "new complaint"}},
		},
	}
	d, _, _ := newTestDispatcher(provider, time.Second)
	intake := &fakeIntake{}
	d.SetIntake(intake)

	event, err := d.ProcessWebhook(context.Background(), smsChannelID, map[string]any{"Body": "new complaint"}, nil, "")
	require.NoError(t, err)

	require.Len(t, intake.tickets, 1)
	assert.Equal(t, "+22670000001", intake.tickets[0].From)
	require.NotNil(t, event.TicketID)
	assert.Equal(t, "ticket-from-inbound", *event.TicketID)
}

func TestProcessWebhookParseErrorKeptOnEvent(t *testing.T) {
	provider := &fakeProvider{
		channelType: domain.ChannelTypeSMS,
		parseErr:    errors.New("malformed payload"),
	}
	d, _, _ := newTestDispatcher(provider, time.Second)

	event, err := d.ProcessWebhook(context.Background(), smsChannelID, map[string]any{"junk": true}, nil, "")
	require.NoError(t, err)
	assert.False(t, event.Processed)
	assert.Equal(t, "malformed payload", event.ErrorMessage)
}
