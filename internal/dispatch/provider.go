package dispatch

import (
	"context"

	"github.com/spec-kit/cfrm-service/internal/domain"
	util "github.com/spec-kit/cfrm-service/pkg/util"
)

// SendRequest is one logical outbound delivery.
type SendRequest struct {
	Recipient string
	Subject   string
	Content   string
}

// SendResult carries the provider-assigned identity of a sent message.
type SendResult struct {
	ExternalID string
	Metadata   map[string]any
}

// StatusUpdate is one normalized delivery-status report from a webhook.
type StatusUpdate struct {
	ExternalID   string
	Status       domain.MessageStatus
	ErrorMessage string
}

// InboundMessage is one normalized inbound submission from a webhook.
type InboundMessage struct {
	From    string
	Body    string
	Subject string
}

// WebhookResult is a provider payload translated into normalized terms.
type WebhookResult struct {
	EventType domain.WebhookEventType
	Statuses  []StatusUpdate
	Inbound   []InboundMessage
}

// Provider is one concrete messaging backend. Implementations translate
// between the uniform contract and the provider wire format; transient
// delivery failures are wrapped as provider-delivery errors and never
// propagate past the dispatcher.
type Provider interface {
	Type() domain.ChannelType
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
	ParseWebhook(payload map[string]any, headers map[string]string) (*WebhookResult, error)
	// Verify checks that the provider credentials are usable.
	Verify(ctx context.Context) error
}

// Registry holds the configured providers, built once at startup. Unknown
// channel types are rejected at configuration-load time.
type Registry struct {
	providers map[domain.ChannelType]Provider
}

// NewRegistry builds a registry from the given providers.
func NewRegistry(providers ...Provider) *Registry {
	reg := &Registry{providers: make(map[domain.ChannelType]Provider, len(providers))}
	for _, p := range providers {
		reg.providers[p.Type()] = p
	}
	return reg
}

// ForChannel resolves the provider for a channel.
func (r *Registry) ForChannel(channel *domain.Channel) (Provider, error) {
	return r.ForType(channel.Type)
}

// ForType resolves the provider for a channel type.
func (r *Registry) ForType(channelType domain.ChannelType) (Provider, error) {
	provider, ok := r.providers[channelType]
	if !ok {
		return nil, util.NewUnsupportedChannel(string(channelType))
	}
	return provider, nil
}

// Types lists the registered channel types.
func (r *Registry) Types() []domain.ChannelType {
	types := make([]domain.ChannelType, 0, len(r.providers))
	for t := range r.providers {
		types = append(types, t)
	}
	return types
}
