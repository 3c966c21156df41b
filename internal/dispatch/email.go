package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/spec-kit/cfrm-service/internal/config"
	"github.com/spec-kit/cfrm-service/internal/domain"
	util "github.com/spec-kit/cfrm-service/pkg/util"
)

// EmailProvider delivers messages through SendGrid.
type EmailProvider struct {
	cfg    config.EmailConfig
	client *sendgrid.Client
}

// NewEmailProvider validates credentials and builds the provider.
func NewEmailProvider(cfg config.EmailConfig) (*EmailProvider, error) {
	if cfg.APIKey == "" || cfg.FromEmail == "" {
		return nil, errors.New("email credentials incomplete")
	}
	return &EmailProvider{cfg: cfg, client: sendgrid.NewSendClient(cfg.APIKey)}, nil
}

// Type implements Provider.
func (p *EmailProvider) Type() domain.ChannelType {
	return domain.ChannelTypeEmail
}

// Send implements Provider.
func (p *EmailProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	subject := req.Subject
	if subject == "" {
		subject = "Notification"
	}
	from := mail.NewEmail(p.cfg.FromName, p.cfg.FromEmail)
	to := mail.NewEmail("", req.Recipient)
	message := mail.NewSingleEmail(from, subject, to, req.Content, req.Content)

	resp, err := p.client.SendWithContext(ctx, message)
	if err != nil {
		return nil, util.NewProviderDelivery("sendgrid", err)
	}
	if resp.StatusCode >= 300 {
		return nil, util.NewProviderDelivery("sendgrid",
			fmt.Errorf("status %d: %s", resp.StatusCode, resp.Body))
	}

	result := &SendResult{}
	if ids, ok := resp.Headers["X-Message-Id"]; ok && len(ids) > 0 {
		result.ExternalID = ids[0]
	}
	return result, nil
}

// ParseWebhook implements Provider. Inbound email is ingested through the
// inbound-parse payload's from/subject/text fields; anything else is ignored.
func (p *EmailProvider) ParseWebhook(payload map[string]any, headers map[string]string) (*WebhookResult, error) {
	result := &WebhookResult{EventType: domain.WebhookEmailReceived}
	from := stringField(payload, "from")
	body := stringField(payload, "text")
	if body == "" {
		body = stringField(payload, "subject")
	}
	if from != "" && body != "" {
		result.Inbound = append(result.Inbound, InboundMessage{
			From:    from,
			Body:    body,
			Subject: stringField(payload, "subject"),
		})
	}
	return result, nil
}

// Verify implements Provider. SendGrid has no cheap ping endpoint that a
// restricted key is guaranteed to reach, so verification only checks that the
// provider was configured.
func (p *EmailProvider) Verify(ctx context.Context) error {
	if p.cfg.APIKey == "" {
		return errors.New("email provider not configured")
	}
	return nil
}
