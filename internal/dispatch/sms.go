package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spec-kit/cfrm-service/internal/config"
	"github.com/spec-kit/cfrm-service/internal/domain"
	util "github.com/spec-kit/cfrm-service/pkg/util"
)

// twilioStatusMap translates Twilio delivery states to the local state
// machine. Intermediate queue states do not map to a transition.
var twilioStatusMap = map[string]domain.MessageStatus{
	"sent":        domain.MessageStatusSent,
	"delivered":   domain.MessageStatusDelivered,
	"undelivered": domain.MessageStatusFailed,
	"failed":      domain.MessageStatusFailed,
	"read":        domain.MessageStatusRead,
}

// SMSProvider sends SMS through the Twilio Messages API.
type SMSProvider struct {
	cfg    config.TwilioConfig
	client *http.Client
}

// NewSMSProvider validates credentials and builds the provider.
func NewSMSProvider(cfg config.TwilioConfig, client *http.Client) (*SMSProvider, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.PhoneNumber == "" {
		return nil, errors.New("twilio credentials incomplete")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &SMSProvider{cfg: cfg, client: client}, nil
}

// Type implements Provider.
func (p *SMSProvider) Type() domain.ChannelType {
	return domain.ChannelTypeSMS
}

// Send implements Provider.
func (p *SMSProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", p.cfg.BaseURL, p.cfg.AccountSID)
	form := url.Values{}
	form.Set("To", req.Recipient)
	form.Set("From", p.cfg.PhoneNumber)
	form.Set("Body", req.Content)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(p.cfg.AccountSID, p.cfg.AuthToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, util.NewProviderDelivery("twilio", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, util.NewProviderDelivery("twilio", err)
	}
	if resp.StatusCode >= 400 {
		return nil, util.NewProviderDelivery("twilio",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var parsed struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, util.NewProviderDelivery("twilio", err)
	}
	return &SendResult{ExternalID: parsed.SID}, nil
}

// ParseWebhook implements Provider. Twilio posts flat form fields: status
// callbacks carry MessageSid/MessageStatus, inbound SMS carry From/Body.
func (p *SMSProvider) ParseWebhook(payload map[string]any, headers map[string]string) (*WebhookResult, error) {
	messageSid := stringField(payload, "MessageSid")
	messageStatus := stringField(payload, "MessageStatus")

	if messageStatus != "" {
		result := &WebhookResult{EventType: domain.WebhookDeliveryStatus}
		if status, ok := twilioStatusMap[messageStatus]; ok && messageSid != "" {
			result.Statuses = append(result.Statuses, StatusUpdate{
				ExternalID:   messageSid,
				Status:       status,
				ErrorMessage: stringField(payload, "ErrorMessage"),
			})
		}
		return result, nil
	}

	from := stringField(payload, "From")
	body := stringField(payload, "Body")
	result := &WebhookResult{EventType: domain.WebhookSMSReceived}
	if from != "" && body != "" {
		result.Inbound = append(result.Inbound, InboundMessage{From: from, Body: body})
	}
	return result, nil
}

// Verify implements Provider.
func (p *SMSProvider) Verify(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s.json", p.cfg.BaseURL, p.cfg.AccountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	httpReq.SetBasicAuth(p.cfg.AccountSID, p.cfg.AuthToken)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return util.NewProviderDelivery("twilio", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return util.NewProviderDelivery("twilio", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

func stringField(payload map[string]any, key string) string {
	if val, ok := payload[key].(string); ok {
		return val
	}
	return ""
}
