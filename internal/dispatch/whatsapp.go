package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spec-kit/cfrm-service/internal/config"
	"github.com/spec-kit/cfrm-service/internal/domain"
	util "github.com/spec-kit/cfrm-service/pkg/util"
)

var whatsappStatusMap = map[string]domain.MessageStatus{
	"sent":      domain.MessageStatusSent,
	"delivered": domain.MessageStatusDelivered,
	"failed":    domain.MessageStatusFailed,
	"read":      domain.MessageStatusRead,
}

// WhatsAppProvider sends messages through the WhatsApp Business (Meta Graph)
// API.
type WhatsAppProvider struct {
	cfg    config.WhatsAppConfig
	client *http.Client
}

// NewWhatsAppProvider validates credentials and builds the provider.
func NewWhatsAppProvider(cfg config.WhatsAppConfig, client *http.Client) (*WhatsAppProvider, error) {
	if cfg.AccessToken == "" || cfg.PhoneNumberID == "" {
		return nil, errors.New("whatsapp credentials incomplete")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &WhatsAppProvider{cfg: cfg, client: client}, nil
}

// Type implements Provider.
func (p *WhatsAppProvider) Type() domain.ChannelType {
	return domain.ChannelTypeWhatsApp
}

// Send implements Provider.
func (p *WhatsAppProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	endpoint := fmt.Sprintf("%s/%s/messages", p.cfg.APIBaseURL, p.cfg.PhoneNumberID)
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                req.Recipient,
		"type":              "text",
		"text":              map[string]any{"body": req.Content},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, util.NewProviderDelivery("whatsapp", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, util.NewProviderDelivery("whatsapp", err)
	}
	if resp.StatusCode >= 400 {
		return nil, util.NewProviderDelivery("whatsapp",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var parsed struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, util.NewProviderDelivery("whatsapp", err)
	}
	result := &SendResult{}
	if len(parsed.Messages) > 0 {
		result.ExternalID = parsed.Messages[0].ID
	}
	return result, nil
}

// ParseWebhook implements Provider. Meta wraps everything in
// entry[].changes[].value: inbound texts under value.messages, delivery
// reports under value.statuses.
func (p *WhatsAppProvider) ParseWebhook(payload map[string]any, headers map[string]string) (*WebhookResult, error) {
	result := &WebhookResult{EventType: domain.WebhookWhatsAppReceived}

	entries, _ := payload["entry"].([]any)
	for _, rawEntry := range entries {
		entry, ok := rawEntry.(map[string]any)
		if !ok {
			continue
		}
		changes, _ := entry["changes"].([]any)
		for _, rawChange := range changes {
			change, ok := rawChange.(map[string]any)
			if !ok {
				continue
			}
			value, ok := change["value"].(map[string]any)
			if !ok {
				continue
			}

			messages, _ := value["messages"].([]any)
			for _, rawMsg := range messages {
				msg, ok := rawMsg.(map[string]any)
				if !ok {
					continue
				}
				from := stringField(msg, "from")
				text, _ := msg["text"].(map[string]any)
				body := stringField(text, "body")
				if from != "" && body != "" {
					result.Inbound = append(result.Inbound, InboundMessage{From: from, Body: body})
				}
			}

			statuses, _ := value["statuses"].([]any)
			for _, rawStatus := range statuses {
				st, ok := rawStatus.(map[string]any)
				if !ok {
					continue
				}
				externalID := stringField(st, "id")
				mapped, known := whatsappStatusMap[stringField(st, "status")]
				if externalID == "" || !known {
					continue
				}
				update := StatusUpdate{ExternalID: externalID, Status: mapped}
				if errList, ok := st["errors"].([]any); ok && len(errList) > 0 {
					if errMap, ok := errList[0].(map[string]any); ok {
						update.ErrorMessage = stringField(errMap, "title")
					}
				}
				result.Statuses = append(result.Statuses, update)
			}
		}
	}

	if len(result.Statuses) > 0 && len(result.Inbound) == 0 {
		result.EventType = domain.WebhookDeliveryStatus
	}
	return result, nil
}

// Verify implements Provider.
func (p *WhatsAppProvider) Verify(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/%s", p.cfg.APIBaseURL, p.cfg.PhoneNumberID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.AccessToken)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return util.NewProviderDelivery("whatsapp", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return util.NewProviderDelivery("whatsapp", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

// VerifyToken returns the webhook handshake token.
func (p *WhatsAppProvider) VerifyToken() string {
	return p.cfg.VerifyToken
}
