package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cfrm-service/internal/dispatch"
)

// WebhooksHandler ingests provider callbacks.
type WebhooksHandler struct {
	dispatcher      *dispatch.Dispatcher
	metaVerifyToken string
}

// NewWebhooksHandler constructs handler.
func NewWebhooksHandler(dispatcher *dispatch.Dispatcher, metaVerifyToken string) *WebhooksHandler {
	return &WebhooksHandler{dispatcher: dispatcher, metaVerifyToken: metaVerifyToken}
}

// Receive handles POST /webhooks/:channelID. The body may be JSON (Meta,
// SendGrid) or form-encoded (Twilio); both are flattened into one payload
// map before reconciliation. Providers expect a 2xx quickly, so processing
// failures are noted on the stored event, not returned.
func (h *WebhooksHandler) Receive(c *fiber.Ctx) error {
	payload := map[string]any{}
	body := c.Body()
	if len(body) > 0 && json.Valid(body) {
		if err := json.Unmarshal(body, &payload); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid payload")
		}
	} else {
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			payload[string(key)] = string(value)
		})
	}
	if len(payload) == 0 {
		return fiber.NewError(http.StatusBadRequest, "empty payload")
	}

	headers := map[string]string{}
	for _, name := range []string{"Content-Type", "User-Agent", "X-Twilio-Signature", "X-Hub-Signature-256"} {
		if value := c.Get(name); value != "" {
			headers[name] = value
		}
	}

	event, err := h.dispatcher.ProcessWebhook(c.Context(), c.Params("channelID"), payload, headers, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"event_id":  event.ID,
		"processed": event.Processed,
	}})
}

// VerifyMeta handles GET /webhooks/:channelID, the Meta subscription
// handshake: echo hub.challenge when the verify token matches.
func (h *WebhooksHandler) VerifyMeta(c *fiber.Ctx) error {
	if c.Query("hub.mode") != "subscribe" {
		return fiber.NewError(http.StatusBadRequest, "unsupported mode")
	}
	if h.metaVerifyToken == "" || c.Query("hub.verify_token") != h.metaVerifyToken {
		return fiber.NewError(http.StatusForbidden, "verify token mismatch")
	}
	return c.SendString(c.Query("hub.challenge"))
}
