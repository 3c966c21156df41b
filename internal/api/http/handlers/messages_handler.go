package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cfrm-service/internal/api/dto"
	"github.com/spec-kit/cfrm-service/internal/dispatch"
	"github.com/spec-kit/cfrm-service/internal/domain"
	"github.com/spec-kit/cfrm-service/internal/repository"
)

// MessagesHandler exposes message tracking endpoints.
type MessagesHandler struct {
	messages   repository.MessageRepository
	dispatcher *dispatch.Dispatcher
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(messages repository.MessageRepository, dispatcher *dispatch.Dispatcher) *MessagesHandler {
	return &MessagesHandler{messages: messages, dispatcher: dispatcher}
}

// List handles GET /messages.
func (h *MessagesHandler) List(c *fiber.Ctx) error {
	filter := repository.MessageFilter{
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	if v := c.Query("channel_id"); v != "" {
		filter.ChannelID = &v
	}
	if v := c.Query("ticket_id"); v != "" {
		filter.TicketID = &v
	}
	if v := c.Query("status"); v != "" {
		status := domain.MessageStatus(v)
		filter.Status = &status
	}
	if v := c.Query("created_from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.CreatedFrom = &t
		}
	}
	if v := c.Query("created_to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.CreatedTo = &t
		}
	}

	messages, err := h.messages.ListWithFilter(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromMessages(messages)})
}

// Get handles GET /messages/:id.
func (h *MessagesHandler) Get(c *fiber.Ctx) error {
	message, err := h.messages.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromMessage(message)})
}

// Resend handles POST /messages/:id/resend. A new message row is created;
// the failed original keeps its terminal state for the audit trail.
func (h *MessagesHandler) Resend(c *fiber.Ctx) error {
	original, err := h.messages.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	message, err := h.dispatcher.SendMessage(c.Context(), dispatch.OutboundMessage{
		ChannelID:  original.ChannelID,
		Recipient:  original.Recipient,
		Subject:    original.Subject,
		Content:    original.Content,
		TemplateID: original.TemplateID,
		TicketID:   original.TicketID,
		ResponseID: original.ResponseID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromMessage(message)})
}
