package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cfrm-service/internal/api/dto"
	"github.com/spec-kit/cfrm-service/internal/dispatch"
	"github.com/spec-kit/cfrm-service/internal/repository"
	"github.com/spec-kit/cfrm-service/internal/service"
)

// ChannelsHandler exposes channel administration endpoints.
type ChannelsHandler struct {
	channels   repository.ChannelRepository
	dispatcher *dispatch.Dispatcher
	stats      *service.StatsService
	validate   *validator.Validate
}

// NewChannelsHandler constructs handler.
func NewChannelsHandler(channels repository.ChannelRepository, dispatcher *dispatch.Dispatcher, stats *service.StatsService) *ChannelsHandler {
	return &ChannelsHandler{channels: channels, dispatcher: dispatcher, stats: stats, validate: validator.New()}
}

// List handles GET /channels.
func (h *ChannelsHandler) List(c *fiber.Ctx) error {
	activeOnly := c.Query("active") == "true"
	channels, err := h.channels.List(c.Context(), activeOnly)
	if err != nil {
		return err
	}
	out := make([]dto.ChannelResponse, 0, len(channels))
	for i := range channels {
		out = append(out, dto.FromChannel(&channels[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /channels/:id.
func (h *ChannelsHandler) Get(c *fiber.Ctx) error {
	channel, err := h.channels.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromChannel(channel)})
}

// Update handles PATCH /channels/:id.
func (h *ChannelsHandler) Update(c *fiber.Ctx) error {
	var req dto.ChannelUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	channel, err := h.channels.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if req.Name != nil {
		channel.Name = *req.Name
	}
	if req.IsActive != nil {
		channel.IsActive = *req.IsActive
	}
	if req.Configuration != nil {
		channel.Configuration = req.Configuration
	}
	if err := h.channels.Update(c.Context(), channel); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromChannel(channel)})
}

// TestConnection handles POST /channels/:id/test-connection.
func (h *ChannelsHandler) TestConnection(c *fiber.Ctx) error {
	if err := h.dispatcher.TestConnection(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "ok"}})
}

// SendTestMessage handles POST /channels/:id/send-test-message.
func (h *ChannelsHandler) SendTestMessage(c *fiber.Ctx) error {
	var req dto.SendTestMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	message, err := h.dispatcher.SendMessage(c.Context(), dispatch.OutboundMessage{
		ChannelID: c.Params("id"),
		Recipient: req.Recipient,
		Content:   req.Content,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromMessage(message)})
}

// DayStats handles GET /channels/:id/stats?date=YYYY-MM-DD.
func (h *ChannelsHandler) DayStats(c *fiber.Ctx) error {
	day := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		day = parsed
	}
	stats, err := h.stats.ChannelDay(c.Context(), c.Params("id"), day)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"channel_id":         stats.ChannelID,
		"date":               day.Format("2006-01-02"),
		"messages_sent":      stats.MessagesSent,
		"messages_delivered": stats.MessagesDelivered,
		"messages_failed":    stats.MessagesFailed,
		"messages_read":      stats.MessagesRead,
		"success_rate":       stats.SuccessRate,
	}})
}
