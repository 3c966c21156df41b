package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cfrm-service/internal/api/dto"
	"github.com/spec-kit/cfrm-service/internal/auth"
	"github.com/spec-kit/cfrm-service/internal/events"
	"github.com/spec-kit/cfrm-service/internal/repository"
	"github.com/spec-kit/cfrm-service/internal/service"
)

// TicketsHandler exposes the ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets  *service.TicketService
	validate *validator.Validate
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, validate: validator.New()}
}

// actorFrom builds the acting identity from the request. Public intake has
// no principal; the actor is then anonymous with just the source IP.
func actorFrom(c *fiber.Ctx) events.Actor {
	actor := events.Actor{IP: c.IP()}
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.User != nil {
		actor.UserID = &principal.User.ID
		actor.Name = principal.User.FullName
	}
	return actor
}

// Create handles POST /tickets. Open to unauthenticated submitters: public
// intake is the whole point of the portal channel.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.TicketCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	ticket, err := h.tickets.CreateTicket(c.Context(), actorFrom(c), service.TicketCreateInput{
		Title:             req.Title,
		Content:           req.Content,
		IsAnonymous:       req.IsAnonymous,
		CategoryID:        req.CategoryID,
		PriorityID:        req.PriorityID,
		ChannelID:         req.ChannelID,
		SubmitterName:     req.SubmitterName,
		SubmitterPhone:    req.SubmitterPhone,
		SubmitterEmail:    req.SubmitterEmail,
		SubmitterLocation: req.SubmitterLocation,
		Tags:              req.Tags,
		Metadata:          req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// List handles GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	filter := repository.TicketFilter{
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	if v := c.Query("category_id"); v != "" {
		filter.CategoryID = &v
	}
	if v := c.Query("priority_id"); v != "" {
		filter.PriorityID = &v
	}
	if v := c.Query("status_id"); v != "" {
		filter.StatusID = &v
	}
	if v := c.Query("channel_id"); v != "" {
		filter.ChannelID = &v
	}
	if v := c.Query("assigned_to"); v != "" {
		filter.AssignedTo = &v
	}
	if v := c.Query("is_psea"); v != "" {
		isPSEA := v == "true" || v == "1"
		filter.IsPSEA = &isPSEA
	}
	if v := c.Query("search"); v != "" {
		filter.SearchTerm = &v
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

	tickets, err := h.tickets.ListTickets(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTickets(tickets)})
}

// Get handles GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	overdue, err := h.tickets.IsOverdue(c.Context(), ticket)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket), "meta": fiber.Map{
		"is_overdue": overdue,
		"age_days":   ticket.DaysSinceCreation(time.Now().UTC()),
	}})
}

// Update handles PATCH /tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	var req dto.TicketUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	ticket, err := h.tickets.UpdateTicket(c.Context(), actorFrom(c), c.Params("id"), service.TicketUpdateInput{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.CategoryID,
		PriorityID: req.PriorityID,
		StatusID:   req.StatusID,
		AssignedTo: req.AssignedTo,
		Tags:       req.Tags,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Assign handles POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	var req dto.TicketAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ticket, err := h.tickets.Assign(c.Context(), actorFrom(c), c.Params("id"), req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Close handles POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	ticket, err := h.tickets.Close(c.Context(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Reopen handles POST /tickets/:id/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	ticket, err := h.tickets.Reopen(c.Context(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Escalate handles POST /tickets/:id/escalate.
func (h *TicketsHandler) Escalate(c *fiber.Ctx) error {
	var req dto.TicketEscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ticket, err := h.tickets.Escalate(c.Context(), actorFrom(c), c.Params("id"), req.EscalatedTo)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// RecomputeSLA handles POST /tickets/:id/recompute-sla.
func (h *TicketsHandler) RecomputeSLA(c *fiber.Ctx) error {
	ticket, err := h.tickets.RecomputeSLA(c.Context(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Logs handles GET /tickets/:id/logs.
func (h *TicketsHandler) Logs(c *fiber.Ctx) error {
	logs, err := h.tickets.ListLogs(c.Context(), c.Params("id"), queryInt(c, "limit", 100), queryInt(c, "offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromLogs(logs)})
}

// AddResponse handles POST /tickets/:id/responses.
func (h *TicketsHandler) AddResponse(c *fiber.Ctx) error {
	var req dto.ResponseCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	response, err := h.tickets.AddResponse(c.Context(), actorFrom(c), c.Params("id"), service.ResponseInput{
		Content:    req.Content,
		ChannelID:  req.ChannelID,
		IsInternal: req.IsInternal,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"id":          response.ID,
		"ticket_id":   response.TicketID,
		"content":     response.Content,
		"is_internal": response.IsInternal,
		"created_at":  response.CreatedAt,
	}})
}

// ListResponses handles GET /tickets/:id/responses.
func (h *TicketsHandler) ListResponses(c *fiber.Ctx) error {
	responses, err := h.tickets.ListResponses(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(responses))
	for _, r := range responses {
		out = append(out, fiber.Map{
			"id":              r.ID,
			"ticket_id":       r.TicketID,
			"content":         r.Content,
			"author_id":       r.AuthorID,
			"is_internal":     r.IsInternal,
			"sent_at":         r.SentAt,
			"delivery_status": r.DeliveryStatus,
			"created_at":      r.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}

// SubmitFeedback handles POST /tickets/:id/feedback. Open to submitters.
func (h *TicketsHandler) SubmitFeedback(c *fiber.Ctx) error {
	var req dto.FeedbackCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	fb, err := h.tickets.SubmitFeedback(c.Context(), c.Params("id"), service.FeedbackInput{
		SatisfactionRating: req.SatisfactionRating,
		ResponseTimeRating: req.ResponseTimeRating,
		QualityRating:      req.QualityRating,
		Comments:           req.Comments,
		WouldRecommend:     req.WouldRecommend,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"id":        fb.ID,
		"ticket_id": fb.TicketID,
	}})
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
