package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cfrm-service/internal/api/dto"
	"github.com/spec-kit/cfrm-service/internal/domain"
	"github.com/spec-kit/cfrm-service/internal/service"
)

// TemplatesHandler exposes message template administration.
type TemplatesHandler struct {
	templates *service.TemplateService
	validate  *validator.Validate
}

// NewTemplatesHandler constructs handler.
func NewTemplatesHandler(templates *service.TemplateService) *TemplatesHandler {
	return &TemplatesHandler{templates: templates, validate: validator.New()}
}

// Create handles POST /templates.
func (h *TemplatesHandler) Create(c *fiber.Ctx) error {
	var req dto.TemplateCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	template, err := h.templates.Create(c.Context(), service.TemplateCreateInput{
		Name:      req.Name,
		ChannelID: req.ChannelID,
		Purpose:   domain.TemplatePurpose(req.Purpose),
		Subject:   req.Subject,
		Content:   req.Content,
		Language:  req.Language,
		Variables: req.Variables,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTemplate(template)})
}

// Get handles GET /templates/:id.
func (h *TemplatesHandler) Get(c *fiber.Ctx) error {
	template, err := h.templates.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTemplate(template)})
}

// Update handles PATCH /templates/:id.
func (h *TemplatesHandler) Update(c *fiber.Ctx) error {
	var req dto.TemplateUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	template, err := h.templates.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if req.Subject != nil {
		template.Subject = *req.Subject
	}
	if req.Content != nil {
		template.Content = *req.Content
	}
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}
	if req.Variables != nil {
		template.Variables = req.Variables
	}
	if err := h.templates.Update(c.Context(), template); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTemplate(template)})
}

// ListByChannel handles GET /channels/:id/templates.
func (h *TemplatesHandler) ListByChannel(c *fiber.Ctx) error {
	templates, err := h.templates.ListByChannel(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.TemplateResponse, 0, len(templates))
	for i := range templates {
		out = append(out, dto.FromTemplate(&templates[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}
