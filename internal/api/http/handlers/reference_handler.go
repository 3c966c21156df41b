package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cfrm-service/internal/repository"
)

// ReferenceHandler serves the configurable reference data: categories,
// priorities and statuses.
type ReferenceHandler struct {
	categories repository.CategoryRepository
	priorities repository.PriorityRepository
	statuses   repository.StatusRepository
}

// NewReferenceHandler constructs handler.
func NewReferenceHandler(
	categories repository.CategoryRepository,
	priorities repository.PriorityRepository,
	statuses repository.StatusRepository,
) *ReferenceHandler {
	return &ReferenceHandler{categories: categories, priorities: priorities, statuses: statuses}
}

// Categories handles GET /categories.
func (h *ReferenceHandler) Categories(c *fiber.Ctx) error {
	categories, err := h.categories.List(c.Context())
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(categories))
	for _, cat := range categories {
		out = append(out, fiber.Map{
			"id":                  cat.ID,
			"name":                cat.Name,
			"description":         cat.Description,
			"is_sensitive":        cat.IsSensitive,
			"requires_escalation": cat.RequiresEscalation,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}

// Priorities handles GET /priorities.
func (h *ReferenceHandler) Priorities(c *fiber.Ctx) error {
	priorities, err := h.priorities.List(c.Context())
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(priorities))
	for _, p := range priorities {
		out = append(out, fiber.Map{
			"id":        p.ID,
			"name":      p.Name,
			"level":     p.Level,
			"color":     p.Color,
			"sla_hours": p.SLAHours,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}

// Statuses handles GET /statuses.
func (h *ReferenceHandler) Statuses(c *fiber.Ctx) error {
	statuses, err := h.statuses.List(c.Context())
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, fiber.Map{
			"id":          s.ID,
			"name":        s.Name,
			"description": s.Description,
			"is_final":    s.IsFinal,
			"color":       s.Color,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}
