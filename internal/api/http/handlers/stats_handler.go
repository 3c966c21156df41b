package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cfrm-service/internal/observability"
	"github.com/spec-kit/cfrm-service/internal/service"
)

// StatsHandler exposes reporting endpoints.
type StatsHandler struct {
	stats   *service.StatsService
	metrics *observability.Metrics
}

// NewStatsHandler constructs handler.
func NewStatsHandler(stats *service.StatsService, metrics *observability.Metrics) *StatsHandler {
	return &StatsHandler{stats: stats, metrics: metrics}
}

// Dashboard handles GET /stats/dashboard.
func (h *StatsHandler) Dashboard(c *fiber.Ctx) error {
	dashboard, err := h.stats.Dashboard(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dashboard})
}

// Dispatch handles GET /stats/dispatch, the in-process delivery counters.
func (h *StatsHandler) Dispatch(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.DispatchSnapshot()})
}
