package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/models"
	"github.com/RohUkJin/HOTDEAL-SCRAPER/shared"
)

// StatsReader returns the most recent crawl statistics rows.
type StatsReader interface {
	GetRecentStats(ctx context.Context, limit int) ([]models.CrawlStats, error)
}

type StatsHandler struct {
	Store   StatsReader
	Metrics []*shared.ServiceMetrics
}

// NewStatsHandler creates the stats endpoint. metrics carries the
// collaborator counters (Naver, Gemini) reported alongside the run rows.
func NewStatsHandler(store StatsReader, metrics ...*shared.ServiceMetrics) *StatsHandler {
	return &StatsHandler{Store: store, Metrics: metrics}
}

func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 20
	}

	stats, err := h.Store.GetRecentStats(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	services := make([]shared.ServiceMetrics, 0, len(h.Metrics))
	for _, m := range h.Metrics {
		services = append(services, m.Snapshot())
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"runs":     stats,
			"services": services,
		},
	})
}
