package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/models"
)

// DealReader is the read side of the persistence layer used by the API.
type DealReader interface {
	GetHotdeals(ctx context.Context, limit int) ([]models.Deal, error)
	GetHotdealByID(ctx context.Context, id string) (*models.Deal, error)
}

type HotdealHandler struct {
	Store DealReader
}

func NewHotdealHandler(store DealReader) *HotdealHandler {
	return &HotdealHandler{Store: store}
}

func (h *HotdealHandler) GetHotdeals(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}

	deals, err := h.Store.GetHotdeals(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    deals,
	})
}

func (h *HotdealHandler) GetHotdealByID(c *fiber.Ctx) error {
	id := c.Params("id")
	deal, err := h.Store.GetHotdealByID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	if deal == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Hotdeal not found",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    deal,
	})
}
