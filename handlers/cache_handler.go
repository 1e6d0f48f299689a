package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/services"
)

type CacheHandler struct {
	Cache *services.VerdictCache
}

func NewCacheHandler(cache *services.VerdictCache) *CacheHandler {
	return &CacheHandler{Cache: cache}
}

func (h *CacheHandler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"entries": h.Cache.Size(),
		},
	})
}

func (h *CacheHandler) Clear(c *fiber.Ctx) error {
	h.Cache.Clear()
	return c.JSON(fiber.Map{
		"success": true,
	})
}
