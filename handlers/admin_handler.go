package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// RunTrigger starts a pipeline run in the background. It returns false when
// a run is already in flight.
type RunTrigger interface {
	TriggerRun() bool
}

type AdminHandler struct {
	Trigger    RunTrigger
	AdminToken string
}

func NewAdminHandler(trigger RunTrigger, adminToken string) *AdminHandler {
	return &AdminHandler{Trigger: trigger, AdminToken: adminToken}
}

// TriggerCrawl kicks off a manual pipeline run.
func (h *AdminHandler) TriggerCrawl(c *fiber.Ctx) error {
	if h.AdminToken == "" || c.Get("X-Admin-Token") != h.AdminToken {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Unauthorized",
		})
	}

	if !h.Trigger.TriggerRun() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   "A pipeline run is already in progress",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"message": "Pipeline run started",
	})
}
