package handlers

import (
	"context"
	"time"

	"github.com/bizgrid/backend/internal/config"
	"github.com/bizgrid/backend/internal/database"
	"github.com/bizgrid/backend/internal/license"
	"github.com/bizgrid/backend/internal/middleware"
	"github.com/bizgrid/backend/internal/store"
	"github.com/gofiber/fiber/v2"
)

// LicenseHandler exposes the license status endpoint and the manual sweep
// trigger.
type LicenseHandler struct {
	cfg   *config.Config
	guard *license.GuardService
}

func NewLicenseHandler(cfg *config.Config, guard *license.GuardService) *LicenseHandler {
	return &LicenseHandler{cfg: cfg, guard: guard}
}

// Status returns the evaluator result for the authenticated owner. The
// response shape is a stable contract polled by clients.
func (h *LicenseHandler) Status(c *fiber.Ctx) error {
	ownerID := middleware.GetCurrentOwnerID(c)

	rec, err := store.NewLicenseStore(database.DB).LatestActiveByOwner(ownerID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to read license state",
		})
	}

	result := license.Evaluate(rec, h.cfg.WarningThresholdDays, time.Now().UTC())
	return c.JSON(result)
}

// Resweep runs one reconciliation sweep immediately, mirroring what the
// background monitors do on their schedule.
func (h *LicenseHandler) Resweep(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := h.guard.Sweep(ctx, "ManualSweep"); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"code":    license.CodeRemoteUnreachable,
			"message": "Remote license source is unreachable. The scheduled sweep will retry.",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Sweep completed",
	})
}
