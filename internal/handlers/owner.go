package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/bizgrid/backend/internal/config"
	"github.com/bizgrid/backend/internal/database"
	"github.com/bizgrid/backend/internal/license"
	"github.com/bizgrid/backend/internal/middleware"
	"github.com/bizgrid/backend/internal/models"
	"github.com/bizgrid/backend/internal/store"
	"github.com/gofiber/fiber/v2"
)

// OwnerHandler handles owner-scoped routes: license activation, activation
// status and profile settings.
type OwnerHandler struct {
	cfg     *config.Config
	fetcher license.MappingFetcher
}

func NewOwnerHandler(cfg *config.Config, fetcher license.MappingFetcher) *OwnerHandler {
	return &OwnerHandler{cfg: cfg, fetcher: fetcher}
}

// requireSelf ensures the :id path param refers to the authenticated owner.
func requireSelf(c *fiber.Ctx) (uint, bool) {
	ownerID := middleware.GetCurrentOwnerID(c)
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || uint(id) != ownerID {
		return 0, false
	}
	return ownerID, true
}

type activateRequest struct {
	BusinessID string `json:"business_id"`
}

// Activate creates the local license record for one of the owner's
// businesses, after confirming the remote mapping licenses that business
// for the owner's email right now.
func (h *OwnerHandler) Activate(c *fiber.Ctx) error {
	ownerID, ok := requireSelf(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Cannot activate a license for another owner",
		})
	}

	var req activateRequest
	if err := c.BodyParser(&req); err != nil || req.BusinessID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "business_id is required",
		})
	}

	// The business must exist and belong to the caller
	var business models.Business
	if err := database.DB.Where("id = ? AND owner_id = ?", req.BusinessID, ownerID).First(&business).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Business not found",
		})
	}

	licenses := store.NewLicenseStore(database.DB)
	if existing, err := licenses.LatestActiveByOwner(ownerID); err == nil && existing != nil {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "License already active",
			"license": existing,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.cfg.LicenseFetchTimeout)*time.Second)
	defer cancel()

	snapshot, err := h.fetcher.Fetch(ctx)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"code":    license.CodeRemoteUnreachable,
			"message": "License source is unreachable. Please try again shortly.",
		})
	}

	owner := middleware.GetCurrentOwner(c)
	entry, found := snapshot.Lookup(owner.Email)
	if !found || !entry.HasBusiness(business.ID) {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"success": false,
			"code":    license.CodeNoLicense,
			"message": "No license is registered for this business. Please complete your purchase first.",
		})
	}

	now := time.Now().UTC()
	if !entry.License.IsCurrent(now) {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"success": false,
			"code":    license.CodeExpired,
			"message": "The registered license is no longer current. Please renew your subscription.",
		})
	}

	rec := &models.LicenseRecord{
		OwnerID:    ownerID,
		BusinessID: business.ID,
		Status:     models.LicenseStatusActive,
	}
	license.ApplyRemoteDetail(rec, entry.License)
	rec.IntegrityHash = license.ComputeIntegrityHash(rec)
	rec.LastRemoteValidatedAt = &now

	if err := licenses.Create(rec); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to store license",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "License activated",
		"license": rec,
	})
}

// ActivationStatus returns the evaluator result for the owner, for client
// polling during and after activation.
func (h *OwnerHandler) ActivationStatus(c *fiber.Ctx) error {
	ownerID, ok := requireSelf(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Cannot read another owner's activation status",
		})
	}

	rec, err := store.NewLicenseStore(database.DB).LatestActiveByOwner(ownerID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to read license state",
		})
	}

	return c.JSON(license.Evaluate(rec, h.cfg.WarningThresholdDays, time.Now().UTC()))
}

// GetSettings returns the owner profile
func (h *OwnerHandler) GetSettings(c *fiber.Ctx) error {
	_, ok := requireSelf(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Cannot read another owner's settings",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"owner":   middleware.GetCurrentOwner(c),
	})
}

type updateSettingsRequest struct {
	FullName string `json:"full_name"`
}

// UpdateSettings updates the owner profile
func (h *OwnerHandler) UpdateSettings(c *fiber.Ctx) error {
	ownerID, ok := requireSelf(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Cannot update another owner's settings",
		})
	}

	var req updateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if err := database.DB.Model(&models.Owner{}).Where("id = ?", ownerID).
		Update("full_name", req.FullName).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update settings",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Settings updated",
	})
}

// ListBusinesses returns the owner's businesses
func (h *OwnerHandler) ListBusinesses(c *fiber.Ctx) error {
	ownerID, ok := requireSelf(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Cannot list another owner's businesses",
		})
	}

	var businesses []models.Business
	if err := database.DB.Where("owner_id = ?", ownerID).Find(&businesses).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to list businesses",
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"businesses": businesses,
	})
}
