package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bizgrid/backend/internal/config"
	"github.com/bizgrid/backend/internal/database"
	"github.com/bizgrid/backend/internal/handlers"
	"github.com/bizgrid/backend/internal/license"
	"github.com/bizgrid/backend/internal/middleware"
	"github.com/bizgrid/backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := models.AutoMigrate(database.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed demo owner if the table is empty
	seedDemoOwner()

	// License guard: remote mapping client, sweep service, two monitors
	mappingClient := license.NewMappingClient(cfg.LicenseMappingURL, time.Duration(cfg.LicenseFetchTimeout)*time.Second)
	guard := license.NewGuardService(database.DB, mappingClient)

	expirationMonitor := license.NewExpirationMonitor(guard, cfg.ExpirationSweepHours)
	tamperMonitor := license.NewTamperMonitor(guard, cfg.TamperSweepHours)
	if cfg.LicenseMappingURL != "" {
		expirationMonitor.Start()
		tamperMonitor.Start()
	} else {
		log.Println("Warning: LICENSE_MAPPING_URL not set, license monitors not started")
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "BizGrid API v1.0",
		ServerHeader: "BizGrid",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())
	app.Use(license.ValidationGate(cfg))

	// Health check
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "bizgrid-api",
		})
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg)
	licenseHandler := handlers.NewLicenseHandler(cfg, guard)
	ownerHandler := handlers.NewOwnerHandler(cfg, mappingClient)

	// API routes
	api := app.Group("/api/v1")
	api.Use(middleware.RateLimiter(100, 1*time.Minute))

	// Public routes
	api.Post("/auth/login", authHandler.Login)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired(cfg))

	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/auth/me", authHandler.Me)

	// License status and manual sweep
	protected.Get("/license/status", licenseHandler.Status)
	protected.Post("/license/resweep", licenseHandler.Resweep)

	// Owner routes. Activation endpoints bypass the license gate; the rest
	// of the owner surface is gated.
	protected.Post("/owner/:id/activate", ownerHandler.Activate)
	protected.Get("/owner/:id/activation-status", ownerHandler.ActivationStatus)
	protected.Get("/owner/:id/settings", ownerHandler.GetSettings)
	protected.Put("/owner/:id/settings", ownerHandler.UpdateSettings)
	protected.Get("/owner/:id/businesses", ownerHandler.ListBusinesses)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		expirationMonitor.Stop()
		tamperMonitor.Stop()
		app.Shutdown()
	}()

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Printf("Starting BizGrid API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func seedDemoOwner() {
	var count int64
	database.DB.Model(&models.Owner{}).Count(&count)

	if count == 0 {
		log.Println("Creating demo owner...")

		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)

		owner := models.Owner{
			Email:    "owner@bizgrid.local",
			Password: string(hashedPassword),
			FullName: "Demo Owner",
			IsActive: true,
		}

		if err := database.DB.Create(&owner).Error; err != nil {
			log.Printf("Failed to create demo owner: %v", err)
			return
		}

		business := models.Business{
			OwnerID: owner.ID,
			Name:    "Demo Business",
		}
		database.DB.Create(&business)

		log.Println("Demo owner created (email: owner@bizgrid.local, password: changeme)")
	}
}
