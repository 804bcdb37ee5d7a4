package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/bizgrid/backend/internal/config"
	"github.com/bizgrid/backend/internal/database"
	"github.com/bizgrid/backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents JWT token claims. Subject carries the owner ID so
// middleware that only needs the identity can parse registered claims alone.
type JWTClaims struct {
	OwnerID uint   `json:"owner_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken generates a new JWT token for an owner
func GenerateToken(owner *models.Owner, cfg *config.Config) (string, error) {
	claims := JWTClaims{
		OwnerID: owner.ID,
		Email:   owner.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(owner.ID), 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.JWTExpireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "bizgrid",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// AuthRequired middleware to protect routes
func AuthRequired(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Missing authorization header",
			})
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid authorization header format",
			})
		}

		tokenString := parts[1]

		// Check if token is blacklisted (owner logged out)
		if database.IsTokenBlacklisted(tokenString) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Token has been revoked (logged out)",
			})
		}

		// Parse and validate token
		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		})

		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid or expired token",
			})
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid token claims",
			})
		}

		// Check if owner still exists and is active. A tamper-suspended
		// account fails here, so its requests never reach the license gate
		// with a usable identity.
		var owner models.Owner
		if err := database.DB.First(&owner, claims.OwnerID).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Account not found",
			})
		}

		if !owner.IsActive {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Account is suspended",
			})
		}

		// Store owner info in context
		c.Locals("owner", &owner)
		c.Locals("ownerID", claims.OwnerID)
		c.Locals("email", claims.Email)

		return c.Next()
	}
}

// GetCurrentOwner returns the current owner from context
func GetCurrentOwner(c *fiber.Ctx) *models.Owner {
	owner, ok := c.Locals("owner").(*models.Owner)
	if !ok {
		return nil
	}
	return owner
}

// GetCurrentOwnerID returns the current owner ID from context
func GetCurrentOwnerID(c *fiber.Ctx) uint {
	ownerID, ok := c.Locals("ownerID").(uint)
	if !ok {
		return 0
	}
	return ownerID
}
