package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/rrdigi/internal/config"
	"github.com/example/rrdigi/internal/models"
)

const userContextKey = "currentUser"

// AuthMiddleware resolves the bearer token to a server-side session row,
// loads the owning user, and re-syncs the admin flag before any handler
// sees the user.
func AuthMiddleware(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
		}

		var session models.Session
		if err := db.Where("token = ?", token).First(&session).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
			}
			return err
		}

		if session.ExpiresAt.Before(time.Now()) {
			return fiber.NewError(fiber.StatusUnauthorized, "Session expired")
		}

		var user models.User
		if err := db.First(&user, "id = ?", session.UserID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
			}
			return err
		}

		if err := models.SyncAdminFlag(db, &user, cfg.AdminEmail); err != nil {
			return err
		}

		c.Locals(userContextKey, &user)
		return c.Next()
	}
}

// RequireAdmin allows only the configured admin account through. Must run
// after AuthMiddleware.
func RequireAdmin(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := GetCurrentUser(c)
		if !ok || !user.IsAdmin || cfg.AdminEmail == "" || user.Email != cfg.AdminEmail {
			return fiber.NewError(fiber.StatusForbidden, "Admin only")
		}
		return c.Next()
	}
}

// GetCurrentUser extracts the authenticated user from context.
func GetCurrentUser(c *fiber.Ctx) (*models.User, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return nil, false
	}

	if user, ok := value.(*models.User); ok {
		return user, true
	}

	return nil, false
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}
