package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/triumph135/protrack-sub000/internal/model"
	"github.com/triumph135/protrack-sub000/pkg/database"
	"github.com/triumph135/protrack-sub000/pkg/jwtutil"
	"github.com/triumph135/protrack-sub000/pkg/logger"
	"github.com/triumph135/protrack-sub000/prometheus"
)

// AuthMiddleware validates the JWT token from the Authorization header and
// loads the current user row, so role, permissions and the active flag are
// always read fresh rather than trusted from the token.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// Load the user row behind the token
		var user model.User
		if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Error("Token references unknown user", zap.Uint("user_id", claims.UserID))
				prometheus.AuthErrorsCounter.Inc()
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}
			log.Error("Failed to load user for token", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to authenticate request"})
		}

		if !user.Active {
			log.Warn("Deactivated user attempted access", zap.Uint("user_id", user.ID))
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account is deactivated"})
		}

		if user.TenantID == nil {
			log.Warn("User without tenant context attempted access", zap.Uint("user_id", user.ID))
			return c.JSON(http.StatusForbidden, echo.Map{"error": "no tenant context"})
		}

		// Store user info in context for later use
		c.Set("user", &user)
		c.Set("user_id", user.ID)
		c.Set("email", user.Email)
		c.Set("tenant_id", *user.TenantID)
		c.Set("tenant_name", claims.TenantName)
		c.Set("user_role", user.Role)

		log.Debug("Request authenticated",
			zap.Uint("user_id", user.ID),
			zap.Uint("tenant_id", *user.TenantID),
			zap.String("role", user.Role))

		return next(c)
	}
}

// CurrentUser returns the authenticated user loaded by AuthMiddleware
func CurrentUser(c echo.Context) *model.User {
	if user, ok := c.Get("user").(*model.User); ok {
		return user
	}
	return nil
}

// TenantID returns the tenant scope of the authenticated request
func TenantID(c echo.Context) uint {
	if id, ok := c.Get("tenant_id").(uint); ok {
		return id
	}
	return 0
}

// RequirePermission gates a route on one permission area and level. Areas
// that depend on request parameters (cost categories) are checked inside
// their handlers with the same evaluator.
func RequirePermission(area model.Area, level model.PermissionLevel) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			if !user.HasPermission(area, level) {
				prometheus.RecordPermissionDenied(string(area))
				logger.FromContext(c).Warn("Permission denied",
					zap.Uint("user_id", user.ID),
					zap.String("area", string(area)),
					zap.String("level", string(level)))
				return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
			}
			return next(c)
		}
	}
}
