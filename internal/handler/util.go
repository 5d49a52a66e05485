package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/triumph135/protrack-sub000/internal/finance"
	"github.com/triumph135/protrack-sub000/internal/model"
	"github.com/triumph135/protrack-sub000/pkg/config"
)

const minPasswordLength = 6

var inviteTTL = 168 * time.Hour

// Initialize wires runtime configuration into the handler package
func Initialize(cfg *config.Config) {
	if cfg.Invite.TTL > 0 {
		inviteTTL = cfg.Invite.TTL
	}
}

// parsePagination reads the page/limit query parameters with sane bounds
func parsePagination(c echo.Context) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}

	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20 // Default limit
	}

	return page, limit, (page - 1) * limit
}

// paginationMap builds the pagination block returned by list endpoints
func paginationMap(page, limit int, total int64) echo.Map {
	return echo.Map{
		"current_page": page,
		"limit":        limit,
		"total":        total,
		"total_pages":  (int(total) + limit - 1) / limit,
	}
}

// applyChangeOrderScope narrows a query to the requested contract scope
func applyChangeOrderScope(query *gorm.DB, scope finance.ChangeOrderScope) *gorm.DB {
	if scope.Base {
		return query.Where("change_order_id IS NULL")
	}
	if !scope.All {
		return query.Where("change_order_id = ?", scope.ID)
	}
	return query
}

// validatePermissions rejects unknown areas and unknown access levels
func validatePermissions(perms datatypes.JSONMap) error {
	known := make(map[string]bool, len(model.AllAreas))
	for _, area := range model.AllAreas {
		known[string(area)] = true
	}

	for area, raw := range perms {
		if !known[area] {
			return fmt.Errorf("unknown permission area %q", area)
		}
		level, ok := raw.(string)
		if !ok {
			return fmt.Errorf("invalid permission level for area %q", area)
		}
		switch model.PermissionLevel(level) {
		case model.PermissionNone, model.PermissionRead, model.PermissionWrite:
		default:
			return fmt.Errorf("invalid permission level %q for area %q", level, area)
		}
	}
	return nil
}
