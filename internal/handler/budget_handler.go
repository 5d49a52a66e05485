package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/triumph135/protrack-sub000/internal/finance"
	"github.com/triumph135/protrack-sub000/internal/model"
	"github.com/triumph135/protrack-sub000/pkg/database"
	"github.com/triumph135/protrack-sub000/pkg/logger"
	"github.com/triumph135/protrack-sub000/prometheus"
)

// BudgetRequest carries the per-category spending ceilings for a project
type BudgetRequest struct {
	Material      float64 `json:"material"`
	Labor         float64 `json:"labor"`
	Equipment     float64 `json:"equipment"`
	Subcontractor float64 `json:"subcontractor"`
	Others        float64 `json:"others"`
	CapLeases     float64 `json:"cap_leases"`
	Consumable    float64 `json:"consumable"`
}

// GetBudget returns a project's budget. Projects without a saved budget
// get a zero-valued one rather than a 404.
func GetBudget(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("budget", "get")

	projectID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid project ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project ID"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	var project model.Project
	if result := database.GetDB().Where("id = ? AND tenant_id = ?", projectID, tenantID).First(&project); result.Error != nil {
		log.Error("Project not found or does not belong to tenant",
			zap.Uint64("project_id", projectID),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var budget model.ProjectBudget
	result := database.GetDB().
		Where("project_id = ? AND tenant_id = ?", projectID, tenantID).
		First(&budget)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			log.Error("Failed to load budget",
				zap.Uint64("project_id", projectID),
				zap.Error(result.Error))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load budget"})
		}
		budget = model.ProjectBudget{
			TenantID:  tenantID,
			ProjectID: uint(projectID),
		}
	}

	return c.JSON(http.StatusOK, budget)
}

// UpsertBudget creates or replaces a project's budget in one statement
func UpsertBudget(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("budget", "upsert")

	projectID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid project ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project ID"})
	}

	var req BudgetRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	var project model.Project
	if result := database.GetDB().Where("id = ? AND tenant_id = ?", projectID, tenantID).First(&project); result.Error != nil {
		log.Error("Project not found or does not belong to tenant",
			zap.Uint64("project_id", projectID),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	budget := model.ProjectBudget{
		TenantID:      tenantID,
		ProjectID:     uint(projectID),
		Material:      req.Material,
		Labor:         req.Labor,
		Equipment:     req.Equipment,
		Subcontractor: req.Subcontractor,
		Others:        req.Others,
		CapLeases:     req.CapLeases,
		Consumable:    req.Consumable,
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	result := database.GetDB().Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"material", "labor", "equipment", "subcontractor",
			"others", "cap_leases", "consumable", "updated_at",
		}),
	}).Create(&budget)
	if result.Error != nil {
		log.Error("Failed to save budget",
			zap.Uint64("project_id", projectID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save budget"})
	}

	log.Info("Budget saved successfully",
		zap.Uint64("project_id", projectID),
		zap.Float64("total", budget.Total()),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusOK, budget)
}

// GetBudgetVariance compares a project's budget to its actual costs per
// category and classifies each one
func GetBudgetVariance(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("budget", "variance")

	projectID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid project ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project ID"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	var project model.Project
	if result := database.GetDB().Where("id = ? AND tenant_id = ?", projectID, tenantID).First(&project); result.Error != nil {
		log.Error("Project not found or does not belong to tenant",
			zap.Uint64("project_id", projectID),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var costs []model.ProjectCost
	if result := database.GetDB().Where("project_id = ? AND tenant_id = ?", projectID, tenantID).Find(&costs); result.Error != nil {
		log.Error("Failed to load costs",
			zap.Uint64("project_id", projectID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load costs"})
	}

	var budget *model.ProjectBudget
	var stored model.ProjectBudget
	result := database.GetDB().
		Where("project_id = ? AND tenant_id = ?", projectID, tenantID).
		First(&stored)
	if result.Error == nil {
		budget = &stored
	} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		log.Error("Failed to load budget",
			zap.Uint64("project_id", projectID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load budget"})
	}

	summary := finance.AggregateCosts(costs)
	report := finance.VarianceReport(summary, budget)

	var totalBudget float64
	if budget != nil {
		totalBudget = budget.Total()
	}

	return c.JSON(http.StatusOK, echo.Map{
		"project_id":   project.ID,
		"variance":     report,
		"total_budget": totalBudget,
		"total_actual": summary.GrandTotal(),
	})
}
