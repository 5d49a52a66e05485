package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/triumph135/protrack-sub000/internal/model"
	"github.com/triumph135/protrack-sub000/pkg/database"
	"github.com/triumph135/protrack-sub000/pkg/logger"
	"github.com/triumph135/protrack-sub000/prometheus"
)

// EmployeeRequest defines the structure for employee creation/update requests
type EmployeeRequest struct {
	Name         string  `json:"name"`
	ProjectID    *uint   `json:"project_id"`
	StandardRate float64 `json:"standard_rate"`
	OTRate       float64 `json:"ot_rate"`
	DTRate       float64 `json:"dt_rate"`
	MobRate      float64 `json:"mob_rate"`
	Active       *bool   `json:"active"`
}

// ListEmployees retrieves employees for the current tenant. With a
// project_id filter it returns that project's crew plus employees who
// work across all projects.
func ListEmployees(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("employee", "list")

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	page, limit, offset := parsePagination(c)

	query := database.GetDB().Where("tenant_id = ?", tenantID)

	if rawProjectID := c.QueryParam("project_id"); rawProjectID != "" {
		projectID, err := strconv.ParseUint(rawProjectID, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project_id filter"})
		}
		query = query.Where("project_id IS NULL OR project_id = ?", projectID)
	}

	if rawActive := c.QueryParam("active"); rawActive != "" {
		active, err := strconv.ParseBool(rawActive)
		if err == nil {
			query = query.Where("active = ?", active)
		} else {
			log.Warn("Invalid active parameter", zap.String("value", rawActive), zap.Error(err))
		}
	}

	var total int64
	query.Model(&model.Employee{}).Count(&total)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var employees []model.Employee
	result := query.
		Order("name asc").
		Limit(limit).
		Offset(offset).
		Find(&employees)
	if result.Error != nil {
		log.Error("Failed to retrieve employees",
			zap.Uint("tenant_id", tenantID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve employees"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"employees":  employees,
		"pagination": paginationMap(page, limit, total),
	})
}

// CreateEmployee adds an employee to the current tenant
func CreateEmployee(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("employee", "create")

	var req EmployeeRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	if req.ProjectID != nil {
		var project model.Project
		if result := database.GetDB().Where("id = ? AND tenant_id = ?", *req.ProjectID, tenantID).First(&project); result.Error != nil {
			log.Warn("Project not found or does not belong to tenant",
				zap.Uint("project_id", *req.ProjectID),
				zap.Uint("tenant_id", tenantID))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "project not found"})
		}
	}

	employee := model.Employee{
		TenantID:     tenantID,
		ProjectID:    req.ProjectID,
		Name:         req.Name,
		StandardRate: req.StandardRate,
		OTRate:       req.OTRate,
		DTRate:       req.DTRate,
		MobRate:      req.MobRate,
		Active:       true,
	}
	if req.Active != nil {
		employee.Active = *req.Active
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&employee); result.Error != nil {
		log.Error("Failed to create employee",
			zap.String("name", req.Name),
			zap.Uint("tenant_id", tenantID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create employee"})
	}

	log.Info("Employee created successfully",
		zap.Uint("employee_id", employee.ID),
		zap.String("name", employee.Name),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusCreated, employee)
}

// UpdateEmployee updates an existing employee
func UpdateEmployee(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("employee", "update")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid employee ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid employee ID"})
	}

	var req EmployeeRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	var employee model.Employee
	result := database.GetDB().Where("id = ?", id).First(&employee)
	if result.Error != nil {
		log.Error("Employee not found for update",
			zap.Uint64("employee_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
	}

	if employee.TenantID != tenantID {
		log.Warn("Unauthorized attempt to update employee from different tenant",
			zap.Uint64("employee_id", id),
			zap.Uint("employee_tenant", employee.TenantID),
			zap.Uint("request_tenant", tenantID))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you don't have permission to update this employee"})
	}

	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	if req.ProjectID != nil {
		var project model.Project
		if result := database.GetDB().Where("id = ? AND tenant_id = ?", *req.ProjectID, tenantID).First(&project); result.Error != nil {
			log.Warn("Project not found or does not belong to tenant",
				zap.Uint("project_id", *req.ProjectID),
				zap.Uint("tenant_id", tenantID))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "project not found"})
		}
	}

	employee.Name = req.Name
	employee.ProjectID = req.ProjectID
	employee.StandardRate = req.StandardRate
	employee.OTRate = req.OTRate
	employee.DTRate = req.DTRate
	employee.MobRate = req.MobRate
	if req.Active != nil {
		employee.Active = *req.Active
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&employee); result.Error != nil {
		log.Error("Failed to update employee",
			zap.Uint64("employee_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update employee"})
	}

	log.Info("Employee updated successfully",
		zap.Uint64("employee_id", id),
		zap.String("name", employee.Name),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusOK, employee)
}

// DeleteEmployee soft deletes an employee. Past labor entries keep their
// employee reference.
func DeleteEmployee(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("employee", "delete")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid employee ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid employee ID"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	var employee model.Employee
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, tenantID).First(&employee)
	if result.Error != nil {
		log.Warn("Employee not found or does not belong to tenant",
			zap.Uint64("employee_id", id),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(&employee); result.Error != nil {
		log.Error("Failed to delete employee",
			zap.Uint64("employee_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete employee"})
	}

	log.Info("Employee deleted successfully",
		zap.Uint64("employee_id", id),
		zap.String("name", employee.Name),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusOK, echo.Map{"message": "employee deleted successfully"})
}
