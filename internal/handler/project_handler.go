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

// ProjectRequest defines the structure for project creation/update requests
type ProjectRequest struct {
	JobNumber     string  `json:"job_number"`
	JobName       string  `json:"job_name"`
	Customer      string  `json:"customer"`
	Type          string  `json:"type"`
	ContractValue float64 `json:"contract_value"`
	Status        string  `json:"status"`
}

// CreateProject creates a new project for the current tenant
func CreateProject(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("project", "create")

	var req ProjectRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	if req.JobNumber == "" || req.JobName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "job_number and job_name are required"})
	}

	if req.Type == "" {
		req.Type = model.ProjectTypeField
	}
	if !model.ValidProjectType(req.Type) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project type"})
	}

	if req.Status == "" {
		req.Status = model.ProjectStatusActive
	}
	if !model.ValidProjectStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project status"})
	}

	// Job numbers are unique within a tenant
	var count int64
	database.GetDB().Model(&model.Project{}).
		Where("job_number = ? AND tenant_id = ?", req.JobNumber, tenantID).
		Count(&count)
	if count > 0 {
		log.Warn("Project with this job number already exists for this tenant",
			zap.String("job_number", req.JobNumber),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusConflict, echo.Map{"error": "project with this job number already exists"})
	}

	project := model.Project{
		TenantID:      tenantID,
		JobNumber:     req.JobNumber,
		JobName:       req.JobName,
		Customer:      req.Customer,
		Type:          req.Type,
		ContractValue: req.ContractValue,
		Status:        req.Status,
		CreatedBy:     userID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&project); result.Error != nil {
		log.Error("Failed to create project",
			zap.String("job_number", req.JobNumber),
			zap.Uint("tenant_id", tenantID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create project"})
	}

	// Update project count metric
	go updateProjectCount(tenantID)

	log.Info("Project created successfully",
		zap.Uint("project_id", project.ID),
		zap.String("job_number", project.JobNumber),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusCreated, project)
}

// GetProject retrieves a project by ID for the current tenant
func GetProject(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("project", "get")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid project ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project ID"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var project model.Project
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, tenantID).First(&project)
	if result.Error != nil {
		log.Error("Project not found or does not belong to tenant",
			zap.Uint64("project_id", id),
			zap.Uint("tenant_id", tenantID),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	return c.JSON(http.StatusOK, project)
}

// ListProjects retrieves all projects for the current tenant
func ListProjects(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("project", "list")

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	page, limit, offset := parsePagination(c)

	query := database.GetDB().Where("tenant_id = ?", tenantID)

	// Filter by status if specified
	if status := c.QueryParam("status"); status != "" {
		if !model.ValidProjectStatus(status) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project status"})
		}
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Model(&model.Project{}).Count(&total)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var projects []model.Project
	result := query.
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&projects)
	if result.Error != nil {
		log.Error("Failed to retrieve projects",
			zap.Uint("tenant_id", tenantID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve projects"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"projects":   projects,
		"pagination": paginationMap(page, limit, total),
	})
}

// UpdateProject updates an existing project for the current tenant
func UpdateProject(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("project", "update")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid project ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project ID"})
	}

	var req ProjectRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	// Find existing project and validate tenant ownership
	var project model.Project
	result := database.GetDB().Where("id = ?", id).First(&project)
	if result.Error != nil {
		log.Error("Project not found for update",
			zap.Uint64("project_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	if project.TenantID != tenantID {
		log.Warn("Unauthorized attempt to update project from different tenant",
			zap.Uint64("project_id", id),
			zap.Uint("project_tenant", project.TenantID),
			zap.Uint("request_tenant", tenantID))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you don't have permission to update this project"})
	}

	if req.JobNumber == "" || req.JobName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "job_number and job_name are required"})
	}

	// Check if job number is changed and if the new one already exists within the tenant
	if req.JobNumber != project.JobNumber {
		var count int64
		database.GetDB().Model(&model.Project{}).
			Where("job_number = ? AND id != ? AND tenant_id = ?", req.JobNumber, id, tenantID).
			Count(&count)
		if count > 0 {
			log.Warn("Project with this job number already exists for this tenant",
				zap.String("job_number", req.JobNumber),
				zap.Uint("tenant_id", tenantID))
			return c.JSON(http.StatusConflict, echo.Map{"error": "project with this job number already exists"})
		}
	}

	if req.Type == "" {
		req.Type = project.Type
	}
	if !model.ValidProjectType(req.Type) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project type"})
	}

	if req.Status == "" {
		req.Status = project.Status
	}
	if !model.ValidProjectStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project status"})
	}

	project.JobNumber = req.JobNumber
	project.JobName = req.JobName
	project.Customer = req.Customer
	project.Type = req.Type
	project.ContractValue = req.ContractValue
	project.Status = req.Status
	// TenantID remains unchanged - can't change tenant ownership

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&project); result.Error != nil {
		log.Error("Failed to update project",
			zap.Uint64("project_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update project"})
	}

	log.Info("Project updated successfully",
		zap.Uint64("project_id", id),
		zap.String("job_number", project.JobNumber),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusOK, project)
}

// DeleteProject soft deletes a project for the current tenant
func DeleteProject(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("project", "delete")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
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
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, tenantID).First(&project)
	if result.Error != nil {
		log.Warn("Project not found or does not belong to tenant",
			zap.Uint64("project_id", id),
			zap.Uint("tenant_id", tenantID),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(&project); result.Error != nil {
		log.Error("Failed to delete project",
			zap.Uint64("project_id", id),
			zap.Uint("tenant_id", tenantID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete project"})
	}

	// Update project count metric
	go updateProjectCount(tenantID)

	log.Info("Project deleted successfully",
		zap.Uint64("project_id", id),
		zap.String("job_number", project.JobNumber),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusOK, echo.Map{"message": "project deleted successfully"})
}

// Helper function to refresh project count metrics
func updateProjectCount(tenantID uint) {
	var count int64
	database.GetDB().Model(&model.Project{}).
		Where("tenant_id = ?", tenantID).
		Count(&count)
	prometheus.UpdateProjectsPerTenant(tenantID, count)

	var tenants int64
	database.GetDB().Model(&model.Project{}).
		Distinct("tenant_id").
		Count(&tenants)
	prometheus.UpdateActiveTenants(tenants)
}
