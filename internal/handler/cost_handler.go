package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/triumph135/protrack-sub000/internal/finance"
	"github.com/triumph135/protrack-sub000/internal/middleware"
	"github.com/triumph135/protrack-sub000/internal/model"
	"github.com/triumph135/protrack-sub000/pkg/database"
	"github.com/triumph135/protrack-sub000/pkg/logger"
	"github.com/triumph135/protrack-sub000/prometheus"
)

// costDateFormat is the wire format for cost entry dates
const costDateFormat = "2006-01-02"

// CostRequest defines the structure for cost entry creation/update requests.
// Labor entries carry hour/rate fields, every other category uses Cost.
type CostRequest struct {
	Date          string  `json:"date"`
	Vendor        string  `json:"vendor"`
	InvoiceNumber string  `json:"invoice_number"`
	Description   string  `json:"description"`
	Subcontractor string  `json:"subcontractor_name"`
	Cost          float64 `json:"cost"`
	InSystem      bool    `json:"in_system"`
	ChangeOrderID *uint   `json:"change_order_id"`
	EmployeeID    *uint   `json:"employee_id"`
	STHours       float64 `json:"st_hours"`
	STRate        float64 `json:"st_rate"`
	OTHours       float64 `json:"ot_hours"`
	OTRate        float64 `json:"ot_rate"`
	DTHours       float64 `json:"dt_hours"`
	DTRate        float64 `json:"dt_rate"`
	PerDiem       float64 `json:"per_diem"`
	MobQty        float64 `json:"mob_qty"`
	MobRate       float64 `json:"mob_rate"`
}

// costWithAttachments embeds the attachment count into list responses
type costWithAttachments struct {
	model.ProjectCost
	AttachmentCount int64 `json:"attachment_count"`
}

// ListCosts retrieves cost entries for a project and category, optionally
// narrowed to the base contract or a single change order
func ListCosts(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("cost", "list")

	projectID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid project ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project ID"})
	}

	category := model.CostCategory(c.Param("category"))
	if !model.ValidCostCategory(category) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cost category"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	// Category areas are dynamic, so the permission check lives here
	// instead of in route middleware
	user := middleware.CurrentUser(c)
	area := model.AreaForCategory(category)
	if !user.CanRead(area) {
		prometheus.RecordPermissionDenied(string(area))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	var project model.Project
	if result := database.GetDB().Where("id = ? AND tenant_id = ?", projectID, tenantID).First(&project); result.Error != nil {
		log.Error("Project not found or does not belong to tenant",
			zap.Uint64("project_id", projectID),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	scope, err := finance.ParseChangeOrderScope(c.QueryParam("change_order_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	page, limit, offset := parsePagination(c)

	query := database.GetDB().
		Where("project_id = ? AND tenant_id = ? AND category = ?", projectID, tenantID, category)
	query = applyChangeOrderScope(query, scope)

	var total int64
	query.Model(&model.ProjectCost{}).Count(&total)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var costs []model.ProjectCost
	result := query.
		Order("date desc, created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&costs)
	if result.Error != nil {
		log.Error("Failed to retrieve costs",
			zap.Uint64("project_id", projectID),
			zap.String("category", string(category)),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve costs"})
	}

	// Stored cost is kept current on every save, so the category total
	// can come straight from the column
	var totalAmount float64
	sumQuery := database.GetDB().Model(&model.ProjectCost{}).
		Where("project_id = ? AND tenant_id = ? AND category = ?", projectID, tenantID, category)
	sumQuery = applyChangeOrderScope(sumQuery, scope)
	sumQuery.Select("COALESCE(SUM(cost), 0)").Scan(&totalAmount)

	items := make([]costWithAttachments, 0, len(costs))
	for i := range costs {
		items = append(items, costWithAttachments{ProjectCost: costs[i]})
	}

	// Attachment counts are informational, a failure here does not fail the list
	if len(costs) > 0 {
		ids := make([]uint, 0, len(costs))
		for i := range costs {
			ids = append(ids, costs[i].ID)
		}
		var rows []struct {
			EntityID uint
			Count    int64
		}
		err := database.GetDB().Model(&model.Attachment{}).
			Select("entity_id, COUNT(*) as count").
			Where("entity_type = ? AND entity_id IN ?", model.AttachmentEntityCost, ids).
			Group("entity_id").
			Scan(&rows).Error
		if err != nil {
			log.Warn("Failed to load attachment counts", zap.Error(err))
		} else {
			counts := make(map[uint]int64, len(rows))
			for _, row := range rows {
				counts[row.EntityID] = row.Count
			}
			for i := range items {
				items[i].AttachmentCount = counts[items[i].ID]
			}
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"costs":        items,
		"total_amount": totalAmount,
		"pagination":   paginationMap(page, limit, total),
	})
}

// CreateCost records a cost entry against a project and category
func CreateCost(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("cost", "create")

	projectID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid project ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project ID"})
	}

	category := model.CostCategory(c.Param("category"))
	if !model.ValidCostCategory(category) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cost category"})
	}

	var req CostRequest
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

	user := middleware.CurrentUser(c)
	area := model.AreaForCategory(category)
	if !user.CanWrite(area) {
		prometheus.RecordPermissionDenied(string(area))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	if req.Date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	date, err := time.Parse(costDateFormat, req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, expected YYYY-MM-DD"})
	}

	var project model.Project
	if result := database.GetDB().Where("id = ? AND tenant_id = ?", projectID, tenantID).First(&project); result.Error != nil {
		log.Error("Project not found or does not belong to tenant",
			zap.Uint64("project_id", projectID),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	if req.ChangeOrderID != nil {
		var changeOrder model.ChangeOrder
		result := database.GetDB().
			Where("id = ? AND project_id = ? AND tenant_id = ?", *req.ChangeOrderID, projectID, tenantID).
			First(&changeOrder)
		if result.Error != nil {
			log.Warn("Change order does not belong to this project",
				zap.Uint("change_order_id", *req.ChangeOrderID),
				zap.Uint64("project_id", projectID))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "change order does not belong to this project"})
		}
	}

	cost := model.ProjectCost{
		TenantID:      tenantID,
		ProjectID:     uint(projectID),
		Category:      category,
		ChangeOrderID: req.ChangeOrderID,
		Date:          date,
		Vendor:        req.Vendor,
		InvoiceNumber: req.InvoiceNumber,
		Description:   req.Description,
		Subcontractor: req.Subcontractor,
		Cost:          req.Cost,
		InSystem:      req.InSystem,
		STHours:       req.STHours,
		STRate:        req.STRate,
		OTHours:       req.OTHours,
		OTRate:        req.OTRate,
		DTHours:       req.DTHours,
		DTRate:        req.DTRate,
		PerDiem:       req.PerDiem,
		MobQty:        req.MobQty,
		MobRate:       req.MobRate,
		CreatedBy:     userID,
	}

	if category == model.CategoryLabor {
		employee, errMsg := resolveLaborEmployee(log, req.EmployeeID, tenantID, uint(projectID))
		if errMsg != "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": errMsg})
		}
		cost.EmployeeID = req.EmployeeID

		// Rates default to the employee's when the request carries none
		if req.STRate == 0 && req.OTRate == 0 && req.DTRate == 0 && req.MobRate == 0 {
			cost.STRate = employee.StandardRate
			cost.OTRate = employee.OTRate
			cost.DTRate = employee.DTRate
			cost.MobRate = employee.MobRate
		}

		// The stored cost of a labor entry is always derived from its parts
		cost.Cost = cost.LaborLineTotal()
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&cost); result.Error != nil {
		log.Error("Failed to create cost entry",
			zap.Uint64("project_id", projectID),
			zap.String("category", string(category)),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create cost entry"})
	}

	log.Info("Cost entry created successfully",
		zap.Uint("cost_id", cost.ID),
		zap.String("category", string(category)),
		zap.Float64("amount", cost.Cost),
		zap.Uint64("project_id", projectID),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusCreated, cost)
}

// UpdateCost updates an existing cost entry
func UpdateCost(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("cost", "update")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid cost ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cost ID"})
	}

	var req CostRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	var cost model.ProjectCost
	result := database.GetDB().Where("id = ?", id).First(&cost)
	if result.Error != nil {
		log.Error("Cost entry not found for update",
			zap.Uint64("cost_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "cost entry not found"})
	}

	if cost.TenantID != tenantID {
		log.Warn("Unauthorized attempt to update cost from different tenant",
			zap.Uint64("cost_id", id),
			zap.Uint("cost_tenant", cost.TenantID),
			zap.Uint("request_tenant", tenantID))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you don't have permission to update this cost entry"})
	}

	user := middleware.CurrentUser(c)
	area := model.AreaForCategory(cost.Category)
	if !user.CanWrite(area) {
		prometheus.RecordPermissionDenied(string(area))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	if req.Date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	date, err := time.Parse(costDateFormat, req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, expected YYYY-MM-DD"})
	}

	if req.ChangeOrderID != nil {
		var changeOrder model.ChangeOrder
		result := database.GetDB().
			Where("id = ? AND project_id = ? AND tenant_id = ?", *req.ChangeOrderID, cost.ProjectID, tenantID).
			First(&changeOrder)
		if result.Error != nil {
			log.Warn("Change order does not belong to this project",
				zap.Uint("change_order_id", *req.ChangeOrderID),
				zap.Uint("project_id", cost.ProjectID))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "change order does not belong to this project"})
		}
	}

	cost.ChangeOrderID = req.ChangeOrderID
	cost.Date = date
	cost.Vendor = req.Vendor
	cost.InvoiceNumber = req.InvoiceNumber
	cost.Description = req.Description
	cost.Subcontractor = req.Subcontractor
	cost.Cost = req.Cost
	cost.InSystem = req.InSystem
	cost.STHours = req.STHours
	cost.STRate = req.STRate
	cost.OTHours = req.OTHours
	cost.OTRate = req.OTRate
	cost.DTHours = req.DTHours
	cost.DTRate = req.DTRate
	cost.PerDiem = req.PerDiem
	cost.MobQty = req.MobQty
	cost.MobRate = req.MobRate
	// Category and TenantID remain unchanged

	if cost.Category == model.CategoryLabor {
		employee, errMsg := resolveLaborEmployee(log, req.EmployeeID, tenantID, cost.ProjectID)
		if errMsg != "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": errMsg})
		}
		cost.EmployeeID = req.EmployeeID

		if req.STRate == 0 && req.OTRate == 0 && req.DTRate == 0 && req.MobRate == 0 {
			cost.STRate = employee.StandardRate
			cost.OTRate = employee.OTRate
			cost.DTRate = employee.DTRate
			cost.MobRate = employee.MobRate
		}

		cost.Cost = cost.LaborLineTotal()
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&cost); result.Error != nil {
		log.Error("Failed to update cost entry",
			zap.Uint64("cost_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update cost entry"})
	}

	log.Info("Cost entry updated successfully",
		zap.Uint64("cost_id", id),
		zap.String("category", string(cost.Category)),
		zap.Float64("amount", cost.Cost),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusOK, cost)
}

// DeleteCost soft deletes a cost entry
func DeleteCost(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("cost", "delete")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid cost ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cost ID"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	var cost model.ProjectCost
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, tenantID).First(&cost)
	if result.Error != nil {
		log.Warn("Cost entry not found or does not belong to tenant",
			zap.Uint64("cost_id", id),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "cost entry not found"})
	}

	user := middleware.CurrentUser(c)
	area := model.AreaForCategory(cost.Category)
	if !user.CanWrite(area) {
		prometheus.RecordPermissionDenied(string(area))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(&cost); result.Error != nil {
		log.Error("Failed to delete cost entry",
			zap.Uint64("cost_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete cost entry"})
	}

	log.Info("Cost entry deleted successfully",
		zap.Uint64("cost_id", id),
		zap.String("category", string(cost.Category)),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusOK, echo.Map{"message": "cost entry deleted successfully"})
}

// resolveLaborEmployee validates that a labor entry references an employee
// in the same tenant who is assigned to the project or works across all of
// them. Returns the employee or a message describing why the reference is
// invalid.
func resolveLaborEmployee(log *zap.Logger, employeeID *uint, tenantID, projectID uint) (*model.Employee, string) {
	if employeeID == nil {
		return nil, "employee_id is required for labor costs"
	}

	var employee model.Employee
	result := database.GetDB().Where("id = ? AND tenant_id = ?", *employeeID, tenantID).First(&employee)
	if result.Error != nil {
		log.Warn("Employee not found or does not belong to tenant",
			zap.Uint("employee_id", *employeeID),
			zap.Uint("tenant_id", tenantID))
		return nil, "employee not found"
	}

	if employee.ProjectID != nil && *employee.ProjectID != projectID {
		log.Warn("Employee is not assigned to this project",
			zap.Uint("employee_id", *employeeID),
			zap.Uint("project_id", projectID))
		return nil, "employee is not assigned to this project"
	}

	return &employee, ""
}
