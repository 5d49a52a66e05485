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

// ChangeOrderRequest defines the structure for change order creation/update requests
type ChangeOrderRequest struct {
	Name                    string  `json:"name"`
	Description             string  `json:"description"`
	AdditionalContractValue float64 `json:"additional_contract_value"`
}

// ListChangeOrders retrieves all change orders for a project
func ListChangeOrders(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("change_order", "list")

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
	var changeOrders []model.ChangeOrder
	result := database.GetDB().
		Where("project_id = ? AND tenant_id = ?", projectID, tenantID).
		Order("created_at asc").
		Find(&changeOrders)
	if result.Error != nil {
		log.Error("Failed to retrieve change orders",
			zap.Uint64("project_id", projectID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve change orders"})
	}

	return c.JSON(http.StatusOK, echo.Map{"change_orders": changeOrders})
}

// CreateChangeOrder adds a change order to a project
func CreateChangeOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("change_order", "create")

	projectID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid project ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project ID"})
	}

	var req ChangeOrderRequest
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

	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	var project model.Project
	if result := database.GetDB().Where("id = ? AND tenant_id = ?", projectID, tenantID).First(&project); result.Error != nil {
		log.Error("Project not found or does not belong to tenant",
			zap.Uint64("project_id", projectID),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	// Change order names are unique within a project
	var count int64
	database.GetDB().Model(&model.ChangeOrder{}).
		Where("name = ? AND project_id = ?", req.Name, projectID).
		Count(&count)
	if count > 0 {
		log.Warn("Change order with this name already exists for this project",
			zap.String("name", req.Name),
			zap.Uint64("project_id", projectID))
		return c.JSON(http.StatusConflict, echo.Map{"error": "change order with this name already exists"})
	}

	changeOrder := model.ChangeOrder{
		TenantID:                tenantID,
		ProjectID:               uint(projectID),
		Name:                    req.Name,
		Description:             req.Description,
		AdditionalContractValue: req.AdditionalContractValue,
		CreatedBy:               userID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&changeOrder); result.Error != nil {
		log.Error("Failed to create change order",
			zap.String("name", req.Name),
			zap.Uint64("project_id", projectID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create change order"})
	}

	log.Info("Change order created successfully",
		zap.Uint("change_order_id", changeOrder.ID),
		zap.String("name", changeOrder.Name),
		zap.Uint64("project_id", projectID),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusCreated, changeOrder)
}

// UpdateChangeOrder updates an existing change order
func UpdateChangeOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("change_order", "update")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid change order ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid change order ID"})
	}

	var req ChangeOrderRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	var changeOrder model.ChangeOrder
	result := database.GetDB().Where("id = ?", id).First(&changeOrder)
	if result.Error != nil {
		log.Error("Change order not found for update",
			zap.Uint64("change_order_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "change order not found"})
	}

	if changeOrder.TenantID != tenantID {
		log.Warn("Unauthorized attempt to update change order from different tenant",
			zap.Uint64("change_order_id", id),
			zap.Uint("change_order_tenant", changeOrder.TenantID),
			zap.Uint("request_tenant", tenantID))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you don't have permission to update this change order"})
	}

	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	if req.Name != changeOrder.Name {
		var count int64
		database.GetDB().Model(&model.ChangeOrder{}).
			Where("name = ? AND id != ? AND project_id = ?", req.Name, id, changeOrder.ProjectID).
			Count(&count)
		if count > 0 {
			log.Warn("Change order with this name already exists for this project",
				zap.String("name", req.Name),
				zap.Uint("project_id", changeOrder.ProjectID))
			return c.JSON(http.StatusConflict, echo.Map{"error": "change order with this name already exists"})
		}
	}

	changeOrder.Name = req.Name
	changeOrder.Description = req.Description
	changeOrder.AdditionalContractValue = req.AdditionalContractValue

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&changeOrder); result.Error != nil {
		log.Error("Failed to update change order",
			zap.Uint64("change_order_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update change order"})
	}

	log.Info("Change order updated successfully",
		zap.Uint64("change_order_id", id),
		zap.String("name", changeOrder.Name),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusOK, changeOrder)
}

// DeleteChangeOrder removes a change order and reassigns its costs and
// invoices to the base contract in one transaction
func DeleteChangeOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("change_order", "delete")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid change order ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid change order ID"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	var changeOrder model.ChangeOrder
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, tenantID).First(&changeOrder)
	if result.Error != nil {
		log.Warn("Change order not found or does not belong to tenant",
			zap.Uint64("change_order_id", id),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "change order not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	tx := database.GetDB().Begin()
	if tx.Error != nil {
		log.Error("Failed to begin transaction", zap.Error(tx.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	costResult := tx.Model(&model.ProjectCost{}).
		Where("change_order_id = ?", changeOrder.ID).
		Update("change_order_id", nil)
	if costResult.Error != nil {
		tx.Rollback()
		log.Error("Failed to reassign costs to base contract",
			zap.Uint64("change_order_id", id),
			zap.Error(costResult.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete change order"})
	}

	invoiceResult := tx.Model(&model.CustomerInvoice{}).
		Where("change_order_id = ?", changeOrder.ID).
		Update("change_order_id", nil)
	if invoiceResult.Error != nil {
		tx.Rollback()
		log.Error("Failed to reassign invoices to base contract",
			zap.Uint64("change_order_id", id),
			zap.Error(invoiceResult.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete change order"})
	}

	if result := tx.Delete(&changeOrder); result.Error != nil {
		tx.Rollback()
		log.Error("Failed to delete change order",
			zap.Uint64("change_order_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete change order"})
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete change order"})
	}

	log.Info("Change order deleted successfully",
		zap.Uint64("change_order_id", id),
		zap.String("name", changeOrder.Name),
		zap.Int64("reassigned_costs", costResult.RowsAffected),
		zap.Int64("reassigned_invoices", invoiceResult.RowsAffected),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusOK, echo.Map{
		"message":             "change order deleted successfully",
		"reassigned_costs":    costResult.RowsAffected,
		"reassigned_invoices": invoiceResult.RowsAffected,
	})
}
