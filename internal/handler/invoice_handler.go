package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/triumph135/protrack-sub000/internal/finance"
	"github.com/triumph135/protrack-sub000/internal/model"
	"github.com/triumph135/protrack-sub000/pkg/database"
	"github.com/triumph135/protrack-sub000/pkg/logger"
	"github.com/triumph135/protrack-sub000/prometheus"
)

// InvoiceRequest defines the structure for customer invoice creation/update requests
type InvoiceRequest struct {
	InvoiceNumber string  `json:"invoice_number"`
	Amount        float64 `json:"amount"`
	DateBilled    string  `json:"date_billed"`
	InSystem      bool    `json:"in_system"`
	ChangeOrderID *uint   `json:"change_order_id"`
}

// invoiceWithAttachments embeds the attachment count into list responses
type invoiceWithAttachments struct {
	model.CustomerInvoice
	AttachmentCount int64 `json:"attachment_count"`
}

// ListInvoices retrieves customer invoices for a project, optionally
// narrowed to the base contract or a single change order
func ListInvoices(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("invoice", "list")

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

	scope, err := finance.ParseChangeOrderScope(c.QueryParam("change_order_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	page, limit, offset := parsePagination(c)

	query := database.GetDB().Where("project_id = ? AND tenant_id = ?", projectID, tenantID)
	query = applyChangeOrderScope(query, scope)

	var total int64
	query.Model(&model.CustomerInvoice{}).Count(&total)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var invoices []model.CustomerInvoice
	result := query.
		Order("date_billed desc, created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&invoices)
	if result.Error != nil {
		log.Error("Failed to retrieve invoices",
			zap.Uint64("project_id", projectID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve invoices"})
	}

	var totalAmount float64
	sumQuery := database.GetDB().Model(&model.CustomerInvoice{}).
		Where("project_id = ? AND tenant_id = ?", projectID, tenantID)
	sumQuery = applyChangeOrderScope(sumQuery, scope)
	sumQuery.Select("COALESCE(SUM(amount), 0)").Scan(&totalAmount)

	items := make([]invoiceWithAttachments, 0, len(invoices))
	for i := range invoices {
		items = append(items, invoiceWithAttachments{CustomerInvoice: invoices[i]})
	}

	// Attachment counts are informational, a failure here does not fail the list
	if len(invoices) > 0 {
		ids := make([]uint, 0, len(invoices))
		for i := range invoices {
			ids = append(ids, invoices[i].ID)
		}
		var rows []struct {
			EntityID uint
			Count    int64
		}
		err := database.GetDB().Model(&model.Attachment{}).
			Select("entity_id, COUNT(*) as count").
			Where("entity_type = ? AND entity_id IN ?", model.AttachmentEntityInvoice, ids).
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
		"invoices":     items,
		"total_billed": totalAmount,
		"pagination":   paginationMap(page, limit, total),
	})
}

// CreateInvoice records a customer invoice against a project
func CreateInvoice(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("invoice", "create")

	projectID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid project ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project ID"})
	}

	var req InvoiceRequest
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

	if req.InvoiceNumber == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invoice_number is required"})
	}
	if req.DateBilled == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date_billed is required"})
	}
	dateBilled, err := time.Parse(costDateFormat, req.DateBilled)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_billed, expected YYYY-MM-DD"})
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

	invoice := model.CustomerInvoice{
		TenantID:      tenantID,
		ProjectID:     uint(projectID),
		ChangeOrderID: req.ChangeOrderID,
		InvoiceNumber: req.InvoiceNumber,
		Amount:        req.Amount,
		DateBilled:    dateBilled,
		InSystem:      req.InSystem,
		CreatedBy:     userID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&invoice); result.Error != nil {
		log.Error("Failed to create invoice",
			zap.String("invoice_number", req.InvoiceNumber),
			zap.Uint64("project_id", projectID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create invoice"})
	}

	log.Info("Invoice created successfully",
		zap.Uint("invoice_id", invoice.ID),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Float64("amount", invoice.Amount),
		zap.Uint64("project_id", projectID),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusCreated, invoice)
}

// UpdateInvoice updates an existing customer invoice
func UpdateInvoice(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("invoice", "update")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid invoice ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid invoice ID"})
	}

	var req InvoiceRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	var invoice model.CustomerInvoice
	result := database.GetDB().Where("id = ?", id).First(&invoice)
	if result.Error != nil {
		log.Error("Invoice not found for update",
			zap.Uint64("invoice_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "invoice not found"})
	}

	if invoice.TenantID != tenantID {
		log.Warn("Unauthorized attempt to update invoice from different tenant",
			zap.Uint64("invoice_id", id),
			zap.Uint("invoice_tenant", invoice.TenantID),
			zap.Uint("request_tenant", tenantID))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you don't have permission to update this invoice"})
	}

	if req.InvoiceNumber == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invoice_number is required"})
	}
	if req.DateBilled == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date_billed is required"})
	}
	dateBilled, err := time.Parse(costDateFormat, req.DateBilled)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_billed, expected YYYY-MM-DD"})
	}

	if req.ChangeOrderID != nil {
		var changeOrder model.ChangeOrder
		result := database.GetDB().
			Where("id = ? AND project_id = ? AND tenant_id = ?", *req.ChangeOrderID, invoice.ProjectID, tenantID).
			First(&changeOrder)
		if result.Error != nil {
			log.Warn("Change order does not belong to this project",
				zap.Uint("change_order_id", *req.ChangeOrderID),
				zap.Uint("project_id", invoice.ProjectID))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "change order does not belong to this project"})
		}
	}

	invoice.ChangeOrderID = req.ChangeOrderID
	invoice.InvoiceNumber = req.InvoiceNumber
	invoice.Amount = req.Amount
	invoice.DateBilled = dateBilled
	invoice.InSystem = req.InSystem
	// ProjectID and TenantID remain unchanged

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&invoice); result.Error != nil {
		log.Error("Failed to update invoice",
			zap.Uint64("invoice_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update invoice"})
	}

	log.Info("Invoice updated successfully",
		zap.Uint64("invoice_id", id),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusOK, invoice)
}

// DeleteInvoice soft deletes a customer invoice
func DeleteInvoice(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("invoice", "delete")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid invoice ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid invoice ID"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	var invoice model.CustomerInvoice
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, tenantID).First(&invoice)
	if result.Error != nil {
		log.Warn("Invoice not found or does not belong to tenant",
			zap.Uint64("invoice_id", id),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "invoice not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(&invoice); result.Error != nil {
		log.Error("Failed to delete invoice",
			zap.Uint64("invoice_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete invoice"})
	}

	log.Info("Invoice deleted successfully",
		zap.Uint64("invoice_id", id),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusOK, echo.Map{"message": "invoice deleted successfully"})
}
