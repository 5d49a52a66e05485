package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/triumph135/protrack-sub000/internal/middleware"
	"github.com/triumph135/protrack-sub000/internal/model"
	"github.com/triumph135/protrack-sub000/pkg/database"
	"github.com/triumph135/protrack-sub000/pkg/logger"
	"github.com/triumph135/protrack-sub000/prometheus"
)

// AttachmentRequest defines the structure for attachment metadata requests
type AttachmentRequest struct {
	EntityType  string `json:"entity_type"`
	EntityID    uint   `json:"entity_id"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type"`
	StoragePath string `json:"storage_path"`
}

// ListAttachments retrieves attachment metadata for a cost entry or invoice
func ListAttachments(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("attachment", "list")

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	entityType := c.QueryParam("entity_type")
	rawEntityID := c.QueryParam("entity_id")
	if entityType == "" || rawEntityID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "entity_type and entity_id are required"})
	}
	entityID, err := strconv.ParseUint(rawEntityID, 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entity_id"})
	}

	area, status, msg := attachmentArea(log, entityType, uint(entityID), tenantID, false)
	if status != 0 {
		return c.JSON(status, echo.Map{"error": msg})
	}

	// Access follows the parent entity's area
	user := middleware.CurrentUser(c)
	if !user.CanRead(area) {
		prometheus.RecordPermissionDenied(string(area))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var attachments []model.Attachment
	result := database.GetDB().
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tenantID, entityType, entityID).
		Order("created_at desc").
		Find(&attachments)
	if result.Error != nil {
		log.Error("Failed to retrieve attachments",
			zap.String("entity_type", entityType),
			zap.Uint64("entity_id", entityID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve attachments"})
	}

	return c.JSON(http.StatusOK, echo.Map{"attachments": attachments})
}

// CreateAttachment stores attachment metadata for a cost entry or invoice.
// The storage path is generated under the tenant's prefix when the request
// does not carry one; a caller-provided path outside the prefix is rejected.
func CreateAttachment(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("attachment", "create")

	var req AttachmentRequest
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

	if req.EntityType == "" || req.EntityID == 0 || req.FileName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "entity_type, entity_id and file_name are required"})
	}

	area, status, msg := attachmentArea(log, req.EntityType, req.EntityID, tenantID, false)
	if status != 0 {
		return c.JSON(status, echo.Map{"error": msg})
	}

	user := middleware.CurrentUser(c)
	if !user.CanWrite(area) {
		prometheus.RecordPermissionDenied(string(area))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	attachment := model.Attachment{
		TenantID:    tenantID,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		ContentType: req.ContentType,
		StoragePath: req.StoragePath,
		UploadedBy:  userID,
	}

	if attachment.StoragePath == "" {
		attachment.StoragePath = model.TenantStoragePrefix(tenantID) +
			fmt.Sprintf("%s/%d/%s/%s", req.EntityType, req.EntityID, uuid.New().String(), req.FileName)
	} else if !attachment.HasValidStoragePath() {
		log.Warn("Storage path outside tenant prefix",
			zap.String("storage_path", req.StoragePath),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "storage path must be under the tenant prefix"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&attachment); result.Error != nil {
		log.Error("Failed to create attachment",
			zap.String("file_name", req.FileName),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create attachment"})
	}

	log.Info("Attachment created successfully",
		zap.Uint("attachment_id", attachment.ID),
		zap.String("file_name", attachment.FileName),
		zap.String("entity_type", attachment.EntityType),
		zap.Uint("entity_id", attachment.EntityID),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusCreated, attachment)
}

// DeleteAttachment removes attachment metadata
func DeleteAttachment(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("attachment", "delete")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid attachment ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attachment ID"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	var attachment model.Attachment
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, tenantID).First(&attachment)
	if result.Error != nil {
		log.Warn("Attachment not found or does not belong to tenant",
			zap.Uint64("attachment_id", id),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "attachment not found"})
	}

	// A soft-deleted parent still resolves, orphaned metadata stays removable
	area, status, msg := attachmentArea(log, attachment.EntityType, attachment.EntityID, tenantID, true)
	if status != 0 {
		return c.JSON(status, echo.Map{"error": msg})
	}

	user := middleware.CurrentUser(c)
	if !user.CanWrite(area) {
		prometheus.RecordPermissionDenied(string(area))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(&attachment); result.Error != nil {
		log.Error("Failed to delete attachment",
			zap.Uint64("attachment_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete attachment"})
	}

	log.Info("Attachment deleted successfully",
		zap.Uint64("attachment_id", id),
		zap.String("file_name", attachment.FileName),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusOK, echo.Map{"message": "attachment deleted successfully"})
}

// attachmentArea resolves the permission area guarding an attachment's
// parent and verifies the parent belongs to the tenant. Cost attachments
// inherit the cost category's area, invoice attachments use the invoices
// area. A non-zero status means resolution failed.
func attachmentArea(log *zap.Logger, entityType string, entityID, tenantID uint, includeDeleted bool) (model.Area, int, string) {
	db := database.GetDB()
	if includeDeleted {
		db = db.Unscoped()
	}

	switch entityType {
	case model.AttachmentEntityCost:
		var cost model.ProjectCost
		if result := db.Where("id = ? AND tenant_id = ?", entityID, tenantID).First(&cost); result.Error != nil {
			log.Warn("Cost entry not found for attachment",
				zap.Uint("entity_id", entityID),
				zap.Uint("tenant_id", tenantID))
			return "", http.StatusNotFound, "cost entry not found"
		}
		return model.AreaForCategory(cost.Category), 0, ""
	case model.AttachmentEntityInvoice:
		var invoice model.CustomerInvoice
		if result := db.Where("id = ? AND tenant_id = ?", entityID, tenantID).First(&invoice); result.Error != nil {
			log.Warn("Invoice not found for attachment",
				zap.Uint("entity_id", entityID),
				zap.Uint("tenant_id", tenantID))
			return "", http.StatusNotFound, "invoice not found"
		}
		return model.AreaInvoices, 0, ""
	default:
		return "", http.StatusBadRequest, "invalid entity type"
	}
}
