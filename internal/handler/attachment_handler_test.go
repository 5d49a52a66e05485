package handler

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triumph135/protrack-sub000/internal/model"
	"github.com/triumph135/protrack-sub000/pkg/database"
)

func TestCreateAttachmentGeneratesTenantScopedPath(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	user := createUser(t, tenant.ID, "pat@triumph.test", model.RoleMaster)
	project := createProject(t, tenant.ID, "24-1001", 100000)
	cost := createCost(t, tenant.ID, project.ID, model.CategoryMaterial, 1000, nil)

	c, rec := newTestContext(t, http.MethodPost, "/api/attachments", map[string]interface{}{
		"entity_type":  model.AttachmentEntityCost,
		"entity_id":    cost.ID,
		"file_name":    "receipt.pdf",
		"file_size":    20480,
		"content_type": "application/pdf",
	})
	authenticate(c, user)

	require.NoError(t, CreateAttachment(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var attachment model.Attachment
	require.NoError(t, database.GetDB().Where("entity_id = ?", cost.ID).First(&attachment).Error)
	assert.True(t, strings.HasPrefix(attachment.StoragePath, model.TenantStoragePrefix(tenant.ID)))
	assert.True(t, strings.HasSuffix(attachment.StoragePath, "/receipt.pdf"))
	assert.Equal(t, user.ID, attachment.UploadedBy)
}

func TestCreateAttachmentRejectsForeignStoragePath(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	user := createUser(t, tenant.ID, "pat@triumph.test", model.RoleMaster)
	project := createProject(t, tenant.ID, "24-1001", 100000)
	cost := createCost(t, tenant.ID, project.ID, model.CategoryMaterial, 1000, nil)

	c, rec := newTestContext(t, http.MethodPost, "/api/attachments", map[string]interface{}{
		"entity_type":  model.AttachmentEntityCost,
		"entity_id":    cost.ID,
		"file_name":    "receipt.pdf",
		"storage_path": "tenants/999/cost/1/receipt.pdf",
	})
	authenticate(c, user)

	require.NoError(t, CreateAttachment(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAttachmentParentMustExistInTenant(t *testing.T) {
	setupTestDB(t)
	tenantA := createTenant(t, "Tenant A")
	tenantB := createTenant(t, "Tenant B")
	user := createUser(t, tenantA.ID, "a@a.test", model.RoleMaster)
	foreignProject := createProject(t, tenantB.ID, "24-2001", 50000)
	foreignCost := createCost(t, tenantB.ID, foreignProject.ID, model.CategoryMaterial, 1000, nil)

	c, rec := newTestContext(t, http.MethodPost, "/api/attachments", map[string]interface{}{
		"entity_type": model.AttachmentEntityCost,
		"entity_id":   foreignCost.ID,
		"file_name":   "receipt.pdf",
	})
	authenticate(c, user)

	require.NoError(t, CreateAttachment(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAttachmentFollowsParentPermission(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	viewer := createUser(t, tenant.ID, "viewer@triumph.test", model.RoleView)
	project := createProject(t, tenant.ID, "24-1001", 100000)
	cost := createCost(t, tenant.ID, project.ID, model.CategoryMaterial, 1000, nil)

	c, rec := newTestContext(t, http.MethodPost, "/api/attachments", map[string]interface{}{
		"entity_type": model.AttachmentEntityCost,
		"entity_id":   cost.ID,
		"file_name":   "receipt.pdf",
	})
	authenticate(c, viewer)

	require.NoError(t, CreateAttachment(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateAttachmentInvalidEntityType(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	user := createUser(t, tenant.ID, "pat@triumph.test", model.RoleMaster)

	c, rec := newTestContext(t, http.MethodPost, "/api/attachments", map[string]interface{}{
		"entity_type": "project",
		"entity_id":   1,
		"file_name":   "photo.jpg",
	})
	authenticate(c, user)

	require.NoError(t, CreateAttachment(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAttachmentsForInvoice(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	user := createUser(t, tenant.ID, "pat@triumph.test", model.RoleMaster)
	project := createProject(t, tenant.ID, "24-1001", 100000)
	invoice := createInvoice(t, tenant.ID, project.ID, "INV-001", 30000, nil)

	attachment := &model.Attachment{
		TenantID:    tenant.ID,
		EntityType:  model.AttachmentEntityInvoice,
		EntityID:    invoice.ID,
		FileName:    "signed-invoice.pdf",
		StoragePath: fmt.Sprintf("tenants/%d/invoice/%d/signed-invoice.pdf", tenant.ID, invoice.ID),
	}
	require.NoError(t, database.GetDB().Create(attachment).Error)

	c, rec := newTestContext(t, http.MethodGet,
		fmt.Sprintf("/api/attachments?entity_type=invoice&entity_id=%d", invoice.ID), nil)
	authenticate(c, user)

	require.NoError(t, ListAttachments(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	attachments := body["attachments"].([]interface{})
	require.Len(t, attachments, 1)
	assert.Equal(t, "signed-invoice.pdf", attachments[0].(map[string]interface{})["file_name"])
}

func TestDeleteAttachmentSurvivesDeletedParent(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	user := createUser(t, tenant.ID, "pat@triumph.test", model.RoleMaster)
	project := createProject(t, tenant.ID, "24-1001", 100000)
	cost := createCost(t, tenant.ID, project.ID, model.CategoryMaterial, 1000, nil)

	attachment := &model.Attachment{
		TenantID:    tenant.ID,
		EntityType:  model.AttachmentEntityCost,
		EntityID:    cost.ID,
		FileName:    "receipt.pdf",
		StoragePath: fmt.Sprintf("tenants/%d/cost/%d/receipt.pdf", tenant.ID, cost.ID),
	}
	require.NoError(t, database.GetDB().Create(attachment).Error)

	// Soft delete the parent cost, then remove its orphaned metadata
	require.NoError(t, database.GetDB().Delete(cost).Error)

	c, rec := newTestContext(t, http.MethodDelete, "/api/attachments/1", nil)
	authenticate(c, user)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(attachment.ID))

	require.NoError(t, DeleteAttachment(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	database.GetDB().Model(&model.Attachment{}).Where("id = ?", attachment.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDeleteAttachmentCrossTenant(t *testing.T) {
	setupTestDB(t)
	tenantA := createTenant(t, "Tenant A")
	tenantB := createTenant(t, "Tenant B")
	userA := createUser(t, tenantA.ID, "a@a.test", model.RoleMaster)
	foreignProject := createProject(t, tenantB.ID, "24-2001", 50000)
	foreignCost := createCost(t, tenantB.ID, foreignProject.ID, model.CategoryMaterial, 1000, nil)

	attachment := &model.Attachment{
		TenantID:    tenantB.ID,
		EntityType:  model.AttachmentEntityCost,
		EntityID:    foreignCost.ID,
		FileName:    "receipt.pdf",
		StoragePath: fmt.Sprintf("tenants/%d/cost/%d/receipt.pdf", tenantB.ID, foreignCost.ID),
	}
	require.NoError(t, database.GetDB().Create(attachment).Error)

	c, rec := newTestContext(t, http.MethodDelete, "/api/attachments/1", nil)
	authenticate(c, userA)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(attachment.ID))

	require.NoError(t, DeleteAttachment(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
