package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triumph135/protrack-sub000/internal/model"
	"github.com/triumph135/protrack-sub000/pkg/database"
)

func TestCreateInvoice(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	user := createUser(t, tenant.ID, "pat@triumph.test", model.RoleMaster)
	project := createProject(t, tenant.ID, "24-1001", 100000)

	c, rec := newTestContext(t, http.MethodPost, "/api/projects/1/invoices", map[string]interface{}{
		"invoice_number": "INV-2025-031",
		"amount":         42000.0,
		"date_billed":    "2025-03-31",
		"in_system":      true,
	})
	authenticate(c, user)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(project.ID))

	require.NoError(t, CreateInvoice(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var invoice model.CustomerInvoice
	require.NoError(t, database.GetDB().Where("project_id = ?", project.ID).First(&invoice).Error)
	assert.Equal(t, "INV-2025-031", invoice.InvoiceNumber)
	assert.Equal(t, 42000.0, invoice.Amount)
	assert.Equal(t, tenant.ID, invoice.TenantID)
	assert.Equal(t, user.ID, invoice.CreatedBy)
}

func TestCreateInvoiceRequiresDateBilled(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	user := createUser(t, tenant.ID, "pat@triumph.test", model.RoleMaster)
	project := createProject(t, tenant.ID, "24-1001", 100000)

	c, rec := newTestContext(t, http.MethodPost, "/api/projects/1/invoices", map[string]interface{}{
		"invoice_number": "INV-2025-031",
		"amount":         42000.0,
	})
	authenticate(c, user)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(project.ID))

	require.NoError(t, CreateInvoice(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateInvoiceChangeOrderMustBelongToProject(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	user := createUser(t, tenant.ID, "pat@triumph.test", model.RoleMaster)
	project := createProject(t, tenant.ID, "24-1001", 100000)
	other := createProject(t, tenant.ID, "24-1002", 50000)
	foreignCO := createChangeOrder(t, tenant.ID, other.ID, "CO-OTHER", 10000)

	c, rec := newTestContext(t, http.MethodPost, "/api/projects/1/invoices", map[string]interface{}{
		"invoice_number":  "INV-2025-031",
		"amount":          42000.0,
		"date_billed":     "2025-03-31",
		"change_order_id": foreignCO.ID,
	})
	authenticate(c, user)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(project.ID))

	require.NoError(t, CreateInvoice(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListInvoicesChangeOrderScope(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	user := createUser(t, tenant.ID, "pat@triumph.test", model.RoleMaster)
	project := createProject(t, tenant.ID, "24-1001", 100000)
	changeOrder := createChangeOrder(t, tenant.ID, project.ID, "CO-001", 20000)

	createInvoice(t, tenant.ID, project.ID, "INV-001", 30000, nil)
	createInvoice(t, tenant.ID, project.ID, "INV-002", 15000, &changeOrder.ID)

	list := func(query string) (int, float64) {
		c, rec := newTestContext(t, http.MethodGet, "/api/projects/1/invoices"+query, nil)
		authenticate(c, user)
		c.SetParamNames("id")
		c.SetParamValues(fmt.Sprint(project.ID))
		require.NoError(t, ListInvoices(c))
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		return len(body["invoices"].([]interface{})), body["total_billed"].(float64)
	}

	count, total := list("")
	assert.Equal(t, 2, count)
	assert.Equal(t, 45000.0, total)

	count, total = list("?change_order_id=base")
	assert.Equal(t, 1, count)
	assert.Equal(t, 30000.0, total)

	count, total = list(fmt.Sprintf("?change_order_id=%d", changeOrder.ID))
	assert.Equal(t, 1, count)
	assert.Equal(t, 15000.0, total)
}

func TestUpdateInvoice(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	user := createUser(t, tenant.ID, "pat@triumph.test", model.RoleMaster)
	project := createProject(t, tenant.ID, "24-1001", 100000)
	invoice := createInvoice(t, tenant.ID, project.ID, "INV-001", 30000, nil)

	c, rec := newTestContext(t, http.MethodPut, "/api/invoices/1", map[string]interface{}{
		"invoice_number": "INV-001R",
		"amount":         31500.0,
		"date_billed":    "2025-04-02",
	})
	authenticate(c, user)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(invoice.ID))

	require.NoError(t, UpdateInvoice(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated model.CustomerInvoice
	require.NoError(t, database.GetDB().First(&updated, invoice.ID).Error)
	assert.Equal(t, "INV-001R", updated.InvoiceNumber)
	assert.Equal(t, 31500.0, updated.Amount)
	assert.Equal(t, tenant.ID, updated.TenantID)
	assert.Equal(t, project.ID, updated.ProjectID)
}

func TestUpdateInvoiceCrossTenant(t *testing.T) {
	setupTestDB(t)
	tenantA := createTenant(t, "Tenant A")
	tenantB := createTenant(t, "Tenant B")
	userA := createUser(t, tenantA.ID, "a@a.test", model.RoleMaster)
	foreignProject := createProject(t, tenantB.ID, "24-2001", 50000)
	foreign := createInvoice(t, tenantB.ID, foreignProject.ID, "INV-B1", 9000, nil)

	c, rec := newTestContext(t, http.MethodPut, "/api/invoices/1", map[string]interface{}{
		"invoice_number": "INV-B1",
		"amount":         1.0,
		"date_billed":    "2025-04-02",
	})
	authenticate(c, userA)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(foreign.ID))

	require.NoError(t, UpdateInvoice(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteInvoiceCrossTenant(t *testing.T) {
	setupTestDB(t)
	tenantA := createTenant(t, "Tenant A")
	tenantB := createTenant(t, "Tenant B")
	userA := createUser(t, tenantA.ID, "a@a.test", model.RoleMaster)
	foreignProject := createProject(t, tenantB.ID, "24-2001", 50000)
	foreign := createInvoice(t, tenantB.ID, foreignProject.ID, "INV-B1", 9000, nil)

	c, rec := newTestContext(t, http.MethodDelete, "/api/invoices/1", nil)
	authenticate(c, userA)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(foreign.ID))

	require.NoError(t, DeleteInvoice(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var still int64
	database.GetDB().Model(&model.CustomerInvoice{}).Where("id = ?", foreign.ID).Count(&still)
	assert.Equal(t, int64(1), still)
}
