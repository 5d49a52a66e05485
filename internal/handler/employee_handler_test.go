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

func TestCreateEmployee(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	user := createUser(t, tenant.ID, "pat@triumph.test", model.RoleMaster)

	c, rec := newTestContext(t, http.MethodPost, "/api/employees", map[string]interface{}{
		"name":          "Jordan Welder",
		"standard_rate": 28.5,
		"ot_rate":       42.75,
	})
	authenticate(c, user)

	require.NoError(t, CreateEmployee(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var employee model.Employee
	require.NoError(t, database.GetDB().Where("name = ?", "Jordan Welder").First(&employee).Error)
	assert.True(t, employee.Active)
	assert.Nil(t, employee.ProjectID)
	assert.Equal(t, 28.5, employee.StandardRate)
	assert.Equal(t, tenant.ID, employee.TenantID)
}

func TestCreateEmployeeProjectMustBelongToTenant(t *testing.T) {
	setupTestDB(t)
	tenantA := createTenant(t, "Tenant A")
	tenantB := createTenant(t, "Tenant B")
	user := createUser(t, tenantA.ID, "a@a.test", model.RoleMaster)
	foreign := createProject(t, tenantB.ID, "24-2001", 50000)

	c, rec := newTestContext(t, http.MethodPost, "/api/employees", map[string]interface{}{
		"name":       "Misplaced Worker",
		"project_id": foreign.ID,
	})
	authenticate(c, user)

	require.NoError(t, CreateEmployee(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEmployeesProjectFilterIncludesFloaters(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	user := createUser(t, tenant.ID, "pat@triumph.test", model.RoleMaster)
	projectA := createProject(t, tenant.ID, "24-1001", 100000)
	projectB := createProject(t, tenant.ID, "24-1002", 50000)

	createEmployee(t, tenant.ID, nil, "Floater")
	createEmployee(t, tenant.ID, &projectA.ID, "Crew A")
	createEmployee(t, tenant.ID, &projectB.ID, "Crew B")

	c, rec := newTestContext(t, http.MethodGet, fmt.Sprintf("/api/employees?project_id=%d", projectA.ID), nil)
	authenticate(c, user)

	require.NoError(t, ListEmployees(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	employees := body["employees"].([]interface{})
	require.Len(t, employees, 2)

	names := []string{
		employees[0].(map[string]interface{})["name"].(string),
		employees[1].(map[string]interface{})["name"].(string),
	}
	assert.Contains(t, names, "Floater")
	assert.Contains(t, names, "Crew A")
}

func TestListEmployeesActiveFilter(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	user := createUser(t, tenant.ID, "pat@triumph.test", model.RoleMaster)

	createEmployee(t, tenant.ID, nil, "Active Worker")
	retired := createEmployee(t, tenant.ID, nil, "Retired Worker")
	require.NoError(t, database.GetDB().Model(retired).Update("active", false).Error)

	c, rec := newTestContext(t, http.MethodGet, "/api/employees?active=true", nil)
	authenticate(c, user)

	require.NoError(t, ListEmployees(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	employees := body["employees"].([]interface{})
	require.Len(t, employees, 1)
	assert.Equal(t, "Active Worker", employees[0].(map[string]interface{})["name"])
}

func TestUpdateEmployeeRates(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	user := createUser(t, tenant.ID, "pat@triumph.test", model.RoleMaster)
	employee := createEmployee(t, tenant.ID, nil, "Jordan Welder")

	c, rec := newTestContext(t, http.MethodPut, "/api/employees/1", map[string]interface{}{
		"name":          "Jordan Welder",
		"standard_rate": 32.0,
		"ot_rate":       48.0,
		"dt_rate":       64.0,
		"mob_rate":      175.0,
	})
	authenticate(c, user)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(employee.ID))

	require.NoError(t, UpdateEmployee(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated model.Employee
	require.NoError(t, database.GetDB().First(&updated, employee.ID).Error)
	assert.Equal(t, 32.0, updated.StandardRate)
	assert.Equal(t, 48.0, updated.OTRate)
	assert.True(t, updated.Active, "active flag stays put when the request omits it")
}

func TestUpdateEmployeeCrossTenant(t *testing.T) {
	setupTestDB(t)
	tenantA := createTenant(t, "Tenant A")
	tenantB := createTenant(t, "Tenant B")
	userA := createUser(t, tenantA.ID, "a@a.test", model.RoleMaster)
	foreign := createEmployee(t, tenantB.ID, nil, "Foreign Worker")

	c, rec := newTestContext(t, http.MethodPut, "/api/employees/1", map[string]interface{}{
		"name": "Hijacked",
	})
	authenticate(c, userA)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(foreign.ID))

	require.NoError(t, UpdateEmployee(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteEmployeeKeepsLaborReferences(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	user := createUser(t, tenant.ID, "pat@triumph.test", model.RoleMaster)
	project := createProject(t, tenant.ID, "24-1001", 100000)
	employee := createEmployee(t, tenant.ID, &project.ID, "Jordan Welder")

	labor := &model.ProjectCost{
		TenantID:   tenant.ID,
		ProjectID:  project.ID,
		Category:   model.CategoryLabor,
		EmployeeID: &employee.ID,
		STHours:    8,
		STRate:     25,
		Cost:       200,
	}
	require.NoError(t, database.GetDB().Create(labor).Error)

	c, rec := newTestContext(t, http.MethodDelete, "/api/employees/1", nil)
	authenticate(c, user)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(employee.ID))

	require.NoError(t, DeleteEmployee(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var gone int64
	database.GetDB().Model(&model.Employee{}).Where("id = ?", employee.ID).Count(&gone)
	assert.Equal(t, int64(0), gone)

	var kept model.ProjectCost
	require.NoError(t, database.GetDB().First(&kept, labor.ID).Error)
	require.NotNil(t, kept.EmployeeID)
	assert.Equal(t, employee.ID, *kept.EmployeeID)
}
