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

func TestGetProfileReturnsUserAndTenant(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	user := createUser(t, tenant.ID, "pat@triumph.test", model.RoleMaster)

	c, rec := newTestContext(t, http.MethodGet, "/api/users/profile", nil)
	authenticate(c, user)

	require.NoError(t, GetProfile(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	userMap := body["user"].(map[string]interface{})
	assert.Equal(t, "pat@triumph.test", userMap["email"])
	tenantMap := body["tenant"].(map[string]interface{})
	assert.Equal(t, "Triumph Fabrication", tenantMap["name"])
}

func TestListUsersTenantIsolation(t *testing.T) {
	setupTestDB(t)
	tenantA := createTenant(t, "Tenant A")
	tenantB := createTenant(t, "Tenant B")
	admin := createUser(t, tenantA.ID, "admin@a.test", model.RoleMaster)
	createUser(t, tenantA.ID, "worker@a.test", model.RoleEntry)
	createUser(t, tenantB.ID, "outsider@b.test", model.RoleMaster)

	c, rec := newTestContext(t, http.MethodGet, "/api/users", nil)
	authenticate(c, admin)

	require.NoError(t, ListUsers(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	users := body["users"].([]interface{})
	require.Len(t, users, 2)
	for _, raw := range users {
		email := raw.(map[string]interface{})["email"].(string)
		assert.NotEqual(t, "outsider@b.test", email)
	}
}

func TestCreateUserDefaultsPermissionsFromRole(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	admin := createUser(t, tenant.ID, "admin@triumph.test", model.RoleMaster)

	c, rec := newTestContext(t, http.MethodPost, "/api/users", map[string]interface{}{
		"name":     "Data Clerk",
		"email":    "clerk@triumph.test",
		"password": "sekret99",
		"role":     model.RoleEntry,
	})
	authenticate(c, admin)

	require.NoError(t, CreateUser(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.User
	require.NoError(t, database.GetDB().Where("email = ?", "clerk@triumph.test").First(&created).Error)
	assert.Equal(t, model.RoleEntry, created.Role)
	assert.True(t, created.Active)
	assert.True(t, created.CanWrite(model.AreaMaterial))
	assert.False(t, created.CanRead(model.AreaUsers))
}

func TestCreateUserRejectsUnknownPermissionArea(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	admin := createUser(t, tenant.ID, "admin@triumph.test", model.RoleMaster)

	c, rec := newTestContext(t, http.MethodPost, "/api/users", map[string]interface{}{
		"name":        "Data Clerk",
		"email":       "clerk@triumph.test",
		"password":    "sekret99",
		"role":        model.RoleEntry,
		"permissions": map[string]interface{}{"payroll": "write"},
	})
	authenticate(c, admin)

	require.NoError(t, CreateUser(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateUserDuplicateEmailAcrossTenants(t *testing.T) {
	setupTestDB(t)
	tenantA := createTenant(t, "Tenant A")
	tenantB := createTenant(t, "Tenant B")
	createUser(t, tenantB.ID, "shared@example.test", model.RoleView)
	admin := createUser(t, tenantA.ID, "admin@a.test", model.RoleMaster)

	c, rec := newTestContext(t, http.MethodPost, "/api/users", map[string]interface{}{
		"name":     "Shared Email",
		"email":    "shared@example.test",
		"password": "sekret99",
	})
	authenticate(c, admin)

	require.NoError(t, CreateUser(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateUserRoleResetsPermissions(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	admin := createUser(t, tenant.ID, "admin@triumph.test", model.RoleMaster)
	target := createUser(t, tenant.ID, "clerk@triumph.test", model.RoleEntry)

	c, rec := newTestContext(t, http.MethodPut, "/api/users/1", map[string]interface{}{
		"role": model.RoleView,
	})
	authenticate(c, admin)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(target.ID))

	require.NoError(t, UpdateUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated model.User
	require.NoError(t, database.GetDB().First(&updated, target.ID).Error)
	assert.Equal(t, model.RoleView, updated.Role)
	assert.True(t, updated.CanRead(model.AreaMaterial))
	assert.False(t, updated.CanWrite(model.AreaMaterial))
}

func TestUpdateUserKeepsExplicitPermissions(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	admin := createUser(t, tenant.ID, "admin@triumph.test", model.RoleMaster)
	target := createUser(t, tenant.ID, "clerk@triumph.test", model.RoleEntry)

	c, rec := newTestContext(t, http.MethodPut, "/api/users/1", map[string]interface{}{
		"role":        model.RoleView,
		"permissions": map[string]interface{}{"labor": "write"},
	})
	authenticate(c, admin)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(target.ID))

	require.NoError(t, UpdateUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated model.User
	require.NoError(t, database.GetDB().First(&updated, target.ID).Error)
	assert.True(t, updated.CanWrite(model.AreaLabor))
}

func TestUpdateUserCannotChangeOwnRole(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	admin := createUser(t, tenant.ID, "admin@triumph.test", model.RoleMaster)

	c, rec := newTestContext(t, http.MethodPut, "/api/users/1", map[string]interface{}{
		"role": model.RoleView,
	})
	authenticate(c, admin)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(admin.ID))

	require.NoError(t, UpdateUser(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateUserCrossTenant(t *testing.T) {
	setupTestDB(t)
	tenantA := createTenant(t, "Tenant A")
	tenantB := createTenant(t, "Tenant B")
	admin := createUser(t, tenantA.ID, "admin@a.test", model.RoleMaster)
	foreign := createUser(t, tenantB.ID, "outsider@b.test", model.RoleEntry)

	c, rec := newTestContext(t, http.MethodPut, "/api/users/1", map[string]interface{}{
		"name": "Hijacked",
	})
	authenticate(c, admin)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(foreign.ID))

	require.NoError(t, UpdateUser(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeactivateUser(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	admin := createUser(t, tenant.ID, "admin@triumph.test", model.RoleMaster)
	target := createUser(t, tenant.ID, "clerk@triumph.test", model.RoleEntry)

	c, rec := newTestContext(t, http.MethodDelete, "/api/users/1", nil)
	authenticate(c, admin)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(target.ID))

	require.NoError(t, DeactivateUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated model.User
	require.NoError(t, database.GetDB().First(&updated, target.ID).Error)
	assert.False(t, updated.Active)
}

func TestDeactivateUserCannotTargetSelf(t *testing.T) {
	setupTestDB(t)
	tenant := createTenant(t, "Triumph Fabrication")
	admin := createUser(t, tenant.ID, "admin@triumph.test", model.RoleMaster)

	c, rec := newTestContext(t, http.MethodDelete, "/api/users/1", nil)
	authenticate(c, admin)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(admin.ID))

	require.NoError(t, DeactivateUser(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var unchanged model.User
	require.NoError(t, database.GetDB().First(&unchanged, admin.ID).Error)
	assert.True(t, unchanged.Active)
}
