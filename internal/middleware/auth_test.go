package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/triumph135/protrack-sub000/internal/model"
	"github.com/triumph135/protrack-sub000/pkg/config"
	"github.com/triumph135/protrack-sub000/pkg/database"
	"github.com/triumph135/protrack-sub000/pkg/jwtutil"
	"github.com/triumph135/protrack-sub000/prometheus"
)

func TestMain(m *testing.M) {
	prometheus.InitMetrics(&config.Config{
		Metrics: config.MetricsConfig{Prefix: "protrack_test"},
	})
	jwtutil.Initialize(&config.JWTConfig{
		SigningKey:      "test-signing-key",
		ExpirationHours: 1,
	})
	os.Exit(m.Run())
}

func setupAuthTest(t *testing.T) *model.User {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Tenant{}, &model.User{}))
	database.SetDB(db)

	tenant := &model.Tenant{Name: "Triumph Fabrication", Status: model.TenantStatusActive}
	require.NoError(t, db.Create(tenant).Error)

	user := &model.User{
		TenantID:    &tenant.ID,
		Name:        "Pat Owner",
		Email:       "pat@triumph.test",
		Password:    "x",
		Role:        model.RoleMaster,
		Permissions: model.DefaultPermissions(model.RoleMaster),
		Active:      true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func runAuth(t *testing.T, authHeader string) (*httptest.ResponseRecorder, echo.Context, bool) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	reached := false
	handler := AuthMiddleware(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, c, reached
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	user := setupAuthTest(t)

	token, err := jwtutil.GenerateToken(user.Email, user.ID, *user.TenantID, "Triumph Fabrication", user.Role)
	require.NoError(t, err)

	rec, c, reached := runAuth(t, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)

	assert.Equal(t, user.ID, c.Get("user_id"))
	assert.Equal(t, *user.TenantID, c.Get("tenant_id"))
	assert.Equal(t, user.Role, c.Get("user_role"))

	loaded := CurrentUser(c)
	require.NotNil(t, loaded)
	assert.Equal(t, user.Email, loaded.Email)
	assert.Equal(t, *user.TenantID, TenantID(c))
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	setupAuthTest(t)

	rec, _, reached := runAuth(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	setupAuthTest(t)

	rec, _, reached := runAuth(t, "Token abc123")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAuthMiddlewareGarbageToken(t *testing.T) {
	setupAuthTest(t)

	rec, _, reached := runAuth(t, "Bearer not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAuthMiddlewareDeactivatedUser(t *testing.T) {
	user := setupAuthTest(t)

	token, err := jwtutil.GenerateToken(user.Email, user.ID, *user.TenantID, "", user.Role)
	require.NoError(t, err)

	// Deactivation after token issuance locks the account out immediately
	require.NoError(t, database.GetDB().Model(user).Update("active", false).Error)

	rec, _, reached := runAuth(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAuthMiddlewareUnknownUser(t *testing.T) {
	user := setupAuthTest(t)

	token, err := jwtutil.GenerateToken(user.Email, user.ID+1000, *user.TenantID, "", user.Role)
	require.NoError(t, err)

	rec, _, reached := runAuth(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name       string
		user       *model.User
		area       model.Area
		level      model.PermissionLevel
		wantStatus int
		wantNext   bool
	}{
		{
			name:       "master passes every gate",
			user:       &model.User{Role: model.RoleMaster},
			area:       model.AreaUsers,
			level:      model.PermissionWrite,
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "view role reads projects",
			user:       &model.User{Role: model.RoleView, Permissions: model.DefaultPermissions(model.RoleView)},
			area:       model.AreaProjects,
			level:      model.PermissionRead,
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "view role cannot write projects",
			user:       &model.User{Role: model.RoleView, Permissions: model.DefaultPermissions(model.RoleView)},
			area:       model.AreaProjects,
			level:      model.PermissionWrite,
			wantStatus: http.StatusForbidden,
			wantNext:   false,
		},
		{
			name:       "entry role cannot manage users",
			user:       &model.User{Role: model.RoleEntry, Permissions: model.DefaultPermissions(model.RoleEntry)},
			area:       model.AreaUsers,
			level:      model.PermissionRead,
			wantStatus: http.StatusForbidden,
			wantNext:   false,
		},
		{
			name:       "unauthenticated request",
			user:       nil,
			area:       model.AreaProjects,
			level:      model.PermissionRead,
			wantStatus: http.StatusUnauthorized,
			wantNext:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)
			if tt.user != nil {
				c.Set("user", tt.user)
			}

			reached := false
			handler := RequirePermission(tt.area, tt.level)(func(c echo.Context) error {
				reached = true
				return c.NoContent(http.StatusOK)
			})

			require.NoError(t, handler(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantNext, reached)
		})
	}
}
