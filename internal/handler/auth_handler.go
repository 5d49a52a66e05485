package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/triumph135/protrack-sub000/internal/model"
	"github.com/triumph135/protrack-sub000/pkg/database"
	"github.com/triumph135/protrack-sub000/pkg/jwtutil"
	"github.com/triumph135/protrack-sub000/pkg/logger"
	"github.com/triumph135/protrack-sub000/prometheus"
)

// Register creates a new tenant and its master user in one transaction
func Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.AuthAttemptsCounter.Inc()

	// Parse request
	var req struct {
		CompanyName string `json:"company_name"`
		Name        string `json:"name"`
		Email       string `json:"email"`
		Password    string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.AuthErrorsCounter.Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.CompanyName == "" || req.Name == "" || req.Email == "" || req.Password == "" {
		log.Error("Invalid registration data", zap.String("email", req.Email))
		prometheus.AuthErrorsCounter.Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "company_name, name, email and password are required"})
	}

	if len(req.Password) < minPasswordLength {
		prometheus.AuthErrorsCounter.Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password is too short"})
	}

	// Check if user already exists - track DB query
	defer prometheus.TrackDBOperation("query")(time.Now())
	var existingUser model.User
	result := database.GetDB().Where("email = ?", req.Email).First(&existingUser)
	if result.Error == nil {
		log.Error("User already exists", zap.String("email", req.Email))
		prometheus.AuthErrorsCounter.Inc()
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		prometheus.AuthErrorsCounter.Inc()
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	// Begin transaction
	tx := database.GetDB().Begin()
	if tx.Error != nil {
		log.Error("Failed to begin transaction", zap.Error(tx.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	// Create tenant
	tenant := model.Tenant{
		Name:   req.CompanyName,
		Plan:   model.TenantPlanStarter,
		Status: model.TenantStatusActive,
	}
	if result := tx.Create(&tenant); result.Error != nil {
		tx.Rollback()
		log.Error("Failed to create tenant", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	// Create the master user owning the tenant
	user := model.User{
		TenantID:    &tenant.ID,
		Name:        req.Name,
		Email:       req.Email,
		Password:    string(hashedPassword),
		Role:        model.RoleMaster,
		Permissions: model.DefaultPermissions(model.RoleMaster),
		Active:      true,
	}
	if result := tx.Create(&user); result.Error != nil {
		tx.Rollback()
		log.Error("Failed to create user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	if result := tx.Model(&tenant).Update("owner_id", user.ID); result.Error != nil {
		tx.Rollback()
		log.Error("Failed to set tenant owner", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	// Commit transaction
	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	token, err := jwtutil.GenerateToken(user.Email, user.ID, tenant.ID, tenant.Name, user.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	prometheus.AuthSuccessCounter.Inc()
	log.Info("Tenant registered",
		zap.String("company", tenant.Name),
		zap.Uint("tenant_id", tenant.ID),
		zap.String("email", user.Email))

	return c.JSON(http.StatusCreated, echo.Map{
		"token":  token,
		"user":   user,
		"tenant": tenant,
	})
}

// Login authenticates a user and returns a JWT with tenant context
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.AuthAttemptsCounter.Inc()

	// Parse request
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.AuthErrorsCounter.Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	// Find user in database - track DB operation duration
	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	result := database.GetDB().Where("email = ?", req.Email).First(&user)
	if result.Error != nil {
		log.Error("User not found", zap.String("email", req.Email))
		prometheus.AuthErrorsCounter.Inc()
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Error("Invalid password", zap.String("email", req.Email))
		prometheus.AuthErrorsCounter.Inc()
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if !user.Active {
		log.Warn("Deactivated user attempted login", zap.String("email", req.Email))
		prometheus.AuthErrorsCounter.Inc()
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account is deactivated"})
	}

	if user.TenantID == nil {
		log.Warn("User has no tenant", zap.String("email", req.Email))
		prometheus.AuthErrorsCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no tenant context"})
	}

	// Load the tenant for name and status
	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, *user.TenantID); result.Error != nil {
		log.Error("Failed to load tenant", zap.Uint("tenant_id", *user.TenantID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	if tenant.Status != model.TenantStatusActive {
		log.Warn("Login attempt against suspended tenant",
			zap.String("email", req.Email),
			zap.Uint("tenant_id", tenant.ID))
		prometheus.AuthErrorsCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "tenant is suspended"})
	}

	token, err := jwtutil.GenerateToken(user.Email, user.ID, tenant.ID, tenant.Name, user.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	prometheus.AuthSuccessCounter.Inc()
	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.Uint("tenant_id", tenant.ID),
		zap.String("role", user.Role))

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user":  user,
		"tenant": echo.Map{
			"id":   tenant.ID,
			"name": tenant.Name,
			"plan": tenant.Plan,
		},
	})
}
