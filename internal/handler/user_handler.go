package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/triumph135/protrack-sub000/internal/middleware"
	"github.com/triumph135/protrack-sub000/internal/model"
	"github.com/triumph135/protrack-sub000/pkg/database"
	"github.com/triumph135/protrack-sub000/pkg/logger"
	"github.com/triumph135/protrack-sub000/prometheus"
)

// GetProfile returns the authenticated user along with their tenant
func GetProfile(c echo.Context) error {
	log := logger.FromContext(c)

	user := middleware.CurrentUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, *user.TenantID); result.Error != nil {
		log.Error("Failed to load tenant", zap.Uint("tenant_id", *user.TenantID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load profile"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":   user,
		"tenant": tenant,
	})
}

// UpdateProfile lets the authenticated user change their own name or email
func UpdateProfile(c echo.Context) error {
	log := logger.FromContext(c)

	user := middleware.CurrentUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Email != "" && req.Email != user.Email {
		var existing model.User
		if result := database.GetDB().Where("email = ? AND id != ?", req.Email, user.ID).First(&existing); result.Error == nil {
			log.Error("Email already in use", zap.String("email", req.Email))
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already in use"})
		}
		user.Email = req.Email
	}
	if req.Name != "" {
		user.Name = req.Name
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(user); result.Error != nil {
		log.Error("Failed to update profile", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
	}

	log.Info("Profile updated", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, user)
}

// ChangePassword verifies the current password and stores a new hash
func ChangePassword(c echo.Context) error {
	log := logger.FromContext(c)

	user := middleware.CurrentUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current_password and new_password are required"})
	}

	if len(req.NewPassword) < minPasswordLength {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password is too short"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		log.Warn("Password change with wrong current password", zap.Uint("user_id", user.ID))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "current password is incorrect"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to change password"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(user).Update("password", string(hashedPassword)); result.Error != nil {
		log.Error("Failed to update password", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to change password"})
	}

	log.Info("Password changed", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated successfully"})
}

// ListUsers retrieves all users belonging to the current tenant
func ListUsers(c echo.Context) error {
	log := logger.FromContext(c)

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	page, limit, offset := parsePagination(c)

	query := database.GetDB().Where("tenant_id = ?", tenantID)

	var total int64
	query.Model(&model.User{}).Count(&total)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var users []model.User
	if result := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&users); result.Error != nil {
		log.Error("Failed to retrieve users", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve users"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"users":      users,
		"pagination": paginationMap(page, limit, total),
	})
}

// CreateUser lets an administrator add a user to the tenant directly
func CreateUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("user", "create")

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	var req struct {
		Name        string            `json:"name"`
		Email       string            `json:"email"`
		Password    string            `json:"password"`
		Role        string            `json:"role"`
		Permissions datatypes.JSONMap `json:"permissions"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, email and password are required"})
	}

	if len(req.Password) < minPasswordLength {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password is too short"})
	}

	if req.Role == "" {
		req.Role = model.RoleView
	}
	if !model.ValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	if req.Permissions == nil {
		req.Permissions = model.DefaultPermissions(req.Role)
	} else if err := validatePermissions(req.Permissions); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	// Email is unique across the whole system
	var existing model.User
	if result := database.GetDB().Where("email = ?", req.Email).First(&existing); result.Error == nil {
		log.Error("User already exists", zap.String("email", req.Email))
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create user"})
	}

	user := model.User{
		TenantID:    &tenantID,
		Name:        req.Name,
		Email:       req.Email,
		Password:    string(hashedPassword),
		Role:        req.Role,
		Permissions: req.Permissions,
		Active:      true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create user"})
	}

	log.Info("User created",
		zap.Uint("user_id", user.ID),
		zap.Uint("tenant_id", tenantID),
		zap.String("role", user.Role))

	return c.JSON(http.StatusCreated, user)
}

// UpdateUser changes another user's name, role, permissions or active flag
func UpdateUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("user", "update")

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid user ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	var req struct {
		Name        *string            `json:"name"`
		Role        *string            `json:"role"`
		Permissions *datatypes.JSONMap `json:"permissions"`
		Active      *bool              `json:"active"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	var user model.User
	if result := database.GetDB().Where("id = ? AND tenant_id = ?", targetID, tenantID).First(&user); result.Error != nil {
		log.Error("User not found", zap.Uint64("id", targetID), zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	current := middleware.CurrentUser(c)
	if current != nil && current.ID == user.ID {
		if req.Active != nil && !*req.Active {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot deactivate your own account"})
		}
		if req.Role != nil && *req.Role != user.Role {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot change your own role"})
		}
	}

	if req.Name != nil && *req.Name != "" {
		user.Name = *req.Name
	}
	if req.Role != nil {
		if !model.ValidRole(*req.Role) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
		}
		user.Role = *req.Role
		// A role change without an explicit matrix resets to that role's defaults
		if req.Permissions == nil {
			user.Permissions = model.DefaultPermissions(*req.Role)
		}
	}
	if req.Permissions != nil {
		if err := validatePermissions(*req.Permissions); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		user.Permissions = *req.Permissions
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&user); result.Error != nil {
		log.Error("Failed to update user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
	}

	log.Info("User updated",
		zap.Uint("user_id", user.ID),
		zap.Uint("tenant_id", tenantID),
		zap.String("role", user.Role))

	return c.JSON(http.StatusOK, user)
}

// DeactivateUser disables a user's account without deleting the row
func DeactivateUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("user", "deactivate")

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid user ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	current := middleware.CurrentUser(c)
	if current != nil && current.ID == uint(targetID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot deactivate your own account"})
	}

	var user model.User
	if result := database.GetDB().Where("id = ? AND tenant_id = ?", targetID, tenantID).First(&user); result.Error != nil {
		log.Error("User not found", zap.Uint64("id", targetID), zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(&user).Update("active", false); result.Error != nil {
		log.Error("Failed to deactivate user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to deactivate user"})
	}

	log.Info("User deactivated",
		zap.Uint("user_id", user.ID),
		zap.Uint("tenant_id", tenantID))

	return c.JSON(http.StatusOK, echo.Map{"message": "user deactivated successfully"})
}
