package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/triumph135/protrack-sub000/internal/model"
	"github.com/triumph135/protrack-sub000/pkg/database"
	"github.com/triumph135/protrack-sub000/pkg/jwtutil"
	"github.com/triumph135/protrack-sub000/pkg/logger"
	"github.com/triumph135/protrack-sub000/prometheus"
)

// ListInvitations retrieves invitations for the current tenant
func ListInvitations(c echo.Context) error {
	log := logger.FromContext(c)

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	page, limit, offset := parsePagination(c)

	query := database.GetDB().Where("tenant_id = ?", tenantID)

	if status := c.QueryParam("status"); status != "" {
		switch status {
		case model.InvitationStatusPending, model.InvitationStatusAccepted, model.InvitationStatusCancelled:
			query = query.Where("status = ?", status)
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid invitation status"})
		}
	}

	var total int64
	query.Model(&model.UserInvitation{}).Count(&total)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var invitations []model.UserInvitation
	result := query.
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&invitations)
	if result.Error != nil {
		log.Error("Failed to retrieve invitations",
			zap.Uint("tenant_id", tenantID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve invitations"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"invitations": invitations,
		"pagination":  paginationMap(page, limit, total),
	})
}

// CreateInvitation invites someone to join the current tenant by email
func CreateInvitation(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInvitationEvent("created")

	var req struct {
		Email       string            `json:"email"`
		Role        string            `json:"role"`
		Permissions datatypes.JSONMap `json:"permissions"`
	}

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

	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
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

	// A registered user cannot be invited again
	var existingUser model.User
	if result := database.GetDB().Where("email = ?", req.Email).First(&existingUser); result.Error == nil {
		log.Warn("Invitation for an already registered email", zap.String("email", req.Email))
		return c.JSON(http.StatusConflict, echo.Map{"error": "a user with this email already exists"})
	}

	// One live invitation per email per tenant
	var pending int64
	database.GetDB().Model(&model.UserInvitation{}).
		Where("email = ? AND tenant_id = ? AND status = ?", req.Email, tenantID, model.InvitationStatusPending).
		Count(&pending)
	if pending > 0 {
		log.Warn("Invitation for this email is already pending",
			zap.String("email", req.Email),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusConflict, echo.Map{"error": "an invitation for this email is already pending"})
	}

	invitation := model.UserInvitation{
		TenantID:    tenantID,
		Email:       req.Email,
		Role:        req.Role,
		Permissions: req.Permissions,
		ExpiresAt:   time.Now().Add(inviteTTL),
		InvitedBy:   userID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&invitation); result.Error != nil {
		log.Error("Failed to create invitation",
			zap.String("email", req.Email),
			zap.Uint("tenant_id", tenantID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create invitation"})
	}

	log.Info("Invitation created",
		zap.Uint("invitation_id", invitation.ID),
		zap.String("email", invitation.Email),
		zap.String("role", invitation.Role),
		zap.Uint("tenant_id", tenantID))

	// The token is excluded from normal serialization, the caller needs
	// it once to build the invite link
	return c.JSON(http.StatusCreated, echo.Map{
		"invitation": invitation,
		"token":      invitation.Token,
	})
}

// ResendInvitation reissues a pending invitation with a fresh token and
// expiry. The previously mailed link stops working.
func ResendInvitation(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInvitationEvent("resent")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid invitation ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid invitation ID"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	var invitation model.UserInvitation
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, tenantID).First(&invitation)
	if result.Error != nil {
		log.Warn("Invitation not found or does not belong to tenant",
			zap.Uint64("invitation_id", id),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "invitation not found"})
	}

	if invitation.Status != model.InvitationStatusPending {
		return c.JSON(http.StatusConflict, echo.Map{"error": "only pending invitations can be resent"})
	}

	invitation.Regenerate(inviteTTL)

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&invitation); result.Error != nil {
		log.Error("Failed to resend invitation",
			zap.Uint64("invitation_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resend invitation"})
	}

	log.Info("Invitation resent",
		zap.Uint("invitation_id", invitation.ID),
		zap.String("email", invitation.Email),
		zap.Time("expires_at", invitation.ExpiresAt),
		zap.Uint("tenant_id", tenantID))

	return c.JSON(http.StatusOK, echo.Map{
		"invitation": invitation,
		"token":      invitation.Token,
	})
}

// CancelInvitation voids a pending invitation. Cancellation is terminal.
func CancelInvitation(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInvitationEvent("cancelled")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid invitation ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid invitation ID"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	var invitation model.UserInvitation
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, tenantID).First(&invitation)
	if result.Error != nil {
		log.Warn("Invitation not found or does not belong to tenant",
			zap.Uint64("invitation_id", id),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "invitation not found"})
	}

	if invitation.Status != model.InvitationStatusPending {
		return c.JSON(http.StatusConflict, echo.Map{"error": "only pending invitations can be cancelled"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(&invitation).Update("status", model.InvitationStatusCancelled); result.Error != nil {
		log.Error("Failed to cancel invitation",
			zap.Uint64("invitation_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel invitation"})
	}

	log.Info("Invitation cancelled",
		zap.Uint("invitation_id", invitation.ID),
		zap.String("email", invitation.Email),
		zap.Uint("tenant_id", tenantID))

	return c.JSON(http.StatusOK, echo.Map{"message": "invitation cancelled successfully"})
}

// LookupInvitation previews a pending invitation by token so the invitee
// sees who invited them before creating an account
func LookupInvitation(c echo.Context) error {
	log := logger.FromContext(c)

	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var invitation model.UserInvitation
	result := database.GetDB().
		Where("token = ? AND status = ?", token, model.InvitationStatusPending).
		First(&invitation)
	if result.Error != nil {
		log.Warn("Invitation lookup failed")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "invitation is invalid or has already been used"})
	}

	if invitation.IsExpired() {
		prometheus.RecordInvitationEvent("expired")
		log.Warn("Expired invitation lookup",
			zap.Uint("invitation_id", invitation.ID),
			zap.Time("expires_at", invitation.ExpiresAt))
		return c.JSON(http.StatusGone, echo.Map{"error": "invitation has expired"})
	}

	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, invitation.TenantID); result.Error != nil {
		log.Error("Failed to load tenant for invitation",
			zap.Uint("tenant_id", invitation.TenantID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to look up invitation"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"email":        invitation.Email,
		"role":         invitation.Role,
		"company_name": tenant.Name,
		"expires_at":   invitation.ExpiresAt,
	})
}

// AcceptInvitation consumes an invitation exactly once: it creates the
// account and flips the invitation status in a single transaction, with
// the flip conditioned on the status still being pending
func AcceptInvitation(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Token    string `json:"token"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Token == "" || req.Name == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token, name and password are required"})
	}

	if len(req.Password) < minPasswordLength {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password is too short"})
	}

	tx := database.GetDB().Begin()
	if tx.Error != nil {
		log.Error("Failed to begin transaction", zap.Error(tx.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var invitation model.UserInvitation
	result := tx.Where("token = ? AND status = ?", req.Token, model.InvitationStatusPending).First(&invitation)
	if result.Error != nil {
		tx.Rollback()
		log.Warn("Invitation acceptance failed lookup")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "invitation is invalid or has already been used"})
	}

	// Expiry is checked before anything is written
	if invitation.IsExpired() {
		tx.Rollback()
		prometheus.RecordInvitationEvent("expired")
		log.Warn("Expired invitation acceptance attempt",
			zap.Uint("invitation_id", invitation.ID),
			zap.Time("expires_at", invitation.ExpiresAt))
		return c.JSON(http.StatusGone, echo.Map{"error": "invitation has expired"})
	}

	var existingUser model.User
	if result := tx.Where("email = ?", invitation.Email).First(&existingUser); result.Error == nil {
		tx.Rollback()
		log.Warn("Invitation acceptance for an already registered email",
			zap.Uint("invitation_id", invitation.ID))
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		tx.Rollback()
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to accept invitation"})
	}

	user := model.User{
		TenantID:    &invitation.TenantID,
		Name:        req.Name,
		Email:       invitation.Email,
		Password:    string(hashedPassword),
		Role:        invitation.Role,
		Permissions: invitation.Permissions,
		Active:      true,
	}
	if result := tx.Create(&user); result.Error != nil {
		tx.Rollback()
		log.Error("Failed to create user from invitation",
			zap.Uint("invitation_id", invitation.ID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to accept invitation"})
	}

	// Conditional flip: if another acceptance got here first the status is
	// no longer pending and zero rows change
	flip := tx.Model(&model.UserInvitation{}).
		Where("id = ? AND status = ?", invitation.ID, model.InvitationStatusPending).
		Update("status", model.InvitationStatusAccepted)
	if flip.Error != nil {
		tx.Rollback()
		log.Error("Failed to mark invitation accepted",
			zap.Uint("invitation_id", invitation.ID),
			zap.Error(flip.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to accept invitation"})
	}
	if flip.RowsAffected == 0 {
		tx.Rollback()
		log.Warn("Invitation was consumed concurrently",
			zap.Uint("invitation_id", invitation.ID))
		return c.JSON(http.StatusConflict, echo.Map{"error": "invitation has already been used"})
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to accept invitation"})
	}

	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, invitation.TenantID); result.Error != nil {
		log.Error("Failed to load tenant after acceptance",
			zap.Uint("tenant_id", invitation.TenantID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to accept invitation"})
	}

	token, err := jwtutil.GenerateToken(user.Email, user.ID, tenant.ID, tenant.Name, user.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	prometheus.RecordInvitationEvent("accepted")
	log.Info("Invitation accepted",
		zap.Uint("invitation_id", invitation.ID),
		zap.Uint("user_id", user.ID),
		zap.String("role", user.Role),
		zap.Uint("tenant_id", tenant.ID))

	return c.JSON(http.StatusCreated, echo.Map{
		"token":  token,
		"user":   user,
		"tenant": tenant,
	})
}
