package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/harborgrill/pos-backoffice-api/middleware"
	"github.com/harborgrill/pos-backoffice-api/models"
	"github.com/harborgrill/pos-backoffice-api/services"
)

// UserController handles staff account management
type UserController struct {
	db        *gorm.DB
	passwords *services.PasswordService
	audit     *services.AuditService
}

// NewUserController creates a user controller
func NewUserController(db *gorm.DB, passwords *services.PasswordService, audit *services.AuditService) *UserController {
	return &UserController{db: db, passwords: passwords, audit: audit}
}

// List returns staff accounts with optional role/active/search filters.
// Admin only.
func (ctrl *UserController) List(c *gin.Context) {
	query := ctrl.db.Model(&models.User{})

	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if active := c.Query("active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("email LIKE ? OR first_name LIKE ? OR last_name LIKE ?", like, like, like)
	}

	var users []models.User
	if err := query.Order("created_at DESC").Find(&users).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_ERROR", "Failed to fetch users")
		return
	}

	respondOK(c, users)
}

// Get returns a single user. Admins can read anyone; other roles only
// themselves.
func (ctrl *UserController) Get(c *gin.Context) {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_USER", "Authentication required")
		return
	}

	id := c.Param("id")
	if !current.Role.AtLeast(models.RoleAdmin) && id != itoa(current.ID) {
		respondError(c, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS",
			"You can only view your own profile")
		return
	}

	var user models.User
	if err := ctrl.db.First(&user, id).Error; err != nil {
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}

	respondOK(c, user)
}

type updateUserRequest struct {
	FirstName *string      `json:"firstName"`
	LastName  *string      `json:"lastName"`
	Email     *string      `json:"email"`
	Role      *models.Role `json:"role"`
	IsActive  *bool        `json:"isActive"`
}

// Update modifies a user. Everyone can change their own names; email,
// role, and active status require admin.
func (ctrl *UserController) Update(c *gin.Context) {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_USER", "Authentication required")
		return
	}

	id := c.Param("id")
	isAdmin := current.Role.AtLeast(models.RoleAdmin)
	if !isAdmin && id != itoa(current.ID) {
		respondError(c, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS",
			"You can only update your own profile")
		return
	}

	var user models.User
	if err := ctrl.db.First(&user, id).Error; err != nil {
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	updates := map[string]any{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}

	if req.Email != nil || req.Role != nil || req.IsActive != nil {
		if !isAdmin {
			respondError(c, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS",
				"Only admins can change email, role, or active status")
			return
		}
		if req.Email != nil {
			var existing models.User
			if err := ctrl.db.Where("email = ? AND id != ?", *req.Email, user.ID).First(&existing).Error; err == nil {
				respondError(c, http.StatusConflict, "EMAIL_EXISTS",
					"A user with this email already exists")
				return
			}
			updates["email"] = *req.Email
		}
		if req.Role != nil {
			if !req.Role.IsValid() {
				respondError(c, http.StatusBadRequest, "INVALID_ROLE",
					"Role must be one of: "+enumList(models.ValidRoles()))
				return
			}
			updates["role"] = *req.Role
		}
		if req.IsActive != nil {
			updates["is_active"] = *req.IsActive
		}
	}

	if len(updates) == 0 {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS", "No fields to update")
		return
	}

	if err := ctrl.db.Model(&user).Updates(updates).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "UPDATE_ERROR", "Failed to update user")
		return
	}

	ctrl.db.First(&user, user.ID)
	ctrl.audit.Record(&current.ID, "user.update", "users", itoa(user.ID), c.ClientIP(), c.Request.UserAgent())
	respondOK(c, user)
}

// Delete soft-deletes a user. Admin only; self-deletion and users with
// order history are rejected.
func (ctrl *UserController) Delete(c *gin.Context) {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_USER", "Authentication required")
		return
	}

	id := c.Param("id")
	if id == itoa(current.ID) {
		respondError(c, http.StatusBadRequest, "CANNOT_DELETE_SELF",
			"You cannot delete your own account")
		return
	}

	var user models.User
	if err := ctrl.db.First(&user, id).Error; err != nil {
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}

	var orderCount int64
	ctrl.db.Model(&models.Order{}).Where("staff_id = ?", user.ID).Count(&orderCount)
	if orderCount > 0 {
		respondError(c, http.StatusConflict, "HAS_ORDERS",
			"Cannot delete a user with order history, deactivate instead")
		return
	}

	if err := ctrl.db.Delete(&user).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DELETE_ERROR", "Failed to delete user")
		return
	}

	ctrl.audit.Record(&current.ID, "user.delete", "users", itoa(user.ID), c.ClientIP(), c.Request.UserAgent())
	respondOK(c, gin.H{"message": "User deleted successfully"})
}

// Activity returns a user's recent orders, plus audit entries for admins
func (ctrl *UserController) Activity(c *gin.Context) {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_USER", "Authentication required")
		return
	}

	id := c.Param("id")
	isAdmin := current.Role.AtLeast(models.RoleAdmin)
	if !isAdmin && id != itoa(current.ID) {
		respondError(c, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS",
			"You can only view your own activity")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var orders []models.Order
	if err := ctrl.db.Where("staff_id = ?", id).Order("created_at DESC").Limit(limit).Find(&orders).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_ERROR", "Failed to fetch activity")
		return
	}

	data := gin.H{"orders": orders}
	if isAdmin {
		var entries []models.AuditLog
		ctrl.db.Where("user_id = ?", id).Order("created_at DESC").Limit(limit).Find(&entries)
		data["auditLog"] = entries
	}

	respondOK(c, data)
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required"`
}

// ResetPassword sets a new password for a user and clears any lockout.
// Admin only.
func (ctrl *UserController) ResetPassword(c *gin.Context) {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_USER", "Authentication required")
		return
	}

	var user models.User
	if err := ctrl.db.First(&user, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}

	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS", "New password is required")
		return
	}

	if err := ctrl.passwords.ValidateStrength(req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}

	hash, err := ctrl.passwords.Hash(req.NewPassword)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "RESET_ERROR", "Failed to reset password")
		return
	}

	updates := map[string]any{
		"password_hash":         hash,
		"failed_login_attempts": 0,
		"locked_until":          nil,
	}
	if err := ctrl.db.Model(&user).Updates(updates).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "RESET_ERROR", "Failed to reset password")
		return
	}

	// Existing sessions are no longer trustworthy
	ctrl.db.Where("user_id = ?", user.ID).Delete(&models.Session{})

	ctrl.audit.Record(&current.ID, "user.reset_password", "users", itoa(user.ID), c.ClientIP(), c.Request.UserAgent())
	respondOK(c, gin.H{"message": "Password reset successfully"})
}
