package controllers

import (
	"net/http"
	"net/mail"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/harborgrill/pos-backoffice-api/middleware"
	"github.com/harborgrill/pos-backoffice-api/models"
	"github.com/harborgrill/pos-backoffice-api/services"
)

const (
	maxFailedLogins = 5
	lockoutDuration = 30 * time.Minute
)

// AuthController handles registration, login, token refresh, and
// two-factor management
type AuthController struct {
	db        *gorm.DB
	passwords *services.PasswordService
	tokens    *services.TokenService
	twoFactor *services.TwoFactorService
	audit     *services.AuditService
}

// NewAuthController creates an auth controller
func NewAuthController(db *gorm.DB, passwords *services.PasswordService, tokens *services.TokenService, twoFactor *services.TwoFactorService, audit *services.AuditService) *AuthController {
	return &AuthController{
		db:        db,
		passwords: passwords,
		tokens:    tokens,
		twoFactor: twoFactor,
		audit:     audit,
	}
}

type registerRequest struct {
	Email     string      `json:"email" binding:"required"`
	Password  string      `json:"password" binding:"required"`
	FirstName string      `json:"firstName" binding:"required"`
	LastName  string      `json:"lastName" binding:"required"`
	Role      models.Role `json:"role"`
}

// Register creates a new staff account
func (ctrl *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS",
			"Email, password, first name and last name are required")
		return
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email address")
		return
	}

	if err := ctrl.passwords.ValidateStrength(req.Password); err != nil {
		respondServiceError(c, err)
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleStaff
	}
	if !role.IsValid() {
		respondError(c, http.StatusBadRequest, "INVALID_ROLE",
			"Role must be one of: "+enumList(models.ValidRoles()))
		return
	}

	var existing models.User
	if err := ctrl.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		respondError(c, http.StatusConflict, "USER_EXISTS",
			"A user with this email already exists")
		return
	}

	hash, err := ctrl.passwords.Hash(req.Password)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "REGISTRATION_ERROR",
			"Failed to create user")
		return
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		IsActive:     true,
	}
	if err := ctrl.db.Create(&user).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "REGISTRATION_ERROR",
			"Failed to create user")
		return
	}

	ctrl.audit.Record(&user.ID, "user.register", "users", itoa(user.ID), c.ClientIP(), c.Request.UserAgent())
	respondCreated(c, user)
}

type loginRequest struct {
	Email         string `json:"email" binding:"required"`
	Password      string `json:"password" binding:"required"`
	TwoFactorCode string `json:"twoFactorCode"`
}

// Login authenticates a user and issues an access/refresh token pair.
// Five consecutive failures lock the account for thirty minutes.
func (ctrl *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS",
			"Email and password are required")
		return
	}

	var user models.User
	if err := ctrl.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS",
			"Invalid email or password")
		return
	}

	now := time.Now()
	if user.IsLocked(now) {
		c.JSON(http.StatusLocked, gin.H{
			"success": false,
			"error": gin.H{
				"code":        "ACCOUNT_LOCKED",
				"message":     "Account locked due to too many failed login attempts",
				"lockedUntil": user.LockedUntil,
			},
		})
		return
	}

	if !user.IsActive {
		respondError(c, http.StatusForbidden, "ACCOUNT_DEACTIVATED",
			"Account has been deactivated")
		return
	}

	if !ctrl.passwords.Compare(user.PasswordHash, req.Password) {
		ctrl.recordFailedLogin(&user, now)
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS",
			"Invalid email or password")
		return
	}

	if user.TwoFactorEnabled {
		if req.TwoFactorCode == "" {
			c.JSON(http.StatusOK, gin.H{
				"success":           true,
				"requiresTwoFactor": true,
			})
			return
		}
		if user.TwoFactorSecret == nil || !ctrl.twoFactor.Verify(*user.TwoFactorSecret, req.TwoFactorCode) {
			ctrl.recordFailedLogin(&user, now)
			respondError(c, http.StatusUnauthorized, "INVALID_2FA",
				"Invalid two-factor code")
			return
		}
	}

	accessToken, err := ctrl.tokens.IssueAccessToken(user.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "LOGIN_ERROR", "Failed to issue tokens")
		return
	}
	refreshToken, err := ctrl.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "LOGIN_ERROR", "Failed to issue tokens")
		return
	}

	session := models.Session{
		UserID:       user.ID,
		RefreshToken: refreshToken,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
		ExpiresAt:    now.Add(ctrl.tokens.RefreshTTL()),
	}
	if err := ctrl.db.Create(&session).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "LOGIN_ERROR", "Failed to create session")
		return
	}

	ctrl.db.Model(&user).Updates(map[string]any{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login":            now,
	})

	ctrl.audit.Record(&user.ID, "user.login", "users", itoa(user.ID), c.ClientIP(), c.Request.UserAgent())

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"user":         user,
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
			"expiresIn":    int(ctrl.tokens.AccessTTL().Seconds()),
		},
	})
}

func (ctrl *AuthController) recordFailedLogin(user *models.User, now time.Time) {
	attempts := user.FailedLoginAttempts + 1
	updates := map[string]any{"failed_login_attempts": attempts}
	if attempts >= maxFailedLogins {
		updates["locked_until"] = now.Add(lockoutDuration)
	}
	ctrl.db.Model(user).Updates(updates)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Refresh exchanges a valid refresh token for a new token pair. The old
// refresh token is rotated out and cannot be used again.
func (ctrl *AuthController) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS", "Refresh token is required")
		return
	}

	claims, err := ctrl.tokens.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN",
			"Invalid or expired refresh token")
		return
	}

	var session models.Session
	if err := ctrl.db.Where("refresh_token = ? AND user_id = ?", req.RefreshToken, claims.UserID).First(&session).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN",
			"Session not found")
		return
	}

	if session.ExpiresAt.Before(time.Now()) {
		ctrl.db.Delete(&session)
		respondError(c, http.StatusUnauthorized, "REFRESH_TOKEN_EXPIRED",
			"Refresh token has expired, please log in again")
		return
	}

	accessToken, err := ctrl.tokens.IssueAccessToken(claims.UserID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "REFRESH_ERROR", "Failed to issue tokens")
		return
	}
	refreshToken, err := ctrl.tokens.IssueRefreshToken(claims.UserID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "REFRESH_ERROR", "Failed to issue tokens")
		return
	}

	updates := map[string]any{
		"refresh_token": refreshToken,
		"expires_at":    time.Now().Add(ctrl.tokens.RefreshTTL()),
	}
	if err := ctrl.db.Model(&session).Updates(updates).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "REFRESH_ERROR", "Failed to rotate session")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
			"expiresIn":    int(ctrl.tokens.AccessTTL().Seconds()),
		},
	})
}

// Logout deletes the session for the presented refresh token
func (ctrl *AuthController) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS", "Refresh token is required")
		return
	}

	ctrl.db.Where("refresh_token = ?", req.RefreshToken).Delete(&models.Session{})
	respondOK(c, gin.H{"message": "Logged out successfully"})
}

// SetupTwoFactor generates a TOTP secret for the authenticated user. The
// secret is stored but 2FA stays off until a code is verified.
func (ctrl *AuthController) SetupTwoFactor(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_USER", "Authentication required")
		return
	}

	setup, err := ctrl.twoFactor.GenerateSecret(user.Email)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "2FA_SETUP_ERROR",
			"Failed to generate two-factor secret")
		return
	}

	if err := ctrl.db.Model(user).Update("two_factor_secret", setup.Secret).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "2FA_SETUP_ERROR",
			"Failed to store two-factor secret")
		return
	}

	respondOK(c, setup)
}

type twoFactorCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// VerifyTwoFactor verifies a code against the pending secret and enables
// two-factor authentication
func (ctrl *AuthController) VerifyTwoFactor(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_USER", "Authentication required")
		return
	}

	var req twoFactorCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS", "Verification code is required")
		return
	}

	if user.TwoFactorSecret == nil {
		respondError(c, http.StatusBadRequest, "2FA_NOT_SETUP",
			"Two-factor setup has not been started")
		return
	}

	if !ctrl.twoFactor.Verify(*user.TwoFactorSecret, req.Code) {
		respondError(c, http.StatusUnauthorized, "INVALID_2FA", "Invalid two-factor code")
		return
	}

	if err := ctrl.db.Model(user).Update("two_factor_enabled", true).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "2FA_SETUP_ERROR",
			"Failed to enable two-factor authentication")
		return
	}

	ctrl.audit.Record(&user.ID, "user.enable_2fa", "users", itoa(user.ID), c.ClientIP(), c.Request.UserAgent())
	respondOK(c, gin.H{"message": "Two-factor authentication enabled"})
}

type disableTwoFactorRequest struct {
	Password string `json:"password" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// DisableTwoFactor turns off 2FA after re-verifying the password and a
// current code
func (ctrl *AuthController) DisableTwoFactor(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_USER", "Authentication required")
		return
	}

	var req disableTwoFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS",
			"Password and verification code are required")
		return
	}

	if !ctrl.passwords.Compare(user.PasswordHash, req.Password) {
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid password")
		return
	}

	if !user.TwoFactorEnabled || user.TwoFactorSecret == nil || !ctrl.twoFactor.Verify(*user.TwoFactorSecret, req.Code) {
		respondError(c, http.StatusUnauthorized, "INVALID_2FA", "Invalid two-factor code")
		return
	}

	updates := map[string]any{
		"two_factor_enabled": false,
		"two_factor_secret":  nil,
	}
	if err := ctrl.db.Model(user).Updates(updates).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "2FA_SETUP_ERROR",
			"Failed to disable two-factor authentication")
		return
	}

	ctrl.audit.Record(&user.ID, "user.disable_2fa", "users", itoa(user.ID), c.ClientIP(), c.Request.UserAgent())
	respondOK(c, gin.H{"message": "Two-factor authentication disabled"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// ChangePassword updates the authenticated user's password
func (ctrl *AuthController) ChangePassword(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_USER", "Authentication required")
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS",
			"Current and new password are required")
		return
	}

	if !ctrl.passwords.Compare(user.PasswordHash, req.CurrentPassword) {
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS",
			"Current password is incorrect")
		return
	}

	if err := ctrl.passwords.ValidateStrength(req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}

	hash, err := ctrl.passwords.Hash(req.NewPassword)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "PASSWORD_CHANGE_ERROR",
			"Failed to change password")
		return
	}

	if err := ctrl.db.Model(user).Update("password_hash", hash).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "PASSWORD_CHANGE_ERROR",
			"Failed to change password")
		return
	}

	// Invalidate every existing session; the user must log in again
	ctrl.db.Where("user_id = ?", user.ID).Delete(&models.Session{})

	ctrl.audit.Record(&user.ID, "user.change_password", "users", itoa(user.ID), c.ClientIP(), c.Request.UserAgent())
	respondOK(c, gin.H{"message": "Password changed successfully"})
}

// Me returns the authenticated user's profile
func (ctrl *AuthController) Me(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_USER", "Authentication required")
		return
	}
	respondOK(c, user)
}
