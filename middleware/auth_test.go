package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborgrill/pos-backoffice-api/models"
	"github.com/harborgrill/pos-backoffice-api/services"
)

func setupAuthTest(t *testing.T) (*gorm.DB, *services.TokenService) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	tokens := services.NewTokenService("test-access", "test-refresh", 15*time.Minute, 7*24*time.Hour, "test")
	return db, tokens
}

func protectedRouter(db *gorm.DB, tokens *services.TokenService, required *models.Role) *gin.Engine {
	router := gin.New()
	handlers := []gin.HandlerFunc{RequireAuth(db, tokens)}
	if required != nil {
		handlers = append(handlers, RequirePermission(*required))
	}
	handlers = append(handlers, func(c *gin.Context) {
		user, err := CurrentUser(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"email": user.Email}})
	})
	router.GET("/protected", handlers...)
	return router
}

func doRequest(router *gin.Engine, authorization string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]any
	json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

func responseErrorCode(response map[string]any) string {
	errObj, ok := response["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := errObj["code"].(string)
	return code
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role models.Role, mutate func(*models.User)) models.User {
	user := models.User{
		Email:        email,
		PasswordHash: "irrelevant",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     true,
	}
	if mutate != nil {
		mutate(&user)
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestRequireAuth(t *testing.T) {
	db, tokens := setupAuthTest(t)
	router := protectedRouter(db, tokens, nil)

	user := createTestUser(t, db, "staff@harborgrill.test", models.RoleStaff, nil)
	token, err := tokens.IssueAccessToken(user.ID)
	require.NoError(t, err)

	locked := createTestUser(t, db, "locked@harborgrill.test", models.RoleStaff, func(u *models.User) {
		until := time.Now().Add(30 * time.Minute)
		u.LockedUntil = &until
	})
	lockedToken, err := tokens.IssueAccessToken(locked.ID)
	require.NoError(t, err)

	disabled := createTestUser(t, db, "gone@harborgrill.test", models.RoleStaff, func(u *models.User) {
		u.IsActive = false
	})
	disabledToken, err := tokens.IssueAccessToken(disabled.ID)
	require.NoError(t, err)

	// Refresh tokens must not grant access
	refreshToken, err := tokens.IssueRefreshToken(user.ID)
	require.NoError(t, err)

	deletedToken, err := tokens.IssueAccessToken(9999)
	require.NoError(t, err)

	tests := []struct {
		name          string
		authorization string
		wantCode      int
		wantErr       string
	}{
		{"valid token", "Bearer " + token, http.StatusOK, ""},
		{"no header", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"not bearer", "Basic abc123", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"refresh token used as access", "Bearer " + refreshToken, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"user deleted", "Bearer " + deletedToken, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"deactivated account", "Bearer " + disabledToken, http.StatusForbidden, "ACCOUNT_DISABLED"},
		{"locked account", "Bearer " + lockedToken, http.StatusForbidden, "ACCOUNT_LOCKED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := doRequest(router, tt.authorization)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, responseErrorCode(response))
			} else {
				data := response["data"].(map[string]any)
				assert.Equal(t, user.Email, data["email"])
			}
		})
	}
}

func TestRequireAuthExpiredLockPasses(t *testing.T) {
	db, tokens := setupAuthTest(t)
	router := protectedRouter(db, tokens, nil)

	user := createTestUser(t, db, "was-locked@harborgrill.test", models.RoleStaff, func(u *models.User) {
		until := time.Now().Add(-time.Minute)
		u.LockedUntil = &until
	})
	token, err := tokens.IssueAccessToken(user.ID)
	require.NoError(t, err)

	w, _ := doRequest(router, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermission(t *testing.T) {
	db, tokens := setupAuthTest(t)

	tests := []struct {
		name     string
		role     models.Role
		required models.Role
		wantCode int
	}{
		{"staff denied manager route", models.RoleStaff, models.RoleManager, http.StatusForbidden},
		{"manager allowed manager route", models.RoleManager, models.RoleManager, http.StatusOK},
		{"admin allowed manager route", models.RoleAdmin, models.RoleManager, http.StatusOK},
		{"manager denied admin route", models.RoleManager, models.RoleAdmin, http.StatusForbidden},
		{"admin allowed admin route", models.RoleAdmin, models.RoleAdmin, http.StatusOK},
		{"staff allowed staff route", models.RoleStaff, models.RoleStaff, http.StatusOK},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := createTestUser(t, db, tt.name+"@harborgrill.test", tt.role, nil)
			token, err := tokens.IssueAccessToken(user.ID)
			require.NoError(t, err)

			router := protectedRouter(db, tokens, &tests[i].required)
			w, response := doRequest(router, "Bearer "+token)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusForbidden {
				assert.Equal(t, "INSUFFICIENT_PERMISSIONS", responseErrorCode(response))
			}
		})
	}
}

func TestRequirePermissionWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// RequirePermission without RequireAuth upstream has no user to check
	router := gin.New()
	router.GET("/protected", RequirePermission(models.RoleManager), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w, response := doRequest(router, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "MISSING_USER", responseErrorCode(response))
}

func TestCurrentUserMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := CurrentUser(c)
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "MISSING_USER", authErr.Code)
}
