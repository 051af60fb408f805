package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborgrill/pos-backoffice-api/models"
)

func newAuthRouter(env *testEnv) *gin.Engine {
	ctrl := NewAuthController(env.db, env.passwords, env.tokens, env.twoFactor, env.audit)

	router := gin.New()
	auth := router.Group("/api/auth")
	auth.POST("/register", ctrl.Register)
	auth.POST("/login", ctrl.Login)
	auth.POST("/refresh", ctrl.Refresh)
	auth.POST("/logout", ctrl.Logout)
	auth.GET("/me", env.requireAuth(), ctrl.Me)
	auth.POST("/change-password", env.requireAuth(), ctrl.ChangePassword)
	return router
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	router := newAuthRouter(env)

	tests := []struct {
		name           string
		body           map[string]any
		expectedStatus int
		expectedError  string
	}{
		{
			name: "successful registration",
			body: map[string]any{
				"email":     "new@harborgrill.test",
				"password":  testPassword,
				"firstName": "New",
				"lastName":  "Hire",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "duplicate email",
			body: map[string]any{
				"email":     "new@harborgrill.test",
				"password":  testPassword,
				"firstName": "Other",
				"lastName":  "Hire",
			},
			expectedStatus: http.StatusConflict,
			expectedError:  "USER_EXISTS",
		},
		{
			name: "weak password",
			body: map[string]any{
				"email":     "weak@harborgrill.test",
				"password":  "password",
				"firstName": "Weak",
				"lastName":  "Pass",
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "WEAK_PASSWORD",
		},
		{
			name: "invalid email",
			body: map[string]any{
				"email":     "not-an-email",
				"password":  testPassword,
				"firstName": "Bad",
				"lastName":  "Email",
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_EMAIL",
		},
		{
			name: "invalid role",
			body: map[string]any{
				"email":     "role@harborgrill.test",
				"password":  testPassword,
				"firstName": "Bad",
				"lastName":  "Role",
				"role":      "owner",
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_ROLE",
		},
		{
			name: "missing fields",
			body: map[string]any{
				"email": "missing@harborgrill.test",
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "MISSING_FIELDS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := performRequest(t, router, http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorCode(t, response))
			} else {
				data := dataOf(t, response)
				assert.Equal(t, tt.body["email"], data["email"])
				assert.Equal(t, "staff", data["role"])
				// Password hash must never leak
				_, leaked := data["password_hash"]
				assert.False(t, leaked)
			}
		})
	}
}

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	router := newAuthRouter(env)
	user, _ := env.createUser(t, "login@harborgrill.test", models.RoleStaff)

	w, response := performRequest(t, router, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    user.Email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := dataOf(t, response)
	assert.NotEmpty(t, data["accessToken"])
	assert.NotEmpty(t, data["refreshToken"])
	assert.Equal(t, float64(900), data["expiresIn"])

	// Session row stored, last_login set
	var session models.Session
	require.NoError(t, env.db.Where("user_id = ?", user.ID).First(&session).Error)
	assert.Equal(t, data["refreshToken"], session.RefreshToken)

	var fresh models.User
	env.db.First(&fresh, user.ID)
	assert.NotNil(t, fresh.LastLogin)
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	router := newAuthRouter(env)
	user, _ := env.createUser(t, "login@harborgrill.test", models.RoleStaff)

	w, response := performRequest(t, router, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "nobody@harborgrill.test",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, response))

	w, response = performRequest(t, router, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    user.Email,
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, response))

	// Deactivated account
	env.db.Model(&user).Update("is_active", false)
	w, response = performRequest(t, router, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    user.Email,
		"password": testPassword,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ACCOUNT_DEACTIVATED", errorCode(t, response))
}

func TestLoginLockoutAfterFiveFailures(t *testing.T) {
	env := newTestEnv(t)
	router := newAuthRouter(env)
	user, _ := env.createUser(t, "lockout@harborgrill.test", models.RoleStaff)

	body := map[string]any{"email": user.Email, "password": "wrong-password"}
	for i := 0; i < 5; i++ {
		w, _ := performRequest(t, router, http.MethodPost, "/api/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i+1)
	}

	// Sixth attempt, even with the right password, hits the lockout
	w, response := performRequest(t, router, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    user.Email,
		"password": testPassword,
	})
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Equal(t, "ACCOUNT_LOCKED", errorCode(t, response))

	var fresh models.User
	env.db.First(&fresh, user.ID)
	require.NotNil(t, fresh.LockedUntil)
	assert.True(t, fresh.LockedUntil.After(time.Now()))
}

func TestRefreshRotation(t *testing.T) {
	env := newTestEnv(t)
	router := newAuthRouter(env)
	user, _ := env.createUser(t, "refresh@harborgrill.test", models.RoleStaff)

	_, loginResp := performRequest(t, router, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    user.Email,
		"password": testPassword,
	})
	oldRefresh := dataOf(t, loginResp)["refreshToken"].(string)

	w, response := performRequest(t, router, http.MethodPost, "/api/auth/refresh", "", map[string]any{
		"refreshToken": oldRefresh,
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := dataOf(t, response)
	newRefresh := data["refreshToken"].(string)
	assert.NotEqual(t, oldRefresh, newRefresh)
	assert.NotEmpty(t, data["accessToken"])

	// The rotated-out token is dead
	w, response = performRequest(t, router, http.MethodPost, "/api/auth/refresh", "", map[string]any{
		"refreshToken": oldRefresh,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", errorCode(t, response))

	// The new one works
	w, _ = performRequest(t, router, http.MethodPost, "/api/auth/refresh", "", map[string]any{
		"refreshToken": newRefresh,
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefreshExpiredSession(t *testing.T) {
	env := newTestEnv(t)
	router := newAuthRouter(env)
	user, _ := env.createUser(t, "expired@harborgrill.test", models.RoleStaff)

	refresh, err := env.tokens.IssueRefreshToken(user.ID)
	require.NoError(t, err)
	session := models.Session{
		UserID:       user.ID,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(-time.Hour),
	}
	require.NoError(t, env.db.Create(&session).Error)

	w, response := performRequest(t, router, http.MethodPost, "/api/auth/refresh", "", map[string]any{
		"refreshToken": refresh,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "REFRESH_TOKEN_EXPIRED", errorCode(t, response))

	// Stale session cleaned up
	var count int64
	env.db.Model(&models.Session{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Zero(t, count)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	router := newAuthRouter(env)
	user, _ := env.createUser(t, "logout@harborgrill.test", models.RoleStaff)

	_, loginResp := performRequest(t, router, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    user.Email,
		"password": testPassword,
	})
	refresh := dataOf(t, loginResp)["refreshToken"].(string)

	w, _ := performRequest(t, router, http.MethodPost, "/api/auth/logout", "", map[string]any{
		"refreshToken": refresh,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w, response := performRequest(t, router, http.MethodPost, "/api/auth/refresh", "", map[string]any{
		"refreshToken": refresh,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", errorCode(t, response))
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	router := newAuthRouter(env)
	user, token := env.createUser(t, "me@harborgrill.test", models.RoleManager)

	w, response := performRequest(t, router, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := dataOf(t, response)
	assert.Equal(t, user.Email, data["email"])
	assert.Equal(t, "manager", data["role"])
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	router := newAuthRouter(env)
	user, token := env.createUser(t, "change@harborgrill.test", models.RoleStaff)

	w, response := performRequest(t, router, http.MethodPost, "/api/auth/change-password", token, map[string]any{
		"currentPassword": "wrong-password",
		"newPassword":     "N3w$ecret!",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, response))

	w, response = performRequest(t, router, http.MethodPost, "/api/auth/change-password", token, map[string]any{
		"currentPassword": testPassword,
		"newPassword":     "weak",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "WEAK_PASSWORD", errorCode(t, response))

	w, _ = performRequest(t, router, http.MethodPost, "/api/auth/change-password", token, map[string]any{
		"currentPassword": testPassword,
		"newPassword":     "N3w$ecret!",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var fresh models.User
	env.db.First(&fresh, user.ID)
	assert.True(t, env.passwords.Compare(fresh.PasswordHash, "N3w$ecret!"))
}
