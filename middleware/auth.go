package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/harborgrill/pos-backoffice-api/models"
	"github.com/harborgrill/pos-backoffice-api/services"
)

// AuthError represents an authentication/authorization error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

const currentUserKey = "current_user"

// RequireAuth validates the bearer token and loads the authenticated user
// into the context. Deactivated accounts are rejected even when their
// token is still valid.
func RequireAuth(db *gorm.DB, tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MISSING_TOKEN",
					"message": "Authorization token is required",
				},
			})
			return
		}

		claims, err := tokens.VerifyAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_TOKEN",
					"message": "Invalid or expired token",
				},
			})
			return
		}

		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_TOKEN",
					"message": "User no longer exists",
				},
			})
			return
		}

		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ACCOUNT_DISABLED",
					"message": "Account has been deactivated",
				},
			})
			return
		}

		if user.IsLocked(time.Now()) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ACCOUNT_LOCKED",
					"message": "Account is temporarily locked",
				},
			})
			return
		}

		c.Set(currentUserKey, &user)
		c.Next()
	}
}

// RequirePermission rejects users below the required role. Must run after
// RequireAuth.
func RequirePermission(required models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := CurrentUser(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MISSING_USER",
					"message": "Authentication required",
				},
			})
			return
		}

		if !user.Role.AtLeast(required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INSUFFICIENT_PERMISSIONS",
					"message": "You do not have permission to perform this action",
				},
			})
			return
		}

		c.Next()
	}
}

// CurrentUser extracts the authenticated user from the Gin context
func CurrentUser(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_USER", Message: "User not found in context"}
	}

	user, ok := value.(*models.User)
	if !ok {
		return nil, &AuthError{Code: "INVALID_USER", Message: "User in context has wrong type"}
	}

	return user, nil
}
