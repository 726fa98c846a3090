// Package auth provides API key authentication for the HTTP API.
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"greenroom/internal/db/repositories"
	"greenroom/pkg/models"
)

// LocalUsername is the identity every request runs as in local mode.
const LocalUsername = "local"

// AuthMiddleware resolves the caller's identity from a Bearer api_key. It
// establishes who the caller is and nothing more; all authorization happens
// in the owner-scoped queries underneath.
type AuthMiddleware struct {
	repos     *repositories.Repositories
	localMode bool
}

func NewAuthMiddleware(repos *repositories.Repositories, localMode bool) *AuthMiddleware {
	return &AuthMiddleware{repos: repos, localMode: localMode}
}

// EnsureLocalUser creates the local-mode identity if it does not exist yet.
// Called once at startup before the server accepts requests.
func EnsureLocalUser(repos *repositories.Repositories) (*models.User, error) {
	user, err := repos.Users.GetByUsername(LocalUsername)
	if err == nil {
		return user, nil
	}
	return repos.Users.Create(LocalUsername, true, nil)
}

// Authenticate validates the API key from the Bearer token.
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Local mode runs everything as the local identity.
		if am.localMode {
			user, err := am.repos.Users.GetByUsername(LocalUsername)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "local user is not provisioned",
				})
				c.Abort()
				return
			}
			setUserContext(c, user)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization header format, expected Bearer token",
			})
			c.Abort()
			return
		}

		apiKey := strings.TrimPrefix(authHeader, "Bearer ")
		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "empty API key",
			})
			c.Abort()
			return
		}

		user, err := am.repos.Users.GetByAPIKey(apiKey)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid API key",
			})
			c.Abort()
			return
		}

		setUserContext(c, user)
		c.Next()
	}
}

func setUserContext(c *gin.Context, user *models.User) {
	c.Set("user", user)
	c.Set("user_id", user.ID)
	c.Set("is_admin", user.IsAdmin)
}

// GetUserFromContext extracts the authenticated user from the Gin context.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	user, exists := c.Get("user")
	if !exists {
		return nil, false
	}

	userModel, ok := user.(*models.User)
	return userModel, ok
}

// GetUserIDFromContext extracts the user ID from the Gin context.
func GetUserIDFromContext(c *gin.Context) (int64, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}

	id, ok := userID.(int64)
	return id, ok
}
