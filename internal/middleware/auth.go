package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"linkfeed.io/backend/internal/repository"
	"linkfeed.io/backend/pkg/response"
	"linkfeed.io/backend/pkg/token"
)

type AuthMiddleware struct {
	tokens   *token.Manager
	userRepo repository.UserRepository
}

func NewAuthMiddleware(tokens *token.Manager, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		userRepo: userRepo,
	}
}

// RequireAuth verifies the bearer token and stores the subject user ID in the
// context. Both "Bearer" and the legacy "Token" scheme are accepted.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authorization required"})
			c.Abort()
			return
		}

		userID, err := m.tokens.Verify(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user_id", userID.String())
		c.Next()
	}
}

// OptionalAuth stores the user ID when a valid token is present and lets the
// request through either way.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := bearerToken(c); tokenString != "" {
			if userID, err := m.tokens.Verify(tokenString); err == nil {
				c.Set("user_id", userID.String())
			}
		}
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := response.GetUserID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "user not authenticated"})
			c.Abort()
			return
		}

		user, err := m.userRepo.FindByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "user not found"})
			c.Abort()
			return
		}

		if !user.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && (parts[0] == "Bearer" || parts[0] == "Token") {
			return parts[1]
		}
	}
	// Fallback to query parameter (useful for websocket clients)
	return c.Query("token")
}
