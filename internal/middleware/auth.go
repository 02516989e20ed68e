package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/parlor/backend/internal/auth"
	"github.com/parlor/backend/internal/models"
)

const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
)

// SessionMiddleware resolves the session token from the Authorization header
// or the session cookie. Requests without a valid session, or whose user no
// longer exists, continue as anonymous.
func SessionMiddleware(jwtService *auth.JWTService, cookieName string, users models.UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token, _ = c.Cookie(cookieName)
		}
		if token == "" {
			c.Next()
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			c.Next()
			return
		}
		id, ok := users.GetUserID(claims.Username)
		if !ok || id != claims.UserID {
			c.Next()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Next()
	}
}

// RequireAuth sends anonymous requests to the login page, or answers 401 for
// API clients that asked for JSON.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != "" {
			c.Next()
			return
		}

		if wantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Redirect(http.StatusSeeOther, "/login")
		c.Abort()
	}
}

// CurrentUser returns the authenticated username, or "" for anonymous
// requests.
func CurrentUser(c *gin.Context) string {
	return c.GetString(ContextUsername)
}

// CurrentUserID returns the authenticated user's ID.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json") ||
		strings.HasPrefix(c.Request.URL.Path, "/api/")
}
