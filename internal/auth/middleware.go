package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/botdesk/internal/logging"
)

const (
	// HeaderUserID carries the caller identity set by the gateway.
	HeaderUserID = "X-User-ID"
	// HeaderAdminSecret carries the operator secret for admin routes.
	HeaderAdminSecret = "X-Admin-Secret"

	// ContextKeyUserID is the key for storing the authenticated user in gin context
	ContextKeyUserID = "authUserID"
)

// Middleware reads the caller identity from X-User-ID.
// Requests without a valid header pass through unauthenticated.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := NormalizeUserID(c.GetHeader(HeaderUserID)); err == nil {
			c.Set(ContextKeyUserID, id)
			c.Request = c.Request.WithContext(logging.WithUserID(c.Request.Context(), id))
		}
		c.Next()
	}
}

// RequireUser rejects requests without an identified user.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "User identity required. Include the 'X-User-ID' header.",
			})
			return
		}
		c.Next()
	}
}

// RequireAdmin checks the X-Admin-Secret header against secret.
// With no secret configured the admin surface is closed.
func RequireAdmin(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Admin API is disabled.",
			})
			return
		}
		provided := c.GetHeader(HeaderAdminSecret)
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Admin secret required.",
			})
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Invalid admin secret.",
			})
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user's ID, or "".
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}
