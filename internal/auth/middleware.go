package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKeyUserID is the gin context key holding the verified user id.
const ContextKeyUserID = "user_id"

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// Middleware rejects requests without a valid bearer token.
func (m *TokenManager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := m.Validate(token)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, ErrExpiredToken) {
				msg = "Token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(ContextKeyUserID, claims.Subject)
		c.Next()
	}
}

// GetUserID returns the user id stored by Middleware.
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}
