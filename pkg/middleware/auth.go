package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/campus-live/pkg/jwt"
	"github.com/weiawesome/campus-live/pkg/response"
)

const (
	UserIDKey     = "user_id"
	EmailKey      = "email"
	UsernameKey   = "username"
	RolesKey      = "roles"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator validates bearer tokens. *jwt.Manager satisfies it.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// AuthMiddleware validates access tokens locally.
type AuthMiddleware struct {
	tokens TokenValidator
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth returns a Gin middleware that rejects requests without a valid
// access token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			msg := "invalid token"
			switch {
			case errors.Is(err, jwt.ErrExpiredToken):
				msg = "token has expired"
			case errors.Is(err, jwt.ErrRevokedToken):
				msg = "token has been revoked"
			}
			response.Unauthorized(c, msg)
			c.Abort()
			return
		}

		if claims.Type != jwt.TypeAccess {
			response.Unauthorized(c, "access token required")
			c.Abort()
			return
		}

		// Set user info in context
		c.Set(UserIDKey, claims.UserID)
		c.Set(EmailKey, claims.Email)
		c.Set(UsernameKey, claims.Username)
		c.Set(RolesKey, claims.Roles)

		c.Next()
	}
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetUsername extracts username from Gin context.
func GetUsername(c *gin.Context) string {
	return c.GetString(UsernameKey)
}

// GetEmail extracts email from Gin context.
func GetEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}

// GetRoles extracts roles from Gin context.
func GetRoles(c *gin.Context) []string {
	return c.GetStringSlice(RolesKey)
}
