package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Denylist answers whether a token id has been revoked by logout.
type Denylist interface {
	IsRevoked(ctx context.Context, jti string) bool
}

// Middleware verifies the bearer token, rejects revoked sessions and
// puts username, role and jti on the request context.
func Middleware(tokens *Tokens, denylist Denylist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization is not found!"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := tokens.Verify(token)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		if denylist != nil && denylist.IsRevoked(ctx.Request.Context(), claims.JTI) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired or revoked"})
			return
		}

		ctx.Set("username", claims.Username)
		ctx.Set("role", claims.Role)
		ctx.Set("jti", claims.JTI)
		ctx.Next()
	}
}

// RequireCapability gates a route on the caller's role. allows is the
// role-to-capability table lookup.
func RequireCapability(capability string, allows func(role, capability string) bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		role := ctx.GetString("role")
		if !allows(role, capability) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		ctx.Next()
	}
}
