package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by the middleware.
const (
	ContextClaims   = "auth_claims"
	ContextBranchID = "auth_branch_id"
)

// RequireAuth verifies the bearer token and stores its claims in the gin
// context. Handlers behind it can assume a valid session.
func RequireAuth(tm *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims, err := tm.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextClaims, claims)
		if claims.Role == RoleBranch {
			c.Set(ContextBranchID, claims.BranchID)
		}
		c.Next()
	}
}

// RequireRole rejects sessions whose role is not in the allowed set.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			abortUnauthorized(c, "missing session")
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "insufficient permissions",
		})
	}
}

// ClaimsFrom returns the verified claims stored by RequireAuth, or nil.
func ClaimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// BranchIDFrom returns the branch ID of a branch session, or 0 for admin
// sessions.
func BranchIDFrom(c *gin.Context) int64 {
	v, ok := c.Get(ContextBranchID)
	if !ok {
		return 0
	}
	id, _ := v.(int64)
	return id
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   msg,
	})
}
