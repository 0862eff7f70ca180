package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/stranger-beers/ingestion/pkg/response"
)

// RequireRole guards the admin API: the token role set by JWT must be one of roles
// (in practice auth.RoleAdmin). A request that skipped JWT is a 401, a wrong role a 403.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{})
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		roleVal, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		role, _ := roleVal.(string)
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
