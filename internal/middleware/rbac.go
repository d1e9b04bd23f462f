package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campusops/claimflow/internal/rbac"
	appErrors "github.com/campusops/claimflow/pkg/errors"
	"github.com/campusops/claimflow/pkg/response"
)

// RequireAction gates a route on the permission matrix. The caller must hold
// at least one of the listed actions.
func RequireAction(actions ...rbac.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		for _, action := range actions {
			if rbac.Allowed(identity.Role, action) {
				c.Next()
				return
			}
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
