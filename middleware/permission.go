package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skvrent/staffauth"
)

// Permissions is the part of the engine RequirePermission calls.
type Permissions interface {
	Require(ctx context.Context, perm string) error
}

// RequirePermission aborts with 403 when the signed-in role lacks perm.
// When denied is set it renders the response instead of the bare status.
func RequirePermission(engine Permissions, perm string, denied gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if engine == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		err := engine.Require(c.Request.Context(), perm)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, staffauth.ErrNoSession):
			c.Redirect(http.StatusSeeOther, staffauth.LoginPath(Locale(c), Mobile(c)))
			c.Abort()
		case errors.Is(err, staffauth.ErrPermissionDenied):
			if denied != nil {
				c.Status(http.StatusForbidden)
				denied(c)
				c.Abort()
				return
			}
			c.AbortWithStatus(http.StatusForbidden)
		default:
			_ = c.Error(err)
			c.AbortWithStatus(http.StatusInternalServerError)
		}
	}
}
