package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skvrent/staffauth"
)

// Sessions is the part of the engine the guards read.
type Sessions interface {
	Current(ctx context.Context) (*staffauth.Session, error)
}

// SessionFromContext returns the session loaded by RequireSession.
func SessionFromContext(c *gin.Context) (*staffauth.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*staffauth.Session)
	return sess, ok && sess != nil
}

// RequireSession loads the slot's session. Anonymous requests are sent to
// the login page; store failures abort with 503.
func RequireSession(engine Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if engine == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		sess, err := engine.Current(c.Request.Context())
		switch {
		case errors.Is(err, staffauth.ErrNoSession):
			c.Redirect(http.StatusSeeOther, staffauth.LoginPath(Locale(c), Mobile(c)))
			c.Abort()
			return
		case err != nil:
			_ = c.Error(err)
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// RequireRole must follow RequireSession. A session of another role is
// sent to its own dashboard.
func RequireRole(role staffauth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFromContext(c)
		if !ok {
			c.Redirect(http.StatusSeeOther, staffauth.LoginPath(Locale(c), Mobile(c)))
			c.Abort()
			return
		}
		if sess.Role != role {
			c.Redirect(http.StatusSeeOther, staffauth.DashboardPath(Locale(c), Mobile(c), sess.Role))
			c.Abort()
			return
		}
		c.Next()
	}
}

// GuestOnly sends signed-in staff to their dashboard. Store failures let
// the request through so the auth pages stay reachable.
func GuestOnly(engine Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if engine != nil {
			sess, err := engine.Current(c.Request.Context())
			if err == nil && sess.Role.Valid() {
				c.Redirect(http.StatusSeeOther, staffauth.DashboardPath(Locale(c), Mobile(c), sess.Role))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
