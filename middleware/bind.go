package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skvrent/staffauth"
)

const (
	// SlotCookie names the cookie holding the browser session slot.
	SlotCookie = "sas_slot"
	// RequestIDHeader is read from and echoed to every request.
	RequestIDHeader = "X-Request-ID"

	localeKey    = "staffauth.locale"
	mobileKey    = "staffauth.mobile"
	requestIDKey = "staffauth.request_id"
	sessionKey   = "staffauth.session"
)

// BindOptions configures Bind.
type BindOptions struct {
	// Mobile marks every route of the group as a mobile route.
	Mobile bool
	// Locale resolves the request locale. Defaults to the :locale path
	// parameter, then staffauth.DefaultLocale.
	Locale func(c *gin.Context) string
	// SecureCookie sets the Secure flag on the slot cookie.
	SecureCookie bool
	// CookieMaxAge is the slot cookie lifetime in seconds.
	CookieMaxAge int
}

// Bind resolves per-request identity and stores it on the request context
// for the engine. A browser without a slot cookie gets a new one.
func Bind(opts BindOptions) gin.HandlerFunc {
	if opts.Locale == nil {
		opts.Locale = func(c *gin.Context) string { return c.Param("locale") }
	}

	return func(c *gin.Context) {
		locale := strings.TrimSpace(opts.Locale(c))
		if locale == "" {
			locale = staffauth.DefaultLocale
		}

		slot, err := c.Cookie(SlotCookie)
		if err != nil || slot == "" {
			slot = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SlotCookie, slot, opts.CookieMaxAge, "/", "", opts.SecureCookie, true)
		}

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		ctx := staffauth.WithSlot(c.Request.Context(), slot)
		ctx = staffauth.WithLocale(ctx, locale)
		ctx = staffauth.WithMobile(ctx, opts.Mobile)
		ctx = staffauth.WithRequestID(ctx, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Set(localeKey, locale)
		c.Set(mobileKey, opts.Mobile)
		c.Set(requestIDKey, requestID)
		c.Next()
	}
}

// Locale returns the locale chosen by Bind.
func Locale(c *gin.Context) string {
	if v := c.GetString(localeKey); v != "" {
		return v
	}
	return staffauth.DefaultLocale
}

// Mobile reports whether Bind marked the route as mobile.
func Mobile(c *gin.Context) bool {
	return c.GetBool(mobileKey)
}

// RequestID returns the request id chosen by Bind.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
