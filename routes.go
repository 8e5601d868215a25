package staffauth

import (
	"net/url"
	"strings"
)

// DefaultLocale is used when a route is built without a locale.
const DefaultLocale = "en"

func routePrefix(locale string, mobile bool) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = DefaultLocale
	}
	if mobile {
		return "/" + locale + "/mobile"
	}
	return "/" + locale
}

// LoginPath is the staff login page.
func LoginPath(locale string, mobile bool) string {
	return routePrefix(locale, mobile) + "/auth/login"
}

// FirstLoginPath is the activation request page.
func FirstLoginPath(locale string, mobile bool) string {
	return routePrefix(locale, mobile) + "/auth/first-login"
}

// VerifyOTPPath is the code entry page for email. The email travels only
// in the query string.
func VerifyOTPPath(locale string, mobile bool, email string) string {
	return routePrefix(locale, mobile) + "/auth/verify-otp?email=" + url.QueryEscape(email)
}

// DashboardPath is the landing page of role.
func DashboardPath(locale string, mobile bool, role Role) string {
	return routePrefix(locale, mobile) + "/" + role.Segment() + "/dashboard"
}

// LogoutPath is the sign-out endpoint.
func LogoutPath(locale string, mobile bool) string {
	return routePrefix(locale, mobile) + "/logout"
}
