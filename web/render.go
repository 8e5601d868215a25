package web

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skvrent/staffauth"
	"github.com/skvrent/staffauth/i18n"
	"github.com/skvrent/staffauth/middleware"
)

// page is the data every template receives.
type page struct {
	printer *i18n.Printer

	Title  string
	Mobile bool
	Error  string
	Notice string

	// Paths are built for the request's locale and mobile flag.
	LoginPath      string
	FirstLoginPath string
	LogoutPath     string
	FormAction     string

	Email string
	// Step is "otp", "password" or "done" on the verify page.
	Step           string
	OTP            string
	OTPCells       [staffauth.OTPLength]string
	RedirectTo     string
	RefreshSeconds int

	Dashboard *dashboardView
}

func (p *page) Locale() string { return p.printer.Locale() }

func (p *page) Dir() string { return p.printer.Dir() }

// T translates key for the page locale.
func (p *page) T(key string, args ...any) string {
	return p.printer.T(key, args...)
}

func (s *Server) newPage(c *gin.Context, titleKey string) *page {
	locale, mobile := middleware.Locale(c), middleware.Mobile(c)
	p := &page{
		printer:        i18n.NewPrinter(locale),
		Mobile:         mobile,
		LoginPath:      staffauth.LoginPath(locale, mobile),
		FirstLoginPath: staffauth.FirstLoginPath(locale, mobile),
		LogoutPath:     staffauth.LogoutPath(locale, mobile),
		FormAction:     c.Request.URL.Path,
	}
	p.Title = p.T(titleKey)
	return p
}

func (s *Server) render(c *gin.Context, status int, name string, p *page) {
	tmpl, ok := s.pages[name]
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", p); err != nil {
		s.logger.ErrorContext(c.Request.Context(), "template render failed", "page", name, "error", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// forbidden renders the dashboard shell with the permission message. The
// status is already set by RequirePermission.
func (s *Server) forbidden(c *gin.Context) {
	p := s.newPage(c, i18n.KeyForbidden)
	p.Error = p.T(i18n.KeyForbidden)
	s.render(c, http.StatusForbidden, "dashboard", p)
}
