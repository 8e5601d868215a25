package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skvrent/staffauth"
	"github.com/skvrent/staffauth/console"
	"github.com/skvrent/staffauth/i18n"
	"github.com/skvrent/staffauth/metrics/export/prometheus"
	"github.com/skvrent/staffauth/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"login", "first_login", "verify_otp", "dashboard"}

// Options configures a Server.
type Options struct {
	Engine *staffauth.Engine
	Logger *slog.Logger
	// SecureCookie marks the slot cookie Secure. Enable behind TLS.
	SecureCookie bool
	// Health is probed by /healthz when set, e.g. a Redis ping.
	Health func(ctx context.Context) error
	// DisableMetrics hides /metrics.
	DisableMetrics bool
	// Mount adds GET handlers by absolute path, e.g. debug endpoints.
	Mount map[string]http.Handler
}

// Server holds the router and its dependencies.
type Server struct {
	engine  *staffauth.Engine
	console *console.Client
	logger  *slog.Logger
	pages   map[string]*template.Template
	health  func(ctx context.Context) error
	router  *gin.Engine
}

// New parses the templates and builds the router.
func New(opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, errors.New("web: engine is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		pages[name] = tmpl
	}

	s := &Server{
		engine:  opts.Engine,
		console: console.New(opts.Engine),
		logger:  logger,
		pages:   pages,
		health:  opts.Health,
	}

	r := gin.New()
	r.Use(gin.Recovery(), accessLog(logger))

	r.GET("/", s.root)
	r.GET("/healthz", s.healthz)
	if !opts.DisableMetrics {
		r.GET("/metrics", gin.WrapH(prometheus.New(opts.Engine).Handler()))
	}
	for path, h := range opts.Mount {
		r.GET(path, gin.WrapH(h))
	}

	for _, mobile := range []bool{false, true} {
		prefix := "/:locale"
		if mobile {
			prefix += "/mobile"
		}
		g := r.Group(prefix, requireLocale(), middleware.Bind(middleware.BindOptions{
			Mobile:       mobile,
			SecureCookie: opts.SecureCookie,
		}))

		auth := g.Group("/auth", middleware.GuestOnly(opts.Engine))
		auth.GET("/login", s.loginPage)
		auth.POST("/login", s.login)
		auth.GET("/first-login", s.firstLoginPage)
		auth.POST("/first-login", s.firstLogin)
		auth.GET("/verify-otp", s.verifyOTPPage)
		auth.POST("/verify-otp", s.verifyOTP)

		g.POST("/logout", s.logout)

		for _, role := range []staffauth.Role{staffauth.RoleAdmin, staffauth.RoleModerator} {
			rg := g.Group("/"+role.Segment(), middleware.RequireSession(opts.Engine), middleware.RequireRole(role))
			rg.GET("/dashboard", s.dashboard)
			rg.POST("/providers/:id/approve",
				middleware.RequirePermission(opts.Engine, staffauth.PermProvidersApprove, s.forbidden), s.approveProvider)
			rg.POST("/facilities/:id/status",
				middleware.RequirePermission(opts.Engine, staffauth.PermFacilitiesApprove, s.forbidden), s.updateFacilityStatus)
			rg.POST("/moderators",
				middleware.RequirePermission(opts.Engine, staffauth.PermModeratorsCreate, s.forbidden), s.createModerator)
		}
	}

	s.router = r
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) root(c *gin.Context) {
	locale := i18n.Match("", c.GetHeader("Accept-Language"))
	c.Redirect(http.StatusSeeOther, staffauth.LoginPath(locale, false))
}

func (s *Server) healthz(c *gin.Context) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requireLocale sends unknown locale segments to the negotiated locale's
// login page.
func requireLocale() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !i18n.Supported(c.Param("locale")) {
			locale := i18n.Match("", c.GetHeader("Accept-Language"))
			c.Redirect(http.StatusSeeOther, staffauth.LoginPath(locale, false))
			c.Abort()
			return
		}
		c.Next()
	}
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.LogAttrs(c.Request.Context(), level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("route", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.RequestID(c)),
		)
	}
}
