package staffauth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/skvrent/staffauth/internal/api"
	"github.com/skvrent/staffauth/internal/inflight"
	"github.com/skvrent/staffauth/internal/limiters"
	"github.com/skvrent/staffauth/jwt"
	"github.com/skvrent/staffauth/session"
)

// Builder assembles an [Engine].
//
// Builder instances are single-use: Build may be called once.
type Builder struct {
	config     Config
	redis      redis.UniversalClient
	store      session.Store
	httpClient *http.Client
	auditSink  AuditSink
	logger     *slog.Logger
	grants     map[Role][]string

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs sessions and the in-flight guard with Redis, unless a
// session store is set explicitly.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore injects the session store. It takes precedence over
// WithRedis for sessions.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithHTTPClient sets the client used for backend calls.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithAuditSink sets where audit events go. Audit must also be enabled in
// the config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. Without one, logs are discarded.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithRoleGrants overrides [DefaultRoleGrants].
func (b *Builder) WithRoleGrants(grants map[Role][]string) *Builder {
	b.grants = grants
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- BACKEND CLIENTS --------
	web, err := api.New(api.Options{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: b.httpClient,
		Timeout:    cfg.API.Timeout,
		UserAgent:  cfg.API.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	mobile := web
	if cfg.API.MobileBaseURL != "" {
		mobile, err = api.New(api.Options{
			BaseURL:    cfg.API.MobileBaseURL,
			HTTPClient: b.httpClient,
			Timeout:    cfg.API.Timeout,
			UserAgent:  cfg.API.UserAgent,
		})
		if err != nil {
			return nil, err
		}
	}

	// -------- TOKEN INSPECTOR --------
	inspector, err := jwt.NewInspector(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
		Key:           cloneBytes(cfg.Token.Key),
		Issuer:        cfg.Token.Issuer,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	// -------- PERMISSIONS --------
	grants := b.grants
	if grants == nil {
		grants = DefaultRoleGrants()
	}
	registry, roleManager, err := buildRoleManager(grants)
	if err != nil {
		return nil, err
	}

	// -------- SESSION STORE --------
	store := b.store
	if store == nil {
		if b.redis != nil {
			store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix)
		} else {
			store = session.NewMemoryStore()
		}
	}

	// -------- IN-FLIGHT GUARD --------
	var guard inflight.Guard
	if cfg.InFlight.Enabled {
		if b.redis != nil {
			guard = inflight.NewRedisGuard(b.redis, cfg.Session.RedisPrefix, cfg.InFlight.Lease)
		} else {
			guard = inflight.NewMemory()
		}
	}

	// -------- LOGIN LIMITER --------
	var limiter limiters.LoginLimiter
	if cfg.Login.MaxFailures > 0 {
		limits := limiters.LoginConfig{MaxFailures: cfg.Login.MaxFailures, Window: cfg.Login.FailureWindow}
		if b.redis != nil {
			limiter = limiters.NewRedisLoginLimiter(b.redis, cfg.Session.RedisPrefix, limits)
		} else {
			limiter = limiters.NewMemoryLoginLimiter(limits)
		}
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	engine := &Engine{
		config:      cloneConfig(cfg),
		web:         web,
		mobile:      mobile,
		store:       store,
		guard:       guard,
		limiter:     limiter,
		inspector:   inspector,
		registry:    registry,
		roleManager: roleManager,
		logger:      logger,
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink, logger)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
