package staffauth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/skvrent/staffauth/jwt"
)

// Config defines the engine configuration.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable. [Builder.WithConfig] stores a copy.
type Config struct {
	API        APIConfig
	Login      LoginConfig
	Activation ActivationConfig
	Session    SessionConfig
	Token      TokenConfig
	InFlight   InFlightConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the platform backend.
type APIConfig struct {
	BaseURL string
	// MobileBaseURL serves requests marked WithMobile. Empty falls back to
	// BaseURL.
	MobileBaseURL string
	// Timeout bounds each backend call when positive.
	Timeout   time.Duration
	UserAgent string
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig controls credential probing.
type LoginConfig struct {
	// RoleOrder lists the login endpoints to try, first match wins.
	RoleOrder []Role
	// MaxFailures throttles an email after that many rejected logins
	// within FailureWindow. Zero disables throttling.
	MaxFailures   int
	FailureWindow time.Duration
}

/*
====================================
ACTIVATION CONFIG
====================================
*/

// ActivationConfig controls the first-login flow.
type ActivationConfig struct {
	// VerifyOTPRemotely checks the code with the backend before asking for
	// a password. When false the code is only shape-checked and the backend
	// validates it at set-password time.
	VerifyOTPRemotely bool
	// RedirectDelay is how long the success message shows before the
	// browser is sent to the login page.
	RedirectDelay time.Duration
	// AutoLogin adopts the session when set-password answers with
	// {user, token} and the user's type is a known role.
	AutoLogin bool
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session storage.
type SessionConfig struct {
	RedisPrefix string
	// TTL caps a session's life. A token with an earlier exp shortens it.
	TTL         time.Duration
	DefaultSlot string
}

// TokenConfig controls inspection of the backend token.
type TokenConfig struct {
	// SigningMethod is "" (read claims only), "hs256" or "ed25519".
	SigningMethod string
	Key           []byte
	Issuer        string
	Leeway        time.Duration
}

// InFlightConfig controls the one-request-per-action guard.
type InFlightConfig struct {
	Enabled bool
	// Lease bounds how long a Redis-held key survives a crashed holder.
	Lease time.Duration
}

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			UserAgent: "staffauth",
		},
		Login: LoginConfig{
			RoleOrder: []Role{RoleAdmin, RoleModerator},
		},
		Activation: ActivationConfig{
			VerifyOTPRemotely: false,
			RedirectDelay:     2 * time.Second,
			AutoLogin:         false,
		},
		Session: SessionConfig{
			RedisPrefix: "sas",
			TTL:         24 * time.Hour,
			DefaultSlot: "default",
		},
		InFlight: InFlightConfig{
			Enabled: true,
			Lease:   30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the baseline configuration. BaseURL must still be
// set before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Login.RoleOrder = append([]Role(nil), cfg.Login.RoleOrder...)
	out.Token.Key = cloneBytes(cfg.Token.Key)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	// API
	if err := validateBaseURL("API BaseURL", c.API.BaseURL, true); err != nil {
		return err
	}
	if err := validateBaseURL("API MobileBaseURL", c.API.MobileBaseURL, false); err != nil {
		return err
	}
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}

	// Login
	if len(c.Login.RoleOrder) == 0 {
		return errors.New("Login RoleOrder must not be empty")
	}
	seen := make(map[Role]bool, len(c.Login.RoleOrder))
	for _, r := range c.Login.RoleOrder {
		if !r.Valid() {
			return fmt.Errorf("Login RoleOrder contains unknown role %d", r)
		}
		if seen[r] {
			return fmt.Errorf("Login RoleOrder lists %s twice", r)
		}
		seen[r] = true
	}
	if c.Login.MaxFailures < 0 {
		return errors.New("Login MaxFailures must be >= 0")
	}
	if c.Login.MaxFailures > 0 && c.Login.FailureWindow <= 0 {
		return errors.New("Login FailureWindow must be > 0 when MaxFailures is set")
	}

	// Activation
	if c.Activation.RedirectDelay < 0 {
		return errors.New("Activation RedirectDelay must be >= 0")
	}

	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if strings.TrimSpace(c.Session.DefaultSlot) == "" {
		return errors.New("Session DefaultSlot must not be empty")
	}

	// Token
	switch jwt.SigningMethod(c.Token.SigningMethod) {
	case jwt.MethodNone, jwt.MethodHS256, jwt.MethodEd25519:
	default:
		return errors.New("unsupported Token SigningMethod")
	}
	if c.Token.SigningMethod != "" && len(c.Token.Key) == 0 {
		return errors.New("Token Key is required when SigningMethod is set")
	}

	// InFlight
	if c.InFlight.Enabled && c.InFlight.Lease <= 0 {
		return errors.New("InFlight Lease must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}

func validateBaseURL(name, raw string, required bool) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", name)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
