// Package config loads the binaries' settings from a YAML file, a .env
// file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/skvrent/staffauth"
)

// File mirrors the YAML document.
type File struct {
	Listen  string `yaml:"listen"`
	GinMode string `yaml:"gin_mode"`

	Log struct {
		Format string `yaml:"format"`
		Level  string `yaml:"level"`
	} `yaml:"log"`

	API struct {
		BaseURL       string `yaml:"base_url"`
		MobileBaseURL string `yaml:"mobile_base_url"`
		Timeout       string `yaml:"timeout"`
		UserAgent     string `yaml:"user_agent"`
	} `yaml:"api"`

	Login struct {
		RoleOrder     []string `yaml:"role_order"`
		MaxFailures   int      `yaml:"max_failures"`
		FailureWindow string   `yaml:"failure_window"`
	} `yaml:"login"`

	Activation struct {
		VerifyOTPRemotely bool   `yaml:"verify_otp_remotely"`
		RedirectDelay     string `yaml:"redirect_delay"`
		AutoLogin         bool   `yaml:"auto_login"`
	} `yaml:"activation"`

	Session struct {
		RedisPrefix string `yaml:"redis_prefix"`
		TTL         string `yaml:"ttl"`
		DefaultSlot string `yaml:"default_slot"`
		File        string `yaml:"file"`
	} `yaml:"session"`

	Token struct {
		SigningMethod string `yaml:"signing_method"`
		Key           string `yaml:"key"`
		Issuer        string `yaml:"issuer"`
		Leeway        string `yaml:"leeway"`
	} `yaml:"token"`

	Redis RedisConfig `yaml:"redis"`

	InFlight struct {
		Enabled *bool  `yaml:"enabled"`
		Lease   string `yaml:"lease"`
	} `yaml:"inflight"`

	Audit struct {
		Enabled    bool   `yaml:"enabled"`
		BufferSize int    `yaml:"buffer_size"`
		DropIfFull *bool  `yaml:"drop_if_full"`
		Output     string `yaml:"output"`
	} `yaml:"audit"`

	Metrics struct {
		Enabled           *bool `yaml:"enabled"`
		LatencyHistograms bool  `yaml:"latency_histograms"`
		Prometheus        *bool `yaml:"prometheus"`
		OTel              bool  `yaml:"otel"`
	} `yaml:"metrics"`

	Web struct {
		SecureCookie bool `yaml:"secure_cookie"`
	} `yaml:"web"`
}

// RedisConfig locates the shared Redis. An empty Addr keeps sessions in
// memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Format is "json" or "text".
	Format string
	Level  slog.Level
}

// Config is the resolved configuration of a binary.
type Config struct {
	Engine staffauth.Config

	Listen  string
	GinMode string
	Log     LogConfig
	Redis   RedisConfig

	// SessionFile is where the CLI keeps its session.
	SessionFile string
	// AuditOutput is "", "log" or "stderr".
	AuditOutput string

	Prometheus   bool
	OTel         bool
	SecureCookie bool
}

const (
	defaultListen      = ":8080"
	defaultSessionFile = ".staffauth/session.json"
)

// Load reads path (optional), then the .env files (default ".env", missing
// files are ignored), then applies environment overrides. Variables
// already set in the process win over .env values.
func Load(path string, envFiles ...string) (*Config, error) {
	var file File
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("could not parse config yaml: %w", err)
		}
	}

	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not load env file: %w", err)
	}
	applyEnv(&file)

	return file.Resolve()
}

// applyEnv overrides file with STAFFAUTH_* variables. The console's
// NEXT_PUBLIC_* names are accepted for the backend URLs.
func applyEnv(f *File) {
	setString(&f.API.BaseURL, "NEXT_PUBLIC_API_URL", "STAFFAUTH_API_URL")
	setString(&f.API.MobileBaseURL, "NEXT_PUBLIC_API_MOBILE_BASE_URL", "STAFFAUTH_API_MOBILE_URL")
	setString(&f.API.Timeout, "STAFFAUTH_API_TIMEOUT")
	setString(&f.Listen, "STAFFAUTH_LISTEN")
	setString(&f.GinMode, "GIN_MODE", "STAFFAUTH_GIN_MODE")
	setString(&f.Log.Format, "STAFFAUTH_LOG_FORMAT")
	setString(&f.Log.Level, "STAFFAUTH_LOG_LEVEL")
	setString(&f.Redis.Addr, "STAFFAUTH_REDIS_ADDR")
	setString(&f.Redis.Password, "STAFFAUTH_REDIS_PASSWORD")
	setString(&f.Session.File, "STAFFAUTH_SESSION_FILE")
	setString(&f.Session.TTL, "STAFFAUTH_SESSION_TTL")
	setString(&f.Token.SigningMethod, "STAFFAUTH_TOKEN_SIGNING_METHOD")
	setString(&f.Token.Key, "STAFFAUTH_TOKEN_KEY")
	setString(&f.Audit.Output, "STAFFAUTH_AUDIT_OUTPUT")

	if v, ok := os.LookupEnv("STAFFAUTH_REDIS_DB"); ok {
		if db, err := strconv.Atoi(v); err == nil {
			f.Redis.DB = db
		}
	}
	if v, ok := os.LookupEnv("STAFFAUTH_AUTO_LOGIN"); ok {
		f.Activation.AutoLogin, _ = strconv.ParseBool(v)
	}
	if v, ok := os.LookupEnv("STAFFAUTH_VERIFY_OTP_REMOTELY"); ok {
		f.Activation.VerifyOTPRemotely, _ = strconv.ParseBool(v)
	}
	if v, ok := os.LookupEnv("STAFFAUTH_SECURE_COOKIE"); ok {
		f.Web.SecureCookie, _ = strconv.ParseBool(v)
	}
}

// setString assigns the last set variable of keys to dst.
func setString(dst *string, keys ...string) {
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok && v != "" {
			*dst = v
		}
	}
}

// Resolve turns the document into a validated Config. Unset fields keep
// staffauth.DefaultConfig values.
func (f File) Resolve() (*Config, error) {
	cfg := &Config{
		Engine:       staffauth.DefaultConfig(),
		Listen:       f.Listen,
		GinMode:      f.GinMode,
		Redis:        f.Redis,
		SessionFile:  f.Session.File,
		AuditOutput:  strings.ToLower(strings.TrimSpace(f.Audit.Output)),
		Prometheus:   boolOr(f.Metrics.Prometheus, true),
		OTel:         f.Metrics.OTel,
		SecureCookie: f.Web.SecureCookie,
	}
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if cfg.SessionFile == "" {
		cfg.SessionFile = defaultSessionFile
	}
	switch cfg.AuditOutput {
	case "", "log", "stderr":
	default:
		return nil, fmt.Errorf("invalid audit output %q", f.Audit.Output)
	}

	var err error
	if cfg.Log, err = parseLog(f.Log.Format, f.Log.Level); err != nil {
		return nil, err
	}

	e := &cfg.Engine
	e.API.BaseURL = f.API.BaseURL
	e.API.MobileBaseURL = f.API.MobileBaseURL
	if f.API.UserAgent != "" {
		e.API.UserAgent = f.API.UserAgent
	}
	if err := parseDuration("api.timeout", f.API.Timeout, &e.API.Timeout); err != nil {
		return nil, err
	}

	if len(f.Login.RoleOrder) > 0 {
		e.Login.RoleOrder = e.Login.RoleOrder[:0:0]
		for _, name := range f.Login.RoleOrder {
			role, err := staffauth.ParseRole(name)
			if err != nil {
				return nil, fmt.Errorf("login.role_order: %w", err)
			}
			e.Login.RoleOrder = append(e.Login.RoleOrder, role)
		}
	}

	e.Login.MaxFailures = f.Login.MaxFailures
	if err := parseDuration("login.failure_window", f.Login.FailureWindow, &e.Login.FailureWindow); err != nil {
		return nil, err
	}

	e.Activation.VerifyOTPRemotely = f.Activation.VerifyOTPRemotely
	e.Activation.AutoLogin = f.Activation.AutoLogin
	if err := parseDuration("activation.redirect_delay", f.Activation.RedirectDelay, &e.Activation.RedirectDelay); err != nil {
		return nil, err
	}

	if f.Session.RedisPrefix != "" {
		e.Session.RedisPrefix = f.Session.RedisPrefix
	}
	if f.Session.DefaultSlot != "" {
		e.Session.DefaultSlot = f.Session.DefaultSlot
	}
	if err := parseDuration("session.ttl", f.Session.TTL, &e.Session.TTL); err != nil {
		return nil, err
	}

	e.Token.SigningMethod = strings.ToLower(strings.TrimSpace(f.Token.SigningMethod))
	if f.Token.Key != "" {
		e.Token.Key = []byte(f.Token.Key)
	}
	e.Token.Issuer = f.Token.Issuer
	if err := parseDuration("token.leeway", f.Token.Leeway, &e.Token.Leeway); err != nil {
		return nil, err
	}

	e.InFlight.Enabled = boolOr(f.InFlight.Enabled, e.InFlight.Enabled)
	if err := parseDuration("inflight.lease", f.InFlight.Lease, &e.InFlight.Lease); err != nil {
		return nil, err
	}

	e.Audit.Enabled = f.Audit.Enabled || cfg.AuditOutput != ""
	if f.Audit.BufferSize > 0 {
		e.Audit.BufferSize = f.Audit.BufferSize
	}
	e.Audit.DropIfFull = boolOr(f.Audit.DropIfFull, e.Audit.DropIfFull)

	e.Metrics.Enabled = boolOr(f.Metrics.Enabled, e.Metrics.Enabled)
	e.Metrics.EnableLatencyHistograms = f.Metrics.LatencyHistograms

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDuration(name, raw string, dst *time.Duration) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = d
	return nil
}

func parseLog(format, level string) (LogConfig, error) {
	out := LogConfig{Format: strings.ToLower(strings.TrimSpace(format)), Level: slog.LevelInfo}
	switch out.Format {
	case "":
		out.Format = "text"
	case "json", "text":
	default:
		return out, fmt.Errorf("invalid log format %q", format)
	}
	if level != "" {
		if err := out.Level.UnmarshalText([]byte(level)); err != nil {
			return out, fmt.Errorf("invalid log level: %w", err)
		}
	}
	return out, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// NewLogger builds the slog logger described by c.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
