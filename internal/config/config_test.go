package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skvrent/staffauth"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yml", `
listen: ":9000"
log:
  format: json
  level: debug
api:
  base_url: https://api.skvrent.example
  timeout: 5s
login:
  role_order: [MODERATOR, ADMIN]
  max_failures: 5
  failure_window: 15m
activation:
  verify_otp_remotely: true
  redirect_delay: 3s
  auto_login: true
session:
  ttl: 2h
  file: /tmp/staffauth.json
redis:
  addr: 127.0.0.1:6379
  db: 2
inflight:
  enabled: false
audit:
  output: log
metrics:
  prometheus: false
  otel: true
`)

	cfg, err := Load(path, noEnvFile(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Listen != ":9000" || cfg.Log.Format != "json" || cfg.Log.Level != slog.LevelDebug {
		t.Fatalf("unexpected binary settings: %+v", cfg)
	}
	e := cfg.Engine
	if e.API.BaseURL != "https://api.skvrent.example" || e.API.Timeout != 5*time.Second {
		t.Fatalf("unexpected api config: %+v", e.API)
	}
	if len(e.Login.RoleOrder) != 2 || e.Login.RoleOrder[0] != staffauth.RoleModerator {
		t.Fatalf("unexpected role order: %v", e.Login.RoleOrder)
	}
	if e.Login.MaxFailures != 5 || e.Login.FailureWindow != 15*time.Minute {
		t.Fatalf("unexpected throttle config: %+v", e.Login)
	}
	if !e.Activation.VerifyOTPRemotely || !e.Activation.AutoLogin || e.Activation.RedirectDelay != 3*time.Second {
		t.Fatalf("unexpected activation config: %+v", e.Activation)
	}
	if e.Session.TTL != 2*time.Hour || cfg.SessionFile != "/tmp/staffauth.json" {
		t.Fatalf("unexpected session config: %+v %q", e.Session, cfg.SessionFile)
	}
	if cfg.Redis.Addr != "127.0.0.1:6379" || cfg.Redis.DB != 2 {
		t.Fatalf("unexpected redis config: %+v", cfg.Redis)
	}
	if e.InFlight.Enabled {
		t.Fatalf("expected in-flight guard disabled")
	}
	if !e.Audit.Enabled || cfg.AuditOutput != "log" {
		t.Fatalf("expected audit enabled by output")
	}
	if cfg.Prometheus || !cfg.OTel {
		t.Fatalf("unexpected exporter flags: prometheus=%v otel=%v", cfg.Prometheus, cfg.OTel)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STAFFAUTH_API_URL", "http://localhost:3000")

	cfg, err := Load("", noEnvFile(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := staffauth.DefaultConfig()
	if cfg.Listen != defaultListen || cfg.SessionFile != defaultSessionFile {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Engine.Session.TTL != def.Session.TTL || cfg.Engine.Activation.RedirectDelay != def.Activation.RedirectDelay {
		t.Fatalf("expected library defaults to survive")
	}
	if !cfg.Engine.InFlight.Enabled || !cfg.Engine.Metrics.Enabled || !cfg.Prometheus {
		t.Fatalf("expected enabled-by-default sections to stay enabled")
	}
	if cfg.Engine.Audit.Enabled {
		t.Fatalf("audit should be off without an output")
	}
	if cfg.Log.Format != "text" || cfg.Log.Level != slog.LevelInfo {
		t.Fatalf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yml", "api:\n  base_url: https://file.example\n")
	t.Setenv("NEXT_PUBLIC_API_URL", "https://next.example")
	t.Setenv("NEXT_PUBLIC_API_MOBILE_BASE_URL", "https://mobile.example")
	t.Setenv("STAFFAUTH_REDIS_DB", "4")
	t.Setenv("STAFFAUTH_AUTO_LOGIN", "true")

	cfg, err := Load(path, noEnvFile(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.API.BaseURL != "https://next.example" {
		t.Fatalf("expected env base url, got %q", cfg.Engine.API.BaseURL)
	}
	if cfg.Engine.API.MobileBaseURL != "https://mobile.example" {
		t.Fatalf("expected env mobile url, got %q", cfg.Engine.API.MobileBaseURL)
	}
	if cfg.Redis.DB != 4 || !cfg.Engine.Activation.AutoLogin {
		t.Fatalf("unexpected env overrides: db=%d auto=%v", cfg.Redis.DB, cfg.Engine.Activation.AutoLogin)
	}
}

func TestStaffauthNameWinsOverConsoleName(t *testing.T) {
	t.Setenv("NEXT_PUBLIC_API_URL", "https://next.example")
	t.Setenv("STAFFAUTH_API_URL", "https://staffauth.example")

	cfg, err := Load("", noEnvFile(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.API.BaseURL != "https://staffauth.example" {
		t.Fatalf("expected STAFFAUTH_API_URL to win, got %q", cfg.Engine.API.BaseURL)
	}
}

func TestDotEnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "STAFFAUTH_API_URL=https://dotenv.example\nSTAFFAUTH_LOG_LEVEL=warn\n")
	t.Cleanup(func() {
		_ = os.Unsetenv("STAFFAUTH_API_URL")
		_ = os.Unsetenv("STAFFAUTH_LOG_LEVEL")
	})

	cfg, err := Load("", envFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.API.BaseURL != "https://dotenv.example" || cfg.Log.Level != slog.LevelWarn {
		t.Fatalf("expected .env values, got %q %v", cfg.Engine.API.BaseURL, cfg.Log.Level)
	}
}

func TestLoadRejects(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"missing base url", "listen: ':1'\n", "BaseURL"},
		{"unknown role", "api: {base_url: 'http://x'}\nlogin: {role_order: [PROVIDER]}\n", "role_order"},
		{"throttle without window", "api: {base_url: 'http://x'}\nlogin: {max_failures: 3}\n", "FailureWindow"},
		{"bad duration", "api: {base_url: 'http://x', timeout: soon}\n", "api.timeout"},
		{"bad log format", "api: {base_url: 'http://x'}\nlog: {format: xml}\n", "log format"},
		{"bad log level", "api: {base_url: 'http://x'}\nlog: {level: loud}\n", "log level"},
		{"bad audit output", "api: {base_url: 'http://x'}\naudit: {output: kafka}\n", "audit output"},
		{"signing without key", "api: {base_url: 'http://x'}\ntoken: {signing_method: hs256}\n", "Token Key"},
		{"bad yaml", "api: [\n", "yaml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "config.yml", tc.yaml)
			_, err := Load(path, noEnvFile(t))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml"), noEnvFile(t)); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	LogConfig{Format: "json", Level: slog.LevelWarn}.NewLogger(&buf).Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level")
	}
	LogConfig{Format: "json", Level: slog.LevelWarn}.NewLogger(&buf).Warn("shown")
	if !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Fatalf("expected json output, got %q", buf.String())
	}
}
