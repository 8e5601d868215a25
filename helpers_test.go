package staffauth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// fakeBackend mimics the platform authentication API.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	// accepts maps a wire role to the password it accepts.
	accepts map[string]string
	token   string

	requestStatus int
	requestMsg    string

	validOTP string

	setPasswordStatus int
	setPasswordMsg    string
	setPasswordData   map[string]any
	lastSetPassword   map[string]string

	// block, when set, holds login requests until closed.
	block chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		accepts:  map[string]string{},
		token:    "opaque-token",
		validOTP: "4821",
	}
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.calls = append(f.calls, r.URL.Path)
	block := f.block
	f.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/login"):
		if block != nil {
			<-block
		}
		role := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/authentication/"), "/login")
		f.mu.Lock()
		pw, ok := f.accepts[role]
		token := f.token
		f.mu.Unlock()
		if !ok || pw != body["password"] {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"token": token,
			"user": map[string]any{
				"id":    11,
				"name":  "Staff Member",
				"email": body["email"],
				"type":  "PROVIDER",
				"phone": "+201000000000",
			},
		}})

	case r.URL.Path == "/authentication/first-login/request":
		status := f.requestStatus
		if status == 0 {
			status = http.StatusCreated
		}
		writeJSON(w, status, map[string]any{"message": f.requestMsg})

	case r.URL.Path == "/authentication/first-login/verify-otp":
		if body["otp"] != f.validOTP {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid OTP"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{}})

	case r.URL.Path == "/authentication/first-login/set-password":
		f.mu.Lock()
		f.lastSetPassword = body
		status, msg, data := f.setPasswordStatus, f.setPasswordMsg, f.setPasswordData
		f.mu.Unlock()
		if status == 0 {
			status = http.StatusOK
		}
		writeJSON(w, status, map[string]any{"message": msg, "data": data})

	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.API.BaseURL = baseURL
	return cfg
}

func newTestEngine(t *testing.T, backend *fakeBackend, mutate func(*Config), opts ...func(*Builder)) *Engine {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	if mutate != nil {
		mutate(&cfg)
	}
	b := New().WithConfig(cfg)
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}
