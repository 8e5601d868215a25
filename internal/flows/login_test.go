package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skvrent/staffauth/session"
)

var (
	errNotReady        = errors.New("not ready")
	errInvalidCreds    = errors.New("invalid credentials")
	errStoreDown       = errors.New("store unavailable")
	errTokenRejected   = errors.New("token rejected")
	errBackendRejected = errors.New("401 unauthorized")
)

const (
	mAttempt = iota + 1
	mSuccess
	mFailure
	mFallback
	mSession
)

type loginHarness struct {
	calls    []session.Role
	accepts  map[session.Role]bool
	saved    *session.Session
	savedTTL time.Duration
	saveErr  error
	metrics  map[int]int
	events   []string
	now      time.Time
}

func newLoginHarness(accepts ...session.Role) *loginHarness {
	h := &loginHarness{
		accepts: make(map[session.Role]bool),
		metrics: make(map[int]int),
		now:     time.Unix(1_700_000_000, 0),
	}
	for _, r := range accepts {
		h.accepts[r] = true
	}
	return h
}

func (h *loginHarness) deps() LoginDeps {
	return LoginDeps{
		RoleOrder:       []session.Role{session.RoleAdmin, session.RoleModerator},
		SessionTTL:      time.Hour,
		SlotFromContext: func(context.Context) string { return "browser-1" },
		Now:             func() time.Time { return h.now },
		Authenticate: func(_ context.Context, role session.Role, email, password string) (*AuthGrant, error) {
			h.calls = append(h.calls, role)
			if !h.accepts[role] {
				return nil, errBackendRejected
			}
			return &AuthGrant{
				User:  session.User{ID: "9", Email: email, Name: "Staff"},
				Token: "token-" + role.String(),
			}, nil
		},
		SaveSession: func(_ context.Context, s *session.Session, ttl time.Duration) error {
			if h.saveErr != nil {
				return h.saveErr
			}
			h.saved, h.savedTTL = s, ttl
			return nil
		},
		MetricInc: func(id int) { h.metrics[id]++ },
		EmitAudit: func(_ context.Context, event string, _ bool, _, _ string, _ error, meta func() map[string]string) {
			if meta != nil {
				_ = meta()
			}
			h.events = append(h.events, event)
		},
		Metrics: LoginMetrics{
			LoginAttempt:      mAttempt,
			LoginSuccess:      mSuccess,
			LoginFailure:      mFailure,
			LoginRoleFallback: mFallback,
			SessionCreated:    mSession,
		},
		Events: LoginEvents{
			LoginSuccess:      "login_success",
			LoginFailure:      "login_failure",
			LoginRoleFallback: "login_role_fallback",
		},
		Errors: LoginErrors{
			EngineNotReady:          errNotReady,
			InvalidCredentials:      errInvalidCreds,
			SessionStoreUnavailable: errStoreDown,
			TokenRejected:           errTokenRejected,
		},
	}
}

func TestRunLoginModeratorFallback(t *testing.T) {
	h := newLoginHarness(session.RoleModerator)

	res, err := RunLogin(context.Background(), "mod@example.com", "pw", h.deps())
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(h.calls) != 2 || h.calls[0] != session.RoleAdmin || h.calls[1] != session.RoleModerator {
		t.Fatalf("expected ADMIN then MODERATOR, got %v", h.calls)
	}
	if res.Role != session.RoleModerator || res.Attempts != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if h.saved == nil || h.saved.Role != session.RoleModerator || h.saved.User.Type != session.RoleModerator {
		t.Fatalf("expected moderator session saved, got %+v", h.saved)
	}
	if h.saved.Slot != "browser-1" || h.saved.Token != "token-MODERATOR" {
		t.Fatalf("unexpected session: %+v", h.saved)
	}
	if h.metrics[mAttempt] != 2 || h.metrics[mFallback] != 1 || h.metrics[mSuccess] != 1 || h.metrics[mSession] != 1 {
		t.Fatalf("unexpected metrics: %v", h.metrics)
	}
	want := []string{"login_role_fallback", "login_success"}
	if len(h.events) != 2 || h.events[0] != want[0] || h.events[1] != want[1] {
		t.Fatalf("unexpected events: %v", h.events)
	}
}

func TestRunLoginAdminShortCircuits(t *testing.T) {
	h := newLoginHarness(session.RoleAdmin, session.RoleModerator)

	res, err := RunLogin(context.Background(), "admin@example.com", "pw", h.deps())
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(h.calls) != 1 || res.Role != session.RoleAdmin {
		t.Fatalf("expected single ADMIN call, got calls=%v role=%v", h.calls, res.Role)
	}
	if h.savedTTL != time.Hour {
		t.Fatalf("expected session ttl 1h, got %v", h.savedTTL)
	}
}

func TestRunLoginBothRejected(t *testing.T) {
	h := newLoginHarness()

	res, err := RunLogin(context.Background(), "nobody@example.com", "pw", h.deps())
	if !errors.Is(err, errInvalidCreds) || res != nil {
		t.Fatalf("expected invalid credentials, got res=%v err=%v", res, err)
	}
	if len(h.calls) != 2 {
		t.Fatalf("expected both roles probed, got %v", h.calls)
	}
	if h.saved != nil {
		t.Fatal("no session may be written on failure")
	}
	if h.metrics[mFailure] != 1 {
		t.Fatalf("expected one failure metric, got %v", h.metrics)
	}
}

func TestRunLoginEmptyCredentialsSkipNetwork(t *testing.T) {
	for _, tc := range []struct{ email, password string }{
		{"", "pw"},
		{"   ", "pw"},
		{"a@example.com", ""},
	} {
		h := newLoginHarness(session.RoleAdmin)
		_, err := RunLogin(context.Background(), tc.email, tc.password, h.deps())
		if !errors.Is(err, errInvalidCreds) {
			t.Fatalf("expected invalid credentials for %+v, got %v", tc, err)
		}
		if len(h.calls) != 0 {
			t.Fatalf("expected no network calls for %+v, got %v", tc, h.calls)
		}
	}
}

func TestRunLoginCancelledStopsProbing(t *testing.T) {
	h := newLoginHarness(session.RoleModerator)
	ctx, cancel := context.WithCancel(context.Background())
	deps := h.deps()
	auth := deps.Authenticate
	deps.Authenticate = func(ctx context.Context, role session.Role, email, password string) (*AuthGrant, error) {
		cancel()
		return auth(ctx, role, email, password)
	}

	_, err := RunLogin(ctx, "mod@example.com", "pw", deps)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(h.calls) != 1 {
		t.Fatalf("expected probing to stop after cancel, got %v", h.calls)
	}
	if h.saved != nil {
		t.Fatal("no session may be written after cancel")
	}
}

func TestRunLoginTokenExpiryClampsSession(t *testing.T) {
	h := newLoginHarness(session.RoleAdmin)
	deps := h.deps()
	deps.TokenExpiry = func(string) (time.Time, error) {
		return h.now.Add(10 * time.Minute), nil
	}

	if _, err := RunLogin(context.Background(), "a@example.com", "pw", deps); err != nil {
		t.Fatalf("login: %v", err)
	}
	if h.savedTTL != 10*time.Minute {
		t.Fatalf("expected ttl clamped to token expiry, got %v", h.savedTTL)
	}
	if h.saved.ExpiresAt != h.now.Add(10*time.Minute).Unix() {
		t.Fatalf("unexpected expiry %d", h.saved.ExpiresAt)
	}
}

func TestRunLoginRejectsExpiredToken(t *testing.T) {
	h := newLoginHarness(session.RoleAdmin)
	deps := h.deps()
	deps.TokenExpiry = func(string) (time.Time, error) {
		return h.now.Add(-time.Second), nil
	}

	_, err := RunLogin(context.Background(), "a@example.com", "pw", deps)
	if !errors.Is(err, errTokenRejected) {
		t.Fatalf("expected token rejected, got %v", err)
	}
	if h.saved != nil {
		t.Fatal("no session may be written for an expired token")
	}
}

func TestRunLoginSaveFailure(t *testing.T) {
	h := newLoginHarness(session.RoleAdmin)
	h.saveErr = errors.New("redis down")

	_, err := RunLogin(context.Background(), "a@example.com", "pw", h.deps())
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	if h.metrics[mSuccess] != 0 {
		t.Fatal("success metric must not be recorded when save fails")
	}
}

func TestRunLoginNotReady(t *testing.T) {
	h := newLoginHarness()
	deps := h.deps()
	deps.RoleOrder = nil
	if _, err := RunLogin(context.Background(), "a", "b", deps); !errors.Is(err, errNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func TestNewSession(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	grant := &AuthGrant{User: session.User{ID: "7", Email: "m@example.com"}, Token: "tok", Type: "ADMIN"}

	sess, ttl, err := NewSession("slot-1", session.RoleModerator, grant, now, time.Hour, nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if ttl != time.Hour || sess.ExpiresAt != now.Add(time.Hour).Unix() {
		t.Fatalf("expected full ttl, got %v exp=%d", ttl, sess.ExpiresAt)
	}
	if sess.Role != session.RoleModerator || sess.User.Type != session.RoleModerator || sess.Slot != "slot-1" {
		t.Fatalf("role must follow the accepting endpoint, got %+v", sess)
	}
	if grant.User.Type == session.RoleModerator {
		t.Fatal("grant must not be modified")
	}

	_, ttl, err = NewSession("slot-1", session.RoleAdmin, grant, now, time.Hour, func(string) (time.Time, error) {
		return now.Add(5 * time.Minute), nil
	})
	if err != nil || ttl != 5*time.Minute {
		t.Fatalf("expected ttl clamped to 5m, got %v %v", ttl, err)
	}

	if _, _, err := NewSession("slot-1", session.RoleAdmin, grant, now, time.Hour, func(string) (time.Time, error) {
		return now, nil
	}); err == nil {
		t.Fatal("expired token must be rejected")
	}

	bad := errors.New("bad signature")
	if _, _, err := NewSession("slot-1", session.RoleAdmin, grant, now, time.Hour, func(string) (time.Time, error) {
		return time.Time{}, bad
	}); !errors.Is(err, bad) {
		t.Fatalf("expected inspector error, got %v", err)
	}
}
