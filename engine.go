package staffauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skvrent/staffauth/internal/api"
	"github.com/skvrent/staffauth/internal/flows"
	"github.com/skvrent/staffauth/internal/inflight"
	"github.com/skvrent/staffauth/internal/limiters"
	"github.com/skvrent/staffauth/jwt"
	"github.com/skvrent/staffauth/permission"
	"github.com/skvrent/staffauth/session"
)

// Engine signs staff in and out and drives first-login activation.
//
// Engine instances are created by [Builder.Build] and are safe for
// concurrent use. The session store is the only shared mutable state.
type Engine struct {
	config      Config
	web         *api.Client
	mobile      *api.Client
	store       session.Store
	guard       inflight.Guard
	limiter     limiters.LoginLimiter
	inspector   *jwt.Inspector
	registry    *permission.Registry
	roleManager *permission.RoleManager
	audit       *auditDispatcher
	metrics     *Metrics
	logger      *slog.Logger
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Backend returns the backend client for ctx: the mobile client for
// requests marked WithMobile, the web client otherwise.
func (e *Engine) Backend(ctx context.Context) *api.Client {
	if mobileFromContext(ctx) {
		return e.mobile
	}
	return e.web
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) slot(ctx context.Context) string {
	if slot := slotFromContext(ctx); slot != "" {
		return slot
	}
	return e.config.Session.DefaultSlot
}

func (e *Engine) warnf(ctx context.Context) func(string, ...any) {
	return func(format string, args ...any) {
		e.logger.WarnContext(ctx, fmt.Sprintf(format, args...),
			"slot", e.slot(ctx),
			"request_id", requestIDFromContext(ctx),
		)
	}
}

// acquire takes the in-flight hold for (slot, action). A Redis outage
// degrades to no guard rather than blocking sign-in.
func (e *Engine) acquire(ctx context.Context, action string) (func(), error) {
	if e.guard == nil {
		return func() {}, nil
	}
	release, err := e.guard.Acquire(ctx, inflight.Key(e.slot(ctx), action))
	switch {
	case err == nil:
		return release, nil
	case errors.Is(err, inflight.ErrBusy):
		e.metricInc(MetricRequestInFlight)
		e.emitAudit(ctx, auditEventRequestInFlight, false, "", "", ErrRequestInFlight, func() map[string]string {
			return map[string]string{"action": action}
		})
		return nil, ErrRequestInFlight
	default:
		e.logger.WarnContext(ctx, "in-flight guard unavailable", "action", action, "error", err)
		return func() {}, nil
	}
}

func (e *Engine) auditFunc() flows.AuditFunc {
	return func(ctx context.Context, event string, success bool, userID, role string, err error, meta func() map[string]string) {
		e.emitAudit(ctx, event, success, userID, role, err, meta)
	}
}

func (e *Engine) metricFunc() func(int) {
	return func(id int) { e.metricInc(MetricID(id)) }
}

/*
====================================
LOGIN
====================================
*/

// Login tries the credentials against each role endpoint in
// Config.Login.RoleOrder and stores the first accepted identity under the
// slot of ctx. When no endpoint accepts, it returns ErrInvalidCredentials
// and writes nothing.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if e == nil || e.store == nil || e.web == nil {
		return nil, ErrEngineNotReady
	}
	release, err := e.acquire(ctx, "login")
	if err != nil {
		return nil, err
	}
	defer release()

	if err := e.checkThrottle(ctx, email); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := flows.RunLogin(ctx, email, password, e.loginDeps(ctx))
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricLoginLatency, time.Since(start))
	}
	e.recordLoginOutcome(ctx, email, password, err)
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "staff signed in",
		"slot", res.Session.Slot,
		"role", res.Role.String(),
		"attempts", res.Attempts,
		"request_id", requestIDFromContext(ctx),
	)

	return &LoginResult{
		Role:       res.Role,
		Session:    res.Session,
		RedirectTo: DashboardPath(localeFromContext(ctx), mobileFromContext(ctx), res.Role),
		Attempts:   res.Attempts,
	}, nil
}

// checkThrottle refuses a throttled email. Limiter outages let the login
// through.
func (e *Engine) checkThrottle(ctx context.Context, email string) error {
	if e.limiter == nil {
		return nil
	}
	err := e.limiter.Check(ctx, email)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, limiters.ErrLoginThrottled):
		e.metricInc(MetricLoginThrottled)
		e.emitAudit(ctx, auditEventLoginThrottled, false, "", "", err, nil)
		return ErrLoginThrottled
	default:
		e.warnf(ctx)("login limiter check failed: %v", err)
		return nil
	}
}

func (e *Engine) recordLoginOutcome(ctx context.Context, email, password string, err error) {
	if e.limiter == nil || email == "" || password == "" {
		return
	}
	var lerr error
	switch {
	case err == nil:
		lerr = e.limiter.Reset(ctx, email)
	case errors.Is(err, ErrInvalidCredentials):
		lerr = e.limiter.RecordFailure(ctx, email)
	}
	if lerr != nil {
		e.warnf(ctx)("login limiter update failed: %v", lerr)
	}
}

func (e *Engine) loginDeps(ctx context.Context) flows.LoginDeps {
	backend := e.Backend(ctx)
	requestID := requestIDFromContext(ctx)

	return flows.LoginDeps{
		RoleOrder:       e.config.Login.RoleOrder,
		SessionTTL:      e.config.Session.TTL,
		SlotFromContext: e.slot,
		Now:             time.Now,
		Authenticate: func(ctx context.Context, role session.Role, email, password string) (*flows.AuthGrant, error) {
			payload, err := backend.Login(ctx, role.String(), email, password, requestID)
			if err != nil {
				return nil, err
			}
			return &flows.AuthGrant{User: payload.User, Token: payload.Token, Type: payload.UserType}, nil
		},
		TokenExpiry: e.tokenExpiry,
		SaveSession: e.store.Save,
		MetricInc:   e.metricFunc(),
		EmitAudit:   e.auditFunc(),
		Warn:        e.warnf(ctx),
		Metrics: flows.LoginMetrics{
			LoginAttempt:      int(MetricLoginAttempt),
			LoginSuccess:      int(MetricLoginSuccess),
			LoginFailure:      int(MetricLoginFailure),
			LoginRoleFallback: int(MetricLoginRoleFallback),
			SessionCreated:    int(MetricSessionCreated),
		},
		Events: flows.LoginEvents{
			LoginSuccess:      auditEventLoginSuccess,
			LoginFailure:      auditEventLoginFailure,
			LoginRoleFallback: auditEventLoginRoleFallback,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:          ErrEngineNotReady,
			InvalidCredentials:      ErrInvalidCredentials,
			SessionStoreUnavailable: ErrSessionStoreUnavailable,
			TokenRejected:           ErrTokenRejected,
		},
	}
}

func (e *Engine) tokenExpiry(token string) (time.Time, error) {
	if e.inspector == nil {
		return time.Time{}, nil
	}
	claims, err := e.inspector.Inspect(token)
	if err != nil {
		if errors.Is(err, jwt.ErrNotJWT) && !e.inspector.Verifies() {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return claims.ExpiresAt, nil
}

/*
====================================
SESSION
====================================
*/

// Current returns the slot's live session, or ErrNoSession.
func (e *Engine) Current(ctx context.Context) (*Session, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	sess, err := flows.RunCurrent(ctx, e.slot(ctx), flows.CurrentDeps{
		SessionStore: e.store,
		Now:          time.Now,
		Warn:         e.warnf(ctx),
		NoSession:    ErrNoSession,
	})
	if err != nil && !errors.Is(err, ErrNoSession) {
		return nil, fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}
	return sess, err
}

// Logout deletes the slot's session. Logging out twice is not an error.
func (e *Engine) Logout(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	release, err := e.acquire(ctx, "logout")
	if err != nil {
		return err
	}
	defer release()

	slot := e.slot(ctx)
	err = flows.RunLogout(ctx, slot, flows.LogoutDeps{
		SessionStore: e.store,
		MetricInc:    e.metricFunc(),
		EmitAudit:    e.auditFunc(),
		LogoutMetric: int(MetricLogout),
		LogoutEvent:  auditEventLogout,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}
	e.logger.InfoContext(ctx, "staff signed out", "slot", slot, "request_id", requestIDFromContext(ctx))
	return nil
}

// adopt stores a session for a grant whose role is already decided.
func (e *Engine) adopt(ctx context.Context, role Role, grant *flows.AuthGrant) (*Session, error) {
	sess, ttl, err := flows.NewSession(e.slot(ctx), role, grant, time.Now(), e.config.Session.TTL, e.tokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenRejected, err)
	}
	if err := e.store.Save(ctx, sess, ttl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}
	e.metricInc(MetricSessionCreated)
	return sess, nil
}
