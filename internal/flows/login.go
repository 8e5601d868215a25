package flows

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skvrent/staffauth/session"
)

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginAttempt      int
	LoginSuccess      int
	LoginFailure      int
	LoginRoleFallback int
	SessionCreated    int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess      string
	LoginFailure      string
	LoginRoleFallback string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady          error
	InvalidCredentials      error
	SessionStoreUnavailable error
	TokenRejected           error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	// RoleOrder is probed front to back; the first role whose endpoint
	// accepts the credentials wins.
	RoleOrder  []session.Role
	SessionTTL time.Duration

	SlotFromContext func(context.Context) string
	Now             func() time.Time

	Authenticate func(ctx context.Context, role session.Role, email, password string) (*AuthGrant, error)
	// TokenExpiry returns the token's expiry, or the zero time when it
	// carries none. An error rejects the login.
	TokenExpiry func(token string) (time.Time, error)
	SaveSession func(context.Context, *session.Session, time.Duration) error

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Role     session.Role
	Session  *session.Session
	Attempts int
}

// RunLogin probes the role endpoints in order and stores the session of
// the first role that accepts the credentials.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (*LoginResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.SlotFromContext == nil {
		deps.SlotFromContext = func(context.Context) string { return "" }
	}
	if deps.Authenticate == nil || deps.SaveSession == nil || len(deps.RoleOrder) == 0 {
		return nil, deps.Errors.EngineNotReady
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "empty_credentials"}
		})
		return nil, deps.Errors.InvalidCredentials
	}

	var (
		grant    *AuthGrant
		accepted session.Role
		attempts int
	)
	for i, role := range deps.RoleOrder {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attempts++
		deps.MetricInc(deps.Metrics.LoginAttempt)
		g, err := deps.Authenticate(ctx, role, email, password)
		if err == nil && g != nil {
			grant, accepted = g, role
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		if i+1 < len(deps.RoleOrder) {
			next := deps.RoleOrder[i+1]
			deps.MetricInc(deps.Metrics.LoginRoleFallback)
			deps.EmitAudit(ctx, deps.Events.LoginRoleFallback, false, "", role.String(), nil, func() map[string]string {
				return map[string]string{
					"from": role.String(),
					"to":   next.String(),
				}
			})
		}
	}

	if grant == nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"attempts": strconv.Itoa(attempts)}
		})
		return nil, deps.Errors.InvalidCredentials
	}

	now := deps.Now()
	sess, ttl, err := NewSession(deps.SlotFromContext(ctx), accepted, grant, now, deps.SessionTTL, deps.TokenExpiry)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, grant.User.ID, accepted.String(), deps.Errors.TokenRejected, nil)
		return nil, fmt.Errorf("%w: %v", deps.Errors.TokenRejected, err)
	}
	user := sess.User

	if err := deps.SaveSession(ctx, sess, ttl); err != nil {
		deps.Warn("staffauth: session save failed after login: %v", err)
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.ID, accepted.String(), deps.Errors.SessionStoreUnavailable, nil)
		return nil, fmt.Errorf("%w: %v", deps.Errors.SessionStoreUnavailable, err)
	}
	deps.MetricInc(deps.Metrics.SessionCreated)

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.ID, accepted.String(), nil, func() map[string]string {
		return map[string]string{
			"role":     accepted.String(),
			"attempts": strconv.Itoa(attempts),
		}
	})

	return &LoginResult{Role: accepted, Session: sess, Attempts: attempts}, nil
}

// NewSession builds the session for a grant accepted as role and returns
// it with its store TTL: ttl, cut short by the token's own expiry. A token
// that cannot be read or has already expired returns the cause as an
// error.
func NewSession(slot string, role session.Role, grant *AuthGrant, now time.Time, ttl time.Duration, tokenExpiry func(string) (time.Time, error)) (*session.Session, time.Duration, error) {
	expiresAt := now.Add(ttl)
	if tokenExpiry != nil {
		exp, err := tokenExpiry(grant.Token)
		if err != nil {
			return nil, 0, err
		}
		if !exp.IsZero() {
			if !exp.After(now) {
				return nil, 0, fmt.Errorf("token expired at %s", exp.UTC().Format(time.RFC3339))
			}
			if exp.Before(expiresAt) {
				expiresAt = exp
			}
		}
	}

	user := grant.User
	user.Type = role
	return &session.Session{
		Slot:      slot,
		Token:     grant.Token,
		User:      user,
		Role:      role,
		CreatedAt: now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}, expiresAt.Sub(now), nil
}
