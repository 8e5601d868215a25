package flows

import (
	"context"
	"errors"
	"time"

	"github.com/skvrent/staffauth/session"
)

// SessionStore is the part of session.Store the read and logout flows use.
type SessionStore interface {
	Get(ctx context.Context, slot string) (*session.Session, error)
	Delete(ctx context.Context, slot string) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	SessionStore SessionStore
	MetricInc    func(int)
	EmitAudit    AuditFunc
	LogoutMetric int
	LogoutEvent  string
}

// RunLogout removes the slot's session. Logging out of an empty slot is
// not an error.
func RunLogout(ctx context.Context, slot string, deps LogoutDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}

	var userID, role string
	if sess, err := deps.SessionStore.Get(ctx, slot); err == nil {
		userID, role = sess.User.ID, sess.Role.String()
	}

	if err := deps.SessionStore.Delete(ctx, slot); err != nil {
		deps.EmitAudit(ctx, deps.LogoutEvent, false, userID, role, err, nil)
		return err
	}
	deps.MetricInc(deps.LogoutMetric)
	deps.EmitAudit(ctx, deps.LogoutEvent, true, userID, role, nil, nil)
	return nil
}

// CurrentDeps captures session read dependencies.
type CurrentDeps struct {
	SessionStore SessionStore
	Now          func() time.Time
	Warn         func(string, ...any)
	NoSession    error
}

// RunCurrent returns the slot's live session. Expired sessions are deleted
// on read; a failed cleanup is logged and otherwise ignored.
func RunCurrent(ctx context.Context, slot string, deps CurrentDeps) (*session.Session, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}

	sess, err := deps.SessionStore.Get(ctx, slot)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, deps.NoSession
		}
		return nil, err
	}
	if sess.Expired(deps.Now()) {
		if err := deps.SessionStore.Delete(ctx, slot); err != nil {
			deps.Warn("staffauth: expired session cleanup failed: %v", err)
		}
		return nil, deps.NoSession
	}
	return sess, nil
}
