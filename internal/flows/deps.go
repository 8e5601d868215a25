package flows

import (
	"context"

	"github.com/skvrent/staffauth/session"
)

// AuthGrant is what a backend returns when it accepts a staff member.
type AuthGrant struct {
	User  session.User
	Token string
	// Type is the backend's raw user type. Login ignores it; activation
	// uses it only when it names a known role.
	Type string
}

// AuditFunc records one audit event. meta is evaluated lazily.
type AuditFunc func(ctx context.Context, event string, success bool, userID, role string, err error, meta func() map[string]string)

func noopAudit(context.Context, string, bool, string, string, error, func() map[string]string) {}

func noopMetric(int) {}

func noopWarn(string, ...any) {}
