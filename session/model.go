package session

import (
	"errors"
	"strings"
	"time"
)

// Role is the staff role that accepted a login. It is a closed set: the
// zero value is not a valid role.
type Role uint8

const (
	// RoleAdmin is the platform administrator.
	RoleAdmin Role = iota + 1
	// RoleModerator is the facility/provider moderator.
	RoleModerator
)

// ErrUnknownRole is returned by ParseRole for names outside the closed set.
var ErrUnknownRole = errors.New("unknown role")

// String returns the wire name used in backend paths and user payloads.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "ADMIN"
	case RoleModerator:
		return "MODERATOR"
	default:
		return ""
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleModerator
}

// Segment is the lower-case route segment for the role dashboard.
func (r Role) Segment() string {
	return strings.ToLower(r.String())
}

// ParseRole maps a wire name (case-insensitive) to a Role.
func ParseRole(name string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ADMIN":
		return RoleAdmin, nil
	case "MODERATOR":
		return RoleModerator, nil
	default:
		return 0, ErrUnknownRole
	}
}

// User is the staff profile returned by the backend on login.
type User struct {
	ID    string
	Name  string
	Email string
	Phone string
	Image string
	Type  Role

	// Profile keeps backend fields without a dedicated slot.
	Profile map[string]string
}

// Session is the signed-in identity kept under a slot (one per browser or
// one for the CLI).
type Session struct {
	Slot  string
	Token string
	User  User
	Role  Role

	CreatedAt int64
	ExpiresAt int64
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return s.ExpiresAt > 0 && s.ExpiresAt <= now.Unix()
}

// TTL returns the remaining lifetime at now, never negative.
func (s *Session) TTL(now time.Time) time.Duration {
	if s == nil || s.ExpiresAt <= 0 {
		return 0
	}
	d := time.Unix(s.ExpiresAt, 0).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.User.Profile != nil {
		out.User.Profile = make(map[string]string, len(s.User.Profile))
		for k, v := range s.User.Profile {
			out.User.Profile[k] = v
		}
	}
	return &out
}
