package staffauth

import (
	"github.com/skvrent/staffauth/session"
)

// Role is the staff role that accepted a login.
type Role = session.Role

const (
	// RoleAdmin is the ADMIN role.
	RoleAdmin = session.RoleAdmin
	// RoleModerator is the MODERATOR role.
	RoleModerator = session.RoleModerator
)

// Session is the signed-in staff identity stored per slot.
type Session = session.Session

// User is the backend profile of a staff member.
type User = session.User

// ParseRole maps a wire name (ADMIN, MODERATOR) onto a Role.
func ParseRole(name string) (Role, error) {
	return session.ParseRole(name)
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	Role    Role
	Session *Session
	// RedirectTo is the dashboard route of Role.
	RedirectTo string
	// Attempts counts the login endpoints contacted.
	Attempts int
}
