package staffauth

import (
	"errors"

	"github.com/skvrent/staffauth/internal/api"
	"github.com/skvrent/staffauth/internal/limiters"
	"github.com/skvrent/staffauth/session"
)

var (
	// ErrTransport wraps network and response decoding failures.
	ErrTransport = api.ErrTransport
	// ErrPermissionDenied is a 403 from the backend or a capability the
	// signed-in role lacks.
	ErrPermissionDenied = api.ErrPermissionDenied
	// ErrInvalidCredentials is returned when no role endpoint accepted the
	// credentials. Wrong password and wrong role are indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginThrottled is returned without contacting the backend once an
	// email collected Config.Login.MaxFailures rejections.
	ErrLoginThrottled = limiters.ErrLoginThrottled
	// ErrPasswordMismatch is returned when password and confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrPasswordRequired is returned for an empty new password.
	ErrPasswordRequired = errors.New("password required")
	// ErrOTPMalformed is returned when the code is not four digits.
	ErrOTPMalformed = errors.New("otp must be 4 digits")
	// ErrEmailRequired is returned when an activation step has no email.
	ErrEmailRequired = errors.New("email required")
	// ErrActivationState is returned for a step that the activation's
	// current state does not allow.
	ErrActivationState = errors.New("activation step not allowed in current state")
	// ErrRequestInFlight is returned when the same action is already being
	// submitted for the slot.
	ErrRequestInFlight = errors.New("request already in flight")
	// ErrNoSession is returned when the slot holds no live session.
	ErrNoSession = errors.New("no session")
	// ErrEngineNotReady is returned by a zero or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrSessionStoreUnavailable wraps session store failures.
	ErrSessionStoreUnavailable = errors.New("session store unavailable")
	// ErrTokenRejected is returned when the backend token fails inspection.
	ErrTokenRejected = errors.New("backend token rejected")
	// ErrUnknownRole is returned by ParseRole.
	ErrUnknownRole = session.ErrUnknownRole
	// ErrUnknownPermission is returned by Can for an unregistered capability.
	ErrUnknownPermission = errors.New("unknown permission")
)

// APIError is a non-2xx backend response carrying the server message.
type APIError = api.Error

// UserMessage returns the backend's message carried by err, or fallback
// when err carries none.
func UserMessage(err error, fallback string) string {
	if msg := api.MessageOf(err); msg != "" {
		return msg
	}
	return fallback
}
