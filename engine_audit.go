package staffauth

import (
	"context"
	"errors"
	"time"

	"github.com/skvrent/staffauth/internal/api"
)

const (
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventLoginRoleFallback = "login_role_fallback"
	auditEventLogout            = "logout"
	auditEventActivationRequest = "activation_request"
	auditEventOTPVerify         = "otp_verify"
	auditEventPasswordSet       = "password_set"
	auditEventRequestInFlight   = "request_in_flight"
	auditEventLoginThrottled    = "login_throttled"
)

// AuditErrorCode is the stable error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrPermissionDenied   AuditErrorCode = "permission_denied"
	auditErrRejected           AuditErrorCode = "backend_rejected"
	auditErrTransport          AuditErrorCode = "transport"
	auditErrValidation         AuditErrorCode = "validation"
	auditErrSessionStore       AuditErrorCode = "session_store_unavailable"
	auditErrTokenRejected      AuditErrorCode = "token_rejected"
	auditErrInFlight           AuditErrorCode = "request_in_flight"
	auditErrThrottled          AuditErrorCode = "throttled"
	auditErrCancelled          AuditErrorCode = "cancelled"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	role string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Role:      role,
		Slot:      e.slot(ctx),
		RequestID: requestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var apiErr *api.Error
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrPermissionDenied):
		return auditErrPermissionDenied
	case errors.As(err, &apiErr):
		return auditErrRejected
	case errors.Is(err, ErrTransport):
		return auditErrTransport
	case errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrPasswordRequired),
		errors.Is(err, ErrOTPMalformed),
		errors.Is(err, ErrEmailRequired):
		return auditErrValidation
	case errors.Is(err, ErrSessionStoreUnavailable):
		return auditErrSessionStore
	case errors.Is(err, ErrTokenRejected):
		return auditErrTokenRejected
	case errors.Is(err, ErrRequestInFlight):
		return auditErrInFlight
	case errors.Is(err, ErrLoginThrottled):
		return auditErrThrottled
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return auditErrCancelled
	default:
		return auditErrInternal
	}
}
