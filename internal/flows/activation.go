package flows

import (
	"context"
	"strings"
)

// OTPLength is the number of digits in an activation code.
const OTPLength = 4

// ActivationMetrics carries metric IDs needed by the activation flows.
type ActivationMetrics struct {
	ActivationRequest        int
	ActivationRequestFailure int
	OTPVerify                int
	OTPVerifyFailure         int
	PasswordSet              int
	PasswordSetFailure       int
}

// ActivationEvents carries audit event names used by the activation flows.
type ActivationEvents struct {
	ActivationRequest string
	OTPVerify         string
	PasswordSet       string
}

// ActivationErrors carries host-level sentinel errors used by the activation flows.
type ActivationErrors struct {
	EngineNotReady   error
	EmailRequired    error
	OTPMalformed     error
	PasswordRequired error
	PasswordMismatch error
}

// ActivationDeps captures first-login dependencies.
type ActivationDeps struct {
	RequestOTP func(ctx context.Context, email string) error
	// VerifyOTP is optional. When nil, a well-formed code is accepted
	// locally and checked by the backend at set-password time.
	VerifyOTP   func(ctx context.Context, email, otp string) error
	SetPassword func(ctx context.Context, email, otp, password string) (*AuthGrant, error)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics ActivationMetrics
	Events  ActivationEvents
	Errors  ActivationErrors
}

func (d *ActivationDeps) defaults() {
	if d.MetricInc == nil {
		d.MetricInc = noopMetric
	}
	if d.EmitAudit == nil {
		d.EmitAudit = noopAudit
	}
}

// ValidOTP reports whether code is exactly OTPLength ASCII digits.
func ValidOTP(code string) bool {
	if len(code) != OTPLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// RunRequestActivation asks the backend to issue a one-time code.
func RunRequestActivation(ctx context.Context, email string, deps ActivationDeps) error {
	deps.defaults()
	if deps.RequestOTP == nil {
		return deps.Errors.EngineNotReady
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return deps.Errors.EmailRequired
	}

	if err := deps.RequestOTP(ctx, email); err != nil {
		deps.MetricInc(deps.Metrics.ActivationRequestFailure)
		deps.EmitAudit(ctx, deps.Events.ActivationRequest, false, "", "", err, emailMeta(email))
		return err
	}
	deps.MetricInc(deps.Metrics.ActivationRequest)
	deps.EmitAudit(ctx, deps.Events.ActivationRequest, true, "", "", nil, emailMeta(email))
	return nil
}

// RunVerifyOTP validates the code shape and, when configured, asks the
// backend to confirm it.
func RunVerifyOTP(ctx context.Context, email, otp string, deps ActivationDeps) error {
	deps.defaults()
	if strings.TrimSpace(email) == "" {
		return deps.Errors.EmailRequired
	}
	if !ValidOTP(otp) {
		deps.MetricInc(deps.Metrics.OTPVerifyFailure)
		return deps.Errors.OTPMalformed
	}
	if deps.VerifyOTP == nil {
		return nil
	}

	if err := deps.VerifyOTP(ctx, email, otp); err != nil {
		deps.MetricInc(deps.Metrics.OTPVerifyFailure)
		deps.EmitAudit(ctx, deps.Events.OTPVerify, false, "", "", err, emailMeta(email))
		return err
	}
	deps.MetricInc(deps.Metrics.OTPVerify)
	deps.EmitAudit(ctx, deps.Events.OTPVerify, true, "", "", nil, emailMeta(email))
	return nil
}

// RunSetPassword checks the password pair locally and submits it with the
// code. The grant is nil unless the backend signed the user in.
func RunSetPassword(ctx context.Context, email, otp, password, confirm string, deps ActivationDeps) (*AuthGrant, error) {
	deps.defaults()
	if deps.SetPassword == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if strings.TrimSpace(email) == "" {
		return nil, deps.Errors.EmailRequired
	}
	if !ValidOTP(otp) {
		return nil, deps.Errors.OTPMalformed
	}
	if password != confirm {
		return nil, deps.Errors.PasswordMismatch
	}
	if password == "" {
		return nil, deps.Errors.PasswordRequired
	}

	grant, err := deps.SetPassword(ctx, email, otp, password)
	if err != nil {
		deps.MetricInc(deps.Metrics.PasswordSetFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordSet, false, "", "", err, emailMeta(email))
		return nil, err
	}
	deps.MetricInc(deps.Metrics.PasswordSet)
	deps.EmitAudit(ctx, deps.Events.PasswordSet, true, "", "", nil, emailMeta(email))
	return grant, nil
}

func emailMeta(email string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"email": email}
	}
}
