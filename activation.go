package staffauth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/skvrent/staffauth/internal/flows"
)

// OTPLength is the number of cells in an activation code.
const OTPLength = flows.OTPLength

// ActivationState is the step an [Activation] is waiting for.
type ActivationState uint8

const (
	AwaitingOTP ActivationState = iota
	AwaitingPassword
	Done
)

func (s ActivationState) String() string {
	switch s {
	case AwaitingOTP:
		return "awaiting_otp"
	case AwaitingPassword:
		return "awaiting_password"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

/*
====================================
OTP INPUT
====================================
*/

// OTPInput models the four single-digit code cells and the focused cell.
// The zero value is an empty input focused on the first cell.
type OTPInput struct {
	cells [OTPLength]string
	focus int
}

// Enter types value into cell i. Only the last character is kept, values
// containing a non-digit are ignored, and a typed digit moves focus to the
// next cell. An empty value clears the cell.
func (in *OTPInput) Enter(i int, value string) {
	if i < 0 || i >= OTPLength {
		return
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return
		}
	}

	last := ""
	if value != "" {
		last = value[len(value)-1:]
	}
	in.cells[i] = last
	if last != "" && i < OTPLength-1 {
		in.focus = i + 1
	}
}

// Backspace handles the backspace key on cell i: a filled cell is
// cleared, an empty one moves focus back.
func (in *OTPInput) Backspace(i int) {
	if i < 0 || i >= OTPLength {
		return
	}
	if in.cells[i] != "" {
		in.cells[i] = ""
		return
	}
	if i > 0 {
		in.focus = i - 1
	}
}

// Paste spreads code over the cells from the first one, as typing each
// character would.
func (in *OTPInput) Paste(code string) {
	in.Reset()
	for i, r := range strings.TrimSpace(code) {
		if i >= OTPLength {
			break
		}
		in.Enter(i, string(r))
	}
}

// Reset clears every cell.
func (in *OTPInput) Reset() {
	*in = OTPInput{}
}

// Cell returns the content of cell i.
func (in *OTPInput) Cell(i int) string {
	if i < 0 || i >= OTPLength {
		return ""
	}
	return in.cells[i]
}

// Focus returns the focused cell index.
func (in *OTPInput) Focus() int {
	return in.focus
}

// Code concatenates the cells.
func (in *OTPInput) Code() string {
	return strings.Join(in.cells[:], "")
}

// WellFormed reports whether all cells hold a digit.
func (in *OTPInput) WellFormed() bool {
	return flows.ValidOTP(in.Code())
}

/*
====================================
ACTIVATION
====================================
*/

// Activation is one first-login attempt for an email address. It moves
// AwaitingOTP -> AwaitingPassword -> Done; Done is terminal.
//
// Activation is safe for concurrent use. Code edits go through
// EnterDigit, Backspace and PasteCode. A submission made while another one
// is running returns ErrRequestInFlight.
type Activation struct {
	engine *Engine
	email  string
	ctx    activationContext

	mu         sync.Mutex
	state      ActivationState
	input      OTPInput
	otp        string
	redirectAt time.Time
	redirectTo string
	session    *Session
}

// activationContext pins the values read from the starting context so
// that later submissions redirect consistently.
type activationContext struct {
	slot   string
	locale string
	mobile bool
}

func (c activationContext) apply(ctx context.Context) context.Context {
	if slotFromContext(ctx) == "" {
		ctx = WithSlot(ctx, c.slot)
	}
	if localeFromContext(ctx) == "" {
		ctx = WithLocale(ctx, c.locale)
	}
	if !mobileFromContext(ctx) && c.mobile {
		ctx = WithMobile(ctx, true)
	}
	return ctx
}

// RequestActivation asks the backend to send a one-time code to email and
// returns the code entry route for it.
func (e *Engine) RequestActivation(ctx context.Context, email string) (string, error) {
	if e == nil || e.web == nil {
		return "", ErrEngineNotReady
	}
	release, err := e.acquire(ctx, "activation_request")
	if err != nil {
		return "", err
	}
	defer release()

	email = strings.TrimSpace(email)
	err = flows.RunRequestActivation(ctx, email, e.activationDeps(ctx))
	if err != nil {
		return "", err
	}
	e.logger.InfoContext(ctx, "activation code requested", "slot", e.slot(ctx), "request_id", requestIDFromContext(ctx))
	return VerifyOTPPath(localeFromContext(ctx), mobileFromContext(ctx), email), nil
}

// StartActivation begins code entry for email, in state AwaitingOTP.
func (e *Engine) StartActivation(ctx context.Context, email string) (*Activation, error) {
	if e == nil || e.web == nil {
		return nil, ErrEngineNotReady
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	return &Activation{
		engine: e,
		email:  email,
		ctx: activationContext{
			slot:   e.slot(ctx),
			locale: localeFromContext(ctx),
			mobile: mobileFromContext(ctx),
		},
		state: AwaitingOTP,
	}, nil
}

// ResumeActivation rebuilds an activation in AwaitingPassword for a code
// that an earlier request already accepted, as a stateless web form does
// between its two steps. The backend still validates the code when the
// password is set.
func (e *Engine) ResumeActivation(ctx context.Context, email, otp string) (*Activation, error) {
	a, err := e.StartActivation(ctx, email)
	if err != nil {
		return nil, err
	}
	if !flows.ValidOTP(otp) {
		return nil, ErrOTPMalformed
	}
	a.input.Paste(otp)
	a.otp = otp
	a.state = AwaitingPassword
	return a, nil
}

// Email returns the address being activated.
func (a *Activation) Email() string { return a.email }

// State returns the current step.
func (a *Activation) State() ActivationState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Input returns a copy of the code cells.
func (a *Activation) Input() OTPInput {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.input
}

// EnterDigit types value into cell i, see [OTPInput.Enter]. Edits are
// ignored once past AwaitingOTP.
func (a *Activation) EnterDigit(i int, value string) {
	a.editInput(func(in *OTPInput) { in.Enter(i, value) })
}

// Backspace presses backspace on cell i, see [OTPInput.Backspace].
func (a *Activation) Backspace(i int) {
	a.editInput(func(in *OTPInput) { in.Backspace(i) })
}

// PasteCode spreads code over the cells, see [OTPInput.Paste].
func (a *Activation) PasteCode(code string) {
	a.editInput(func(in *OTPInput) { in.Paste(code) })
}

// editInput blocks while a submission holds the activation.
func (a *Activation) editInput(edit func(*OTPInput)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != AwaitingOTP {
		return
	}
	edit(&a.input)
}

// OTP returns the accepted code once past AwaitingOTP.
func (a *Activation) OTP() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.otp
}

// RedirectTo returns where to send the browser once Done.
func (a *Activation) RedirectTo() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.redirectTo
}

// RedirectAt returns when the redirect becomes due.
func (a *Activation) RedirectAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.redirectAt
}

// RedirectDue reports whether the activation is Done and its delay has
// elapsed at now.
func (a *Activation) RedirectDue(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == Done && !now.Before(a.redirectAt)
}

// Session returns the session adopted on completion, if AutoLogin
// applied.
func (a *Activation) Session() *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.Clone()
}

// SubmitOTP submits the code held in the input cells.
func (a *Activation) SubmitOTP(ctx context.Context) error {
	if !a.mu.TryLock() {
		a.engine.metricInc(MetricRequestInFlight)
		return ErrRequestInFlight
	}
	defer a.mu.Unlock()

	if a.state != AwaitingOTP {
		return ErrActivationState
	}
	code := a.input.Code()
	if !flows.ValidOTP(code) {
		a.engine.metricInc(MetricOTPVerifyFailure)
		return ErrOTPMalformed
	}

	ctx = a.ctx.apply(ctx)
	release, err := a.engine.acquire(ctx, "otp_verify")
	if err != nil {
		return err
	}
	defer release()

	if err := flows.RunVerifyOTP(ctx, a.email, code, a.engine.activationDeps(ctx)); err != nil {
		return err
	}
	a.otp = code
	a.state = AwaitingPassword
	return nil
}

// SubmitPassword sets the account password. Mismatched or empty passwords
// fail locally. On success the activation is Done and the browser should
// be sent to RedirectTo after the configured delay.
func (a *Activation) SubmitPassword(ctx context.Context, password, confirm string) error {
	if !a.mu.TryLock() {
		a.engine.metricInc(MetricRequestInFlight)
		return ErrRequestInFlight
	}
	defer a.mu.Unlock()

	if a.state != AwaitingPassword {
		return ErrActivationState
	}

	ctx = a.ctx.apply(ctx)
	release, err := a.engine.acquire(ctx, "password_set")
	if err != nil {
		return err
	}
	defer release()

	grant, err := flows.RunSetPassword(ctx, a.email, a.otp, password, confirm, a.engine.activationDeps(ctx))
	if err != nil {
		return err
	}

	cfg := a.engine.config.Activation
	a.state = Done
	a.redirectAt = time.Now().Add(cfg.RedirectDelay)
	a.redirectTo = LoginPath(a.ctx.locale, a.ctx.mobile)

	if cfg.AutoLogin && grant != nil {
		a.autoLogin(ctx, grant)
	}
	return nil
}

// autoLogin adopts the grant only when its type names a known role. The
// password is already set, so failures here are logged, not returned.
func (a *Activation) autoLogin(ctx context.Context, grant *flows.AuthGrant) {
	role, err := ParseRole(grant.Type)
	if err != nil {
		a.engine.logger.InfoContext(ctx, "activation auto-login skipped: unknown user type", "slot", a.ctx.slot)
		return
	}
	sess, err := a.engine.adopt(ctx, role, grant)
	if err != nil {
		a.engine.logger.WarnContext(ctx, "activation auto-login failed", "slot", a.ctx.slot, "error", err)
		return
	}
	a.session = sess
	a.redirectTo = DashboardPath(a.ctx.locale, a.ctx.mobile, role)
}

func (e *Engine) activationDeps(ctx context.Context) flows.ActivationDeps {
	backend := e.Backend(ctx)
	requestID := requestIDFromContext(ctx)

	deps := flows.ActivationDeps{
		RequestOTP: func(ctx context.Context, email string) error {
			return backend.RequestFirstLogin(ctx, email, requestID)
		},
		SetPassword: func(ctx context.Context, email, otp, password string) (*flows.AuthGrant, error) {
			payload, err := backend.SetFirstLoginPassword(ctx, email, otp, password, requestID)
			if err != nil || payload == nil {
				return nil, err
			}
			return &flows.AuthGrant{User: payload.User, Token: payload.Token, Type: payload.UserType}, nil
		},
		MetricInc: e.metricFunc(),
		EmitAudit: e.auditFunc(),
		Metrics: flows.ActivationMetrics{
			ActivationRequest:        int(MetricActivationRequest),
			ActivationRequestFailure: int(MetricActivationRequestFailure),
			OTPVerify:                int(MetricOTPVerify),
			OTPVerifyFailure:         int(MetricOTPVerifyFailure),
			PasswordSet:              int(MetricPasswordSet),
			PasswordSetFailure:       int(MetricPasswordSetFailure),
		},
		Events: flows.ActivationEvents{
			ActivationRequest: auditEventActivationRequest,
			OTPVerify:         auditEventOTPVerify,
			PasswordSet:       auditEventPasswordSet,
		},
		Errors: flows.ActivationErrors{
			EngineNotReady:   ErrEngineNotReady,
			EmailRequired:    ErrEmailRequired,
			OTPMalformed:     ErrOTPMalformed,
			PasswordRequired: ErrPasswordRequired,
			PasswordMismatch: ErrPasswordMismatch,
		},
	}
	if e.config.Activation.VerifyOTPRemotely {
		deps.VerifyOTP = func(ctx context.Context, email, otp string) error {
			return backend.VerifyFirstLoginOTP(ctx, email, otp, requestID)
		}
	}
	return deps
}
