package flows

import (
	"context"
	"errors"
	"testing"
)

var (
	errEmailRequired    = errors.New("email required")
	errOTPMalformed     = errors.New("otp malformed")
	errPasswordRequired = errors.New("password required")
	errPasswordMismatch = errors.New("password mismatch")
)

type activationHarness struct {
	requested []string
	verified  []string
	set       []string
	verifyErr error
	setErr    error
	grant     *AuthGrant
}

func (h *activationHarness) deps(remote bool) ActivationDeps {
	d := ActivationDeps{
		RequestOTP: func(_ context.Context, email string) error {
			h.requested = append(h.requested, email)
			return nil
		},
		SetPassword: func(_ context.Context, email, otp, password string) (*AuthGrant, error) {
			h.set = append(h.set, email+"|"+otp+"|"+password)
			return h.grant, h.setErr
		},
		Errors: ActivationErrors{
			EngineNotReady:   errNotReady,
			EmailRequired:    errEmailRequired,
			OTPMalformed:     errOTPMalformed,
			PasswordRequired: errPasswordRequired,
			PasswordMismatch: errPasswordMismatch,
		},
	}
	if remote {
		d.VerifyOTP = func(_ context.Context, email, otp string) error {
			h.verified = append(h.verified, otp)
			return h.verifyErr
		}
	}
	return d
}

func TestValidOTP(t *testing.T) {
	tests := map[string]bool{
		"0000":  true,
		"1234":  true,
		"123":   false,
		"12345": false,
		"12a4":  false,
		"١٢٣٤":  false,
		"":      false,
	}
	for code, want := range tests {
		if got := ValidOTP(code); got != want {
			t.Fatalf("ValidOTP(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestRunRequestActivation(t *testing.T) {
	h := &activationHarness{}
	if err := RunRequestActivation(context.Background(), "  new@example.com ", h.deps(false)); err != nil {
		t.Fatalf("request: %v", err)
	}
	if len(h.requested) != 1 || h.requested[0] != "new@example.com" {
		t.Fatalf("unexpected requests: %v", h.requested)
	}
	if err := RunRequestActivation(context.Background(), " ", h.deps(false)); !errors.Is(err, errEmailRequired) {
		t.Fatalf("expected email required, got %v", err)
	}
}

func TestRunVerifyOTPLocal(t *testing.T) {
	h := &activationHarness{}
	if err := RunVerifyOTP(context.Background(), "a@example.com", "4821", h.deps(false)); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := RunVerifyOTP(context.Background(), "a@example.com", "48", h.deps(false)); !errors.Is(err, errOTPMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
}

func TestRunVerifyOTPRemoteHasNoSentinel(t *testing.T) {
	h := &activationHarness{verifyErr: errors.New("invalid otp")}

	err := RunVerifyOTP(context.Background(), "a@example.com", "1234", h.deps(true))
	if err == nil {
		t.Fatal("1234 must be rejected when the backend rejects it")
	}
	if len(h.verified) != 1 || h.verified[0] != "1234" {
		t.Fatalf("expected backend consulted, got %v", h.verified)
	}
}

func TestRunSetPasswordValidatesBeforeNetwork(t *testing.T) {
	h := &activationHarness{}
	deps := h.deps(false)

	cases := []struct {
		otp, pw, confirm string
		want             error
	}{
		{"12", "pw", "pw", errOTPMalformed},
		{"1111", "", "", errPasswordRequired},
		{"1111", "secret1", "secret2", errPasswordMismatch},
		{"1111", "", "secret2", errPasswordMismatch},
		{"1111", "secret1", "", errPasswordMismatch},
	}
	for _, tc := range cases {
		if _, err := RunSetPassword(context.Background(), "a@example.com", tc.otp, tc.pw, tc.confirm, deps); !errors.Is(err, tc.want) {
			t.Fatalf("expected %v, got %v", tc.want, err)
		}
	}
	if len(h.set) != 0 {
		t.Fatalf("expected no network calls, got %v", h.set)
	}
}

func TestRunSetPasswordSubmits(t *testing.T) {
	h := &activationHarness{grant: &AuthGrant{Token: "t"}}

	grant, err := RunSetPassword(context.Background(), "a@example.com", "5555", "secret", "secret", h.deps(false))
	if err != nil {
		t.Fatalf("set password: %v", err)
	}
	if grant == nil || grant.Token != "t" {
		t.Fatalf("expected grant passed through, got %+v", grant)
	}
	if len(h.set) != 1 || h.set[0] != "a@example.com|5555|secret" {
		t.Fatalf("unexpected submission: %v", h.set)
	}

	h.setErr = errors.New("otp expired")
	if _, err := RunSetPassword(context.Background(), "a@example.com", "5555", "secret", "secret", h.deps(false)); err == nil || err.Error() != "otp expired" {
		t.Fatalf("expected backend error verbatim, got %v", err)
	}
	if len(h.set) != 2 {
		t.Fatalf("expected exactly one call per submission, got %d", len(h.set))
	}
}
