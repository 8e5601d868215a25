package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signHS(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestInspectUnverifiedReadsClaims(t *testing.T) {
	in, err := NewInspector(Config{})
	if err != nil {
		t.Fatalf("new inspector: %v", err)
	}
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signHS(t, []byte("whatever"), jwt.MapClaims{
		"id":    float64(12),
		"email": "mod@example.com",
		"type":  "MODERATOR",
		"exp":   exp.Unix(),
	})

	c, err := in.Inspect(tok)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if c.UserID != "12" || c.Email != "mod@example.com" || c.Type != "MODERATOR" {
		t.Fatalf("unexpected claims: %+v", c)
	}
	if !c.ExpiresAt.Equal(exp) {
		t.Fatalf("expected exp %v, got %v", exp, c.ExpiresAt)
	}
}

func TestInspectOpaqueToken(t *testing.T) {
	in, _ := NewInspector(Config{})
	for _, tok := range []string{"", "opaque-token", "a.b", "a.b.c"} {
		if _, err := in.Inspect(tok); !errors.Is(err, ErrNotJWT) {
			t.Fatalf("Inspect(%q) expected ErrNotJWT, got %v", tok, err)
		}
	}
}

func TestInspectHS256Verification(t *testing.T) {
	key := []byte("shared-secret")
	in, err := NewInspector(Config{SigningMethod: MethodHS256, Key: key, Issuer: "skv"})
	if err != nil {
		t.Fatalf("new inspector: %v", err)
	}

	good := signHS(t, key, jwt.MapClaims{"sub": "u1", "iss": "skv", "exp": time.Now().Add(time.Minute).Unix()})
	c, err := in.Inspect(good)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if c.Subject != "u1" || c.UserID != "u1" {
		t.Fatalf("unexpected claims: %+v", c)
	}

	forged := signHS(t, []byte("other"), jwt.MapClaims{"sub": "u1", "iss": "skv"})
	if _, err := in.Inspect(forged); !errors.Is(err, ErrTokenRejected) {
		t.Fatalf("expected ErrTokenRejected for bad signature, got %v", err)
	}

	expired := signHS(t, key, jwt.MapClaims{"sub": "u1", "iss": "skv", "exp": time.Now().Add(-time.Minute).Unix()})
	if _, err := in.Inspect(expired); !errors.Is(err, ErrTokenRejected) {
		t.Fatalf("expected ErrTokenRejected for expired token, got %v", err)
	}

	wrongIssuer := signHS(t, key, jwt.MapClaims{"sub": "u1", "iss": "elsewhere"})
	if _, err := in.Inspect(wrongIssuer); !errors.Is(err, ErrTokenRejected) {
		t.Fatalf("expected ErrTokenRejected for wrong issuer, got %v", err)
	}
}

func TestInspectEd25519Verification(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	in, err := NewInspector(Config{SigningMethod: MethodEd25519, Key: pub})
	if err != nil {
		t.Fatalf("new inspector: %v", err)
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{"sub": "u2"}).SignedString(priv)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := in.Inspect(tok); err != nil {
		t.Fatalf("inspect: %v", err)
	}

	hs := signHS(t, pub, jwt.MapClaims{"sub": "u2"})
	if _, err := in.Inspect(hs); !errors.Is(err, ErrTokenRejected) {
		t.Fatalf("expected algorithm mismatch to be rejected, got %v", err)
	}
}

func TestNewInspectorValidation(t *testing.T) {
	cases := []Config{
		{SigningMethod: MethodHS256},
		{SigningMethod: MethodEd25519, Key: []byte("short")},
		{SigningMethod: "rs256", Key: []byte("k")},
		{Leeway: -time.Second},
	}
	for _, cfg := range cases {
		if _, err := NewInspector(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}
