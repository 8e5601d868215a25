package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects how Inspect verifies signatures.
type SigningMethod string

const (
	// MethodNone reads claims without verifying the signature.
	MethodNone SigningMethod = ""
	// MethodHS256 verifies HMAC-SHA256 with a shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 verifies EdDSA with a public key.
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrNotJWT is returned for opaque tokens.
	ErrNotJWT = errors.New("token is not a JWT")
	// ErrTokenRejected wraps signature and claim validation failures.
	ErrTokenRejected = errors.New("token rejected")
)

// Config configures an Inspector.
type Config struct {
	SigningMethod SigningMethod
	// Key is the HS256 secret or the Ed25519 public key (raw or PEM).
	Key    []byte
	Issuer string
	Leeway time.Duration
}

// Claims is the subset of backend token claims the console uses.
type Claims struct {
	Subject   string
	UserID    string
	Email     string
	Type      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Inspector extracts claims from backend tokens. Safe for concurrent use.
type Inspector struct {
	config    Config
	verifyKey any
	parser    *jwt.Parser
}

// NewInspector validates cfg and returns an Inspector.
func NewInspector(cfg Config) (*Inspector, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 5*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	in := &Inspector{config: cfg}
	options := []jwt.ParserOption{}

	switch cfg.SigningMethod {
	case MethodNone:
		in.parser = jwt.NewParser()
		return in, nil
	case MethodHS256:
		if len(cfg.Key) == 0 {
			return nil, errors.New("hs256 requires a key")
		}
		in.verifyKey = cfg.Key
		options = append(options, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	case MethodEd25519:
		key, err := parseEdPublicKey(cfg.Key)
		if err != nil {
			return nil, err
		}
		in.verifyKey = key
		options = append(options, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}

	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	in.parser = jwt.NewParser(options...)
	return in, nil
}

// Verifies reports whether Inspect checks signatures.
func (in *Inspector) Verifies() bool {
	return in.config.SigningMethod != MethodNone
}

// Inspect parses token. Opaque tokens return ErrNotJWT; with verification
// enabled, a bad signature or expired token returns ErrTokenRejected.
func (in *Inspector) Inspect(token string) (*Claims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrNotJWT
	}

	mc := jwt.MapClaims{}
	if !in.Verifies() {
		if _, _, err := in.parser.ParseUnverified(token, mc); err != nil {
			return nil, ErrNotJWT
		}
		return claimsFrom(mc), nil
	}

	_, err := in.parser.ParseWithClaims(token, mc, func(*jwt.Token) (any, error) {
		return in.verifyKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrNotJWT
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenRejected, err)
	}
	return claimsFrom(mc), nil
}

func claimsFrom(mc jwt.MapClaims) *Claims {
	c := &Claims{}
	c.Subject, _ = mc.GetSubject()
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	c.Email, _ = mc["email"].(string)
	c.Type, _ = mc["type"].(string)
	switch id := mc["id"].(type) {
	case string:
		c.UserID = id
	case float64:
		c.UserID = fmt.Sprintf("%.0f", id)
	}
	if c.UserID == "" {
		c.UserID = c.Subject
	}
	return c
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
