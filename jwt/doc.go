// Package jwt reads the backend's bearer token to learn its subject and
// expiry. Verification is optional: the console receives the token from
// the backend over TLS and only needs its lifetime, but a deployment that
// shares the signing key can require a valid signature.
package jwt
