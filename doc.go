// Package staffauth signs SKV Rent staff (admins and moderators) into the
// console and activates first-time accounts.
//
// The Engine consumes the platform's REST backend: it probes the ADMIN and
// then the MODERATOR login endpoint with the same credentials, keeps the
// accepted identity in an injected session store, and drives the
// first-login activation (request code, verify code, set password).
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// staffauth is the public surface. It exposes [Engine], [Builder], [Config],
// [Activation] and value types. Flow orchestration, the HTTP client and the
// in-flight guard live under internal/ and are never exported. Sessions
// are stored through the session package so that the web front and the CLI
// can pick their own backing store.
//
// # What this package must NOT do
//
//   - Infer a role from user input or from the backend's "type" field at
//     login. The role is the one whose endpoint accepted the credentials.
//   - Retry a failed backend call. Every submission is sent exactly once.
//   - Log passwords, codes or tokens.
package staffauth
