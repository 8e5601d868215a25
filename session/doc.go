// Package session holds the signed-in staff identity: the [Session] model,
// the closed [Role] type, a compact binary encoding, and the [Store]
// implementations (memory, file, Redis) the engine writes through.
//
// # Architecture boundaries
//
// This package owns persistence of the session and nothing else. It does NOT
// talk to the backend, decode tokens, or decide which role a user has:
// a Session is only ever built by the engine after a role endpoint accepted
// the credentials.
//
// # What this package must NOT do
//
//   - Import staffauth, jwt, or permission (no upward imports).
//   - Store passwords or one-time codes.
//   - Fabricate a Role from free-form input; [ParseRole] rejects unknown names.
package session
