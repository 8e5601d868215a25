// Package middleware adapts the staffauth engine to gin routes.
//
// # Handlers
//
//   - [Bind]: puts the browser slot, locale, mobile flag and request id
//     on the request context.
//   - [RequireSession]: redirects anonymous requests to the login page.
//   - [RequireRole]: keeps each role on its own dashboard.
//   - [GuestOnly]: redirects signed-in staff away from auth pages.
//   - [RequirePermission]: rejects a capability the role lacks.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Session and
// permission decisions are made by the engine.
//
// # What this package must NOT do
//
//   - Call the backend API.
//   - Read or write the session store directly.
//   - Render pages beyond a redirect or a bare status.
package middleware
