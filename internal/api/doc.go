// Package api is the HTTP client for the rental platform backend.
//
// Every response is wrapped in a JSON envelope {"data": ..., "message": ...}.
// Non-2xx responses become *Error carrying the server message verbatim so
// that callers can show it to the user unchanged. Transport failures wrap
// ErrTransport.
//
// # What this package must NOT do
//
//   - Retry requests. A failed submission is reported once.
//   - Decide roles. Login returns the raw user; the caller assigns the role
//     from the endpoint that accepted the credentials.
package api
