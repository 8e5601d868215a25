// Package console is the data client behind the admin and moderator
// dashboards: user and provider listings, facility approval, moderator
// creation and feedback.
//
// Every call reads the bearer token from the signed-in session and checks
// the role's capability locally first, so a call the role cannot make
// fails with staffauth.ErrPermissionDenied without reaching the backend.
// A 403 from the backend matches the same error. [Describe] turns the
// result of a listing into the panel the dashboard renders.
package console
