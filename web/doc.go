// Package web is the browser front of the staff console: the login,
// activation and dashboard pages, plus /metrics and /healthz.
//
// Routes live under /{locale} and /{locale}/mobile. Each browser gets a
// slot cookie that selects its engine session. Pages are server rendered
// from embedded templates, so the forms work without JavaScript.
//
// # Architecture boundaries
//
// Handlers translate form posts into Engine and console.Client calls and
// map their errors to catalogue messages. Session and permission rules
// stay in the engine and the middleware package.
package web
