// Package prometheus renders staffauth engine metrics in the Prometheus
// text exposition format.
//
// [Exporter.Handler] serves every counter as staffauth_*_total and the
// login latency histogram as staffauth_login_latency_seconds. The web
// console mounts it at /metrics.
//
// # What this package must NOT do
//
//   - Register collectors in a global registry.
//   - Mutate engine state.
package prometheus
