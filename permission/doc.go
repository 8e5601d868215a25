// Package permission maps console capabilities to bits and roles to
// 64-bit masks.
//
// The console has a handful of capabilities (view facilities, approve
// providers, create moderators ...), so one Mask64 per role is enough. Bit
// positions are assigned by [Registry.Register] and are stable for the
// lifetime of the process.
//
// # What this package must NOT do
//
//   - Access Redis, the backend, or the network. The backend enforces
//     permissions authoritatively; this is a local pre-check.
//   - Import staffauth or session.
package permission
