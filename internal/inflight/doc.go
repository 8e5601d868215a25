// Package inflight allows one outstanding request per key.
//
// A key is "slot:action", so a second login submitted from the same browser
// while the first is still probing is refused instead of queued.
//
// Two implementations exist: an in-process map and a Redis lease
// (SET NX PX, released with a compare-and-delete script) for deployments
// running several web replicas behind one cookie domain.
//
// # What this package must NOT do
//
//   - Wait for a held key. Acquire fails fast with ErrBusy.
//   - Be imported outside the staffauth module.
package inflight
