// Package limiters throttles repeated failed staff logins per email.
//
// # Limiters
//
//   - [RedisLoginLimiter]: shared across web instances.
//   - [MemoryLoginLimiter]: process-local, for the CLI and single-node setups.
//
// A nil *RedisLoginLimiter or *MemoryLoginLimiter is disabled: every method
// returns nil.
//
// # Architecture boundaries
//
// Limiters count failures and answer whether an email is throttled. The
// engine decides when to count and how to report a throttled login.
//
// # What this package must NOT do
//
//   - Import staffauth or any sibling internal package.
//   - Count anything other than rejected credentials.
package limiters
