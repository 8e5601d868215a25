// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunRequestActivation, RunVerifyOTP,
// RunSetPassword, RunLogout, RunCurrent) accepts a typed dependency struct
// and returns results without side-effects beyond those dependencies. The
// backend client, session store, audit dispatcher and metrics are all
// passed in as closures, so flows can be tested against fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the backend, the session store, audit
// and metrics. They do NOT own any of these resources; ownership stays with
// the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import staffauth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency closures.
package flows
