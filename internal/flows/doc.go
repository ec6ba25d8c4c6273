// Package flows contains pure-function orchestrators for every Client operation
// that touches the session token.
//
// Each flow function (RunBoot, RunLogin, RunSignup, RunChangePassword, ...)
// accepts a typed dependency struct and returns results without side effects
// beyond those dependencies. The root Client builds the dependency sets once
// and owns the status transitions; flows only report outcomes.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the request gateway, the session store,
// metrics and the audit dispatcher. They do NOT own any of these resources.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root ledger package (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
