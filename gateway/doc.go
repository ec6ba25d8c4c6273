// Package gateway is the single path from the client to the remote ledger service.
//
// Every request reads the current token from a [TokenSource] once, attaches it as a
// bearer credential, carries an X-Request-ID, and is bounded by a fixed timeout
// (10s by default). Failures are normalized into one [Error] type whose [Kind] is
// Timeout, Unreachable, ClientStatus (4xx), ServerStatus (5xx), Decode or Canceled.
//
// # Architecture boundaries
//
// The gateway never retries and never mutates the token store. Deciding what a
// failure means for the session (logout, message, retry) is the caller's job.
//
// # What this package must NOT do
//
//   - Import ledger or session (the token source is an interface).
//   - Log token values.
package gateway
