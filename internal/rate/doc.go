// Package rate provides Redis-backed fixed-window counters used by the fake
// ledger service to throttle login attempts and password-reset requests.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - rl:login: failed logins per email
//   - rl:reset: password-reset requests per email
//
// # What this package must NOT do
//
//   - Decide HTTP status codes (the caller maps ErrRateLimited).
//   - Be imported outside the ledger module.
package rate
