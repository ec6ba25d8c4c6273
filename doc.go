// Package ledger is the session-aware client for the personal-finance ledger
// service.
//
// A [Client] owns the session token lifecycle: it validates a persisted token
// once at startup, exchanges credentials for new tokens, attaches the token to
// every outbound request through the gateway package, and derives the
// three-state [Status] that decides which screens may render ([Client.Navigate]).
//
// Clients are created with [New] and [Builder.Build] and are safe for
// concurrent use afterwards.
//
// # Architecture boundaries
//
// ledger is the public surface. It exposes [Client], [Builder], [Config], the
// domain records ([Transaction], [SignupRequest], ...) and the routing types
// ([Screen], [Decision]). Flow orchestration lives in internal/flows, request
// plumbing in gateway, token persistence in session.
//
// # What this package must NOT do
//
//   - Render anything. Screen view-models live in the screens package.
//   - Retry requests or refresh tokens. A rejected token means logged out.
//   - Log or export the token value.
package ledger
