// Package jwt reads and issues the JWTs the ledger service uses as session tokens.
//
// The client treats session tokens as opaque. When a token happens to be a JWT,
// [Peek] exposes its registered claims without verifying the signature, for
// display and logging only; trust always comes from the remote validation call.
//
// [Manager] signs and verifies HS256 tokens. It backs the in-process fake remote
// service used by tests and the local example server.
package jwt
