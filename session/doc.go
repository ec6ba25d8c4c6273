// Package session persists the client's single session token.
//
// # Backends
//
//   - [MemoryStore] keeps the token in process memory.
//   - [FileStore] keeps it in one file per key, optionally sealed at rest with a
//     passphrase (Argon2id key derivation, XChaCha20-Poly1305).
//   - [RedisStore] keeps it under one Redis key, for clients that share a session
//     across processes.
//
// # Envelope encoding
//
// FileStore writes a small versioned binary envelope (see [Encode]). Decoding never
// panics on arbitrary input; anything unreadable is reported as [ErrTokenCorrupt].
//
// # Architecture boundaries
//
// This package owns storage only. It does NOT validate tokens, talk to the remote
// service, or track authentication status; those belong to the gateway and the
// root Client.
//
// # What this package must NOT do
//
//   - Import ledger, gateway, or jwt (no upward imports).
//   - Log or otherwise expose token values.
package session
