// Package password hashes and verifies account passwords with Argon2id.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The ledger client never hashes passwords itself; the remote service does.
// This package backs the in-process fake service used by tests and the
// fake-remote example, so stored credentials there are handled the same way a
// real service would handle them.
package password
