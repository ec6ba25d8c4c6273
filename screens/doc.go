// Package screens holds per-screen view-models for ledger front-ends. Each
// form owns its message; nothing is reported through a shared error channel.
// Submissions are de-duplicated per form: a second Submit while one is
// running returns ErrBusy without touching the network.
package screens
