package session

import (
	"context"
	"errors"
	"sync"
)

// DefaultKey is the fixed storage key for the session token.
const DefaultKey = "auth"

var (
	// ErrStoreUnavailable wraps backend failures (I/O, Redis).
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrTokenCorrupt is returned when a persisted token cannot be decoded or unsealed.
	ErrTokenCorrupt = errors.New("persisted session token corrupt")
	// ErrEmptyToken is returned by Set for an empty token. Absence is expressed with Clear.
	ErrEmptyToken = errors.New("empty session token")
)

// Store is the durable key-value surface holding the session token.
//
// Get is a pure read. Set overwrites any prior value. Clear is idempotent and
// returns nil when nothing is stored.
type Store interface {
	Get(ctx context.Context) (token string, ok bool, err error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// MemoryStore is a process-local [Store].
type MemoryStore struct {
	mu    sync.RWMutex
	token string
	ok    bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWithToken returns a MemoryStore already holding token, as if it
// had been persisted by an earlier run.
func NewMemoryStoreWithToken(token string) *MemoryStore {
	return &MemoryStore{token: token, ok: token != ""}
}

func (m *MemoryStore) Get(context.Context) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.ok, nil
}

func (m *MemoryStore) Set(_ context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.ok = true
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.ok = false
	return nil
}
