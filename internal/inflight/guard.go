// Package inflight rejects a second run of an operation while the first is
// still in progress.
//
// Screens use one Guard each and key it by operation ("submit", "load",
// "delete:<id>"). A rejected call returns ErrBusy immediately and never
// reaches the network.
package inflight

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned by Do when the key is already running.
var ErrBusy = errors.New("operation already in progress")

// Guard tracks running keys. The zero value is ready to use.
type Guard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

// Do runs fn unless key is already running. The key is released when fn
// returns, including on panic.
func (g *Guard) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	if !g.acquire(key) {
		return ErrBusy
	}
	defer g.release(key)
	return fn(ctx)
}

// Busy reports whether key is currently running.
func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[key]
	return ok
}

// Any reports whether any key is running.
func (g *Guard) Any() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.running) > 0
}

func (g *Guard) acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.running[key]; ok {
		return false
	}
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	g.running[key] = struct{}{}
	return true
}

func (g *Guard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, key)
}
