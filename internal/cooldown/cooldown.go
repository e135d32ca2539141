// Package cooldown implements a timestamp-windowed rate limiter shared by
// the shop, job, and vehicle commands.
package cooldown

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store persists cooldown expiries. The in-process MemoryStore suffices for
// single-instance deployments; the storage layer's durable implementation
// is for cooldowns that must survive restarts or span instances. Stores are
// always passed explicitly, never held as package state.
type Store interface {
	// Expiry returns the recorded expiry for a key and whether one exists.
	Expiry(ctx context.Context, key string) (time.Time, bool, error)
	// SetExpiry records a new expiry for a key, replacing any prior one.
	SetExpiry(ctx context.Context, key string, expiresAt time.Time) error
}

// Gate checks and arms cooldowns against a store.
type Gate struct {
	store Store
	clock func() time.Time
}

// New creates a gate. A nil clock defaults to time.Now.
func New(store Store, clock func() time.Time) *Gate {
	if clock == nil {
		clock = time.Now
	}
	return &Gate{store: store, clock: clock}
}

// CheckAndArm reports whether the identity may act. When no expiry is
// recorded or the recorded one has passed, a new expiry at now+window is
// armed and 0 is returned: the action is permitted. Otherwise the positive
// remaining duration is returned and the existing expiry is left alone, so
// repeated checks during a cooldown never extend it.
func (g *Gate) CheckAndArm(ctx context.Context, identity string, window time.Duration) (time.Duration, error) {
	now := g.clock()
	expiresAt, found, err := g.store.Expiry(ctx, identity)
	if err != nil {
		return 0, fmt.Errorf("read cooldown %s: %w", identity, err)
	}
	if found && expiresAt.After(now) {
		return expiresAt.Sub(now), nil
	}
	if err := g.store.SetExpiry(ctx, identity, now.Add(window)); err != nil {
		return 0, fmt.Errorf("arm cooldown %s: %w", identity, err)
	}
	return 0, nil
}

// Peek returns the remaining cooldown without arming a new one.
func (g *Gate) Peek(ctx context.Context, identity string) (time.Duration, error) {
	now := g.clock()
	expiresAt, found, err := g.store.Expiry(ctx, identity)
	if err != nil {
		return 0, fmt.Errorf("read cooldown %s: %w", identity, err)
	}
	if !found || !expiresAt.After(now) {
		return 0, nil
	}
	return expiresAt.Sub(now), nil
}

// MemoryStore is a mutex-guarded in-process Store.
type MemoryStore struct {
	mu       sync.Mutex
	expiries map[string]time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{expiries: make(map[string]time.Time)}
}

// Expiry implements Store.
func (m *MemoryStore) Expiry(_ context.Context, key string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiresAt, found := m.expiries[key]
	return expiresAt, found, nil
}

// SetExpiry implements Store.
func (m *MemoryStore) SetExpiry(_ context.Context, key string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiries[key] = expiresAt
	return nil
}
