// Package memory provides a mutex-guarded in-memory implementation of the
// storage contracts, used in tests and single-process deployments.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/distortia/tavern/internal/character"
	"github.com/distortia/tavern/internal/dice"
	"github.com/distortia/tavern/internal/party"
	"github.com/distortia/tavern/internal/storage"
)

// Store holds all records in process memory. The zero value is not usable;
// call New.
type Store struct {
	mu        sync.Mutex
	clock     func() time.Time
	profiles  map[string]character.Profile
	abilities map[string]dice.AbilityState
	wallets   map[string]int64
	rosters   map[string]party.Roster
	cooldowns map[string]time.Time
	locks     map[string]time.Time
}

// New creates an empty store. A nil clock defaults to time.Now; tests
// inject a fake clock to exercise lock and cooldown expiry.
func New(clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		clock:     clock,
		profiles:  make(map[string]character.Profile),
		abilities: make(map[string]dice.AbilityState),
		wallets:   make(map[string]int64),
		rosters:   make(map[string]party.Roster),
		cooldowns: make(map[string]time.Time),
		locks:     make(map[string]time.Time),
	}
}

func profileKey(ownerID, kind string) string {
	return ownerID + "\x00" + kind
}

// PutProfile implements storage.ProfileStore.
func (s *Store) PutProfile(_ context.Context, profile character.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profileKey(profile.OwnerID, profile.Kind)] = profile.Clone()
	return nil
}

// GetProfile implements storage.ProfileStore.
func (s *Store) GetProfile(_ context.Context, ownerID, kind string) (character.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[profileKey(ownerID, kind)]
	if !ok {
		return character.Profile{}, storage.ErrNotFound
	}
	return profile.Clone(), nil
}

// DeleteProfile implements storage.ProfileStore.
func (s *Store) DeleteProfile(_ context.Context, ownerID, kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := profileKey(ownerID, kind)
	if _, ok := s.profiles[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.profiles, key)
	return nil
}

// PutAbilityState implements storage.AbilityStore.
func (s *Store) PutAbilityState(_ context.Context, state dice.AbilityState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := state
	stored.Scores = make(dice.ScoreSet, len(state.Scores))
	for attr, score := range state.Scores {
		stored.Scores[attr] = score
	}
	s.abilities[state.OwnerID] = stored
	return nil
}

// GetAbilityState implements storage.AbilityStore.
func (s *Store) GetAbilityState(_ context.Context, ownerID string) (dice.AbilityState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.abilities[ownerID]
	if !ok {
		return dice.AbilityState{}, storage.ErrNotFound
	}
	out := state
	out.Scores = make(dice.ScoreSet, len(state.Scores))
	for attr, score := range state.Scores {
		out.Scores[attr] = score
	}
	return out, nil
}

// DeleteAbilityState implements storage.AbilityStore.
func (s *Store) DeleteAbilityState(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.abilities[ownerID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.abilities, ownerID)
	return nil
}

// Balance implements storage.WalletStore.
func (s *Store) Balance(_ context.Context, identity string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[identity], nil
}

// Credit implements storage.WalletStore.
func (s *Store) Credit(_ context.Context, identity string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("credit amount must be non-negative, got %d", amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[identity] += amount
	return s.wallets[identity], nil
}

// Debit implements storage.WalletStore. It fails rather than clamping when
// the balance would go negative.
func (s *Store) Debit(_ context.Context, identity string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("debit amount must be non-negative, got %d", amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wallets[identity] < amount {
		return 0, fmt.Errorf("debit %s: %w", identity, storage.ErrInsufficientBalance)
	}
	s.wallets[identity] -= amount
	return s.wallets[identity], nil
}

// GetRoster implements storage.PartyStore. Unknown groups get an empty
// roster.
func (s *Store) GetRoster(_ context.Context, groupID string) (party.Roster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster, ok := s.rosters[groupID]
	if !ok {
		return party.Roster{GroupID: groupID}, nil
	}
	out := roster
	out.Members = append([]party.Member(nil), roster.Members...)
	return out, nil
}

// PutRoster implements storage.PartyStore.
func (s *Store) PutRoster(_ context.Context, roster party.Roster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := roster
	stored.Members = append([]party.Member(nil), roster.Members...)
	s.rosters[roster.GroupID] = stored
	return nil
}

// Expiry implements cooldown.Store.
func (s *Store) Expiry(_ context.Context, key string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, found := s.cooldowns[key]
	return expiresAt, found, nil
}

// SetExpiry implements cooldown.Store.
func (s *Store) SetExpiry(_ context.Context, key string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldowns[key] = expiresAt
	return nil
}

// AcquireLock implements storage.LockStore with set-if-absent semantics;
// an expired holder's lock is treated as absent.
func (s *Store) AcquireLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	if expiresAt, held := s.locks[key]; held && expiresAt.After(now) {
		return false, nil
	}
	s.locks[key] = now.Add(ttl)
	return true, nil
}

// ReleaseLock implements storage.LockStore. Releasing an unheld lock is a
// no-op.
func (s *Store) ReleaseLock(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, key)
	return nil
}
