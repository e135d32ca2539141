// Package storage defines the persistence contracts for profiles, ability
// scores, wallets, party rosters, cooldowns, and scoped locks.
//
// Implementations always accept and return structured domain types; raw or
// half-parsed serialization never crosses this boundary. Two
// implementations exist: storage/sqlite for durable deployments and
// storage/memory for tests and single-process use.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/distortia/tavern/internal/character"
	"github.com/distortia/tavern/internal/dice"
	"github.com/distortia/tavern/internal/party"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already
	// exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrInsufficientBalance indicates a debit that would drive a wallet
	// balance negative.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// ProfileStore persists generated profiles, keyed by owner and kind (one
// traveler and one job profile per user).
type ProfileStore interface {
	// PutProfile inserts or replaces a profile.
	PutProfile(ctx context.Context, profile character.Profile) error
	GetProfile(ctx context.Context, ownerID, kind string) (character.Profile, error)
	// DeleteProfile wipes a profile. Deleting a missing profile returns
	// ErrNotFound.
	DeleteProfile(ctx context.Context, ownerID, kind string) error
}

// AbilityStore persists ability score sets, keyed by owner.
type AbilityStore interface {
	PutAbilityState(ctx context.Context, state dice.AbilityState) error
	GetAbilityState(ctx context.Context, ownerID string) (dice.AbilityState, error)
	DeleteAbilityState(ctx context.Context, ownerID string) error
}

// WalletStore persists integer balances per identity. Balances are
// non-negative by invariant: Debit fails with ErrInsufficientBalance rather
// than clamping when it would go below zero. Unknown identities have
// balance 0.
type WalletStore interface {
	Balance(ctx context.Context, identity string) (int64, error)
	Credit(ctx context.Context, identity string, amount int64) (int64, error)
	Debit(ctx context.Context, identity string, amount int64) (int64, error)
}

// PartyStore persists group rosters. Getting a group with no roster yet
// returns an empty roster for that group, not ErrNotFound.
type PartyStore interface {
	GetRoster(ctx context.Context, groupID string) (party.Roster, error)
	PutRoster(ctx context.Context, roster party.Roster) error
}

// LockStore provides the set-if-absent-with-expiry primitive that
// serializes read-modify-write operations per scope. The TTL is a safety
// net against a crashed holder; live holders release explicitly.
type LockStore interface {
	// AcquireLock returns true when the caller now holds the key. A false
	// return with a nil error means another holder has it: a recoverable
	// busy condition, not a failure.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}
