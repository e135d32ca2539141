// Package sqlite provides the durable SQLite-backed implementation of the
// storage contracts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/distortia/tavern/internal/character"
	"github.com/distortia/tavern/internal/dice"
	"github.com/distortia/tavern/internal/party"
	"github.com/distortia/tavern/internal/platform/storage/sqlitemigrate"
	"github.com/distortia/tavern/internal/storage"
	"github.com/distortia/tavern/internal/storage/sqlite/migrations"
)

// Store persists all records in SQLite. It implements every interface in
// the storage package plus cooldown.Store. Serialization of profile field
// maps happens entirely inside this package; callers only see structured
// types.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
}

// Open opens (creating if needed) a SQLite store at path and applies
// embedded migrations. A nil clock defaults to time.Now.
func Open(path string, clock func() time.Time) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if clock == nil {
		clock = time.Now
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, clock: clock}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// PutProfile implements storage.ProfileStore.
func (s *Store) PutProfile(ctx context.Context, profile character.Profile) error {
	fields, err := json.Marshal(profile.Fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	locks, err := json.Marshal(profile.Locks)
	if err != nil {
		return fmt.Errorf("encode locks: %w", err)
	}
	rerolls, err := json.Marshal(profile.RerollsRemaining)
	if err != nil {
		return fmt.Errorf("encode rerolls: %w", err)
	}
	counts, err := json.Marshal(profile.RollCounts)
	if err != nil {
		return fmt.Errorf("encode roll counts: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
		INSERT INTO profiles (
			owner_id, kind, id, seed_text,
			fields, locks, rerolls_remaining, roll_counts,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, kind) DO UPDATE SET
			id = excluded.id,
			seed_text = excluded.seed_text,
			fields = excluded.fields,
			locks = excluded.locks,
			rerolls_remaining = excluded.rerolls_remaining,
			roll_counts = excluded.roll_counts,
			updated_at = excluded.updated_at`,
		profile.OwnerID, profile.Kind, profile.ID, profile.SeedText,
		string(fields), string(locks), string(rerolls), string(counts),
		toMillis(profile.CreatedAt), toMillis(profile.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

// GetProfile implements storage.ProfileStore.
func (s *Store) GetProfile(ctx context.Context, ownerID, kind string) (character.Profile, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
		SELECT id, seed_text, fields, locks, rerolls_remaining, roll_counts, created_at, updated_at
		FROM profiles WHERE owner_id = ? AND kind = ?`, ownerID, kind)

	var (
		profile                        character.Profile
		fields, locks, rerolls, counts string
		createdAt, updatedAt           int64
	)
	err := row.Scan(&profile.ID, &profile.SeedText, &fields, &locks, &rerolls, &counts, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return character.Profile{}, storage.ErrNotFound
	}
	if err != nil {
		return character.Profile{}, fmt.Errorf("get profile: %w", err)
	}

	profile.OwnerID = ownerID
	profile.Kind = kind
	profile.CreatedAt = fromMillis(createdAt)
	profile.UpdatedAt = fromMillis(updatedAt)
	if err := json.Unmarshal([]byte(fields), &profile.Fields); err != nil {
		return character.Profile{}, fmt.Errorf("decode fields: %w", err)
	}
	if err := json.Unmarshal([]byte(locks), &profile.Locks); err != nil {
		return character.Profile{}, fmt.Errorf("decode locks: %w", err)
	}
	if err := json.Unmarshal([]byte(rerolls), &profile.RerollsRemaining); err != nil {
		return character.Profile{}, fmt.Errorf("decode rerolls: %w", err)
	}
	if err := json.Unmarshal([]byte(counts), &profile.RollCounts); err != nil {
		return character.Profile{}, fmt.Errorf("decode roll counts: %w", err)
	}
	return profile, nil
}

// DeleteProfile implements storage.ProfileStore.
func (s *Store) DeleteProfile(ctx context.Context, ownerID, kind string) error {
	result, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM profiles WHERE owner_id = ? AND kind = ?", ownerID, kind)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PutAbilityState implements storage.AbilityStore.
func (s *Store) PutAbilityState(ctx context.Context, state dice.AbilityState) error {
	scores, err := json.Marshal(state.Scores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx, `
		INSERT INTO ability_states (owner_id, seed_text, scores, rerolls_remaining, roll_count, locked)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET
			seed_text = excluded.seed_text,
			scores = excluded.scores,
			rerolls_remaining = excluded.rerolls_remaining,
			roll_count = excluded.roll_count,
			locked = excluded.locked`,
		state.OwnerID, state.SeedText, string(scores),
		state.RerollsRemaining, state.RollCount, boolToInt(state.Locked),
	)
	if err != nil {
		return fmt.Errorf("put ability state: %w", err)
	}
	return nil
}

// GetAbilityState implements storage.AbilityStore.
func (s *Store) GetAbilityState(ctx context.Context, ownerID string) (dice.AbilityState, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
		SELECT seed_text, scores, rerolls_remaining, roll_count, locked
		FROM ability_states WHERE owner_id = ?`, ownerID)

	var (
		state  dice.AbilityState
		scores string
		locked int
	)
	err := row.Scan(&state.SeedText, &scores, &state.RerollsRemaining, &state.RollCount, &locked)
	if errors.Is(err, sql.ErrNoRows) {
		return dice.AbilityState{}, storage.ErrNotFound
	}
	if err != nil {
		return dice.AbilityState{}, fmt.Errorf("get ability state: %w", err)
	}
	state.OwnerID = ownerID
	state.Locked = locked != 0
	if err := json.Unmarshal([]byte(scores), &state.Scores); err != nil {
		return dice.AbilityState{}, fmt.Errorf("decode scores: %w", err)
	}
	return state, nil
}

// DeleteAbilityState implements storage.AbilityStore.
func (s *Store) DeleteAbilityState(ctx context.Context, ownerID string) error {
	result, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM ability_states WHERE owner_id = ?", ownerID)
	if err != nil {
		return fmt.Errorf("delete ability state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete ability state: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Balance implements storage.WalletStore. Unknown identities have balance 0.
func (s *Store) Balance(ctx context.Context, identity string) (int64, error) {
	var balance int64
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT balance FROM wallets WHERE identity = ?", identity).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// Credit implements storage.WalletStore.
func (s *Store) Credit(ctx context.Context, identity string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("credit amount must be non-negative, got %d", amount)
	}
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO wallets (identity, balance) VALUES (?, ?)
		ON CONFLICT (identity) DO UPDATE SET balance = balance + excluded.balance`,
		identity, amount)
	if err != nil {
		return 0, fmt.Errorf("credit %s: %w", identity, err)
	}
	return s.Balance(ctx, identity)
}

// Debit implements storage.WalletStore. The balance check and decrement
// happen in one statement so the non-negative invariant holds even under
// concurrent writers.
func (s *Store) Debit(ctx context.Context, identity string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("debit amount must be non-negative, got %d", amount)
	}
	result, err := s.sqlDB.ExecContext(ctx,
		"UPDATE wallets SET balance = balance - ? WHERE identity = ? AND balance >= ?",
		amount, identity, amount)
	if err != nil {
		return 0, fmt.Errorf("debit %s: %w", identity, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("debit %s: %w", identity, err)
	}
	if affected == 0 {
		if amount == 0 {
			return 0, nil
		}
		return 0, fmt.Errorf("debit %s: %w", identity, storage.ErrInsufficientBalance)
	}
	return s.Balance(ctx, identity)
}

// GetRoster implements storage.PartyStore. Unknown groups get an empty
// roster.
func (s *Store) GetRoster(ctx context.Context, groupID string) (party.Roster, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT identity, active, joined_at FROM party_members
		WHERE group_id = ? ORDER BY joined_at, identity`, groupID)
	if err != nil {
		return party.Roster{}, fmt.Errorf("get roster: %w", err)
	}
	defer rows.Close()

	roster := party.Roster{GroupID: groupID}
	for rows.Next() {
		var (
			member   party.Member
			active   int
			joinedAt int64
		)
		if err := rows.Scan(&member.Identity, &active, &joinedAt); err != nil {
			return party.Roster{}, fmt.Errorf("scan roster member: %w", err)
		}
		member.Active = active != 0
		member.JoinedAt = fromMillis(joinedAt)
		roster.Members = append(roster.Members, member)
	}
	if err := rows.Err(); err != nil {
		return party.Roster{}, fmt.Errorf("get roster: %w", err)
	}
	return roster, nil
}

// PutRoster implements storage.PartyStore by replacing the group's member
// rows in one transaction.
func (s *Store) PutRoster(ctx context.Context, roster party.Roster) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put roster: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM party_members WHERE group_id = ?", roster.GroupID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear roster: %w", err)
	}
	for _, member := range roster.Members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO party_members (group_id, identity, active, joined_at)
			VALUES (?, ?, ?, ?)`,
			roster.GroupID, member.Identity, boolToInt(member.Active), toMillis(member.JoinedAt),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert roster member: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put roster: %w", err)
	}
	return nil
}

// Expiry implements cooldown.Store.
func (s *Store) Expiry(ctx context.Context, key string) (time.Time, bool, error) {
	var expiresAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT expires_at FROM cooldowns WHERE key = ?", key).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get cooldown: %w", err)
	}
	return fromMillis(expiresAt), true, nil
}

// SetExpiry implements cooldown.Store.
func (s *Store) SetExpiry(ctx context.Context, key string, expiresAt time.Time) error {
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO cooldowns (key, expires_at) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET expires_at = excluded.expires_at`,
		key, toMillis(expiresAt))
	if err != nil {
		return fmt.Errorf("set cooldown: %w", err)
	}
	return nil
}

// AcquireLock implements storage.LockStore. The insert-or-take-if-expired
// happens in a single statement, which is what makes this usable as a
// mutual-exclusion primitive across processes sharing the database.
func (s *Store) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := s.clock()
	result, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO scoped_locks (key, expires_at) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET expires_at = excluded.expires_at
		WHERE scoped_locks.expires_at <= ?`,
		key, toMillis(now.Add(ttl)), toMillis(now))
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return affected > 0, nil
}

// ReleaseLock implements storage.LockStore. Releasing an unheld lock is a
// no-op.
func (s *Store) ReleaseLock(ctx context.Context, key string) error {
	if _, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM scoped_locks WHERE key = ?", key); err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
