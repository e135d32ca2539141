// Package service orchestrates the domain packages over the storage
// contracts. It owns per-scope locking for read-modify-write operations
// and translates infrastructure failures into ErrUnavailable so callers
// can tell recoverable contention and outages apart from rule violations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/distortia/tavern/internal/storage"
)

var (
	// ErrOperationBusy indicates another operation for the same scope is
	// in flight. Callers should retry; nothing was changed.
	ErrOperationBusy = errors.New("operation already in progress")
	// ErrUnavailable indicates a storage failure rather than a rule
	// violation.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrUnknownKind indicates a profile kind with no generation table.
	ErrUnknownKind = errors.New("unknown profile kind")
)

// lockTTL bounds how long a scope stays locked if its holder crashes.
// Live holders release as soon as the read-modify-write completes.
const lockTTL = 10 * time.Second

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// withLock runs fn while holding the scoped lock for key. Contention is
// reported as ErrOperationBusy without running fn.
func withLock(ctx context.Context, locks storage.LockStore, key string, fn func() error) error {
	held, err := locks.AcquireLock(ctx, key, lockTTL)
	if err != nil {
		return unavailable("acquire lock "+key, err)
	}
	if !held {
		return fmt.Errorf("%s: %w", key, ErrOperationBusy)
	}
	defer func() {
		if err := locks.ReleaseLock(ctx, key); err != nil {
			log.Printf("lock release failed key=%s error=%v", key, err)
		}
	}()
	return fn()
}
