package service

import (
	"context"
	"time"

	"github.com/distortia/tavern/internal/cooldown"
)

// CooldownedAction guards an operation behind a per-identity cooldown
// window. The gate arms only when the action actually runs.
type CooldownedAction struct {
	Gate   *cooldown.Gate
	Window time.Duration
}

// Run executes fn for identity unless the identity is still cooling
// down. A positive remaining duration means fn did not run and the
// caller should report the wait; the existing expiry is not extended.
func (c CooldownedAction) Run(ctx context.Context, identity string, fn func() error) (time.Duration, error) {
	remaining, err := c.Gate.CheckAndArm(ctx, identity, c.Window)
	if err != nil {
		return 0, unavailable("check cooldown", err)
	}
	if remaining > 0 {
		return remaining, nil
	}
	return 0, fn()
}
