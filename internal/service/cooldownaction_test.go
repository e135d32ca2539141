package service

import (
	"context"
	"testing"
	"time"

	"github.com/distortia/tavern/internal/cooldown"
)

func TestCooldownedActionRunsOncePerWindow(t *testing.T) {
	now := testNow
	gate := cooldown.New(cooldown.NewMemoryStore(), func() time.Time { return now })
	action := CooldownedAction{Gate: gate, Window: 15 * time.Second}
	ctx := context.Background()

	runs := 0
	fn := func() error {
		runs++
		return nil
	}

	remaining, err := action.Run(ctx, "shop:user1", fn)
	if err != nil || remaining != 0 {
		t.Fatalf("first run = %v, %v; want 0, nil", remaining, err)
	}
	if runs != 1 {
		t.Fatalf("runs = %d, want 1", runs)
	}

	now = now.Add(5 * time.Second)
	remaining, err = action.Run(ctx, "shop:user1", fn)
	if err != nil {
		t.Fatalf("cooling run: %v", err)
	}
	if remaining != 10*time.Second {
		t.Fatalf("remaining = %v, want 10s", remaining)
	}
	if runs != 1 {
		t.Fatalf("runs = %d, want 1 (action must not run while cooling)", runs)
	}

	now = now.Add(10 * time.Second)
	remaining, err = action.Run(ctx, "shop:user1", fn)
	if err != nil || remaining != 0 {
		t.Fatalf("expired run = %v, %v; want 0, nil", remaining, err)
	}
	if runs != 2 {
		t.Fatalf("runs = %d, want 2", runs)
	}
}

func TestCooldownedActionIsolatesIdentities(t *testing.T) {
	gate := cooldown.New(cooldown.NewMemoryStore(), func() time.Time { return testNow })
	action := CooldownedAction{Gate: gate, Window: time.Minute}
	ctx := context.Background()

	if _, err := action.Run(ctx, "shop:user1", func() error { return nil }); err != nil {
		t.Fatalf("user1 run: %v", err)
	}
	remaining, err := action.Run(ctx, "shop:user2", func() error { return nil })
	if err != nil || remaining != 0 {
		t.Fatalf("user2 run = %v, %v; want 0, nil", remaining, err)
	}
}
