package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst allows initial requests", rps: 1, burst: 3, calls: 3, wantPass: 3},
		{name: "exceeding burst blocks", rps: 1, burst: 2, calls: 5, wantPass: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)
			defer rl.Stop()

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if rl.Allow("user-1") {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_IndependentKeys(t *testing.T) {
	rl := PerMinute(1, 1)
	defer rl.Stop()

	if !rl.Allow("usr-a") {
		t.Fatal("first message from usr-a should pass")
	}
	if rl.Allow("usr-a") {
		t.Error("second message from usr-a should be limited")
	}
	if !rl.Allow("usr-b") {
		t.Error("usr-b should have its own bucket")
	}
}

func TestKeyedRateLimiter_EvictIdle(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("old")

	now = now.Add(time.Hour)
	rl.Allow("fresh")
	rl.evictIdle()

	if got := rl.Len(); got != 1 {
		t.Fatalf("Len() = %d after eviction, want 1", got)
	}
}

func TestKeyedRateLimiter_WaitCancelled(t *testing.T) {
	rl := New(0.001, 1)
	defer rl.Stop()

	rl.Allow("k")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx, "k"); err == nil {
		t.Error("Wait() should fail once the context expires")
	}
}

func TestKeyedRateLimiter_StopIdempotent(t *testing.T) {
	rl := New(1, 1)
	rl.Stop()
	rl.Stop()
}
