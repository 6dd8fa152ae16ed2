package ratelimit

import (
    "context"
    "testing"
    "time"
)

func TestAllowDrainsAndRefills(t *testing.T) {
    now := time.Unix(1_700_000_000, 0)
    l := New()
    l.now = func() time.Time { return now }

    for i := 0; i < 2; i++ {
        if !l.Allow("k", 2, 1) {
            t.Fatalf("call %d should pass", i)
        }
    }
    if l.Allow("k", 2, 1) {
        t.Fatal("bucket should be empty")
    }
    now = now.Add(time.Second)
    if !l.Allow("k", 2, 1) {
        t.Fatal("one token should have refilled")
    }
    if !l.Allow("other", 1, 1) {
        t.Fatal("keys are independent")
    }
}

func TestWaitHonoursContext(t *testing.T) {
    l := New()
    if err := l.Wait(context.Background(), "k", 1, 0); err != nil {
        t.Fatalf("first wait: %v", err)
    }
    ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
    defer cancel()
    if err := l.Wait(ctx, "k", 1, 0); err == nil {
        t.Fatal("expected context error on an empty bucket with no refill")
    }
}

func TestPerMinute(t *testing.T) {
    if got := PerMinute(60); got != 1 {
        t.Fatalf("got %v", got)
    }
}
