package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type payload struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

func newTestMemory(t *testing.T, opts ...MemoryOption) (*MemoryCache, *time.Time) {
	t.Helper()
	// keep the janitor idle so it never reads the fake clock
	mc := NewMemoryCache(append([]MemoryOption{WithMemoryCleanup(time.Hour)}, opts...)...)
	t.Cleanup(func() { _ = mc.Close() })
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }
	return mc, &now
}

func TestMemoryRoundTripsStructs(t *testing.T) {
	mc, _ := newTestMemory(t)
	ctx := context.Background()

	in := payload{Name: "btc-data", Values: []float64{1, 2.5}}
	if err := mc.Set(ctx, "btc-data:history", in, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := GetTyped[payload](ctx, mc, "btc-data:history")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != in.Name || len(got.Values) != 2 || got.Values[1] != 2.5 {
		t.Fatalf("got %+v", got)
	}

	var s string
	if err := mc.Set(ctx, "plain", "hello", 0); err != nil {
		t.Fatal(err)
	}
	if err := mc.Get(ctx, "plain", &s); err != nil || s != "hello" {
		t.Fatalf("string value = %q, %v", s, err)
	}
}

func TestMemoryExpiresEntries(t *testing.T) {
	mc, now := newTestMemory(t)
	ctx := context.Background()

	_ = mc.Set(ctx, "k", 1, time.Minute)
	*now = now.Add(2 * time.Minute)

	var v int
	if err := mc.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	if ok, _ := mc.Exists(ctx, "k"); ok {
		t.Fatal("expired key reported as existing")
	}
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	mc, now := newTestMemory(t, WithMemoryMaxSize(2))
	ctx := context.Background()

	_ = mc.Set(ctx, "a", 1, time.Hour)
	*now = now.Add(time.Second)
	_ = mc.Set(ctx, "b", 2, time.Hour)
	*now = now.Add(time.Second)

	var v int
	_ = mc.Get(ctx, "a", &v)
	*now = now.Add(time.Second)
	_ = mc.Set(ctx, "c", 3, time.Hour)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatal("b should have been evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatal("a and c should remain")
	}
	if mc.Len() != 2 {
		t.Fatalf("len = %d", mc.Len())
	}
}

func TestMemoryDeleteByPattern(t *testing.T) {
	mc, _ := newTestMemory(t)
	ctx := context.Background()

	for _, k := range []string{"btc-data:history", "btc-data:realized", "korean-data:snapshot"} {
		_ = mc.Set(ctx, k, k, time.Hour)
	}
	if err := mc.DeleteByPattern(ctx, TagPattern("btc-data")); err != nil {
		t.Fatalf("DeleteByPattern: %v", err)
	}

	if ok, _ := mc.Exists(ctx, "btc-data:history", "btc-data:realized"); ok {
		t.Fatal("btc-data keys should be gone")
	}
	if ok, _ := mc.Exists(ctx, "korean-data:snapshot"); !ok {
		t.Fatal("korean-data key should remain")
	}
	if err := mc.DeleteByPattern(ctx, "["); err == nil {
		t.Fatal("expected malformed pattern error")
	}
}

func TestMemoryTryLock(t *testing.T) {
	mc, now := newTestMemory(t)
	ctx := context.Background()

	if ok, _ := mc.TryLock(ctx, "refresh", time.Minute); !ok {
		t.Fatal("first lock should succeed")
	}
	if ok, _ := mc.TryLock(ctx, "refresh", time.Minute); ok {
		t.Fatal("second lock should fail")
	}

	*now = now.Add(2 * time.Minute)
	if ok, _ := mc.TryLock(ctx, "refresh", time.Minute); !ok {
		t.Fatal("lock should be free after ttl")
	}

	_ = mc.Unlock(ctx, "refresh")
	if ok, _ := mc.TryLock(ctx, "refresh", time.Minute); !ok {
		t.Fatal("lock should be free after unlock")
	}
}

func TestTagKey(t *testing.T) {
	if got := TagKey("exchange-data", "binance", 1000); got != "exchange-data:binance:1000" {
		t.Fatalf("key = %q", got)
	}
	if got := TagKey("altcoin-data", "a*b[c]"); got != "altcoin-data:a_b_c_" {
		t.Fatalf("glob characters not escaped: %q", got)
	}
	if TagKey("btc-data") != "btc-data" || TagPattern("btc-data") != "btc-data:*" {
		t.Fatal("bare tag key or pattern mismatch")
	}
}
