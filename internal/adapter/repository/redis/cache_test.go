package redis

import (
	"context"
	"testing"
	"time"
)

func TestCacheSetAndGet(t *testing.T) {
	client, mr := newMiniredis(t)

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "balances:apt-1", []byte(`[{"ParticipantID":"anna"}]`), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	val, err := cache.Get(ctx, "balances:apt-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(val) != `[{"ParticipantID":"anna"}]` {
		t.Fatalf("unexpected value %s", val)
	}

	if !mr.Exists("aptledger:cache:balances:apt-1") {
		t.Fatalf("expected key to be stored under the cache prefix")
	}
}

func TestCacheMissAndExpiry(t *testing.T) {
	client, mr := newMiniredis(t)

	cache := NewCache(client)
	ctx := context.Background()

	val, err := cache.Get(ctx, "absent")
	if err != nil || val != nil {
		t.Fatalf("expected clean miss, got val=%q err=%v", val, err)
	}

	if err := cache.Set(ctx, "short", []byte("x"), time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	mr.FastForward(2 * time.Second)

	val, err = cache.Get(ctx, "short")
	if err != nil || val != nil {
		t.Fatalf("expected expired key to miss, got val=%q err=%v", val, err)
	}
}

func TestCacheDelete(t *testing.T) {
	client, _ := newMiniredis(t)

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "foo", []byte("bar"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := cache.Delete(ctx, "foo"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	val, err := cache.Get(ctx, "foo")
	if err != nil || val != nil {
		t.Fatalf("expected deleted key to miss, got val=%q err=%v", val, err)
	}
}

func TestCacheServerDown(t *testing.T) {
	client, mr := newMiniredis(t)
	mr.Close()

	if _, err := NewCache(client).Get(context.Background(), "foo"); err == nil {
		t.Fatalf("expected error when redis is unreachable")
	}
}
