package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryStoreSetAndGet(t *testing.T) {
	store := NewMemoryStore(4, 0)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("empty store should miss")
	}
	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set error: %v", err)
	}
	value, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || value != "v" {
		t.Fatalf("unexpected lookup: %q %v %v", value, ok, err)
	}
}

func TestMemoryStoreEvictsLeastRecentlyUsed(t *testing.T) {
	store := NewMemoryStore(2, 0)
	ctx := context.Background()

	_ = store.Set(ctx, "a", "1")
	_ = store.Set(ctx, "b", "2")
	_, _, _ = store.Get(ctx, "a")
	_ = store.Set(ctx, "c", "3")

	if _, ok, _ := store.Get(ctx, "b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if _, ok, _ := store.Get(ctx, "a"); !ok {
		t.Fatalf("recently used entry should survive")
	}
	if store.Len() != 2 {
		t.Fatalf("unexpected size %d", store.Len())
	}
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore(8, 20*time.Millisecond)
	ctx := context.Background()
	_ = store.Set(ctx, "k", "v")
	time.Sleep(60 * time.Millisecond)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatalf("entry should have expired")
	}
}

func TestMemoryStoreClosePurges(t *testing.T) {
	store := NewMemoryStore(8, 0)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = store.Set(ctx, fmt.Sprintf("k%d", i), "v")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close error: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("close should purge entries")
	}
}
