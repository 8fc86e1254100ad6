package cache

import (
	"context"
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](8, 0)

	c.Set(ctx, "a", 1)

	v, ok := c.Get(ctx, "a")
	if !ok || v != 1 {
		t.Fatalf("expected (1, true), got (%d, %v)", v, ok)
	}

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](2, 0)

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	c.Get(ctx, "a")
	c.Set(ctx, "c", 3)

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("expected least recently used entry to be evicted")
	}
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Error("expected recently read entry to survive")
	}
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](8, 20*time.Millisecond)

	c.Set(ctx, "short", 1)
	time.Sleep(50 * time.Millisecond)

	if _, ok := c.Get(ctx, "short"); ok {
		t.Error("expected expired entry to be a miss")
	}
}

func TestCache_DefaultSize(t *testing.T) {
	ctx := context.Background()
	c := New[int, int](0, 0)

	for i := 0; i < DefaultSize+10; i++ {
		c.Set(ctx, i, i)
	}
	if c.Len() != DefaultSize {
		t.Errorf("expected %d entries, got %d", DefaultSize, c.Len())
	}
}

func TestCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := New[int, string](8, 0)

	c.Set(ctx, 1, "x")
	c.Delete(ctx, 1)

	if _, ok := c.Get(ctx, 1); ok {
		t.Error("expected deleted entry to be a miss")
	}
}
