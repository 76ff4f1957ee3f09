package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	type payload struct {
		X int64  `json:"x"`
		Y uint32 `json:"y"`
	}
	in := []payload{{X: 100, Y: 200}, {X: 200, Y: 400}}
	if err := mc.Set(ctx, "k", in, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out []payload
	if err := mc.Get(ctx, "k", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Fatalf("round trip mismatch: %v", out)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var out string
	err := mc.Get(context.Background(), "nope", &out)
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCacheExpiration(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	var out string
	if err := mc.Get(ctx, "k", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}
}

func TestMemoryCacheNoExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	var out string
	if err := mc.Get(ctx, "k", &out); err != nil {
		t.Fatalf("zero expiration must mean no expiry: %v", err)
	}
	if out != "v" {
		t.Fatalf("expected v, got %q", out)
	}
}

func TestMemoryCacheDeleteAndExists(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	ok, err := mc.Exists(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected key to exist, got %v %v", ok, err)
	}
	if err := mc.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, err = mc.Exists(ctx, "k")
	if err != nil || ok {
		t.Fatalf("expected key to be gone, got %v %v", ok, err)
	}
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "a", "1", 0); err != nil {
		t.Fatalf("set a: %v", err)
	}
	time.Sleep(time.Millisecond)
	if err := mc.Set(ctx, "b", "2", 0); err != nil {
		t.Fatalf("set b: %v", err)
	}
	time.Sleep(time.Millisecond)

	// Touch "a" so "b" becomes the eviction candidate.
	var out string
	if err := mc.Get(ctx, "a", &out); err != nil {
		t.Fatalf("get a: %v", err)
	}
	time.Sleep(time.Millisecond)

	if err := mc.Set(ctx, "c", "3", 0); err != nil {
		t.Fatalf("set c: %v", err)
	}

	if err := mc.Get(ctx, "a", &out); err != nil {
		t.Fatalf("recently used key must survive eviction: %v", err)
	}
	if err := mc.Get(ctx, "b", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("least recently used key must be evicted, got %v", err)
	}
}
