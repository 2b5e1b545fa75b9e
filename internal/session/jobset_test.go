package session

import (
	"context"
	"slices"
	"testing"
)

func TestJobSet_AddRemoveLatest(t *testing.T) {
	ctx := context.Background()
	set := NewJobSet(NewMemoryStore(), "tab-1", nil)

	latest, err := set.Latest(ctx)
	if err != nil || latest != "" {
		t.Fatalf("expected empty latest, got %q err=%v", latest, err)
	}

	for _, id := range []string{"a", "b", "a", "c"} {
		if err := set.Add(ctx, id); err != nil {
			t.Fatalf("Add(%s) error: %v", id, err)
		}
	}
	ids, _ := set.List(ctx)
	if !slices.Equal(ids, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected ids after add: %v", ids)
	}
	if latest, _ := set.Latest(ctx); latest != "c" {
		t.Fatalf("expected latest c, got %q", latest)
	}

	if err := set.Remove(ctx, "b"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if err := set.Remove(ctx, "missing"); err != nil {
		t.Fatalf("Remove of absent id error: %v", err)
	}
	ids, _ = set.List(ctx)
	if !slices.Equal(ids, []string{"a", "c"}) {
		t.Fatalf("unexpected ids after remove: %v", ids)
	}

	if err := set.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if ids, _ := set.List(ctx); len(ids) != 0 {
		t.Fatalf("expected empty set, got %v", ids)
	}
}

func TestJobSet_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	one := NewJobSet(kv, "one", nil)
	two := NewJobSet(kv, "two", nil)

	_ = one.Add(ctx, "abc123")
	if ids, _ := two.List(ctx); len(ids) != 0 {
		t.Fatalf("expected other session to be empty, got %v", ids)
	}

	// A fresh JobSet over the same store sees the persisted ids.
	reloaded := NewJobSet(kv, "one", nil)
	if latest, _ := reloaded.Latest(ctx); latest != "abc123" {
		t.Fatalf("expected abc123 after reload, got %q", latest)
	}
}

func TestJobSet_CorruptValueReadsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	set := NewJobSet(kv, "tab", nil)
	_ = kv.Set(ctx, set.key, []byte("{not json"))

	ids, err := set.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty ids, got %v", ids)
	}
	if err := set.Add(ctx, "x"); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if ids, _ := set.List(ctx); !slices.Equal(ids, []string{"x"}) {
		t.Fatalf("expected set to recover, got %v", ids)
	}
}
