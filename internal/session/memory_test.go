package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreSetGetDestroy(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	sess := &Session{ID: "s1", AdminID: 1, Email: "a@x.com", CreatedAt: time.Now()}

	if err := m.Set(ctx, sess, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := m.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Email != "a@x.com" || got.AdminID != 1 {
		t.Errorf("Get = %+v, want admin 1 a@x.com", got)
	}

	if err := m.Destroy(ctx, "s1"); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := m.Get(ctx, "s1"); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after destroy, got %v", err)
	}
}

func TestMemoryStoreExpiryIsAbsolute(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := created
	m.now = func() time.Time { return clock }

	if err := m.Set(ctx, &Session{ID: "s1", CreatedAt: created}, 24*time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Reads don't extend the lifetime.
	clock = created.Add(23 * time.Hour)
	if _, err := m.Get(ctx, "s1"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	clock = created.Add(24 * time.Hour)
	if _, err := m.Get(ctx, "s1"); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession at expiry, got %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("expired entry should be dropped on read, have %d", m.Len())
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	m.Set(ctx, &Session{ID: "old", CreatedAt: base}, time.Hour)
	m.Set(ctx, &Session{ID: "new", CreatedAt: base.Add(2 * time.Hour)}, time.Hour)

	n, err := m.Sweep(ctx, base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("swept %d, want 1", n)
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}

func TestMemoryStoreReturnsCopy(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	m.Set(ctx, &Session{ID: "s1", Email: "a@x.com", CreatedAt: time.Now()}, time.Hour)

	got, _ := m.Get(ctx, "s1")
	got.Email = "changed@x.com"

	again, _ := m.Get(ctx, "s1")
	if again.Email != "a@x.com" {
		t.Errorf("stored session mutated through returned pointer: %q", again.Email)
	}
}
