package cache

import (
	"context"
	"testing"
	"time"

	"grchub/internal/domain/models"
)

func TestMemorySessionStoreRoundTrip(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()

	session := models.NewIntakeSession("key-1")
	session.Answers["title"] = "VPN outage"
	session.CurrentStep = 1

	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "key-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for stored session")
	}
	if got.CurrentStep != 1 || got.Answers["title"] != "VPN outage" {
		t.Errorf("got %+v", got)
	}
}

func TestMemorySessionStoreMissingKey(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)

	got, err := store.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("Get(absent) = %+v, want nil", got)
	}
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore(10 * time.Millisecond)
	ctx := context.Background()

	if err := store.Put(ctx, models.NewIntakeSession("key-2")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	time.Sleep(25 * time.Millisecond)

	got, err := store.Get(ctx, "key-2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Error("expired session still returned")
	}
}

func TestMemorySessionStoreDelete(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()

	if err := store.Put(ctx, models.NewIntakeSession("key-3")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(ctx, "key-3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, err := store.Get(ctx, "key-3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Error("deleted session still returned")
	}
}

func TestMemorySessionStorePutRefreshesTTL(t *testing.T) {
	store := NewMemorySessionStore(40 * time.Millisecond)
	ctx := context.Background()

	session := models.NewIntakeSession("key-4")
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("Put: %v", err)
	}

	time.Sleep(25 * time.Millisecond)
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	got, err := store.Get(ctx, "key-4")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Error("session expired despite refreshed TTL")
	}
}
