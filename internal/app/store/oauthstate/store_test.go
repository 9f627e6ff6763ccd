package oauthstate_test

import (
	"testing"
	"time"

	"github.com/hwankr/courseplanner/internal/app/store/oauthstate"
	"github.com/hwankr/courseplanner/internal/testutil"
)

func TestStore_SaveAndConsume(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Save(ctx, "state-1", "/planner", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	ret, ok, err := store.Consume(ctx, "state-1")
	if err != nil || !ok {
		t.Fatalf("Consume = %v, %v", ok, err)
	}
	if ret != "/planner" {
		t.Errorf("return url = %q", ret)
	}

	// Single use.
	if _, ok, _ := store.Consume(ctx, "state-1"); ok {
		t.Error("state should not be reusable")
	}
}

func TestStore_Consume_UnknownAndExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, ok, err := store.Consume(ctx, "missing"); ok || err != nil {
		t.Errorf("unknown state: ok=%v err=%v", ok, err)
	}

	if err := store.Save(ctx, "old", "", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok, _ := store.Consume(ctx, "old"); ok {
		t.Error("expired state should be rejected")
	}
}

func TestStore_CleanupExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_ = store.Save(ctx, "a", "", time.Now().Add(-time.Hour))
	_ = store.Save(ctx, "b", "", time.Now().Add(-time.Minute))
	_ = store.Save(ctx, "c", "", time.Now().Add(time.Hour))

	n, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	if _, ok, _ := store.Consume(ctx, "c"); !ok {
		t.Error("unexpired state should survive cleanup")
	}
}
