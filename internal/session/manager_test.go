package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/merchkit/storefront/pkg/config"
)

func TestLoadMissingSnapshotKeepsRequestedID(t *testing.T) {
	t.Parallel()

	mgr, err := NewManager(newMemoryStore(), config.SessionConfig{TTL: time.Hour}, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	sess, err := mgr.Load(context.Background(), "shop", "visitor-7")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sess.ID != "visitor-7" {
		t.Fatalf("id = %q, want the cookie id back", sess.ID)
	}
	if sess.Phase != PhaseEmpty {
		t.Fatalf("phase = %q, want empty", sess.Phase)
	}
}

func TestLoadUndecodableSnapshotStartsFresh(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	mgr, err := NewManager(store, config.SessionConfig{TTL: time.Hour}, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	ctx := context.Background()
	if err := store.Set(ctx, store.SessionKey("shop", "visitor-7"), "{not json", 0); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	sess, err := mgr.Load(ctx, "shop", "visitor-7")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sess.Phase != PhaseEmpty || !sess.Cart.IsEmpty() {
		t.Fatalf("expected a fresh session, got %+v", sess)
	}
}

func TestLockTableDropsDepartedSessions(t *testing.T) {
	t.Parallel()

	mgr, err := NewManager(newMemoryStore(), config.SessionConfig{TTL: time.Hour}, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("visitor-%d", i)
		_, err := mgr.Mutate(ctx, "shop", id, func(sess *Session) error {
			sess.CurrentCategory = "Drinks"
			return nil
		})
		if err != nil {
			t.Fatalf("Mutate failed for %s: %v", id, err)
		}
	}

	if n := mgr.lockCount(); n != 0 {
		t.Fatalf("lock table holds %d entries after all mutations finished, want 0", n)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	mgr, err := NewManager(newMemoryStore(), config.SessionConfig{TTL: time.Hour}, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	ctx := context.Background()
	sess := NewSession("shop")
	sess.CurrentCategory = "Drinks"
	sess.Phase = PhasePopulated
	if err := mgr.Save(ctx, sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := mgr.Load(ctx, "shop", sess.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.CurrentCategory != "Drinks" || loaded.Phase != PhasePopulated {
		t.Fatalf("round trip lost fields: %+v", loaded)
	}
}
