package duckdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/harmonia-vision/harmonia/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore(\"\") failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetMissingKey(t *testing.T) {
	store := newTestStore(t)

	value, ok, err := store.Get(context.Background(), "snapshot")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok || value != nil {
		t.Fatalf("Get = (%q, %v), want absent", value, ok)
	}
}

func TestSetGetOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "pause-settings", []byte(`{"enabled":true}`)); err != nil {
		t.Fatalf("Set #1: %v", err)
	}
	if err := store.Set(ctx, "pause-settings", []byte(`{"enabled":false}`)); err != nil {
		t.Fatalf("Set #2: %v", err)
	}

	value, ok, err := store.Get(ctx, "pause-settings")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected key to be present")
	}
	if string(value) != `{"enabled":false}` {
		t.Errorf("value = %s, want overwritten record", value)
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("Keys = %v, want one key", keys)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "snapshot", []byte(`{}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Delete(ctx, "snapshot"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "snapshot"); err != nil {
		t.Fatalf("Delete of absent key: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "snapshot"); ok {
		t.Fatal("expected key to be gone")
	}
}

func TestStatePersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state", "harmonia.duckdb")
	ctx := context.Background()

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Set(ctx, "prescription", []byte(`{"sphere":-1.5}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	store.Close()

	reopened, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	value, ok, err := reopened.Get(ctx, "prescription")
	if err != nil || !ok {
		t.Fatalf("Get after reopen = (%v, %v)", ok, err)
	}
	if string(value) != `{"sphere":-1.5}` {
		t.Errorf("value = %s", value)
	}
}

func TestBreakJournal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	events := []model.BreakEvent{
		{At: base, Day: "2026-03-02", Outcome: model.OutcomeCompleted, Seconds: 20},
		{At: base.Add(20 * time.Minute), Day: "2026-03-02", Outcome: model.OutcomeDismissed},
		{At: base.Add(-48 * time.Hour), Day: "2026-02-28", Outcome: model.OutcomeSnoozed},
	}
	for _, ev := range events {
		if err := store.RecordBreak(ctx, ev); err != nil {
			t.Fatalf("RecordBreak: %v", err)
		}
	}

	got, err := store.BreakEvents(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("BreakEvents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Outcome != model.OutcomeCompleted || got[0].Seconds != 20 {
		t.Errorf("first event = %+v", got[0])
	}
	if got[1].Outcome != model.OutcomeDismissed {
		t.Errorf("second event = %+v", got[1])
	}

	n, err := store.PruneBreakEvents(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("PruneBreakEvents: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
}

func TestQueryTimeoutOption(t *testing.T) {
	store, err := NewStore("", 250*time.Millisecond)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()
	if store.QueryTimeout != 250*time.Millisecond {
		t.Errorf("QueryTimeout = %v", store.QueryTimeout)
	}
}
