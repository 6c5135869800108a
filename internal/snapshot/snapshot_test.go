package snapshot

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/everlist/everlist/internal/changelog"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("failed to open snapshot database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close snapshot database: %v", err)
		}
	})
	return db
}

func testEvents(texts ...string) []changelog.Event {
	events := make([]changelog.Event, len(texts))
	for i, text := range texts {
		events[i] = changelog.Event{
			Op:      changelog.OpAdded,
			ID:      changelog.NewID(),
			TS:      "2026-08-23T10:00:00.000Z",
			User:    "test",
			Payload: changelog.Added{Fields: map[string]any{"text": text}},
		}
	}
	return events
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := openTestDB(t)
	events := testEvents("Milk", "Eggs")

	if err := db.Save("groceries", events); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := db.Load("groceries")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(got, events) {
		t.Errorf("loaded events differ:\n got %+v\nwant %+v", got, events)
	}
}

func TestSaveReplacesPrevious(t *testing.T) {
	db := openTestDB(t)

	if err := db.Save("groceries", testEvents("Milk")); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	newer := testEvents("Milk", "Eggs", "Bread")
	if err := db.Save("groceries", newer); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := db.Load("groceries")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected the replacement snapshot, got %d events", len(got))
	}
}

func TestLoadMissingKey(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Load("nope"); err == nil {
		t.Error("expected error for missing snapshot")
	}
}

func TestDatedKeysAreIndependent(t *testing.T) {
	db := openTestDB(t)

	today := Key("planner", "2026-08-23")
	yesterday := Key("planner", "2026-08-22")
	if today == yesterday {
		t.Fatal("dated keys must differ per partition date")
	}

	if err := db.Save(today, testEvents("Standup")); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := db.Save(yesterday, testEvents("Retro", "Review")); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := db.Load(today)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("today's partition has %d events, want 1", len(got))
	}
}

func TestKey(t *testing.T) {
	if got := Key("abc123", ""); got != "abc123" {
		t.Errorf("perpetual key = %q", got)
	}
	if got := Key("abc123", "2026-08-23"); got != "abc123@2026-08-23" {
		t.Errorf("dated key = %q", got)
	}
}
