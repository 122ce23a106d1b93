package main

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestJournal() (*JournalStore, *memDocs, *Bus) {
	docs := newMemDocs()
	bus := newTestBus()
	return NewJournalStore(docs, bus, discardLogger()), docs, bus
}

func entryAt(ts int64, absent string) JournalEntry {
	return JournalEntry{
		Date:                 "01.02.2025",
		AbsentEmployee:       absent,
		AbsentDepartment:     DepartmentOutbound,
		Shift:                ShiftDay,
		SubstituteEmployee:   "Ivan Panasiuk",
		SubstituteDepartment: DepartmentOutbound,
		Reason:               ReasonPrivate,
		Timestamp:            ts,
	}
}

func TestJournalEmpty(t *testing.T) {
	journal, _, _ := newTestJournal()

	entries := journal.List(context.Background())
	if entries == nil || len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestJournalListNewestFirst(t *testing.T) {
	journal, _, _ := newTestJournal()
	ctx := context.Background()

	// insertion order deliberately out of timestamp order
	for _, ts := range []int64{2000, 5000, 1000, 4000, 3000} {
		if _, err := journal.Append(ctx, entryAt(ts, "A")); err != nil {
			t.Fatalf("Append(%d) returned error: %v", ts, err)
		}
	}

	entries := journal.List(ctx)
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Timestamp < entries[i].Timestamp {
			t.Errorf("entries not descending at %d: %d before %d", i, entries[i-1].Timestamp, entries[i].Timestamp)
		}
	}
	if entries[0].ID != "5000" {
		t.Errorf("expected newest entry id 5000, got %s", entries[0].ID)
	}
}

func TestJournalAppendDerivesID(t *testing.T) {
	journal, _, _ := newTestJournal()
	ctx := context.Background()

	ts := time.Date(2025, 2, 1, 8, 30, 0, 0, time.UTC).UnixMilli()
	entry, err := journal.Append(ctx, entryAt(ts, "A"))
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if entry.ID != JournalEntryID(ts) {
		t.Errorf("expected id %s, got %s", JournalEntryID(ts), entry.ID)
	}

	got, err := journal.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != entry {
		t.Errorf("stored entry %+v != returned %+v", got, entry)
	}
}

func TestJournalAppendSameTimestamp(t *testing.T) {
	journal, _, _ := newTestJournal()
	ctx := context.Background()

	ids := map[string]bool{}
	for i := 0; i < 3; i++ {
		entry, err := journal.Append(ctx, entryAt(7000, "A"))
		if err != nil {
			t.Fatalf("Append returned error: %v", err)
		}
		if ids[entry.ID] {
			t.Fatalf("duplicate id %s", entry.ID)
		}
		ids[entry.ID] = true
	}
	for _, want := range []string{"7000", "7000-1", "7000-2"} {
		if !ids[want] {
			t.Errorf("expected id %s among %v", want, ids)
		}
	}
}

func TestJournalRemove(t *testing.T) {
	journal, _, bus := newTestJournal()
	ctx := context.Background()

	for _, ts := range []int64{1000, 2000, 3000} {
		if _, err := journal.Append(ctx, entryAt(ts, "A")); err != nil {
			t.Fatalf("Append returned error: %v", err)
		}
	}

	events, cancel := bus.Subscribe(TopicJournalChanged)
	defer cancel()

	if err := journal.Remove(ctx, "2000"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	entries := journal.List(ctx)
	if len(entries) != 2 || entries[0].ID != "3000" || entries[1].ID != "1000" {
		t.Errorf("unexpected entries after remove: %+v", entries)
	}

	select {
	case ev := <-events:
		if ev.Action != ActionDeleted || ev.RecordID != "2000" {
			t.Errorf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no journal event received")
	}

	if err := journal.Remove(ctx, "2000"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
	if _, err := journal.Get(ctx, "2000"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound from Get, got %v", err)
	}
}

func TestJournalCorruptDocument(t *testing.T) {
	journal, docs, _ := newTestJournal()
	ctx := context.Background()

	docs.set(KeyJournalEntries, `not json`)

	if entries := journal.List(ctx); entries == nil || len(entries) != 0 {
		t.Errorf("expected an empty list, got %+v", entries)
	}
	// appending over unreadable data would lose it
	if _, err := journal.Append(ctx, entryAt(1, "A")); err == nil {
		t.Error("expected Append to refuse to overwrite unreadable data")
	}
	if string(docs.data[KeyJournalEntries]) != `not json` {
		t.Error("stored document was modified")
	}
}

func TestJournalStorageFallback(t *testing.T) {
	journal, docs, _ := newTestJournal()
	ctx := context.Background()

	if _, err := journal.Append(ctx, entryAt(1000, "A")); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if _, err := journal.Append(ctx, entryAt(2000, "B")); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	docs.failGet = errors.New("disk I/O error")
	entries := journal.List(ctx)
	if len(entries) != 2 || entries[0].ID != "2000" {
		t.Errorf("expected the last known entries, got %+v", entries)
	}
	if _, err := journal.Get(ctx, "1000"); err != nil {
		t.Errorf("Get should serve the last known entries, got %v", err)
	}
}
