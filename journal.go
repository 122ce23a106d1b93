package main

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
)

// JournalStore is the local audit trail of submitted substitutions. Entries
// are never edited; they are appended by the form and removed by hand.
type JournalStore struct {
	mu     sync.Mutex
	docs   DocumentStore
	bus    *Bus
	logger *slog.Logger

	// last list read successfully, served when storage fails
	last []JournalEntry
}

func NewJournalStore(docs DocumentStore, bus *Bus, logger *slog.Logger) *JournalStore {
	return &JournalStore{
		docs:   docs,
		bus:    bus,
		logger: logger.With("component", "journal"),
	}
}

// List returns every entry, newest first. It never fails: storage errors are
// logged and the last known list (or an empty one) is returned.
func (s *JournalStore) List(ctx context.Context) []JournalEntry {
	s.mu.Lock()
	entries, _, err := readList[JournalEntry](ctx, s.docs, KeyJournalEntries)
	if err != nil {
		s.logger.Error("error loading journal", "err", err)
		entries = slices.Clone(s.last)
	} else {
		s.last = slices.Clone(entries)
	}
	s.mu.Unlock()

	if entries == nil {
		entries = []JournalEntry{}
	}
	sortNewestFirst(entries)
	return entries
}

func sortNewestFirst(entries []JournalEntry) {
	slices.SortStableFunc(entries, func(a, b JournalEntry) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
}

func (s *JournalStore) Get(ctx context.Context, id string) (JournalEntry, error) {
	for _, e := range s.List(ctx) {
		if e.ID == id {
			return e, nil
		}
	}
	return JournalEntry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
}

// Append stores entry. An empty ID is derived from the timestamp; a collision
// with an existing id gets a numeric suffix. The stored entry is returned.
// A document that cannot be read is never overwritten.
func (s *JournalStore) Append(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _, err := readList[JournalEntry](ctx, s.docs, KeyJournalEntries)
	if err != nil {
		return JournalEntry{}, err
	}

	if entry.ID == "" {
		entry.ID = JournalEntryID(entry.Timestamp)
	}
	entry.ID = uniqueEntryID(entries, entry.ID)

	entries = append(entries, entry)
	if err := writeList(ctx, s.docs, KeyJournalEntries, entries); err != nil {
		return JournalEntry{}, err
	}
	s.last = slices.Clone(entries)

	s.logger.Info("journal entry saved", "id", entry.ID)
	s.bus.Publish(ctx, TopicJournalChanged, ActionCreated, entry.ID)
	return entry, nil
}

func uniqueEntryID(entries []JournalEntry, id string) string {
	taken := func(candidate string) bool {
		return slices.ContainsFunc(entries, func(e JournalEntry) bool { return e.ID == candidate })
	}
	if !taken(id) {
		return id
	}
	for n := 1; ; n++ {
		candidate := id + "-" + strconv.Itoa(n)
		if !taken(candidate) {
			return candidate
		}
	}
}

// Remove deletes the entry with id. Confirmation is the caller's job.
func (s *JournalStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _, err := readList[JournalEntry](ctx, s.docs, KeyJournalEntries)
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(entries, func(e JournalEntry) bool { return e.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	entries = slices.Delete(entries, idx, idx+1)

	if err := writeList(ctx, s.docs, KeyJournalEntries, entries); err != nil {
		return err
	}
	s.last = slices.Clone(entries)

	s.bus.Publish(ctx, TopicJournalChanged, ActionDeleted, id)
	return nil
}
