package main

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestRoster(t *testing.T) (*RosterStore, *memDocs, *Bus) {
	t.Helper()
	docs := newMemDocs()
	bus := newTestBus()
	return NewRosterStore(docs, bus, discardLogger()), docs, bus
}

func TestRosterSeedsOnFirstRun(t *testing.T) {
	roster, docs, _ := newTestRoster(t)

	employees := roster.List(context.Background())
	if len(employees) != len(seedRoster) {
		t.Fatalf("expected %d seed employees, got %d", len(seedRoster), len(employees))
	}
	if employees[0].ID != "emp_0" || employees[0].Name != "Dzina Siarbolina" {
		t.Errorf("unexpected first seed record: %+v", employees[0])
	}
	if _, ok := docs.data[KeyEmployees]; !ok {
		t.Error("expected seed list to be persisted")
	}

	// a stored empty list is not a first run
	docs.set(KeyEmployees, `[]`)
	if got := roster.List(context.Background()); len(got) != 0 {
		t.Errorf("expected stored empty roster to stay empty, got %d", len(got))
	}
}

func TestRosterAdd(t *testing.T) {
	roster, _, _ := newTestRoster(t)
	ctx := context.Background()

	before := roster.List(ctx)

	emp, err := roster.Add(ctx, "  Jan Kowalski ", DepartmentInbound)
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	after := roster.List(ctx)
	if len(after) != len(before)+1 {
		t.Fatalf("expected %d employees, got %d", len(before)+1, len(after))
	}

	var matches int
	for _, e := range after {
		if e.ID == emp.ID {
			matches++
			if e.Name != "Jan Kowalski" || e.Department != DepartmentInbound || e.IsExternal {
				t.Errorf("unexpected stored record: %+v", e)
			}
		}
	}
	if matches != 1 {
		t.Errorf("expected exactly one record with id %s, got %d", emp.ID, matches)
	}
	for _, e := range before {
		if e.ID == emp.ID {
			t.Errorf("new id %s collides with an existing record", emp.ID)
		}
	}
}

func TestRosterAddRejectsBlankName(t *testing.T) {
	roster, docs, _ := newTestRoster(t)
	ctx := context.Background()
	roster.List(ctx)
	puts := docs.puts

	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := roster.Add(ctx, name, DepartmentOutbound)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("Add(%q): expected ValidationError, got %v", name, err)
		}
		if ve.Message != msgEmployeeNameRequired {
			t.Errorf("unexpected message %q", ve.Message)
		}
	}
	if docs.puts != puts {
		t.Error("rejected adds must not write")
	}
}

func TestRosterAddRejectsUnknownDepartment(t *testing.T) {
	roster, _, _ := newTestRoster(t)
	_, err := roster.Add(context.Background(), "Jan", Department("Returns"))
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRosterEdit(t *testing.T) {
	roster, _, _ := newTestRoster(t)
	ctx := context.Background()

	ext, _, err := roster.AddExternal(ctx, "Bob", "OPUS")
	if err != nil {
		t.Fatalf("AddExternal returned error: %v", err)
	}

	updated, err := roster.Edit(ctx, ext.ID, "Bob Builder", DepartmentInbound)
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if updated.Name != "Bob Builder" || updated.Department != DepartmentInbound {
		t.Errorf("unexpected edit result: %+v", updated)
	}
	if !updated.IsExternal || updated.Agency != "OPUS" {
		t.Errorf("edit must keep external flag and agency: %+v", updated)
	}

	got, err := roster.Get(ctx, ext.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != updated {
		t.Errorf("stored record %+v != returned %+v", got, updated)
	}

	if _, err := roster.Edit(ctx, ext.ID, " ", DepartmentInbound); !IsValidationError(err) {
		t.Errorf("expected validation error for blank name, got %v", err)
	}
	if _, err := roster.Edit(ctx, "emp_missing", "X", DepartmentInbound); !errors.Is(err, ErrEmployeeNotFound) {
		t.Errorf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestRosterRemoveExactlyOne(t *testing.T) {
	roster, _, _ := newTestRoster(t)
	ctx := context.Background()

	before := roster.List(ctx)
	target := before[3]

	if err := roster.Remove(ctx, target.ID); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	after := roster.List(ctx)
	if len(after) != len(before)-1 {
		t.Fatalf("expected %d employees, got %d", len(before)-1, len(after))
	}
	remaining := make(map[string]bool, len(after))
	for _, e := range after {
		remaining[e.ID] = true
	}
	for _, e := range before {
		if e.ID == target.ID {
			if remaining[e.ID] {
				t.Errorf("removed id %s still present", e.ID)
			}
			continue
		}
		if !remaining[e.ID] {
			t.Errorf("unrelated id %s disappeared", e.ID)
		}
	}

	if err := roster.Remove(ctx, target.ID); !errors.Is(err, ErrEmployeeNotFound) {
		t.Errorf("expected ErrEmployeeNotFound on second remove, got %v", err)
	}
}

func TestRosterAddExternalOncePerAgency(t *testing.T) {
	roster, _, _ := newTestRoster(t)
	ctx := context.Background()
	base := len(roster.List(ctx))

	first, added, err := roster.AddExternal(ctx, "BobExternal", "OPUS")
	if err != nil || !added {
		t.Fatalf("first AddExternal = added %v, err %v", added, err)
	}
	if !first.IsExternal || first.Agency != "OPUS" || first.Department != DefaultExternalDepartment {
		t.Errorf("unexpected external record: %+v", first)
	}

	again, added, err := roster.AddExternal(ctx, "BobExternal", "OPUS")
	if err != nil || added {
		t.Fatalf("repeat AddExternal = added %v, err %v", added, err)
	}
	if again.ID != first.ID {
		t.Errorf("expected existing record %s, got %s", first.ID, again.ID)
	}

	// same name through another agency is a separate record
	if _, added, _ := roster.AddExternal(ctx, "BobExternal", "MadMax"); !added {
		t.Error("expected a record for a different agency")
	}

	if got := len(roster.List(ctx)); got != base+2 {
		t.Errorf("expected %d employees, got %d", base+2, got)
	}
}

func TestRosterImportNames(t *testing.T) {
	roster, _, _ := newTestRoster(t)
	ctx := context.Background()
	base := len(roster.List(ctx))

	added, err := roster.ImportNames(ctx, []string{"Dzina Siarbolina", "New Person", " ", "New Person", "Another One"})
	if err != nil {
		t.Fatalf("ImportNames returned error: %v", err)
	}
	if added != 2 {
		t.Errorf("expected 2 new employees, got %d", added)
	}
	if got := len(roster.List(ctx)); got != base+2 {
		t.Errorf("expected %d employees, got %d", base+2, got)
	}
	emp, ok := roster.FindByName(ctx, "New Person")
	if !ok || emp.Department != DepartmentOutbound || emp.IsExternal {
		t.Errorf("unexpected imported record: %+v (found %v)", emp, ok)
	}
}

func TestRosterListFallsBackOnStorageError(t *testing.T) {
	roster, docs, _ := newTestRoster(t)
	ctx := context.Background()

	if _, err := roster.Add(ctx, "Jan", DepartmentOutbound); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	known := roster.List(ctx)

	docs.failGet = errors.New("storage unavailable")
	got := roster.List(ctx)
	if len(got) != len(known) {
		t.Errorf("expected last known roster (%d), got %d", len(known), len(got))
	}

	// a mutation must not overwrite stored data it could not read
	if _, err := roster.Add(ctx, "Anna", DepartmentOutbound); err == nil {
		t.Error("expected Add to fail while storage is unreadable")
	}

	// corrupt JSON falls back too
	docs.failGet = nil
	docs.set(KeyEmployees, `{not json`)
	if got := roster.List(ctx); len(got) != len(known) {
		t.Errorf("expected last known roster on parse error, got %d", len(got))
	}
}

func TestRosterPublishesChanges(t *testing.T) {
	roster, _, bus := newTestRoster(t)
	ctx := context.Background()

	events, cancel := bus.Subscribe(TopicRosterChanged)
	defer cancel()

	emp, err := roster.Add(ctx, "Jan", DepartmentOutbound)
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	// the seed write on first load comes without an event
	select {
	case ev := <-events:
		if ev.Action != ActionCreated || ev.RecordID != emp.ID {
			t.Errorf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no roster event received")
	}
}
