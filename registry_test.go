package main

import (
	"slices"
	"sync/atomic"
	"testing"
	"time"
)

func TestEnsureRoomIsIdempotent(t *testing.T) {
	reg := newRegistry()

	first, created := reg.EnsureRoom("r1", DifficultyEasy, epoch)
	if !created {
		t.Fatalf("expected the first call to create the room")
	}

	second, created := reg.EnsureRoom("r1", DifficultyHard, epoch.Add(time.Hour))
	if created {
		t.Fatalf("expected the second call to find the existing room")
	}
	if first != second {
		t.Fatalf("expected the same room back")
	}
	if second.Difficulty != DifficultyEasy || len(second.Pieces) != 16 || !second.StartTime.Equal(epoch) {
		t.Fatalf("existing room was modified: %s, %d pieces, %s", second.Difficulty, len(second.Pieces), second.StartTime)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 room, got %d", reg.Len())
	}
}

func TestAddAndRemovePlayers(t *testing.T) {
	reg := newRegistry()

	if reg.AddPlayer("missing", "a", "Alice") {
		t.Fatalf("adding to an unknown room should fail")
	}

	reg.EnsureRoom("r1", DifficultyMedium, epoch)
	reg.AddPlayer("r1", "a", "Alice")
	reg.AddPlayer("r1", "b", "Bob")
	reg.AddPlayer("r1", "a", "Alice")

	room, _ := reg.Snapshot("r1")
	if len(room.Players) != 3 {
		t.Fatalf("expected duplicate entries to be kept, got %v", room.Players)
	}

	if empty, ok := reg.RemovePlayer("r1", "a"); !ok || empty {
		t.Fatalf("expected a non-empty removal, got empty=%t ok=%t", empty, ok)
	}

	room, _ = reg.Snapshot("r1")
	want := []Player{{"b", "Bob"}, {"a", "Alice"}}
	if !slices.Equal(room.Players, want) {
		t.Fatalf("expected the first entry to be removed, got %v", room.Players)
	}

	if _, ok := reg.RemovePlayer("r1", "zed"); ok {
		t.Fatalf("removing an unknown connection should report !ok")
	}

	reg.RemovePlayer("r1", "a")
	if empty, ok := reg.RemovePlayer("r1", "b"); !ok || !empty {
		t.Fatalf("expected the room to be empty, got empty=%t ok=%t", empty, ok)
	}

	if _, ok := reg.RemovePlayer("missing", "a"); ok {
		t.Fatalf("removing from an unknown room should report !ok")
	}
}

func TestRoomsWith(t *testing.T) {
	reg := newRegistry()

	for _, id := range []string{"r1", "r2", "r3"} {
		reg.EnsureRoom(id, DifficultyEasy, epoch)
	}
	reg.AddPlayer("r1", "a", "Alice")
	reg.AddPlayer("r3", "a", "Alice")
	reg.AddPlayer("r2", "b", "Bob")

	got := reg.RoomsWith("a")
	slices.Sort(got)

	if !slices.Equal(got, []string{"r1", "r3"}) {
		t.Fatalf("expected [r1 r3], got %v", got)
	}
	if got := reg.RoomsWith("nobody"); len(got) != 0 {
		t.Fatalf("expected no rooms, got %v", got)
	}
}

func TestUpdateUnknownRoom(t *testing.T) {
	reg := newRegistry()

	called := false
	if reg.Update("missing", func(*Room) { called = true }) || called {
		t.Fatalf("update of an unknown room must not run")
	}
}

func TestDeleteRoom(t *testing.T) {
	reg := newRegistry()
	reg.EnsureRoom("r1", DifficultyHard, epoch)

	var fired atomic.Bool
	reg.ScheduleCleanup("r1", 20*time.Millisecond, func(uint64) { fired.Store(true) })

	reg.DeleteRoom("r1")

	if _, ok := reg.Room("r1"); ok {
		t.Fatalf("room still present after delete")
	}
	if reg.PendingCleanups() != 0 {
		t.Fatalf("delete should drop the pending cleanup")
	}

	room, created := reg.EnsureRoom("r1", DifficultyMedium, epoch)
	if !created || room.Difficulty != DifficultyMedium {
		t.Fatalf("recreated room should start from fresh configuration, got %s", room.Difficulty)
	}

	time.Sleep(50 * time.Millisecond)
	if fired.Load() {
		t.Fatalf("cleanup fired after its room was deleted")
	}
}

func TestNames(t *testing.T) {
	reg := newRegistry()

	if _, ok := reg.Name("a"); ok {
		t.Fatalf("unexpected name for unknown connection")
	}

	reg.SetName("a", "Alice")
	reg.SetName("a", "Alicia")

	if name, _ := reg.Name("a"); name != "Alicia" {
		t.Fatalf("expected last write to win, got %q", name)
	}

	reg.ForgetName("a")
	if _, ok := reg.Name("a"); ok {
		t.Fatalf("name survived ForgetName")
	}
}

func TestScheduleCleanupReplacesPending(t *testing.T) {
	reg := newRegistry()

	fired := make(chan uint64, 2)
	reg.ScheduleCleanup("r1", time.Hour, func(gen uint64) { fired <- gen })
	reg.ScheduleCleanup("r1", 10*time.Millisecond, func(gen uint64) { fired <- gen })

	if reg.PendingCleanups() != 1 {
		t.Fatalf("expected a single pending cleanup, got %d", reg.PendingCleanups())
	}

	select {
	case gen := <-fired:
		if !reg.CleanupCurrent("r1", gen) {
			t.Fatalf("fired cleanup should be current")
		}
		if reg.CleanupCurrent("r1", gen-1) {
			t.Fatalf("replaced cleanup should not be current")
		}
	case <-time.After(time.Second):
		t.Fatalf("cleanup never fired")
	}
}

func TestCancelCleanup(t *testing.T) {
	reg := newRegistry()

	if reg.CancelCleanup("r1") {
		t.Fatalf("nothing to cancel yet")
	}

	var fired atomic.Bool
	reg.ScheduleCleanup("r1", 20*time.Millisecond, func(uint64) { fired.Store(true) })

	if !reg.CancelCleanup("r1") {
		t.Fatalf("expected the pending cleanup to be cancelled")
	}

	time.Sleep(50 * time.Millisecond)
	if fired.Load() {
		t.Fatalf("cancelled cleanup fired")
	}
}
