package registry

import (
	"fmt"
	"sync"
	"testing"
)

func TestAddReturnsRoomMembers(t *testing.T) {
	r := New()

	members := r.Add(Participant{Name: "alice", UserID: "u1", RoomID: "r1", Host: true, ConnectionID: "c1"})
	if len(members) != 1 {
		t.Fatalf("Expected 1 member, got %d", len(members))
	}

	members = r.Add(Participant{Name: "bob", UserID: "u2", RoomID: "r1", ConnectionID: "c2"})
	if len(members) != 2 {
		t.Fatalf("Expected 2 members, got %d", len(members))
	}
}

func TestAddIdempotentPerConnection(t *testing.T) {
	r := New()

	r.Add(Participant{Name: "alice", RoomID: "r1", ConnectionID: "c1"})
	members := r.Add(Participant{Name: "alice", RoomID: "r1", ConnectionID: "c1"})

	if len(members) != 1 {
		t.Errorf("Expected 1 member after duplicate join, got %d", len(members))
	}
}

func TestAddReplacesRecord(t *testing.T) {
	r := New()

	r.Add(Participant{Name: "alice", RoomID: "r1", ConnectionID: "c1"})
	r.Add(Participant{Name: "alice", RoomID: "r1", Presenter: true, ConnectionID: "c1"})

	p, ok := r.Get("c1")
	if !ok {
		t.Fatal("Participant should exist")
	}
	if !p.Presenter {
		t.Error("Replacement record should have presenter set")
	}
}

func TestAddMovesBetweenRooms(t *testing.T) {
	r := New()

	r.Add(Participant{Name: "alice", RoomID: "r1", ConnectionID: "c1"})
	r.Add(Participant{Name: "bob", RoomID: "r1", ConnectionID: "c2"})

	r.Add(Participant{Name: "alice", RoomID: "r2", ConnectionID: "c1"})

	if got := len(r.MembersOf("r1")); got != 1 {
		t.Errorf("Expected 1 member left in r1, got %d", got)
	}
	if got := len(r.MembersOf("r2")); got != 1 {
		t.Errorf("Expected 1 member in r2, got %d", got)
	}
	p, _ := r.Get("c1")
	if p.RoomID != "r2" {
		t.Errorf("Expected c1 in room r2, got %s", p.RoomID)
	}
}

func TestRemove(t *testing.T) {
	r := New()

	r.Add(Participant{Name: "alice", RoomID: "r1", ConnectionID: "c1"})

	p, ok := r.Remove("c1")
	if !ok {
		t.Fatal("Remove should find the participant")
	}
	if p.Name != "alice" {
		t.Errorf("Expected removed participant alice, got %s", p.Name)
	}

	if _, ok := r.Get("c1"); ok {
		t.Error("Participant should be gone after removal")
	}
	if got := len(r.MembersOf("r1")); got != 0 {
		t.Errorf("Expected empty room after removal, got %d members", got)
	}
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	r := New()

	if _, ok := r.Remove("ghost"); ok {
		t.Error("Removing an unknown connection should report absent")
	}
}

func TestMembersOfIsolation(t *testing.T) {
	r := New()

	r.Add(Participant{Name: "alice", RoomID: "r1", ConnectionID: "c1"})
	r.Add(Participant{Name: "bob", RoomID: "r2", ConnectionID: "c2"})

	for _, m := range r.MembersOf("r1") {
		if m.RoomID != "r1" {
			t.Errorf("MembersOf(r1) returned participant from %s", m.RoomID)
		}
	}
	if len(r.MembersOf("r1")) != 1 || len(r.MembersOf("r2")) != 1 {
		t.Error("Each room should have exactly one member")
	}
}

func TestRoomsAndCount(t *testing.T) {
	r := New()

	r.Add(Participant{RoomID: "r1", ConnectionID: "c1"})
	r.Add(Participant{RoomID: "r1", ConnectionID: "c2"})
	r.Add(Participant{RoomID: "r2", ConnectionID: "c3"})

	rooms := r.Rooms()
	if len(rooms) != 2 {
		t.Fatalf("Expected 2 rooms, got %d", len(rooms))
	}
	if rooms["r1"] != 2 || rooms["r2"] != 1 {
		t.Errorf("Unexpected member counts: %v", rooms)
	}
	if r.Count() != 3 {
		t.Errorf("Expected 3 participants, got %d", r.Count())
	}

	r.Remove("c3")
	if _, ok := r.Rooms()["r2"]; ok {
		t.Error("Empty room should be dropped from the index")
	}
}

func TestConcurrentAdds(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Add(Participant{RoomID: "r1", ConnectionID: fmt.Sprintf("c%d", i)})
		}(i)
	}
	wg.Wait()

	if got := len(r.MembersOf("r1")); got != 100 {
		t.Errorf("Expected 100 members, got %d", got)
	}
}
