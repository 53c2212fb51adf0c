package registry

import (
	"sort"
	"sync"
)

// Participant is one live connection's membership record within a room.
type Participant struct {
	Name         string
	UserID       string
	RoomID       string
	Host         bool
	Presenter    bool
	ConnectionID string
}

// Registry maps transport connection IDs to participant records and keeps
// a per-room membership index. ConnectionID is the primary key; UserID is
// caller-chosen and may collide across reconnects, so it is never used
// for lookups.
type Registry struct {
	mu           sync.RWMutex
	participants map[string]Participant
	rooms        map[string]map[string]struct{} // roomID → set of connectionIDs
}

func New() *Registry {
	return &Registry{
		participants: make(map[string]Participant),
		rooms:        make(map[string]map[string]struct{}),
	}
}

// Add inserts or replaces the record keyed by its ConnectionID and
// returns the current member set of the record's room. Replacing a record
// that named a different room moves the connection between rooms.
func (r *Registry) Add(p Participant) []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.participants[p.ConnectionID]; ok && prev.RoomID != p.RoomID {
		r.dropFromRoom(prev.RoomID, p.ConnectionID)
	}

	r.participants[p.ConnectionID] = p
	if _, ok := r.rooms[p.RoomID]; !ok {
		r.rooms[p.RoomID] = make(map[string]struct{})
	}
	r.rooms[p.RoomID][p.ConnectionID] = struct{}{}

	return r.membersLocked(p.RoomID)
}

// Get looks up the participant for a connection. A missing record is a
// normal outcome, not an error.
func (r *Registry) Get(connectionID string) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[connectionID]
	return p, ok
}

// Remove deletes and returns the record if present. Removing an unknown
// connection is a no-op.
func (r *Registry) Remove(connectionID string) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[connectionID]
	if !ok {
		return Participant{}, false
	}
	delete(r.participants, connectionID)
	r.dropFromRoom(p.RoomID, connectionID)
	return p, true
}

// MembersOf returns the current members of a room. The slice is a copy
// and safe to retain.
func (r *Registry) MembersOf(roomID string) []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.membersLocked(roomID)
}

// Rooms returns a snapshot of room IDs with their member counts.
func (r *Registry) Rooms() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int, len(r.rooms))
	for roomID, members := range r.rooms {
		counts[roomID] = len(members)
	}
	return counts
}

// Count returns the total number of live participants.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

func (r *Registry) membersLocked(roomID string) []Participant {
	set, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	members := make([]Participant, 0, len(set))
	for connID := range set {
		members = append(members, r.participants[connID])
	}
	// Stable ordering so member lists don't shuffle between broadcasts
	sort.Slice(members, func(i, j int) bool {
		return members[i].ConnectionID < members[j].ConnectionID
	})
	return members
}

func (r *Registry) dropFromRoom(roomID, connectionID string) {
	if set, ok := r.rooms[roomID]; ok {
		delete(set, connectionID)
		if len(set) == 0 {
			delete(r.rooms, roomID)
		}
	}
}
