package canvas

import (
	"encoding/json"
	"sync"
)

// Cache holds the last broadcast whiteboard snapshot for each room, used
// to prime late joiners. At most one snapshot exists per room; every
// update overwrites it. A room with no snapshot is distinct from a room
// whose snapshot is an empty payload.
type Cache struct {
	mu        sync.RWMutex
	snapshots map[string]json.RawMessage
}

func NewCache() *Cache {
	return &Cache{
		snapshots: make(map[string]json.RawMessage),
	}
}

// Put overwrites the room's snapshot.
func (c *Cache) Put(roomID string, payload json.RawMessage) {
	// Copy so callers can't mutate the stored snapshot afterwards
	stored := make(json.RawMessage, len(payload))
	copy(stored, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[roomID] = stored
}

// Get returns the room's snapshot. The second return value is false when
// the room has never had an update (or was evicted).
func (c *Cache) Get(roomID string) (json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	payload, ok := c.snapshots[roomID]
	return payload, ok
}

// Evict drops the room's snapshot. Called when a room empties.
func (c *Cache) Evict(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, roomID)
}
