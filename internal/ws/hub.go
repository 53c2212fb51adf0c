package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/drawbridge-app/drawbridge/internal/protocol"
	"github.com/drawbridge-app/drawbridge/internal/ratelimit"
	"github.com/drawbridge-app/drawbridge/internal/relay"
)

// Hub tracks live websocket connections by connection ID and carries the
// outbound events the relay chooses to their targets. It holds no room
// state; the relay's registry owns that.
type Hub struct {
	relay    *relay.Relay
	limiters *ratelimit.Pool

	mu    sync.RWMutex
	conns map[string]*Client
}

func NewHub(limiters *ratelimit.Pool) *Hub {
	return &Hub{
		limiters: limiters,
		conns:    make(map[string]*Client),
	}
}

// Bind attaches the relay that inbound events are dispatched to. Called
// once during startup, before any connection is served.
func (h *Hub) Bind(r *relay.Relay) {
	h.relay = r
}

// Deliver implements relay.Sender. Unknown connection IDs are a no-op
// and a full send buffer drops the event; delivery is best effort.
func (h *Hub) Deliver(connectionID string, env protocol.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}

	// Send while holding the read lock: remove closes the channel under
	// the write lock, so a close can never interleave with this send.
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.conns[connectionID]
	if !ok {
		return
	}

	select {
	case client.send <- data:
	default:
		slog.Warn("send buffer full, dropping event", "conn", connectionID, "event", env.Event)
	}
}

// ConnCount returns the number of open connections, joined or not.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.connID] = c
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if cur, ok := h.conns[c.connID]; ok && cur == c {
		delete(h.conns, c.connID)
		close(c.send)
	}
	h.mu.Unlock()

	h.limiters.Remove(c.connID)
}
