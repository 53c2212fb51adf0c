package relay

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/drawbridge-app/drawbridge/internal/canvas"
	"github.com/drawbridge-app/drawbridge/internal/protocol"
	"github.com/drawbridge-app/drawbridge/internal/registry"
)

// Sender delivers an outbound event to a single connection. Delivery is
// fire-and-forget: sending to a connection that no longer exists must be
// a no-op on the transport side.
type Sender interface {
	Deliver(connectionID string, env protocol.Envelope)
}

// DefaultReadyTimeout is the fallback delay before the post-join
// broadcast fires when the joiner never signals ready.
const DefaultReadyTimeout = time.Second

// Relay owns the registry and the snapshot cache and turns each inbound
// event into state mutations plus a set of outbound deliveries. Events
// for the same room are linearized; different rooms proceed in parallel.
type Relay struct {
	registry     *registry.Registry
	boards       *canvas.Cache
	sender       Sender
	readyTimeout time.Duration

	mu      sync.Mutex
	roomMu  map[string]*sync.Mutex
	pending map[string]*pendingJoin // joining connectionID → armed post-join broadcast
}

// pendingJoin is a scheduled post-join broadcast. It fires exactly once,
// on the joiner's ready signal or on the timeout, whichever comes first.
// It is never cancelled: a scheduled broadcast always fires.
type pendingJoin struct {
	timer *time.Timer
	once  sync.Once
	fire  func()
}

func New(reg *registry.Registry, boards *canvas.Cache, sender Sender, readyTimeout time.Duration) *Relay {
	if readyTimeout <= 0 {
		readyTimeout = DefaultReadyTimeout
	}
	return &Relay{
		registry:     reg,
		boards:       boards,
		sender:       sender,
		readyTimeout: readyTimeout,
		roomMu:       make(map[string]*sync.Mutex),
		pending:      make(map[string]*pendingJoin),
	}
}

// HandleEvent dispatches a decoded envelope from the transport.
func (r *Relay) HandleEvent(connID string, env protocol.Envelope) {
	switch env.Event {
	case protocol.EventJoin:
		r.HandleJoin(connID, env.Payload)
	case protocol.EventReady:
		r.HandleReady(connID)
	case protocol.EventBoardUpdate:
		r.HandleBoardUpdate(connID, env.Payload)
	case protocol.EventChat:
		r.HandleChat(connID, env.Payload)
	default:
		slog.Debug("unknown event", "event", env.Event, "conn", connID)
	}
}

// HandleJoin registers the participant and answers with the full member
// list. Other room members get the refreshed list immediately; the
// member_joined notice and the room snapshot follow once the joiner is
// ready (see schedulePostJoin). A join from an already registered
// connection replaces its record; naming a different room moves it.
func (r *Relay) HandleJoin(connID string, raw json.RawMessage) {
	p, err := protocol.ParseJoin(raw)
	if err != nil {
		r.reject(connID, err)
		return
	}

	prevRoom := ""
	if prev, ok := r.registry.Get(connID); ok && prev.RoomID != p.RoomID {
		prevRoom = prev.RoomID
	}

	unlock := r.lockRooms(p.RoomID, prevRoom)
	defer unlock()

	part := registry.Participant{
		Name:         p.Name,
		UserID:       p.UserID,
		RoomID:       p.RoomID,
		Host:         p.Host,
		Presenter:    p.Presenter,
		ConnectionID: connID,
	}

	prev, hadPrev := r.registry.Get(connID)
	members := r.registry.Add(part)
	if hadPrev && prev.RoomID != part.RoomID {
		r.announceLeft(prev)
	}

	list := memberList(members)

	r.sender.Deliver(connID, protocol.NewEnvelope(protocol.EventJoinAck, protocol.JoinAckPayload{
		RoomID:  p.RoomID,
		Members: list,
	}))
	r.broadcast(members, connID, protocol.NewEnvelope(protocol.EventMembers, protocol.MembersPayload{
		Members: list,
	}))

	r.schedulePostJoin(part, list)

	slog.Info("participant joined", "room", p.RoomID, "name", p.Name, "conn", connID, "members", len(members))
}

// HandleReady releases the joiner's pending post-join broadcast ahead of
// the timeout. Ready with nothing pending is harmless.
func (r *Relay) HandleReady(connID string) {
	r.mu.Lock()
	pj := r.pending[connID]
	r.mu.Unlock()

	if pj == nil {
		return
	}
	pj.timer.Stop()
	pj.fire()
}

// HandleBoardUpdate overwrites the sender's room snapshot and fans the
// new payload out to the other members. The room is resolved from the
// sender's own participant record, never from any shared notion of the
// current room.
func (r *Relay) HandleBoardUpdate(connID string, raw json.RawMessage) {
	p, ok := r.registry.Get(connID)
	if !ok {
		// event racing its own disconnect; drop
		return
	}

	payload, err := protocol.ParseBoard(raw)
	if err != nil {
		r.reject(connID, err)
		return
	}

	unlock := r.lockRooms(p.RoomID, "")
	defer unlock()

	if cur, ok := r.registry.Get(connID); !ok || cur.RoomID != p.RoomID {
		return // left or moved while waiting for the room lock
	}

	r.boards.Put(p.RoomID, payload.Data)
	r.broadcast(r.registry.MembersOf(p.RoomID), connID,
		protocol.NewEnvelope(protocol.EventBoardSync, payload))
}

// HandleChat relays a chat message to the other members of the sender's
// room, tagged with the sender's display name.
func (r *Relay) HandleChat(connID string, raw json.RawMessage) {
	p, ok := r.registry.Get(connID)
	if !ok {
		return
	}

	payload, err := protocol.ParseChat(raw)
	if err != nil {
		r.reject(connID, err)
		return
	}

	unlock := r.lockRooms(p.RoomID, "")
	defer unlock()

	r.broadcast(r.registry.MembersOf(p.RoomID), connID,
		protocol.NewEnvelope(protocol.EventChatMessage, protocol.ChatMessagePayload{
			Text: payload.Text,
			From: p.Name,
		}))
}

// HandleDisconnect removes the participant and tells the remaining room
// members. A disconnect for an unknown connection is a silent no-op.
func (r *Relay) HandleDisconnect(connID string) {
	p, ok := r.registry.Get(connID)
	if !ok {
		return
	}

	unlock := r.lockRooms(p.RoomID, "")
	defer unlock()

	gone, ok := r.registry.Remove(connID)
	if !ok {
		return
	}
	r.announceLeft(gone)

	slog.Info("participant left", "room", gone.RoomID, "name", gone.Name, "conn", connID)
}

// schedulePostJoin arms the second join broadcast: the member_joined
// notice plus the room's current snapshot, held back until the joiner
// has finished its own subscription setup so the broadcast doesn't race
// it. A re-join supersedes the pending entry without cancelling it.
func (r *Relay) schedulePostJoin(p registry.Participant, list []protocol.MemberInfo) {
	pj := &pendingJoin{}
	pj.fire = func() {
		pj.once.Do(func() {
			r.firePostJoin(p, list)

			r.mu.Lock()
			if r.pending[p.ConnectionID] == pj {
				delete(r.pending, p.ConnectionID)
			}
			r.mu.Unlock()
		})
	}
	pj.timer = time.AfterFunc(r.readyTimeout, pj.fire)

	r.mu.Lock()
	r.pending[p.ConnectionID] = pj
	r.mu.Unlock()
}

func (r *Relay) firePostJoin(p registry.Participant, list []protocol.MemberInfo) {
	unlock := r.lockRooms(p.RoomID, "")
	defer unlock()

	notice := protocol.NewEnvelope(protocol.EventMemberJoined, protocol.MemberJoinedPayload{
		Name:    p.Name,
		UserID:  p.UserID,
		Members: list,
	})
	// Data stays null when the room has no snapshot yet; clients render
	// that as "no updates", not as a blank board.
	snapshot, _ := r.boards.Get(p.RoomID)
	board := protocol.NewEnvelope(protocol.EventBoardSync, protocol.BoardPayload{Data: snapshot})

	for _, m := range r.registry.MembersOf(p.RoomID) {
		if m.ConnectionID == p.ConnectionID {
			continue
		}
		r.sender.Deliver(m.ConnectionID, notice)
		r.sender.Deliver(m.ConnectionID, board)
	}
}

// announceLeft broadcasts the departure to whoever remains in the room
// and evicts the room's snapshot once nobody does. Callers hold the room
// lock.
func (r *Relay) announceLeft(p registry.Participant) {
	remaining := r.registry.MembersOf(p.RoomID)
	if len(remaining) == 0 {
		r.boards.Evict(p.RoomID)
		// Drop the room's mutex too; a later join rebuilds it on demand.
		// The caller's unlock still works on the detached mutex.
		r.mu.Lock()
		delete(r.roomMu, p.RoomID)
		r.mu.Unlock()
		return
	}
	env := protocol.NewEnvelope(protocol.EventMemberLeft, protocol.MemberLeftPayload{
		Name:   p.Name,
		UserID: p.UserID,
	})
	for _, m := range remaining {
		r.sender.Deliver(m.ConnectionID, env)
	}
}

// broadcast fans an event out to every member except the originating
// connection.
func (r *Relay) broadcast(members []registry.Participant, senderID string, env protocol.Envelope) {
	for _, m := range members {
		if m.ConnectionID == senderID {
			continue
		}
		r.sender.Deliver(m.ConnectionID, env)
	}
}

// reject answers a malformed payload with an error ack to the offending
// connection only. No state was mutated.
func (r *Relay) reject(connID string, err error) {
	slog.Debug("rejected event", "conn", connID, "reason", err)
	r.sender.Deliver(connID, protocol.NewEnvelope(protocol.EventError, protocol.ErrorPayload{
		Reason: err.Error(),
	}))
}

func (r *Relay) roomLock(roomID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.roomMu[roomID]
	if !ok {
		m = &sync.Mutex{}
		r.roomMu[roomID] = m
	}
	return m
}

// lockRooms locks one or two room mutexes in a stable order so a re-join
// moving between rooms cannot deadlock against a move in the opposite
// direction. The second room may be empty.
func (r *Relay) lockRooms(a, b string) func() {
	if b == "" || a == b {
		m := r.roomLock(a)
		m.Lock()
		return m.Unlock
	}
	if b < a {
		a, b = b, a
	}
	ma, mb := r.roomLock(a), r.roomLock(b)
	ma.Lock()
	mb.Lock()
	return func() {
		mb.Unlock()
		ma.Unlock()
	}
}

func memberList(members []registry.Participant) []protocol.MemberInfo {
	list := make([]protocol.MemberInfo, 0, len(members))
	for _, m := range members {
		list = append(list, protocol.MemberInfo{
			Name:      m.Name,
			UserID:    m.UserID,
			Host:      m.Host,
			Presenter: m.Presenter,
		})
	}
	return list
}
