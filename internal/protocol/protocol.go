package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound event names (client → server)
const (
	EventJoin        = "join"
	EventReady       = "ready"
	EventBoardUpdate = "board_update"
	EventChat        = "chat"
)

// Outbound event names (server → client)
const (
	EventJoinAck      = "join_ack"
	EventMembers      = "members"
	EventMemberJoined = "member_joined"
	EventBoardSync    = "board_sync"
	EventChatMessage  = "chat_message"
	EventMemberLeft   = "member_left"
	EventError        = "error"
)

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope wraps a payload struct into an envelope. A nil payload
// produces an envelope with no payload field.
func NewEnvelope(event string, payload any) Envelope {
	env := Envelope{Event: event}
	if payload != nil {
		data, _ := json.Marshal(payload)
		env.Payload = data
	}
	return env
}

// Decode parses a raw websocket frame into an envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, errors.New("malformed envelope: missing event name")
	}
	return env, nil
}

// JoinPayload is the identity a client announces when entering a room.
type JoinPayload struct {
	Name      string `json:"name"`
	UserID    string `json:"userId"`
	RoomID    string `json:"roomId"`
	Host      bool   `json:"host"`
	Presenter bool   `json:"presenter"`
}

func ParseJoin(raw json.RawMessage) (JoinPayload, error) {
	var p JoinPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return JoinPayload{}, fmt.Errorf("join: malformed payload: %w", err)
	}
	if p.RoomID == "" {
		return JoinPayload{}, errors.New("join: roomId is required")
	}
	if p.Name == "" {
		return JoinPayload{}, errors.New("join: name is required")
	}
	return p, nil
}

// BoardPayload carries an opaque whiteboard snapshot. In a board_sync for
// a room with no snapshot yet, Data is null.
type BoardPayload struct {
	Data json.RawMessage `json:"data"`
}

func ParseBoard(raw json.RawMessage) (BoardPayload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return BoardPayload{}, fmt.Errorf("board_update: malformed payload: %w", err)
	}
	data, ok := fields["data"]
	if !ok {
		return BoardPayload{}, errors.New("board_update: data is required")
	}
	return BoardPayload{Data: data}, nil
}

// ChatPayload is an inbound chat message.
type ChatPayload struct {
	Text string `json:"text"`
}

func ParseChat(raw json.RawMessage) (ChatPayload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ChatPayload{}, fmt.Errorf("chat: malformed payload: %w", err)
	}
	textRaw, ok := fields["text"]
	if !ok {
		return ChatPayload{}, errors.New("chat: text is required")
	}
	var text string
	if err := json.Unmarshal(textRaw, &text); err != nil {
		return ChatPayload{}, fmt.Errorf("chat: malformed text: %w", err)
	}
	return ChatPayload{Text: text}, nil
}

// MemberInfo is the client-visible view of one room member.
type MemberInfo struct {
	Name      string `json:"name"`
	UserID    string `json:"userId"`
	Host      bool   `json:"host"`
	Presenter bool   `json:"presenter"`
}

type JoinAckPayload struct {
	RoomID  string       `json:"roomId"`
	Members []MemberInfo `json:"members"`
}

type MembersPayload struct {
	Members []MemberInfo `json:"members"`
}

type MemberJoinedPayload struct {
	Name    string       `json:"name"`
	UserID  string       `json:"userId"`
	Members []MemberInfo `json:"members"`
}

type ChatMessagePayload struct {
	Text string `json:"text"`
	From string `json:"from"`
}

type MemberLeftPayload struct {
	Name   string `json:"name"`
	UserID string `json:"userId"`
}

type ErrorPayload struct {
	Reason string `json:"reason"`
}
