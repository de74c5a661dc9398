package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin    = "join"
	InboundTypeSend    = "send"
	InboundTypeHistory = "history"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNameWelcome = "welcome"
	EventNameMessage = "message"
	EventNameHistory = "history"
	EventNameWarning = "warning"
)

// JoinData requests to join a room. An empty room means the default one.
type JoinData struct {
	Room        string `json:"room,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// SendData is a chat message from the client.
type SendData struct {
	Room      string `json:"room,omitempty"`
	AuthorRef *int64 `json:"author_ref,omitempty"`
	Body      string `json:"body"`
	ClientID  string `json:"client_id,omitempty"`
}

// HistoryData asks for recent messages of a room.
type HistoryData struct {
	Room  string `json:"room,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage is a persisted or system message as seen on the wire.
//
// The welcome event is sent before its row is written, so it has no ID.
// Clients must not key welcomes by ID; ClientID echoes the sender's
// temporary id on its own messages only.
type EventMessage struct {
	ID        int64  `json:"id,omitempty"`
	Room      string `json:"room"`
	AuthorRef *int64 `json:"author_ref,omitempty"`
	Author    string `json:"author,omitempty"`
	Body      string `json:"body"`
	Kind      string `json:"kind"`
	TS        int64  `json:"ts"`
	ClientID  string `json:"client_id,omitempty"`
}

// EventHistory carries recent messages, oldest first.
type EventHistory struct {
	Room     string         `json:"room"`
	Messages []EventMessage `json:"messages"`
}

// EventWarning reports a non-fatal problem.
type EventWarning struct {
	Room string `json:"room,omitempty"`
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Op   string `json:"op,omitempty"`
}
