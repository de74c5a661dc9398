package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventWelcome is the private system message sent after a join.
	EventWelcome EventKind = iota
	// EventRoomMessage notifies room members about a persisted message.
	EventRoomMessage
	// EventHistory delivers recent messages to the requesting client.
	EventHistory
	// EventWarning reports a non-fatal problem to one client.
	EventWarning
	// EventError notifies a client that its request failed.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Room     string
	Message  Message
	Messages []Message // For EventHistory
	ClientID string    // For EventRoomMessage
	Error    *CoreError
}
