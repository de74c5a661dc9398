package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom moves the client into a room.
	CommandJoinRoom CommandKind = iota
	// CommandSendRoomMessage persists a message and broadcasts it to the room.
	CommandSendRoomMessage
	// CommandHistory asks for the latest messages of a room.
	CommandHistory
)

func (k CommandKind) String() string {
	switch k {
	case CommandJoinRoom:
		return "join"
	case CommandSendRoomMessage:
		return "send"
	case CommandHistory:
		return "history"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind        CommandKind
	Room        string
	DisplayName string
	AuthorRef   *int64
	Body        string
	// ClientID is the sender's provisional message id, echoed on broadcast.
	ClientID string
	Limit    int
}
