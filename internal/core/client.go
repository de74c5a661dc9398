package core

const (
	commandBuffer = 16
	eventBuffer   = 64
)

// Client is a live connection as seen by the core layer.
type Client struct {
	ID string
	// Name is the fallback display name when a join carries none.
	Name     string
	Commands chan *Command
	Events   chan *Event
}

// NewClient constructs a client with initialized channels.
func NewClient(id, name string) *Client {
	return &Client{
		ID:       id,
		Name:     name,
		Commands: make(chan *Command, commandBuffer),
		Events:   make(chan *Event, eventBuffer),
	}
}

// deliver hands an event to the client without blocking.
// It reports false when the client's buffer is full.
func (c *Client) deliver(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
