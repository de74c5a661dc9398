package core

import "sort"

// Room groups clients subscribed to the same channel, keyed by connection id.
type Room struct {
	Name    string
	clients map[string]*Client
}

// NewRoom constructs a room with no clients.
func NewRoom(name string) *Room {
	return &Room{
		Name:    name,
		clients: make(map[string]*Client),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c.ID]; exists {
		return false
	}
	r.clients[c.ID] = c
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(id string) bool {
	if _, exists := r.clients[id]; !exists {
		return false
	}
	delete(r.clients, id)
	return true
}

// Broadcast sends an event to all clients in the room and returns how many
// accepted it. Slow consumers are skipped.
func (r *Room) Broadcast(event *Event) int {
	delivered := 0
	for _, client := range r.clients {
		if client.deliver(event) {
			delivered++
		}
	}
	return delivered
}

// Members returns the connection ids in the room, sorted.
func (r *Room) Members() []string {
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of clients in the room.
func (r *Room) Len() int {
	return len(r.clients)
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
