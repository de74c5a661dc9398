package core

import "sync"

type membership struct {
	client *Client
	room   string
	name   string
}

// Registry tracks which room each live connection belongs to.
// A connection is a member of at most one room at a time.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	members map[string]*membership
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:   make(map[string]*Room),
		members: make(map[string]*membership),
	}
}

// Join places the client in room, leaving its previous room if any.
// Joining the room the client is already in only updates the display name.
// It returns the previous room, or "" when the client was not joined.
func (r *Registry) Join(c *Client, room, displayName string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := ""
	if m, ok := r.members[c.ID]; ok {
		previous = m.room
		if m.room == room {
			m.name = displayName
			return previous
		}
		r.removeLocked(c.ID, m.room)
	}

	rm, ok := r.rooms[room]
	if !ok {
		rm = NewRoom(room)
		r.rooms[room] = rm
	}
	rm.AddClient(c)
	r.members[c.ID] = &membership{client: c, room: room, name: displayName}
	return previous
}

// Leave removes the connection from its room. Calling it for an unknown
// connection is a no-op that reports false.
func (r *Registry) Leave(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[connID]
	if !ok {
		return "", false
	}
	delete(r.members, connID)
	r.removeLocked(connID, m.room)
	return m.room, true
}

func (r *Registry) removeLocked(connID, room string) {
	rm, ok := r.rooms[room]
	if !ok {
		return
	}
	rm.RemoveClient(connID)
	if rm.Empty() {
		delete(r.rooms, room)
	}
}

// MembersOf returns the connection ids currently in room.
func (r *Registry) MembersOf(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[room]
	if !ok {
		return []string{}
	}
	return rm.Members()
}

// RoomOf returns the room the connection is joined to.
func (r *Registry) RoomOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[connID]
	if !ok {
		return "", false
	}
	return m.room, true
}

// DisplayName returns the name the connection joined with.
func (r *Registry) DisplayName(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[connID]
	if !ok {
		return "", false
	}
	return m.name, true
}

// Snapshot returns member counts per active room.
func (r *Registry) Snapshot() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int, len(r.rooms))
	for name, rm := range r.rooms {
		out[name] = rm.Len()
	}
	return out
}

// Connections returns the number of joined connections.
func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Broadcast delivers ev to every member of room and returns how many
// accepted it. Membership cannot change while delivery is in progress.
func (r *Registry) Broadcast(room string, ev *Event) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[room]
	if !ok {
		return 0
	}
	return rm.Broadcast(ev)
}

// Send delivers ev to a single joined connection.
func (r *Registry) Send(connID string, ev *Event) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[connID]
	if !ok {
		return false
	}
	return m.client.deliver(ev)
}
