package assistant

import (
	"sync"

	"github.com/gammazero/deque"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultHistorySize is the number of turns kept per user.
const DefaultHistorySize = 10

// Turn is one entry of a conversation.
type Turn struct {
	Role    Role
	Content string
}

// History keeps the latest turns of every user. Appending past the cap
// evicts the oldest turn.
type History struct {
	mu    sync.Mutex
	size  int
	users map[string]*deque.Deque[Turn]
}

// NewHistory returns a history holding at most size turns per user.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		size:  size,
		users: make(map[string]*deque.Deque[Turn]),
	}
}

// Append records a turn for user.
func (h *History) Append(user string, turn Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	q, ok := h.users[user]
	if !ok {
		q = new(deque.Deque[Turn])
		h.users[user] = q
	}
	q.PushBack(turn)
	for q.Len() > h.size {
		q.PopFront()
	}
}

// Turns returns a copy of the user's turns, oldest first.
func (h *History) Turns(user string) []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()

	q, ok := h.users[user]
	if !ok {
		return nil
	}
	out := make([]Turn, q.Len())
	for i := range out {
		out[i] = q.At(i)
	}
	return out
}

// Clear forgets everything about user.
func (h *History) Clear(user string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if q, ok := h.users[user]; ok {
		q.Clear()
		delete(h.users, user)
	}
}

// Users returns how many users have a history.
func (h *History) Users() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.users)
}
