// Package memory is a process-local store.Store. Nothing survives a restart.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vovakirdan/relaychat/internal/store"
)

// Store keeps messages per room in append order.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	nextUser int64
	rooms    map[string][]*store.Message
	users    map[int64]*store.User
	failure  error
	closed   bool
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		rooms: make(map[string][]*store.Message),
		users: make(map[int64]*store.User),
	}
}

// SetFailure makes every following operation fail with err wrapped as a
// storage error. Pass nil to recover.
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

func (s *Store) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return store.Wrap(op, err)
	}
	if s.closed {
		return store.Wrap(op, errors.New("store is closed"))
	}
	if s.failure != nil {
		return store.Wrap(op, s.failure)
	}
	return nil
}

// Append stores a copy of the message.
func (s *Store) Append(ctx context.Context, in store.NewMessage) (*store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "insert message"); err != nil {
		return nil, err
	}
	if in.Body == "" {
		return nil, store.Wrap("insert message", errors.New("constraint failed: empty body"))
	}
	if !in.Kind.Valid() {
		return nil, store.Wrap("insert message", fmt.Errorf("constraint failed: kind %q", in.Kind))
	}
	if in.AuthorID != nil {
		if _, ok := s.users[*in.AuthorID]; !ok {
			return nil, store.Wrap("insert message", errors.New("constraint failed: unknown author"))
		}
	}

	s.nextID++
	msg := &store.Message{
		ID:        s.nextID,
		Room:      in.Room,
		AuthorID:  copyID(in.AuthorID),
		Author:    in.Author,
		Body:      in.Body,
		Kind:      in.Kind,
		CreatedAt: time.Now().UTC(),
	}
	s.rooms[in.Room] = append(s.rooms[in.Room], msg)

	out := *msg
	out.AuthorID = copyID(msg.AuthorID)
	return &out, nil
}

// Recent returns copies of the latest messages of a room, oldest first.
func (s *Store) Recent(ctx context.Context, room string, limit int) ([]*store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx, "query messages"); err != nil {
		return nil, err
	}

	all := s.rooms[room]
	limit = store.ClampLimit(limit)
	start := max(len(all)-limit, 0)

	out := make([]*store.Message, 0, len(all)-start)
	for _, m := range all[start:] {
		cp := *m
		cp.AuthorID = copyID(m.AuthorID)
		if cp.AuthorID != nil {
			if u, ok := s.users[*cp.AuthorID]; ok {
				cp.Author = u.Username
			}
		}
		out = append(out, &cp)
	}
	return out, nil
}

// CreateUser adds a user with a unique username.
func (s *Store) CreateUser(ctx context.Context, username string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "insert user"); err != nil {
		return nil, err
	}
	for _, u := range s.users {
		if u.Username == username {
			return nil, store.Wrap("insert user", errors.New("constraint failed: username taken"))
		}
	}

	s.nextUser++
	u := &store.User{ID: s.nextUser, Username: username, CreatedAt: time.Now().UTC()}
	s.users[u.ID] = u
	cp := *u
	return &cp, nil
}

// DeleteUser removes a user and clears their author references.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "delete user"); err != nil {
		return err
	}
	if _, ok := s.users[id]; !ok {
		return store.Wrap("delete user", fmt.Errorf("user %d not found", id))
	}
	delete(s.users, id)

	// Stored messages are replaced rather than mutated so copies handed out
	// earlier stay untouched.
	for room, msgs := range s.rooms {
		for i, m := range msgs {
			if m.AuthorID != nil && *m.AuthorID == id {
				cp := *m
				cp.AuthorID = nil
				s.rooms[room][i] = &cp
			}
		}
	}
	return nil
}

// Ping fails only when a failure is injected or the store is closed.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check(ctx, "ping")
}

// ListTables mirrors the SQL schema.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx, "list tables"); err != nil {
		return nil, err
	}
	tables := []string{"users", "messages"}
	sort.Strings(tables)
	return tables, nil
}

// CountUsers returns the number of users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx, "count users"); err != nil {
		return 0, err
	}
	return int64(len(s.users)), nil
}

// CountMessages returns the number of messages across rooms.
func (s *Store) CountMessages(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx, "count messages"); err != nil {
		return 0, err
	}
	var n int64
	for _, msgs := range s.rooms {
		n += int64(len(msgs))
	}
	return n, nil
}

// CountRooms returns the number of rooms holding messages.
func (s *Store) CountRooms(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx, "count rooms"); err != nil {
		return 0, err
	}
	return int64(len(s.rooms)), nil
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
