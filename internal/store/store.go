package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultHistoryLimit is used when a caller asks for a non-positive number of messages.
	DefaultHistoryLimit = 50
	// MaxHistoryLimit bounds a single history read.
	MaxHistoryLimit = 200
)

// MessageKind distinguishes user-authored messages from server-synthesized ones.
type MessageKind string

const (
	MessageKindText   MessageKind = "text"
	MessageKindSystem MessageKind = "system"
)

// Valid reports whether k is a known kind.
func (k MessageKind) Valid() bool {
	return k == MessageKindText || k == MessageKindSystem
}

// Message represents a persisted chat message. It is immutable once stored.
type Message struct {
	ID        int64
	Room      string
	AuthorID  *int64 // nil for system messages or when the author row was deleted
	Author    string
	Body      string
	Kind      MessageKind
	CreatedAt time.Time
}

// NewMessage is the input for Append. ID and CreatedAt are assigned by the store.
type NewMessage struct {
	Room     string
	AuthorID *int64
	Author   string
	Body     string
	Kind     MessageKind
}

// User is a row of the weakly referenced users table.
type User struct {
	ID        int64
	Username  string
	CreatedAt time.Time
}

// ErrUnavailable is matched by every StorageError.
var ErrUnavailable = errors.New("storage unavailable")

// StorageError wraps any failure of the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + ErrUnavailable.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrUnavailable) true for any StorageError.
func (e *StorageError) Is(target error) bool {
	return target == ErrUnavailable
}

// Wrap returns err as a *StorageError tagged with op. Nil stays nil, and an
// existing StorageError is returned unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// ClampLimit normalizes a requested history size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}

// Reverse flips a newest-first slice into chronological order in place.
func Reverse(messages []*Message) {
	for i := range len(messages) / 2 {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}
}

// MessageStore handles message persistence.
type MessageStore interface {
	// Append durably stores a message and returns it with ID and CreatedAt set.
	Append(ctx context.Context, msg NewMessage) (*Message, error)

	// Recent returns up to limit latest messages of a room, oldest first.
	// The limit is clamped with ClampLimit. An unknown room yields an empty slice.
	Recent(ctx context.Context, room string, limit int) ([]*Message, error)
}

// UserStore handles the users table that messages reference.
type UserStore interface {
	// CreateUser inserts a user with a unique username.
	CreateUser(ctx context.Context, username string) (*User, error)

	// DeleteUser removes a user. Their messages keep existing with a nil AuthorID.
	DeleteUser(ctx context.Context, id int64) error
}

// Inspector exposes read-only diagnostics used by health endpoints.
type Inspector interface {
	Ping(ctx context.Context) error
	ListTables(ctx context.Context) ([]string, error)
	CountUsers(ctx context.Context) (int64, error)
	CountMessages(ctx context.Context) (int64, error)
	CountRooms(ctx context.Context) (int64, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	MessageStore
	UserStore
	Inspector

	// Close closes the underlying database connection.
	Close() error
}
