package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/store"
)

const (
	maxRoomNameLength    = 50
	maxDisplayNameLength = 64
	anonymousName        = "anonymous"
)

// Options tunes the relay.
type Options struct {
	DefaultRoom   string
	StoreTimeout  time.Duration
	MaxBodyLength int
}

// DefaultOptions returns the relay defaults.
func DefaultOptions() Options {
	return Options{
		DefaultRoom:   "general",
		StoreTimeout:  5 * time.Second,
		MaxBodyLength: 2000,
	}
}

// Relay accepts client actions, persists messages and fans them out to the
// members of a room.
//
// Append and broadcast for a room happen under the same per-room lock, so
// every member observes messages in persistence order.
type Relay struct {
	registry  *Registry
	store     store.MessageStore
	log       *zerolog.Logger
	opts      Options
	roomLocks *xsync.MapOf[string, *roomLock]
}

// roomLock serializes writes to one room. Entries are reference counted and
// dropped when no operation holds or waits on them.
type roomLock struct {
	mu   sync.Mutex
	refs int
}

// NewRelay wires a relay to its registry and message store.
func NewRelay(registry *Registry, st store.MessageStore, logger *zerolog.Logger, opts Options) *Relay {
	def := DefaultOptions()
	if opts.DefaultRoom == "" {
		opts.DefaultRoom = def.DefaultRoom
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = def.StoreTimeout
	}
	if opts.MaxBodyLength <= 0 {
		opts.MaxBodyLength = def.MaxBodyLength
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Relay{
		registry:  registry,
		store:     st,
		log:       logger,
		opts:      opts,
		roomLocks: xsync.NewMapOf[string, *roomLock](),
	}
}

// Registry exposes the membership table.
func (r *Relay) Registry() *Registry {
	return r.registry
}

// Serve consumes client commands until the context is cancelled or the
// command channel is closed.
func (r *Relay) Serve(ctx context.Context, c *Client) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-c.Commands:
			if !ok {
				return nil
			}
			r.Dispatch(ctx, c, cmd)
		}
	}
}

// Dispatch runs a single command. Failures are reported to the client as
// events; the returned error is only for logging and tests.
func (r *Relay) Dispatch(ctx context.Context, c *Client, cmd *Command) error {
	if cmd == nil {
		return nil
	}
	switch cmd.Kind {
	case CommandJoinRoom:
		return r.HandleJoin(ctx, c, cmd.Room, cmd.DisplayName)
	case CommandSendRoomMessage:
		_, err := r.HandleSend(ctx, c, cmd.Room, cmd.AuthorRef, cmd.Body, cmd.ClientID)
		return err
	case CommandHistory:
		_, err := r.HandleHistory(ctx, c, cmd.Room, cmd.Limit)
		return err
	default:
		cerr := &CoreError{Code: ErrCodeBadRequest, Message: "unknown command", Op: cmd.Kind.String()}
		r.emitError(c, cerr)
		return cerr
	}
}

// HandleJoin moves the client into room and greets it privately.
// The greeting is delivered before it is persisted; a failed write only
// produces a warning.
func (r *Relay) HandleJoin(ctx context.Context, c *Client, room, displayName string) error {
	name, cerr := r.resolveRoom("join", room)
	if cerr != nil {
		r.emitError(c, cerr)
		return cerr
	}
	displayName = r.displayName(c, displayName)

	previous := r.registry.Join(c, name, displayName)
	r.log.Info().
		Str("conn_id", c.ID).
		Str("room", name).
		Str("previous", previous).
		Str("name", displayName).
		Msg("client joined room")

	welcome := Message{
		Room:      name,
		Author:    "system",
		Body:      fmt.Sprintf("Welcome to room %s! 🎉", name),
		Kind:      store.MessageKindSystem,
		CreatedAt: time.Now().UTC(),
	}
	if !c.deliver(&Event{Kind: EventWelcome, Room: name, Message: welcome}) {
		r.log.Warn().Str("conn_id", c.ID).Msg("welcome dropped, client buffer full")
	}

	_, err := r.appendLocked(ctx, store.NewMessage{
		Room:   name,
		Author: welcome.Author,
		Body:   welcome.Body,
		Kind:   store.MessageKindSystem,
	})
	if err != nil {
		r.log.Warn().Err(err).Str("conn_id", c.ID).Str("room", name).Msg("welcome not persisted")
		c.deliver(&Event{
			Kind: EventWarning,
			Room: name,
			Error: &CoreError{
				Code:    ErrCodeWelcomeNotPersisted,
				Message: "welcome message could not be saved",
				Op:      "join",
				Err:     err,
			},
		})
	}
	return nil
}

// HandleSend persists a text message and broadcasts the stored copy to every
// member of the room, the sender included. Nothing is broadcast when the
// write fails.
func (r *Relay) HandleSend(ctx context.Context, c *Client, room string, authorRef *int64, body, clientID string) (*Message, error) {
	name, cerr := r.resolveRoom("send", room)
	if cerr != nil {
		r.emitError(c, cerr)
		return nil, cerr
	}

	body = strings.TrimSpace(body)
	if body == "" {
		cerr := validationError("send", "message body is empty")
		r.emitError(c, cerr)
		return nil, cerr
	}
	if utf8.RuneCountInString(body) > r.opts.MaxBodyLength {
		cerr := validationError("send", fmt.Sprintf("message body exceeds %d characters", r.opts.MaxBodyLength))
		r.emitError(c, cerr)
		return nil, cerr
	}

	author, ok := r.registry.DisplayName(c.ID)
	if !ok {
		author = r.displayName(c, "")
	}

	unlock := r.lockRoom(name)
	defer unlock()

	stored, err := r.append(ctx, store.NewMessage{
		Room:     name,
		AuthorID: authorRef,
		Author:   author,
		Body:     body,
		Kind:     store.MessageKindText,
	})
	if err != nil {
		r.log.Error().Err(err).Str("conn_id", c.ID).Str("room", name).Msg("message not persisted")
		cerr := storageError(ErrCodeDeliveryFailed, "send", "message could not be saved", err)
		r.emitError(c, cerr)
		return nil, cerr
	}

	msg := messageFromStore(stored)
	delivered := r.registry.Broadcast(name, &Event{
		Kind:     EventRoomMessage,
		Room:     name,
		Message:  msg,
		ClientID: clientID,
	})
	r.log.Debug().
		Str("conn_id", c.ID).
		Str("room", name).
		Int64("msg_id", msg.ID).
		Int("delivered", delivered).
		Msg("message broadcast")

	return &msg, nil
}

// HandleHistory sends the latest messages of room to the requesting client.
func (r *Relay) HandleHistory(ctx context.Context, c *Client, room string, limit int) ([]Message, error) {
	name, cerr := r.resolveRoom("history", room)
	if cerr != nil {
		r.emitError(c, cerr)
		return nil, cerr
	}

	messages, cerr := r.recent(ctx, name, limit)
	if cerr != nil {
		r.emitError(c, cerr)
		return nil, cerr
	}

	c.deliver(&Event{Kind: EventHistory, Room: name, Messages: messages})
	return messages, nil
}

// FetchRecent returns up to limit latest messages of room, oldest first.
// A missing room falls back to the default one.
func (r *Relay) FetchRecent(ctx context.Context, room string, limit int) ([]Message, error) {
	name, cerr := r.resolveRoom("history", room)
	if cerr != nil {
		return nil, cerr
	}
	messages, cerr := r.recent(ctx, name, limit)
	if cerr != nil {
		return nil, cerr
	}
	return messages, nil
}

func (r *Relay) recent(ctx context.Context, room string, limit int) ([]Message, *CoreError) {
	sctx, cancel := r.storeContext(ctx)
	defer cancel()

	stored, err := r.store.Recent(sctx, room, limit)
	if err != nil {
		r.log.Error().Err(err).Str("room", room).Msg("history query failed")
		return nil, storageError(ErrCodeHistoryFailed, "history", "history unavailable", err)
	}
	return messagesFromStore(stored), nil
}

// HandleDisconnect drops the connection from its room. It is safe to call
// more than once.
func (r *Relay) HandleDisconnect(c *Client) {
	room, ok := r.registry.Leave(c.ID)
	if !ok {
		return
	}
	r.log.Info().Str("conn_id", c.ID).Str("room", room).Msg("client left room")
}

func (r *Relay) appendLocked(ctx context.Context, in store.NewMessage) (*store.Message, error) {
	unlock := r.lockRoom(in.Room)
	defer unlock()
	return r.append(ctx, in)
}

// append writes through a context detached from the caller's cancellation,
// so an accepted write completes even if the client goes away.
func (r *Relay) append(ctx context.Context, in store.NewMessage) (*store.Message, error) {
	sctx, cancel := r.storeContext(ctx)
	defer cancel()
	return r.store.Append(sctx, in)
}

func (r *Relay) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), r.opts.StoreTimeout)
}

// lockRoom acquires the write lock for room and returns its release func.
func (r *Relay) lockRoom(room string) func() {
	lock, _ := r.roomLocks.Compute(room, func(old *roomLock, loaded bool) (*roomLock, bool) {
		if !loaded {
			old = &roomLock{}
		}
		old.refs++
		return old, false
	})
	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		r.roomLocks.Compute(room, func(old *roomLock, loaded bool) (*roomLock, bool) {
			if !loaded {
				return old, true
			}
			old.refs--
			return old, old.refs <= 0
		})
	}
}

func (r *Relay) resolveRoom(op, room string) (string, *CoreError) {
	room = strings.TrimSpace(room)
	if room == "" {
		return r.opts.DefaultRoom, nil
	}
	if utf8.RuneCountInString(room) > maxRoomNameLength {
		return "", validationError(op, fmt.Sprintf("room name exceeds %d characters", maxRoomNameLength))
	}
	for _, ch := range room {
		if unicode.IsControl(ch) {
			return "", validationError(op, "room name contains control characters")
		}
	}
	return room, nil
}

func (r *Relay) displayName(c *Client, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(c.Name)
	}
	if name == "" {
		name = anonymousName
	}
	if utf8.RuneCountInString(name) > maxDisplayNameLength {
		name = string([]rune(name)[:maxDisplayNameLength])
	}
	return name
}

func (r *Relay) emitError(c *Client, cerr *CoreError) {
	if !c.deliver(&Event{Kind: EventError, Error: cerr}) {
		r.log.Warn().Str("conn_id", c.ID).Str("code", cerr.Code).Msg("error event dropped")
	}
}
