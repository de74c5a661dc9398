package core

import (
	"time"

	"github.com/vovakirdan/relaychat/internal/store"
)

// Message is the domain model for a chat message.
type Message struct {
	ID        int64
	Room      string
	AuthorID  *int64
	Author    string
	Body      string
	Kind      store.MessageKind
	CreatedAt time.Time
}

func messageFromStore(m *store.Message) Message {
	return Message{
		ID:        m.ID,
		Room:      m.Room,
		AuthorID:  m.AuthorID,
		Author:    m.Author,
		Body:      m.Body,
		Kind:      m.Kind,
		CreatedAt: m.CreatedAt,
	}
}

func messagesFromStore(in []*store.Message) []Message {
	out := make([]Message, 0, len(in))
	for _, m := range in {
		out = append(out, messageFromStore(m))
	}
	return out
}
