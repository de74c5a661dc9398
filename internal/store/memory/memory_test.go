package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/relaychat/internal/store"
	"github.com/vovakirdan/relaychat/internal/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return New()
	})
}

func TestSetFailure(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.SetFailure(errors.New("connection refused"))

	_, err := s.Append(ctx, store.NewMessage{Room: "general", Body: "test", Kind: store.MessageKindText})
	assert.ErrorIs(t, err, store.ErrUnavailable)
	_, err = s.Recent(ctx, "general", 10)
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.ErrorIs(t, s.Ping(ctx), store.ErrUnavailable)

	s.SetFailure(nil)

	_, err = s.Append(ctx, store.NewMessage{Room: "general", Body: "back", Kind: store.MessageKindText})
	require.NoError(t, err)
	got, err := s.Recent(ctx, "general", 10)
	require.NoError(t, err)
	require.Len(t, got, 1, "failed append must not leave a row behind")
	assert.Equal(t, "back", got[0].Body)
}

func TestCanceledContextFails(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Append(ctx, store.NewMessage{Room: "general", Body: "late", Kind: store.MessageKindText})
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReturnedMessagesAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	msg, err := s.Append(ctx, store.NewMessage{Room: "general", Body: "original", Kind: store.MessageKindText})
	require.NoError(t, err)
	msg.Body = "tampered"

	got, err := s.Recent(ctx, "general", 1)
	require.NoError(t, err)
	assert.Equal(t, "original", got[0].Body)
}
