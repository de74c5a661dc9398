// Package storetest holds behavior tests shared by every store.Store implementation.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/relaychat/internal/store"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, st store.Store)
	}{
		{"AppendAssignsIDAndTimestamp", testAppendAssignsIDAndTimestamp},
		{"RecentReturnsSendOrder", testRecentReturnsSendOrder},
		{"RecentLimitKeepsNewest", testRecentLimitKeepsNewest},
		{"RecentDefaultsAndClamps", testRecentDefaultsAndClamps},
		{"RecentUnknownRoomIsEmpty", testRecentUnknownRoomIsEmpty},
		{"RoomsAreIsolated", testRoomsAreIsolated},
		{"DeleteUserNullsAuthor", testDeleteUserNullsAuthor},
		{"ConcurrentAppendsKeepPerRoomOrder", testConcurrentAppends},
		{"Inspector", testInspector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newStore(t)
			t.Cleanup(func() { _ = st.Close() })
			tt.fn(t, st)
		})
	}
}

func appendText(t *testing.T, st store.Store, room, body string) *store.Message {
	t.Helper()
	msg, err := st.Append(context.Background(), store.NewMessage{
		Room: room,
		Body: body,
		Kind: store.MessageKindText,
	})
	require.NoError(t, err)
	return msg
}

func bodies(messages []*store.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Body)
	}
	return out
}

func testAppendAssignsIDAndTimestamp(t *testing.T, st store.Store) {
	before := time.Now().Add(-time.Second)

	first := appendText(t, st, "general", "first")
	second := appendText(t, st, "general", "second")

	assert.NotZero(t, first.ID)
	assert.Greater(t, second.ID, first.ID, "expected monotonically increasing ids")
	assert.True(t, first.CreatedAt.After(before), "expected server-assigned timestamp")
	assert.Equal(t, store.MessageKindText, first.Kind)
	assert.Nil(t, first.AuthorID)
}

func testRecentReturnsSendOrder(t *testing.T, st store.Store) {
	sent := []string{"a", "b", "c", "d"}
	ids := make([]int64, 0, len(sent))
	for _, body := range sent {
		ids = append(ids, appendText(t, st, "general", body).ID)
	}

	got, err := st.Recent(context.Background(), "general", len(sent))
	require.NoError(t, err)
	require.Len(t, got, len(sent))
	assert.Equal(t, sent, bodies(got))
	for i, msg := range got {
		assert.Equal(t, ids[i], msg.ID)
		assert.Equal(t, "general", msg.Room)
	}
}

func testRecentLimitKeepsNewest(t *testing.T, st store.Store) {
	appendText(t, st, "general", "first")
	appendText(t, st, "general", "second")

	got, err := st.Recent(context.Background(), "general", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Body)
}

func testRecentDefaultsAndClamps(t *testing.T, st store.Store) {
	for i := range store.MaxHistoryLimit + 10 {
		appendText(t, st, "busy", fmt.Sprintf("m%d", i))
	}

	got, err := st.Recent(context.Background(), "busy", 0)
	require.NoError(t, err)
	assert.Len(t, got, store.DefaultHistoryLimit)
	assert.Equal(t, fmt.Sprintf("m%d", store.MaxHistoryLimit+9), got[len(got)-1].Body)

	got, err = st.Recent(context.Background(), "busy", -1)
	require.NoError(t, err)
	assert.Len(t, got, store.DefaultHistoryLimit)

	got, err = st.Recent(context.Background(), "busy", 1_000)
	require.NoError(t, err)
	assert.Len(t, got, store.MaxHistoryLimit)
}

func testRecentUnknownRoomIsEmpty(t *testing.T, st store.Store) {
	got, err := st.Recent(context.Background(), "nowhere", 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func testRoomsAreIsolated(t *testing.T, st store.Store) {
	appendText(t, st, "general", "g1")
	appendText(t, st, "kpop", "k1")
	appendText(t, st, "general", "g2")

	got, err := st.Recent(context.Background(), "general", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, bodies(got))
}

func testDeleteUserNullsAuthor(t *testing.T, st store.Store) {
	ctx := context.Background()

	user, err := st.CreateUser(ctx, "minji")
	require.NoError(t, err)

	_, err = st.Append(ctx, store.NewMessage{
		Room:     "general",
		AuthorID: &user.ID,
		Author:   "minji-display",
		Body:     "annyeong",
		Kind:     store.MessageKindText,
	})
	require.NoError(t, err)

	got, err := st.Recent(ctx, "general", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].AuthorID)
	assert.Equal(t, user.ID, *got[0].AuthorID)
	assert.Equal(t, "minji", got[0].Author, "expected username from the users table")

	require.NoError(t, st.DeleteUser(ctx, user.ID))

	got, err = st.Recent(ctx, "general", 1)
	require.NoError(t, err)
	require.Len(t, got, 1, "message must survive author deletion")
	assert.Nil(t, got[0].AuthorID)
	assert.Equal(t, "minji-display", got[0].Author, "expected display name snapshot")

	assert.ErrorIs(t, st.DeleteUser(ctx, user.ID), store.ErrUnavailable)
}

func testConcurrentAppends(t *testing.T, st store.Store) {
	const perRoom = 20
	rooms := []string{"r1", "r2", "r3"}

	var wg sync.WaitGroup
	for _, room := range rooms {
		wg.Add(1)
		go func(room string) {
			defer wg.Done()
			for i := range perRoom {
				_, err := st.Append(context.Background(), store.NewMessage{
					Room: room,
					Body: fmt.Sprintf("%s-%02d", room, i),
					Kind: store.MessageKindText,
				})
				assert.NoError(t, err)
			}
		}(room)
	}
	wg.Wait()

	for _, room := range rooms {
		got, err := st.Recent(context.Background(), room, perRoom)
		require.NoError(t, err)
		require.Len(t, got, perRoom)
		for i, msg := range got {
			assert.Equal(t, fmt.Sprintf("%s-%02d", room, i), msg.Body)
		}
	}
}

func testInspector(t *testing.T, st store.Store) {
	ctx := context.Background()
	require.NoError(t, st.Ping(ctx))

	_, err := st.CreateUser(ctx, "jisoo")
	require.NoError(t, err)
	appendText(t, st, "general", "one")
	appendText(t, st, "general", "two")
	appendText(t, st, "kpop", "three")

	tables, err := st.ListTables(ctx)
	require.NoError(t, err)
	assert.Contains(t, tables, "messages")
	assert.Contains(t, tables, "users")

	users, err := st.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, users)

	messages, err := st.CountMessages(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, messages)

	rooms, err := st.CountRooms(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, rooms)
}
