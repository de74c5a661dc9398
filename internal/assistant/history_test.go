package assistant

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryEvictsOldestPastCap(t *testing.T) {
	h := NewHistory(3)
	for i := range 5 {
		h.Append("u1", Turn{Role: RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	turns := h.Turns("u1")
	assert.Len(t, turns, 3)
	assert.Equal(t, "m2", turns[0].Content)
	assert.Equal(t, "m4", turns[2].Content)
}

func TestHistoryIsPerUser(t *testing.T) {
	h := NewHistory(0)
	h.Append("u1", Turn{Role: RoleUser, Content: "hi"})
	h.Append("u2", Turn{Role: RoleUser, Content: "hey"})

	assert.Equal(t, 2, h.Users())
	assert.Len(t, h.Turns("u1"), 1)

	h.Clear("u1")
	assert.Nil(t, h.Turns("u1"))
	assert.Len(t, h.Turns("u2"), 1)
	assert.Equal(t, 1, h.Users())

	h.Clear("nobody")
}

func TestHistoryTurnsAreCopies(t *testing.T) {
	h := NewHistory(DefaultHistorySize)
	h.Append("u1", Turn{Role: RoleUser, Content: "original"})

	turns := h.Turns("u1")
	turns[0].Content = "changed"
	assert.Equal(t, "original", h.Turns("u1")[0].Content)
}
