package http

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/proto"
)

// RoomHandlers provides HTTP handlers for room history and presence.
type RoomHandlers struct {
	relay *core.Relay
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(relay *core.Relay, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		relay: relay,
		log:   logger,
	}
}

// MessagesResponse is the recent history of one room.
type MessagesResponse struct {
	Room         string               `json:"room"`
	MessageCount int                  `json:"message_count"`
	Messages     []proto.EventMessage `json:"messages"`
}

// RoomResponse is a live room and how many connections are in it.
type RoomResponse struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// ListMessages returns the latest messages of a room, oldest first.
// GET /api/messages/:room?limit=
func (h *RoomHandlers) ListMessages(c *gin.Context) {
	room := c.Param("room")
	// Unparsable limits fall back to the default.
	limit, _ := strconv.Atoi(c.Query("limit"))

	messages, err := h.relay.FetchRecent(c.Request.Context(), room, limit)
	if err != nil {
		if core.IsValidation(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Str("room", room).Msg("failed to fetch messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "history unavailable"})
		return
	}

	c.JSON(http.StatusOK, MessagesResponse{
		Room:         room,
		MessageCount: len(messages),
		Messages:     messagesToProto(messages),
	})
}

// ListRooms returns rooms that currently have members.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	snapshot := h.relay.Registry().Snapshot()

	response := make([]RoomResponse, 0, len(snapshot))
	for name, members := range snapshot {
		response = append(response, RoomResponse{Name: name, Members: members})
	}
	sort.Slice(response, func(i, j int) bool { return response[i].Name < response[j].Name })

	h.log.Debug().Int("room_count", len(response)).Msg("rooms listed")
	c.JSON(http.StatusOK, response)
}
