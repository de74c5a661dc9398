package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/assistant"
)

// AssistantHandlers exposes the conversation assistant.
type AssistantHandlers struct {
	svc *assistant.Service
	log *zerolog.Logger
}

// NewAssistantHandlers creates a new assistant handlers instance.
func NewAssistantHandlers(svc *assistant.Service, logger *zerolog.Logger) *AssistantHandlers {
	return &AssistantHandlers{svc: svc, log: logger}
}

// ChatRequest is a question for the assistant.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message" binding:"required"`
}

// ChatResponse carries the assistant's answer.
type ChatResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	IsFallback bool   `json:"is_fallback,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// Chat handles a question.
// POST /api/assistant/chat
func (h *AssistantHandlers) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid assistant request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	reply, err := h.svc.Reply(c.Request.Context(), req.UserID, req.Message)
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("assistant reply failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ChatResponse{
		Success:    !reply.Fallback,
		Message:    reply.Text,
		IsFallback: reply.Fallback,
		Timestamp:  reply.CreatedAt.Format(time.RFC3339),
	})
}

// ClearHistory forgets a user's conversation.
// DELETE /api/assistant/history/:user
func (h *AssistantHandlers) ClearHistory(c *gin.Context) {
	user := c.Param("user")
	h.svc.Clear(user)
	h.log.Info().Str("user_id", user).Msg("assistant history cleared")
	c.Status(http.StatusNoContent)
}
