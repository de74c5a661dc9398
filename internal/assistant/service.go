// Package assistant answers free-form questions with a language model while
// keeping a short per-user conversation history. It is independent from room
// history.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrEmptyMessage is returned for blank questions.
var ErrEmptyMessage = errors.New("message is empty")

// Completer produces the next assistant turn.
type Completer interface {
	Complete(ctx context.Context, system string, history []Turn, query string) (string, error)
}

// Reply is what the assistant answered.
type Reply struct {
	Text      string
	Fallback  bool
	CreatedAt time.Time
}

// Options tunes the service.
type Options struct {
	SystemPrompt string
	HistorySize  int
	Timeout      time.Duration
}

// Service ties a completer to per-user history.
type Service struct {
	completer Completer
	history   *History
	system    string
	timeout   time.Duration
	log       *zerolog.Logger
	pick      func(n int) int
}

// NewService builds a service. A nil completer makes every reply a fallback.
func NewService(completer Completer, opts Options, logger *zerolog.Logger) *Service {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		completer: completer,
		history:   NewHistory(opts.HistorySize),
		system:    opts.SystemPrompt,
		timeout:   opts.Timeout,
		log:       logger,
		pick:      rand.IntN,
	}
}

// History exposes the per-user history.
func (s *Service) History() *History {
	return s.history
}

// Reply records the user's message, asks the completer and records the
// answer. When the completer fails the user turn is kept and a canned reply
// is returned with Fallback set.
func (s *Service) Reply(ctx context.Context, userID, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}
	if userID == "" {
		userID = "default"
	}

	prior := s.history.Turns(userID)
	s.history.Append(userID, Turn{Role: RoleUser, Content: message})

	text, err := s.complete(ctx, prior, message)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("assistant completion failed")
		return Reply{
			Text:      fallbackReplies[s.pick(len(fallbackReplies))],
			Fallback:  true,
			CreatedAt: time.Now().UTC(),
		}, nil
	}

	s.history.Append(userID, Turn{Role: RoleAssistant, Content: text})
	s.log.Debug().Str("user_id", userID).Int("length", len(text)).Msg("assistant replied")
	return Reply{Text: text, CreatedAt: time.Now().UTC()}, nil
}

// Clear drops a user's conversation.
func (s *Service) Clear(userID string) {
	s.history.Clear(userID)
}

func (s *Service) complete(ctx context.Context, prior []Turn, message string) (string, error) {
	if s.completer == nil {
		return "", errors.New("assistant disabled")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.completer.Complete(ctx, s.system, prior, message)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("complete: empty response")
	}
	return text, nil
}
